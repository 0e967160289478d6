// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authn

import (
	"context"

	"github.com/canonical/auth-service/internal/types"
)

type ServiceInterface interface {
	Signup(ctx context.Context, tenantID, email, password, firstName, lastName string) (*types.UserCredentials, error)
	Login(ctx context.Context, tenantID, email, password string) (*types.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*types.TokenPair, error)
	Exchange(ctx context.Context, principal *types.Principal, accountID string) (*types.TokenPair, error)
	FederatedLogin(ctx context.Context, rawIDToken string) (*types.TokenPair, error)
	WhoAmI(ctx context.Context, principal *types.Principal) (*types.User, error)
	DeleteUser(ctx context.Context, principal *types.Principal) error
	PublicKey() (string, error)
}

type StorageInterface interface {
	CreateUser(ctx context.Context, u *types.User) (*types.User, error)
	GetUserByID(ctx context.Context, id string) (*types.User, error)
	GetUserByEmail(ctx context.Context, tenantID, email string) (*types.User, error)
	DeleteUser(ctx context.Context, id string) error
	CreateCredentials(ctx context.Context, c *types.UserCredentials) (*types.UserCredentials, error)
	GetCredentials(ctx context.Context, id string) (*types.UserCredentials, error)
	DeleteCredentials(ctx context.Context, id string) error
	ListRolesByUserID(ctx context.Context, userID string) ([]*types.Role, error)
	ListIdentitiesByUserID(ctx context.Context, userID string) ([]*types.UserIdentity, error)
}
