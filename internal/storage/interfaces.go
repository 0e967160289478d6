// Copyright 2025 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"context"
	"encoding/json"

	"github.com/canonical/auth-service/internal/types"
)

type StorageInterface interface {
	CreateUser(ctx context.Context, u *types.User) (*types.User, error)
	GetUserByID(ctx context.Context, id string) (*types.User, error)
	GetUserByEmail(ctx context.Context, tenantID, email string) (*types.User, error)
	UpdateUser(ctx context.Context, u *types.User, paths []string) error
	DeleteUser(ctx context.Context, id string) error

	CreateCredentials(ctx context.Context, c *types.UserCredentials) (*types.UserCredentials, error)
	GetCredentials(ctx context.Context, id string) (*types.UserCredentials, error)
	DeleteCredentials(ctx context.Context, id string) error

	CreateIdentity(ctx context.Context, i *types.UserIdentity) (*types.UserIdentity, error)
	GetIdentity(ctx context.Context, id string) (*types.UserIdentity, error)
	UpdateIdentityProfile(ctx context.Context, id string, profile json.RawMessage) error
	ListIdentitiesByUserID(ctx context.Context, userID string) ([]*types.UserIdentity, error)

	CreateAccount(ctx context.Context, a *types.Account) (*types.Account, error)
	GetAccountByID(ctx context.Context, id string) (*types.Account, error)
	ListAccountsByTenantID(ctx context.Context, tenantID string) ([]*types.Account, error)
	ListAccountsByIDs(ctx context.Context, ids []string) ([]*types.Account, error)
	UpdateAccount(ctx context.Context, a *types.Account, paths []string) error
	DeleteAccount(ctx context.Context, id string) error

	CreateRoles(ctx context.Context, roles []*types.Role) ([]*types.Role, error)
	GetRoleByID(ctx context.Context, id int64) (*types.Role, error)
	ListRolesByAccountID(ctx context.Context, accountID string) ([]*types.Role, error)
	UpdateRolesByAccountID(ctx context.Context, accountID, name string) (int64, error)
	DeleteRolesByAccountID(ctx context.Context, accountID string) (int64, error)

	AddUserRole(ctx context.Context, userID string, roleID int64) error
	DeleteUserRole(ctx context.Context, userID string, roleID int64) error
	DeleteUserRolesByUserID(ctx context.Context, userID string) error
	ListRolesByUserID(ctx context.Context, userID string) ([]*types.Role, error)
}
