// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package identity

import (
	"context"
	"encoding/json"

	"github.com/canonical/auth-service/internal/types"
)

type ServiceInterface interface {
	Resolve(ctx context.Context, profile *ExternalProfile) (*types.User, error)
	ListProfiles(ctx context.Context, userID string) ([]*types.UserIdentity, error)
}

type StorageInterface interface {
	GetIdentity(ctx context.Context, id string) (*types.UserIdentity, error)
	CreateIdentity(ctx context.Context, i *types.UserIdentity) (*types.UserIdentity, error)
	UpdateIdentityProfile(ctx context.Context, id string, profile json.RawMessage) error
	ListIdentitiesByUserID(ctx context.Context, userID string) ([]*types.UserIdentity, error)
	GetUserByID(ctx context.Context, id string) (*types.User, error)
	GetUserByEmail(ctx context.Context, tenantID, email string) (*types.User, error)
	CreateUser(ctx context.Context, u *types.User) (*types.User, error)
}

// VerifierInterface validates an externally issued credential and extracts
// the profile it attests to.
type VerifierInterface interface {
	Verify(ctx context.Context, rawIDToken string) (*ExternalProfile, error)
}
