// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package token

import (
	"context"

	"github.com/canonical/auth-service/internal/types"
)

type ServiceInterface interface {
	IssuePair(ctx context.Context, principal *types.Principal) (*types.TokenPair, error)
	IssueAccessToken(ctx context.Context, principal *types.Principal) (string, error)
	IssueRefreshToken(ctx context.Context, principal *types.Principal) (string, error)
	VerifyAccessToken(ctx context.Context, raw string) (*types.Principal, error)
	VerifyRefreshToken(ctx context.Context, raw string) (*types.Principal, error)
	PublicKeyPEM() (string, error)
}
