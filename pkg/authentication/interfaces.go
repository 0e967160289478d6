// Copyright 2025 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authentication

import (
	"context"

	"github.com/canonical/auth-service/internal/types"
)

type TokenVerifierInterface interface {
	// VerifyAccessToken verifies a raw JWT string and reconstructs the
	// principal it was issued for, or returns an error for invalid tokens.
	VerifyAccessToken(ctx context.Context, rawToken string) (*types.Principal, error)
}
