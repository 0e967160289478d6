// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

// Package identity links federated login profiles to local users. The link
// between an external subject and a user is permanent once created.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/canonical/auth-service/internal/logging"
	"github.com/canonical/auth-service/internal/monitoring"
	"github.com/canonical/auth-service/internal/storage"
	"github.com/canonical/auth-service/internal/tracing"
	"github.com/canonical/auth-service/internal/types"
)

// ErrInvalidProfile rejects federated profiles that are missing the subject
// or email needed to link them to a local user.
var ErrInvalidProfile = errors.New("external profile is missing a subject or email")

// ExternalProfile is the normalized shape of a profile asserted by a
// federated identity provider.
type ExternalProfile struct {
	Subject       string          `json:"sub" validate:"required"`
	Provider      string          `json:"provider" validate:"required"`
	AuthScheme    string          `json:"authScheme"`
	Email         string          `json:"email" validate:"required,email"`
	Username      string          `json:"username"`
	FirstName     string          `json:"firstName"`
	LastName      string          `json:"lastName"`
	EmailVerified bool            `json:"emailVerified"`
	Raw           json.RawMessage `json:"raw,omitempty"`
}

type Service struct {
	tenantID string
	storage  StorageInterface

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

var _ ServiceInterface = (*Service)(nil)

// Resolve maps an external profile to a local user, creating the user and
// the identity link on first sight. Calling it again with the same subject
// refreshes the stored profile snapshot and returns the same user.
func (s *Service) Resolve(ctx context.Context, profile *ExternalProfile) (*types.User, error) {
	ctx, span := s.tracer.Start(ctx, "identity.Service.Resolve")
	defer span.End()

	if profile == nil || profile.Subject == "" || profile.Email == "" {
		return nil, ErrInvalidProfile
	}

	snapshot := profile.Raw
	if snapshot == nil {
		marshalled, err := json.Marshal(profile)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal profile: %w", err)
		}
		snapshot = marshalled
	}

	existing, err := s.storage.GetIdentity(ctx, profile.Subject)
	if err == nil {
		if err := s.storage.UpdateIdentityProfile(ctx, existing.ID, snapshot); err != nil {
			return nil, err
		}
		return s.storage.GetUserByID(ctx, existing.UserID)
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	user, err := s.findOrCreateUser(ctx, profile)
	if err != nil {
		return nil, err
	}

	_, err = s.storage.CreateIdentity(ctx, &types.UserIdentity{
		ID:         profile.Subject,
		Provider:   profile.Provider,
		AuthScheme: profile.AuthScheme,
		UserID:     user.ID,
		Profile:    snapshot,
	})
	if err != nil {
		// A concurrent resolve for the same subject won the race. The link
		// it created is equivalent, so adopt it.
		if errors.Is(err, storage.ErrDuplicateKey) {
			return user, nil
		}
		return nil, err
	}

	s.logger.Security().AuthnSuccess(user.Email, "federated:"+profile.Provider)

	return user, nil
}

func (s *Service) findOrCreateUser(ctx context.Context, profile *ExternalProfile) (*types.User, error) {
	user, err := s.storage.GetUserByEmail(ctx, s.tenantID, profile.Email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	username := profile.Username
	if username == "" {
		username = usernameFromEmail(profile.Email)
	}

	return s.storage.CreateUser(ctx, &types.User{
		TenantID:      s.tenantID,
		Email:         profile.Email,
		Username:      username,
		FirstName:     profile.FirstName,
		LastName:      profile.LastName,
		EmailVerified: profile.EmailVerified,
	})
}

// ListProfiles returns the federated identities linked to a user.
func (s *Service) ListProfiles(ctx context.Context, userID string) ([]*types.UserIdentity, error) {
	ctx, span := s.tracer.Start(ctx, "identity.Service.ListProfiles")
	defer span.End()

	return s.storage.ListIdentitiesByUserID(ctx, userID)
}

func usernameFromEmail(email string) string {
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}

func NewService(
	tenantID string,
	storage StorageInterface,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) *Service {
	s := new(Service)

	s.tenantID = tenantID
	s.storage = storage
	s.tracer = tracer
	s.monitor = monitor
	s.logger = logger

	return s
}
