// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

// Package authn implements the authentication flows: signup, login, token
// refresh and exchange, federated login and principal introspection.
package authn

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/canonical/auth-service/internal/logging"
	"github.com/canonical/auth-service/internal/monitoring"
	"github.com/canonical/auth-service/internal/storage"
	"github.com/canonical/auth-service/internal/tracing"
	"github.com/canonical/auth-service/internal/types"
	"github.com/canonical/auth-service/pkg/hash"
	"github.com/canonical/auth-service/pkg/identity"
	"github.com/canonical/auth-service/pkg/token"
)

var (
	// ErrInvalidCredentials deliberately covers both unknown users and wrong
	// passwords so responses never reveal which one it was.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserExists         = errors.New("user already exists")
	ErrFederationDisabled = errors.New("federated login is not configured")
	// ErrFederatedTokenRejected covers ID tokens the verifier refuses: bad
	// signature, wrong issuer, expired.
	ErrFederatedTokenRejected = errors.New("federated token rejected")
)

type Service struct {
	storage  StorageInterface
	hasher   hash.HasherInterface
	tokens   token.ServiceInterface
	identity identity.ServiceInterface
	verifier identity.VerifierInterface

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

var _ ServiceInterface = (*Service)(nil)

// Signup registers a user with local credentials. The credentials record is
// keyed by email. An existing credentials record for that email fails the
// signup; a missing one is the expected branch and creation proceeds.
func (s *Service) Signup(ctx context.Context, tenantID, email, password, firstName, lastName string) (*types.UserCredentials, error) {
	ctx, span := s.tracer.Start(ctx, "authn.Service.Signup")
	defer span.End()

	_, err := s.storage.GetCredentials(ctx, email)
	if err == nil {
		return nil, ErrUserExists
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user, err := s.storage.CreateUser(ctx, &types.User{
		TenantID:  tenantID,
		Email:     email,
		Username:  email,
		FirstName: firstName,
		LastName:  lastName,
	})
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil, ErrUserExists
		}
		return nil, err
	}

	credentials, err := s.storage.CreateCredentials(ctx, &types.UserCredentials{
		ID:       email,
		Password: hashed,
		UserID:   user.ID,
	})
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil, ErrUserExists
		}
		return nil, err
	}

	s.logger.Infof("user %s signed up in tenant %s", user.ID, tenantID)

	return credentials, nil
}

// Login verifies the password and issues a token pair. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, tenantID, email, password string) (*types.TokenPair, error) {
	ctx, span := s.tracer.Start(ctx, "authn.Service.Login")
	defer span.End()

	user, err := s.storage.GetUserByEmail(ctx, tenantID, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.logger.Security().AuthnFailure(email, "password")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	credentials, err := s.storage.GetCredentials(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.logger.Security().AuthnFailure(email, "password")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !s.hasher.Verify(password, credentials.Password) {
		s.logger.Security().AuthnFailure(email, "password")
		return nil, ErrInvalidCredentials
	}

	principal, err := s.principalForUser(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Security().AuthnSuccess(email, "password")

	return s.tokens.IssuePair(ctx, principal)
}

// Refresh validates a refresh token and issues a fresh pair. Claims are
// rebuilt from current user state rather than copied from the old token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*types.TokenPair, error) {
	ctx, span := s.tracer.Start(ctx, "authn.Service.Refresh")
	defer span.End()

	stale, err := s.tokens.VerifyRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.storage.GetUserByID(ctx, stale.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, token.ErrInvalidToken
		}
		return nil, err
	}

	principal, err := s.principalForUser(ctx, user)
	if err != nil {
		return nil, err
	}

	return s.tokens.IssuePair(ctx, principal)
}

// Exchange re-issues a token pair for an already verified principal,
// stamping the target account into the claims.
func (s *Service) Exchange(ctx context.Context, principal *types.Principal, accountID string) (*types.TokenPair, error) {
	ctx, span := s.tracer.Start(ctx, "authn.Service.Exchange")
	defer span.End()

	user, err := s.storage.GetUserByID(ctx, principal.ID)
	if err != nil {
		return nil, err
	}

	fresh, err := s.principalForUser(ctx, user)
	if err != nil {
		return nil, err
	}
	fresh.AccountID = accountID

	return s.tokens.IssuePair(ctx, fresh)
}

// FederatedLogin verifies an externally issued ID token, resolves it to a
// local user and issues a token pair.
func (s *Service) FederatedLogin(ctx context.Context, rawIDToken string) (*types.TokenPair, error) {
	ctx, span := s.tracer.Start(ctx, "authn.Service.FederatedLogin")
	defer span.End()

	if s.verifier == nil {
		return nil, ErrFederationDisabled
	}

	profile, err := s.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		s.logger.Security().AuthnFailure("unknown", "federated")
		// A token that verified but asserts an unusable profile is the
		// caller's problem, not ours.
		if errors.Is(err, identity.ErrInvalidProfile) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrFederatedTokenRejected, err)
	}

	user, err := s.identity.Resolve(ctx, profile)
	if err != nil {
		return nil, err
	}

	principal, err := s.principalForUser(ctx, user)
	if err != nil {
		return nil, err
	}

	return s.tokens.IssuePair(ctx, principal)
}

// WhoAmI returns the full user record behind a verified principal, with
// linked federated profiles attached.
func (s *Service) WhoAmI(ctx context.Context, principal *types.Principal) (*types.User, error) {
	ctx, span := s.tracer.Start(ctx, "authn.Service.WhoAmI")
	defer span.End()

	user, err := s.storage.GetUserByID(ctx, principal.ID)
	if err != nil {
		return nil, err
	}

	profiles, err := s.storage.ListIdentitiesByUserID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	user.Profiles = profiles

	return user, nil
}

// DeleteUser removes the authenticated user and their credentials. Linked
// identities and role links are cleaned up by the schema's cascades.
func (s *Service) DeleteUser(ctx context.Context, principal *types.Principal) error {
	ctx, span := s.tracer.Start(ctx, "authn.Service.DeleteUser")
	defer span.End()

	user, err := s.storage.GetUserByID(ctx, principal.ID)
	if err != nil {
		return err
	}

	if err := s.storage.DeleteCredentials(ctx, user.Email); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	if err := s.storage.DeleteUser(ctx, user.ID); err != nil {
		return err
	}

	s.logger.Infof("deleted user %s in tenant %s", user.ID, user.TenantID)

	return nil
}

func (s *Service) PublicKey() (string, error) {
	return s.tokens.PublicKeyPEM()
}

func (s *Service) principalForUser(ctx context.Context, user *types.User) (*types.Principal, error) {
	roles, err := s.storage.ListRolesByUserID(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.Name)
	}

	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if name == "" {
		name = user.Username
	}

	return &types.Principal{
		ID:               user.ID,
		Name:             name,
		Email:            user.Email,
		TenantID:         user.TenantID,
		Roles:            names,
		DefaultAccountID: user.DefaultAccountID,
	}, nil
}

func NewService(
	storage StorageInterface,
	hasher hash.HasherInterface,
	tokens token.ServiceInterface,
	identities identity.ServiceInterface,
	verifier identity.VerifierInterface,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) *Service {
	s := new(Service)

	s.storage = storage
	s.hasher = hasher
	s.tokens = tokens
	s.identity = identities
	s.verifier = verifier
	s.tracer = tracer
	s.monitor = monitor
	s.logger = logger

	return s
}
