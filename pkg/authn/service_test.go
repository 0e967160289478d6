// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authn

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/canonical/auth-service/internal/logging"
	"github.com/canonical/auth-service/internal/monitoring"
	"github.com/canonical/auth-service/internal/storage"
	"github.com/canonical/auth-service/internal/tracing"
	"github.com/canonical/auth-service/internal/types"
	"github.com/canonical/auth-service/pkg/hash"
	"github.com/canonical/auth-service/pkg/identity"
	"github.com/canonical/auth-service/pkg/token"
)

type fakeStorage struct {
	users       map[string]*types.User
	credentials map[string]*types.UserCredentials
	roles       map[string][]*types.Role

	nextUserID int
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		users:       make(map[string]*types.User),
		credentials: make(map[string]*types.UserCredentials),
		roles:       make(map[string][]*types.Role),
	}
}

func (f *fakeStorage) CreateUser(_ context.Context, u *types.User) (*types.User, error) {
	for _, existing := range f.users {
		if existing.TenantID == u.TenantID && existing.Email == u.Email {
			return nil, storage.ErrDuplicateKey
		}
	}
	f.nextUserID++
	u.ID = fmt.Sprintf("user-%d", f.nextUserID)
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeStorage) GetUserByID(_ context.Context, id string) (*types.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, storage.ErrNotFound
}

func (f *fakeStorage) GetUserByEmail(_ context.Context, tenantID, email string) (*types.User, error) {
	for _, u := range f.users {
		if u.TenantID == tenantID && u.Email == email {
			return u, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeStorage) DeleteUser(_ context.Context, id string) error {
	if _, ok := f.users[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeStorage) CreateCredentials(_ context.Context, c *types.UserCredentials) (*types.UserCredentials, error) {
	if _, ok := f.credentials[c.ID]; ok {
		return nil, storage.ErrDuplicateKey
	}
	f.credentials[c.ID] = c
	return c, nil
}

func (f *fakeStorage) GetCredentials(_ context.Context, id string) (*types.UserCredentials, error) {
	if c, ok := f.credentials[id]; ok {
		return c, nil
	}
	return nil, storage.ErrNotFound
}

func (f *fakeStorage) DeleteCredentials(_ context.Context, id string) error {
	if _, ok := f.credentials[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.credentials, id)
	return nil
}

func (f *fakeStorage) ListRolesByUserID(_ context.Context, userID string) ([]*types.Role, error) {
	return f.roles[userID], nil
}

func (f *fakeStorage) ListIdentitiesByUserID(_ context.Context, _ string) ([]*types.UserIdentity, error) {
	return nil, nil
}

func newTestTokenService(t *testing.T) *token.Service {
	t.Helper()

	s, err := token.NewService(
		token.Config{
			Issuer:     "auth-service",
			Audience:   "auth-service",
			Algorithm:  "HS256",
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 24 * time.Hour,
			TenantID:   "acme",
			Secret:     "a-very-long-shared-secret-value",
		},
		tracing.NewNoopTracer(),
		monitoring.NewNoopMonitor(),
		logging.NewNoopLogger(),
	)
	if err != nil {
		t.Fatalf("failed to create token service: %v", err)
	}
	return s
}

func newTestService(t *testing.T, store *fakeStorage) *Service {
	t.Helper()

	return NewService(
		store,
		hash.NewHasher(4),
		newTestTokenService(t),
		nil,
		nil,
		tracing.NewNoopTracer(),
		monitoring.NewNoopMonitor(),
		logging.NewNoopLogger(),
	)
}

func TestService_SignupAndLogin(t *testing.T) {
	ctx := context.Background()
	store := newFakeStorage()
	s := newTestService(t, store)

	credentials, err := s.Signup(ctx, "acme", "a@x.com", "longpassword1", "Ada", "Lovelace")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if credentials.ID != "a@x.com" {
		t.Errorf("expected credentials keyed by email, got %q", credentials.ID)
	}
	if credentials.Password == "longpassword1" {
		t.Error("stored password must be hashed")
	}

	pair, err := s.Login(ctx, "acme", "a@x.com", "longpassword1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pair.Token == "" || pair.RefreshToken == "" {
		t.Fatal("expected a full token pair")
	}
	if pair.User.TenantID != "acme" {
		t.Errorf("expected tenantId acme in claims, got %q", pair.User.TenantID)
	}
	if pair.User.Name != "Ada Lovelace" {
		t.Errorf("unexpected principal name %q", pair.User.Name)
	}
}

func TestService_Signup_Duplicate(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, newFakeStorage())

	if _, err := s.Signup(ctx, "acme", "a@x.com", "longpassword1", "", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := s.Signup(ctx, "acme", "a@x.com", "otherpassword", "", ""); !errors.Is(err, ErrUserExists) {
		t.Errorf("expected ErrUserExists, got %v", err)
	}
}

func TestService_Login_FailuresAreIndistinguishable(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, newFakeStorage())

	if _, err := s.Signup(ctx, "acme", "a@x.com", "longpassword1", "", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, wrongPassword := s.Login(ctx, "acme", "a@x.com", "wrong")
	_, unknownUser := s.Login(ctx, "acme", "nobody@x.com", "longpassword1")

	if !errors.Is(wrongPassword, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for wrong password, got %v", wrongPassword)
	}
	if !errors.Is(unknownUser, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for unknown user, got %v", unknownUser)
	}
	if wrongPassword.Error() != unknownUser.Error() {
		t.Error("login failures must be externally indistinguishable")
	}
}

func TestService_Login_IncludesRoles(t *testing.T) {
	ctx := context.Background()
	store := newFakeStorage()
	s := newTestService(t, store)

	if _, err := s.Signup(ctx, "acme", "a@x.com", "longpassword1", "", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	user, _ := store.GetUserByEmail(ctx, "acme", "a@x.com")
	store.roles[user.ID] = []*types.Role{{ID: 1, Name: "admin", AccountID: "account-1"}}

	pair, err := s.Login(ctx, "acme", "a@x.com", "longpassword1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pair.User.Roles) != 1 || pair.User.Roles[0] != "admin" {
		t.Errorf("expected roles in claims, got %v", pair.User.Roles)
	}
}

func TestService_Refresh(t *testing.T) {
	ctx := context.Background()
	store := newFakeStorage()
	s := newTestService(t, store)

	if _, err := s.Signup(ctx, "acme", "a@x.com", "longpassword1", "", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pair, err := s.Login(ctx, "acme", "a@x.com", "longpassword1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fresh, err := s.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fresh.User.ID != pair.User.ID {
		t.Errorf("expected the same user after refresh, got %q", fresh.User.ID)
	}

	// An access token is not acceptable where a refresh token is required.
	if _, err := s.Refresh(ctx, pair.Token); !errors.Is(err, token.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for access token, got %v", err)
	}
}

func TestService_Exchange_StampsAccountID(t *testing.T) {
	ctx := context.Background()
	store := newFakeStorage()
	s := newTestService(t, store)

	if _, err := s.Signup(ctx, "acme", "a@x.com", "longpassword1", "", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	user, _ := store.GetUserByEmail(ctx, "acme", "a@x.com")

	pair, err := s.Exchange(ctx, &types.Principal{ID: user.ID, TenantID: "acme"}, "account-42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pair.User.AccountID != "account-42" {
		t.Errorf("expected accountId stamped into claims, got %q", pair.User.AccountID)
	}

	verified, err := newTestTokenService(t).VerifyAccessToken(ctx, pair.Token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verified.AccountID != "account-42" {
		t.Errorf("expected accountId in verified claims, got %q", verified.AccountID)
	}
}

func TestService_FederatedLogin_Disabled(t *testing.T) {
	s := newTestService(t, newFakeStorage())

	if _, err := s.FederatedLogin(context.Background(), "some-token"); !errors.Is(err, ErrFederationDisabled) {
		t.Errorf("expected ErrFederationDisabled, got %v", err)
	}
}

type staticVerifier struct {
	profile *identity.ExternalProfile
}

func (v staticVerifier) Verify(_ context.Context, _ string) (*identity.ExternalProfile, error) {
	if v.profile == nil {
		return nil, errors.New("bad token")
	}
	return v.profile, nil
}

type staticResolver struct {
	user *types.User
}

func (r staticResolver) Resolve(_ context.Context, _ *identity.ExternalProfile) (*types.User, error) {
	return r.user, nil
}

func (r staticResolver) ListProfiles(_ context.Context, _ string) ([]*types.UserIdentity, error) {
	return nil, nil
}

func TestService_DeleteUser(t *testing.T) {
	ctx := context.Background()
	store := newFakeStorage()
	s := newTestService(t, store)

	if _, err := s.Signup(ctx, "acme", "a@x.com", "longpassword1", "", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	user, _ := store.GetUserByEmail(ctx, "acme", "a@x.com")

	if err := s.DeleteUser(ctx, &types.Principal{ID: user.ID, TenantID: "acme"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := store.GetUserByID(ctx, user.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Error("expected user to be gone")
	}
	if _, err := store.GetCredentials(ctx, "a@x.com"); !errors.Is(err, storage.ErrNotFound) {
		t.Error("expected credentials to be gone")
	}
	if _, err := s.Login(ctx, "acme", "a@x.com", "longpassword1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected login to fail after deletion, got %v", err)
	}
}

func TestService_FederatedLogin_RejectedToken(t *testing.T) {
	s := NewService(
		newFakeStorage(),
		hash.NewHasher(4),
		newTestTokenService(t),
		staticResolver{},
		staticVerifier{},
		tracing.NewNoopTracer(),
		monitoring.NewNoopMonitor(),
		logging.NewNoopLogger(),
	)

	if _, err := s.FederatedLogin(context.Background(), "a-forged-token"); !errors.Is(err, ErrFederatedTokenRejected) {
		t.Errorf("expected ErrFederatedTokenRejected, got %v", err)
	}
}

func TestService_FederatedLogin(t *testing.T) {
	store := newFakeStorage()
	user := &types.User{ID: "user-7", TenantID: "acme", Email: "fed@x.com", Username: "fed"}
	store.users[user.ID] = user

	s := NewService(
		store,
		hash.NewHasher(4),
		newTestTokenService(t),
		staticResolver{user: user},
		staticVerifier{profile: &identity.ExternalProfile{Subject: "ext|1", Provider: "google", Email: "fed@x.com"}},
		tracing.NewNoopTracer(),
		monitoring.NewNoopMonitor(),
		logging.NewNoopLogger(),
	)

	pair, err := s.FederatedLogin(context.Background(), "an-id-token")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pair.User.ID != "user-7" {
		t.Errorf("expected resolved user in claims, got %q", pair.User.ID)
	}
}
