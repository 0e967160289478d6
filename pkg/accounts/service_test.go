// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package accounts

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/canonical/auth-service/internal/logging"
	"github.com/canonical/auth-service/internal/monitoring"
	"github.com/canonical/auth-service/internal/storage"
	"github.com/canonical/auth-service/internal/tracing"
	"github.com/canonical/auth-service/internal/types"
)

// passthroughTx satisfies TxManagerInterface without a real database.
type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

type fakeStorage struct {
	accounts  map[string]*types.Account
	roles     map[int64]*types.Role
	users     map[string]*types.User
	userRoles map[string]int64 // "userID/roleID" -> roleID

	nextAccountID int
	nextRoleID    int64
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		accounts:  make(map[string]*types.Account),
		roles:     make(map[int64]*types.Role),
		users:     make(map[string]*types.User),
		userRoles: make(map[string]int64),
	}
}

func (f *fakeStorage) CreateAccount(_ context.Context, a *types.Account) (*types.Account, error) {
	f.nextAccountID++
	created := *a
	created.ID = fmt.Sprintf("account-%d", f.nextAccountID)
	if created.Type == "" {
		created.Type = types.AccountTypeDefault
	}
	f.accounts[created.ID] = &created
	return &created, nil
}

func (f *fakeStorage) GetAccountByID(_ context.Context, id string) (*types.Account, error) {
	if a, ok := f.accounts[id]; ok {
		return a, nil
	}
	return nil, storage.ErrNotFound
}

func (f *fakeStorage) ListAccountsByTenantID(_ context.Context, tenantID string) ([]*types.Account, error) {
	var out []*types.Account
	for _, a := range f.accounts {
		if a.TenantID == tenantID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStorage) ListAccountsByIDs(_ context.Context, ids []string) ([]*types.Account, error) {
	var out []*types.Account
	for _, id := range ids {
		if a, ok := f.accounts[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStorage) UpdateAccount(_ context.Context, a *types.Account, paths []string) error {
	existing, ok := f.accounts[a.ID]
	if !ok {
		return storage.ErrNotFound
	}
	for _, p := range paths {
		switch p {
		case "name":
			existing.Name = a.Name
		case "type":
			existing.Type = a.Type
		}
	}
	return nil
}

func (f *fakeStorage) DeleteAccount(_ context.Context, id string) error {
	delete(f.accounts, id)
	return nil
}

func (f *fakeStorage) CreateRoles(_ context.Context, roles []*types.Role) ([]*types.Role, error) {
	out := make([]*types.Role, 0, len(roles))
	for _, r := range roles {
		f.nextRoleID++
		created := *r
		created.ID = f.nextRoleID
		f.roles[created.ID] = &created
		out = append(out, &created)
	}
	return out, nil
}

func (f *fakeStorage) GetRoleByID(_ context.Context, id int64) (*types.Role, error) {
	if r, ok := f.roles[id]; ok {
		return r, nil
	}
	return nil, storage.ErrNotFound
}

func (f *fakeStorage) ListRolesByAccountID(_ context.Context, accountID string) ([]*types.Role, error) {
	var out []*types.Role
	for _, r := range f.roles {
		if r.AccountID == accountID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStorage) UpdateRolesByAccountID(_ context.Context, accountID, name string) (int64, error) {
	var count int64
	for _, r := range f.roles {
		if r.AccountID == accountID {
			r.Name = name
			count++
		}
	}
	return count, nil
}

func (f *fakeStorage) DeleteRolesByAccountID(_ context.Context, accountID string) (int64, error) {
	var count int64
	for id, r := range f.roles {
		if r.AccountID == accountID {
			delete(f.roles, id)
			count++
		}
	}
	return count, nil
}

func (f *fakeStorage) AddUserRole(_ context.Context, userID string, roleID int64) error {
	f.userRoles[fmt.Sprintf("%s/%d", userID, roleID)] = roleID
	return nil
}

func (f *fakeStorage) DeleteUserRole(_ context.Context, userID string, roleID int64) error {
	delete(f.userRoles, fmt.Sprintf("%s/%d", userID, roleID))
	return nil
}

func (f *fakeStorage) DeleteUserRolesByUserID(_ context.Context, userID string) error {
	for key := range f.userRoles {
		if len(key) > len(userID) && key[:len(userID)+1] == userID+"/" {
			delete(f.userRoles, key)
		}
	}
	return nil
}

func (f *fakeStorage) ListRolesByUserID(_ context.Context, userID string) ([]*types.Role, error) {
	var out []*types.Role
	for key, roleID := range f.userRoles {
		if len(key) > len(userID) && key[:len(userID)+1] == userID+"/" {
			if r, ok := f.roles[roleID]; ok {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

func (f *fakeStorage) GetUserByID(_ context.Context, id string) (*types.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, storage.ErrNotFound
}

func (f *fakeStorage) UpdateUser(_ context.Context, u *types.User, paths []string) error {
	existing, ok := f.users[u.ID]
	if !ok {
		return storage.ErrNotFound
	}
	for _, p := range paths {
		if p == "default_account_id" {
			existing.DefaultAccountID = u.DefaultAccountID
		}
	}
	return nil
}

func newTestService(store *fakeStorage) *Service {
	return NewService(passthroughTx{}, store, tracing.NewNoopTracer(), monitoring.NewNoopMonitor(), logging.NewNoopLogger())
}

func seedUser(store *fakeStorage, id string) *types.User {
	u := &types.User{ID: id, TenantID: "acme", Email: id + "@example.com"}
	store.users[id] = u
	return u
}

func TestService_CreateAccount_SeedsRolesAndAdminLink(t *testing.T) {
	store := newFakeStorage()
	seedUser(store, "user-1")
	s := newTestService(store)

	requester := &types.Principal{ID: "user-1", TenantID: "acme"}
	account, err := s.CreateAccount(context.Background(), "acme", &types.Account{Name: "Acme Corp"}, requester)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	roles, _ := store.ListRolesByAccountID(context.Background(), account.ID)
	if len(roles) != 3 {
		t.Fatalf("expected exactly 3 seeded roles, got %d", len(roles))
	}

	names := map[string]bool{}
	var adminID int64
	for _, r := range roles {
		names[r.Name] = true
		if r.Name == RoleAdmin {
			adminID = r.ID
		}
	}
	for _, want := range []string{RoleAdmin, RoleMember, RoleGuest} {
		if !names[want] {
			t.Errorf("expected seeded role %q", want)
		}
	}

	if _, ok := store.userRoles[fmt.Sprintf("user-1/%d", adminID)]; !ok {
		t.Error("expected requester linked to the admin role")
	}

	if store.users["user-1"].DefaultAccountID != account.ID {
		t.Errorf("expected default account %q, got %q", account.ID, store.users["user-1"].DefaultAccountID)
	}
}

func TestService_CreateAccount_KeepsExistingDefaultAccount(t *testing.T) {
	store := newFakeStorage()
	user := seedUser(store, "user-1")
	user.DefaultAccountID = "account-existing"
	s := newTestService(store)

	requester := &types.Principal{ID: "user-1", TenantID: "acme"}
	if _, err := s.CreateAccount(context.Background(), "acme", &types.Account{Name: "Second"}, requester); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if user.DefaultAccountID != "account-existing" {
		t.Errorf("default account must not be overwritten, got %q", user.DefaultAccountID)
	}
}

func TestService_CreateAccount_RequiresPrincipal(t *testing.T) {
	s := newTestService(newFakeStorage())

	if _, err := s.CreateAccount(context.Background(), "acme", &types.Account{Name: "X"}, nil); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestService_DeleteAccount_PurgesRolesAndLinks(t *testing.T) {
	store := newFakeStorage()
	seedUser(store, "user-1")
	s := newTestService(store)

	requester := &types.Principal{ID: "user-1", TenantID: "acme"}
	account, err := s.CreateAccount(context.Background(), "acme", &types.Account{Name: "Doomed"}, requester)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := s.DeleteAccount(context.Background(), account.ID, requester); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if roles, _ := store.ListRolesByAccountID(context.Background(), account.ID); len(roles) != 0 {
		t.Errorf("expected zero roles for deleted account, got %d", len(roles))
	}
	if links, _ := store.ListRolesByUserID(context.Background(), "user-1"); len(links) != 0 {
		t.Errorf("expected zero role links for requester, got %d", len(links))
	}
	if _, err := store.GetAccountByID(context.Background(), account.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Error("expected account to be gone")
	}
}

func TestService_DeleteAccount_UnknownAccount(t *testing.T) {
	store := newFakeStorage()
	seedUser(store, "user-1")
	s := newTestService(store)

	requester := &types.Principal{ID: "user-1", TenantID: "acme"}
	if err := s.DeleteAccount(context.Background(), "missing", requester); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestService_AssignRoleToUser_UnknownUserIsNoop(t *testing.T) {
	store := newFakeStorage()
	s := newTestService(store)

	if err := s.AssignRoleToUser(context.Background(), "ghost", 42); err != nil {
		t.Fatalf("expected silent no-op, got %v", err)
	}
	if len(store.userRoles) != 0 {
		t.Error("expected no link for unknown user")
	}
}

func TestService_AssignRoleToUser_LinksExistingUser(t *testing.T) {
	store := newFakeStorage()
	seedUser(store, "user-1")
	roles, _ := store.CreateRoles(context.Background(), []*types.Role{{TenantID: "acme", Name: "member", AccountID: "account-1"}})
	s := newTestService(store)

	if err := s.AssignRoleToUser(context.Background(), "user-1", roles[0].ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.userRoles) != 1 {
		t.Errorf("expected one link, got %d", len(store.userRoles))
	}
}

func TestService_AssignRoleToUser_UnknownRole(t *testing.T) {
	store := newFakeStorage()
	seedUser(store, "user-1")
	s := newTestService(store)

	if err := s.AssignRoleToUser(context.Background(), "user-1", 999); !errors.Is(err, ErrRoleNotFound) {
		t.Errorf("expected ErrRoleNotFound, got %v", err)
	}
	if len(store.userRoles) != 0 {
		t.Error("expected no link for unknown role")
	}
}

func TestService_UnassignRoleFromUser(t *testing.T) {
	store := newFakeStorage()
	seedUser(store, "user-1")
	roles, _ := store.CreateRoles(context.Background(), []*types.Role{{TenantID: "acme", Name: "member", AccountID: "account-1"}})
	s := newTestService(store)

	if err := s.AssignRoleToUser(context.Background(), "user-1", roles[0].ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := s.UnassignRoleFromUser(context.Background(), "user-1", roles[0].ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.userRoles) != 0 {
		t.Errorf("expected link to be removed, got %d", len(store.userRoles))
	}

	// Removing an absent link is a no-op.
	if err := s.UnassignRoleFromUser(context.Background(), "user-1", roles[0].ID); err != nil {
		t.Errorf("expected no-op, got %v", err)
	}
}

func TestService_ListUserAccounts_DistinctAccounts(t *testing.T) {
	store := newFakeStorage()
	seedUser(store, "user-1")
	s := newTestService(store)

	requester := &types.Principal{ID: "user-1", TenantID: "acme"}
	first, err := s.CreateAccount(context.Background(), "acme", &types.Account{Name: "First"}, requester)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A second role in the same account must not duplicate the entry.
	roles, _ := store.ListRolesByAccountID(context.Background(), first.ID)
	for _, r := range roles {
		_ = store.AddUserRole(context.Background(), "user-1", r.ID)
	}

	accounts, err := s.ListUserAccounts(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(accounts) != 1 {
		t.Errorf("expected one distinct account, got %d", len(accounts))
	}
}
