// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

// Package accounts manages accounts, their role sets and user membership
// within a tenant.
package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/canonical/auth-service/internal/logging"
	"github.com/canonical/auth-service/internal/monitoring"
	"github.com/canonical/auth-service/internal/storage"
	"github.com/canonical/auth-service/internal/tracing"
	"github.com/canonical/auth-service/internal/types"
)

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
	RoleGuest  = "guest"
)

var (
	ErrUnauthorized = errors.New("no authenticated principal")
	ErrNotFound     = errors.New("account not found")
	ErrRoleNotFound = errors.New("role not found")
)

type Service struct {
	db      TxManagerInterface
	storage StorageInterface

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

var _ ServiceInterface = (*Service)(nil)

// CreateAccount creates an account and seeds its role set in one transaction.
// The requester is linked to the new admin role and, if they have no default
// account yet, the new account becomes it.
func (s *Service) CreateAccount(ctx context.Context, tenantID string, account *types.Account, requester *types.Principal) (*types.Account, error) {
	ctx, span := s.tracer.Start(ctx, "accounts.Service.CreateAccount")
	defer span.End()

	if requester == nil || requester.ID == "" {
		return nil, ErrUnauthorized
	}

	var created *types.Account
	err := s.db.WithTx(ctx, func(txCtx context.Context) error {
		var err error

		account.TenantID = tenantID
		created, err = s.storage.CreateAccount(txCtx, account)
		if err != nil {
			return err
		}

		seed := make([]*types.Role, 0, 3)
		for _, name := range []string{RoleAdmin, RoleMember, RoleGuest} {
			seed = append(seed, &types.Role{
				TenantID:  tenantID,
				Name:      name,
				AccountID: created.ID,
			})
		}

		roles, err := s.storage.CreateRoles(txCtx, seed)
		if err != nil {
			return err
		}

		var adminRole *types.Role
		for _, r := range roles {
			if r.Name == RoleAdmin {
				adminRole = r
				break
			}
		}
		if adminRole == nil {
			return fmt.Errorf("admin role was not seeded for account %s", created.ID)
		}

		if err := s.storage.AddUserRole(txCtx, requester.ID, adminRole.ID); err != nil {
			return err
		}

		user, err := s.storage.GetUserByID(txCtx, requester.ID)
		if err != nil {
			return err
		}
		if user.DefaultAccountID == "" {
			user.DefaultAccountID = created.ID
			if err := s.storage.UpdateUser(txCtx, user, []string{"default_account_id"}); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infof("created account %s for user %s", created.ID, requester.ID)

	return created, nil
}

func (s *Service) GetAccount(ctx context.Context, accountID string) (*types.Account, error) {
	ctx, span := s.tracer.Start(ctx, "accounts.Service.GetAccount")
	defer span.End()

	account, err := s.storage.GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return account, nil
}

func (s *Service) ListAccounts(ctx context.Context, tenantID string) ([]*types.Account, error) {
	ctx, span := s.tracer.Start(ctx, "accounts.Service.ListAccounts")
	defer span.End()

	return s.storage.ListAccountsByTenantID(ctx, tenantID)
}

func (s *Service) UpdateAccount(ctx context.Context, account *types.Account, paths []string) error {
	ctx, span := s.tracer.Start(ctx, "accounts.Service.UpdateAccount")
	defer span.End()

	if err := s.storage.UpdateAccount(ctx, account, paths); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// DeleteAccount removes the account, its roles, and every role link the
// requester holds, in that order so no dangling references survive. The
// unlink is deliberately broad: the requester loses role links in other
// accounts too.
func (s *Service) DeleteAccount(ctx context.Context, accountID string, requester *types.Principal) error {
	ctx, span := s.tracer.Start(ctx, "accounts.Service.DeleteAccount")
	defer span.End()

	if requester == nil || requester.ID == "" {
		return ErrUnauthorized
	}

	if _, err := s.storage.GetAccountByID(ctx, accountID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	return s.db.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.storage.DeleteUserRolesByUserID(txCtx, requester.ID); err != nil {
			return err
		}
		if _, err := s.storage.DeleteRolesByAccountID(txCtx, accountID); err != nil {
			return err
		}
		return s.storage.DeleteAccount(txCtx, accountID)
	})
}

func (s *Service) AddRole(ctx context.Context, tenantID, accountID, name string) (*types.Role, error) {
	ctx, span := s.tracer.Start(ctx, "accounts.Service.AddRole")
	defer span.End()

	roles, err := s.storage.CreateRoles(ctx, []*types.Role{
		{TenantID: tenantID, Name: name, AccountID: accountID},
	})
	if err != nil {
		if errors.Is(err, storage.ErrForeignKeyViolation) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return roles[0], nil
}

func (s *Service) FindRoles(ctx context.Context, accountID string) ([]*types.Role, error) {
	ctx, span := s.tracer.Start(ctx, "accounts.Service.FindRoles")
	defer span.End()

	return s.storage.ListRolesByAccountID(ctx, accountID)
}

func (s *Service) UpdateAllRoles(ctx context.Context, accountID, name string) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "accounts.Service.UpdateAllRoles")
	defer span.End()

	return s.storage.UpdateRolesByAccountID(ctx, accountID, name)
}

func (s *Service) DeleteRoles(ctx context.Context, accountID string) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "accounts.Service.DeleteRoles")
	defer span.End()

	return s.storage.DeleteRolesByAccountID(ctx, accountID)
}

// AssignRoleToUser links a user to a role. An unknown user is a silent
// no-op, an existing link is absorbed.
func (s *Service) AssignRoleToUser(ctx context.Context, userID string, roleID int64) error {
	ctx, span := s.tracer.Start(ctx, "accounts.Service.AssignRoleToUser")
	defer span.End()

	if _, err := s.storage.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.logger.Debugf("skipping role assignment, user %s does not exist", userID)
			return nil
		}
		return err
	}

	if _, err := s.storage.GetRoleByID(ctx, roleID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrRoleNotFound
		}
		return err
	}

	return s.storage.AddUserRole(ctx, userID, roleID)
}

// UnassignRoleFromUser removes a single user-role link. Removing a link that
// does not exist is a no-op, mirroring assignment.
func (s *Service) UnassignRoleFromUser(ctx context.Context, userID string, roleID int64) error {
	ctx, span := s.tracer.Start(ctx, "accounts.Service.UnassignRoleFromUser")
	defer span.End()

	return s.storage.DeleteUserRole(ctx, userID, roleID)
}

// ListUserAccounts derives the accounts a user can access from their role
// links.
func (s *Service) ListUserAccounts(ctx context.Context, userID string) ([]*types.Account, error) {
	ctx, span := s.tracer.Start(ctx, "accounts.Service.ListUserAccounts")
	defer span.End()

	roles, err := s.storage.ListRolesByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(roles))
	ids := make([]string, 0, len(roles))
	for _, r := range roles {
		if _, ok := seen[r.AccountID]; ok {
			continue
		}
		seen[r.AccountID] = struct{}{}
		ids = append(ids, r.AccountID)
	}

	return s.storage.ListAccountsByIDs(ctx, ids)
}

func (s *Service) ListUserRoles(ctx context.Context, userID string) ([]*types.Role, error) {
	ctx, span := s.tracer.Start(ctx, "accounts.Service.ListUserRoles")
	defer span.End()

	return s.storage.ListRolesByUserID(ctx, userID)
}

func NewService(
	db TxManagerInterface,
	storage StorageInterface,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) *Service {
	s := new(Service)

	s.db = db
	s.storage = storage
	s.tracer = tracer
	s.monitor = monitor
	s.logger = logger

	return s
}
