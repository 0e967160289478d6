// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package accounts

import (
	"context"

	"github.com/canonical/auth-service/internal/types"
)

type ServiceInterface interface {
	CreateAccount(ctx context.Context, tenantID string, account *types.Account, requester *types.Principal) (*types.Account, error)
	GetAccount(ctx context.Context, accountID string) (*types.Account, error)
	ListAccounts(ctx context.Context, tenantID string) ([]*types.Account, error)
	UpdateAccount(ctx context.Context, account *types.Account, paths []string) error
	DeleteAccount(ctx context.Context, accountID string, requester *types.Principal) error

	AddRole(ctx context.Context, tenantID, accountID, name string) (*types.Role, error)
	FindRoles(ctx context.Context, accountID string) ([]*types.Role, error)
	UpdateAllRoles(ctx context.Context, accountID, name string) (int64, error)
	DeleteRoles(ctx context.Context, accountID string) (int64, error)
	AssignRoleToUser(ctx context.Context, userID string, roleID int64) error
	UnassignRoleFromUser(ctx context.Context, userID string, roleID int64) error

	ListUserAccounts(ctx context.Context, userID string) ([]*types.Account, error)
	ListUserRoles(ctx context.Context, userID string) ([]*types.Role, error)
}

type StorageInterface interface {
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

	GetUserByID(ctx context.Context, id string) (*types.User, error)
	UpdateUser(ctx context.Context, u *types.User, paths []string) error
}

// TxManagerInterface scopes multi-step writes to a single transaction.
type TxManagerInterface interface {
	WithTx(context.Context, func(context.Context) error) error
}
