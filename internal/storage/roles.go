// Copyright 2025 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/canonical/auth-service/internal/types"
)

// CreateRoles inserts a batch of roles in a single statement and returns the
// created rows. Used to seed the default role set of a new account.
func (s *Storage) CreateRoles(ctx context.Context, roles []*types.Role) ([]*types.Role, error) {
	ctx, span := s.tracer.Start(ctx, "storage.CreateRoles")
	defer span.End()

	if len(roles) == 0 {
		return []*types.Role{}, nil
	}

	query := s.db.Statement(ctx).
		Insert("roles").
		Columns("tenant_id", "name", "account_id")

	for _, r := range roles {
		query = query.Values(r.TenantID, r.Name, r.AccountID)
	}

	rows, err := query.
		Suffix("RETURNING id, tenant_id, name, account_id, created_at").
		QueryContext(ctx)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return nil, ErrForeignKeyViolation
		}
		return nil, fmt.Errorf("failed to insert roles: %w", err)
	}
	defer rows.Close()

	var created []*types.Role
	for rows.Next() {
		var r types.Role
		if err := rows.Scan(&r.ID, &r.TenantID, &r.Name, &r.AccountID, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		created = append(created, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return created, nil
}

func (s *Storage) GetRoleByID(ctx context.Context, id int64) (*types.Role, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetRoleByID")
	defer span.End()

	var r types.Role
	err := s.db.Statement(ctx).
		Select("id", "tenant_id", "name", "account_id", "created_at").
		From("roles").
		Where(sq.Eq{"id": id}).
		QueryRowContext(ctx).
		Scan(&r.ID, &r.TenantID, &r.Name, &r.AccountID, &r.CreatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get role: %w", err)
	}

	return &r, nil
}

func (s *Storage) ListRolesByAccountID(ctx context.Context, accountID string) ([]*types.Role, error) {
	ctx, span := s.tracer.Start(ctx, "storage.ListRolesByAccountID")
	defer span.End()

	rows, err := s.db.Statement(ctx).
		Select("id", "tenant_id", "name", "account_id", "created_at").
		From("roles").
		Where(sq.Eq{"account_id": accountID}).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	var roles []*types.Role
	for rows.Next() {
		var r types.Role
		if err := rows.Scan(&r.ID, &r.TenantID, &r.Name, &r.AccountID, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return roles, nil
}

func (s *Storage) UpdateRolesByAccountID(ctx context.Context, accountID, name string) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "storage.UpdateRolesByAccountID")
	defer span.End()

	res, err := s.db.Statement(ctx).
		Update("roles").
		Set("name", name).
		Where(sq.Eq{"account_id": accountID}).
		ExecContext(ctx)

	if err != nil {
		return 0, fmt.Errorf("failed to update roles: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected: %w", err)
	}

	return rows, nil
}

func (s *Storage) DeleteRolesByAccountID(ctx context.Context, accountID string) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "storage.DeleteRolesByAccountID")
	defer span.End()

	res, err := s.db.Statement(ctx).
		Delete("roles").
		Where(sq.Eq{"account_id": accountID}).
		ExecContext(ctx)

	if err != nil {
		return 0, fmt.Errorf("failed to delete roles: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected: %w", err)
	}

	return rows, nil
}

// AddUserRole links a user to a role. The (user_id, role_id) pair is unique;
// inserting an existing link is absorbed so the operation is idempotent.
func (s *Storage) AddUserRole(ctx context.Context, userID string, roleID int64) error {
	ctx, span := s.tracer.Start(ctx, "storage.AddUserRole")
	defer span.End()

	_, err := s.db.Statement(ctx).
		Insert("user_roles").
		Columns("user_id", "role_id").
		Values(userID, roleID).
		Suffix("ON CONFLICT (user_id, role_id) DO NOTHING").
		ExecContext(ctx)

	if err != nil {
		if IsForeignKeyViolation(err) {
			return ErrForeignKeyViolation
		}
		return fmt.Errorf("failed to add user role: %w", err)
	}

	return nil
}

// DeleteUserRole removes a single user-role link. Deleting a link that does
// not exist is a no-op.
func (s *Storage) DeleteUserRole(ctx context.Context, userID string, roleID int64) error {
	ctx, span := s.tracer.Start(ctx, "storage.DeleteUserRole")
	defer span.End()

	_, err := s.db.Statement(ctx).
		Delete("user_roles").
		Where(sq.Eq{"user_id": userID, "role_id": roleID}).
		ExecContext(ctx)

	if err != nil {
		return fmt.Errorf("failed to delete user role: %w", err)
	}
	return nil
}

func (s *Storage) DeleteUserRolesByUserID(ctx context.Context, userID string) error {
	ctx, span := s.tracer.Start(ctx, "storage.DeleteUserRolesByUserID")
	defer span.End()

	_, err := s.db.Statement(ctx).
		Delete("user_roles").
		Where(sq.Eq{"user_id": userID}).
		ExecContext(ctx)

	if err != nil {
		return fmt.Errorf("failed to delete user roles: %w", err)
	}
	return nil
}

// ListRolesByUserID traverses the user_roles join to return the roles a user
// holds across all accounts.
func (s *Storage) ListRolesByUserID(ctx context.Context, userID string) ([]*types.Role, error) {
	ctx, span := s.tracer.Start(ctx, "storage.ListRolesByUserID")
	defer span.End()

	rows, err := s.db.Statement(ctx).
		Select("r.id", "r.tenant_id", "r.name", "r.account_id", "r.created_at").
		From("roles r").
		Join("user_roles ur ON r.id = ur.role_id").
		Where(sq.Eq{"ur.user_id": userID}).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list user roles: %w", err)
	}
	defer rows.Close()

	var roles []*types.Role
	for rows.Next() {
		var r types.Role
		if err := rows.Scan(&r.ID, &r.TenantID, &r.Name, &r.AccountID, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return roles, nil
}
