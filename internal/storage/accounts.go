// Copyright 2025 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/canonical/auth-service/internal/types"
)

func (s *Storage) CreateAccount(ctx context.Context, a *types.Account) (*types.Account, error) {
	ctx, span := s.tracer.Start(ctx, "storage.CreateAccount")
	defer span.End()

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate account ID: %w", err)
	}

	accountType := a.Type
	if accountType == "" {
		accountType = types.AccountTypeDefault
	}

	var newAccount types.Account
	err = s.db.Statement(ctx).
		Insert("accounts").
		Columns("id", "tenant_id", "name", "type").
		Values(id.String(), a.TenantID, a.Name, accountType).
		Suffix("RETURNING id, tenant_id, name, type, created_at").
		QueryRowContext(ctx).
		Scan(&newAccount.ID, &newAccount.TenantID, &newAccount.Name, &newAccount.Type, &newAccount.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to insert account: %w", err)
	}

	return &newAccount, nil
}

func (s *Storage) GetAccountByID(ctx context.Context, id string) (*types.Account, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetAccountByID")
	defer span.End()

	var a types.Account
	err := s.db.Statement(ctx).
		Select("id", "tenant_id", "name", "type", "created_at").
		From("accounts").
		Where(sq.Eq{"id": id}).
		QueryRowContext(ctx).
		Scan(&a.ID, &a.TenantID, &a.Name, &a.Type, &a.CreatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &a, nil
}

func (s *Storage) ListAccountsByTenantID(ctx context.Context, tenantID string) ([]*types.Account, error) {
	ctx, span := s.tracer.Start(ctx, "storage.ListAccountsByTenantID")
	defer span.End()

	return s.listAccounts(ctx, sq.Eq{"tenant_id": tenantID})
}

func (s *Storage) ListAccountsByIDs(ctx context.Context, ids []string) ([]*types.Account, error) {
	ctx, span := s.tracer.Start(ctx, "storage.ListAccountsByIDs")
	defer span.End()

	if len(ids) == 0 {
		return []*types.Account{}, nil
	}

	return s.listAccounts(ctx, sq.Eq{"id": ids})
}

func (s *Storage) listAccounts(ctx context.Context, where sq.Eq) ([]*types.Account, error) {
	rows, err := s.db.Statement(ctx).
		Select("id", "tenant_id", "name", "type", "created_at").
		From("accounts").
		Where(where).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*types.Account
	for rows.Next() {
		var a types.Account
		if err := rows.Scan(&a.ID, &a.TenantID, &a.Name, &a.Type, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return accounts, nil
}

// UpdateAccount updates the fields named in paths, following PATCH semantics.
func (s *Storage) UpdateAccount(ctx context.Context, a *types.Account, paths []string) error {
	ctx, span := s.tracer.Start(ctx, "storage.UpdateAccount")
	defer span.End()

	if len(paths) == 0 {
		return nil
	}

	updateMap := make(map[string]interface{})
	for _, p := range paths {
		switch p {
		case "name":
			updateMap["name"] = a.Name
		case "type":
			updateMap["type"] = a.Type
		}
	}

	if len(updateMap) == 0 {
		return nil
	}

	res, err := s.db.Statement(ctx).
		Update("accounts").
		SetMap(updateMap).
		Where(sq.Eq{"id": a.ID}).
		ExecContext(ctx)

	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *Storage) DeleteAccount(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "storage.DeleteAccount")
	defer span.End()

	_, err := s.db.Statement(ctx).
		Delete("accounts").
		Where(sq.Eq{"id": id}).
		ExecContext(ctx)

	if err != nil {
		if IsForeignKeyViolation(err) {
			return ErrForeignKeyViolation
		}
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return nil
}
