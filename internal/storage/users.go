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

const userColumns = "id, tenant_id, email, username, first_name, last_name, access_type, COALESCE(default_account_id, ''), email_verified, created_at"

func (s *Storage) CreateUser(ctx context.Context, u *types.User) (*types.User, error) {
	ctx, span := s.tracer.Start(ctx, "storage.CreateUser")
	defer span.End()

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate user ID: %w", err)
	}

	accessType := u.AccessType
	if accessType == "" {
		accessType = types.AccessTypeOnline
	}

	var newUser types.User
	err = s.db.Statement(ctx).
		Insert("users").
		Columns("id", "tenant_id", "email", "username", "first_name", "last_name", "access_type", "email_verified").
		Values(id.String(), u.TenantID, u.Email, u.Username, u.FirstName, u.LastName, accessType, u.EmailVerified).
		Suffix("RETURNING " + userColumns).
		QueryRowContext(ctx).
		Scan(&newUser.ID, &newUser.TenantID, &newUser.Email, &newUser.Username, &newUser.FirstName, &newUser.LastName, &newUser.AccessType, &newUser.DefaultAccountID, &newUser.EmailVerified, &newUser.CreatedAt)

	if err != nil {
		if IsDuplicateKeyError(err) {
			return nil, ErrDuplicateKey
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	return &newUser, nil
}

func (s *Storage) GetUserByID(ctx context.Context, id string) (*types.User, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetUserByID")
	defer span.End()

	var u types.User
	err := s.db.Statement(ctx).
		Select(userColumns).
		From("users").
		Where(sq.Eq{"id": id}).
		QueryRowContext(ctx).
		Scan(&u.ID, &u.TenantID, &u.Email, &u.Username, &u.FirstName, &u.LastName, &u.AccessType, &u.DefaultAccountID, &u.EmailVerified, &u.CreatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &u, nil
}

func (s *Storage) GetUserByEmail(ctx context.Context, tenantID, email string) (*types.User, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetUserByEmail")
	defer span.End()

	var u types.User
	err := s.db.Statement(ctx).
		Select(userColumns).
		From("users").
		Where(sq.Eq{"tenant_id": tenantID, "email": email}).
		QueryRowContext(ctx).
		Scan(&u.ID, &u.TenantID, &u.Email, &u.Username, &u.FirstName, &u.LastName, &u.AccessType, &u.DefaultAccountID, &u.EmailVerified, &u.CreatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return &u, nil
}

// UpdateUser updates the fields named in paths, following PATCH semantics.
func (s *Storage) UpdateUser(ctx context.Context, u *types.User, paths []string) error {
	ctx, span := s.tracer.Start(ctx, "storage.UpdateUser")
	defer span.End()

	if len(paths) == 0 {
		return nil
	}

	updateMap := make(map[string]interface{})
	for _, p := range paths {
		switch p {
		case "first_name":
			updateMap["first_name"] = u.FirstName
		case "last_name":
			updateMap["last_name"] = u.LastName
		case "access_type":
			updateMap["access_type"] = u.AccessType
		case "default_account_id":
			updateMap["default_account_id"] = u.DefaultAccountID
		case "email_verified":
			updateMap["email_verified"] = u.EmailVerified
		}
	}

	if len(updateMap) == 0 {
		return nil
	}

	res, err := s.db.Statement(ctx).
		Update("users").
		SetMap(updateMap).
		Where(sq.Eq{"id": u.ID}).
		ExecContext(ctx)

	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
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

func (s *Storage) DeleteUser(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "storage.DeleteUser")
	defer span.End()

	// Credentials, identities and role links are removed by FK cascade.
	_, err := s.db.Statement(ctx).
		Delete("users").
		Where(sq.Eq{"id": id}).
		ExecContext(ctx)

	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}
