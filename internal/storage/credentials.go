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

func (s *Storage) CreateCredentials(ctx context.Context, c *types.UserCredentials) (*types.UserCredentials, error) {
	ctx, span := s.tracer.Start(ctx, "storage.CreateCredentials")
	defer span.End()

	var created types.UserCredentials
	err := s.db.Statement(ctx).
		Insert("user_credentials").
		Columns("id", "password", "user_id").
		Values(c.ID, c.Password, c.UserID).
		Suffix("RETURNING id, password, user_id").
		QueryRowContext(ctx).
		Scan(&created.ID, &created.Password, &created.UserID)

	if err != nil {
		if IsDuplicateKeyError(err) {
			return nil, ErrDuplicateKey
		}
		return nil, fmt.Errorf("failed to insert credentials: %w", err)
	}

	return &created, nil
}

// GetCredentials looks up credentials by their natural key, the user's email.
func (s *Storage) GetCredentials(ctx context.Context, id string) (*types.UserCredentials, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetCredentials")
	defer span.End()

	var c types.UserCredentials
	err := s.db.Statement(ctx).
		Select("id", "password", "user_id").
		From("user_credentials").
		Where(sq.Eq{"id": id}).
		QueryRowContext(ctx).
		Scan(&c.ID, &c.Password, &c.UserID)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get credentials: %w", err)
	}

	return &c, nil
}

func (s *Storage) DeleteCredentials(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "storage.DeleteCredentials")
	defer span.End()

	_, err := s.db.Statement(ctx).
		Delete("user_credentials").
		Where(sq.Eq{"id": id}).
		ExecContext(ctx)

	if err != nil {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	return nil
}
