// Copyright 2025 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/canonical/auth-service/internal/types"
)

func (s *Storage) CreateIdentity(ctx context.Context, i *types.UserIdentity) (*types.UserIdentity, error) {
	ctx, span := s.tracer.Start(ctx, "storage.CreateIdentity")
	defer span.End()

	var created types.UserIdentity
	err := s.db.Statement(ctx).
		Insert("user_identities").
		Columns("id", "provider", "auth_scheme", "user_id", "profile").
		Values(i.ID, i.Provider, i.AuthScheme, i.UserID, i.Profile).
		Suffix("RETURNING id, provider, auth_scheme, user_id, profile, created").
		QueryRowContext(ctx).
		Scan(&created.ID, &created.Provider, &created.AuthScheme, &created.UserID, &created.Profile, &created.Created)

	if err != nil {
		if IsDuplicateKeyError(err) {
			return nil, ErrDuplicateKey
		}
		return nil, fmt.Errorf("failed to insert identity: %w", err)
	}

	return &created, nil
}

func (s *Storage) GetIdentity(ctx context.Context, id string) (*types.UserIdentity, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetIdentity")
	defer span.End()

	var i types.UserIdentity
	err := s.db.Statement(ctx).
		Select("id", "provider", "auth_scheme", "user_id", "profile", "created").
		From("user_identities").
		Where(sq.Eq{"id": id}).
		QueryRowContext(ctx).
		Scan(&i.ID, &i.Provider, &i.AuthScheme, &i.UserID, &i.Profile, &i.Created)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get identity: %w", err)
	}

	return &i, nil
}

// UpdateIdentityProfile refreshes the stored profile snapshot and bumps the
// link timestamp. The owning user is immutable after the first link.
func (s *Storage) UpdateIdentityProfile(ctx context.Context, id string, profile json.RawMessage) error {
	ctx, span := s.tracer.Start(ctx, "storage.UpdateIdentityProfile")
	defer span.End()

	res, err := s.db.Statement(ctx).
		Update("user_identities").
		Set("profile", profile).
		Set("created", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		ExecContext(ctx)

	if err != nil {
		return fmt.Errorf("failed to update identity profile: %w", err)
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

func (s *Storage) ListIdentitiesByUserID(ctx context.Context, userID string) ([]*types.UserIdentity, error) {
	ctx, span := s.tracer.Start(ctx, "storage.ListIdentitiesByUserID")
	defer span.End()

	rows, err := s.db.Statement(ctx).
		Select("id", "provider", "auth_scheme", "user_id", "profile", "created").
		From("user_identities").
		Where(sq.Eq{"user_id": userID}).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list identities: %w", err)
	}
	defer rows.Close()

	var identities []*types.UserIdentity
	for rows.Next() {
		var i types.UserIdentity
		if err := rows.Scan(&i.ID, &i.Provider, &i.AuthScheme, &i.UserID, &i.Profile, &i.Created); err != nil {
			return nil, fmt.Errorf("failed to scan identity: %w", err)
		}
		identities = append(identities, &i)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return identities, nil
}
