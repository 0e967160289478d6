// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

// Package hash provides one-way password hashing with per-password salts.
package hash

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

type HasherInterface interface {
	Hash(password string) (string, error)
	Verify(password, hashed string) bool
}

type Hasher struct {
	cost int
}

var _ HasherInterface = (*Hasher)(nil)

// Hash derives a salted hash from the plaintext password. Each call produces
// a different hash for the same input.
func (h *Hasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether password matches hashed. It returns false for any
// malformed hash instead of surfacing an error, so callers can treat all
// failures as a credential mismatch.
func (h *Hasher) Verify(password, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password)) == nil
}

func NewHasher(cost int) *Hasher {
	h := new(Hasher)

	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	h.cost = cost

	return h
}
