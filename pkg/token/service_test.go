// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package token

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/canonical/auth-service/internal/logging"
	"github.com/canonical/auth-service/internal/monitoring"
	"github.com/canonical/auth-service/internal/tracing"
	"github.com/canonical/auth-service/internal/types"
)

func testPrivateKeyPEM(t *testing.T) string {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate test key: %v", err)
	}

	return string(pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}))
}

func testConfig(t *testing.T) Config {
	t.Helper()

	return Config{
		Issuer:        "auth-service",
		Audience:      "auth-service",
		Algorithm:     "RS256",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
		TenantID:      "acme",
		PrivateKeyPEM: testPrivateKeyPEM(t),
	}
}

func newTestService(t *testing.T, c Config) *Service {
	t.Helper()

	s, err := NewService(c, tracing.NewNoopTracer(), monitoring.NewNoopMonitor(), logging.NewNoopLogger())
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return s
}

func testPrincipal() *types.Principal {
	return &types.Principal{
		ID:               "user-1",
		Name:             "Jane Doe",
		Email:            "jane@example.com",
		TenantID:         "acme",
		Roles:            []string{"admin"},
		DefaultAccountID: "account-1",
	}
}

func TestService_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, testConfig(t))

	pair, err := s.IssuePair(ctx, testPrincipal())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pair.Token == "" || pair.RefreshToken == "" {
		t.Fatal("expected both tokens to be issued")
	}

	principal, err := s.VerifyAccessToken(ctx, pair.Token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := testPrincipal()
	if principal.ID != want.ID || principal.Email != want.Email || principal.TenantID != want.TenantID {
		t.Errorf("claims do not round-trip: got %+v", principal)
	}
	if len(principal.Roles) != 1 || principal.Roles[0] != "admin" {
		t.Errorf("expected roles to round-trip, got %v", principal.Roles)
	}
	if principal.DefaultAccountID != "account-1" {
		t.Errorf("expected default account to round-trip, got %q", principal.DefaultAccountID)
	}
}

func TestService_WrongKeyFails(t *testing.T) {
	ctx := context.Background()
	issuerService := newTestService(t, testConfig(t))
	otherService := newTestService(t, testConfig(t))

	raw, err := issuerService.IssueAccessToken(ctx, testPrincipal())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := otherService.VerifyAccessToken(ctx, raw); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for foreign key, got %v", err)
	}
}

func TestService_AlgorithmPinning(t *testing.T) {
	ctx := context.Background()

	hmacConfig := testConfig(t)
	hmacConfig.Algorithm = "HS256"
	hmacConfig.PrivateKeyPEM = ""
	hmacConfig.Secret = "a-very-long-shared-secret-value"
	hmacService := newTestService(t, hmacConfig)

	rsaService := newTestService(t, testConfig(t))

	raw, err := hmacService.IssueAccessToken(ctx, testPrincipal())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// An HS256 token must never pass a verifier pinned to RS256, no matter
	// what its header claims.
	if _, err := rsaService.VerifyAccessToken(ctx, raw); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for algorithm mismatch, got %v", err)
	}
}

func TestService_ExpiredToken(t *testing.T) {
	ctx := context.Background()

	c := testConfig(t)
	c.AccessTTL = -1 * time.Minute
	s := newTestService(t, c)

	raw, err := s.IssueAccessToken(ctx, testPrincipal())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := s.VerifyAccessToken(ctx, raw); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestService_TenantMismatch(t *testing.T) {
	ctx := context.Background()

	c := testConfig(t)
	s := newTestService(t, c)

	principal := testPrincipal()
	principal.TenantID = "globex"

	raw, err := s.IssueAccessToken(ctx, principal)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := s.VerifyAccessToken(ctx, raw); !errors.Is(err, ErrTenantMismatch) {
		t.Errorf("expected ErrTenantMismatch, got %v", err)
	}
}

func TestService_RefreshTokenIsNotAnAccessToken(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, testConfig(t))

	refresh, err := s.IssueRefreshToken(ctx, testPrincipal())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := s.VerifyAccessToken(ctx, refresh); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected refresh token to fail access verification, got %v", err)
	}

	if _, err := s.VerifyRefreshToken(ctx, refresh); err != nil {
		t.Errorf("expected refresh token to pass refresh verification, got %v", err)
	}
}

func TestService_PublicKeyPEM(t *testing.T) {
	s := newTestService(t, testConfig(t))

	pemString, err := s.PublicKeyPEM()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(pemString, "BEGIN PUBLIC KEY") {
		t.Errorf("expected PEM encoded public key, got %q", pemString)
	}

	hmacConfig := testConfig(t)
	hmacConfig.Algorithm = "HS256"
	hmacConfig.PrivateKeyPEM = ""
	hmacConfig.Secret = "a-very-long-shared-secret-value"
	hmacService := newTestService(t, hmacConfig)

	if _, err := hmacService.PublicKeyPEM(); !errors.Is(err, ErrNoPublicKey) {
		t.Errorf("expected ErrNoPublicKey for HMAC service, got %v", err)
	}
}

func TestNewService_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing tenant", func(c *Config) { c.TenantID = "" }},
		{"unknown algorithm", func(c *Config) { c.Algorithm = "XX999" }},
		{"RSA without key", func(c *Config) { c.PrivateKeyPEM = "" }},
		{"HMAC without secret", func(c *Config) { c.Algorithm = "HS256"; c.PrivateKeyPEM = ""; c.Secret = "" }},
		{"garbage private key", func(c *Config) { c.PrivateKeyPEM = "not a pem" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testConfig(t)
			tt.mutate(&c)

			if _, err := NewService(c, tracing.NewNoopTracer(), monitoring.NewNoopMonitor(), logging.NewNoopLogger()); err == nil {
				t.Error("expected constructor to fail")
			}
		})
	}
}
