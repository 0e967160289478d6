// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

// Package token issues and verifies the JWT pairs used by the authentication
// flows. Tokens are pinned to a single signing algorithm and carry the
// tenant they were minted for.
package token

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/canonical/auth-service/internal/logging"
	"github.com/canonical/auth-service/internal/monitoring"
	"github.com/canonical/auth-service/internal/tracing"
	"github.com/canonical/auth-service/internal/types"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var (
	ErrInvalidToken   = errors.New("token is invalid or expired")
	ErrTenantMismatch = errors.New("token was issued for a different tenant")
	ErrNoPublicKey    = errors.New("no public key configured")
)

// Claims is the wire format of issued tokens. The embedded Principal fields
// are the contract consumers of this service rely on.
type Claims struct {
	types.Principal
	Type string `json:"type"`
	jwt.RegisteredClaims
}

type Config struct {
	Issuer     string
	Audience   string
	Algorithm  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	TenantID   string

	// Secret is the HMAC fallback used when no RSA keypair is provided.
	Secret        string
	PrivateKeyPEM string
}

type Service struct {
	issuer     string
	audience   string
	method     jwt.SigningMethod
	accessTTL  time.Duration
	refreshTTL time.Duration
	tenantID   string

	signKey      interface{}
	verifyKey    interface{}
	publicKeyPEM string

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

var _ ServiceInterface = (*Service)(nil)

func (s *Service) IssuePair(ctx context.Context, principal *types.Principal) (*types.TokenPair, error) {
	ctx, span := s.tracer.Start(ctx, "token.Service.IssuePair")
	defer span.End()

	access, err := s.IssueAccessToken(ctx, principal)
	if err != nil {
		return nil, err
	}

	refresh, err := s.IssueRefreshToken(ctx, principal)
	if err != nil {
		return nil, err
	}

	return &types.TokenPair{
		User:         principal,
		Token:        access,
		RefreshToken: refresh,
	}, nil
}

func (s *Service) IssueAccessToken(ctx context.Context, principal *types.Principal) (string, error) {
	_, span := s.tracer.Start(ctx, "token.Service.IssueAccessToken")
	defer span.End()

	return s.issue(principal, tokenTypeAccess, s.accessTTL)
}

func (s *Service) IssueRefreshToken(ctx context.Context, principal *types.Principal) (string, error) {
	_, span := s.tracer.Start(ctx, "token.Service.IssueRefreshToken")
	defer span.End()

	return s.issue(principal, tokenTypeRefresh, s.refreshTTL)
}

func (s *Service) issue(principal *types.Principal, tokenType string, ttl time.Duration) (string, error) {
	if principal == nil || principal.ID == "" {
		return "", fmt.Errorf("cannot issue token without a principal")
	}

	now := time.Now()
	claims := Claims{
		Principal: *principal,
		Type:      tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			Subject:   principal.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.signKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// VerifyAccessToken parses and validates raw and returns the principal it
// carries. A structurally valid token minted for another tenant fails with
// ErrTenantMismatch.
func (s *Service) VerifyAccessToken(ctx context.Context, raw string) (*types.Principal, error) {
	_, span := s.tracer.Start(ctx, "token.Service.VerifyAccessToken")
	defer span.End()

	return s.verify(raw, tokenTypeAccess)
}

func (s *Service) VerifyRefreshToken(ctx context.Context, raw string) (*types.Principal, error) {
	_, span := s.tracer.Start(ctx, "token.Service.VerifyRefreshToken")
	defer span.End()

	return s.verify(raw, tokenTypeRefresh)
}

func (s *Service) verify(raw, tokenType string) (*types.Principal, error) {
	claims := new(Claims)
	_, err := jwt.ParseWithClaims(
		raw,
		claims,
		func(t *jwt.Token) (interface{}, error) { return s.verifyKey, nil },
		// Pinning the method rejects algorithm substitution, including "none".
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		s.logger.Debugf("token verification failed: %v", err)
		return nil, ErrInvalidToken
	}

	if claims.Type != tokenType {
		return nil, ErrInvalidToken
	}

	if claims.TenantID == "" || claims.TenantID != s.tenantID {
		return nil, ErrTenantMismatch
	}

	principal := claims.Principal
	return &principal, nil
}

// PublicKeyPEM returns the PEM encoded verification key, for clients that
// validate tokens locally. HMAC secrets are never disclosed.
func (s *Service) PublicKeyPEM() (string, error) {
	if s.publicKeyPEM == "" {
		return "", ErrNoPublicKey
	}
	return s.publicKeyPEM, nil
}

func NewService(
	c Config,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) (*Service, error) {
	s := new(Service)

	s.issuer = c.Issuer
	s.audience = c.Audience
	s.accessTTL = c.AccessTTL
	s.refreshTTL = c.RefreshTTL
	s.tenantID = c.TenantID

	s.tracer = tracer
	s.monitor = monitor
	s.logger = logger

	if c.TenantID == "" {
		return nil, fmt.Errorf("token service requires a tenant ID")
	}

	method := jwt.GetSigningMethod(c.Algorithm)
	if method == nil {
		return nil, fmt.Errorf("unknown signing algorithm %q", c.Algorithm)
	}
	s.method = method

	switch method.(type) {
	case *jwt.SigningMethodRSA:
		if c.PrivateKeyPEM == "" {
			return nil, fmt.Errorf("algorithm %q requires a private key", c.Algorithm)
		}

		privateKey, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(c.PrivateKeyPEM))
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		s.signKey = privateKey
		s.verifyKey = &privateKey.PublicKey

		publicKeyPEM, err := encodePublicKey(&privateKey.PublicKey)
		if err != nil {
			return nil, err
		}
		s.publicKeyPEM = publicKeyPEM
	case *jwt.SigningMethodHMAC:
		if c.Secret == "" {
			return nil, fmt.Errorf("algorithm %q requires a secret", c.Algorithm)
		}
		s.signKey = []byte(c.Secret)
		s.verifyKey = []byte(c.Secret)
	default:
		return nil, fmt.Errorf("unsupported signing algorithm %q", c.Algorithm)
	}

	return s, nil
}

func encodePublicKey(key *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return "", fmt.Errorf("failed to marshal public key: %w", err)
	}

	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), nil
}
