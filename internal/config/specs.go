// Copyright 2025 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package config

import (
	"time"
)

// EnvSpec is the basic environment configuration setup needed for the app to start
type EnvSpec struct {
	OtelGRPCEndpoint string `envconfig:"otel_grpc_endpoint"`
	OtelHTTPEndpoint string `envconfig:"otel_http_endpoint"`
	TracingEnabled   bool   `envconfig:"tracing_enabled" default:"true"`

	LogLevel string `envconfig:"log_level" default:"error"`
	Debug    bool   `envconfig:"debug" default:"false"`

	Port int `envconfig:"port" default:"8080"`

	DSN string `envconfig:"DSN" required:"true"`

	DBMaxConns        int32         `envconfig:"db_max_conns" default:"25"`
	DBMinConns        int32         `envconfig:"db_min_conns" default:"2"`
	DBMaxConnLifetime time.Duration `envconfig:"db_max_conn_lifetime" default:"1h"`
	DBMaxConnIdleTime time.Duration `envconfig:"db_max_conn_idle_time" default:"30m"`

	TenantID string `envconfig:"tenant_id" required:"true"`

	TokenIssuer     string        `envconfig:"token_issuer" default:"auth-service"`
	TokenAudience   string        `envconfig:"token_audience" default:"auth-service"`
	TokenAlgorithm  string        `envconfig:"token_algorithm" default:"RS256"`
	AccessTokenTTL  time.Duration `envconfig:"access_token_ttl" default:"15m"`
	RefreshTokenTTL time.Duration `envconfig:"refresh_token_ttl" default:"336h"`

	// TokenSecret is the HMAC fallback used when no keypair is configured.
	TokenSecret     string `envconfig:"token_secret"`
	TokenPrivateKey string `envconfig:"token_private_key"`

	BcryptCost int `envconfig:"bcrypt_cost" default:"10"`

	// OIDCIssuer enables federated profile verification when set.
	OIDCIssuer   string `envconfig:"oidc_issuer"`
	OIDCClientID string `envconfig:"oidc_client_id"`
}
