// Copyright 2025 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

// Package authentication guards HTTP endpoints with bearer token checks and
// tenant scoping.
package authentication

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	httpTypes "github.com/canonical/auth-service/internal/http/types"
	"github.com/canonical/auth-service/internal/logging"
	"github.com/canonical/auth-service/internal/monitoring"
	"github.com/canonical/auth-service/internal/tracing"
	"github.com/canonical/auth-service/pkg/token"
)

type Middleware struct {
	verifier TokenVerifierInterface

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

// Authenticate rejects requests without a valid bearer token and injects the
// verified principal into the request context. Tokens minted for another
// tenant are a bad request, not an authentication failure, so callers can
// tell the two apart.
func (m *Middleware) Authenticate() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := m.tracer.Start(r.Context(), "authentication.Middleware.Authenticate")
			defer span.End()

			rawToken, found := m.getBearerToken(r.Header)
			if !found {
				httpTypes.WriteErrorResponse(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			principal, err := m.verifier.VerifyAccessToken(ctx, rawToken)
			if err != nil {
				if errors.Is(err, token.ErrTenantMismatch) {
					httpTypes.WriteErrorResponse(w, http.StatusBadRequest, "Invalid Tenant")
					return
				}
				m.logger.Debugf("token verification failed: %v", err)
				httpTypes.WriteErrorResponse(w, http.StatusUnauthorized, "invalid token")
				return
			}

			ctx = WithPrincipal(ctx, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TenantGuard compares the path-supplied tenant ID against the verified
// token's tenant claim. It must run after Authenticate. This check is the
// sole authorization boundary for tenant-scoped endpoints.
func (m *Middleware) TenantGuard() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := m.tracer.Start(r.Context(), "authentication.Middleware.TenantGuard")
			defer span.End()

			principal, ok := PrincipalFromContext(ctx)
			if !ok {
				httpTypes.WriteErrorResponse(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			pathTenant := chi.URLParamFromCtx(ctx, "tenantId")
			if pathTenant == "" || pathTenant != principal.TenantID {
				m.logger.Security().AuthzFailure(principal.ID, "tenant_access")
				httpTypes.WriteErrorResponse(w, http.StatusBadRequest, "Invalid Tenant")
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (m *Middleware) getBearerToken(headers http.Header) (string, bool) {
	bearer := headers.Get("Authorization")
	if bearer == "" {
		return "", false
	}

	// Only support "Bearer <token>" format (RFC 6750)
	if !strings.HasPrefix(bearer, "Bearer ") {
		return "", false
	}

	return strings.TrimPrefix(bearer, "Bearer "), true
}

func NewMiddleware(verifier TokenVerifierInterface, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *Middleware {
	return &Middleware{
		verifier: verifier,
		tracer:   tracer,
		monitor:  monitor,
		logger:   logger,
	}
}
