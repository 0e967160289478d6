// Copyright 2025 Canonical Ltd
// SPDX-License-Identifier: AGPL-3.0

package web

import (
	"net/http"

	chi "github.com/go-chi/chi/v5"
	middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/canonical/auth-service/internal/db"
	"github.com/canonical/auth-service/internal/logging"
	"github.com/canonical/auth-service/internal/monitoring"
	"github.com/canonical/auth-service/internal/tracing"
	"github.com/canonical/auth-service/pkg/accounts"
	"github.com/canonical/auth-service/pkg/authentication"
	"github.com/canonical/auth-service/pkg/authn"
	"github.com/canonical/auth-service/pkg/metrics"
	"github.com/canonical/auth-service/pkg/status"
)

func NewRouter(
	authnAPI *authn.API,
	accountsAPI *accounts.API,
	authMiddleware *authentication.Middleware,
	dbClient db.DBClientInterface,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) http.Handler {
	router := chi.NewMux()

	middlewares := make(chi.Middlewares, 0)
	middlewares = append(
		middlewares,
		middleware.RequestID,
		monitoring.NewMiddleware(monitor, logger).ResponseTime(),
		middlewareCORS([]string{"*"}),
	)

	router.Use(middlewares...)

	metrics.NewAPI(logger).RegisterEndpoints(router)
	status.NewAPI(tracer, monitor, logger).RegisterEndpoints(router)

	// Unauthenticated flows. Multi-step writes share one transaction per
	// request.
	router.Group(func(r chi.Router) {
		r.Use(db.TransactionMiddleware(dbClient, logger))
		authnAPI.RegisterEndpoints(r)
	})

	// Flows that only need a verified bearer token.
	router.Group(func(r chi.Router) {
		r.Use(authMiddleware.Authenticate())
		authnAPI.RegisterProtectedEndpoints(r)
	})

	// Tenant-scoped surface: bearer token plus path tenant check.
	router.Group(func(r chi.Router) {
		r.Use(authMiddleware.Authenticate())
		r.Use(authMiddleware.TenantGuard())
		accountsAPI.RegisterEndpoints(r)
	})

	return tracing.NewMiddleware(monitor, logger).OpenTelemetry(router)
}

func middlewareCORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(
		cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			MaxAge:         300,
		},
	)
}
