// Copyright 2025 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

// Package status exposes liveness endpoints.
package status

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	httpTypes "github.com/canonical/auth-service/internal/http/types"
	"github.com/canonical/auth-service/internal/logging"
	"github.com/canonical/auth-service/internal/monitoring"
	"github.com/canonical/auth-service/internal/tracing"
)

type Status struct {
	Status string `json:"status"`
	Uptime string `json:"uptime,omitempty"`
	Time   string `json:"time"`
}

type API struct {
	startTime time.Time

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func NewAPI(tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *API {
	a := new(API)

	a.startTime = time.Now()
	a.tracer = tracer
	a.monitor = monitor
	a.logger = logger

	return a
}

func (a *API) RegisterEndpoints(mux *chi.Mux) {
	mux.Get("/api/v0/status", a.alive)
	mux.Get("/api/v0/ready", a.ready)
}

func (a *API) alive(w http.ResponseWriter, r *http.Request) {
	_, span := a.tracer.Start(r.Context(), "status.API.alive")
	defer span.End()

	httpTypes.WriteResponse(w, http.StatusOK, Status{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) ready(w http.ResponseWriter, r *http.Request) {
	_, span := a.tracer.Start(r.Context(), "status.API.ready")
	defer span.End()

	httpTypes.WriteResponse(w, http.StatusOK, Status{
		Status: "ok",
		Uptime: time.Since(a.startTime).Truncate(time.Second).String(),
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}
