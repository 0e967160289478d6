// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package logging

import (
	"go.uber.org/zap"
)

// SecurityLogger emits structured audit events for authentication and
// authorization outcomes, kept separate from application logging so the
// events survive log level filtering.
type SecurityLogger struct {
	l *zap.Logger
}

func (s *SecurityLogger) AuthnSuccess(subject, method string) {
	s.l.Info("authn_success",
		zap.String("event", "authn_success"),
		zap.String("subject", subject),
		zap.String("method", method),
	)
}

func (s *SecurityLogger) AuthnFailure(subject, method string) {
	s.l.Warn("authn_failure",
		zap.String("event", "authn_failure"),
		zap.String("subject", subject),
		zap.String("method", method),
	)
}

func (s *SecurityLogger) AuthzFailure(subject, action string) {
	s.l.Warn("authz_failure",
		zap.String("event", "authz_failure"),
		zap.String("subject", subject),
		zap.String("action", action),
	)
}

func (s *SecurityLogger) SystemStartup() {
	s.l.Info("system_startup", zap.String("event", "system_startup"))
}

func (s *SecurityLogger) SystemShutdown() {
	s.l.Info("system_shutdown", zap.String("event", "system_shutdown"))
}
