// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"

	"github.com/canonical/auth-service/internal/config"
	"github.com/canonical/auth-service/internal/db"
	"github.com/canonical/auth-service/internal/logging"
	"github.com/canonical/auth-service/internal/monitoring/prometheus"
	"github.com/canonical/auth-service/internal/storage"
	"github.com/canonical/auth-service/internal/tracing"
	"github.com/canonical/auth-service/pkg/accounts"
	"github.com/canonical/auth-service/pkg/authentication"
	"github.com/canonical/auth-service/pkg/authn"
	"github.com/canonical/auth-service/pkg/hash"
	"github.com/canonical/auth-service/pkg/identity"
	"github.com/canonical/auth-service/pkg/token"
	"github.com/canonical/auth-service/pkg/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "serve starts the web server",
	Long:  `Launch the web application, list of environment variables is available in the readme`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := serve(); err != nil {
			fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve() error {
	// A local .env is optional, the environment always wins.
	_ = godotenv.Load()

	specs := new(config.EnvSpec)
	if err := envconfig.Process("", specs); err != nil {
		panic(fmt.Errorf("issues with environment sourcing: %s", err))
	}

	logger := logging.NewLogger(specs.LogLevel)
	logger.Debugf("env vars: %v", specs)
	defer logger.Sync()

	monitor := prometheus.NewMonitor("auth-service", logger)
	tracer := tracing.NewTracer(tracing.NewConfig(specs.TracingEnabled, specs.OtelGRPCEndpoint, specs.OtelHTTPEndpoint, logger))

	dbConfig := db.Config{
		DSN:             specs.DSN,
		MaxConns:        specs.DBMaxConns,
		MinConns:        specs.DBMinConns,
		MaxConnLifetime: specs.DBMaxConnLifetime,
		MaxConnIdleTime: specs.DBMaxConnIdleTime,
		TracingEnabled:  specs.TracingEnabled,
	}
	dbClient, err := db.NewDBClient(dbConfig, tracer, monitor, logger)
	if err != nil {
		return fmt.Errorf("failed to create database client: %v", err)
	}
	defer dbClient.Close()
	s := storage.NewStorage(dbClient, tracer, monitor, logger)

	tokenService, err := token.NewService(
		token.Config{
			Issuer:        specs.TokenIssuer,
			Audience:      specs.TokenAudience,
			Algorithm:     specs.TokenAlgorithm,
			AccessTTL:     specs.AccessTokenTTL,
			RefreshTTL:    specs.RefreshTokenTTL,
			TenantID:      specs.TenantID,
			Secret:        specs.TokenSecret,
			PrivateKeyPEM: specs.TokenPrivateKey,
		},
		tracer,
		monitor,
		logger,
	)
	if err != nil {
		return fmt.Errorf("failed to create token service: %v", err)
	}

	hasher := hash.NewHasher(specs.BcryptCost)
	identityService := identity.NewService(specs.TenantID, s, tracer, monitor, logger)

	var verifier identity.VerifierInterface
	if specs.OIDCIssuer != "" {
		verifier, err = identity.NewOIDCVerifier(context.Background(), specs.OIDCIssuer, specs.OIDCClientID, tracer, monitor, logger)
		if err != nil {
			return fmt.Errorf("failed to create OIDC verifier: %v", err)
		}
		logger.Infof("Federated login is enabled for issuer %s", specs.OIDCIssuer)
	} else {
		logger.Info("Federated login is disabled")
	}

	authnService := authn.NewService(s, hasher, tokenService, identityService, verifier, tracer, monitor, logger)
	accountsService := accounts.NewService(dbClient, s, tracer, monitor, logger)

	authMiddleware := authentication.NewMiddleware(tokenService, tracer, monitor, logger)
	authnAPI := authn.NewAPI(specs.TenantID, authnService, logger)
	accountsAPI := accounts.NewAPI(accountsService, logger)

	router := web.NewRouter(
		authnAPI,
		accountsAPI,
		authMiddleware,
		dbClient,
		tracer,
		monitor,
		logger,
	)
	logger.Infof("Starting HTTP server on port %v", specs.Port)

	srv := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%v", specs.Port),
		WriteTimeout: time.Second * 60,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
		Handler:      router,
	}

	var serverError error
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Security().SystemStartup()
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverError = fmt.Errorf("server error: %w", err)
			c <- os.Interrupt
		}
	}()

	<-c

	// Create a deadline to wait for.
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	logger.Security().SystemShutdown()
	if err := srv.Shutdown(ctx); err != nil {
		serverError = fmt.Errorf("server shutdown error: %w", err)
	}

	return serverError
}
