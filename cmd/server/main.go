// Copyright 2026 The Terrier Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/terrier-hq/terrier/internal/audit"
	"github.com/terrier-hq/terrier/internal/authz"
	"github.com/terrier-hq/terrier/internal/config"
	"github.com/terrier-hq/terrier/internal/identity"
	"github.com/terrier-hq/terrier/internal/observability/logger"
	"github.com/terrier-hq/terrier/internal/observability/metrics"
	"github.com/terrier-hq/terrier/internal/observability/tracing"
	"github.com/terrier-hq/terrier/internal/oidc"
	"github.com/terrier-hq/terrier/internal/session"
	"github.com/terrier-hq/terrier/internal/store"
	"github.com/terrier-hq/terrier/internal/tenant"
	transportHTTP "github.com/terrier-hq/terrier/internal/transport/http"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.InitLogger(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := runMigrate(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if err := run(cfg); err != nil {
		slog.Error("server failed", logger.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	slog.Info("starting terrier", logger.String("version", cfg.Observability.ServiceVersion))
	ctx := context.Background()

	// Initialize tracer
	tracer, err := tracing.New(ctx, tracing.Config{
		Enabled:        cfg.Observability.OTELEnabled,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		Environment:    cfg.Observability.Environment,
		SampleRatio:    cfg.Observability.TraceSampleRatio,
	})
	if err != nil {
		slog.Error("failed to initialize tracer", logger.Error(err))
	} else {
		defer tracer.Shutdown(ctx)
	}

	// Initialize meter
	meter, err := metrics.New(ctx, metrics.Config{
		Enabled: cfg.Observability.OTELEnabled,
	}, cfg.Observability.ServiceName)
	if err != nil {
		slog.Error("failed to initialize meter", logger.Error(err))
		meter = metrics.NewNoop()
	}
	instruments, err := meter.Instruments()
	if err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	// Initialize database
	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	slog.Info("connected to database", logger.String("backend", db.Backend))

	auditLogger := audit.NewSlogLogger()

	// Initialize services
	syncService := identity.NewSyncService(db.Users, auditLogger).
		WithProvisionCounter(instruments.UsersProvisioned)
	resolver := authz.NewResolver(authz.NewAdminSet(cfg.App.AdminEmails), authz.Directories{
		Users:      db.Users,
		Hackathons: db.Hackathons,
		Roles:      db.Roles,
	}).WithMetrics(instruments.AuthzDecisions, instruments.ResolveDuration)
	tenantService := tenant.NewService(db.Hackathons, db.Roles, db.Users, auditLogger)

	oidcClient, err := oidc.NewClient(oidc.Config{
		Issuer:       cfg.OIDC.Issuer,
		ClientID:     cfg.OIDC.ClientID,
		ClientSecret: cfg.OIDC.ClientSecret,
		RedirectURL:  cfg.OIDC.RedirectURL,
		Scopes:       cfg.OIDC.Scopes,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize OIDC client: %w", err)
	}

	sessions, err := session.NewManager(session.Config{
		Secret:        cfg.Session.Secret,
		Lifetime:      cfg.Session.Lifetime,
		StateLifetime: cfg.Session.StateLifetime,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize sessions: %w", err)
	}

	if len(cfg.App.AdminEmails) == 0 {
		slog.Warn("ADMIN_EMAILS is empty; no one can create hackathons")
	}

	// Rate Limiter
	rateLimiter := transportHTTP.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	defer rateLimiter.Stop()

	// Configure SameSite mode
	sameSite := http.SameSiteLaxMode
	switch cfg.Session.SameSite() {
	case "Strict":
		sameSite = http.SameSiteStrictMode
	case "None":
		sameSite = http.SameSiteNoneMode
	}

	// Initialize HTTP handler
	handler := transportHTTP.NewHandler(
		syncService,
		db.Users,
		resolver,
		tenantService,
		oidcClient,
		sessions,
		auditLogger,
		transportHTTP.Config{
			AppURL: cfg.App.URL,
			Cookies: transportHTTP.CookieConfig{
				SessionName: cfg.Session.CookieName,
				StateName:   cfg.Session.StateCookieName,
				Domain:      cfg.Session.CookieDomain,
				Path:        cfg.Session.CookiePath,
				Secure:      cfg.Session.CookieSecure,
				HTTPOnly:    cfg.Session.CookieHTTPOnly,
				SameSite:    sameSite,
			},
		},
	)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      transportHTTP.NewRouter(handler, rateLimiter),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server
	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting http server", logger.Component("server"), logger.Operation("listen"), logger.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-quit:
	}

	slog.Info("shutting down server")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", logger.Error(err))
	}

	slog.Info("server stopped")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	return store.Open(ctx, store.Config{
		URL:             cfg.Database.URL,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
}

func runMigrate(cfg *config.Config) error {
	ctx := context.Background()
	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("applying initial schema", logger.String("backend", db.Backend))
	if err := db.Migrate(ctx); err != nil {
		return err
	}
	slog.Info("migration successful")
	return nil
}
