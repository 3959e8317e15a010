// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/adledger/internal/api"
	"github.com/tomtom215/adledger/internal/audit"
	"github.com/tomtom215/adledger/internal/auth"
	"github.com/tomtom215/adledger/internal/cache"
	"github.com/tomtom215/adledger/internal/config"
	"github.com/tomtom215/adledger/internal/database"
	"github.com/tomtom215/adledger/internal/encryption"
	"github.com/tomtom215/adledger/internal/events"
	"github.com/tomtom215/adledger/internal/googleads"
	"github.com/tomtom215/adledger/internal/logging"
	"github.com/tomtom215/adledger/internal/metrics"
	"github.com/tomtom215/adledger/internal/supervisor"
	"github.com/tomtom215/adledger/internal/supervisor/services"
	adsync "github.com/tomtom215/adledger/internal/sync"
	"github.com/tomtom215/adledger/internal/tokens"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

//nolint:gocyclo // sequential startup wiring
func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().Str("version", Version).Msg("Starting adledger with supervisor tree")
	metrics.SetAppInfo(Version)

	// A bad key must stop startup before any credential is touched.
	current, previous, err := cfg.Encryption.ParseEncryptionKeys()
	if err != nil {
		logging.Fatal().Err(err).Msg("Invalid encryption configuration")
	}
	cipher, err := encryption.NewCipher(current, previous...)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize field cipher")
	}
	guard := encryption.NewFieldGuard(cipher)
	logging.Info().Int("previous_keys", len(previous)).Msg("Field encryption initialized")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Str("path", cfg.Database.Path).Msg("Database initialized")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Audit trail
	auditStore := audit.NewDuckDBStore(db.Conn())
	if err := auditStore.CreateTable(ctx); err != nil {
		logging.Fatal().Err(err).Msg("Failed to create audit events table")
	}
	auditLogger := audit.NewLogger(auditStore, audit.ConfigFromApp(&cfg.Audit))
	defer func() {
		if err := auditLogger.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing audit logger")
		}
	}()

	bus := events.NewBus(256)
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()

	// Google Ads
	adsClient := googleads.NewClient(&cfg.GoogleAds)
	reporter := googleads.NewBreakerClient(adsClient, &cfg.GoogleAds)
	oauthClient := googleads.NewOAuthClient(&cfg.GoogleAds)

	// Token lifecycle
	revocations, closeRevocations, sweepRevocations := newRevocationStore(&cfg.Tokens)
	defer closeRevocations()

	limiter := tokens.NewAccessLimiter(cfg.Tokens.AccessLimit, cfg.Tokens.AccessWindow)
	states := tokens.NewStateStore(cfg.Tokens.StateTTL)

	tokenManager, err := tokens.NewManager(tokens.ManagerConfig{
		Store:    db,
		Guard:    guard,
		OAuth:    oauthClient,
		Reporter: reporter,
		Strategies: tokens.DefaultStrategies(reporter, tokens.RawDiscovery{
			HTTPClient:     &http.Client{Timeout: cfg.GoogleAds.RequestTimeout},
			BaseURL:        cfg.GoogleAds.BaseURL,
			Version:        cfg.GoogleAds.APIVersion,
			DeveloperToken: cfg.GoogleAds.DeveloperToken,
		}),
		Revocations: revocations,
		Limiter:     limiter,
		States:      states,
		Audit:       auditLogger,
		Events:      bus,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize token manager")
	}

	// Sync
	resultCache := cache.New(cfg.Cache.CleanupInterval)
	defer resultCache.Close()

	orchestrator := adsync.NewOrchestrator(db, tokenManager, reporter, guard, resultCache, bus,
		adsync.ConfigFromApp(&cfg.Sync, &cfg.Cache))

	// HTTP
	jwtManager, err := auth.NewJWTManager(cfg.Security.JWTSecret)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
	}
	handler, err := api.NewHandler(api.HandlerDeps{
		Tokens:    tokenManager,
		Syncer:    orchestrator,
		Campaigns: db,
		Guard:     guard,
		Health:    db,
		Version:   Version,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize API handler")
	}

	middlewareCfg := api.DefaultMiddlewareConfig()
	middlewareCfg.CORSAllowedOrigins = cfg.Security.CORSOrigins
	middlewareCfg.RateLimitRequests = cfg.Security.RateLimitRequests
	middlewareCfg.RateLimitWindow = cfg.Security.RateLimitWindow

	server := &http.Server{
		Addr: cfg.Server.Addr(),
		Handler: api.NewRouter(api.RouterConfig{
			Handler:    handler,
			JWT:        jwtManager,
			Middleware: middlewareCfg,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	// Supervisor tree
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddMaintenanceService(services.NewSweeperService("credential-sweeper", time.Minute,
		services.SweepTask{Name: "oauth-states", Run: services.Counted(states.CleanupExpired)},
		services.SweepTask{Name: "access-limiter", Run: services.Counted(limiter.CleanupInactive)},
		services.SweepTask{Name: "revocations", Run: services.Counted(sweepRevocations)},
	))
	tree.AddMaintenanceService(services.NewSweeperService("audit-retention", auditLogger.CleanupInterval(),
		services.SweepTask{Name: "audit-events", Run: auditLogger.Cleanup},
	))
	if len(previous) > 0 {
		// Rewrite ciphertexts under the current key until no account needs it.
		tree.AddMaintenanceService(services.NewSweeperService("key-rotation", time.Hour,
			services.SweepTask{Name: "reencrypt-accounts", Run: func(ctx context.Context) (int64, error) {
				n, err := tokenManager.ReencryptAll(ctx)
				return int64(n), err
			}},
		))
	}

	tree.AddBackgroundService(events.NewAuditSubscriber(bus, auditLogger))
	if cfg.Sync.Schedule != "" {
		scheduler, err := adsync.NewScheduler(orchestrator, cfg.Sync.Schedule, false)
		if err != nil {
			logging.Fatal().Err(err).Str("schedule", cfg.Sync.Schedule).Msg("Invalid sync schedule")
		}
		tree.AddBackgroundService(scheduler)
		logging.Info().Str("schedule", cfg.Sync.Schedule).Msg("Scheduled sync enabled")
	} else {
		logging.Info().Msg("Scheduled sync disabled (SYNC_SCHEDULE is empty)")
	}

	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}
	cancel()

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("adledger stopped")
}

// newRevocationStore opens the badger-backed set when a path is configured
// and falls back to memory otherwise. It returns the store, a closer and a
// sweep function for the maintenance layer.
func newRevocationStore(cfg *config.TokensConfig) (tokens.RevocationStore, func(), func() int) {
	if cfg.RevocationPath == "" {
		store := tokens.NewMemoryRevocationStore(cfg.RevocationTTL)
		logging.Warn().Msg("Revoked token fingerprints are kept in memory and lost on restart (set TOKEN_REVOCATION_PATH)")
		return store, func() {}, store.CleanupExpired
	}

	store, err := tokens.OpenBadgerRevocationStore(cfg.RevocationPath, cfg.RevocationTTL)
	if err != nil {
		logging.Fatal().Err(err).Str("path", cfg.RevocationPath).Msg("Failed to open revocation store")
	}
	logging.Info().Str("path", cfg.RevocationPath).Msg("Persistent revocation store opened")

	closeFn := func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing revocation store")
		}
	}
	// Badger expires entries by TTL; nothing to sweep.
	return store, closeFn, func() int { return 0 }
}
