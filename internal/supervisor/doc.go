// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

/*
Package supervisor runs adledger's long-lived services under suture v4.

	RootSupervisor ("adledger")
	├── MaintenanceSupervisor ("maintenance-layer")
	│   └── SweeperService (audit retention, rate-limit logs, OAuth states)
	├── BackgroundSupervisor ("background-layer")
	│   ├── sync.Scheduler (if SYNC_SCHEDULE is set)
	│   └── events.AuditSubscriber
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Each layer counts failures on its own, so a scheduler that keeps crashing
backs off without restarting the HTTP server.

Supervisor events (start, stop, panic, backoff) are logged through
sutureslog. The slog logger passed to NewSupervisorTree is normally
logging.NewSlogLogger, which forwards into the global zerolog stream.

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}
	tree.AddBackgroundService(scheduler)
	tree.AddAPIService(services.NewHTTPServerService(srv, 10*time.Second))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    logging.Error().Err(err).Msg("Supervisor stopped")
	}

See the services subpackage for the wrappers that adapt components to
suture.Service.
*/
package supervisor
