// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

/*
Package services adapts adledger components to suture.Service.

HTTPServerService turns the blocking ListenAndServe into a context-aware
Serve with graceful shutdown.

SweeperService runs periodic cleanups on one ticker:

	sweeper := services.NewSweeperService("sweeper", time.Hour,
	    services.SweepTask{Name: "audit", Run: auditLogger.Cleanup},
	    services.SweepTask{Name: "access-limiter", Run: services.Counted(limiter.CleanupInactive)},
	    services.SweepTask{Name: "oauth-states", Run: services.Counted(states.CleanupExpired)},
	)
	tree.AddMaintenanceService(sweeper)

The sync scheduler and the audit event subscriber already implement
suture.Service and are added to the tree directly.
*/
package services
