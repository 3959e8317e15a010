// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

package sync

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	cron "github.com/robfig/cron/v3"

	"github.com/tomtom215/adledger/internal/logging"
)

// AccountSyncer is what the scheduler drives.
type AccountSyncer interface {
	SyncAll(ctx context.Context) (int, error)
}

// Scheduler runs SyncAll on a cron schedule. It implements suture.Service.
type Scheduler struct {
	syncer     AccountSyncer
	schedule   string
	runOnStart bool

	// running guards against a slow SyncAll overlapping the next tick.
	running sync.Mutex
}

// NewScheduler validates schedule. Five-field expressions get a leading
// seconds field.
func NewScheduler(syncer AccountSyncer, schedule string, runOnStart bool) (*Scheduler, error) {
	schedule = normalizeSchedule(schedule)
	if _, err := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor).Parse(schedule); err != nil {
		return nil, fmt.Errorf("invalid sync schedule %q: %w", schedule, err)
	}
	return &Scheduler{syncer: syncer, schedule: schedule, runOnStart: runOnStart}, nil
}

// Serve starts the cron and blocks until ctx is cancelled.
func (s *Scheduler) Serve(ctx context.Context) error {
	c := cron.New(cron.WithSeconds())
	id, err := c.AddFunc(s.schedule, func() { s.runJob(ctx) })
	if err != nil {
		return fmt.Errorf("failed to schedule sync job: %w", err)
	}
	logging.Info().Int("job_id", int(id)).Str("schedule", s.schedule).Msg("Scheduled account sync job")

	c.Start()
	if s.runOnStart {
		go s.runJob(ctx)
	}

	<-ctx.Done()
	stopped := c.Stop()
	<-stopped.Done()
	logging.Info().Msg("Sync scheduler stopped")
	return ctx.Err()
}

// String names the service in supervisor logs.
func (s *Scheduler) String() string { return "sync-scheduler" }

func (s *Scheduler) runJob(ctx context.Context) {
	if !s.running.TryLock() {
		logging.Warn().Msg("Previous sync run still in progress, skipping tick")
		return
	}
	defer s.running.Unlock()

	start := time.Now()
	failed, err := s.syncer.SyncAll(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("Scheduled sync run failed")
		return
	}
	logging.Info().Int("failed_accounts", failed).Dur("duration", time.Since(start)).Msg("Scheduled sync run completed")
}

// normalizeSchedule makes five-field expressions compatible with
// cron.WithSeconds.
func normalizeSchedule(expr string) string {
	expr = strings.TrimSpace(expr)
	if len(strings.Fields(expr)) == 5 {
		return "0 " + expr
	}
	return expr
}
