// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

package services

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/adledger/internal/logging"
)

// SweepTask is one periodic maintenance job. Run returns how many items it
// removed or rewrote.
type SweepTask struct {
	Name string
	Run  func(ctx context.Context) (int64, error)
}

// SweeperService runs its tasks every interval until ctx ends. A failing
// task is logged and does not stop the others.
type SweeperService struct {
	name     string
	interval time.Duration
	tasks    []SweepTask
	onRun    func()
}

// NewSweeperService creates a sweeper. Tasks with a nil Run are skipped.
func NewSweeperService(name string, interval time.Duration, tasks ...SweepTask) *SweeperService {
	if interval <= 0 {
		interval = time.Hour
	}
	kept := make([]SweepTask, 0, len(tasks))
	for _, task := range tasks {
		if task.Run != nil {
			kept = append(kept, task)
		}
	}
	return &SweeperService{name: name, interval: interval, tasks: kept}
}

// Serve implements suture.Service.
func (s *SweeperService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *SweeperService) sweep(ctx context.Context) {
	for _, task := range s.tasks {
		if ctx.Err() != nil {
			return
		}
		n, err := task.Run(ctx)
		switch {
		case err != nil && !errors.Is(err, context.Canceled):
			logging.Error().Err(err).Str("task", task.Name).Msg("Sweep failed")
		case n > 0:
			logging.Debug().Str("task", task.Name).Int64("count", n).Msg("Sweep task processed entries")
		}
	}
	if s.onRun != nil {
		s.onRun()
	}
}

// String names the service in supervisor logs.
func (s *SweeperService) String() string {
	return s.name
}

// Counted adapts a cleanup that cannot fail and counts with int.
func Counted(fn func() int) func(context.Context) (int64, error) {
	if fn == nil {
		return nil
	}
	return func(context.Context) (int64, error) {
		return int64(fn()), nil
	}
}
