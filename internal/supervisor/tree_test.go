// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func waitStarted(t *testing.T, svc *stubService) {
	t.Helper()
	select {
	case <-svc.started:
	case <-time.After(2 * time.Second):
		t.Fatalf("%s was not started", svc.name)
	}
}

func TestNewSupervisorTree(t *testing.T) {
	t.Parallel()

	t.Run("builds the tree", func(t *testing.T) {
		t.Parallel()
		tree, err := NewSupervisorTree(quietLogger(), TreeConfig{
			FailureThreshold: 3,
			FailureBackoff:   time.Second,
			ShutdownTimeout:  5 * time.Second,
		})
		if err != nil {
			t.Fatalf("NewSupervisorTree: %v", err)
		}
		if tree.Root() == nil {
			t.Fatal("root supervisor is nil")
		}
		if tree.config.FailureThreshold != 3 {
			t.Errorf("FailureThreshold = %v, want 3", tree.config.FailureThreshold)
		}
	})

	t.Run("zero config takes defaults", func(t *testing.T) {
		t.Parallel()
		tree, err := NewSupervisorTree(nil, TreeConfig{})
		if err != nil {
			t.Fatalf("NewSupervisorTree: %v", err)
		}
		if tree.config != DefaultTreeConfig() {
			t.Errorf("config = %+v, want %+v", tree.config, DefaultTreeConfig())
		}
	})
}

func TestSupervisorTreeLayers(t *testing.T) {
	t.Parallel()

	tree, err := NewSupervisorTree(quietLogger(), TreeConfig{ShutdownTimeout: time.Second})
	if err != nil {
		t.Fatalf("NewSupervisorTree: %v", err)
	}

	sweeper := newStubService("sweeper", 0)
	scheduler := newStubService("scheduler", 0)
	server := newStubService("http", 0)
	tree.AddMaintenanceService(sweeper)
	tree.AddBackgroundService(scheduler)
	tree.AddAPIService(server)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	waitStarted(t, sweeper)
	waitStarted(t, scheduler)
	waitStarted(t, server)

	cancel()
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("tree did not shut down")
	}

	for _, svc := range []*stubService{sweeper, scheduler, server} {
		if svc.stops.Load() < 1 {
			t.Errorf("%s did not stop", svc.name)
		}
	}
}

func TestSupervisorTreeRestartsFailingService(t *testing.T) {
	t.Parallel()

	tree, _ := NewSupervisorTree(quietLogger(), TreeConfig{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		ShutdownTimeout:  time.Second,
	})

	flaky := newStubService("flaky-scheduler", 2)
	stable := newStubService("http", 0)
	tree.AddBackgroundService(flaky)
	tree.AddAPIService(stable)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := tree.ServeBackground(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for flaky.starts.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := flaky.starts.Load(); got < 3 {
		t.Errorf("flaky starts = %d, want at least 3", got)
	}
	if got := stable.starts.Load(); got != 1 {
		t.Errorf("stable starts = %d, want 1", got)
	}

	cancel()
	<-errCh
}

func TestRemoveBackgroundService(t *testing.T) {
	t.Parallel()

	tree, _ := NewSupervisorTree(quietLogger(), TreeConfig{ShutdownTimeout: time.Second})
	svc := newStubService("scheduler", 0)
	token := tree.AddBackgroundService(svc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := tree.ServeBackground(ctx)
	waitStarted(t, svc)

	if err := tree.RemoveBackgroundService(token); err != nil {
		t.Fatalf("RemoveBackgroundService: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for svc.stops.Load() < 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if svc.stops.Load() < 1 {
		t.Error("removed service did not stop")
	}

	cancel()
	<-errCh
}

func TestDefaultTreeConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultTreeConfig()
	if cfg.FailureThreshold != 5.0 {
		t.Errorf("FailureThreshold = %v, want 5", cfg.FailureThreshold)
	}
	if cfg.FailureDecay != 30.0 {
		t.Errorf("FailureDecay = %v, want 30", cfg.FailureDecay)
	}
	if cfg.FailureBackoff != 15*time.Second {
		t.Errorf("FailureBackoff = %v, want 15s", cfg.FailureBackoff)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 10s", cfg.ShutdownTimeout)
	}
}
