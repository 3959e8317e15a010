// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

package supervisor

import (
	"context"
	"errors"
	"sync/atomic"
)

// stubService counts its runs and fails the first failFirst of them.
type stubService struct {
	name      string
	failFirst int32
	starts    atomic.Int32
	stops     atomic.Int32
	started   chan struct{}
}

func newStubService(name string, failFirst int32) *stubService {
	return &stubService{name: name, failFirst: failFirst, started: make(chan struct{}, 16)}
}

func (s *stubService) Serve(ctx context.Context) error {
	n := s.starts.Add(1)
	defer s.stops.Add(1)

	select {
	case s.started <- struct{}{}:
	default:
	}

	if n <= s.failFirst {
		return errors.New("simulated failure")
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *stubService) String() string { return s.name }
