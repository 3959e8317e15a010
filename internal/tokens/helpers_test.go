// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

package tokens

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/tomtom215/adledger/internal/audit"
	"github.com/tomtom215/adledger/internal/cache"
	"github.com/tomtom215/adledger/internal/config"
	"github.com/tomtom215/adledger/internal/database"
	"github.com/tomtom215/adledger/internal/encryption"
	"github.com/tomtom215/adledger/internal/events"
)

// testDBSemaphore serializes DuckDB instances across parallel tests.
var testDBSemaphore = make(chan struct{}, 1)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() { <-testDBSemaphore })

	db, err := database.New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "512MB", Threads: 1})
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testGuard(t *testing.T) *encryption.FieldGuard {
	t.Helper()
	c, err := encryption.NewCipher(bytes.Repeat([]byte{0x42}, encryption.KeySize))
	if err != nil {
		t.Fatalf("NewCipher() error = %v", err)
	}
	return encryption.NewFieldGuard(c)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fakeOAuth records calls and returns canned tokens.
type fakeOAuth struct {
	mu           sync.Mutex
	refreshCalls int
	revoked      []string
	refreshErr   error
	refreshed    *oauth2.Token
	exchanged    *oauth2.Token
	exchangeErr  error
}

func (f *fakeOAuth) AuthCodeURL(state string) string {
	return "https://accounts.example.test/auth?state=" + state
}

func (f *fakeOAuth) Exchange(_ context.Context, code string) (*oauth2.Token, error) {
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	if f.exchanged == nil {
		return nil, errors.New("no exchange token configured")
	}
	return f.exchanged, nil
}

func (f *fakeOAuth) Refresh(_ context.Context, refreshToken string) (*oauth2.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCalls++
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	tok := *f.refreshed
	if tok.RefreshToken == "" {
		tok.RefreshToken = refreshToken
	}
	return &tok, nil
}

func (f *fakeOAuth) Revoke(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, token)
	return nil
}

func (f *fakeOAuth) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshCalls
}

// recordingSink captures audit events synchronously.
type recordingSink struct {
	mu     sync.Mutex
	events []audit.EventType
}

func (s *recordingSink) LogSecurityEvent(_ context.Context, t audit.EventType, _ map[string]interface{}, _, _, _, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, t)
}

func (s *recordingSink) has(t audit.EventType) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		if e == t {
			return true
		}
	}
	return false
}

// recordingPublisher captures published topics.
type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return nil
}

type testEnv struct {
	db      *database.DB
	guard   *encryption.FieldGuard
	oauth   *fakeOAuth
	clock   *fakeClock
	limiter *cache.SlidingWindowLog
	sink    *recordingSink
	pub     *recordingPublisher
	mgr     *Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		db:    setupTestDB(t),
		guard: testGuard(t),
		oauth: &fakeOAuth{},
		clock: newFakeClock(),
		sink:  &recordingSink{},
		pub:   &recordingPublisher{},
	}
	env.limiter = NewAccessLimiter(DefaultAccessLimit, DefaultAccessWindow)
	env.limiter.SetClock(env.clock.now)

	mgr, err := NewManager(ManagerConfig{
		Store:   env.db,
		Guard:   env.guard,
		OAuth:   env.oauth,
		Limiter: env.limiter,
		Audit:   env.sink,
		Events:  env.pub,
		Now:     env.clock.now,
	})
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	env.mgr = mgr
	return env
}

var _ events.Publisher = (*recordingPublisher)(nil)
