// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/adledger/internal/cache"
	"github.com/tomtom215/adledger/internal/config"
	"github.com/tomtom215/adledger/internal/database"
	"github.com/tomtom215/adledger/internal/encryption"
	"github.com/tomtom215/adledger/internal/events"
	"github.com/tomtom215/adledger/internal/googleads"
	"github.com/tomtom215/adledger/internal/logging"
	"github.com/tomtom215/adledger/internal/metrics"
	"github.com/tomtom215/adledger/internal/models"
	"github.com/tomtom215/adledger/internal/tokens"
)

// Store is the part of the database the orchestrator needs.
type Store interface {
	GetAccount(ctx context.Context, id string) (*models.ConnectedAccount, error)
	ListAccounts(ctx context.Context, f database.AccountFilter) ([]*models.ConnectedAccount, error)
	InsertCampaignBatch(ctx context.Context, rows []models.CampaignData) ([]models.CampaignData, error)
	UpdateLastSyncAt(ctx context.Context, id string, at time.Time) error
}

// TokenSource hands out plaintext tokens for an account.
type TokenSource interface {
	RetrieveTokens(ctx context.Context, accountID, requestingUserID string) (*tokens.TokenPair, error)
	ForceRefresh(ctx context.Context, accountID, requestingUserID string) (*tokens.TokenPair, error)
}

// ResultCache memoizes upstream report rows.
type ResultCache interface {
	Get(key string) (interface{}, bool)
	Put(key string, value interface{}, ttlMinutes int)
}

// Config controls windowing, batching and retry budgets.
type Config struct {
	BootstrapDays       int
	BatchSize           int
	MaxAuthRetries      int
	MaxRateLimitRetries int
	BackoffBase         time.Duration
	Timeout             time.Duration
	CacheTTLMinutes     int
}

// DefaultConfig returns the production policy.
func DefaultConfig() Config {
	return Config{
		BootstrapDays:       30,
		BatchSize:           100,
		MaxAuthRetries:      3,
		MaxRateLimitRetries: 3,
		BackoffBase:         time.Second,
		Timeout:             10 * time.Minute,
		CacheTTLMinutes:     15,
	}
}

// ConfigFromApp maps the application sync and cache sections.
func ConfigFromApp(sc *config.SyncConfig, cc *config.CacheConfig) Config {
	c := DefaultConfig()
	if sc != nil {
		if sc.BootstrapDays > 0 {
			c.BootstrapDays = sc.BootstrapDays
		}
		if sc.BatchSize > 0 {
			c.BatchSize = sc.BatchSize
		}
		if sc.MaxAuthRetries >= 0 {
			c.MaxAuthRetries = sc.MaxAuthRetries
		}
		if sc.MaxRateLimitRetries >= 0 {
			c.MaxRateLimitRetries = sc.MaxRateLimitRetries
		}
		if sc.BackoffBase > 0 {
			c.BackoffBase = sc.BackoffBase
		}
		if sc.Timeout > 0 {
			c.Timeout = sc.Timeout
		}
	}
	if cc != nil && cc.TTLMinutes > 0 {
		c.CacheTTLMinutes = cc.TTLMinutes
	}
	return c
}

// Orchestrator syncs campaign data for connected accounts.
type Orchestrator struct {
	store    Store
	tokens   TokenSource
	reporter googleads.Reporter
	guard    *encryption.FieldGuard
	cache    ResultCache
	events   events.Publisher
	cfg      Config

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator wires an orchestrator. cache and publisher may be nil.
func NewOrchestrator(store Store, tokenSource TokenSource, reporter googleads.Reporter, guard *encryption.FieldGuard, resultCache ResultCache, publisher events.Publisher, cfg Config) *Orchestrator {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Orchestrator{
		store:    store,
		tokens:   tokenSource,
		reporter: reporter,
		guard:    guard,
		cache:    resultCache,
		events:   publisher,
		cfg:      cfg,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// SetClock overrides the clock. Intended for tests.
func (o *Orchestrator) SetClock(now func() time.Time) { o.now = now }

// SetSleep overrides the backoff sleep. Intended for tests.
func (o *Orchestrator) SetSleep(sleep func(ctx context.Context, d time.Duration) error) {
	o.sleep = sleep
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type syncResult struct {
	rows []models.CampaignData
	err  error
}

// SyncAccount fetches, transforms and persists campaign rows for one
// account and returns the rows stored, with plaintext campaign names.
// A nil window is resolved from the account's watermark. userID, when set,
// must own the account.
func (o *Orchestrator) SyncAccount(ctx context.Context, accountID, userID string, window *models.DateRange) ([]models.CampaignData, error) {
	detached := context.WithoutCancel(ctx)
	cancel := context.CancelFunc(func() {})
	if o.cfg.Timeout > 0 {
		detached, cancel = context.WithTimeout(detached, o.cfg.Timeout)
	}

	done := make(chan syncResult, 1)
	go func() {
		defer cancel()
		rows, err := o.run(detached, accountID, userID, window)
		done <- syncResult{rows: rows, err: err}
	}()

	select {
	case res := <-done:
		return res.rows, res.err
	case <-ctx.Done():
		logging.Ctx(ctx).Warn().Str("account_id", accountID).
			Msg("Caller stopped waiting; sync continues in the background")
		return nil, ctx.Err()
	}
}

func (o *Orchestrator) run(ctx context.Context, accountID, userID string, explicit *models.DateRange) ([]models.CampaignData, error) {
	start := time.Now()
	logger := logging.Ctx(ctx).With().Str("account_id", accountID).Logger()

	acc, err := o.store.GetAccount(ctx, accountID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, o.fail(ctx, start, nil, &tokens.NotFoundError{AccountID: accountID})
	}
	if err != nil {
		return nil, o.fail(ctx, start, nil, &SyncError{AccountID: accountID, Stage: StageLoad, Err: err})
	}
	if userID != "" && acc.UserID != userID {
		return nil, o.fail(ctx, start, nil, &tokens.NotFoundError{AccountID: accountID})
	}
	if userID == "" {
		userID = acc.UserID
	}

	window := o.ResolveWindow(acc, explicit)
	logger.Info().Str("window", window.String()).Msg("Starting account sync")

	upstream, fromCache, err := o.fetch(ctx, acc, window)
	if err != nil {
		return nil, o.fail(ctx, start, acc, err)
	}

	candidates, dropped := o.transform(ctx, acc.ID, upstream)

	stored, err := o.persist(ctx, acc.ID, candidates)
	if err != nil {
		return nil, o.fail(ctx, start, acc, err)
	}

	syncedAt := o.now().UTC()
	if err := o.store.UpdateLastSyncAt(ctx, acc.ID, syncedAt); err != nil {
		return nil, o.fail(ctx, start, acc, &SyncError{AccountID: acc.ID, Stage: StageWatermark, Persisted: len(stored), Err: err})
	}

	metrics.RecordSyncOperation(time.Since(start), len(stored), dropped, "")
	if err := o.events.Publish(ctx, events.TopicSyncCompleted, events.SyncCompleted{
		AccountID:   acc.ID,
		UserID:      userID,
		WindowStart: window.StartString(),
		WindowEnd:   window.EndString(),
		Rows:        len(stored),
		Dropped:     dropped,
		FromCache:   fromCache,
		CompletedAt: syncedAt,
	}); err != nil {
		logger.Warn().Err(err).Msg("Failed to publish sync completion")
	}
	logger.Info().Int("rows", len(stored)).Int("dropped", dropped).Bool("from_cache", fromCache).
		Dur("duration", time.Since(start)).Msg("Account sync completed")
	return stored, nil
}

// fail records a failed sync and returns err unchanged.
func (o *Orchestrator) fail(ctx context.Context, start time.Time, acc *models.ConnectedAccount, err error) error {
	persisted := 0
	stage := "tokens"
	var se *SyncError
	if errors.As(err, &se) {
		persisted = se.Persisted
		stage = se.Stage
	}
	metrics.RecordSyncOperation(time.Since(start), persisted, 0, errorType(err))

	if acc == nil {
		return err
	}
	logging.Ctx(ctx).Error().Str("account_id", acc.ID).Str("stage", stage).
		Str("error", logging.RedactError(err.Error())).Msg("Account sync failed")
	if perr := o.events.Publish(ctx, events.TopicSyncFailed, events.SyncFailed{
		AccountID: acc.ID,
		UserID:    acc.UserID,
		Stage:     stage,
		Error:     logging.RedactError(err.Error()),
		FailedAt:  o.now().UTC(),
	}); perr != nil {
		logging.Ctx(ctx).Warn().Err(perr).Msg("Failed to publish sync failure")
	}
	return err
}

// ResolveWindow picks the date window for a sync.
func (o *Orchestrator) ResolveWindow(acc *models.ConnectedAccount, explicit *models.DateRange) models.DateRange {
	if explicit != nil {
		return *explicit
	}
	today := models.Day(o.now())
	if acc.LastSyncAt != nil {
		return models.DateRange{Start: models.Day(*acc.LastSyncAt), End: today}
	}
	days := o.cfg.BootstrapDays
	if days <= 0 {
		days = 30
	}
	return models.DateRange{Start: today.AddDate(0, 0, -days), End: today}
}

// fetch returns the upstream rows for window, from the cache when present.
// Tokens are retrieved first, so a revoked or deactivated account fails
// even when its report is still cached.
func (o *Orchestrator) fetch(ctx context.Context, acc *models.ConnectedAccount, window models.DateRange) ([]googleads.SearchRow, bool, error) {
	pair, err := o.tokens.RetrieveTokens(ctx, acc.ID, "")
	if err != nil {
		return nil, false, err
	}

	key := cache.ReportKey(acc.ID, window)
	if o.cache != nil {
		if v, ok := o.cache.Get(key); ok {
			if rows, ok := v.([]googleads.SearchRow); ok {
				metrics.RecordCacheLookup("report", true)
				return rows, true, nil
			}
		}
		metrics.RecordCacheLookup("report", false)
	}

	rows, err := o.fetchWithRetry(ctx, acc, pair, googleads.CampaignReportQuery(window))
	if err != nil {
		return nil, false, err
	}
	if o.cache != nil {
		o.cache.Put(key, rows, o.cfg.CacheTTLMinutes)
	}
	return rows, false, nil
}

// fetchWithRetry runs the report query, retrying credential failures with
// linear backoff and rate limits with exponential backoff. Token-lifecycle
// errors are returned as they are.
func (o *Orchestrator) fetchWithRetry(ctx context.Context, acc *models.ConnectedAccount, pair *tokens.TokenPair, query string) ([]googleads.SearchRow, error) {
	logger := logging.Ctx(ctx)

	authRetries, rateRetries := 0, 0
	for {
		rows, err := o.reporter.SearchAll(ctx, pair.AccessToken, acc.ExternalAccountID, query)
		if err == nil {
			return rows, nil
		}
		if ctx.Err() != nil {
			return nil, &SyncError{AccountID: acc.ID, Stage: StageFetch, Err: err}
		}

		switch {
		case googleads.IsRateLimitError(err) && rateRetries < o.cfg.MaxRateLimitRetries:
			delay := o.cfg.BackoffBase << rateRetries
			rateRetries++
			metrics.SyncRetries.WithLabelValues("rate_limit").Inc()
			logger.Warn().Str("account_id", acc.ID).Int("attempt", rateRetries).Dur("delay", delay).
				Msg("Upstream rate limited, backing off")
			if serr := o.sleep(ctx, delay); serr != nil {
				return nil, &SyncError{AccountID: acc.ID, Stage: StageFetch, Err: err}
			}

		case googleads.IsAuthError(err) && authRetries < o.cfg.MaxAuthRetries:
			authRetries++
			delay := o.cfg.BackoffBase * time.Duration(authRetries)
			metrics.SyncRetries.WithLabelValues("auth").Inc()
			logger.Warn().Str("account_id", acc.ID).Int("attempt", authRetries).Dur("delay", delay).
				Str("error", logging.RedactError(err.Error())).Msg("Upstream rejected credentials, refreshing")
			if serr := o.sleep(ctx, delay); serr != nil {
				return nil, &SyncError{AccountID: acc.ID, Stage: StageFetch, Err: err}
			}
			pair, err = o.tokens.ForceRefresh(ctx, acc.ID, "")
			if err != nil {
				return nil, err
			}

		default:
			return nil, &SyncError{AccountID: acc.ID, Stage: StageFetch, Err: err}
		}
	}
}

// transform maps upstream rows to storable candidates with plaintext
// names. Rows without a campaign id, name or parseable date are dropped.
func (o *Orchestrator) transform(ctx context.Context, accountID string, rows []googleads.SearchRow) ([]models.CampaignData, int) {
	logger := logging.Ctx(ctx)
	out := make([]models.CampaignData, 0, len(rows))
	dropped := 0
	for i, r := range rows {
		if r.Campaign.ID == 0 || r.Campaign.Name == "" {
			dropped++
			logger.Warn().Str("account_id", accountID).Int("row", i).Msg("Dropping row without campaign id or name")
			continue
		}
		date, err := time.Parse(models.DateLayout, r.Segments.Date)
		if err != nil {
			dropped++
			logger.Warn().Str("account_id", accountID).Int("row", i).Str("date", r.Segments.Date).
				Msg("Dropping row with unparseable date")
			continue
		}
		out = append(out, models.CampaignData{
			ConnectedAccountID: accountID,
			CampaignID:         fmt.Sprintf("%d", int64(r.Campaign.ID)),
			CampaignName:       r.Campaign.Name,
			Date:               date,
			Spend:              MicrosToUnits(int64(r.Metrics.CostMicros)),
			Impressions:        int64(r.Metrics.Impressions),
			Clicks:             int64(r.Metrics.Clicks),
			Conversions:        r.Metrics.Conversions,
			ConversionValue:    r.Metrics.ConversionsValue,
		})
	}
	return out, dropped
}

// MicrosToUnits converts an upstream micro-unit amount to currency units.
func MicrosToUnits(micros int64) float64 {
	return float64(micros) / 1_000_000
}

// persist writes candidates in batches. Names are encrypted on the way in
// and the returned rows carry the plaintext names.
func (o *Orchestrator) persist(ctx context.Context, accountID string, candidates []models.CampaignData) ([]models.CampaignData, error) {
	stored := make([]models.CampaignData, 0, len(candidates))
	for start := 0; start < len(candidates); start += o.cfg.BatchSize {
		end := start + o.cfg.BatchSize
		if end > len(candidates) {
			end = len(candidates)
		}

		batch := make([]models.CampaignData, end-start)
		copy(batch, candidates[start:end])
		for i := range batch {
			enc, err := o.guard.Encode(encryption.FieldCampaignName, batch[i].CampaignName)
			if err != nil {
				return stored, &SyncError{AccountID: accountID, Stage: StagePersist, Persisted: len(stored), Err: err}
			}
			batch[i].CampaignName = enc
		}

		written, err := o.store.InsertCampaignBatch(ctx, batch)
		if err != nil {
			return stored, &SyncError{AccountID: accountID, Stage: StagePersist, Persisted: len(stored), Err: err}
		}
		for i := range written {
			written[i].CampaignName = candidates[start+i].CampaignName
		}
		stored = append(stored, written...)
	}
	return stored, nil
}

// SyncAll syncs every active account in turn and returns how many failed.
// One account's failure does not stop the others.
func (o *Orchestrator) SyncAll(ctx context.Context) (int, error) {
	accounts, err := o.store.ListAccounts(ctx, database.AccountFilter{ActiveOnly: true})
	if err != nil {
		return 0, fmt.Errorf("list active accounts: %w", err)
	}
	failed := 0
	for _, acc := range accounts {
		if ctx.Err() != nil {
			return failed, ctx.Err()
		}
		if _, err := o.SyncAccount(ctx, acc.ID, "", nil); err != nil {
			failed++
		}
	}
	return failed, nil
}
