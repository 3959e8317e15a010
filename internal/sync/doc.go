// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

/*
Package sync pulls campaign performance from Google Ads into the local store.

The Orchestrator runs one account sync as four strictly sequential steps:

 1. Fetch: resolve the date window, obtain tokens from the token manager and
    run the paginated GAQL report. The result cache is consulted first.
 2. Transform: map rows to CampaignData, converting micros to currency units
    and dropping rows without a campaign id or name.
 3. Persist: insert in fixed-size batches with campaign names encrypted.
 4. Watermark: on full success, set the account's last sync time to now.

Window Resolution:

An explicit range is used verbatim. Otherwise an account with a watermark is
synced from the watermark's day through today, and an account that never
synced gets the last BootstrapDays days.

Retries:

Authentication-class upstream errors are retried with linear backoff
(base × attempt) after forcing a token refresh. Rate-limit errors are
retried with exponential backoff (base, 2×base, 4×base). The two budgets are
counted independently.

Failure Semantics:

A batch failure aborts the sync with a *SyncError. Batches committed before
the failure stay committed and the watermark does not move. Overlapping
syncs of one account are not serialized and may store duplicate rows.

Cancellation:

A sync runs on a context detached from the caller's. A caller that cancels
stops waiting and receives its context error, while the sync itself runs
to completion bounded by Config.Timeout.

The Scheduler runs SyncAll on a cron schedule under the supervisor.
*/
package sync
