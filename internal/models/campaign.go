// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

package models

import (
	"fmt"
	"time"
)

// DateLayout is the wire and query format for report dates.
const DateLayout = "2006-01-02"

// CampaignData is one day of performance for one campaign.
// Rows are insert-only and are removed only with their account.
type CampaignData struct {
	ID                 string    `json:"id"`
	ConnectedAccountID string    `json:"connected_account_id"`
	CampaignID         string    `json:"campaign_id"`
	CampaignName       string    `json:"campaign_name"` // ciphertext at rest
	Date               time.Time `json:"date"`
	Spend              float64   `json:"spend"` // currency units
	Impressions        int64     `json:"impressions"`
	Clicks             int64     `json:"clicks"`
	Conversions        float64   `json:"conversions"`      // Google reports fractional conversions
	ConversionValue    float64   `json:"conversion_value"` // currency units
	CreatedAt          time.Time `json:"created_at"`
}

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewDateRange truncates both ends to UTC calendar days.
func NewDateRange(start, end time.Time) DateRange {
	return DateRange{Start: Day(start), End: Day(end)}
}

// ParseDateRange parses two YYYY-MM-DD strings.
func ParseDateRange(start, end string) (DateRange, error) {
	s, err := time.Parse(DateLayout, start)
	if err != nil {
		return DateRange{}, fmt.Errorf("invalid start date %q: %w", start, err)
	}
	e, err := time.Parse(DateLayout, end)
	if err != nil {
		return DateRange{}, fmt.Errorf("invalid end date %q: %w", end, err)
	}
	if e.Before(s) {
		return DateRange{}, fmt.Errorf("end date %s is before start date %s", end, start)
	}
	return DateRange{Start: s, End: e}, nil
}

// StartString formats Start as YYYY-MM-DD.
func (r DateRange) StartString() string { return r.Start.Format(DateLayout) }

// EndString formats End as YYYY-MM-DD.
func (r DateRange) EndString() string { return r.End.Format(DateLayout) }

func (r DateRange) String() string { return r.StartString() + ".." + r.EndString() }

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
