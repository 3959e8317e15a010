// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

package models

import (
	"math"
	"sort"
)

// Efficiency score weights over the normalized inputs.
const (
	weightCTR            = 0.1
	weightCPC            = 0.1
	weightConversionRate = 0.4
	weightROAS           = 0.4
)

// Normalization ceilings. A value at or above the ceiling scores 1.
const (
	ctrCeiling            = 10.0 // percent
	conversionRateCeiling = 20.0 // percent
	roasCeiling           = 5.0
)

// DerivedMetrics are computed on read and never stored, so formula changes
// apply to historical rows without a re-sync.
type DerivedMetrics struct {
	CTR             float64 `json:"ctr"`             // clicks / impressions, percent
	CPC             float64 `json:"cpc"`             // spend / clicks
	CPA             float64 `json:"cpa"`             // spend / conversions
	CPM             float64 `json:"cpm"`             // spend per 1000 impressions
	ConversionRate  float64 `json:"conversion_rate"` // conversions / clicks, percent
	ROAS            float64 `json:"roas"`            // conversion value / spend
	EfficiencyScore float64 `json:"efficiency_score"`
}

// DeriveMetrics computes the ratios for one set of totals. Ratios with a
// zero denominator are 0.
func DeriveMetrics(spend float64, impressions, clicks int64, conversions, conversionValue float64) DerivedMetrics {
	m := DerivedMetrics{
		CTR:            ratio(float64(clicks), float64(impressions)) * 100,
		CPC:            ratio(spend, float64(clicks)),
		CPA:            ratio(spend, conversions),
		CPM:            ratio(spend, float64(impressions)) * 1000,
		ConversionRate: ratio(conversions, float64(clicks)) * 100,
		ROAS:           ratio(conversionValue, spend),
	}
	m.EfficiencyScore = efficiencyScore(m, clicks)
	return m
}

// efficiencyScore blends normalized CTR, CPC, conversion rate and ROAS into
// a 0-100 score. CPC is inverted so cheaper clicks score higher; with no
// clicks there is no CPC signal.
func efficiencyScore(m DerivedMetrics, clicks int64) float64 {
	nCTR := clamp01(m.CTR / ctrCeiling)
	nCPC := 0.0
	if clicks > 0 {
		nCPC = 1 / (1 + m.CPC)
	}
	nCR := clamp01(m.ConversionRate / conversionRateCeiling)
	nROAS := clamp01(m.ROAS / roasCeiling)

	score := weightCTR*nCTR + weightCPC*nCPC + weightConversionRate*nCR + weightROAS*nROAS
	return math.Round(score*10000) / 100
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// CampaignRow is a stored row with its derived metrics.
type CampaignRow struct {
	CampaignData
	Metrics DerivedMetrics `json:"metrics"`
}

// WithMetrics attaches derived metrics to each row.
func WithMetrics(rows []CampaignData) []CampaignRow {
	out := make([]CampaignRow, len(rows))
	for i, r := range rows {
		out[i] = CampaignRow{
			CampaignData: r,
			Metrics:      DeriveMetrics(r.Spend, r.Impressions, r.Clicks, r.Conversions, r.ConversionValue),
		}
	}
	return out
}

// CampaignSummary aggregates all rows of one campaign.
type CampaignSummary struct {
	CampaignID      string         `json:"campaign_id"`
	CampaignName    string         `json:"campaign_name"`
	Days            int            `json:"days"`
	Spend           float64        `json:"spend"`
	Impressions     int64          `json:"impressions"`
	Clicks          int64          `json:"clicks"`
	Conversions     float64        `json:"conversions"`
	ConversionValue float64        `json:"conversion_value"`
	Metrics         DerivedMetrics `json:"metrics"`
}

// SummarizeCampaigns totals rows per campaign, ordered by spend descending.
// The name of the most recent row wins when a campaign was renamed.
func SummarizeCampaigns(rows []CampaignData) []CampaignSummary {
	byID := make(map[string]*CampaignSummary)
	latest := make(map[string]int64)

	for _, r := range rows {
		s, ok := byID[r.CampaignID]
		if !ok {
			s = &CampaignSummary{CampaignID: r.CampaignID}
			byID[r.CampaignID] = s
		}
		if ts := r.Date.Unix(); !ok || ts >= latest[r.CampaignID] {
			latest[r.CampaignID] = ts
			s.CampaignName = r.CampaignName
		}
		s.Days++
		s.Spend += r.Spend
		s.Impressions += r.Impressions
		s.Clicks += r.Clicks
		s.Conversions += r.Conversions
		s.ConversionValue += r.ConversionValue
	}

	out := make([]CampaignSummary, 0, len(byID))
	for _, s := range byID {
		s.Metrics = DeriveMetrics(s.Spend, s.Impressions, s.Clicks, s.Conversions, s.ConversionValue)
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Spend != out[j].Spend {
			return out[i].Spend > out[j].Spend
		}
		return out[i].CampaignID < out[j].CampaignID
	})
	return out
}
