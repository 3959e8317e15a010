// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

package googleads

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tomtom215/adledger/internal/models"
)

// Int64 decodes an int64 sent either as a JSON string or a number.
type Int64 int64

// UnmarshalJSON implements json.Unmarshaler.
func (v *Int64) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*v = 0
		return nil
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("parse int64 %q: %w", b, err)
	}
	*v = Int64(n)
	return nil
}

// SearchRow is one GAQL result row for the campaign report.
type SearchRow struct {
	Campaign struct {
		ID   Int64  `json:"id"`
		Name string `json:"name"`
	} `json:"campaign"`
	Segments struct {
		Date string `json:"date"`
	} `json:"segments"`
	Metrics struct {
		CostMicros       Int64   `json:"costMicros"`
		Impressions      Int64   `json:"impressions"`
		Clicks           Int64   `json:"clicks"`
		Conversions      float64 `json:"conversions"`
		ConversionsValue float64 `json:"conversionsValue"`
	} `json:"metrics"`
	Customer struct {
		DescriptiveName string `json:"descriptiveName"`
		Manager         bool   `json:"manager"`
		TimeZone        string `json:"timeZone"`
		TestAccount     bool   `json:"testAccount"`
	} `json:"customer"`
}

// CampaignReportQuery builds the GAQL for daily campaign metrics over window.
func CampaignReportQuery(window models.DateRange) string {
	return fmt.Sprintf(`SELECT campaign.id, campaign.name, segments.date, metrics.cost_micros, `+
		`metrics.impressions, metrics.clicks, metrics.conversions, metrics.conversions_value `+
		`FROM campaign WHERE segments.date BETWEEN '%s' AND '%s' ORDER BY segments.date`,
		window.StartString(), window.EndString())
}

// CustomerMetadataQuery selects the descriptive fields of the customer.
const CustomerMetadataQuery = `SELECT customer.descriptive_name, customer.manager, customer.time_zone, customer.test_account FROM customer LIMIT 1`

var customerIDPattern = regexp.MustCompile(`^\d{10}$`)

// ValidCustomerID reports whether id is exactly ten digits.
func ValidCustomerID(id string) bool {
	return customerIDPattern.MatchString(id)
}

// CustomerIDFromResourceName extracts "1234567890" from
// "customers/1234567890". Dashes are stripped.
func CustomerIDFromResourceName(name string) string {
	id := strings.TrimPrefix(name, "customers/")
	return strings.ReplaceAll(id, "-", "")
}

// FirstValidCustomerID returns the first well-formed id in names.
func FirstValidCustomerID(names []string) (string, bool) {
	for _, n := range names {
		if id := CustomerIDFromResourceName(n); ValidCustomerID(id) {
			return id, true
		}
	}
	return "", false
}

// MetadataFromRow converts a customer query row.
func MetadataFromRow(row SearchRow) models.AccountMetadata {
	return models.AccountMetadata{
		DisplayName:   row.Customer.DescriptiveName,
		IsManager:     row.Customer.Manager,
		TimeZone:      row.Customer.TimeZone,
		IsTestAccount: row.Customer.TestAccount,
	}
}
