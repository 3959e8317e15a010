// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

// Package query builds parameterized WHERE clauses for the database package.
package query

import (
	"fmt"
	"strings"
)

// WhereBuilder accumulates AND-joined conditions and their arguments.
//
//	wb := query.NewWhereBuilder()
//	wb.AddEquals("connected_account_id", id).AddDateRange("date", "2024-01-01", "2024-01-31")
//	where, args := wb.BuildWithPrefix()
//	// WHERE connected_account_id = ? AND date >= CAST(? AS DATE) AND date <= CAST(? AS DATE)
type WhereBuilder struct {
	clauses []string
	args    []interface{}
}

// NewWhereBuilder creates an empty builder.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{}
}

// AddClause adds a raw condition with its arguments.
func (wb *WhereBuilder) AddClause(clause string, args ...interface{}) *WhereBuilder {
	wb.clauses = append(wb.clauses, clause)
	wb.args = append(wb.args, args...)
	return wb
}

// AddEquals adds "column = ?". Empty values are skipped.
func (wb *WhereBuilder) AddEquals(column, value string) *WhereBuilder {
	if value == "" {
		return wb
	}
	return wb.AddClause(column+" = ?", value)
}

// AddDateRange adds inclusive YYYY-MM-DD bounds on a DATE column. Empty
// bounds are skipped.
func (wb *WhereBuilder) AddDateRange(column, start, end string) *WhereBuilder {
	if start != "" {
		wb.AddClause(column+" >= CAST(? AS DATE)", start)
	}
	if end != "" {
		wb.AddClause(column+" <= CAST(? AS DATE)", end)
	}
	return wb
}

// AddIn adds "column IN (?, ...)". An empty list is skipped.
func (wb *WhereBuilder) AddIn(column string, values []string) *WhereBuilder {
	if len(values) == 0 {
		return wb
	}
	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = "?"
		wb.args = append(wb.args, v)
	}
	wb.clauses = append(wb.clauses, fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ", ")))
	return wb
}

// Build returns the joined clause without the WHERE keyword, or "1=1".
func (wb *WhereBuilder) Build() (string, []interface{}) {
	if len(wb.clauses) == 0 {
		return "1=1", []interface{}{}
	}
	return strings.Join(wb.clauses, " AND "), wb.args
}

// BuildWithPrefix returns the clause prefixed with "WHERE ".
func (wb *WhereBuilder) BuildWithPrefix() (string, []interface{}) {
	where, args := wb.Build()
	return "WHERE " + where, args
}

// IsEmpty reports whether no condition was added.
func (wb *WhereBuilder) IsEmpty() bool {
	return len(wb.clauses) == 0
}
