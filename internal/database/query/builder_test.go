// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

package query

import (
	"reflect"
	"testing"
)

func TestWhereBuilder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		build     func(*WhereBuilder)
		wantWhere string
		wantArgs  []interface{}
	}{
		{
			name:      "empty",
			build:     func(*WhereBuilder) {},
			wantWhere: "1=1",
			wantArgs:  []interface{}{},
		},
		{
			name: "equals and date range",
			build: func(wb *WhereBuilder) {
				wb.AddEquals("connected_account_id", "acc-1").AddDateRange("date", "2024-01-01", "2024-01-31")
			},
			wantWhere: "connected_account_id = ? AND date >= CAST(? AS DATE) AND date <= CAST(? AS DATE)",
			wantArgs:  []interface{}{"acc-1", "2024-01-01", "2024-01-31"},
		},
		{
			name: "open ended range skips empty bound",
			build: func(wb *WhereBuilder) {
				wb.AddDateRange("date", "2024-01-01", "")
			},
			wantWhere: "date >= CAST(? AS DATE)",
			wantArgs:  []interface{}{"2024-01-01"},
		},
		{
			name: "in list and empty equals",
			build: func(wb *WhereBuilder) {
				wb.AddEquals("user_id", "").AddIn("campaign_id", []string{"1", "2"})
			},
			wantWhere: "campaign_id IN (?, ?)",
			wantArgs:  []interface{}{"1", "2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			wb := NewWhereBuilder()
			tt.build(wb)
			where, args := wb.Build()
			if where != tt.wantWhere {
				t.Errorf("Build() where = %q, want %q", where, tt.wantWhere)
			}
			if !reflect.DeepEqual(args, tt.wantArgs) {
				t.Errorf("Build() args = %v, want %v", args, tt.wantArgs)
			}
		})
	}
}

func TestWhereBuilder_BuildWithPrefix(t *testing.T) {
	t.Parallel()

	wb := NewWhereBuilder().AddEquals("is_active", "true")
	where, _ := wb.BuildWithPrefix()
	if where != "WHERE is_active = ?" {
		t.Errorf("BuildWithPrefix() = %q", where)
	}
	if wb.IsEmpty() {
		t.Error("IsEmpty() = true after AddEquals")
	}
}
