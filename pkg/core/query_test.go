package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTS(t *testing.T, s string) Timestamp {
	t.Helper()
	ts, err := ParseTimestamp(s)
	require.NoError(t, err)
	return ts
}

func TestTimestamp_NormalizesToUTC(t *testing.T) {
	ts := mustTS(t, "2024-01-01T02:30:00+02:00")
	assert.Equal(t, "2024-01-01T00:30:00.000Z", ts.ISO())
	assert.Equal(t, time.UTC, ts.Time().Location())

	local := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("X", -5*3600))
	assert.Equal(t, "2024-03-01T17:00:00.000Z", NewTimestamp(local).ISO())
}

func TestTimestamp_RejectsOffsetlessInput(t *testing.T) {
	_, err := ParseTimestamp("2024-01-01 00:00:00")
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
}

func TestTimestamp_JSON(t *testing.T) {
	var r DateRange
	require.NoError(t, json.Unmarshal([]byte(`{"from":"2024-01-01T00:00:00Z","to":"2024-01-02T01:00:00+01:00"}`), &r))
	assert.Equal(t, int64(86400), r.Seconds())
	assert.Equal(t, 24*time.Hour, r.Duration())

	out, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"from":"2024-01-01T00:00:00.000Z","to":"2024-01-02T00:00:00.000Z"}`, string(out))
}

func TestQueryContext_Validate(t *testing.T) {
	from := mustTS(t, "2024-01-01T00:00:00Z")
	to := mustTS(t, "2024-01-02T00:00:00Z")

	tests := []struct {
		name    string
		qc      QueryContext
		field   string
		wantErr bool
	}{
		{
			name: "valid raw",
			qc:   QueryContext{XColumn: "ts", YColumn: "val", DateRange: DateRange{From: from, To: to}},
		},
		{
			name: "valid aggregate",
			qc: QueryContext{XColumn: "ts", YColumn: "val", DateRange: DateRange{From: from, To: to},
				Aggregation: &Aggregation{Kind: AggAvg, Resolution: UnitHours}},
		},
		{
			name:    "missing x",
			qc:      QueryContext{YColumn: "val", DateRange: DateRange{From: from, To: to}},
			field:   "xColumnName",
			wantErr: true,
		},
		{
			name:    "missing y",
			qc:      QueryContext{XColumn: "ts", DateRange: DateRange{From: from, To: to}},
			field:   "yColumnName",
			wantErr: true,
		},
		{
			name:    "missing range",
			qc:      QueryContext{XColumn: "ts", YColumn: "val"},
			field:   "dateRange",
			wantErr: true,
		},
		{
			name:    "inverted range",
			qc:      QueryContext{XColumn: "ts", YColumn: "val", DateRange: DateRange{From: to, To: from}},
			field:   "dateRange",
			wantErr: true,
		},
		{
			name: "unknown aggregation",
			qc: QueryContext{XColumn: "ts", YColumn: "val", DateRange: DateRange{From: from, To: to},
				Aggregation: &Aggregation{Kind: "median"}},
			field:   "aggregation",
			wantErr: true,
		},
		{
			name: "bad filter",
			qc: QueryContext{XColumn: "ts", YColumn: "val", DateRange: DateRange{From: from, To: to},
				Filters: []Filter{{Column: "site", Op: OpIn}}},
			field:   "filter.values",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.qc.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestParseAggregation(t *testing.T) {
	agg, err := ParseAggregation("", "")
	require.NoError(t, err)
	assert.Nil(t, agg)

	agg, err = ParseAggregation("AVG", "hour")
	require.NoError(t, err)
	assert.Equal(t, &Aggregation{Kind: AggAvg, Resolution: UnitHours}, agg)
	assert.True(t, agg.IsAggregate())

	agg, err = ParseAggregation("none", "minutes")
	require.NoError(t, err)
	assert.False(t, agg.IsAggregate())

	_, err = ParseAggregation("sum", "")
	assert.Error(t, err)
	_, err = ParseAggregation("", "hours")
	assert.Error(t, err)
	_, err = ParseAggregation("max", "weeks")
	assert.Error(t, err)
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		in   string
		want Filter
	}{
		{"site=north", Filter{Column: "site", Op: OpEq, Value: "north"}},
		{"site != north", Filter{Column: "site", Op: OpNe, Value: "north"}},
		{"temp<=10", Filter{Column: "temp", Op: OpLte, Value: "10"}},
		{"temp>=10", Filter{Column: "temp", Op: OpGte, Value: "10"}},
		{"temp<10", Filter{Column: "temp", Op: OpLt, Value: "10"}},
		{"temp>10", Filter{Column: "temp", Op: OpGt, Value: "10"}},
		{"site in a, b,c", Filter{Column: "site", Op: OpIn, Values: []any{"a", "b", "c"}}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFilter(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseFilter("garbage")
	assert.Error(t, err)
}
