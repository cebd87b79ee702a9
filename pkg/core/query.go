package core

import (
	"fmt"
	"strings"
	"time"
)

// DateRange is a closed interval of UTC instants.
type DateRange struct {
	From Timestamp `json:"from"`
	To   Timestamp `json:"to"`
}

// Seconds returns the length of the range in whole seconds.
func (r DateRange) Seconds() int64 {
	return int64(r.To.Sub(r.From).Seconds())
}

// Duration returns the exact length of the range.
func (r DateRange) Duration() time.Duration {
	return r.To.Sub(r.From)
}

// AggregationKind is the closed set of aggregation variants.
type AggregationKind string

// Aggregation kinds. None down-samples to a resolution without summarizing.
const (
	AggNone AggregationKind = "none"
	AggAvg  AggregationKind = "avg"
	AggMin  AggregationKind = "min"
	AggMax  AggregationKind = "max"
)

// Aggregation selects how Y values are combined per time bucket.
type Aggregation struct {
	Kind       AggregationKind `json:"kind"`
	Resolution TimeUnit        `json:"resolution,omitempty"`
}

// IsAggregate reports whether the kind is a true aggregate function.
func (a Aggregation) IsAggregate() bool {
	return a.Kind == AggAvg || a.Kind == AggMin || a.Kind == AggMax
}

// ParseAggregation builds an Aggregation from user-facing strings.
// An empty kind returns nil, meaning raw rows.
func ParseAggregation(kind, resolution string) (*Aggregation, error) {
	k := AggregationKind(strings.ToLower(strings.TrimSpace(kind)))
	if k == "" {
		if resolution != "" {
			return nil, &ValidationError{Field: "aggregation", Reason: "resolution given without an aggregation kind"}
		}
		return nil, nil
	}
	switch k {
	case AggNone, AggAvg, AggMin, AggMax:
	default:
		return nil, &ValidationError{Field: "aggregation", Reason: fmt.Sprintf("unknown aggregation %q", kind)}
	}
	unit, err := ParseTimeUnit(resolution)
	if err != nil {
		return nil, err
	}
	return &Aggregation{Kind: k, Resolution: unit}, nil
}

// FilterOp is the closed set of comparison operators usable in filters.
type FilterOp string

// Filter operators.
const (
	OpEq  FilterOp = "="
	OpNe  FilterOp = "!="
	OpLt  FilterOp = "<"
	OpLte FilterOp = "<="
	OpGt  FilterOp = ">"
	OpGte FilterOp = ">="
	OpIn  FilterOp = "in"
)

// Filter is an extra predicate on a non-time column.
// Value is used by scalar operators, Values by OpIn.
type Filter struct {
	Column string   `json:"column"`
	Op     FilterOp `json:"op"`
	Value  any      `json:"value,omitempty"`
	Values []any    `json:"values,omitempty"`
}

// Validate checks that the filter is well formed.
func (f Filter) Validate() error {
	if f.Column == "" {
		return &ValidationError{Field: "filter.column", Reason: "is required"}
	}
	switch f.Op {
	case OpEq, OpNe, OpLt, OpLte, OpGt, OpGte:
		if f.Value == nil {
			return &ValidationError{Field: "filter.value", Reason: fmt.Sprintf("operator %s needs a value", f.Op)}
		}
	case OpIn:
		if len(f.Values) == 0 {
			return &ValidationError{Field: "filter.values", Reason: "in needs at least one value"}
		}
	default:
		return &ValidationError{Field: "filter.op", Reason: fmt.Sprintf("unknown operator %q", f.Op)}
	}
	return nil
}

// ParseFilter parses "column<op>value" where op is one of = != <= >= < >,
// or "column in a,b,c".
func ParseFilter(s string) (Filter, error) {
	if idx := strings.Index(s, " in "); idx > 0 {
		col := strings.TrimSpace(s[:idx])
		var values []any
		for _, v := range strings.Split(s[idx+4:], ",") {
			values = append(values, strings.TrimSpace(v))
		}
		f := Filter{Column: col, Op: OpIn, Values: values}
		return f, f.Validate()
	}
	// longest operators first so "<=" is not read as "<"
	for _, op := range []FilterOp{OpNe, OpLte, OpGte, OpEq, OpLt, OpGt} {
		if idx := strings.Index(s, string(op)); idx > 0 {
			f := Filter{
				Column: strings.TrimSpace(s[:idx]),
				Op:     op,
				Value:  strings.TrimSpace(s[idx+len(op):]),
			}
			return f, f.Validate()
		}
	}
	return Filter{}, &ValidationError{Field: "filter", Reason: fmt.Sprintf("cannot parse filter %q", s)}
}

// QueryContext is the abstract request: Y over X for a data set within a date range.
type QueryContext struct {
	DataSetID   string       `json:"dataSetId"`
	XColumn     string       `json:"xColumnName"`
	YColumn     string       `json:"yColumnName"`
	DateRange   DateRange    `json:"dateRange"`
	Aggregation *Aggregation `json:"aggregation,omitempty"`
	Filters     []Filter     `json:"filters,omitempty"`
}

// Validate rejects malformed contexts before any backend I/O.
func (qc *QueryContext) Validate() error {
	if qc.XColumn == "" {
		return &ValidationError{Field: "xColumnName", Reason: "is required"}
	}
	if qc.YColumn == "" {
		return &ValidationError{Field: "yColumnName", Reason: "is required"}
	}
	if qc.DateRange.From.IsZero() || qc.DateRange.To.IsZero() {
		return &ValidationError{Field: "dateRange", Reason: "from and to are required"}
	}
	if qc.DateRange.To.Before(qc.DateRange.From) {
		return &ValidationError{Field: "dateRange", Reason: "from must not be after to"}
	}
	if qc.Aggregation != nil {
		switch qc.Aggregation.Kind {
		case AggNone, AggAvg, AggMin, AggMax:
		default:
			return &ValidationError{Field: "aggregation", Reason: fmt.Sprintf("unknown aggregation %q", qc.Aggregation.Kind)}
		}
		if qc.Aggregation.Resolution != "" && qc.Aggregation.Resolution.Seconds() == 0 {
			return &ValidationError{Field: "aggregation.resolution", Reason: fmt.Sprintf("unknown time unit %q", qc.Aggregation.Resolution)}
		}
	}
	for _, f := range qc.Filters {
		if err := f.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Row is one flat result record keyed by column name.
type Row = map[string]any
