// Package querybuilder translates a QueryContext into dialect-specific SQL.
//
// Build is pure: it performs no I/O and returns the same Query for the same
// inputs. Identifiers are allowlisted and quoted; every value is bound as a
// parameter.
package querybuilder

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sergobb/timeseries-dashboard-platform-sub000/pkg/core"
	"github.com/sergobb/timeseries-dashboard-platform-sub000/pkg/dialect"
)

// Query is generated SQL text with its bound arguments in placeholder order.
type Query struct {
	SQL  string
	Args []any
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Build renders the SELECT for qc against table.
//
// columns is the DataSource column metadata used as the identifier
// allowlist; inactive columns are accepted. With no metadata, identifiers
// must be plain names.
func Build(qc *core.QueryContext, d *dialect.Dialect, table string, columns []core.Column) (*Query, error) {
	if d == nil {
		return nil, dialect.ErrDialectRequired
	}
	if err := qc.Validate(); err != nil {
		return nil, err
	}
	if table == "" {
		return nil, &core.ValidationError{Field: "table", Reason: "is required"}
	}

	allowed := allowlist(columns)
	types := columnTypes(columns)
	if err := checkIdent(allowed, "xColumnName", qc.XColumn); err != nil {
		return nil, err
	}
	if err := checkIdent(allowed, "yColumnName", qc.YColumn); err != nil {
		return nil, err
	}
	for _, f := range qc.Filters {
		if err := checkIdent(allowed, "filter.column", f.Column); err != nil {
			return nil, err
		}
	}

	b := &builder{d: d, types: types}
	x := d.QuoteIdentifier(qc.XColumn)
	y := d.QuoteIdentifier(qc.YColumn)

	agg := qc.Aggregation
	var bucket string
	if agg != nil && agg.Resolution != "" {
		var err error
		if bucket, err = d.TimeBucket(agg.Resolution, x); err != nil {
			return nil, err
		}
	}

	xExpr := x
	yExpr := d.NumericCast(y)
	var groupBy string

	if agg != nil {
		switch {
		case agg.IsAggregate():
			fn := strings.ToUpper(string(agg.Kind))
			if !d.IsAggregate(fn) {
				return nil, &core.ValidationError{Field: "aggregation", Reason: fmt.Sprintf("%s is not supported by %s", fn, d.Name)}
			}
			yExpr = fn + "(" + d.NumericCast(y) + ")"
			if bucket != "" {
				xExpr = bucket
				groupBy = "GROUP BY " + bucket
			} else {
				// whole-range summary
				xExpr = "MIN(" + x + ")"
			}
		case agg.Kind == core.AggNone && bucket != "":
			xExpr = bucket
		}
	}

	selectCols := []string{aliased(xExpr, x), aliased(yExpr, y)}

	conds := []string{
		fmt.Sprintf("%s BETWEEN %s AND %s", x, b.bind(qc.DateRange.From.Time()), b.bind(qc.DateRange.To.Time())),
	}
	if agg != nil && agg.Kind == core.AggNone && bucket != "" {
		// keep only rows sitting exactly on a bucket boundary
		conds = append(conds, d.BucketSource(x)+" = "+bucket)
	}
	for _, f := range qc.Filters {
		cond, err := b.filter(f)
		if err != nil {
			return nil, err
		}
		conds = append(conds, cond)
	}

	clauses := []string{
		"SELECT " + strings.Join(selectCols, ", "),
		"FROM " + d.QuoteQualified(table),
		"WHERE " + strings.Join(conds, " AND "),
		groupBy,
		"ORDER BY " + x + " ASC",
	}

	return &Query{SQL: joinNonEmpty(clauses), Args: b.args}, nil
}

type builder struct {
	d     *dialect.Dialect
	types map[string]string
	args  []any
}

// bind appends v to the argument list and returns its placeholder.
func (b *builder) bind(v any) string {
	b.args = append(b.args, v)
	return b.d.FormatPlaceholder(len(b.args))
}

func (b *builder) filter(f core.Filter) (string, error) {
	col := b.d.QuoteIdentifier(f.Column)
	dataType := b.types[f.Column]
	switch f.Op {
	case core.OpIn:
		ps := make([]string, len(f.Values))
		for i, v := range f.Values {
			cv, err := coerce(f.Column, dataType, v)
			if err != nil {
				return "", err
			}
			ps[i] = b.bind(cv)
		}
		return col + " IN (" + strings.Join(ps, ", ") + ")", nil
	}
	cv, err := coerce(f.Column, dataType, f.Value)
	if err != nil {
		return "", err
	}
	if f.Op == core.OpNe {
		return col + " <> " + b.bind(cv), nil
	}
	return col + " " + string(f.Op) + " " + b.bind(cv), nil
}

func aliased(expr, alias string) string {
	if expr == alias {
		return expr
	}
	return expr + " AS " + alias
}

func joinNonEmpty(parts []string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

func allowlist(columns []core.Column) map[string]struct{} {
	if len(columns) == 0 {
		return nil
	}
	m := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		m[c.Name] = struct{}{}
	}
	return m
}

func checkIdent(allowed map[string]struct{}, field, name string) error {
	if allowed == nil {
		if !identPattern.MatchString(name) {
			return &core.ValidationError{Field: field, Reason: fmt.Sprintf("%q is not a plain identifier", name)}
		}
		return nil
	}
	if _, ok := allowed[name]; !ok {
		return &core.ValidationError{Field: field, Reason: fmt.Sprintf("unknown column %q", name)}
	}
	return nil
}
