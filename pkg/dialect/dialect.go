// Package dialect provides SQL dialect configuration for query generation.
//
// A Dialect knows how to quote identifiers and literals, format bind
// parameters, cast to fixed precision and truncate timestamps to a bucket.
// Concrete dialects are registered from pkg/adapters/*/dialect packages.
package dialect

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sergobb/timeseries-dashboard-platform-sub000/pkg/core"
)

// Dialect represents a SQL dialect configuration.
type Dialect struct {
	Name        string
	Identifiers core.IdentifierConfig

	// Database-specific settings
	DefaultSchema string                // Default schema name ("main" for DuckDB, "public" for Postgres)
	Placeholder   core.PlaceholderStyle // How to format query parameters
	NumericType   string                // Target type of NumericCast
	Bucket        core.BucketStyle      // Timestamp truncation family

	aggregates map[string]struct{}
}

// Config returns the pure data configuration for this dialect.
func (d *Dialect) Config() *core.DialectConfig {
	return &core.DialectConfig{
		Name:          d.Name,
		Identifiers:   d.Identifiers,
		DefaultSchema: d.DefaultSchema,
		Placeholder:   d.Placeholder,
		NumericType:   d.NumericType,
		Bucket:        d.Bucket,
	}
}

// GetName returns the dialect name.
func (d *Dialect) GetName() string {
	return d.Name
}

// IsAggregate returns true if the dialect supports the named aggregate function.
func (d *Dialect) IsAggregate(name string) bool {
	_, ok := d.aggregates[strings.ToUpper(name)]
	return ok
}

// FormatPlaceholder returns a placeholder for the given parameter index (1-based).
// Returns "?" for PlaceholderQuestion style, "$1", "$2" etc. for PlaceholderDollar style.
func (d *Dialect) FormatPlaceholder(index int) string {
	switch d.Placeholder {
	case core.PlaceholderDollar:
		return "$" + strconv.Itoa(index)
	default: // PlaceholderQuestion
		return "?"
	}
}

// QuoteIdentifier quotes an identifier using the dialect's quote characters.
func (d *Dialect) QuoteIdentifier(name string) string {
	// Escape any existing quote end characters in the name (e.g., " -> "")
	escaped := strings.ReplaceAll(name, d.Identifiers.QuoteEnd, d.Identifiers.Escape)
	return d.Identifiers.Quote + escaped + d.Identifiers.QuoteEnd
}

// QuoteQualified quotes each dot-separated part of a qualified name.
func (d *Dialect) QuoteQualified(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = d.QuoteIdentifier(p)
	}
	return strings.Join(parts, ".")
}

// QuoteLiteral renders s as a single-quoted SQL string literal.
func (d *Dialect) QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Literal renders a Go value as an inline SQL literal.
// Used for display only; executed SQL always binds parameters.
func (d *Dialect) Literal(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return d.QuoteLiteral(val)
	case bool:
		if val {
			return "TRUE"
		}
		return "FALSE"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", val)
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case time.Time:
		return d.QuoteLiteral(val.UTC().Format(core.ISOLayout))
	case core.Timestamp:
		return d.QuoteLiteral(val.ISO())
	default:
		return d.QuoteLiteral(fmt.Sprint(val))
	}
}

// NumericCast casts expr to the dialect's fixed-precision numeric type.
func (d *Dialect) NumericCast(expr string) string {
	return "CAST(" + expr + " AS " + d.NumericType + ")"
}

// BucketSource is the form of expr that TimeBucket truncates. time_bucket
// has no TIMESTAMPTZ overload without the ICU extension, so that style
// truncates the column as a plain TIMESTAMP.
func (d *Dialect) BucketSource(expr string) string {
	if d.Bucket == core.BucketTimeBucket {
		return "CAST(" + expr + " AS TIMESTAMP)"
	}
	return expr
}

// TimeBucket truncates expr to one unit of the given resolution.
// Postgres style: date_trunc('hour', x). DuckDB style:
// time_bucket(INTERVAL '1 hour', CAST(x AS TIMESTAMP)).
func (d *Dialect) TimeBucket(unit core.TimeUnit, expr string) (string, error) {
	name, ok := bucketUnits[unit]
	if !ok {
		return "", &core.ValidationError{Field: "resolution", Reason: fmt.Sprintf("unknown time unit %q", unit)}
	}
	switch d.Bucket {
	case core.BucketTimeBucket:
		return "time_bucket(INTERVAL '1 " + name + "', " + d.BucketSource(expr) + ")", nil
	default:
		return "date_trunc('" + name + "', " + expr + ")", nil
	}
}

var bucketUnits = map[core.TimeUnit]string{
	core.UnitSeconds: "second",
	core.UnitMinutes: "minute",
	core.UnitHours:   "hour",
	core.UnitDays:    "day",
}

// ---------- Builder ----------

// Builder provides a fluent API for constructing dialects.
type Builder struct {
	dialect *Dialect
}

// NewDialect creates a new dialect builder with the given name.
func NewDialect(name string) *Builder {
	return &Builder{
		dialect: &Dialect{
			Name: name,
			Identifiers: core.IdentifierConfig{
				Quote:    `"`,
				QuoteEnd: `"`,
				Escape:   `""`,
			},
			NumericType: "NUMERIC(18,3)",
			aggregates:  make(map[string]struct{}),
		},
	}
}

// New creates a dialect builder from a DialectConfig.
func New(cfg *core.DialectConfig) *Builder {
	return &Builder{
		dialect: &Dialect{
			Name:          cfg.Name,
			Identifiers:   cfg.Identifiers,
			DefaultSchema: cfg.DefaultSchema,
			Placeholder:   cfg.Placeholder,
			NumericType:   cfg.NumericType,
			Bucket:        cfg.Bucket,
			aggregates:    make(map[string]struct{}),
		},
	}
}

// Identifiers configures identifier quoting.
func (b *Builder) Identifiers(quote, quoteEnd, escape string) *Builder {
	b.dialect.Identifiers = core.IdentifierConfig{
		Quote:    quote,
		QuoteEnd: quoteEnd,
		Escape:   escape,
	}
	return b
}

// Aggregates adds aggregate function names.
func (b *Builder) Aggregates(funcs ...string) *Builder {
	for _, f := range funcs {
		b.dialect.aggregates[strings.ToUpper(f)] = struct{}{}
	}
	return b
}

// DefaultSchema sets the default schema name.
func (b *Builder) DefaultSchema(schema string) *Builder {
	b.dialect.DefaultSchema = schema
	return b
}

// PlaceholderStyle sets the query parameter placeholder style.
func (b *Builder) PlaceholderStyle(style core.PlaceholderStyle) *Builder {
	b.dialect.Placeholder = style
	return b
}

// NumericType sets the target type of NumericCast.
func (b *Builder) NumericType(t string) *Builder {
	b.dialect.NumericType = t
	return b
}

// TimeBucket sets the timestamp truncation family.
func (b *Builder) TimeBucket(style core.BucketStyle) *Builder {
	b.dialect.Bucket = style
	return b
}

// Build returns the constructed dialect.
func (b *Builder) Build() *Dialect {
	return b.dialect
}

// Re-exported placeholder styles so dialect packages need not import core.
const (
	PlaceholderQuestion = core.PlaceholderQuestion
	PlaceholderDollar   = core.PlaceholderDollar
)

// Re-exported bucket styles.
const (
	BucketDateTrunc  = core.BucketDateTrunc
	BucketTimeBucket = core.BucketTimeBucket
)
