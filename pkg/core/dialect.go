package core

// DialectConfig holds the static configuration for a SQL dialect.
// The runtime behavior lives in pkg/dialect.Dialect, which embeds this config.
type DialectConfig struct {
	// Name is the dialect identifier ("duckdb", "postgres").
	Name string

	// Identifiers defines quoting rules.
	Identifiers IdentifierConfig

	// DefaultSchema is "main" for DuckDB, "public" for Postgres.
	DefaultSchema string

	// Placeholder defines how query parameters are formatted.
	Placeholder PlaceholderStyle

	// NumericType is the fixed-precision type Y values are cast to.
	NumericType string

	// Bucket selects the time truncation function family.
	Bucket BucketStyle
}

// PlaceholderStyle defines how query parameters are formatted.
type PlaceholderStyle int

const (
	// PlaceholderQuestion uses ? for all parameters (DuckDB, SQLite).
	PlaceholderQuestion PlaceholderStyle = iota
	// PlaceholderDollar uses $1, $2, etc. for parameters (PostgreSQL).
	PlaceholderDollar
)

// BucketStyle selects how a timestamp is truncated to a resolution.
type BucketStyle int

const (
	// BucketDateTrunc renders date_trunc('hour', x).
	BucketDateTrunc BucketStyle = iota
	// BucketTimeBucket renders time_bucket(INTERVAL '1 hour', x).
	BucketTimeBucket
)

// IdentifierConfig defines how identifiers are quoted.
type IdentifierConfig struct {
	Quote    string // Quote character: ", `, [
	QuoteEnd string // End quote character (usually same as Quote, ] for [)
	Escape   string // Escape sequence: "", ``, ]]
}
