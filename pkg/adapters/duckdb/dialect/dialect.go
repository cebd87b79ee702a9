// Package dialect provides the DuckDB SQL dialect definition.
// This package is lightweight and has no database driver dependencies,
// so query generation can use it without opening a connection.
package dialect

import (
	"github.com/sergobb/timeseries-dashboard-platform-sub000/pkg/dialect"
)

func init() {
	dialect.Register(DuckDB)
}

// DuckDB is the DuckDB dialect configuration.
var DuckDB = dialect.NewDialect("duckdb").
	Identifiers(`"`, `"`, `""`).
	DefaultSchema("main").
	PlaceholderStyle(dialect.PlaceholderQuestion).
	NumericType("DECIMAL(18,3)").
	TimeBucket(dialect.BucketTimeBucket).
	Aggregates("SUM", "COUNT", "AVG", "MIN", "MAX", "FIRST", "LAST", "MEDIAN").
	Build()
