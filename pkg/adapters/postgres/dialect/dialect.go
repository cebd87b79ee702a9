// Package dialect provides the PostgreSQL SQL dialect definition.
// This package is lightweight and has no database driver dependencies,
// so query generation can use it without opening a connection.
package dialect

import (
	"github.com/sergobb/timeseries-dashboard-platform-sub000/pkg/dialect"
)

func init() {
	dialect.Register(Postgres)
}

// Postgres is the PostgreSQL dialect configuration.
var Postgres = dialect.NewDialect("postgres").
	Identifiers(`"`, `"`, `""`).
	DefaultSchema("public").
	PlaceholderStyle(dialect.PlaceholderDollar).
	NumericType("NUMERIC(18,3)").
	TimeBucket(dialect.BucketDateTrunc).
	Aggregates("SUM", "COUNT", "AVG", "MIN", "MAX").
	Build()
