// Package adapter provides the database driver contract for the dashquery engine.
//
// This package contains the public contract that all database adapters must implement.
// Concrete adapter implementations are in pkg/adapters/ subdirectories and
// register themselves with the factory registry from init().
package adapter

import (
	"context"

	"github.com/sergobb/timeseries-dashboard-platform-sub000/pkg/core"
	"github.com/sergobb/timeseries-dashboard-platform-sub000/pkg/dialect"
)

// Config is an alias for core.AdapterConfig.
type Config = core.AdapterConfig

// Adapter defines the interface that all database adapters must implement.
// An adapter owns at most one backend session, opened by Connect and
// released by Close.
type Adapter interface {
	// Connect opens the session. Calling it on a connected adapter is a no-op.
	// Failures are reported as *core.ConnectionError.
	Connect(ctx context.Context, cfg Config) error

	// TestConnection reports whether a trivial round trip succeeds.
	TestConnection(ctx context.Context) bool

	// ListSchemas returns user-visible schemas; empty for dialects without schemas.
	ListSchemas(ctx context.Context) ([]string, error)

	// ListTablesBySchema returns the tables of one schema.
	// An empty schema means the dialect's default schema.
	ListTablesBySchema(ctx context.Context, schema string) ([]string, error)

	// GetTableSchema describes the columns of a table.
	GetTableSchema(ctx context.Context, table, schema string) ([]core.ColumnSchema, error)

	// Query executes a parameterized SQL statement and returns flat rows.
	// Failures are reported as *core.QueryError.
	Query(ctx context.Context, sql string, args ...any) ([]core.Row, error)

	// Close releases the session. Safe without Connect and safe to call twice.
	Close() error

	// Dialect returns the SQL dialect spoken by this adapter.
	Dialect() *dialect.Dialect
}
