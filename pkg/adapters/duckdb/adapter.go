// Package duckdb provides a DuckDB database adapter for dashquery.
package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"log/slog"

	"github.com/marcboeker/go-duckdb"

	"github.com/sergobb/timeseries-dashboard-platform-sub000/pkg/adapter"
	"github.com/sergobb/timeseries-dashboard-platform-sub000/pkg/adapters/duckdb/dialect"
	"github.com/sergobb/timeseries-dashboard-platform-sub000/pkg/core"
	pkgdialect "github.com/sergobb/timeseries-dashboard-platform-sub000/pkg/dialect"
)

var systemSchemas = []string{"information_schema"}

// Adapter implements the adapter.Adapter interface for DuckDB.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new DuckDB adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{
			Logger:    logger,
			Normalize: normalizeValue,
		},
	}
}

// DialectName returns the SQL dialect for this adapter.
func (a *Adapter) DialectName() string {
	return string(core.DialectDuckDB)
}

// Dialect returns the DuckDB dialect.
func (a *Adapter) Dialect() *pkgdialect.Dialect {
	return dialect.DuckDB
}

// Connect opens the DuckDB database file named by cfg.Path, falling back to
// cfg.Database. Use ":memory:" for an in-memory database.
// Options["access_mode"] is passed through to the DSN (e.g. "read_only").
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	if a.DB != nil {
		return nil
	}

	path := cfg.Path
	if path == "" {
		path = cfg.Database
	}
	if path == "" {
		path = ":memory:"
	}
	dsn := path
	if mode, ok := cfg.Options["access_mode"]; ok && path != ":memory:" {
		dsn += "?access_mode=" + mode
	}

	params, err := parseParams(cfg.Params)
	if err != nil {
		return &core.ConnectionError{Dialect: core.DialectDuckDB, Err: err}
	}
	stmts := params.setupStatements()

	a.Logger.Debug("connecting to duckdb", slog.String("path", path), slog.Int("setup_statements", len(stmts)))

	connector, err := duckdb.NewConnector(dsn, func(execer driver.ExecerContext) error {
		for _, stmt := range stmts {
			if _, err := execer.ExecContext(ctx, stmt, nil); err != nil {
				return fmt.Errorf("session setup %q: %w", stmt, err)
			}
		}
		return nil
	})
	if err != nil {
		return &core.ConnectionError{Dialect: core.DialectDuckDB, Err: err}
	}

	db := sql.OpenDB(connector)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return &core.ConnectionError{Dialect: core.DialectDuckDB, Err: err}
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// ListSchemas returns non-system schemas across attached catalogs.
func (a *Adapter) ListSchemas(ctx context.Context) ([]string, error) {
	return a.ListSchemasCommon(ctx, systemSchemas)
}

// ListTablesBySchema returns the tables of one schema ("main" when empty).
func (a *Adapter) ListTablesBySchema(ctx context.Context, schema string) ([]string, error) {
	return a.ListTablesCommon(ctx, schema, dialect.DuckDB)
}

// GetTableSchema describes the columns of a table.
func (a *Adapter) GetTableSchema(ctx context.Context, table, schema string) ([]core.ColumnSchema, error) {
	return a.GetTableSchemaCommon(ctx, table, schema, dialect.DuckDB)
}

// normalizeValue converts DuckDB-specific scan types to JSON-friendly values.
func normalizeValue(_ string, v any) any {
	switch val := v.(type) {
	case duckdb.Decimal:
		return val.Float64()
	case duckdb.UUID:
		return val.String()
	default:
		return v
	}
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
