// Package postgres provides a PostgreSQL database adapter for dashquery.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/sergobb/timeseries-dashboard-platform-sub000/pkg/adapter"
	"github.com/sergobb/timeseries-dashboard-platform-sub000/pkg/adapters/postgres/dialect"
	"github.com/sergobb/timeseries-dashboard-platform-sub000/pkg/core"
	pkgdialect "github.com/sergobb/timeseries-dashboard-platform-sub000/pkg/dialect"
)

// systemSchemas are hidden from ListSchemas.
var systemSchemas = []string{"information_schema"}

// Adapter implements the adapter.Adapter interface for PostgreSQL.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new PostgreSQL adapter instance.
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
	return string(core.DialectPostgres)
}

// Dialect returns the PostgreSQL dialect.
func (a *Adapter) Dialect() *pkgdialect.Dialect {
	return dialect.Postgres
}

// Connect establishes a connection to PostgreSQL.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	if a.DB != nil {
		return nil
	}

	a.Logger.Debug("connecting to postgres", slog.String("host", cfg.Host), slog.String("database", cfg.Database))

	connCfg, err := pgx.ParseConfig(buildPostgresDSN(cfg))
	if err != nil {
		return &core.ConnectionError{Dialect: core.DialectPostgres, Err: fmt.Errorf("invalid connection settings: %w", err)}
	}
	if connCfg.RuntimeParams == nil {
		connCfg.RuntimeParams = make(map[string]string)
	}
	connCfg.RuntimeParams["application_name"] = "dashquery"
	if cfg.Schema != "" {
		connCfg.RuntimeParams["search_path"] = cfg.Schema
	}

	db := stdlib.OpenDB(*connCfg)
	// one session per request
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return &core.ConnectionError{Dialect: core.DialectPostgres, Err: err}
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// buildPostgresDSN constructs a PostgreSQL keyword/value connection string.
// Options are appended in key order after the fixed keys.
func buildPostgresDSN(cfg adapter.Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	sslmode := "disable"
	if mode, ok := cfg.Options["sslmode"]; ok {
		sslmode = mode
	}

	parts := []string{
		"host=" + dsnValue(host),
		"port=" + strconv.Itoa(port),
		"dbname=" + dsnValue(cfg.Database),
		"sslmode=" + dsnValue(sslmode),
	}
	if cfg.Username != "" {
		parts = append(parts, "user="+dsnValue(cfg.Username))
	}
	if cfg.Password != "" {
		parts = append(parts, "password="+dsnValue(cfg.Password))
	}

	keys := make([]string, 0, len(cfg.Options))
	for k := range cfg.Options {
		if k != "sslmode" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+"="+dsnValue(cfg.Options[k]))
	}

	return strings.Join(parts, " ")
}

// dsnValue quotes a keyword/value DSN value when it is empty or contains
// spaces, quotes or backslashes.
func dsnValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	escaped := strings.ReplaceAll(v, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `'`, `\'`)
	return "'" + escaped + "'"
}

// ListSchemas returns non-system schemas.
func (a *Adapter) ListSchemas(ctx context.Context) ([]string, error) {
	return a.ListSchemasCommon(ctx, systemSchemas)
}

// ListTablesBySchema returns the tables of one schema ("public" when empty).
func (a *Adapter) ListTablesBySchema(ctx context.Context, schema string) ([]string, error) {
	return a.ListTablesCommon(ctx, schema, dialect.Postgres)
}

// GetTableSchema describes the columns of a table.
func (a *Adapter) GetTableSchema(ctx context.Context, table, schema string) ([]core.ColumnSchema, error) {
	return a.GetTableSchemaCommon(ctx, table, schema, dialect.Postgres)
}

// normalizeValue converts NUMERIC text to float64.
func normalizeValue(dbType string, v any) any {
	if dbType != "NUMERIC" {
		return v
	}
	s, ok := v.(string)
	if !ok {
		return v
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return v
	}
	return f
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
