package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/sergobb/timeseries-dashboard-platform-sub000/pkg/core"
	"github.com/sergobb/timeseries-dashboard-platform-sub000/pkg/dialect"
)

// ErrNotConnected is returned by operations on an adapter without a session.
var ErrNotConnected = errors.New("database connection not established")

// NormalizeFunc converts one driver value into a JSON-friendly value.
// dbType is the driver's DatabaseTypeName for the column.
type NormalizeFunc func(dbType string, v any) any

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed this struct in concrete adapter implementations to get standard
// Close, Exec, Query and TestConnection implementations.
type BaseSQLAdapter struct {
	DB     *sql.DB
	Cfg    core.AdapterConfig
	Logger *slog.Logger

	// Normalize runs after NormalizeValue for dialect-specific types.
	Normalize NormalizeFunc
}

func (b *BaseSQLAdapter) logger() *slog.Logger {
	if b.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.Logger
}

// Close closes the database connection. A second call is a no-op.
func (b *BaseSQLAdapter) Close() error {
	if b.DB == nil {
		return nil
	}
	b.logger().Debug("closing database connection")
	db := b.DB
	b.DB = nil
	return db.Close()
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

// Exec executes a SQL statement that doesn't return rows.
func (b *BaseSQLAdapter) Exec(ctx context.Context, sqlStr string, args ...any) error {
	if b.DB == nil {
		return ErrNotConnected
	}
	if _, err := b.DB.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

// TestConnection runs SELECT 1 and reports whether it succeeded.
func (b *BaseSQLAdapter) TestConnection(ctx context.Context) bool {
	if b.DB == nil {
		return false
	}
	var one int
	if err := b.DB.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		b.logger().Debug("connection test failed", slog.String("error", err.Error()))
		return false
	}
	return one == 1
}

// Query executes a SQL statement and materializes every row as a map.
func (b *BaseSQLAdapter) Query(ctx context.Context, sqlStr string, args ...any) ([]core.Row, error) {
	if b.DB == nil {
		return nil, &core.QueryError{SQL: sqlStr, Err: ErrNotConnected}
	}

	start := time.Now()
	rows, err := b.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, &core.QueryError{SQL: sqlStr, Err: err}
	}
	defer func() { _ = rows.Close() }()

	result, err := b.scanRows(rows)
	if err != nil {
		return nil, &core.QueryError{SQL: sqlStr, Err: err}
	}

	b.logger().Debug("query executed",
		slog.Int("rows", len(result)),
		slog.Duration("duration", time.Since(start)))
	return result, nil
}

func (b *BaseSQLAdapter) scanRows(rows *sql.Rows) ([]core.Row, error) {
	cols, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to read column types: %w", err)
	}

	result := make([]core.Row, 0)
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make(core.Row, len(cols))
		for i, col := range cols {
			v := NormalizeValue(values[i])
			if b.Normalize != nil {
				v = b.Normalize(col.DatabaseTypeName(), v)
			}
			row[col.Name()] = v
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return result, nil
}

// NormalizeValue converts driver values that do not survive JSON encoding.
// Byte slices become strings; times become RFC 3339 UTC strings.
func NormalizeValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	default:
		return v
	}
}

// ParseQualifiedName splits a table reference into schema and name.
// Uses the dialect's default schema if not specified.
func ParseQualifiedName(table string, d *dialect.Dialect) (schema, name string) {
	if parts := strings.Split(table, "."); len(parts) == 2 {
		return parts[0], parts[1]
	}
	return d.DefaultSchema, table
}

// ListSchemasCommon lists information_schema schemata, skipping system schemas.
func (b *BaseSQLAdapter) ListSchemasCommon(ctx context.Context, system []string) ([]string, error) {
	if b.DB == nil {
		return nil, ErrNotConnected
	}
	rows, err := b.DB.QueryContext(ctx, `SELECT DISTINCT schema_name FROM information_schema.schemata ORDER BY schema_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list schemas: %w", err)
	}
	defer func() { _ = rows.Close() }()

	schemas := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan schema name: %w", err)
		}
		if slices.Contains(system, name) || strings.HasPrefix(name, "pg_") {
			continue
		}
		schemas = append(schemas, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schemas: %w", err)
	}
	return schemas, nil
}

// ListTablesCommon lists base tables and views of one schema.
func (b *BaseSQLAdapter) ListTablesCommon(ctx context.Context, schema string, d *dialect.Dialect) ([]string, error) {
	if b.DB == nil {
		return nil, ErrNotConnected
	}
	if schema == "" {
		schema = d.DefaultSchema
	}

	//nolint:gosec // Placeholders are safe - they come from dialect.FormatPlaceholder
	query := fmt.Sprintf(`
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = %s
		ORDER BY table_name
	`, d.FormatPlaceholder(1))

	rows, err := b.DB.QueryContext(ctx, query, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	tables := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}
	return tables, nil
}

// GetTableSchemaCommon provides a shared implementation of GetTableSchema.
// Uses information_schema.columns with dialect-appropriate placeholders.
// A schema-qualified table overrides the schema argument.
func (b *BaseSQLAdapter) GetTableSchemaCommon(ctx context.Context, table, schema string, d *dialect.Dialect) ([]core.ColumnSchema, error) {
	if b.DB == nil {
		return nil, ErrNotConnected
	}

	qualSchema, tableName := ParseQualifiedName(table, d)
	if schema == "" || strings.Contains(table, ".") {
		schema = qualSchema
	}

	//nolint:gosec // Placeholders are safe - they come from dialect.FormatPlaceholder
	query := fmt.Sprintf(`
		SELECT
			column_name,
			data_type,
			is_nullable,
			column_default
		FROM information_schema.columns
		WHERE table_schema = %s AND table_name = %s
		ORDER BY ordinal_position
	`, d.FormatPlaceholder(1), d.FormatPlaceholder(2))

	rows, err := b.DB.QueryContext(ctx, query, schema, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var columns []core.ColumnSchema
	for rows.Next() {
		var col core.ColumnSchema
		var nullable string
		var def sql.NullString
		if err := rows.Scan(&col.ColumnName, &col.DataType, &nullable, &def); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		col.Nullable = nullable == "YES"
		if def.Valid {
			col.Default = &def.String
		}
		columns = append(columns, col)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}

	if len(columns) == 0 {
		return nil, &core.NotFoundError{Kind: "table", ID: schema + "." + tableName}
	}
	return columns, nil
}
