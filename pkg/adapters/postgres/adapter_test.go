package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sergobb/timeseries-dashboard-platform-sub000/pkg/adapter"
	"github.com/sergobb/timeseries-dashboard-platform-sub000/pkg/core"
)

func TestBuildPostgresDSN(t *testing.T) {
	tests := []struct {
		name     string
		config   adapter.Config
		expected string
	}{
		{
			name: "basic connection",
			config: adapter.Config{
				Host:     "localhost",
				Port:     5432,
				Database: "testdb",
				Username: "user",
				Password: "pass",
			},
			expected: "host=localhost port=5432 dbname=testdb sslmode=disable user=user password=pass",
		},
		{
			name: "with custom sslmode and extra options",
			config: adapter.Config{
				Host:     "prod.example.com",
				Port:     5432,
				Database: "proddb",
				Username: "admin",
				Options:  map[string]string{"sslmode": "require", "connect_timeout": "5"},
			},
			expected: "host=prod.example.com port=5432 dbname=proddb sslmode=require user=admin connect_timeout=5",
		},
		{
			name: "defaults",
			config: adapter.Config{
				Database: "mydb",
			},
			expected: "host=localhost port=5432 dbname=mydb sslmode=disable",
		},
		{
			name: "password needing quotes",
			config: adapter.Config{
				Host:     "db.example.com",
				Port:     5433,
				Database: "analytics",
				Username: "analyst",
				Password: `it's a secret`,
			},
			expected: `host=db.example.com port=5433 dbname=analytics sslmode=disable user=analyst password='it\'s a secret'`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buildPostgresDSN(tt.config))
		})
	}
}

func TestNormalizeValue(t *testing.T) {
	assert.Equal(t, 12.345, normalizeValue("NUMERIC", "12.345"))
	assert.Equal(t, "abc", normalizeValue("NUMERIC", "abc"))
	assert.Equal(t, "12.345", normalizeValue("TEXT", "12.345"))
	assert.Equal(t, int64(3), normalizeValue("NUMERIC", int64(3)))
}

func TestNew(t *testing.T) {
	adp := New(nil)

	assert.NotNil(t, adp)
	assert.Nil(t, adp.DB, "DB should be nil before Connect")
	assert.False(t, adp.IsConnected())
	assert.Equal(t, "postgres", adp.DialectName())
	assert.Equal(t, "postgres", adp.Dialect().Name)
	assert.Equal(t, "$2", adp.Dialect().FormatPlaceholder(2))

	var _ adapter.Adapter = adp
}

func TestAdapter_NotConnected(t *testing.T) {
	tests := []struct {
		name      string
		operation func(ctx context.Context, adp *Adapter) error
	}{
		{
			name: "query without connect",
			operation: func(ctx context.Context, adp *Adapter) error {
				_, err := adp.Query(ctx, "SELECT 1")
				return err
			},
		},
		{
			name: "list schemas without connect",
			operation: func(ctx context.Context, adp *Adapter) error {
				_, err := adp.ListSchemas(ctx)
				return err
			},
		},
		{
			name: "list tables without connect",
			operation: func(ctx context.Context, adp *Adapter) error {
				_, err := adp.ListTablesBySchema(ctx, "public")
				return err
			},
		},
		{
			name: "describe without connect",
			operation: func(ctx context.Context, adp *Adapter) error {
				_, err := adp.GetTableSchema(ctx, "metrics", "")
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.operation(context.Background(), New(nil))
			require.Error(t, err)
			assert.ErrorIs(t, err, adapter.ErrNotConnected)
		})
	}

	assert.False(t, New(nil).TestConnection(context.Background()))
}

func TestAdapter_ConnectFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	adp := New(nil)
	err := adp.Connect(ctx, adapter.Config{
		Host:     "127.0.0.1",
		Port:     1,
		Database: "nope",
		Options:  map[string]string{"connect_timeout": "1"},
	})

	var cerr *core.ConnectionError
	require.True(t, errors.As(err, &cerr), "expected ConnectionError, got %v", err)
	assert.Equal(t, core.DialectPostgres, cerr.Dialect)
	assert.False(t, adp.IsConnected())
	assert.NoError(t, adp.Close())
}

func TestAdapter_Registry(t *testing.T) {
	assert.True(t, adapter.IsRegistered("postgres"))

	adp, err := adapter.NewAdapter(core.DialectPostgres, nil)
	require.NoError(t, err)

	pg, ok := adp.(*Adapter)
	require.True(t, ok, "factory should return *Adapter")
	assert.Equal(t, "postgres", pg.DialectName())
}

func TestAdapter_Close(t *testing.T) {
	adp := New(nil)
	assert.NoError(t, adp.Close())
	assert.NoError(t, adp.Close())
}

// TestAdapter_Live runs against a real server when DASHQUERY_TEST_POSTGRES_HOST is set.
func TestAdapter_Live(t *testing.T) {
	host := os.Getenv("DASHQUERY_TEST_POSTGRES_HOST")
	if host == "" {
		t.Skip("DASHQUERY_TEST_POSTGRES_HOST not set")
	}

	ctx := context.Background()
	adp := New(nil)
	require.NoError(t, adp.Connect(ctx, adapter.Config{
		Host:     host,
		Database: os.Getenv("DASHQUERY_TEST_POSTGRES_DB"),
		Username: os.Getenv("DASHQUERY_TEST_POSTGRES_USER"),
		Password: os.Getenv("DASHQUERY_TEST_POSTGRES_PASSWORD"),
	}))
	defer func() { _ = adp.Close() }()

	require.NoError(t, adp.Connect(ctx, adapter.Config{}), "second connect is a no-op")
	assert.True(t, adp.TestConnection(ctx))

	rows, err := adp.Query(ctx, `SELECT CAST($1 AS NUMERIC(18,3)) AS v`, "1.5")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1.5, rows[0]["v"])

	schemas, err := adp.ListSchemas(ctx)
	require.NoError(t, err)
	assert.Contains(t, schemas, "public")
	assert.NotContains(t, schemas, "pg_catalog")
}
