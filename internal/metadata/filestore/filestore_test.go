package filestore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sergobb/timeseries-dashboard-platform-sub000/internal/metadata"
	"github.com/sergobb/timeseries-dashboard-platform-sub000/internal/testutil"
	"github.com/sergobb/timeseries-dashboard-platform-sub000/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalogYAML = `
connections:
  - id: warehouse
    name: Warehouse
    dialect: postgres
    host: db.internal
    port: 5432
    database: metrics
    username: reader
    encrypted_password: "env:WAREHOUSE_PASSWORD"
    active: true
    options:
      sslmode: require
  - id: lake
    dialect: duckdb
    database: /data/lake.duckdb
    active: true
    params:
      settings:
        threads: 4

data_sources:
  - id: cpu_raw
    connection_id: lake
    table_name: cpu
    columns:
      - {name: ts, data_type: TIMESTAMP, active: true}
      - {name: usage, data_type: DOUBLE, active: true}
  - id: cpu_1h
    connection_id: lake
    table_name: cpu_hourly
    schema_name: agg
    columns:
      - {name: ts, data_type: TIMESTAMP, active: true}
      - {name: usage, data_type: DOUBLE, active: true}
      - {name: legacy, data_type: DOUBLE, active: false}

data_sets:
  - id: cpu
    name: CPU usage
    type: preaggregated
    data_source_ids: [cpu_raw, cpu_1h]
    tiers:
      - {data_source_id: cpu_1h, interval: 1, time_unit: hours}
`

func writeCatalog(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestOpen(t *testing.T) {
	path := writeCatalog(t, t.TempDir(), catalogYAML)
	s, err := Open(path, testutil.NewTestLogger(t))
	require.NoError(t, err)
	ctx := context.Background()

	conn, err := s.GetConnection(ctx, "warehouse")
	require.NoError(t, err)
	assert.Equal(t, core.DialectPostgres, conn.Dialect)
	assert.Equal(t, 5432, conn.Port)
	assert.Equal(t, "env:WAREHOUSE_PASSWORD", conn.EncryptedPassword)
	assert.True(t, conn.Active)
	assert.Equal(t, "require", conn.Options["sslmode"])

	lake, err := s.GetConnection(ctx, "lake")
	require.NoError(t, err)
	assert.Contains(t, lake.Params, "settings")

	src, err := s.GetDataSource(ctx, "cpu_1h")
	require.NoError(t, err)
	assert.Equal(t, "agg.cpu_hourly", src.QualifiedName())
	assert.Len(t, src.Columns, 3)
	assert.Len(t, src.ActiveColumns(), 2)

	ds, err := s.GetDataSet(ctx, "cpu")
	require.NoError(t, err)
	assert.Equal(t, core.DataSetPreaggregated, ds.Type)
	require.Len(t, ds.Tiers, 1)
	assert.Equal(t, int64(3600), ds.Tiers[0].IntervalSeconds())

	_, err = s.GetDataSet(ctx, "missing")
	var nf *core.NotFoundError
	assert.True(t, errors.As(err, &nf))

	cols, err := metadata.Columns(ctx, s, "cpu")
	require.NoError(t, err)
	assert.Len(t, cols, 4)
}

func TestOpen_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Open(filepath.Join(dir, "absent.yaml"), nil)
	assert.Error(t, err)

	bad := writeCatalog(t, dir, "data_sets:\n  - id: d\n    data_source_ids: [a, b]\n")
	_, err = Open(bad, nil)
	var ve *core.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestLoad(t *testing.T) {
	path := writeCatalog(t, t.TempDir(), catalogYAML)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, c.Connections, 2)
	assert.Len(t, c.DataSources, 2)
	assert.Len(t, c.DataSets, 1)
}

func TestReload_KeepsSnapshotOnError(t *testing.T) {
	dir := t.TempDir()
	path := writeCatalog(t, dir, catalogYAML)
	s, err := Open(path, nil)
	require.NoError(t, err)

	writeCatalog(t, dir, "connections: [\n")
	assert.Error(t, s.Reload())

	_, err = s.GetConnection(context.Background(), "warehouse")
	assert.NoError(t, err)
	assert.Equal(t, int64(1), s.Reloads())
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	path := writeCatalog(t, dir, catalogYAML)
	s, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, s.Watch())
	t.Cleanup(func() { _ = s.Close() })

	updated := catalogYAML + `
  - id: cpu_raw_only
    data_source_ids: [cpu_raw]
`
	writeCatalog(t, dir, updated)

	assert.Eventually(t, func() bool {
		_, err := s.GetDataSet(context.Background(), "cpu_raw_only")
		return err == nil
	}, 5*time.Second, 50*time.Millisecond)
}
