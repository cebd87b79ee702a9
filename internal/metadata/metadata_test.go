package metadata

import (
	"context"
	"errors"
	"testing"

	"github.com/sergobb/timeseries-dashboard-platform-sub000/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func col(name string, active bool) core.Column {
	return core.Column{Name: name, DataType: "double", Active: active}
}

func testCatalog() Catalog {
	return Catalog{
		Connections: []core.Connection{
			{ID: "pg", Dialect: core.DialectPostgres, Active: true},
			{ID: "duck", Dialect: core.DialectDuckDB, Active: true},
		},
		DataSources: []core.DataSource{
			{ID: "s1", ConnectionID: "pg", TableName: "t1", Columns: []core.Column{col("a", true), col("b", true)}},
			{ID: "s2", ConnectionID: "pg", TableName: "t2", Columns: []core.Column{col("b", true), col("c", true), col("hidden", false)}},
			{ID: "s3", ConnectionID: "duck", TableName: "t3", Columns: []core.Column{col("d", true)}},
		},
		DataSets: []core.DataSet{
			{ID: "combined", Type: core.DataSetCombined, DataSourceIDs: []string{"s1", "s2"}},
			{ID: "single", DataSourceIDs: []string{"s3"}},
			{ID: "nested", Type: core.DataSetCombined, DataSourceIDs: []string{"s3"}, DataSetIDs: []string{"combined"}},
			{ID: "loop-a", Type: core.DataSetCombined, DataSourceIDs: []string{"s1"}, DataSetIDs: []string{"loop-b"}},
			{ID: "loop-b", Type: core.DataSetCombined, DataSourceIDs: []string{"s2"}, DataSetIDs: []string{"loop-a"}},
			{ID: "dangling", DataSourceIDs: []string{"missing"}},
		},
	}
}

func names(cols []core.Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name
	}
	return out
}

func TestStatic_Get(t *testing.T) {
	ctx := context.Background()
	s := MustStatic(testCatalog())

	conn, err := s.GetConnection(ctx, "pg")
	require.NoError(t, err)
	assert.Equal(t, core.DialectPostgres, conn.Dialect)

	src, err := s.GetDataSource(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, "t2", src.TableName)

	ds, err := s.GetDataSet(ctx, "combined")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2"}, ds.DataSourceIDs)

	tests := []struct {
		name string
		call func() error
		kind string
	}{
		{"connection", func() error { _, err := s.GetConnection(ctx, "x"); return err }, "connection"},
		{"data source", func() error { _, err := s.GetDataSource(ctx, "x"); return err }, "data source"},
		{"data set", func() error { _, err := s.GetDataSet(ctx, "x"); return err }, "data set"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var nf *core.NotFoundError
			require.True(t, errors.As(tt.call(), &nf))
			assert.Equal(t, tt.kind, nf.Kind)
			assert.Equal(t, "x", nf.ID)
		})
	}
}

func TestStatic_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := MustStatic(testCatalog())

	src, err := s.GetDataSource(ctx, "s1")
	require.NoError(t, err)
	src.TableName = "mutated"

	again, err := s.GetDataSource(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "t1", again.TableName)
}

func TestNewStatic_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		catalog Catalog
	}{
		{"duplicate connection", Catalog{Connections: []core.Connection{{ID: "a"}, {ID: "a"}}}},
		{"empty source id", Catalog{DataSources: []core.DataSource{{TableName: "t"}}}},
		{"untyped multi-member data set", Catalog{DataSets: []core.DataSet{{ID: "d", DataSourceIDs: []string{"a", "b"}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStatic(tt.catalog)
			assert.Error(t, err)
		})
	}
}

func TestStatic_List(t *testing.T) {
	s := MustStatic(testCatalog())
	conns, err := s.ListConnections(context.Background())
	require.NoError(t, err)
	require.Len(t, conns, 2)
	assert.Equal(t, "duck", conns[0].ID)

	sets, err := s.ListDataSets(context.Background())
	require.NoError(t, err)
	assert.Len(t, sets, 6)
}

func TestColumns(t *testing.T) {
	s := MustStatic(testCatalog())

	tests := []struct {
		name    string
		dataSet string
		want    []string
	}{
		{"combined union keeps duplicates", "combined", []string{"a", "b", "b", "c"}},
		{"single source", "single", []string{"d"}},
		{"nested data set", "nested", []string{"d", "a", "b", "b", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cols, err := Columns(context.Background(), s, tt.dataSet)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(cols))
		})
	}
}

func TestColumns_Errors(t *testing.T) {
	s := MustStatic(testCatalog())

	_, err := Columns(context.Background(), s, "loop-a")
	var ve *core.ValidationError
	assert.True(t, errors.As(err, &ve), "cycle should be a validation error, got %v", err)

	_, err = Columns(context.Background(), s, "dangling")
	var nf *core.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "data source", nf.Kind)

	_, err = Columns(context.Background(), s, "nope")
	assert.True(t, errors.As(err, &nf))
}
