// Package metadata provides read-only access to the catalog of connections,
// data sources and data sets consumed by the query engine.
package metadata

import (
	"context"

	"github.com/sergobb/timeseries-dashboard-platform-sub000/pkg/core"
)

// Provider resolves catalog records by id. Missing records are reported as
// *core.NotFoundError.
type Provider interface {
	GetConnection(ctx context.Context, id string) (*core.Connection, error)
	GetDataSource(ctx context.Context, id string) (*core.DataSource, error)
	GetDataSet(ctx context.Context, id string) (*core.DataSet, error)
}

// Lister is implemented by providers that can enumerate their records.
type Lister interface {
	ListConnections(ctx context.Context) ([]core.Connection, error)
	ListDataSets(ctx context.Context) ([]core.DataSet, error)
}

// Catalog is the full set of records held by a provider.
type Catalog struct {
	Connections []core.Connection `json:"connections" koanf:"connections"`
	DataSources []core.DataSource `json:"dataSources" koanf:"data_sources"`
	DataSets    []core.DataSet    `json:"dataSets" koanf:"data_sets"`
}
