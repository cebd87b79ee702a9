package metadata

import (
	"context"
	"fmt"
	"sort"

	"github.com/sergobb/timeseries-dashboard-platform-sub000/pkg/core"
)

// Static is an immutable in-memory provider.
type Static struct {
	connections map[string]core.Connection
	sources     map[string]core.DataSource
	sets        map[string]core.DataSet
}

// NewStatic indexes a catalog. Duplicate ids and invalid data sets are rejected.
func NewStatic(c Catalog) (*Static, error) {
	s := &Static{
		connections: make(map[string]core.Connection, len(c.Connections)),
		sources:     make(map[string]core.DataSource, len(c.DataSources)),
		sets:        make(map[string]core.DataSet, len(c.DataSets)),
	}
	for _, conn := range c.Connections {
		if conn.ID == "" {
			return nil, &core.ValidationError{Field: "connections.id", Reason: "is required"}
		}
		if _, dup := s.connections[conn.ID]; dup {
			return nil, fmt.Errorf("duplicate connection id %q", conn.ID)
		}
		s.connections[conn.ID] = conn
	}
	for _, src := range c.DataSources {
		if src.ID == "" {
			return nil, &core.ValidationError{Field: "data_sources.id", Reason: "is required"}
		}
		if _, dup := s.sources[src.ID]; dup {
			return nil, fmt.Errorf("duplicate data source id %q", src.ID)
		}
		s.sources[src.ID] = src
	}
	for _, ds := range c.DataSets {
		if err := ds.Validate(); err != nil {
			return nil, fmt.Errorf("data set %q: %w", ds.ID, err)
		}
		if _, dup := s.sets[ds.ID]; dup {
			return nil, fmt.Errorf("duplicate data set id %q", ds.ID)
		}
		s.sets[ds.ID] = ds
	}
	return s, nil
}

// MustStatic is NewStatic for fixtures; it panics on an invalid catalog.
func MustStatic(c Catalog) *Static {
	s, err := NewStatic(c)
	if err != nil {
		panic(err)
	}
	return s
}

// GetConnection implements Provider.
func (s *Static) GetConnection(_ context.Context, id string) (*core.Connection, error) {
	conn, ok := s.connections[id]
	if !ok {
		return nil, &core.NotFoundError{Kind: "connection", ID: id}
	}
	return &conn, nil
}

// GetDataSource implements Provider.
func (s *Static) GetDataSource(_ context.Context, id string) (*core.DataSource, error) {
	src, ok := s.sources[id]
	if !ok {
		return nil, &core.NotFoundError{Kind: "data source", ID: id}
	}
	return &src, nil
}

// GetDataSet implements Provider.
func (s *Static) GetDataSet(_ context.Context, id string) (*core.DataSet, error) {
	ds, ok := s.sets[id]
	if !ok {
		return nil, &core.NotFoundError{Kind: "data set", ID: id}
	}
	return &ds, nil
}

// ListConnections returns all connections ordered by id.
func (s *Static) ListConnections(_ context.Context) ([]core.Connection, error) {
	out := make([]core.Connection, 0, len(s.connections))
	for _, c := range s.connections {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListDataSets returns all data sets ordered by id.
func (s *Static) ListDataSets(_ context.Context) ([]core.DataSet, error) {
	out := make([]core.DataSet, 0, len(s.sets))
	for _, d := range s.sets {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

var (
	_ Provider = (*Static)(nil)
	_ Lister   = (*Static)(nil)
)
