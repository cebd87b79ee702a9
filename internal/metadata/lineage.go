package metadata

import (
	"fmt"
	"strings"

	"github.com/sergobb/timeseries-dashboard-platform-sub000/internal/dag"
	"github.com/sergobb/timeseries-dashboard-platform-sub000/pkg/core"
)

// Lineage node kinds.
const (
	KindConnection = "connection"
	KindDataSource = "data source"
	KindDataSet    = "data set"
)

// Lineage is the dependency graph of a catalog: connections feed data
// sources, data sources feed data sets, and nested data sets feed the data
// sets that include them.
type Lineage struct {
	g        *dag.Graph
	dangling []string
}

func lineageID(kind, id string) string {
	return kind + ":" + id
}

func splitLineageID(s string) (kind, id string) {
	kind, id, _ = strings.Cut(s, ":")
	return kind, id
}

// NewLineage builds the graph for c. References to unknown records are
// collected rather than rejected; see Dangling.
func NewLineage(c Catalog) *Lineage {
	l := &Lineage{g: dag.NewGraph()}
	for _, conn := range c.Connections {
		l.g.AddNode(lineageID(KindConnection, conn.ID), KindConnection)
	}
	for _, src := range c.DataSources {
		l.g.AddNode(lineageID(KindDataSource, src.ID), KindDataSource)
	}
	for _, ds := range c.DataSets {
		l.g.AddNode(lineageID(KindDataSet, ds.ID), KindDataSet)
	}

	link := func(fromKind, fromID, toKind, toID string) {
		if err := l.g.AddEdge(lineageID(fromKind, fromID), lineageID(toKind, toID)); err != nil {
			l.dangling = append(l.dangling, fmt.Sprintf("%s %q references unknown %s %q", toKind, toID, fromKind, fromID))
		}
	}
	for _, src := range c.DataSources {
		link(KindConnection, src.ConnectionID, KindDataSource, src.ID)
	}
	for _, ds := range c.DataSets {
		for _, id := range ds.DataSourceIDs {
			link(KindDataSource, id, KindDataSet, ds.ID)
		}
		for _, id := range ds.DataSetIDs {
			link(KindDataSet, id, KindDataSet, ds.ID)
		}
		for _, t := range ds.Tiers {
			if t.DataSourceID != "" {
				link(KindDataSource, t.DataSourceID, KindDataSet, ds.ID)
			}
		}
	}
	return l
}

// Dangling describes every reference to a record the catalog does not hold.
func (l *Lineage) Dangling() []string {
	return l.dangling
}

// Cycle returns data set ids forming a nesting cycle, first and last equal,
// or nil.
func (l *Lineage) Cycle() []string {
	path := l.g.FindCycle()
	if path == nil {
		return nil
	}
	out := make([]string, len(path))
	for i, p := range path {
		_, out[i] = splitLineageID(p)
	}
	return out
}

// Validate reports dangling references and nesting cycles.
func (l *Lineage) Validate() error {
	if len(l.dangling) > 0 {
		return &core.ValidationError{Field: "catalog", Reason: strings.Join(l.dangling, "; ")}
	}
	if c := l.Cycle(); c != nil {
		return &core.ValidationError{Field: "dataSetIds", Reason: "cycle " + strings.Join(c, " -> ")}
	}
	return nil
}

// Impact returns the ids of every data set that reads, directly or through
// nesting, from the record kind/id.
func (l *Lineage) Impact(kind, id string) ([]string, error) {
	start := lineageID(kind, id)
	if _, ok := l.g.Node(start); !ok {
		return nil, &core.NotFoundError{Kind: kind, ID: id}
	}
	var out []string
	for _, n := range l.g.Downstream(start) {
		if k, nid := splitLineageID(n); k == KindDataSet {
			out = append(out, nid)
		}
	}
	return out, nil
}

// Sources returns the ids of every data source a data set reads from.
func (l *Lineage) Sources(dataSetID string) ([]string, error) {
	start := lineageID(KindDataSet, dataSetID)
	if _, ok := l.g.Node(start); !ok {
		return nil, &core.NotFoundError{Kind: KindDataSet, ID: dataSetID}
	}
	var out []string
	for _, n := range l.g.Upstream(start) {
		if k, nid := splitLineageID(n); k == KindDataSource {
			out = append(out, nid)
		}
	}
	return out, nil
}
