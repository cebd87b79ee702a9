package metadata

import (
	"context"
	"fmt"

	"github.com/sergobb/timeseries-dashboard-platform-sub000/pkg/core"
)

// Columns returns the active columns of every data source reachable from the
// data set, following nested data sets depth first. Columns are concatenated
// in member order without deduplication. A data set that reaches itself is
// reported as a *core.ValidationError.
func Columns(ctx context.Context, p Provider, dataSetID string) ([]core.Column, error) {
	w := &columnWalker{p: p, visiting: make(map[string]bool)}
	if err := w.walk(ctx, dataSetID); err != nil {
		return nil, err
	}
	return w.cols, nil
}

type columnWalker struct {
	p        Provider
	visiting map[string]bool
	cols     []core.Column
}

func (w *columnWalker) walk(ctx context.Context, id string) error {
	if w.visiting[id] {
		return &core.ValidationError{Field: "dataSetIds", Reason: fmt.Sprintf("cycle through data set %q", id)}
	}
	w.visiting[id] = true
	defer delete(w.visiting, id)

	ds, err := w.p.GetDataSet(ctx, id)
	if err != nil {
		return err
	}
	for _, srcID := range ds.DataSourceIDs {
		src, err := w.p.GetDataSource(ctx, srcID)
		if err != nil {
			return err
		}
		w.cols = append(w.cols, src.ActiveColumns()...)
	}
	for _, nested := range ds.DataSetIDs {
		if err := w.walk(ctx, nested); err != nil {
			return err
		}
	}
	return nil
}
