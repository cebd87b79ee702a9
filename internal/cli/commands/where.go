package commands

import (
	"fmt"

	"github.com/hashicorp/go-bexpr"
	"github.com/sergobb/timeseries-dashboard-platform-sub000/pkg/core"
)

// filterRows keeps the rows matching a boolean expression such as
// `site == "north" and val != 0`. An empty expression keeps every row.
func filterRows(expr string, rows []core.Row) ([]core.Row, error) {
	if expr == "" {
		return rows, nil
	}
	eval, err := bexpr.CreateEvaluator(expr)
	if err != nil {
		return nil, fmt.Errorf("error parsing expression '%s': %w", expr, err)
	}
	out := make([]core.Row, 0, len(rows))
	for _, r := range rows {
		ok, err := eval.Evaluate(map[string]any(r))
		if err != nil {
			return nil, fmt.Errorf("error evaluating expression '%s': %w", expr, err)
		}
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}
