// Package tier picks the physical DataSource that should serve a DataSet query.
package tier

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/sergobb/timeseries-dashboard-platform-sub000/pkg/core"
)

// MaxRows is the default row budget for pre-aggregated tier selection.
const MaxRows = 2000

// Resolve picks a DataSource id for ds using the default row budget.
func Resolve(ds *core.DataSet, r core.DateRange, yColumn string) (string, error) {
	return ResolveWithBudget(ds, r, yColumn, MaxRows)
}

// ResolveWithBudget picks a DataSource id for ds.
//
// For pre-aggregated sets it returns the finest tier whose bucket count over
// r is within maxRows, falling back to the first DataSource. For other sets
// it prefers a DataSource whose id contains yColumn (case-insensitive).
func ResolveWithBudget(ds *core.DataSet, r core.DateRange, yColumn string, maxRows int64) (string, error) {
	if ds == nil || len(ds.DataSourceIDs) == 0 {
		id := ""
		if ds != nil {
			id = ds.ID
		}
		return "", &core.NotFoundError{Kind: "data source for data set", ID: id}
	}
	first := ds.DataSourceIDs[0]

	if ds.Type != core.DataSetPreaggregated {
		needle := strings.ToLower(yColumn)
		if needle != "" {
			for _, id := range ds.DataSourceIDs {
				if strings.Contains(strings.ToLower(id), needle) {
					return id, nil
				}
			}
		}
		return first, nil
	}

	if len(ds.Tiers) == 0 {
		return first, nil
	}
	length := r.Duration()
	if length <= 0 {
		return first, nil
	}

	tiers := make([]core.TierConfig, 0, len(ds.Tiers))
	for _, t := range ds.Tiers {
		if t.IntervalSeconds() > 0 {
			tiers = append(tiers, t)
		}
	}
	sort.SliceStable(tiers, func(i, j int) bool {
		return tiers[i].IntervalSeconds() < tiers[j].IntervalSeconds()
	})

	for _, t := range tiers {
		if withinBudget(length, time.Duration(t.IntervalSeconds())*time.Second, maxRows) {
			return t.DataSourceID, nil
		}
	}
	return first, nil
}

// withinBudget reports whether length/interval, taken exactly, is at most
// maxRows.
func withinBudget(length, interval time.Duration, maxRows int64) bool {
	if maxRows <= 0 {
		return false
	}
	if int64(interval) > math.MaxInt64/maxRows {
		return true
	}
	return length <= interval*time.Duration(maxRows)
}

// BucketCount is the exact number of interval buckets spanned by r.
func BucketCount(r core.DateRange, t core.TierConfig) float64 {
	sec := t.IntervalSeconds()
	if sec <= 0 {
		return 0
	}
	return r.Duration().Seconds() / float64(sec)
}
