package commands

import (
	"fmt"

	"github.com/sergobb/timeseries-dashboard-platform-sub000/internal/metadata"
	"github.com/sergobb/timeseries-dashboard-platform-sub000/internal/tier"
	"github.com/sergobb/timeseries-dashboard-platform-sub000/pkg/core"
	"github.com/spf13/cobra"
)

// NewResolveCommand creates the resolve command.
func NewResolveCommand() *cobra.Command {
	var y, from, to string

	cmd := &cobra.Command{
		Use:   "resolve <data-set>",
		Short: "Show which data source a query would read",
		Long: `Run the tier resolver for a data set and time range and print the chosen
data source with its connection. Pre-aggregated data sets pick the finest
tier whose bucket count stays within query.max_rows.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fromTS, err := core.ParseTimestamp(from)
			if err != nil {
				return err
			}
			toTS, err := core.ParseTimestamp(to)
			if err != nil {
				return err
			}

			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			// The x column does not take part in resolution.
			src, err := cc.Engine.ResolveDataSource(cmd.Context(), &core.QueryContext{
				DataSetID: args[0],
				XColumn:   "ts",
				YColumn:   y,
				DateRange: core.DateRange{From: fromTS, To: toTS},
			})
			if err != nil {
				return err
			}

			ds, err := cc.Catalog.GetDataSet(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "data source: %s\n", src.ID)
			_, _ = fmt.Fprintf(out, "table:       %s\n", src.QualifiedName())
			_, _ = fmt.Fprintf(out, "connection:  %s\n", src.ConnectionID)
			if t := tierOf(ds, src.ID); t != nil {
				buckets := tier.BucketCount(core.DateRange{From: fromTS, To: toTS}, *t)
				_, _ = fmt.Fprintf(out, "tier:        %d %s (%g buckets, budget %d)\n", t.Interval, t.TimeUnit, buckets, cc.Cfg.Query.MaxRows)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&y, "y", "", "Value column")
	cmd.Flags().StringVar(&from, "from", "", "Range start, RFC 3339")
	cmd.Flags().StringVar(&to, "to", "", "Range end, RFC 3339")
	for _, f := range []string{"y", "from", "to"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func tierOf(ds *core.DataSet, sourceID string) *core.TierConfig {
	for i := range ds.Tiers {
		if ds.Tiers[i].DataSourceID == sourceID && ds.Tiers[i].IntervalSeconds() > 0 {
			return &ds.Tiers[i]
		}
	}
	return nil
}

// NewColumnsCommand creates the columns command.
func NewColumnsCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "columns <data-set>",
		Short: "List the columns a data set exposes",
		Long: `List the active columns of every data source behind a data set, following
nested data sets. Columns shared by several sources appear once per source.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			cols, err := metadata.Columns(cmd.Context(), cc.Catalog, args[0])
			if err != nil {
				return err
			}
			rows := make([]core.Row, len(cols))
			for i, c := range cols {
				rows[i] = core.Row{"name": c.Name, "type": c.DataType, "description": c.Description}
			}
			if format == "" {
				format = cc.Cfg.Output
			}
			return renderRows(cmd.OutOrStdout(), format, []string{"name", "type", "description"}, rows)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: table, json, csv, yaml")
	return cmd
}
