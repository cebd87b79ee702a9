package commands

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/sergobb/timeseries-dashboard-platform-sub000/internal/engine"
	"github.com/sergobb/timeseries-dashboard-platform-sub000/pkg/core"
	"github.com/sergobb/timeseries-dashboard-platform-sub000/pkg/dialect"
	"github.com/spf13/cobra"
)

// QueryOptions holds options for the query command.
type QueryOptions struct {
	X          string
	Y          string
	From       string
	To         string
	Agg        string
	Resolution string
	Filters    []string
	Source     string
	Connection string
	Cache      bool
	TTL        time.Duration
	DryRun     bool
	Where      string
	Format     string
}

// queryContext assembles and validates the query context for a data set.
func (o *QueryOptions) queryContext(dataSetID string) (*core.QueryContext, error) {
	from, err := core.ParseTimestamp(o.From)
	if err != nil {
		return nil, err
	}
	to, err := core.ParseTimestamp(o.To)
	if err != nil {
		return nil, err
	}
	agg, err := core.ParseAggregation(o.Agg, o.Resolution)
	if err != nil {
		return nil, err
	}
	qc := &core.QueryContext{
		DataSetID:   dataSetID,
		XColumn:     o.X,
		YColumn:     o.Y,
		DateRange:   core.DateRange{From: from, To: to},
		Aggregation: agg,
	}
	for _, s := range o.Filters {
		f, err := core.ParseFilter(s)
		if err != nil {
			return nil, err
		}
		qc.Filters = append(qc.Filters, f)
	}
	return qc, qc.Validate()
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query <data-set>",
		Short: "Query a data set over a time range",
		Long: `Query column Y over time column X for a data set.

Without --source the data source is chosen by the tier resolver: the
finest pre-aggregated tier whose bucket count stays within the row budget.
Results can be cached in the local cache store with --cache.`,
		Example: `  # Raw rows for one day
  dashquery query cpu --x ts --y usage --from 2024-01-01T00:00:00Z --to 2024-01-02T00:00:00Z

  # Hourly averages, cached for ten minutes
  dashquery query cpu --x ts --y usage --from 2024-01-01T00:00:00Z --to 2024-01-08T00:00:00Z \
    --agg avg --resolution hours --cache --ttl 10m

  # Filter in SQL and on the returned rows
  dashquery query cpu --x ts --y usage --from ... --to ... --filter "host in web-1,web-2" \
    --where 'usage != 0'

  # Show the SQL without running it
  dashquery query cpu --x ts --y usage --from ... --to ... --dry-run`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.X, "x", "", "Time column (x axis)")
	cmd.Flags().StringVar(&opts.Y, "y", "", "Value column (y axis)")
	cmd.Flags().StringVar(&opts.From, "from", "", "Range start, RFC 3339")
	cmd.Flags().StringVar(&opts.To, "to", "", "Range end, RFC 3339")
	cmd.Flags().StringVar(&opts.Agg, "agg", "", "Aggregation: none, avg, min, max")
	cmd.Flags().StringVar(&opts.Resolution, "resolution", "", "Bucket resolution: seconds, minutes, hours, days")
	cmd.Flags().StringArrayVar(&opts.Filters, "filter", nil, `Column filter, e.g. "host=web-1" or "host in a,b" (repeatable)`)
	cmd.Flags().StringVar(&opts.Source, "source", "", "Query this data source instead of resolving a tier")
	cmd.Flags().StringVar(&opts.Connection, "connection", "", "Connection of --source (default: the source's own)")
	cmd.Flags().BoolVar(&opts.Cache, "cache", false, "Read and write the result cache")
	cmd.Flags().DurationVar(&opts.TTL, "ttl", 0, "Cache entry lifetime (default: cache.default_ttl)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Print the SQL instead of running it")
	cmd.Flags().StringVar(&opts.Where, "where", "", "Boolean expression applied to returned rows")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: table, json, csv, yaml")

	for _, f := range []string{"x", "y", "from", "to"} {
		_ = cmd.MarkFlagRequired(f)
	}
	_ = cmd.RegisterFlagCompletionFunc("agg", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"none", "avg", "min", "max"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("resolution", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"seconds", "minutes", "hours", "days"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runQuery(cmd *cobra.Command, dataSetID string, opts *QueryOptions) error {
	ctx := cmd.Context()
	qc, err := opts.queryContext(dataSetID)
	if err != nil {
		return err
	}

	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ttl := opts.TTL
	if ttl == 0 {
		ttl = cc.Cfg.Cache.DefaultTTL
	}
	req := engine.Request{Context: *qc, UseCache: opts.Cache, CacheTTL: ttl}

	if opts.Source == "" {
		src, err := cc.Engine.ResolveDataSource(ctx, qc)
		if err != nil {
			return err
		}
		req.DataSourceID = src.ID
		req.ConnectionID = src.ConnectionID
	} else {
		req.DataSourceID = opts.Source
		req.ConnectionID = opts.Connection
		if req.ConnectionID == "" {
			src, err := cc.Catalog.GetDataSource(ctx, opts.Source)
			if err != nil {
				return err
			}
			req.ConnectionID = src.ConnectionID
		}
	}

	out := cmd.OutOrStdout()
	if opts.DryRun {
		plan, err := cc.Engine.Plan(ctx, req)
		if err != nil {
			return err
		}
		d, _ := dialect.Get(string(plan.Connection.Dialect))
		_, _ = fmt.Fprintf(out, "-- connection: %s (%s)\n", plan.Connection.ID, plan.Connection.Dialect)
		_, _ = fmt.Fprintf(out, "-- data source: %s (%s)\n", plan.DataSource.ID, plan.Table)
		_, _ = fmt.Fprintf(out, "-- cache key: %s\n", plan.CacheKey)
		_, _ = fmt.Fprintln(out, plan.Query.Inline(d)+";")
		return nil
	}

	res, err := cc.Engine.Execute(ctx, req)
	if err != nil {
		return err
	}
	cc.Logger.Debug("query finished",
		slog.String("request_id", res.RequestID),
		slog.Bool("cached", res.Cached),
		slog.Duration("elapsed", res.Elapsed))

	rows, err := filterRows(opts.Where, res.Rows)
	if err != nil {
		return err
	}

	format := opts.Format
	if format == "" {
		format = cc.Cfg.Output
	}
	return renderRows(out, format, []string{qc.XColumn, qc.YColumn}, rows)
}
