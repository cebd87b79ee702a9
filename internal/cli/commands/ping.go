package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sergobb/timeseries-dashboard-platform-sub000/internal/metadata"
	"github.com/sergobb/timeseries-dashboard-platform-sub000/pkg/core"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// pingResult is the outcome of one connection check.
type pingResult struct {
	ID      string
	Dialect core.DialectName
	OK      bool
	Latency time.Duration
	Err     error
}

// NewPingCommand creates the ping command.
func NewPingCommand() *cobra.Command {
	var (
		format      string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "ping [connection...]",
		Short: "Check that connections are reachable",
		Long: `Open each connection, run a trivial query and close it again.
Without arguments every connection in the catalog is checked.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			ids := args
			if len(ids) == 0 {
				lister, ok := cc.Catalog.(metadata.Lister)
				if !ok {
					return errors.New("catalog cannot list connections; name them explicitly")
				}
				conns, err := lister.ListConnections(cmd.Context())
				if err != nil {
					return err
				}
				for _, c := range conns {
					if c.Active {
						ids = append(ids, c.ID)
					}
				}
			}

			results := pingAll(cmd.Context(), cc, ids, concurrency)

			rows := make([]core.Row, len(results))
			failed := 0
			for i, r := range results {
				status, detail := "ok", ""
				if !r.OK {
					failed++
					status = "failed"
					if r.Err != nil {
						detail = r.Err.Error()
					}
				}
				rows[i] = core.Row{
					"connection": r.ID,
					"dialect":    string(r.Dialect),
					"status":     status,
					"latency":    r.Latency.Round(time.Millisecond).String(),
					"error":      detail,
				}
			}
			if err := renderRows(cmd.OutOrStdout(), formatOr(format, cc),
				[]string{"connection", "dialect", "status", "latency", "error"}, rows); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d connections unreachable", failed, len(results))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: table, json, csv, yaml")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "Connections checked at once")
	return cmd
}

// pingAll checks connections concurrently; results keep the order of ids.
func pingAll(ctx context.Context, cc *CommandContext, ids []string, limit int) []pingResult {
	results := make([]pingResult, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, id := range ids {
		g.Go(func() error {
			results[i] = pingOne(gctx, cc, id)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func pingOne(ctx context.Context, cc *CommandContext, id string) pingResult {
	r := pingResult{ID: id}
	if conn, err := cc.Catalog.GetConnection(ctx, id); err == nil {
		r.Dialect = conn.Dialect
	}

	ctx, cancel := context.WithTimeout(ctx, cc.Cfg.Query.Timeout)
	defer cancel()

	start := time.Now()
	adp, err := cc.Engine.Inspect(ctx, id)
	if err != nil {
		r.Err = err
		r.Latency = time.Since(start)
		return r
	}
	defer func() { _ = adp.Close() }()

	r.OK = adp.TestConnection(ctx)
	r.Latency = time.Since(start)
	if !r.OK {
		r.Err = errors.New("test query failed")
	}
	return r
}
