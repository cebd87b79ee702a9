package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sergobb/timeseries-dashboard-platform-sub000/internal/cache"
	"github.com/spf13/cobra"
)

// NewCacheCommand creates the cache command group.
func NewCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the result cache",
		Long: `Inspect and maintain the local result cache (cache.path).

Cache keys are printed by "dashquery query --dry-run".`,
	}
	cmd.AddCommand(newCacheGetCommand())
	cmd.AddCommand(newCacheDeleteCommand())
	cmd.AddCommand(newCacheSweepCommand())
	cmd.AddCommand(newCacheStatsCommand())
	return cmd
}

func newCacheGetCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print a live cache entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, cleanup, err := NewCacheContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			rows, hit, err := cc.Cache.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !hit {
				return fmt.Errorf("cache entry %q not found or expired", args[0])
			}
			return renderRows(cmd.OutOrStdout(), formatOr(format, cc), nil, rows)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: table, json, csv, yaml")
	return cmd
}

func newCacheDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>...",
		Short: "Remove cache entries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, cleanup, err := NewCacheContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			for _, key := range args {
				if err := cc.Cache.Delete(cmd.Context(), key); err != nil {
					return err
				}
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d entries\n", len(args))
			return nil
		},
	}
}

func newCacheSweepCommand() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Remove expired cache entries",
		Long: `Remove expired cache entries once, or with --watch keep sweeping on
cache.sweep_schedule until interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := NewCacheContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			sweeper, err := cache.NewSweeper(cc.Cache, cc.Cfg.Cache.SweepSchedule, cc.Logger)
			if err != nil {
				return err
			}

			n, err := sweeper.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired entries\n", n)
			if !watch {
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cc.Logger.Info("sweeping cache", slog.String("schedule", cc.Cfg.Cache.SweepSchedule))
			sweeper.Start()
			<-ctx.Done()

			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			sweeper.Stop(stopCtx)
			return nil
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "Keep sweeping on the configured schedule")
	return cmd
}

func newCacheStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache entry counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := NewCacheContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			total, expired, err := cc.Store.Stats(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "path:    %s\n", cc.Cfg.Cache.Path)
			_, _ = fmt.Fprintf(out, "entries: %d\n", total)
			_, _ = fmt.Fprintf(out, "live:    %d\n", total-expired)
			_, _ = fmt.Fprintf(out, "expired: %d\n", expired)
			return nil
		},
	}
}
