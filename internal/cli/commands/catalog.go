package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sergobb/timeseries-dashboard-platform-sub000/internal/config"
	"github.com/sergobb/timeseries-dashboard-platform-sub000/internal/metadata"
	"github.com/sergobb/timeseries-dashboard-platform-sub000/internal/metadata/filestore"
	"github.com/sergobb/timeseries-dashboard-platform-sub000/internal/metadata/mongostore"
	"github.com/sergobb/timeseries-dashboard-platform-sub000/pkg/core"
	"github.com/spf13/cobra"
)

// NewCatalogCommand creates the catalog command group.
func NewCatalogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and manage catalog metadata",
	}
	cmd.AddCommand(newCatalogConnectionsCommand())
	cmd.AddCommand(newCatalogDataSetsCommand())
	cmd.AddCommand(newCatalogValidateCommand())
	cmd.AddCommand(newCatalogImpactCommand())
	cmd.AddCommand(newCatalogImportCommand())
	return cmd
}

func catalogLister(cc *CommandContext) (metadata.Lister, error) {
	l, ok := cc.Catalog.(metadata.Lister)
	if !ok {
		return nil, errors.New("catalog backend cannot list records")
	}
	return l, nil
}

func newCatalogConnectionsCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "connections",
		Short: "List catalog connections",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			l, err := catalogLister(cc)
			if err != nil {
				return err
			}
			conns, err := l.ListConnections(cmd.Context())
			if err != nil {
				return err
			}

			f := formatOr(format, cc)
			if f == "json" || f == "yaml" {
				// Never print sealed passwords.
				for i := range conns {
					conns[i].EncryptedPassword = ""
				}
				if f == "json" {
					return renderJSON(cmd.OutOrStdout(), conns)
				}
				return renderYAML(cmd.OutOrStdout(), conns)
			}

			rows := make([]core.Row, len(conns))
			for i, c := range conns {
				endpoint := c.Database
				if c.Host != "" {
					endpoint = c.Host + ":" + strconv.Itoa(c.Port) + "/" + c.Database
				}
				rows[i] = core.Row{
					"id":       c.ID,
					"name":     c.Name,
					"dialect":  string(c.Dialect),
					"endpoint": endpoint,
					"active":   c.Active,
				}
			}
			return renderRows(cmd.OutOrStdout(), f, []string{"id", "name", "dialect", "endpoint", "active"}, rows)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: table, json, csv, yaml")
	return cmd
}

func newCatalogDataSetsCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:     "datasets",
		Aliases: []string{"data-sets"},
		Short:   "List catalog data sets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			l, err := catalogLister(cc)
			if err != nil {
				return err
			}
			sets, err := l.ListDataSets(cmd.Context())
			if err != nil {
				return err
			}

			f := formatOr(format, cc)
			switch f {
			case "json":
				return renderJSON(cmd.OutOrStdout(), sets)
			case "yaml":
				return renderYAML(cmd.OutOrStdout(), sets)
			}

			rows := make([]core.Row, len(sets))
			for i, ds := range sets {
				members := append(append([]string{}, ds.DataSourceIDs...), ds.DataSetIDs...)
				rows[i] = core.Row{
					"id":      ds.ID,
					"name":    ds.Name,
					"type":    string(ds.Type),
					"members": strings.Join(members, ","),
					"tiers":   len(ds.Tiers),
				}
			}
			return renderRows(cmd.OutOrStdout(), f, []string{"id", "name", "type", "members", "tiers"}, rows)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: table, json, csv, yaml")
	return cmd
}

func newCatalogValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Check a catalog file without connecting to anything",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.FromContext(cmd.Context()).Catalog.Path
			if len(args) == 1 {
				path = args[0]
			}
			c, err := filestore.Load(path)
			if err != nil {
				return err
			}
			if _, err := metadata.NewStatic(c); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			if err := metadata.NewLineage(c).Validate(); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %d connections, %d data sources, %d data sets\n",
				path, len(c.Connections), len(c.DataSources), len(c.DataSets))
			return nil
		},
	}
}

func newCatalogImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Load a catalog file into the MongoDB catalog",
		Long: `Validate a YAML catalog file and upsert its records into the MongoDB
catalog named by catalog.mongo.uri and catalog.mongo.database.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := config.FromContext(ctx)
			logger := config.GetLogger(ctx)
			if cfg.Catalog.Mongo.URI == "" {
				return errors.New("catalog.mongo.uri is not configured")
			}

			c, err := filestore.Load(args[0])
			if err != nil {
				return err
			}
			s, err := mongostore.Connect(ctx, cfg.Catalog.Mongo.URI, cfg.Catalog.Mongo.Database, logger)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close(ctx) }()

			if err := s.Import(ctx, c); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d connections, %d data sources, %d data sets\n",
				len(c.Connections), len(c.DataSources), len(c.DataSets))
			return nil
		},
	}
}

var impactKinds = map[string]string{
	"connection": metadata.KindConnection,
	"source":     metadata.KindDataSource,
	"dataset":    metadata.KindDataSet,
}

func newCatalogImpactCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "impact <connection|source|dataset> <id>",
		Short: "List the data sets that read from a catalog record",
		Long: `List every data set that reads from a connection, data source or data set,
directly or through nested data sets. Reads the catalog file (catalog.path).`,
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"connection", "source", "dataset"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, ok := impactKinds[args[0]]
			if !ok {
				return fmt.Errorf("unknown record kind %q (want connection, source or dataset)", args[0])
			}
			cfg := config.FromContext(cmd.Context())
			c, err := filestore.Load(cfg.Catalog.Path)
			if err != nil {
				return err
			}
			ids, err := metadata.NewLineage(c).Impact(kind, args[1])
			if err != nil {
				return err
			}
			f := format
			if f == "" {
				f = cfg.Output
			}
			return renderList(cmd.OutOrStdout(), f, ids)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: table, json, yaml")
	return cmd
}
