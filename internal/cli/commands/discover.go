package commands

import (
	"github.com/sergobb/timeseries-dashboard-platform-sub000/pkg/core"
	"github.com/spf13/cobra"
)

// NewSchemasCommand creates the schemas command.
func NewSchemasCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "schemas <connection>",
		Short: "List the schemas of a connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			adp, err := cc.Engine.Inspect(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer func() { _ = adp.Close() }()

			schemas, err := adp.ListSchemas(cmd.Context())
			if err != nil {
				return err
			}
			return renderList(cmd.OutOrStdout(), formatOr(format, cc), schemas)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: table, json, yaml")
	return cmd
}

// NewTablesCommand creates the tables command.
func NewTablesCommand() *cobra.Command {
	var format, schema string
	cmd := &cobra.Command{
		Use:   "tables <connection>",
		Short: "List the tables of a schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			adp, err := cc.Engine.Inspect(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer func() { _ = adp.Close() }()

			tables, err := adp.ListTablesBySchema(cmd.Context(), schema)
			if err != nil {
				return err
			}
			return renderList(cmd.OutOrStdout(), formatOr(format, cc), tables)
		},
	}
	cmd.Flags().StringVar(&schema, "schema", "", "Schema (default: the dialect's default schema)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: table, json, yaml")
	return cmd
}

// NewDescribeCommand creates the describe command.
func NewDescribeCommand() *cobra.Command {
	var format, schema string
	cmd := &cobra.Command{
		Use:   "describe <connection> <table>",
		Short: "Describe the columns of a table",
		Long: `Describe a table as the backend reports it. A qualified name such as
analytics.events overrides --schema.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			adp, err := cc.Engine.Inspect(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer func() { _ = adp.Close() }()

			cols, err := adp.GetTableSchema(cmd.Context(), args[1], schema)
			if err != nil {
				return err
			}
			f := formatOr(format, cc)
			switch f {
			case "json":
				return renderJSON(cmd.OutOrStdout(), cols)
			case "yaml":
				return renderYAML(cmd.OutOrStdout(), cols)
			}
			rows := make([]core.Row, len(cols))
			for i, c := range cols {
				def := ""
				if c.Default != nil {
					def = *c.Default
				}
				rows[i] = core.Row{"column": c.ColumnName, "type": c.DataType, "nullable": c.Nullable, "default": def}
			}
			return renderRows(cmd.OutOrStdout(), f, []string{"column", "type", "nullable", "default"}, rows)
		},
	}
	cmd.Flags().StringVar(&schema, "schema", "", "Schema (default: the dialect's default schema)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: table, json, csv, yaml")
	return cmd
}

func formatOr(format string, cc *CommandContext) string {
	if format != "" {
		return format
	}
	return cc.Cfg.Output
}
