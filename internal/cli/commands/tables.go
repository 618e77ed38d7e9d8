package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapconsole/internal/cli/output"
)

// NewTablesCommand creates the tables command group.
func NewTablesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "List and show backend tables",
		Long: `List the tables the backend exposes and show their rows.

Output adapts to environment:
  - Terminal: Styled, colored output
  - Piped/Scripted: Markdown format (agent-friendly)

Use --output to override: auto, text, markdown, json`,
	}

	cmd.AddCommand(newTablesListCommand())
	cmd.AddCommand(newTablesShowCommand())

	return cmd
}

func newTablesListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tables",
		Example: `  # List tables
  leapconsole tables list --code K7P2QX

  # List tables as JSON
  leapconsole tables list -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			c, err := cc.Connect(cmd.Context())
			if err != nil {
				return err
			}
			tables, err := c.ListTables(cmd.Context())
			if err != nil {
				return err
			}

			r := cc.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				names := make([]string, len(tables))
				for i, t := range tables {
					names[i] = t.Name
				}
				return r.JSON(map[string][]string{"tables": names})
			}
			rows := make([][]string, len(tables))
			for i, t := range tables {
				rows[i] = []string{t.Name}
			}
			r.Table([]string{"Table"}, rows)
			return nil
		},
	}
}

func newTablesShowCommand() *cobra.Command {
	var wide bool

	cmd := &cobra.Command{
		Use:   "show <table>",
		Short: "Show a table's rows",
		Long: `Show a table's rows. Like the console's table view, only the first five
columns are shown and cells are cut to thirty characters; --wide shows
everything.`,
		Example: `  # Show the users table
  leapconsole tables show users

  # Show every column in full
  leapconsole tables show users --wide`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			c, err := cc.Connect(cmd.Context())
			if err != nil {
				return err
			}
			data, err := c.GetTable(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return renderTableData(cc.Renderer, data, wide)
		},
	}

	cmd.Flags().BoolVar(&wide, "wide", false, "Show every column without truncation")

	return cmd
}
