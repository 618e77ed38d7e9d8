package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapconsole/internal/cli/output"
	"github.com/leapstack-labs/leapconsole/internal/store"
)

// QueryOptions holds options for the query command.
type QueryOptions struct {
	Format string
	Input  string
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query [SQL]",
		Short: "Run SQL against the backend database",
		Long: `Run SQL directly against the backend database. Like code pending, this
reads the database itself and must run where serve runs.

Every statement runs in a transaction that is rolled back afterwards, so
nothing is ever written. At most server.row_limit rows are shown.`,
		Example: `  # Execute SQL directly
  leapconsole query "SELECT * FROM users WHERE age > 30"

  # Read SQL from a file or stdin
  leapconsole query --input report.sql
  echo "SELECT COUNT(*) FROM tasks" | leapconsole query

  # List tables, or show one table's columns
  leapconsole query tables
  leapconsole query schema products

  # Output as CSV
  leapconsole query "SELECT * FROM products" --format csv`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args, opts)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.Format, "format", "f", "", "Output format: table, json, csv, md (default: from --output)")
	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read SQL from file")

	cmd.AddCommand(newQueryTablesCommand(opts))
	cmd.AddCommand(newQuerySchemaCommand(opts))

	return cmd
}

func runQuery(cmd *cobra.Command, args []string, opts *QueryOptions) error {
	var sqlQuery string
	switch {
	case len(args) > 0:
		sqlQuery = strings.Join(args, " ")
	case opts.Input != "":
		content, err := os.ReadFile(opts.Input)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		sqlQuery = string(content)
	case !isTerminal(cmd.InOrStdin()):
		content, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		sqlQuery = string(content)
	}
	if strings.TrimSpace(sqlQuery) == "" {
		return errors.New("no SQL given: pass it as an argument, with --input or on stdin (try the shell command for interactive use)")
	}

	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	st, cleanup, err := cc.OpenStore(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := st.Query(cmd.Context(), sqlQuery)
	if err != nil {
		return err
	}
	return renderResults(cmd.OutOrStdout(), res, queryFormat(cc.Renderer, opts.Format))
}

func newQueryTablesCommand(opts *QueryOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List user tables in the backend database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			st, cleanup, err := cc.OpenStore(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			tables, err := st.ListTables(cmd.Context())
			if err != nil {
				return err
			}
			res := &store.QueryResult{Columns: []string{"table"}}
			for _, t := range tables {
				res.Rows = append(res.Rows, map[string]any{"table": t})
			}
			return renderResults(cmd.OutOrStdout(), res, queryFormat(cc.Renderer, opts.Format))
		},
	}
}

func newQuerySchemaCommand(opts *QueryOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema <table>",
		Short: "Show a table's columns and primary key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			st, cleanup, err := cc.OpenStore(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			ctx := cmd.Context()

			columns, err := st.Columns(ctx, args[0])
			if err != nil {
				return err
			}
			key, err := st.PrimaryKey(ctx, args[0])
			if err != nil {
				return err
			}
			inKey := make(map[string]bool, len(key))
			for _, k := range key {
				inKey[k] = true
			}

			res := &store.QueryResult{Columns: []string{"column", "primary_key"}}
			for _, col := range columns {
				res.Rows = append(res.Rows, map[string]any{"column": col, "primary_key": inKey[col]})
			}
			return renderResults(cmd.OutOrStdout(), res, queryFormat(cc.Renderer, opts.Format))
		},
	}
}

// queryFormat picks the explicit --format, else follows the output mode.
func queryFormat(r *output.Renderer, format string) string {
	if format != "" {
		return format
	}
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return "json"
	case output.ModeMarkdown:
		return "md"
	default:
		return "table"
	}
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
