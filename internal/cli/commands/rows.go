package commands

import (
	"github.com/spf13/cobra"
)

// NewRowsCommand creates the rows command group.
func NewRowsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rows",
		Short: "Create, update and delete table rows",
		Long: `Create, update and delete table rows. Rows are JSON objects.

A row is identified by a snapshot of its values as last read: the backend
matches on the primary key when the snapshot carries it, and on every known
column otherwise.`,
	}

	cmd.AddCommand(newRowsCreateCommand())
	cmd.AddCommand(newRowsUpdateCommand())
	cmd.AddCommand(newRowsDeleteCommand())

	return cmd
}

func newRowsCreateCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "create <table> <row-json>",
		Short:   "Insert a row",
		Example: `  leapconsole rows create users '{"username": "ada", "email": "ada@example.com"}'`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			row, err := parseRow(args[1])
			if err != nil {
				return err
			}
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			c, err := cc.Connect(cmd.Context())
			if err != nil {
				return err
			}
			if err := c.CreateRow(cmd.Context(), args[0], row); err != nil {
				return err
			}
			cc.Renderer.Success("Row created in " + args[0])
			return nil
		},
	}
}

func newRowsUpdateCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "update <table> <old-row-json> <new-row-json>",
		Short:   "Replace a row",
		Example: `  leapconsole rows update users '{"id": 1}' '{"id": 1, "username": "ada"}'`,
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			old, err := parseRow(args[1])
			if err != nil {
				return err
			}
			updated, err := parseRow(args[2])
			if err != nil {
				return err
			}
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			c, err := cc.Connect(cmd.Context())
			if err != nil {
				return err
			}
			if err := c.UpdateRow(cmd.Context(), args[0], old, updated); err != nil {
				return err
			}
			cc.Renderer.Success("Row updated in " + args[0])
			return nil
		},
	}
}

func newRowsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <table> <row-json>",
		Aliases: []string{"rm"},
		Short:   "Delete a row",
		Example: `  leapconsole rows delete users '{"id": 3}'`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			row, err := parseRow(args[1])
			if err != nil {
				return err
			}
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			c, err := cc.Connect(cmd.Context())
			if err != nil {
				return err
			}
			if err := c.DeleteRow(cmd.Context(), args[0], row); err != nil {
				return err
			}
			cc.Renderer.Success("Row deleted from " + args[0])
			return nil
		},
	}
}
