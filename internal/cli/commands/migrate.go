package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapconsole/internal/cli/output"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply backend schema migrations",
		Long: `Create or upgrade the backend's own tables (file store and access codes)
in the configured database. serve applies migrations on start; run this to
prepare a database ahead of time.`,
		Example: `  # Migrate the configured database
  leapconsole migrate`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			st, cleanup, err := cc.OpenStore(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := st.Migrate(ctx); err != nil {
				return err
			}
			version, err := st.MigrationVersion(ctx)
			if err != nil {
				return err
			}

			r := cc.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(map[string]int64{"version": version})
			}
			r.Success(fmt.Sprintf("Schema at version %d", version))
			return nil
		},
	}
}
