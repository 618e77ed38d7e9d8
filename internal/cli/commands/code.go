package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapconsole/internal/cli/output"
	"github.com/leapstack-labs/leapconsole/pkg/core"
)

// NewCodeCommand creates the code command group.
func NewCodeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "code",
		Short: "Manage access codes",
		Long: `Register, check and persist the six-character access codes that unlock
the console.

A code registered with "code store" can be used once. With --save it is also
persisted locally (auth.code_store), where the next console launch picks it
up and logs in automatically.`,
	}

	cmd.AddCommand(newCodeStoreCommand())
	cmd.AddCommand(newCodeVerifyCommand())
	cmd.AddCommand(newCodePendingCommand())
	cmd.AddCommand(newCodeClearCommand())

	return cmd
}

func newCodeStoreCommand() *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "store <code>",
		Short: "Register an access code with the backend",
		Example: `  # Register a code for a user to type in
  leapconsole code store K7P2QX

  # Register a code and let the next console launch use it
  leapconsole code store K7P2QX --save`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			code, err := core.ValidateCode(args[0])
			if err != nil {
				return err
			}
			c, err := cc.NewClient()
			if err != nil {
				return err
			}
			if err := c.StoreCode(ctx, code); err != nil {
				return fmt.Errorf("failed to store code: %w", err)
			}
			cc.Renderer.Success("Code " + code + " registered")

			if save {
				cs, err := cc.CodeStore()
				if err != nil {
					return err
				}
				if err := cs.Save(ctx, code); err != nil {
					return err
				}
				cc.Renderer.Muted("Saved for the next console launch (" + cc.Cfg.Auth.CodeStore + ")")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "Also persist the code for auto-login")

	return cmd
}

func newCodeVerifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <code>",
		Short: "Check an access code against the backend",
		Long: `Check an access code against the backend. A valid stored code is consumed
by the check, exactly as a console login would.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			code, err := core.ValidateCode(args[0])
			if err != nil {
				return err
			}
			c, err := cc.NewClient()
			if err != nil {
				return err
			}
			res, err := c.VerifyCode(cmd.Context(), code)
			if err != nil {
				return err
			}

			r := cc.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				if err := r.JSON(res); err != nil {
					return err
				}
			} else if res.Valid {
				r.Success("Code accepted")
			}
			if !res.Valid {
				return errors.New(res.Message)
			}
			return nil
		},
	}
}

func newCodePendingCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "Count unused, unexpired codes in the backend database",
		Long: `Count the access codes in the backend database that are neither used nor
expired. This reads the database directly and must run where serve runs.`,
		Args: cobra.NoArgs,
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
			n, err := st.PendingCodes(ctx)
			if err != nil {
				return err
			}

			r := cc.Renderer
			switch r.EffectiveMode() {
			case output.ModeJSON:
				return r.JSON(map[string]int64{"pending": n})
			case output.ModeMarkdown:
				r.Println(output.FormatKeyValue("Pending codes", fmt.Sprint(n)))
			default:
				r.Printf("%s %d\n", r.Styles().Bold.Render("Pending codes:"), n)
			}
			return nil
		},
	}
}

func newCodeClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the locally persisted code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			cs, err := cc.CodeStore()
			if err != nil {
				return err
			}
			if err := cs.Clear(cmd.Context()); err != nil {
				return err
			}
			cc.Renderer.Success("Persisted code cleared")
			return nil
		},
	}
}
