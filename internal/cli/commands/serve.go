package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapconsole/internal/server"
	"github.com/leapstack-labs/leapconsole/internal/store"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	Port int
	Seed bool
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reference REST backend",
		Long: `Run the REST backend the console talks to.

The backend serves every user table of the configured database and a
folder-structured file store under /api, gated by one-time access codes.
Migrations are applied on start. File contents stay in the database unless
server.blob.backend is s3.`,
		Example: `  # Serve the default SQLite database on port 5000
  leapconsole serve

  # Serve with the sample tables loaded into an empty database
  leapconsole serve --seed

  # Serve PostgreSQL on a custom port
  LEAPCONSOLE_SERVER__DATABASE__DRIVER=postgres \
  LEAPCONSOLE_SERVER__DATABASE__DSN=postgres://localhost/console \
  leapconsole serve --port 6000`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Port, "port", 0, "Port to serve on (default: server.port)")
	cmd.Flags().BoolVar(&opts.Seed, "seed", false, "Load the sample tables when the database has none")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, cleanup, err := cc.OpenStore(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := st.Migrate(ctx); err != nil {
		return err
	}
	if opts.Seed {
		if err := seedSample(ctx, cmd, st); err != nil {
			return err
		}
	}

	port := cc.Cfg.Server.Port
	if opts.Port != 0 {
		port = opts.Port
	}

	srv := server.New(server.Config{
		Backend:        st,
		Port:           port,
		RequireSession: cc.Cfg.Server.RequireSession,
		SessionSecret:  cc.Cfg.Server.SessionSecret,
		SecureCookies:  cc.Cfg.Server.SecureCookies,
		PurgeInterval:  cc.Cfg.Server.PurgeInterval,
		Logger:         cc.Logger,
	})

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Serving %s database on http://localhost:%d/api\n", st.Dialect().Name, port)
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to stop")

	return srv.Serve(ctx)
}

// seedSample loads the built-in tables into an empty database.
func seedSample(ctx context.Context, cmd *cobra.Command, st *store.Store) error {
	fixtures, err := store.SampleFixtures()
	if err != nil {
		return err
	}
	res, err := st.Seed(ctx, fixtures, false)
	if err != nil {
		return err
	}
	if !res.Skipped {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d sample tables\n", len(res.Created))
	}
	return nil
}
