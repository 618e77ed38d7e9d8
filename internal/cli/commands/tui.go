package commands

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapconsole/internal/codestore"
	"github.com/leapstack-labs/leapconsole/internal/tui"
)

// NewTUICommand creates the tui command.
func NewTUICommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Start the terminal console",
		Long: `Start the full-screen terminal console.

A persisted code (see "leapconsole code store --save") or --code logs in
automatically. With the file code store, a code written while the console
is open is picked up and used to log in.`,
		Example: `  # Start the terminal console
  leapconsole tui

  # Log in straight away
  leapconsole tui --code K7P2QX`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			con, err := cc.NewConsole()
			if err != nil {
				return err
			}

			cfg := tui.Config{
				Console:     con,
				AutoLogin:   cc.AutoLogin(),
				DownloadDir: cc.Cfg.DownloadDir,
				Logger:      cc.Logger,
			}
			if fs, ok := cfg.AutoLogin.Source.(*codestore.FileStore); ok {
				if err := os.MkdirAll(filepath.Dir(fs.Path()), 0o700); err == nil {
					cfg.Watcher = fs
				}
			}

			return tui.Run(cmd.Context(), cfg)
		},
	}
}
