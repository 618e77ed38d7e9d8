package commands

import (
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapconsole/internal/console"
	"github.com/leapstack-labs/leapconsole/internal/web"
)

// WebOptions holds options for the web command.
type WebOptions struct {
	Port      int
	NoBrowser bool
}

// NewWebCommand creates the web command.
func NewWebCommand() *cobra.Command {
	opts := &WebOptions{}

	cmd := &cobra.Command{
		Use:   "web",
		Short: "Start the browser console",
		Long: `Start a local web server serving the console in the browser.

Each browser session gets its own console. Opening the page with
?code=<code> logs in automatically and drops the code from the address
bar once the console is unlocked.`,
		Example: `  # Start on the default port and open the browser
  leapconsole web

  # Open the browser logged in
  leapconsole web --code K7P2QX

  # Start on a custom port without opening the browser
  leapconsole web --port 3000 --no-browser`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWeb(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Port, "port", 0, "Port to serve on (default: web.port)")
	cmd.Flags().BoolVar(&opts.NoBrowser, "no-browser", false, "Don't auto-open browser")

	return cmd
}

func runWeb(cmd *cobra.Command, opts *WebOptions) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	webCfg := cc.Cfg.Web

	// CLI flags override config file
	port := webCfg.Port
	if opts.Port != 0 {
		port = opts.Port
	}
	autoOpen := webCfg.AutoOpen && !opts.NoBrowser

	al := cc.AutoLogin()
	server := web.New(web.Config{
		NewConsole:     cc.NewConsole,
		Port:           port,
		SessionSecret:  webCfg.SessionSecret,
		SecureCookies:  webCfg.SecureCookies,
		CodeSource:     al.Source,
		AutoLoginDelay: al.Delay,
		Logger:         cc.Logger,
	})

	launch := launchURL(port, cc.Cfg.Auth.Code)
	if autoOpen {
		go openBrowser(launch)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Starting web console on http://localhost:%d\n", port)
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to stop")

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	return server.Serve(ctx)
}

// launchURL is the page address, carrying code as the launch code if set.
func launchURL(port int, code string) string {
	u := url.URL{Scheme: "http", Host: fmt.Sprintf("localhost:%d", port), Path: "/"}
	if code != "" {
		u.RawQuery = url.Values{console.LaunchCodeParam: {code}}.Encode()
	}
	return u.String()
}

// openBrowser opens the default browser to the specified URL.
func openBrowser(target string) {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", target) //nolint:noctx
	case "linux":
		cmd = exec.Command("xdg-open", target) //nolint:noctx
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", target) //nolint:noctx
	default:
		return
	}

	_ = cmd.Start()
}
