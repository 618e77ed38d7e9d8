package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapconsole/internal/blob"
	"github.com/leapstack-labs/leapconsole/internal/cli/config"
	"github.com/leapstack-labs/leapconsole/internal/cli/output"
	"github.com/leapstack-labs/leapconsole/internal/codestore"
	"github.com/leapstack-labs/leapconsole/internal/console"
	"github.com/leapstack-labs/leapconsole/internal/store"
	"github.com/leapstack-labs/leapconsole/pkg/client"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext for cmd.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cfg, err := getConfig()
	if err != nil {
		return nil, err
	}
	mode := output.Mode(cfg.OutputFormat)
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode),
	}, nil
}

// getConfig returns the configuration loaded by the root command, loading
// it from the working directory when a command runs on its own.
func getConfig() (*config.Config, error) {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg, nil
	}
	return config.LoadConfig("", nil)
}

// NewClient creates an API client for the configured backend.
func (cc *CommandContext) NewClient() (*client.Client, error) {
	return client.New(client.Config{
		BaseURL: cc.Cfg.API.BaseURL,
		Timeout: cc.Cfg.API.Timeout,
		Logger:  cc.Logger,
	})
}

// Connect returns a client ready for table and file calls. When an access
// code is configured it is verified first, which opens the backend session.
func (cc *CommandContext) Connect(ctx context.Context) (*client.Client, error) {
	c, err := cc.NewClient()
	if err != nil {
		return nil, err
	}
	if cc.Cfg.Auth.Code == "" {
		return c, nil
	}
	res, err := c.VerifyCode(ctx, cc.Cfg.Auth.Code)
	if err != nil {
		return nil, fmt.Errorf("failed to verify access code: %w", err)
	}
	if !res.Valid {
		msg := res.Message
		if msg == "" {
			msg = console.DefaultCodeError
		}
		return nil, errors.New(msg)
	}
	cc.Logger.Debug("access code verified")
	return c, nil
}

// NewConsole creates a console over a fresh client.
func (cc *CommandContext) NewConsole() (*console.Console, error) {
	c, err := cc.NewClient()
	if err != nil {
		return nil, err
	}
	return console.New(c, console.Options{Logger: cc.Logger, Rules: cc.Cfg.Rules()}), nil
}

// CodeStore opens the configured persisted-code backend.
func (cc *CommandContext) CodeStore() (codestore.Store, error) {
	return codestore.New(codestore.Config{
		Backend: cc.Cfg.Auth.CodeStore,
		Path:    cc.Cfg.Auth.CodePath,
		Logger:  cc.Logger,
	})
}

// AutoLogin describes the launch-time login of the interactive front ends:
// the persisted code first, then --code.
func (cc *CommandContext) AutoLogin() console.AutoLogin {
	al := console.AutoLogin{
		URLCode: cc.Cfg.Auth.Code,
		Delay:   cc.Cfg.Auth.AutoLoginDelay,
	}
	cs, err := cc.CodeStore()
	if err != nil {
		cc.Logger.Warn("persisted code unavailable", slog.String("error", err.Error()))
		return al
	}
	al.Source = cs
	return al
}

// OpenStore opens the backend database, with file contents offloaded to S3
// when configured. The returned cleanup closes it.
func (cc *CommandContext) OpenStore(ctx context.Context) (*store.Store, func(), error) {
	srv := cc.Cfg.Server

	var blobs store.BlobStore
	if srv.Blob.Backend == config.BlobBackendS3 {
		s3, err := blob.NewS3(ctx, blob.Config{
			Endpoint:        srv.Blob.S3.Endpoint,
			Bucket:          srv.Blob.S3.Bucket,
			AccessKey:       srv.Blob.S3.AccessKey,
			SecretKey:       srv.Blob.S3.SecretKey,
			Region:          srv.Blob.S3.Region,
			UseSSL:          srv.Blob.S3.UseSSL,
			Prefix:          srv.Blob.S3.Prefix,
			UnsignedPayload: srv.Blob.S3.UnsignedPayload,
			Logger:          cc.Logger,
		})
		if err != nil {
			return nil, nil, err
		}
		blobs = s3
	}

	st, err := store.Open(ctx, store.Config{
		Driver:     srv.Database.Driver,
		DSN:        srv.Database.DSN,
		RowLimit:   srv.RowLimit,
		CodeTTL:    srv.CodeTTL,
		StaticCode: srv.AccessCode,
		Blobs:      blobs,
		Logger:     cc.Logger,
	})
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := st.Close(); err != nil {
			cc.Logger.Warn("failed to close database", slog.String("error", err.Error()))
		}
	}
	return st, cleanup, nil
}
