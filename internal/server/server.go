// Package server is the reference REST backend the console talks to. It
// serves the table, file store and access code endpoints under /api.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leapconsole/internal/store"
	"github.com/leapstack-labs/leapconsole/pkg/core"
)

// Defaults.
const (
	DefaultPort          = 5000
	DefaultMaxBodyBytes  = 32 << 20
	DefaultPurgeInterval = time.Hour
)

// Backend is the data layer behind the endpoints. *store.Store implements it.
type Backend interface {
	Ping(ctx context.Context) error

	StoreCode(ctx context.Context, code string) error
	VerifyCode(ctx context.Context, code string) (store.Verdict, error)
	PurgeCodes(ctx context.Context) (int64, error)

	ListTables(ctx context.Context) ([]string, error)
	GetTable(ctx context.Context, table string) (*core.TableData, error)
	CreateRow(ctx context.Context, table string, row core.Row) (core.Row, error)
	UpdateRow(ctx context.Context, table string, old, updated core.Row) (int64, error)
	DeleteRow(ctx context.Context, table string, row core.Row) (int64, error)

	ListFiles(ctx context.Context, folder string) ([]core.FileEntry, error)
	CreateFolder(ctx context.Context, name, parent string) (core.FileEntry, error)
	SaveFile(ctx context.Context, up core.Upload) (core.FileEntry, error)
	GetFile(ctx context.Context, id string) (*core.Download, error)
	DeleteFile(ctx context.Context, id string) error
}

// Config holds configuration for the backend server.
type Config struct {
	Backend Backend
	Port    int
	// RequireSession rejects table and file requests from sessions that
	// have not verified a code.
	RequireSession bool
	// SessionSecret signs the session cookie. Empty generates a key per
	// process, so sessions do not survive a restart.
	SessionSecret string
	// SecureCookies marks the session cookie Secure. Leave it off when the
	// backend is served over plain http or clients drop the cookie.
	SecureCookies bool
	MaxBodyBytes  int64
	// PurgeInterval sets how often spent and expired codes are deleted.
	// Negative disables purging.
	PurgeInterval time.Duration
	Logger        *slog.Logger
}

// Server is the REST backend.
type Server struct {
	backend        Backend
	sessionStore   *sessions.CookieStore
	port           int
	requireSession bool
	maxBodyBytes   int64
	purgeInterval  time.Duration
	logger         *slog.Logger
}

// New creates a backend server.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	secret := []byte(cfg.SessionSecret)
	if len(secret) == 0 {
		secret = securecookie.GenerateRandomKey(32)
		logger.Debug("no session secret configured, using an ephemeral key")
	}
	sessionStore := sessions.NewCookieStore(secret)
	sessionStore.MaxAge(86400) // 1 day
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode
	sessionStore.Options.Secure = cfg.SecureCookies

	port := cfg.Port
	if port == 0 {
		port = DefaultPort
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	purge := cfg.PurgeInterval
	if purge == 0 {
		purge = DefaultPurgeInterval
	}

	return &Server{
		backend:        cfg.Backend,
		sessionStore:   sessionStore,
		port:           port,
		requireSession: cfg.RequireSession,
		maxBodyBytes:   maxBody,
		purgeInterval:  purge,
		logger:         logger,
	}
}

// Handler returns the router with every endpoint mounted under /api.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
	)
	r.Route("/api", s.routes)
	return r
}

// Serve starts the server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting backend", "addr", fmt.Sprintf("http://localhost:%d/api", s.port),
		"require_session", s.requireSession)

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.purgeInterval > 0 {
		eg.Go(func() error {
			s.purgeCodes(egctx)
			return nil
		})
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down backend...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// purgeCodes deletes spent and expired codes until ctx is done.
func (s *Server) purgeCodes(ctx context.Context) {
	ticker := time.NewTicker(s.purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.backend.PurgeCodes(ctx)
			if err != nil {
				s.logger.Warn("code purge failed", "error", err)
				continue
			}
			if n > 0 {
				s.logger.Debug("purged access codes", "count", n)
			}
		}
	}
}
