// Package web is the browser front end of the console.
//
// Every browser session gets its own console.Console. Pages render the
// session's state once; a long-lived datastar stream at /updates then
// re-renders the app container whenever that state changes, and user
// actions post to /actions/*.
package web

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

	"github.com/leapstack-labs/leapconsole/internal/console"
)

// Defaults.
const (
	DefaultPort        = 8080
	DefaultIdleTimeout = 2 * time.Hour
)

// Config holds configuration for the web console.
type Config struct {
	// NewConsole creates the console for a new browser session. Each call
	// must return a console with its own backend session.
	NewConsole func() (*console.Console, error)
	Port       int
	// SessionSecret signs the session cookie. Empty generates a key per
	// process.
	SessionSecret string
	// SecureCookies marks the session cookie Secure. Only set it when the
	// console is served over https.
	SecureCookies bool
	// CodeSource is consulted for a persisted code before the launch URL.
	CodeSource console.CodeSource
	// AutoLoginDelay is passed to console.AutoLogin.
	AutoLoginDelay time.Duration
	// IdleTimeout drops consoles of sessions not seen for this long.
	IdleTimeout time.Duration
	Logger      *slog.Logger
}

// Server serves the browser console.
type Server struct {
	sessionStore   *sessions.CookieStore
	consoles       *registry
	codeSource     console.CodeSource
	autoLoginDelay time.Duration
	port           int
	logger         *slog.Logger
}

// New creates a web console server.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	secret := []byte(cfg.SessionSecret)
	if len(secret) == 0 {
		secret = securecookie.GenerateRandomKey(32)
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
	idle := cfg.IdleTimeout
	if idle == 0 {
		idle = DefaultIdleTimeout
	}

	return &Server{
		sessionStore:   sessionStore,
		consoles:       newRegistry(cfg.NewConsole, idle),
		codeSource:     cfg.CodeSource,
		autoLoginDelay: cfg.AutoLoginDelay,
		port:           port,
		logger:         logger,
	}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.Logger,
		middleware.Recoverer,
	)
	s.routes(r)
	return r
}

// Serve starts the server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting web console", "addr", fmt.Sprintf("http://localhost:%d", s.port))

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		s.dropIdle(egctx)
		return nil
	})

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

		s.logger.Debug("shutting down web console...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// dropIdle forgets consoles of abandoned sessions until ctx is done.
func (s *Server) dropIdle(ctx context.Context) {
	ticker := time.NewTicker(s.consoles.idle / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := s.consoles.dropIdle(now); n > 0 {
				s.logger.Debug("dropped idle consoles", "count", n)
			}
		}
	}
}
