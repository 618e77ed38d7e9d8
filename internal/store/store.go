// Package store is the reference backend's data layer: user tables exposed
// for CRUD, the console's file store and its access codes, over SQLite,
// PostgreSQL or DuckDB.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// DefaultRowLimit caps how many rows GetTable returns.
const DefaultRowLimit = 1000

// DefaultCodeTTL is how long a stored access code stays valid.
const DefaultCodeTTL = 24 * time.Hour

// System tables, hidden from the table listing.
const (
	filesTable = "lc_files"
	codesTable = "lc_access_codes"
	gooseTable = "goose_db_version"
)

var systemTables = map[string]bool{
	filesTable: true,
	codesTable: true,
	gooseTable: true,
}

// Errors mapped to HTTP statuses by the server.
var (
	ErrNotFound       = errors.New("not found")
	ErrNoData         = errors.New("no data to insert")
	ErrMissingRowData = errors.New("missing old or new row data")
	ErrConflict       = errors.New("already exists")
	ErrIsFolder       = errors.New("is a folder")
	ErrClosed         = errors.New("database not opened")
)

// UnknownColumnError is returned when a row references a column the table
// does not have.
type UnknownColumnError struct {
	Table  string
	Column string
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("table %s has no column %q", e.Table, e.Column)
}

// BlobStore holds file contents outside the database.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// Config configures Open.
type Config struct {
	Driver string
	DSN    string

	RowLimit int
	// CodeTTL bounds the validity of stored access codes.
	CodeTTL time.Duration
	// StaticCode, when set, is always accepted.
	StaticCode string
	// Blobs offloads file contents. Nil keeps them in the database.
	Blobs BlobStore

	Logger *slog.Logger
}

// Store is the backend's data layer.
type Store struct {
	db      *sql.DB
	dialect *Dialect
	logger  *slog.Logger

	rowLimit   int
	codeTTL    time.Duration
	staticCode string
	blobs      BlobStore
	now        func() time.Time
}

// Open connects to the configured database.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	d, ok := Get(cfg.Driver)
	if !ok {
		return nil, &UnknownDriverError{Name: cfg.Driver, Available: Drivers()}
	}

	dsn := cfg.DSN
	if d.Name == "sqlite" {
		dsn = sqliteDSN(dsn)
	}

	db, err := sql.Open(d.DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", d.Name, err)
	}
	if d.Name != "postgres" && isMemory(cfg.DSN) {
		// Every connection to an in-memory database is a separate database.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", d.Name, err)
	}

	s := New(db, d, cfg)
	s.logger.Debug("database opened", slog.String("driver", d.Name))
	return s, nil
}

// New wraps an open database handle.
func New(db *sql.DB, d *Dialect, cfg Config) *Store {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	rowLimit := cfg.RowLimit
	if rowLimit <= 0 {
		rowLimit = DefaultRowLimit
	}
	ttl := cfg.CodeTTL
	if ttl <= 0 {
		ttl = DefaultCodeTTL
	}
	return &Store{
		db:         db,
		dialect:    d,
		logger:     logger,
		rowLimit:   rowLimit,
		codeTTL:    ttl,
		staticCode: cfg.StaticCode,
		blobs:      cfg.Blobs,
		now:        time.Now,
	}
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	s.logger.Debug("closing database connection")
	return s.db.Close()
}

// Dialect returns the store's dialect.
func (s *Store) Dialect() *Dialect { return s.dialect }

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	if s.db == nil {
		return ErrClosed
	}
	return s.db.PingContext(ctx)
}

func (s *Store) q(name string) string { return s.dialect.QuoteIdent(name) }

// binder accumulates positional arguments and hands out placeholders.
type binder struct {
	d    *Dialect
	args []any
}

func (b *binder) bind(v any) string {
	b.args = append(b.args, v)
	return b.d.Placeholder(len(b.args))
}

func isMemory(dsn string) bool {
	return dsn == "" || strings.Contains(dsn, ":memory:")
}

func containsQuery(dsn string) bool {
	return strings.HasPrefix(dsn, "file:") || strings.Contains(dsn, "?")
}
