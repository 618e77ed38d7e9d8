package store

import (
	"context"
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed migrations
var migrations embed.FS

// gooseMu serializes use of goose's package-level configuration.
var gooseMu sync.Mutex

// Migrate creates or upgrades the console's system tables.
func (s *Store) Migrate(ctx context.Context) error {
	if s.db == nil {
		return ErrClosed
	}

	if s.dialect.GooseDialect == "" {
		return s.applySchema(ctx)
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect(s.dialect.GooseDialect); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	if err := goose.UpContext(ctx, s.db, "migrations/"+s.dialect.Name); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	s.logger.Debug("migrations applied", "driver", s.dialect.Name)
	return nil
}

// MigrationVersion returns the current schema version. Dialects without
// goose support report 1 once their schema exists.
func (s *Store) MigrationVersion(ctx context.Context) (int64, error) {
	if s.db == nil {
		return 0, ErrClosed
	}
	if s.dialect.GooseDialect == "" {
		tables, err := s.allTables(ctx)
		if err != nil {
			return 0, err
		}
		for _, t := range tables {
			if t == filesTable {
				return 1, nil
			}
		}
		return 0, nil
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)
	if err := goose.SetDialect(s.dialect.GooseDialect); err != nil {
		return 0, fmt.Errorf("failed to set dialect: %w", err)
	}
	return goose.GetDBVersionContext(ctx, s.db)
}

// applySchema runs the embedded schema one statement at a time.
func (s *Store) applySchema(ctx context.Context) error {
	raw, err := migrations.ReadFile("migrations/" + s.dialect.Name + "/schema.sql")
	if err != nil {
		return fmt.Errorf("no schema for %s: %w", s.dialect.Name, err)
	}
	for _, stmt := range strings.Split(string(raw), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	s.logger.Debug("schema applied", "driver", s.dialect.Name)
	return nil
}
