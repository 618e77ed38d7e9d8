package store

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed fixtures/sample.yaml
var sampleFixtures []byte

// Fixtures describes tables to create and fill.
type Fixtures struct {
	Tables []FixtureTable `yaml:"tables"`
}

// FixtureTable is one table definition with its rows.
type FixtureTable struct {
	Name    string           `yaml:"name"`
	Columns []FixtureColumn  `yaml:"columns"`
	Rows    []map[string]any `yaml:"rows"`
}

// FixtureColumn is a column with a logical type (serial, string, text,
// integer, decimal, boolean, timestamp).
type FixtureColumn struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Size       int    `yaml:"size"`
	NotNull    bool   `yaml:"not_null"`
	Default    string `yaml:"default"`
	DefaultNow bool   `yaml:"default_now"`
}

// SeedResult reports what Seed did.
type SeedResult struct {
	Skipped  bool
	Existing []string
	Created  map[string]int
}

// SampleFixtures returns the built-in sample tables.
func SampleFixtures() (*Fixtures, error) {
	return ParseFixtures(bytes.NewReader(sampleFixtures))
}

// ParseFixtures reads fixtures from YAML.
func ParseFixtures(r io.Reader) (*Fixtures, error) {
	var f Fixtures
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse fixtures: %w", err)
	}
	for _, t := range f.Tables {
		if t.Name == "" || len(t.Columns) == 0 {
			return nil, fmt.Errorf("fixture table %q needs a name and columns", t.Name)
		}
	}
	return &f, nil
}

// Seed creates and fills the fixture tables when the database has no user
// tables. With force it seeds regardless, skipping tables that exist.
func (s *Store) Seed(ctx context.Context, f *Fixtures, force bool) (*SeedResult, error) {
	existing, err := s.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	res := &SeedResult{Existing: existing, Created: map[string]int{}}
	if len(existing) > 0 && !force {
		res.Skipped = true
		return res, nil
	}

	have := make(map[string]bool, len(existing))
	for _, t := range existing {
		have[t] = true
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, t := range f.Tables {
		if have[t.Name] {
			continue
		}
		stmts, err := s.createTableSQL(t)
		if err != nil {
			return nil, err
		}
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return nil, fmt.Errorf("failed to create %s: %w", t.Name, err)
			}
		}
		for _, row := range t.Rows {
			query, args := s.insertFixtureSQL(t, row)
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return nil, fmt.Errorf("failed to insert into %s: %w", t.Name, err)
			}
		}
		res.Created[t.Name] = len(t.Rows)
		s.logger.Info("seeded table", slog.String("table", t.Name), slog.Int("rows", len(t.Rows)))
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit seed: %w", err)
	}
	return res, nil
}

func (s *Store) createTableSQL(t FixtureTable) ([]string, error) {
	var (
		setup []string
		defs  []string
	)
	for _, c := range t.Columns {
		if c.Type == "serial" {
			pre, def := s.dialect.Serial(t.Name, c.Name)
			setup = append(setup, pre...)
			defs = append(defs, def)
			continue
		}
		typ, err := s.dialect.ColumnType(c.Type, c.Size)
		if err != nil {
			return nil, fmt.Errorf("table %s column %s: %w", t.Name, c.Name, err)
		}
		def := s.q(c.Name) + " " + typ
		if c.NotNull {
			def += " NOT NULL"
		}
		switch {
		case c.DefaultNow:
			def += " DEFAULT CURRENT_TIMESTAMP"
		case c.Default != "":
			def += " DEFAULT " + c.Default
		}
		defs = append(defs, def)
	}
	create := fmt.Sprintf("CREATE TABLE %s (\n    %s\n)", s.q(t.Name), strings.Join(defs, ",\n    "))
	return append(setup, create), nil
}

// insertFixtureSQL binds row values in the table's column order.
func (s *Store) insertFixtureSQL(t FixtureTable, row map[string]any) (string, []any) {
	b := &binder{d: s.dialect}
	var cols, holders []string
	for _, c := range t.Columns {
		v, ok := row[c.Name]
		if !ok {
			continue
		}
		cols = append(cols, s.q(c.Name))
		holders = append(holders, b.bind(bindValue(v)))
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.q(t.Name), strings.Join(cols, ", "), strings.Join(holders, ", ")), b.args
}
