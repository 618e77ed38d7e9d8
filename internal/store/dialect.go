package store

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Dialect captures what differs between the supported databases.
type Dialect struct {
	// Name is the driver name used in configuration.
	Name string
	// DriverName is the database/sql driver to open.
	DriverName string
	// GooseDialect names the goose dialect for migrations. Empty means the
	// embedded schema is applied directly.
	GooseDialect string

	// ListTablesSQL returns one column of table names in the current schema.
	ListTablesSQL string
	// PrimaryKeySQL returns the primary key column names of the table bound
	// to the first placeholder, in key order.
	PrimaryKeySQL string

	// Numbered placeholders ($1, $2) instead of ?.
	NumberedPlaceholders bool

	// TimeLayout formats scanned time values. Empty means RFC 3339.
	TimeLayout string
	// TextTimes means date and time columns hold text the driver parses on
	// read, so a formatted value may not match the stored text byte for
	// byte. Snapshot matches also compare such columns by julianday.
	TextTimes bool

	// Types maps the logical column types used by seed fixtures to DDL.
	Types map[string]string
	// Serial returns the statements to run before CREATE TABLE and the
	// column definition for an auto-assigned integer key.
	Serial func(table, column string) (setup []string, definition string)
}

// Placeholder returns the bind parameter for the n-th argument (1-based).
func (d *Dialect) Placeholder(n int) string {
	if d.NumberedPlaceholders {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// FormatTime renders a scanned time value. Times read without a zone keep
// the zone-less layout so they round-trip to the stored text.
func (d *Dialect) FormatTime(t time.Time) string {
	if d.TimeLayout == "" {
		return t.Format(time.RFC3339Nano)
	}
	if t.Location() == time.UTC {
		return t.Format(d.TimeLayout)
	}
	return t.Format(d.TimeLayout + "-07:00")
}

// QuoteIdent quotes an identifier with double quotes, doubling any embedded
// quote. All supported databases accept this form.
func (d *Dialect) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// ColumnType maps a logical type to this dialect's DDL type.
func (d *Dialect) ColumnType(logical string, size int) (string, error) {
	t, ok := d.Types[logical]
	if !ok {
		return "", fmt.Errorf("%s: unsupported column type %q", d.Name, logical)
	}
	if size > 0 && strings.Contains(t, "%d") {
		return fmt.Sprintf(t, size), nil
	}
	return strings.ReplaceAll(t, "(%d)", ""), nil
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]*Dialect)
)

// Register adds a dialect to the registry.
// Called by dialect implementations in their init() functions.
func Register(d *Dialect) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[d.Name] = d
}

// Get retrieves a dialect by driver name.
func Get(name string) (*Dialect, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	d, ok := registry[name]
	return d, ok
}

// Drivers returns all registered driver names (sorted).
func Drivers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UnknownDriverError is returned when an unknown database driver is requested.
type UnknownDriverError struct {
	Name      string
	Available []string
}

func (e *UnknownDriverError) Error() string {
	return fmt.Sprintf("unknown database driver %q\nAvailable drivers: %v\nHint: Check server.database.driver in leapconsole.yaml", e.Name, e.Available)
}
