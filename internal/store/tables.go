package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/leapstack-labs/leapconsole/pkg/core"
)

// ListTables returns the user tables, sorted by name. System tables are
// hidden.
func (s *Store) ListTables(ctx context.Context) ([]string, error) {
	all, err := s.allTables(ctx)
	if err != nil {
		return nil, err
	}
	tables := make([]string, 0, len(all))
	for _, t := range all {
		if !systemTables[t] {
			tables = append(tables, t)
		}
	}
	slices.Sort(tables)
	return tables, nil
}

func (s *Store) allTables(ctx context.Context) ([]string, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	rows, err := s.db.QueryContext(ctx, s.dialect.ListTablesSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}
	return tables, nil
}

// requireTable fails with ErrNotFound unless table is a user table.
func (s *Store) requireTable(ctx context.Context, table string) error {
	tables, err := s.ListTables(ctx)
	if err != nil {
		return err
	}
	if !slices.Contains(tables, table) {
		return fmt.Errorf("table %q: %w", table, ErrNotFound)
	}
	return nil
}

// Columns returns a table's columns in ordinal order.
func (s *Store) Columns(ctx context.Context, table string) ([]string, error) {
	columns, _, err := s.columnTypes(ctx, table)
	return columns, err
}

// columnTypes returns a table's columns with their upper-cased database
// type names.
func (s *Store) columnTypes(ctx context.Context, table string) ([]string, map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT 0", s.q(table))) //nolint:gosec // identifier is quoted
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	cts, err := rows.ColumnTypes()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read column types of %s: %w", table, err)
	}
	columns := make([]string, len(cts))
	types := make(map[string]string, len(cts))
	for i, ct := range cts {
		columns[i] = ct.Name()
		types[ct.Name()] = strings.ToUpper(ct.DatabaseTypeName())
	}
	return columns, types, nil
}

// PrimaryKey returns a table's primary key columns. Tables without one
// return nil.
func (s *Store) PrimaryKey(ctx context.Context, table string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.PrimaryKeySQL, table)
	if err != nil {
		return nil, fmt.Errorf("failed to read primary key of %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var key []string
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return nil, fmt.Errorf("failed to scan key column: %w", err)
		}
		key = append(key, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating key columns: %w", err)
	}
	return key, nil
}

// GetTable returns up to the row limit of a table's rows together with its
// columns and primary key.
func (s *Store) GetTable(ctx context.Context, table string) (*core.TableData, error) {
	if err := s.requireTable(ctx, table); err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT * FROM %s LIMIT %d", s.q(table), s.rowLimit) //nolint:gosec // identifier is quoted
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}
	data, err := s.scanRows(rows, columns)
	if err != nil {
		return nil, err
	}

	key, err := s.PrimaryKey(ctx, table)
	if err != nil {
		s.logger.Warn("primary key lookup failed; falling back to snapshot identity",
			slog.String("table", table), slog.String("error", err.Error()))
		key = nil
	}

	return &core.TableData{Name: table, Columns: columns, Rows: data, PrimaryKey: key}, nil
}

// CreateRow inserts the non-empty fields of row and returns the stored row.
// Null and empty-string fields are dropped so the database applies its
// defaults.
func (s *Store) CreateRow(ctx context.Context, table string, row core.Row) (core.Row, error) {
	if err := s.requireTable(ctx, table); err != nil {
		return nil, err
	}
	columns, err := s.Columns(ctx, table)
	if err != nil {
		return nil, err
	}

	var names []string
	for col, v := range row {
		if v == nil || v == "" {
			continue
		}
		if !slices.Contains(columns, col) {
			return nil, &UnknownColumnError{Table: table, Column: col}
		}
		names = append(names, col)
	}
	if len(names) == 0 {
		return nil, ErrNoData
	}
	slices.Sort(names)

	b := &binder{d: s.dialect}
	quoted := make([]string, len(names))
	holders := make([]string, len(names))
	for i, col := range names {
		quoted[i] = s.q(col)
		holders[i] = b.bind(bindValue(row[col]))
	}

	//nolint:gosec // identifiers are quoted, values are bound
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		s.q(table), strings.Join(quoted, ", "), strings.Join(holders, ", "))

	rows, err := s.db.QueryContext(ctx, query, b.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}
	inserted, err := s.scanRows(rows, cols)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("row inserted", slog.String("table", table))
	if len(inserted) == 0 {
		return core.Row{}, nil
	}
	return inserted[0], nil
}

// UpdateRow sets the known columns of updated on the row identified by old
// and returns how many rows changed. ErrNotFound means nothing matched.
func (s *Store) UpdateRow(ctx context.Context, table string, old, updated core.Row) (int64, error) {
	if len(old) == 0 || len(updated) == 0 {
		return 0, ErrMissingRowData
	}
	if err := s.requireTable(ctx, table); err != nil {
		return 0, err
	}
	columns, types, err := s.columnTypes(ctx, table)
	if err != nil {
		return 0, err
	}
	key, err := s.PrimaryKey(ctx, table)
	if err != nil {
		return 0, err
	}

	// Unchanged fields are not rewritten, so stored text such as timestamps
	// keeps its format.
	b := &binder{d: s.dialect}
	var sets []string
	known := ""
	for _, col := range columns {
		v, ok := updated[col]
		if !ok {
			continue
		}
		if known == "" {
			known = col
		}
		if ov, had := old[col]; had && core.ValuesEqual(ov, v) {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = %s", s.q(col), b.bind(bindValue(v))))
	}
	if known == "" {
		return 0, ErrNoData
	}
	if len(sets) == 0 {
		// Nothing changed; still report whether the row matched.
		sets = append(sets, fmt.Sprintf("%s = %s", s.q(known), s.q(known)))
	}
	where, err := s.identity(b, types, columns, key, old)
	if err != nil {
		return 0, err
	}

	//nolint:gosec // identifiers are quoted, values are bound
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s", s.q(table), strings.Join(sets, ", "), where)
	return s.execAffected(ctx, query, b.args)
}

// DeleteRow deletes the row identified by row and returns how many rows
// were removed. ErrNotFound means nothing matched.
func (s *Store) DeleteRow(ctx context.Context, table string, row core.Row) (int64, error) {
	if len(row) == 0 {
		return 0, ErrMissingRowData
	}
	if err := s.requireTable(ctx, table); err != nil {
		return 0, err
	}
	columns, types, err := s.columnTypes(ctx, table)
	if err != nil {
		return 0, err
	}
	key, err := s.PrimaryKey(ctx, table)
	if err != nil {
		return 0, err
	}

	b := &binder{d: s.dialect}
	where, err := s.identity(b, types, columns, key, row)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE %s", s.q(table), where) //nolint:gosec // identifiers are quoted
	return s.execAffected(ctx, query, b.args)
}

// identity builds the WHERE clause matching snapshot. With a known primary
// key fully present in the snapshot, only key columns are compared;
// otherwise every known column of the snapshot is. Nulls compare with IS
// NULL. On dialects with text times, date and time columns also match when
// both sides name the same instant.
func (s *Store) identity(b *binder, types map[string]string, columns, key []string, snapshot core.Row) (string, error) {
	match := columns
	if len(key) > 0 && hasAll(snapshot, key) {
		match = key
	}

	var preds []string
	for _, col := range match {
		v, ok := snapshot[col]
		if !ok {
			continue
		}
		if v == nil {
			preds = append(preds, s.q(col)+" IS NULL")
			continue
		}
		if s.dialect.TextTimes && isTimeType(types[col]) {
			arg := bindValue(v)
			preds = append(preds, fmt.Sprintf("(%[1]s = %[2]s OR julianday(%[1]s) = julianday(%[3]s))",
				s.q(col), b.bind(arg), b.bind(arg)))
			continue
		}
		preds = append(preds, fmt.Sprintf("%s = %s", s.q(col), b.bind(bindValue(v))))
	}
	if len(preds) == 0 {
		return "", ErrMissingRowData
	}
	return strings.Join(preds, " AND "), nil
}

func (s *Store) execAffected(ctx context.Context, query string, args []any) (int64, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to execute: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return 0, fmt.Errorf("row: %w", ErrNotFound)
	}
	return n, nil
}

func (s *Store) scanRows(rows *sql.Rows, columns []string) ([]core.Row, error) {
	out := []core.Row{}
	for rows.Next() {
		row, err := s.scanRow(rows, columns)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

func isTimeType(name string) bool {
	return strings.Contains(name, "DATE") || strings.Contains(name, "TIME")
}

func hasAll(row core.Row, columns []string) bool {
	for _, c := range columns {
		if _, ok := row[c]; !ok {
			return false
		}
	}
	return true
}
