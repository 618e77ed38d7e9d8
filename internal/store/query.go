package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/leapstack-labs/leapconsole/pkg/core"
)

// QueryResult holds the rows of an ad-hoc statement.
type QueryResult struct {
	Columns []string
	Rows    []core.Row
	// Truncated is set when rows past the row limit were dropped.
	Truncated bool
}

// Query runs an ad-hoc statement in a transaction that is always rolled
// back, so nothing it writes persists. At most the row limit is returned.
func (s *Store) Query(ctx context.Context, query string) (*QueryResult, error) {
	if s.db == nil {
		return nil, ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	res := &QueryResult{Columns: columns, Rows: []core.Row{}}
	for rows.Next() {
		if len(res.Rows) == s.rowLimit {
			res.Truncated = true
			break
		}
		row, err := s.scanRow(rows, columns)
		if err != nil {
			return nil, err
		}
		res.Rows = append(res.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	s.logger.Debug("ad-hoc query", "rows", len(res.Rows), "truncated", res.Truncated)
	return res, nil
}

func (s *Store) scanRow(rows *sql.Rows, columns []string) (core.Row, error) {
	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}
	row := make(core.Row, len(columns))
	for i, col := range columns {
		if t, ok := values[i].(time.Time); ok {
			row[col] = s.dialect.FormatTime(t)
			continue
		}
		row[col] = normalizeValue(values[i])
	}
	return row, nil
}
