package store

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/leapstack-labs/leapconsole/pkg/core"
)

// Verdict messages for rejected codes.
const (
	MsgInvalidCode   = "Invalid code. Please try again."
	MsgCodeUsed      = "This code has already been used."
	MsgCodeExpired   = "This code has expired."
	MsgCodeMalformed = "Codes are 6 characters long."
)

// Verdict is the outcome of checking an access code.
type Verdict struct {
	Valid   bool
	Message string
}

// StoreCode records a code as issued now. Re-storing a code renews it.
func (s *Store) StoreCode(ctx context.Context, code string) error {
	if s.db == nil {
		return ErrClosed
	}
	normalized, err := core.ValidateCode(code)
	if err != nil {
		return err
	}

	b := &binder{d: s.dialect}
	//nolint:gosec // values are bound
	query := fmt.Sprintf(`INSERT INTO %s (code, created_at, consumed_at) VALUES (%s, %s, NULL)
		ON CONFLICT (code) DO UPDATE SET created_at = excluded.created_at, consumed_at = NULL`,
		codesTable, b.bind(normalized), b.bind(s.now().Unix()))
	if _, err := s.db.ExecContext(ctx, query, b.args...); err != nil {
		return fmt.Errorf("failed to store code: %w", err)
	}
	s.logger.Debug("access code stored")
	return nil
}

// VerifyCode checks a code. A stored code is accepted once within the TTL
// and consumed by the check; the configured static code is always accepted.
func (s *Store) VerifyCode(ctx context.Context, code string) (Verdict, error) {
	if s.db == nil {
		return Verdict{}, ErrClosed
	}
	normalized, err := core.ValidateCode(code)
	if err != nil {
		return Verdict{Message: MsgCodeMalformed}, nil
	}
	if s.staticCode != "" &&
		subtle.ConstantTimeCompare([]byte(normalized), []byte(core.NormalizeCode(s.staticCode))) == 1 {
		return Verdict{Valid: true}, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Verdict{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	b := &binder{d: s.dialect}
	//nolint:gosec // values are bound
	query := fmt.Sprintf(`SELECT created_at, consumed_at FROM %s WHERE code = %s`, codesTable, b.bind(normalized))
	var (
		createdAt  int64
		consumedAt sql.NullInt64
	)
	err = tx.QueryRowContext(ctx, query, b.args...).Scan(&createdAt, &consumedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Verdict{Message: MsgInvalidCode}, nil
	}
	if err != nil {
		return Verdict{}, fmt.Errorf("failed to look up code: %w", err)
	}

	now := s.now()
	switch {
	case consumedAt.Valid:
		return Verdict{Message: MsgCodeUsed}, nil
	case now.Sub(time.Unix(createdAt, 0)) > s.codeTTL:
		return Verdict{Message: MsgCodeExpired}, nil
	}

	b = &binder{d: s.dialect}
	//nolint:gosec // values are bound
	update := fmt.Sprintf(`UPDATE %s SET consumed_at = %s WHERE code = %s AND consumed_at IS NULL`,
		codesTable, b.bind(now.Unix()), b.bind(normalized))
	res, err := tx.ExecContext(ctx, update, b.args...)
	if err != nil {
		return Verdict{}, fmt.Errorf("failed to consume code: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return Verdict{Message: MsgCodeUsed}, nil
	}
	if err := tx.Commit(); err != nil {
		return Verdict{}, fmt.Errorf("failed to commit code: %w", err)
	}
	s.logger.Info("access code accepted")
	return Verdict{Valid: true}, nil
}

// PendingCodes returns how many stored codes are unconsumed and unexpired.
func (s *Store) PendingCodes(ctx context.Context) (int64, error) {
	if s.db == nil {
		return 0, ErrClosed
	}
	b := &binder{d: s.dialect}
	//nolint:gosec // values are bound
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE consumed_at IS NULL AND created_at >= %s`,
		codesTable, b.bind(s.now().Add(-s.codeTTL).Unix()))
	var n int64
	if err := s.db.QueryRowContext(ctx, query, b.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count codes: %w", err)
	}
	return n, nil
}

// PurgeCodes deletes consumed and expired codes and returns how many went.
func (s *Store) PurgeCodes(ctx context.Context) (int64, error) {
	if s.db == nil {
		return 0, ErrClosed
	}
	b := &binder{d: s.dialect}
	//nolint:gosec // values are bound
	query := fmt.Sprintf(`DELETE FROM %s WHERE consumed_at IS NOT NULL OR created_at < %s`,
		codesTable, b.bind(s.now().Add(-s.codeTTL).Unix()))
	res, err := s.db.ExecContext(ctx, query, b.args...)
	if err != nil {
		return 0, fmt.Errorf("failed to purge codes: %w", err)
	}
	return res.RowsAffected()
}
