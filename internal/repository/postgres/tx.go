// Package postgres implements the repository contracts on PostgreSQL using
// pgx directly (no ORM).
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/ticket-allocation/internal/repository"
)

// querier is the subset of pgx shared by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxManager opens transactions with a bounded lock wait.
type TxManager struct {
	db          *pgxpool.Pool
	lockTimeout time.Duration
}

// NewTxManager constructs a TxManager. A non-positive lockTimeout leaves the
// server default in place.
func NewTxManager(db *pgxpool.Pool, lockTimeout time.Duration) *TxManager {
	return &TxManager{db: db, lockTimeout: lockTimeout}
}

// Begin starts a READ COMMITTED transaction. Row locks taken inside it (FOR
// UPDATE, UPDATE) wait at most lockTimeout before failing with
// repository.ErrTransient.
func (m *TxManager) Begin(ctx context.Context) (repository.Tx, error) {
	pgTx, err := m.db.Begin(ctx)
	if err != nil {
		return nil, classify(err)
	}
	if m.lockTimeout > 0 {
		// SET does not take bind parameters.
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = %d", m.lockTimeout.Milliseconds())
		if _, err := pgTx.Exec(ctx, stmt); err != nil {
			_ = pgTx.Rollback(context.WithoutCancel(ctx))
			return nil, fmt.Errorf("set lock_timeout: %w", classify(err))
		}
	}
	return &tx{Tx: pgTx}, nil
}

// tx adapts pgx.Tx so commit failures are classified like every other error.
type tx struct {
	pgx.Tx
}

func (t *tx) Commit(ctx context.Context) error {
	return classify(t.Tx.Commit(ctx))
}

func (t *tx) Rollback(ctx context.Context) error {
	err := t.Tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

// unwrap recovers the pgx transaction behind a repository.Tx.
func unwrap(t repository.Tx) (pgx.Tx, error) {
	pt, ok := t.(*tx)
	if !ok || pt == nil {
		return nil, fmt.Errorf("postgres: transaction handle %T was not opened by TxManager", t)
	}
	return pt.Tx, nil
}

// PostgreSQL SQLSTATE codes the repositories care about.
const (
	codeUniqueViolation      = "23505"
	codeInvalidText          = "22P02"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeQueryCanceled        = "57014"
	codeAdminShutdown        = "57P01"
)

// classify maps driver errors onto the repository error taxonomy, keeping the
// original error in the chain.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%w: %s", repository.ErrConflict, pgErr.ConstraintName)
		case codeInvalidText:
			// A malformed identifier names nothing.
			return repository.ErrNotFound
		case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable,
			codeQueryCanceled, codeAdminShutdown:
			return fmt.Errorf("%w: %w", repository.ErrTransient, err)
		}
		return err
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return fmt.Errorf("%w: %w", repository.ErrTransient, err)
	}
	return err
}

// Compile-time checks.
var (
	_ repository.Beginner          = (*TxManager)(nil)
	_ repository.EventStore        = (*EventRepository)(nil)
	_ repository.WaitlistStore     = (*WaitlistRepository)(nil)
	_ repository.BookingStore      = (*BookingRepository)(nil)
	_ repository.CancellationStore = (*CancellationRepository)(nil)
	_ repository.UserStore         = (*UserRepository)(nil)
)
