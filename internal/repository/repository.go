// Package repository defines the storage contracts of the ticket allocation
// engine: the transaction handle, the four ledger stores and the error
// taxonomy every backend reports through.
//
// Backends live in sub-packages: postgres (pgx, row locks via FOR UPDATE) and
// memory (in-process, row-lock table). Both honour the same locking contract:
// GetForUpdate blocks until any other transaction holding the same event row
// commits or rolls back, bounded by the backend's lock timeout.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Shivanand-hulikatti/ticket-allocation/internal/model"
)

// ErrNotFound is returned when a requested resource does not exist. Booking
// ownership mismatches are reported as ErrNotFound as well.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write violates a uniqueness constraint.
var ErrConflict = errors.New("conflict")

// ErrTransient is returned for lock-wait timeouts, deadlock victims and lost
// connections. The whole operation may be retried from the start.
var ErrTransient = errors.New("transient store failure")

// Tx is a handle to an open transaction. Store operations that take a Tx
// participate in the same atomic unit; nothing they write is visible to other
// transactions until Commit.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Beginner opens transactions.
type Beginner interface {
	Begin(ctx context.Context) (Tx, error)
}

// EventStore persists events and their capacity counter.
type EventStore interface {
	// Create persists e with AvailableTicket = TotalTicket and status ACTIVE.
	Create(ctx context.Context, e model.Event) (*model.Event, error)
	GetByID(ctx context.Context, id string) (*model.Event, error)
	List(ctx context.Context) ([]model.Event, error)
	// GetForUpdate reads the event with an exclusive row lock held until tx
	// ends. No lock is taken when the row is missing.
	GetForUpdate(ctx context.Context, tx Tx, id string) (*model.Event, error)
	// AdjustAvailableTicket adds delta (+1 or -1) to the counter. Bounds are
	// the caller's responsibility.
	AdjustAvailableTicket(ctx context.Context, tx Tx, id string, delta int) error
}

// WaitlistStore is a FIFO queue of pending claims per event.
type WaitlistStore interface {
	Append(ctx context.Context, tx Tx, eventID, userID string) (*model.WaitlistEntry, error)
	// PeekOldest returns the head of the event's queue, or nil when empty.
	// Callers must hold the event lock in tx.
	PeekOldest(ctx context.Context, tx Tx, eventID string) (*model.WaitlistEntry, error)
	ListByEvent(ctx context.Context, eventID string) ([]model.WaitlistEntry, error)
	Remove(ctx context.Context, tx Tx, id string) error
}

// BookingStore persists bookings.
type BookingStore interface {
	Create(ctx context.Context, tx Tx, eventID, userID string) (*model.Booking, error)
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	// Cancel moves a CONFIRMED booking owned by userID to CANCELLED. Zero
	// matching rows, for whatever reason, is ErrNotFound.
	Cancel(ctx context.Context, tx Tx, id, userID string) (*model.Booking, error)
	ListByUser(ctx context.Context, userID string) ([]model.Booking, error)
	CountConfirmed(ctx context.Context, eventID string) (int, error)
}

// CancellationStore is the append-only cancellation log.
type CancellationStore interface {
	Record(ctx context.Context, tx Tx, bookingID string, reason *string) (*model.CancellationRecord, error)
}

// UserStore persists identities for the HTTP layer.
type UserStore interface {
	Create(ctx context.Context, u model.User) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

// RunInTx runs fn inside a transaction opened on b. The transaction commits
// when fn returns nil and rolls back otherwise, including on panic. Rollback
// ignores ctx cancellation so locks are released even for aborted callers.
func RunInTx(ctx context.Context, b Beginner, fn func(tx Tx) error) (err error) {
	tx, err := b.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
