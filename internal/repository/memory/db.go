// Package memory implements the repository contracts in process memory.
//
// It reproduces the locking semantics the allocation engine relies on from
// PostgreSQL: exclusive row locks held until the owning transaction ends,
// bounded lock waits that fail with repository.ErrTransient, and writes that
// stay invisible to other transactions until commit.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Shivanand-hulikatti/ticket-allocation/internal/model"
	"github.com/Shivanand-hulikatti/ticket-allocation/internal/repository"
)

// ErrTxClosed is returned when a finished transaction is used again.
var ErrTxClosed = errors.New("memory: transaction already closed")

// DB holds committed state and the row-lock table.
type DB struct {
	mu            sync.RWMutex
	events        map[string]model.Event
	bookings      map[string]model.Booking
	waitlist      map[string]model.WaitlistEntry
	cancellations []model.CancellationRecord
	users         map[string]model.User
	usersByEmail  map[string]string

	seq   atomic.Int64
	locks lockTable

	lockTimeout time.Duration
	now         func() time.Time
	newID       func() string
}

// Option configures a DB.
type Option func(*DB)

// WithClock overrides the clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(db *DB) { db.now = now }
}

// WithLockTimeout bounds how long a transaction waits for a row lock. Zero
// waits until the context is done.
func WithLockTimeout(d time.Duration) Option {
	return func(db *DB) { db.lockTimeout = d }
}

// WithIDGenerator overrides identifier generation.
func WithIDGenerator(fn func() string) Option {
	return func(db *DB) { db.newID = fn }
}

// New returns an empty DB.
func New(opts ...Option) *DB {
	db := &DB{
		events:       make(map[string]model.Event),
		bookings:     make(map[string]model.Booking),
		waitlist:     make(map[string]model.WaitlistEntry),
		users:        make(map[string]model.User),
		usersByEmail: make(map[string]string),
		locks:        lockTable{rows: make(map[string]chan struct{})},
		lockTimeout:  5 * time.Second,
		now:          func() time.Time { return time.Now().UTC() },
		newID:        newUUID,
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// Begin opens a transaction.
func (db *DB) Begin(ctx context.Context) (repository.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", repository.ErrTransient, err)
	}
	return &Tx{
		db:       db,
		held:     make(map[string]chan struct{}),
		events:   make(map[string]model.Event),
		bookings: make(map[string]model.Booking),
		appended: make(map[string]model.WaitlistEntry),
		removed:  make(map[string]struct{}),
	}, nil
}

// Tx stages writes until Commit. A Tx is used by one goroutine at a time.
type Tx struct {
	db   *DB
	done bool
	held map[string]chan struct{}

	events        map[string]model.Event
	bookings      map[string]model.Booking
	appended      map[string]model.WaitlistEntry
	removed       map[string]struct{}
	cancellations []model.CancellationRecord
}

// Commit publishes the staged writes atomically and releases every lock.
func (t *Tx) Commit(ctx context.Context) error {
	if t.done {
		return ErrTxClosed
	}
	t.done = true

	db := t.db
	db.mu.Lock()
	for id, e := range t.events {
		db.events[id] = e
	}
	for id, b := range t.bookings {
		db.bookings[id] = b
	}
	for id := range t.removed {
		delete(db.waitlist, id)
	}
	for id, w := range t.appended {
		db.waitlist[id] = w
	}
	db.cancellations = append(db.cancellations, t.cancellations...)
	db.mu.Unlock()

	t.release()
	return nil
}

// Rollback discards the staged writes and releases every lock. Rolling back
// a finished transaction is a no-op.
func (t *Tx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.release()
	return nil
}

func (t *Tx) release() {
	for key, ch := range t.held {
		<-ch
		delete(t.held, key)
	}
}

// lock takes the exclusive lock on key, waiting at most the DB lock timeout.
// Locks are re-entrant within a transaction.
func (t *Tx) lock(ctx context.Context, key string) error {
	if _, ok := t.held[key]; ok {
		return nil
	}
	ch := t.db.locks.row(key)

	var timeout <-chan time.Time
	if t.db.lockTimeout > 0 {
		timer := time.NewTimer(t.db.lockTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case ch <- struct{}{}:
		t.held[key] = ch
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: waiting for %s: %w", repository.ErrTransient, key, ctx.Err())
	case <-timeout:
		return fmt.Errorf("%w: lock wait timeout on %s", repository.ErrTransient, key)
	}
}

// event returns the event as seen by this transaction.
func (t *Tx) event(id string) (model.Event, bool) {
	if e, ok := t.events[id]; ok {
		return e, true
	}
	t.db.mu.RLock()
	defer t.db.mu.RUnlock()
	e, ok := t.db.events[id]
	return e, ok
}

// booking returns the booking as seen by this transaction.
func (t *Tx) booking(id string) (model.Booking, bool) {
	if b, ok := t.bookings[id]; ok {
		return b, true
	}
	t.db.mu.RLock()
	defer t.db.mu.RUnlock()
	b, ok := t.db.bookings[id]
	return b, ok
}

// lockTable hands out one single-slot semaphore per row key.
type lockTable struct {
	mu   sync.Mutex
	rows map[string]chan struct{}
}

func (l *lockTable) row(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.rows[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.rows[key] = ch
	}
	return ch
}

func eventKey(id string) string    { return "event:" + id }
func bookingKey(id string) string  { return "booking:" + id }
func waitlistKey(id string) string { return "wait_list:" + id }

// txOf recovers the memory transaction behind a repository.Tx.
func (db *DB) txOf(t repository.Tx) (*Tx, error) {
	mt, ok := t.(*Tx)
	if !ok || mt == nil {
		return nil, fmt.Errorf("memory: transaction handle %T was not opened by this store", t)
	}
	if mt.db != db {
		return nil, errors.New("memory: transaction belongs to another store")
	}
	if mt.done {
		return nil, ErrTxClosed
	}
	return mt, nil
}
