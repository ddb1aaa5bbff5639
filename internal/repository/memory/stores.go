package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/ticket-allocation/internal/model"
	"github.com/Shivanand-hulikatti/ticket-allocation/internal/repository"
)

func newUUID() string { return uuid.New().String() }

// Events returns the EventStore view of db.
func (db *DB) Events() *EventStore { return &EventStore{db: db} }

// Waitlist returns the WaitlistStore view of db.
func (db *DB) Waitlist() *WaitlistStore { return &WaitlistStore{db: db} }

// Bookings returns the BookingStore view of db.
func (db *DB) Bookings() *BookingStore { return &BookingStore{db: db} }

// Cancellations returns the CancellationStore view of db.
func (db *DB) Cancellations() *CancellationStore { return &CancellationStore{db: db} }

// Users returns the UserStore view of db.
func (db *DB) Users() *UserStore { return &UserStore{db: db} }

// ─── Events ──────────────────────────────────────────────────────────────────

// EventStore implements repository.EventStore.
type EventStore struct{ db *DB }

func (s *EventStore) Create(ctx context.Context, e model.Event) (*model.Event, error) {
	now := s.db.now()
	e.ID = s.db.newID()
	e.AvailableTicket = e.TotalTicket
	e.Status = model.EventStatusActive
	e.CreatedAt = now
	e.UpdatedAt = now

	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.events[e.ID]; ok {
		return nil, fmt.Errorf("%w: event %s", repository.ErrConflict, e.ID)
	}
	s.db.events[e.ID] = e
	return &e, nil
}

func (s *EventStore) GetByID(ctx context.Context, id string) (*model.Event, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	e, ok := s.db.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (s *EventStore) List(ctx context.Context) ([]model.Event, error) {
	s.db.mu.RLock()
	events := make([]model.Event, 0, len(s.db.events))
	for _, e := range s.db.events {
		events = append(events, e)
	}
	s.db.mu.RUnlock()

	sort.Slice(events, func(i, j int) bool {
		return events[i].CreatedAt.After(events[j].CreatedAt)
	})
	return events, nil
}

// GetForUpdate locks the event row for the rest of t. The returned value is
// read after the lock is granted, so it reflects every earlier commit.
func (s *EventStore) GetForUpdate(ctx context.Context, t repository.Tx, id string) (*model.Event, error) {
	tx, err := s.db.txOf(t)
	if err != nil {
		return nil, err
	}
	if _, ok := tx.event(id); !ok {
		return nil, repository.ErrNotFound
	}
	if err := tx.lock(ctx, eventKey(id)); err != nil {
		return nil, err
	}
	e, _ := tx.event(id)
	return &e, nil
}

func (s *EventStore) AdjustAvailableTicket(ctx context.Context, t repository.Tx, id string, delta int) error {
	if delta != 1 && delta != -1 {
		return fmt.Errorf("adjust available_ticket: delta must be +1 or -1, got %d", delta)
	}
	tx, err := s.db.txOf(t)
	if err != nil {
		return err
	}
	if _, ok := tx.event(id); !ok {
		return repository.ErrNotFound
	}
	if err := tx.lock(ctx, eventKey(id)); err != nil {
		return err
	}
	e, _ := tx.event(id)
	e.AvailableTicket += delta
	e.UpdatedAt = s.db.now()
	tx.events[id] = e
	return nil
}

// ─── Waitlist ────────────────────────────────────────────────────────────────

// WaitlistStore implements repository.WaitlistStore.
type WaitlistStore struct{ db *DB }

func (s *WaitlistStore) Append(ctx context.Context, t repository.Tx, eventID, userID string) (*model.WaitlistEntry, error) {
	tx, err := s.db.txOf(t)
	if err != nil {
		return nil, err
	}
	w := model.WaitlistEntry{
		ID:        s.db.newID(),
		EventID:   eventID,
		UserID:    userID,
		Seq:       s.db.seq.Add(1),
		CreatedAt: s.db.now(),
	}
	tx.appended[w.ID] = w
	return &w, nil
}

// PeekOldest returns the head of the queue as seen by t, or by committed
// state when t is nil.
func (s *WaitlistStore) PeekOldest(ctx context.Context, t repository.Tx, eventID string) (*model.WaitlistEntry, error) {
	var tx *Tx
	if t != nil {
		var err error
		if tx, err = s.db.txOf(t); err != nil {
			return nil, err
		}
	}

	var head *model.WaitlistEntry
	consider := func(w model.WaitlistEntry) {
		if w.EventID != eventID {
			return
		}
		if head == nil || w.Before(head) {
			head = &w
		}
	}

	s.db.mu.RLock()
	for id, w := range s.db.waitlist {
		if tx != nil {
			if _, gone := tx.removed[id]; gone {
				continue
			}
		}
		consider(w)
	}
	s.db.mu.RUnlock()

	if tx != nil {
		for _, w := range tx.appended {
			consider(w)
		}
	}
	return head, nil
}

func (s *WaitlistStore) ListByEvent(ctx context.Context, eventID string) ([]model.WaitlistEntry, error) {
	s.db.mu.RLock()
	var entries []model.WaitlistEntry
	for _, w := range s.db.waitlist {
		if w.EventID == eventID {
			entries = append(entries, w)
		}
	}
	s.db.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].Before(&entries[j]) })
	return entries, nil
}

// Remove deletes an entry, locking its row first the way DELETE does.
func (s *WaitlistStore) Remove(ctx context.Context, t repository.Tx, id string) error {
	tx, err := s.db.txOf(t)
	if err != nil {
		return err
	}
	if _, ok := tx.appended[id]; ok {
		delete(tx.appended, id)
		return nil
	}
	if _, gone := tx.removed[id]; gone {
		return repository.ErrNotFound
	}
	if err := tx.lock(ctx, waitlistKey(id)); err != nil {
		return err
	}

	s.db.mu.RLock()
	_, ok := s.db.waitlist[id]
	s.db.mu.RUnlock()
	if !ok {
		return repository.ErrNotFound
	}
	tx.removed[id] = struct{}{}
	return nil
}

// ─── Bookings ────────────────────────────────────────────────────────────────

// BookingStore implements repository.BookingStore.
type BookingStore struct{ db *DB }

func (s *BookingStore) Create(ctx context.Context, t repository.Tx, eventID, userID string) (*model.Booking, error) {
	tx, err := s.db.txOf(t)
	if err != nil {
		return nil, err
	}
	now := s.db.now()
	b := model.Booking{
		ID:        s.db.newID(),
		EventID:   eventID,
		UserID:    userID,
		Status:    model.BookingStatusConfirmed,
		CreatedAt: now,
		UpdatedAt: now,
	}
	tx.bookings[b.ID] = b
	return &b, nil
}

func (s *BookingStore) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	b, ok := s.db.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &b, nil
}

// Cancel locks the booking row, then applies the ownership- and
// status-conditioned transition.
func (s *BookingStore) Cancel(ctx context.Context, t repository.Tx, id, userID string) (*model.Booking, error) {
	tx, err := s.db.txOf(t)
	if err != nil {
		return nil, err
	}
	if _, ok := tx.booking(id); !ok {
		return nil, repository.ErrNotFound
	}
	if err := tx.lock(ctx, bookingKey(id)); err != nil {
		return nil, err
	}
	b, _ := tx.booking(id)
	if b.UserID != userID || !b.IsActive() {
		return nil, repository.ErrNotFound
	}
	b.Status = model.BookingStatusCancelled
	b.UpdatedAt = s.db.now()
	tx.bookings[id] = b
	return &b, nil
}

func (s *BookingStore) ListByUser(ctx context.Context, userID string) ([]model.Booking, error) {
	s.db.mu.RLock()
	var bookings []model.Booking
	for _, b := range s.db.bookings {
		if b.UserID == userID && b.DeletedAt == nil {
			bookings = append(bookings, b)
		}
	}
	s.db.mu.RUnlock()

	sort.Slice(bookings, func(i, j int) bool {
		return bookings[i].CreatedAt.After(bookings[j].CreatedAt)
	})
	return bookings, nil
}

func (s *BookingStore) CountConfirmed(ctx context.Context, eventID string) (int, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	n := 0
	for _, b := range s.db.bookings {
		if b.EventID == eventID && b.IsActive() {
			n++
		}
	}
	return n, nil
}

// ─── Cancellations ───────────────────────────────────────────────────────────

// CancellationStore implements repository.CancellationStore.
type CancellationStore struct{ db *DB }

func (s *CancellationStore) Record(ctx context.Context, t repository.Tx, bookingID string, reason *string) (*model.CancellationRecord, error) {
	tx, err := s.db.txOf(t)
	if err != nil {
		return nil, err
	}
	rec := model.CancellationRecord{
		ID:        s.db.newID(),
		BookingID: bookingID,
		Reason:    reason,
		CreatedAt: s.db.now(),
	}
	tx.cancellations = append(tx.cancellations, rec)
	return &rec, nil
}

// ListByBooking returns the committed records for bookingID, oldest first.
func (s *CancellationStore) ListByBooking(ctx context.Context, bookingID string) ([]model.CancellationRecord, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	var recs []model.CancellationRecord
	for _, rec := range s.db.cancellations {
		if rec.BookingID == bookingID {
			recs = append(recs, rec)
		}
	}
	return recs, nil
}

// ─── Users ───────────────────────────────────────────────────────────────────

// UserStore implements repository.UserStore. Emails are unique
// case-insensitively.
type UserStore struct{ db *DB }

func (s *UserStore) Create(ctx context.Context, u model.User) (*model.User, error) {
	u.ID = s.db.newID()
	u.CreatedAt = s.db.now()
	key := strings.ToLower(u.Email)

	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, taken := s.db.usersByEmail[key]; taken {
		return nil, fmt.Errorf("%w: users_email_key", repository.ErrConflict)
	}
	s.db.users[u.ID] = u
	s.db.usersByEmail[key] = u.ID
	return &u, nil
}

func (s *UserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	u, ok := s.db.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	id, ok := s.db.usersByEmail[strings.ToLower(email)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u := s.db.users[id]
	return &u, nil
}

// Compile-time checks.
var (
	_ repository.Beginner          = (*DB)(nil)
	_ repository.EventStore        = (*EventStore)(nil)
	_ repository.WaitlistStore     = (*WaitlistStore)(nil)
	_ repository.BookingStore      = (*BookingStore)(nil)
	_ repository.CancellationStore = (*CancellationStore)(nil)
	_ repository.UserStore         = (*UserStore)(nil)
)
