package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/ticket-allocation/internal/model"
	"github.com/Shivanand-hulikatti/ticket-allocation/internal/repository"
)

func seedEvent(t *testing.T, db *DB, total int) *model.Event {
	t.Helper()
	now := time.Now().UTC()
	ev, err := db.Events().Create(context.Background(), model.Event{
		Name: "e", Venue: "v", ManagerID: "m", TotalTicket: total,
		StartAt: now.Add(time.Hour), EndAt: now.Add(2 * time.Hour),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return ev
}

func begin(t *testing.T, db *DB) repository.Tx {
	t.Helper()
	tx, err := db.Begin(context.Background())
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	return tx
}

func TestGetForUpdate_BlocksUntilCommit(t *testing.T) {
	db := New()
	ctx := context.Background()
	ev := seedEvent(t, db, 5)

	tx1 := begin(t, db)
	if _, err := db.Events().GetForUpdate(ctx, tx1, ev.ID); err != nil {
		t.Fatalf("tx1 lock: %v", err)
	}
	if err := db.Events().AdjustAvailableTicket(ctx, tx1, ev.ID, -1); err != nil {
		t.Fatalf("adjust: %v", err)
	}

	got := make(chan int, 1)
	go func() {
		tx2, _ := db.Begin(ctx)
		defer tx2.Rollback(ctx)
		e, err := db.Events().GetForUpdate(ctx, tx2, ev.ID)
		if err != nil {
			got <- -1
			return
		}
		got <- e.AvailableTicket
	}()

	select {
	case v := <-got:
		t.Fatalf("second lock granted while first held (saw %d)", v)
	case <-time.After(50 * time.Millisecond):
	}

	if err := tx1.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
	select {
	case v := <-got:
		if v != 4 {
			t.Errorf("second transaction saw available=%d, want 4", v)
		}
	case <-time.After(time.Second):
		t.Fatal("second lock never granted")
	}
}

func TestGetForUpdate_MissingRowTakesNoLock(t *testing.T) {
	db := New()
	tx := begin(t, db)
	defer tx.Rollback(context.Background())

	_, err := db.Events().GetForUpdate(context.Background(), tx, "missing")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if n := len(tx.(*Tx).held); n != 0 {
		t.Errorf("held locks = %d, want 0", n)
	}
}

func TestLockTimeout_IsTransient(t *testing.T) {
	db := New(WithLockTimeout(20 * time.Millisecond))
	ctx := context.Background()
	ev := seedEvent(t, db, 1)

	holder := begin(t, db)
	defer holder.Rollback(ctx)
	if _, err := db.Events().GetForUpdate(ctx, holder, ev.ID); err != nil {
		t.Fatalf("lock: %v", err)
	}

	waiter := begin(t, db)
	defer waiter.Rollback(ctx)
	_, err := db.Events().GetForUpdate(ctx, waiter, ev.ID)
	if !errors.Is(err, repository.ErrTransient) {
		t.Errorf("err = %v, want ErrTransient", err)
	}
}

func TestLocks_AreReentrant(t *testing.T) {
	db := New(WithLockTimeout(20 * time.Millisecond))
	ctx := context.Background()
	ev := seedEvent(t, db, 1)

	tx := begin(t, db)
	defer tx.Rollback(ctx)
	for i := 0; i < 2; i++ {
		if _, err := db.Events().GetForUpdate(ctx, tx, ev.ID); err != nil {
			t.Fatalf("lock %d: %v", i, err)
		}
	}
	if err := db.Events().AdjustAvailableTicket(ctx, tx, ev.ID, -1); err != nil {
		t.Fatalf("adjust under own lock: %v", err)
	}
}

func TestRollback_DiscardsWrites(t *testing.T) {
	db := New()
	ctx := context.Background()
	ev := seedEvent(t, db, 1)

	tx := begin(t, db)
	if _, err := db.Events().GetForUpdate(ctx, tx, ev.ID); err != nil {
		t.Fatalf("lock: %v", err)
	}
	b, err := db.Bookings().Create(ctx, tx, ev.ID, "alice")
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	if err := db.Events().AdjustAvailableTicket(ctx, tx, ev.ID, -1); err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if _, err := db.Waitlist().Append(ctx, tx, ev.ID, "bob"); err != nil {
		t.Fatalf("append: %v", err)
	}

	// Uncommitted state is invisible outside the transaction.
	if got, _ := db.Events().GetByID(ctx, ev.ID); got.AvailableTicket != 1 {
		t.Errorf("dirty read: available=%d", got.AvailableTicket)
	}

	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if _, err := db.Bookings().GetByID(ctx, b.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("booking survived rollback: %v", err)
	}
	if entries, _ := db.Waitlist().ListByEvent(ctx, ev.ID); len(entries) != 0 {
		t.Errorf("wait list survived rollback: %+v", entries)
	}
	if err := tx.Commit(ctx); !errors.Is(err, ErrTxClosed) {
		t.Errorf("commit after rollback: err = %v, want ErrTxClosed", err)
	}

	// The lock is free again.
	tx2 := begin(t, db)
	defer tx2.Rollback(ctx)
	lockCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	if _, err := db.Events().GetForUpdate(lockCtx, tx2, ev.ID); err != nil {
		t.Errorf("lock after rollback: %v", err)
	}
}

func TestAdjustAvailableTicket_RejectsBadDelta(t *testing.T) {
	db := New()
	ev := seedEvent(t, db, 3)
	tx := begin(t, db)
	defer tx.Rollback(context.Background())

	if err := db.Events().AdjustAvailableTicket(context.Background(), tx, ev.ID, -2); err == nil {
		t.Error("delta -2 accepted")
	}
}

func TestWaitlist_FIFO(t *testing.T) {
	base := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	ticks := []time.Time{base.Add(2 * time.Second), base, base, base.Add(time.Second)}
	i := 0
	db := New(WithClock(func() time.Time {
		ts := base
		if i < len(ticks) {
			ts = ticks[i]
			i++
		}
		return ts
	}))
	ctx := context.Background()

	// Event creation consumes the first tick.
	ev := seedEvent(t, db, 1)

	tx := begin(t, db)
	for _, u := range []string{"a", "b", "c"} {
		if _, err := db.Waitlist().Append(ctx, tx, ev.ID, u); err != nil {
			t.Fatalf("append %s: %v", u, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	// a and b share a timestamp; seq keeps a first. c is a second later.
	entries, err := db.Waitlist().ListByEvent(ctx, ev.ID)
	if err != nil {
		t.Fatalf("ListByEvent: %v", err)
	}
	var order []string
	for _, e := range entries {
		order = append(order, e.UserID)
	}
	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Errorf("order = %v, want [a b c]", order)
	}

	head, err := db.Waitlist().PeekOldest(ctx, nil, ev.ID)
	if err != nil || head == nil || head.UserID != "a" {
		t.Fatalf("PeekOldest = %+v, %v; want a", head, err)
	}

	tx = begin(t, db)
	defer tx.Rollback(ctx)
	if err := db.Waitlist().Remove(ctx, tx, head.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := db.Waitlist().Remove(ctx, tx, head.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("second Remove: err = %v, want ErrNotFound", err)
	}
	next, _ := db.Waitlist().PeekOldest(ctx, tx, ev.ID)
	if next == nil || next.UserID != "b" {
		t.Errorf("PeekOldest in tx = %+v, want b", next)
	}
}

func TestBookingCancel_Conditioned(t *testing.T) {
	db := New()
	ctx := context.Background()
	ev := seedEvent(t, db, 1)

	tx := begin(t, db)
	b, err := db.Bookings().Create(ctx, tx, ev.ID, "alice")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	tx = begin(t, db)
	defer tx.Rollback(ctx)
	if _, err := db.Bookings().Cancel(ctx, tx, b.ID, "mallory"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("wrong owner: err = %v, want ErrNotFound", err)
	}
	got, err := db.Bookings().Cancel(ctx, tx, b.ID, "alice")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got.Status != model.BookingStatusCancelled {
		t.Errorf("status = %s", got.Status)
	}
	if _, err := db.Bookings().Cancel(ctx, tx, b.ID, "alice"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("second cancel: err = %v, want ErrNotFound", err)
	}
}

func TestUsers_UniqueEmail(t *testing.T) {
	db := New()
	ctx := context.Background()
	if _, err := db.Users().Create(ctx, model.User{Name: "a", Email: "a@example.com"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := db.Users().Create(ctx, model.User{Name: "b", Email: "A@EXAMPLE.com"})
	if !errors.Is(err, repository.ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}
}
