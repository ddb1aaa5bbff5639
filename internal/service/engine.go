// Package service implements the ticket allocation engine and the identity
// service consumed by the HTTP layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/ticket-allocation/internal/logger"
	"github.com/Shivanand-hulikatti/ticket-allocation/internal/model"
	"github.com/Shivanand-hulikatti/ticket-allocation/internal/notify"
	"github.com/Shivanand-hulikatti/ticket-allocation/internal/repository"
)

// Stores groups the backends the engine runs on. All of them must come from
// the same backend as Tx.
type Stores struct {
	Tx            repository.Beginner
	Events        repository.EventStore
	Waitlist      repository.WaitlistStore
	Bookings      repository.BookingStore
	Cancellations repository.CancellationStore
}

// AllocationEngine runs the booking and cancellation protocols.
//
// Locking discipline: every transaction that reads or writes an event's
// capacity ledger (available_ticket, its confirmed bookings and its waitlist)
// first takes that event's row lock through EventStore.GetForUpdate. Both
// protocols lock the event before any existing booking row, so lock order is
// always event -> booking and no cycle can form. Different events never
// contend.
type AllocationEngine struct {
	tx            repository.Beginner
	events        repository.EventStore
	waitlist      repository.WaitlistStore
	bookings      repository.BookingStore
	cancellations repository.CancellationStore

	pub notify.Publisher
	log *logger.Logger
	now func() time.Time
}

// EngineOption configures an AllocationEngine.
type EngineOption func(*AllocationEngine)

// WithClock overrides the clock used for past-event checks.
func WithClock(now func() time.Time) EngineOption {
	return func(e *AllocationEngine) { e.now = now }
}

// WithPublisher sets the domain-event publisher. The default drops events.
func WithPublisher(p notify.Publisher) EngineOption {
	return func(e *AllocationEngine) { e.pub = p }
}

// NewAllocationEngine constructs an AllocationEngine.
func NewAllocationEngine(st Stores, log *logger.Logger, opts ...EngineOption) *AllocationEngine {
	e := &AllocationEngine{
		tx:            st.Tx,
		events:        st.Events,
		waitlist:      st.Waitlist,
		bookings:      st.Bookings,
		cancellations: st.Cancellations,
		pub:           notify.Nop{},
		log:           log,
		now:           func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// InitializeEvent validates req and creates an ACTIVE event with a full
// counter, managed by managerID.
func (e *AllocationEngine) InitializeEvent(ctx context.Context, req model.InitializeEventRequest, managerID string) (*model.Event, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Venue = strings.TrimSpace(req.Venue)
	now := e.now()

	switch {
	case managerID == "":
		return nil, invalid("manager id is required")
	case req.Name == "":
		return nil, invalid("event name is required")
	case req.Venue == "":
		return nil, invalid("venue is required")
	case req.TotalTicket < 1:
		return nil, invalid("total_ticket must be at least 1")
	case req.StartAt.Before(now):
		return nil, invalid("start_at must not be in the past")
	case !req.EndAt.After(req.StartAt):
		return nil, invalid("end_at must be after start_at")
	}

	ev, err := e.events.Create(ctx, model.Event{
		Name:        req.Name,
		Venue:       req.Venue,
		ManagerID:   managerID,
		TotalTicket: req.TotalTicket,
		StartAt:     req.StartAt.UTC(),
		EndAt:       req.EndAt.UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	e.log.Info("event initialized",
		"event_id", ev.ID,
		"manager_id", managerID,
		"total_ticket", ev.TotalTicket,
	)
	return ev, nil
}

// GetEventStatus returns the event and its waitlist length. It takes no
// locks, so it may trail in-flight transactions; never allocate from it.
func (e *AllocationEngine) GetEventStatus(ctx context.Context, eventID string) (*model.EventStatusResponse, error) {
	ev, err := e.events.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	entries, err := e.waitlist.ListByEvent(ctx, ev.ID)
	if err != nil {
		return nil, fmt.Errorf("list wait list: %w", err)
	}
	return &model.EventStatusResponse{Event: *ev, WaitListCount: len(entries)}, nil
}

// ListEvents returns every event, newest first.
func (e *AllocationEngine) ListEvents(ctx context.Context) ([]model.Event, error) {
	return e.events.List(ctx)
}

// ListUserBookings returns the user's bookings, newest first.
func (e *AllocationEngine) ListUserBookings(ctx context.Context, userID string) ([]model.Booking, error) {
	return e.bookings.ListByUser(ctx, userID)
}

// BookTicket claims one ticket of eventID for userID in a single transaction:
//
//  1. lock the event row;
//  2. reject a cancelled or finished event (checked on the locked row);
//  3. with capacity left, create a CONFIRMED booking and decrement the counter;
//  4. otherwise append to the waitlist.
//
// Concurrent calls for the same event serialise on step 1, and each one sees
// the counter its predecessor committed, so the event is never oversold.
// Every request is independent: a user may hold several bookings or
// waitlist entries for one event.
func (e *AllocationEngine) BookTicket(ctx context.Context, eventID, userID string) (*model.BookingOutcome, error) {
	if userID == "" {
		return nil, invalid("user id is required")
	}

	var outcome *model.BookingOutcome
	err := repository.RunInTx(ctx, e.tx, func(tx repository.Tx) error {
		ev, err := e.events.GetForUpdate(ctx, tx, eventID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrEventNotFound
			}
			return fmt.Errorf("lock event: %w", err)
		}

		if !ev.IsBookable(e.now()) {
			return ErrInvalidState
		}

		if ev.AvailableTicket > 0 {
			b, err := e.bookings.Create(ctx, tx, ev.ID, userID)
			if err != nil {
				return fmt.Errorf("create booking: %w", err)
			}
			if err := e.events.AdjustAvailableTicket(ctx, tx, ev.ID, -1); err != nil {
				return fmt.Errorf("decrement available_ticket: %w", err)
			}
			outcome = model.Confirmed(b)
			return nil
		}

		w, err := e.waitlist.Append(ctx, tx, ev.ID, userID)
		if err != nil {
			return fmt.Errorf("append wait list: %w", err)
		}
		outcome = model.Waitlisted(w)
		return nil
	})
	if err != nil {
		e.logFailure("book ticket failed", err, "event_id", eventID, "user_id", userID)
		return nil, err
	}

	now := e.now()
	switch outcome.Status {
	case model.OutcomeConfirmed:
		b := outcome.Booking
		e.log.Info("ticket booked", "event_id", eventID, "user_id", userID, "booking_id", b.ID)
		e.publish(ctx, notify.KeyBookingConfirmed, notify.Message{
			EventID: eventID, UserID: userID, BookingID: b.ID, OccurredAt: now,
		})
	case model.OutcomeWaitlisted:
		w := outcome.WaitlistEntry
		e.log.Info("event full, user waitlisted", "event_id", eventID, "user_id", userID, "wait_list_id", w.ID)
		e.publish(ctx, notify.KeyBookingWaitlisted, notify.Message{
			EventID: eventID, UserID: userID, WaitlistEntryID: w.ID, OccurredAt: now,
		})
	}
	return outcome, nil
}

// CancelBooking cancels bookingID on behalf of userID and hands the freed
// ticket to the oldest waitlisted user, or back to the event counter when
// nobody is waiting. It returns the cancelled booking.
//
// All steps run in one transaction that holds the event lock from before the
// booking update until commit, so two cancellations on the same event cannot
// promote the same waitlist entry and a concurrent BookTicket cannot observe
// the counter between the cancellation and its compensation.
func (e *AllocationEngine) CancelBooking(ctx context.Context, bookingID, userID string, reason *string) (*model.Booking, error) {
	existing, err := e.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if !existing.IsActive() || existing.UserID != userID {
		return nil, ErrBookingNotFound
	}
	reason = normalizeReason(reason)

	var cancelled, promoted *model.Booking
	var promotedFrom *model.WaitlistEntry
	err = repository.RunInTx(ctx, e.tx, func(tx repository.Tx) error {
		ev, err := e.events.GetForUpdate(ctx, tx, existing.EventID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrEventNotFound
			}
			return fmt.Errorf("lock event: %w", err)
		}

		// Authoritative check: matches nothing if another cancellation won.
		b, err := e.bookings.Cancel(ctx, tx, bookingID, userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrBookingNotFound
			}
			return fmt.Errorf("cancel booking: %w", err)
		}

		if _, err := e.cancellations.Record(ctx, tx, b.ID, reason); err != nil {
			return fmt.Errorf("record cancellation: %w", err)
		}

		next, err := e.waitlist.PeekOldest(ctx, tx, ev.ID)
		if err != nil {
			return fmt.Errorf("peek wait list: %w", err)
		}

		if next != nil {
			p, err := e.bookings.Create(ctx, tx, ev.ID, next.UserID)
			if err != nil {
				return fmt.Errorf("promote wait list entry: %w", err)
			}
			if err := e.waitlist.Remove(ctx, tx, next.ID); err != nil {
				return fmt.Errorf("remove wait list entry: %w", err)
			}
			promoted, promotedFrom = p, next
		} else if err := e.events.AdjustAvailableTicket(ctx, tx, ev.ID, +1); err != nil {
			return fmt.Errorf("increment available_ticket: %w", err)
		}

		cancelled = b
		return nil
	})
	if err != nil {
		e.logFailure("cancel booking failed", err, "booking_id", bookingID, "user_id", userID)
		return nil, err
	}

	now := e.now()
	msg := notify.Message{EventID: cancelled.EventID, UserID: userID, BookingID: cancelled.ID, OccurredAt: now}
	if reason != nil {
		msg.Reason = *reason
	}
	e.log.Info("booking cancelled", "event_id", cancelled.EventID, "booking_id", cancelled.ID, "user_id", userID)
	e.publish(ctx, notify.KeyBookingCancelled, msg)

	if promoted != nil {
		e.log.Info("wait list entry promoted",
			"event_id", promoted.EventID,
			"booking_id", promoted.ID,
			"user_id", promoted.UserID,
			"wait_list_id", promotedFrom.ID,
		)
		e.publish(ctx, notify.KeyBookingPromoted, notify.Message{
			EventID:         promoted.EventID,
			UserID:          promoted.UserID,
			BookingID:       promoted.ID,
			WaitlistEntryID: promotedFrom.ID,
			OccurredAt:      now,
		})
	} else {
		e.log.Info("ticket released", "event_id", cancelled.EventID)
	}
	return cancelled, nil
}

// publish runs after commit; its failure never undoes the operation.
func (e *AllocationEngine) publish(ctx context.Context, key string, msg notify.Message) {
	if err := e.pub.Publish(ctx, key, msg); err != nil {
		e.log.Warn("publish booking event failed", "key", key, "event_id", msg.EventID, "error", err)
	}
}

// logFailure logs store failures at error level. Rejections the caller
// caused are not errors of the service.
func (e *AllocationEngine) logFailure(msg string, err error, args ...any) {
	if errors.Is(err, repository.ErrNotFound) || errors.Is(err, ErrInvalidState) || errors.Is(err, ErrInvalidInput) {
		e.log.Debug(msg, append(args, "error", err)...)
		return
	}
	e.log.Error(msg, append(args, "error", err)...)
}

func normalizeReason(reason *string) *string {
	if reason == nil {
		return nil
	}
	r := strings.TrimSpace(*reason)
	if r == "" {
		return nil
	}
	return &r
}
