package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/ticket-allocation/internal/model"
	"github.com/Shivanand-hulikatti/ticket-allocation/internal/repository"
)

const bookingColumns = `id, event_id, user_id, status, created_at, updated_at, deleted_at`

// BookingRepository handles persistence for bookings.
type BookingRepository struct {
	db *pgxpool.Pool
}

// NewBookingRepository constructs a BookingRepository.
func NewBookingRepository(db *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{db: db}
}

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var b model.Booking
	if err := row.Scan(&b.ID, &b.EventID, &b.UserID, &b.Status, &b.CreatedAt, &b.UpdatedAt, &b.DeletedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

// Create inserts a CONFIRMED booking.
func (r *BookingRepository) Create(ctx context.Context, t repository.Tx, eventID, userID string) (*model.Booking, error) {
	pgTx, err := unwrap(t)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	b := &model.Booking{
		ID:        uuid.New().String(),
		EventID:   eventID,
		UserID:    userID,
		Status:    model.BookingStatusConfirmed,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err = pgTx.Exec(ctx,
		`INSERT INTO bookings (id, event_id, user_id, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		b.ID, b.EventID, b.UserID, b.Status, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert booking: %w", classify(err))
	}
	return b, nil
}

// GetByID returns a booking in any status, or ErrNotFound.
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if err != nil {
		return nil, wrapRead("get booking", err)
	}
	return b, nil
}

// Cancel is a conditioned update: it only matches a live CONFIRMED booking
// owned by userID. The UPDATE takes the booking row lock, so of two racing
// cancellations the second waits, re-evaluates the WHERE clause after the
// first commits and matches nothing.
func (r *BookingRepository) Cancel(ctx context.Context, t repository.Tx, id, userID string) (*model.Booking, error) {
	pgTx, err := unwrap(t)
	if err != nil {
		return nil, err
	}
	b, err := scanBooking(pgTx.QueryRow(ctx,
		`UPDATE bookings
		 SET status = $3, updated_at = $4
		 WHERE id = $1 AND user_id = $2 AND status = $5 AND deleted_at IS NULL
		 RETURNING `+bookingColumns,
		id, userID, model.BookingStatusCancelled, time.Now().UTC(), model.BookingStatusConfirmed,
	))
	if err != nil {
		return nil, wrapRead("cancel booking", err)
	}
	return b, nil
}

// ListByUser returns the user's live bookings, newest first.
func (r *BookingRepository) ListByUser(ctx context.Context, userID string) ([]model.Booking, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+bookingColumns+`
		 FROM bookings
		 WHERE user_id = $1 AND deleted_at IS NULL
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", classify(err))
	}
	defer rows.Close()

	var bookings []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	return bookings, classify(rows.Err())
}

// CountConfirmed returns the number of live CONFIRMED bookings for an event.
func (r *BookingRepository) CountConfirmed(ctx context.Context, eventID string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM bookings
		 WHERE event_id = $1 AND status = $2 AND deleted_at IS NULL`,
		eventID, model.BookingStatusConfirmed,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count bookings: %w", classify(err))
	}
	return n, nil
}
