package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/ticket-allocation/internal/model"
	"github.com/Shivanand-hulikatti/ticket-allocation/internal/repository"
)

// CancellationRepository appends to the cancelled_bookings log.
type CancellationRepository struct {
	db *pgxpool.Pool
}

// NewCancellationRepository constructs a CancellationRepository.
func NewCancellationRepository(db *pgxpool.Pool) *CancellationRepository {
	return &CancellationRepository{db: db}
}

// Record appends a cancellation record for bookingID.
func (r *CancellationRepository) Record(ctx context.Context, t repository.Tx, bookingID string, reason *string) (*model.CancellationRecord, error) {
	pgTx, err := unwrap(t)
	if err != nil {
		return nil, err
	}
	rec := &model.CancellationRecord{
		ID:        uuid.New().String(),
		BookingID: bookingID,
		Reason:    reason,
		CreatedAt: time.Now().UTC(),
	}
	_, err = pgTx.Exec(ctx,
		`INSERT INTO cancelled_bookings (id, booking_id, reason, created_at)
		 VALUES ($1, $2, $3, $4)`,
		rec.ID, rec.BookingID, rec.Reason, rec.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert cancellation: %w", classify(err))
	}
	return rec, nil
}

// ListByBooking returns the cancellation records of a booking, oldest first.
func (r *CancellationRepository) ListByBooking(ctx context.Context, bookingID string) ([]model.CancellationRecord, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, booking_id, reason, created_at
		 FROM cancelled_bookings
		 WHERE booking_id = $1
		 ORDER BY created_at ASC`,
		bookingID,
	)
	if err != nil {
		return nil, fmt.Errorf("list cancellations: %w", classify(err))
	}
	defer rows.Close()

	var recs []model.CancellationRecord
	for rows.Next() {
		var rec model.CancellationRecord
		if err := rows.Scan(&rec.ID, &rec.BookingID, &rec.Reason, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan cancellation: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, classify(rows.Err())
}
