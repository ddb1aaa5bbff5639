package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/ticket-allocation/internal/model"
	"github.com/Shivanand-hulikatti/ticket-allocation/internal/repository"
)

// WaitlistRepository handles persistence for the per-event FIFO waitlist.
// Order is created_at, then the seq column assigned on insert.
type WaitlistRepository struct {
	db *pgxpool.Pool
}

// NewWaitlistRepository constructs a WaitlistRepository.
func NewWaitlistRepository(db *pgxpool.Pool) *WaitlistRepository {
	return &WaitlistRepository{db: db}
}

// Append inserts an entry at the tail of the event's queue.
func (r *WaitlistRepository) Append(ctx context.Context, t repository.Tx, eventID, userID string) (*model.WaitlistEntry, error) {
	pgTx, err := unwrap(t)
	if err != nil {
		return nil, err
	}
	w := &model.WaitlistEntry{
		ID:        uuid.New().String(),
		EventID:   eventID,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
	err = pgTx.QueryRow(ctx,
		`INSERT INTO wait_list (id, event_id, user_id, created_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING seq`,
		w.ID, w.EventID, w.UserID, w.CreatedAt,
	).Scan(&w.Seq)
	if err != nil {
		return nil, fmt.Errorf("insert wait list entry: %w", classify(err))
	}
	return w, nil
}

// PeekOldest returns the head of the queue or nil. It reads through t so the
// lookup happens on the connection that already holds the event lock.
func (r *WaitlistRepository) PeekOldest(ctx context.Context, t repository.Tx, eventID string) (*model.WaitlistEntry, error) {
	var q querier = r.db
	if t != nil {
		pgTx, err := unwrap(t)
		if err != nil {
			return nil, err
		}
		q = pgTx
	}

	var w model.WaitlistEntry
	err := q.QueryRow(ctx,
		`SELECT id, event_id, user_id, seq, created_at
		 FROM wait_list
		 WHERE event_id = $1
		 ORDER BY created_at ASC, seq ASC
		 LIMIT 1`,
		eventID,
	).Scan(&w.ID, &w.EventID, &w.UserID, &w.Seq, &w.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("peek wait list: %w", classify(err))
	}
	return &w, nil
}

// ListByEvent returns every queued entry for the event in FIFO order.
func (r *WaitlistRepository) ListByEvent(ctx context.Context, eventID string) ([]model.WaitlistEntry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, event_id, user_id, seq, created_at
		 FROM wait_list
		 WHERE event_id = $1
		 ORDER BY created_at ASC, seq ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list wait list: %w", classify(err))
	}
	defer rows.Close()

	var entries []model.WaitlistEntry
	for rows.Next() {
		var w model.WaitlistEntry
		if err := rows.Scan(&w.ID, &w.EventID, &w.UserID, &w.Seq, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan wait list entry: %w", err)
		}
		entries = append(entries, w)
	}
	return entries, classify(rows.Err())
}

// Remove deletes an entry. Removing a missing entry is ErrNotFound.
func (r *WaitlistRepository) Remove(ctx context.Context, t repository.Tx, id string) error {
	pgTx, err := unwrap(t)
	if err != nil {
		return err
	}
	tag, err := pgTx.Exec(ctx, `DELETE FROM wait_list WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete wait list entry: %w", classify(err))
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
