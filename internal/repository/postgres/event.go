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

const eventColumns = `id, name, venue, manager_id, total_ticket, available_ticket,
	start_at, end_at, status, created_at, updated_at`

// EventRepository handles persistence for events.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

func scanEvent(row pgx.Row) (*model.Event, error) {
	var e model.Event
	err := row.Scan(&e.ID, &e.Name, &e.Venue, &e.ManagerID, &e.TotalTicket, &e.AvailableTicket,
		&e.StartAt, &e.EndAt, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Create inserts a new event with a generated UUID and a full counter.
func (r *EventRepository) Create(ctx context.Context, e model.Event) (*model.Event, error) {
	now := time.Now().UTC()
	e.ID = uuid.New().String()
	e.AvailableTicket = e.TotalTicket
	e.Status = model.EventStatusActive
	e.CreatedAt = now
	e.UpdatedAt = now

	_, err := r.db.Exec(ctx,
		`INSERT INTO events (`+eventColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		e.ID, e.Name, e.Venue, e.ManagerID, e.TotalTicket, e.AvailableTicket,
		e.StartAt, e.EndAt, e.Status, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", classify(err))
	}
	return &e, nil
}

// GetByID returns a single event or ErrNotFound. The read takes no lock.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	e, err := scanEvent(r.db.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	if err != nil {
		return nil, wrapRead("get event", err)
	}
	return e, nil
}

// List returns all events ordered by creation time descending.
func (r *EventRepository) List(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+eventColumns+` FROM events ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", classify(err))
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, classify(rows.Err())
}

// GetForUpdate acquires an exclusive row-level lock on the event.
//
// SELECT … FOR UPDATE blocks any other transaction attempting the same lock
// until this one commits or rolls back, so every read-then-write of
// available_ticket that goes through here is serialised per event. Events
// are never locked against each other. The wait is bounded by the
// transaction's lock_timeout.
func (r *EventRepository) GetForUpdate(ctx context.Context, t repository.Tx, id string) (*model.Event, error) {
	pgTx, err := unwrap(t)
	if err != nil {
		return nil, err
	}
	e, err := scanEvent(pgTx.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, wrapRead("lock event row", err)
	}
	return e, nil
}

// AdjustAvailableTicket increments or decrements the counter in place.
func (r *EventRepository) AdjustAvailableTicket(ctx context.Context, t repository.Tx, id string, delta int) error {
	if delta != 1 && delta != -1 {
		return fmt.Errorf("adjust available_ticket: delta must be +1 or -1, got %d", delta)
	}
	pgTx, err := unwrap(t)
	if err != nil {
		return err
	}
	tag, err := pgTx.Exec(ctx,
		`UPDATE events
		 SET available_ticket = available_ticket + $2, updated_at = $3
		 WHERE id = $1`,
		id, delta, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("adjust available_ticket: %w", classify(err))
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// wrapRead reports a missing row as a bare ErrNotFound and wraps anything else.
func wrapRead(op string, err error) error {
	err = classify(err)
	if errors.Is(err, repository.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
