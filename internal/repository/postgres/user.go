package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/ticket-allocation/internal/model"
)

// UserRepository handles persistence for users.
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a user. A duplicate email is repository.ErrConflict.
func (r *UserRepository) Create(ctx context.Context, u model.User) (*model.User, error) {
	u.ID = uuid.New().String()
	u.CreatedAt = time.Now().UTC()
	_, err := r.db.Exec(ctx,
		`INSERT INTO users (id, name, email, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", classify(err))
	}
	return &u, nil
}

// GetByID returns a user or ErrNotFound.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx,
		`SELECT id, name, email, password_hash, created_at FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, wrapRead("get user", err)
	}
	return u, nil
}

// GetByEmail returns a user or ErrNotFound.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx,
		`SELECT id, name, email, password_hash, created_at FROM users WHERE email = $1`, email))
	if err != nil {
		return nil, wrapRead("get user", err)
	}
	return u, nil
}
