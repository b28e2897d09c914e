package postgres

import (
	"context"
	"errors"
	"fmt"

	"balance-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// UserRepo implements ports.UserRepository.
type UserRepo struct {
	pool Pool
}

// NewUserRepo creates a new UserRepo.
func NewUserRepo(pool Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

// Create inserts a new account owner and fills in its generated ID.
func (r *UserRepo) Create(ctx context.Context, u *domain.AccountUser) error {
	query := `INSERT INTO account_users (name, created_at, updated_at)
		VALUES ($1, $2, $3) RETURNING id`

	if err := r.pool.QueryRow(ctx, query, u.Name, u.CreatedAt, u.UpdatedAt).Scan(&u.ID); err != nil {
		return fmt.Errorf("insert account user: %w", err)
	}
	return nil
}

// GetByID fetches an account owner by ID.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*domain.AccountUser, error) {
	query := `SELECT id, name, created_at, updated_at FROM account_users WHERE id = $1`

	u := &domain.AccountUser{}
	err := r.pool.QueryRow(ctx, query, id).Scan(&u.ID, &u.Name, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account user by id: %w", err)
	}
	return u, nil
}
