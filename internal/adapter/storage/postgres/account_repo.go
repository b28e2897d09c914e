package postgres

import (
	"context"
	"errors"
	"fmt"

	"balance-ledger/internal/core/domain"
	"balance-ledger/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

const accountColumns = `id, user_id, account_number, balance, status, registered_at, unregistered_at, created_at, updated_at`

// AccountRepo implements ports.AccountRepository.
type AccountRepo struct {
	pool Pool
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(pool Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

// Create inserts a new account within a transaction and fills in its ID.
// A taken account number yields ports.ErrDuplicateAccountNumber.
func (r *AccountRepo) Create(ctx context.Context, tx pgx.Tx, a *domain.Account) error {
	query := `INSERT INTO accounts (user_id, account_number, balance, status, registered_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`

	err := tx.QueryRow(ctx, query,
		a.UserID, a.AccountNumber, a.Balance, a.Status,
		a.RegisteredAt, a.CreatedAt, a.UpdatedAt,
	).Scan(&a.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ports.ErrDuplicateAccountNumber
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// GetByNumber fetches an account by its number (without locking).
func (r *AccountRepo) GetByNumber(ctx context.Context, accountNumber string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_number = $1`

	a, err := scanAccount(r.pool.QueryRow(ctx, query, accountNumber))
	if err != nil {
		return nil, fmt.Errorf("get account by number: %w", err)
	}
	return a, nil
}

// GetByNumberForUpdate fetches an account by number with a row lock.
// This MUST be called within a transaction.
func (r *AccountRepo) GetByNumberForUpdate(ctx context.Context, tx pgx.Tx, accountNumber string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_number = $1 FOR UPDATE`

	a, err := scanAccount(tx.QueryRow(ctx, query, accountNumber))
	if err != nil {
		return nil, fmt.Errorf("get account for update: %w", err)
	}
	return a, nil
}

// ListByUserID returns every account of a user ordered by number.
func (r *AccountRepo) ListByUserID(ctx context.Context, userID int64) ([]domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1 ORDER BY account_number`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	accounts := []domain.Account{}
	for rows.Next() {
		a := domain.Account{}
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.AccountNumber, &a.Balance, &a.Status,
			&a.RegisteredAt, &a.UnregisteredAt, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan account row: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate account rows: %w", err)
	}
	return accounts, nil
}

// CountByUserID counts the accounts registered to a user, closed ones included.
func (r *AccountRepo) CountByUserID(ctx context.Context, tx pgx.Tx, userID int64) (int, error) {
	query := `SELECT COUNT(*) FROM accounts WHERE user_id = $1`

	var n int
	if err := tx.QueryRow(ctx, query, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return n, nil
}

// GetLatestNumber returns the highest account number, or "" if there is none.
// Numbers are fixed width so lexical order matches numeric order.
func (r *AccountRepo) GetLatestNumber(ctx context.Context, tx pgx.Tx) (string, error) {
	query := `SELECT account_number FROM accounts ORDER BY account_number DESC LIMIT 1`

	var number string
	err := tx.QueryRow(ctx, query).Scan(&number)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("get latest account number: %w", err)
	}
	return number, nil
}

// Update persists balance and lifecycle fields within a transaction.
func (r *AccountRepo) Update(ctx context.Context, tx pgx.Tx, a *domain.Account) error {
	query := `UPDATE accounts SET balance = $1, status = $2, unregistered_at = $3, updated_at = $4 WHERE id = $5`

	tag, err := tx.Exec(ctx, query, a.Balance, a.Status, a.UnregisteredAt, a.UpdatedAt, a.ID)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account not found: %d", a.ID)
	}
	return nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	a := &domain.Account{}
	err := row.Scan(
		&a.ID, &a.UserID, &a.AccountNumber, &a.Balance, &a.Status,
		&a.RegisteredAt, &a.UnregisteredAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}
