package ports

import (
	"context"
	"errors"

	"balance-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// ErrDuplicateAccountNumber is returned by AccountRepository.Create when the
// account number is already taken.
var ErrDuplicateAccountNumber = errors.New("account number already exists")

// UserRepository defines persistence operations for account owners.
// Lookups return (nil, nil) when the row does not exist.
type UserRepository interface {
	Create(ctx context.Context, user *domain.AccountUser) error
	GetByID(ctx context.Context, id int64) (*domain.AccountUser, error)
}

// AccountRepository defines persistence operations for accounts.
// Methods accepting pgx.Tx are used inside transaction blocks; ForUpdate
// variants take a row lock for the rest of the transaction.
type AccountRepository interface {
	Create(ctx context.Context, tx pgx.Tx, account *domain.Account) error
	GetByNumber(ctx context.Context, accountNumber string) (*domain.Account, error)
	GetByNumberForUpdate(ctx context.Context, tx pgx.Tx, accountNumber string) (*domain.Account, error)
	ListByUserID(ctx context.Context, userID int64) ([]domain.Account, error)
	CountByUserID(ctx context.Context, tx pgx.Tx, userID int64) (int, error)
	GetLatestNumber(ctx context.Context, tx pgx.Tx) (string, error)
	Update(ctx context.Context, tx pgx.Tx, account *domain.Account) error
}

// TransactionRepository defines persistence operations for ledger entries.
// Entries are insert-only.
type TransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, transaction *domain.Transaction) error
	GetByID(ctx context.Context, transactionID string) (*domain.Transaction, error)
	CheckCancelExists(ctx context.Context, tx pgx.Tx, originalTransactionID string) (bool, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
