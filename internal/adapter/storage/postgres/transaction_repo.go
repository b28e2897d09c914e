package postgres

import (
	"context"
	"errors"
	"fmt"

	"balance-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Create inserts a new ledger entry within a database transaction.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `INSERT INTO transactions (transaction_id, account_id, account_number, transaction_type,
		transaction_result, amount, balance_snapshot, original_transaction_id, transacted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := tx.Exec(ctx, query,
		t.TransactionID, t.AccountID, t.AccountNumber, t.Type, t.Result,
		t.Amount, t.BalanceSnapshot, t.OriginalTransactionID, t.TransactedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByID fetches a ledger entry by its transaction ID.
func (r *TransactionRepo) GetByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	query := `SELECT transaction_id, account_id, account_number, transaction_type, transaction_result,
		amount, balance_snapshot, original_transaction_id, transacted_at
		FROM transactions WHERE transaction_id = $1`

	t := &domain.Transaction{}
	err := r.pool.QueryRow(ctx, query, transactionID).Scan(
		&t.TransactionID, &t.AccountID, &t.AccountNumber, &t.Type, &t.Result,
		&t.Amount, &t.BalanceSnapshot, &t.OriginalTransactionID, &t.TransactedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transaction by id: %w", err)
	}
	return t, nil
}

// CheckCancelExists checks if a successful cancel already reverses the given entry.
func (r *TransactionRepo) CheckCancelExists(ctx context.Context, tx pgx.Tx, originalTransactionID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM transactions WHERE original_transaction_id = $1
		AND transaction_type = 'CANCEL' AND transaction_result = 'SUCCESS')`

	var exists bool
	if err := tx.QueryRow(ctx, query, originalTransactionID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check cancel exists: %w", err)
	}
	return exists, nil
}
