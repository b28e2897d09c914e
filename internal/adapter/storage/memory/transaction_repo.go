package memory

import (
	"context"
	"fmt"
	"sort"

	"balance-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	s *Store
}

// NewTransactionRepo creates a TransactionRepo over the store.
func NewTransactionRepo(s *Store) *TransactionRepo {
	return &TransactionRepo{s: s}
}

// Create buffers a ledger entry in tx. It becomes visible on commit.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	mt, err := asTx(tx)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	entry := *t
	if t.OriginalTransactionID != nil {
		orig := *t.OriginalTransactionID
		entry.OriginalTransactionID = &orig
	}
	mt.entries = append(mt.entries, entry)
	return nil
}

// GetByID returns a committed entry, or (nil, nil) when none exists.
func (r *TransactionRepo) GetByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.transactions[transactionID]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

// CheckCancelExists reports whether a successful cancel of the given entry is
// committed or already buffered in tx.
func (r *TransactionRepo) CheckCancelExists(ctx context.Context, tx pgx.Tx, originalTransactionID string) (bool, error) {
	mt, err := asTx(tx)
	if err != nil {
		return false, fmt.Errorf("check cancel exists: %w", err)
	}
	isCancelOf := func(e domain.Transaction) bool {
		return e.Type == domain.TransactionTypeCancel &&
			e.Result == domain.TransactionResultSuccess &&
			e.OriginalTransactionID != nil &&
			*e.OriginalTransactionID == originalTransactionID
	}
	for _, e := range mt.entries {
		if isCancelOf(e) {
			return true, nil
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, e := range r.s.transactions {
		if isCancelOf(e) {
			return true, nil
		}
	}
	return false, nil
}

// ListByAccountNumber returns the committed entries of an account, oldest first.
func (r *TransactionRepo) ListByAccountNumber(ctx context.Context, accountNumber string) ([]domain.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	entries := []domain.Transaction{}
	for _, e := range r.s.transactions {
		if e.AccountNumber == accountNumber {
			entries = append(entries, e)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].TransactedAt.Before(entries[j].TransactedAt)
	})
	return entries, nil
}
