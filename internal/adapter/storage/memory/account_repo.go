package memory

import (
	"context"
	"fmt"
	"sort"

	"balance-ledger/internal/core/domain"
	"balance-ledger/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// AccountRepo implements ports.AccountRepository. Rows are copied in and out
// so callers never share memory with the store.
type AccountRepo struct {
	s *Store
}

// NewAccountRepo creates an AccountRepo over the store.
func NewAccountRepo(s *Store) *AccountRepo {
	return &AccountRepo{s: s}
}

func (r *AccountRepo) Create(ctx context.Context, tx pgx.Tx, a *domain.Account) error {
	mt, err := asTx(tx)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, taken := r.s.accounts[a.AccountNumber]; taken || mt.isCreated(a.AccountNumber) {
		return ports.ErrDuplicateAccountNumber
	}
	r.s.nextAcctID++
	a.ID = r.s.nextAcctID
	mt.created = append(mt.created, *a)
	return nil
}

func (r *AccountRepo) GetByNumber(ctx context.Context, accountNumber string) (*domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.accounts[accountNumber]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

// GetByNumberForUpdate reads through the transaction's pending rows. The
// memory backend takes no row lock; exclusion comes from the account lock.
func (r *AccountRepo) GetByNumberForUpdate(ctx context.Context, tx pgx.Tx, accountNumber string) (*domain.Account, error) {
	mt, err := asTx(tx)
	if err != nil {
		return nil, fmt.Errorf("get account for update: %w", err)
	}
	if a, ok := mt.pendingAccount(accountNumber); ok {
		return &a, nil
	}
	return r.GetByNumber(ctx, accountNumber)
}

func (r *AccountRepo) ListByUserID(ctx context.Context, userID int64) ([]domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	accounts := []domain.Account{}
	for _, a := range r.s.accounts {
		if a.UserID == userID {
			accounts = append(accounts, a)
		}
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].AccountNumber < accounts[j].AccountNumber })
	return accounts, nil
}

func (r *AccountRepo) CountByUserID(ctx context.Context, tx pgx.Tx, userID int64) (int, error) {
	mt, err := asTx(tx)
	if err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, a := range r.s.accounts {
		if a.UserID == userID {
			n++
		}
	}
	for _, a := range mt.created {
		if a.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (r *AccountRepo) GetLatestNumber(ctx context.Context, tx pgx.Tx) (string, error) {
	mt, err := asTx(tx)
	if err != nil {
		return "", fmt.Errorf("get latest account number: %w", err)
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	latest := ""
	for number := range r.s.accounts {
		if number > latest {
			latest = number
		}
	}
	for _, a := range mt.created {
		if a.AccountNumber > latest {
			latest = a.AccountNumber
		}
	}
	return latest, nil
}

func (r *AccountRepo) Update(ctx context.Context, tx pgx.Tx, a *domain.Account) error {
	mt, err := asTx(tx)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	r.s.mu.RLock()
	_, exists := r.s.accounts[a.AccountNumber]
	r.s.mu.RUnlock()
	if !exists && !mt.isCreated(a.AccountNumber) {
		return fmt.Errorf("account not found: %d", a.ID)
	}
	mt.updated[a.AccountNumber] = *a
	return nil
}
