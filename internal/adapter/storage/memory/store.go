// Package memory is an in-process storage backend for local runs and tests.
// It keeps the same contracts as the postgres repositories, including
// commit-or-nothing writes inside a transaction.
package memory

import (
	"context"
	"fmt"
	"sync"

	"balance-ledger/internal/core/domain"
	"balance-ledger/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// Store holds every table. All access goes through its mutex.
type Store struct {
	mu           sync.RWMutex
	users        map[int64]domain.AccountUser
	accounts     map[string]domain.Account // by account number
	transactions map[string]domain.Transaction
	nextUserID   int64
	nextAcctID   int64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		users:        make(map[int64]domain.AccountUser),
		accounts:     make(map[string]domain.Account),
		transactions: make(map[string]domain.Transaction),
	}
}

// Begin implements ports.DBTransactor.
func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return newTx(s), nil
}

// Ping implements ports.HealthChecker.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Name returns the dependency name.
func (s *Store) Name() string {
	return "memory"
}

// apply commits buffered writes atomically.
func (s *Store) apply(t *Tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range t.created {
		if _, taken := s.accounts[a.AccountNumber]; taken {
			return fmt.Errorf("commit account %s: %w", a.AccountNumber, ports.ErrDuplicateAccountNumber)
		}
	}
	for _, e := range t.entries {
		if _, dup := s.transactions[e.TransactionID]; dup {
			return fmt.Errorf("commit transaction %s: duplicate id", e.TransactionID)
		}
	}
	for number := range t.updated {
		if _, ok := s.accounts[number]; !ok && !t.isCreated(number) {
			return fmt.Errorf("commit account %s: not found", number)
		}
	}

	for _, a := range t.created {
		s.accounts[a.AccountNumber] = a
	}
	for number, a := range t.updated {
		s.accounts[number] = a
	}
	for _, e := range t.entries {
		s.transactions[e.TransactionID] = e
	}
	return nil
}
