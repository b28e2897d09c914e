package ports

import (
	"context"
	"time"

	"balance-ledger/internal/core/domain"
)

// Lease is a held lock. It stays valid until released or until ExpiresAt.
type Lease interface {
	Key() string
	ExpiresAt() time.Time
}

// LockCoordinator grants mutually exclusive, time-limited leases on string keys
// across every process sharing the same backing store.
type LockCoordinator interface {
	// Acquire waits up to waitTimeout for the key. The lease auto-expires after
	// leaseTimeout even if never released.
	Acquire(ctx context.Context, key string, waitTimeout, leaseTimeout time.Duration) (Lease, error)
	// Release gives the lease back. Releasing an expired or already released
	// lease is a no-op.
	Release(ctx context.Context, lease Lease) error
}

// RateLimitStore counts requests per key in fixed windows.
type RateLimitStore interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*RateLimitResult, error)
}

// RateLimitResult holds the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   int64 // Unix timestamp
}

// --- Service Ports (Business Logic) ---

// BalanceService applies balance changes and records ledger entries.
// It assumes the caller already holds the account lock.
type BalanceService interface {
	UseBalance(ctx context.Context, req UseBalanceRequest) (*domain.Transaction, error)
	CancelBalance(ctx context.Context, req CancelBalanceRequest) (*domain.Transaction, error)
	RecordFailedUse(ctx context.Context, accountNumber string, amount int64) (*domain.Transaction, error)
	RecordFailedCancel(ctx context.Context, accountNumber string, amount int64) (*domain.Transaction, error)
	QueryTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error)
}

// TransactionService is the lock-guarded entry point used by transports.
type TransactionService interface {
	UseBalance(ctx context.Context, req UseBalanceRequest) (*domain.Transaction, error)
	CancelBalance(ctx context.Context, req CancelBalanceRequest) (*domain.Transaction, error)
	QueryTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error)
}

// UseBalanceRequest holds validated input for a debit.
type UseBalanceRequest struct {
	UserID        int64
	AccountNumber string
	Amount        int64
}

// CancelBalanceRequest holds validated input for reversing a prior use.
type CancelBalanceRequest struct {
	TransactionID string
	AccountNumber string
	Amount        int64
}

// AccountService manages owners and account registration.
type AccountService interface {
	CreateUser(ctx context.Context, name string) (*domain.AccountUser, error)
	CreateAccount(ctx context.Context, req CreateAccountRequest) (*domain.Account, error)
	DeleteAccount(ctx context.Context, req DeleteAccountRequest) (*domain.Account, error)
	ListAccounts(ctx context.Context, userID int64) ([]domain.Account, error)
}

// CreateAccountRequest holds input for account registration.
type CreateAccountRequest struct {
	UserID         int64
	InitialBalance int64
}

// DeleteAccountRequest holds input for closing an account.
type DeleteAccountRequest struct {
	UserID        int64
	AccountNumber string
}
