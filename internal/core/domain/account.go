package domain

import (
	"fmt"
	"strconv"
	"time"
)

// AccountStatus represents the lifecycle state of an account.
type AccountStatus string

const (
	AccountStatusActive AccountStatus = "ACTIVE"
	AccountStatusClosed AccountStatus = "CLOSED"
)

const (
	// MaxAccountsPerUser caps how many accounts a single user may register.
	MaxAccountsPerUser = 10
	// FirstAccountNumber is assigned when no account exists yet.
	FirstAccountNumber = "1000000000"
	// AccountNumberLength is the fixed width of an account number.
	AccountNumberLength = 10
)

// Account is a balance-bearing record identified by a unique account number.
// Balance is in the smallest currency unit and never goes below zero.
type Account struct {
	ID             int64         `json:"id"`
	UserID         int64         `json:"user_id"`
	AccountNumber  string        `json:"account_number"`
	Balance        int64         `json:"balance"`
	Status         AccountStatus `json:"status"`
	RegisteredAt   time.Time     `json:"registered_at"`
	UnregisteredAt *time.Time    `json:"unregistered_at,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// IsActive returns true if the account accepts balance changes.
func (a *Account) IsActive() bool {
	return a.Status == AccountStatusActive
}

// OwnedBy returns true if the account belongs to the given user.
func (a *Account) OwnedBy(userID int64) bool {
	return a.UserID == userID
}

// CanDebit returns true if amount does not exceed the current balance.
func (a *Account) CanDebit(amount int64) bool {
	return amount <= a.Balance
}

// Debit subtracts amount from the balance. Callers check CanDebit first.
func (a *Account) Debit(amount int64) {
	a.Balance -= amount
}

// Credit adds amount to the balance.
func (a *Account) Credit(amount int64) {
	a.Balance += amount
}

// Close marks the account CLOSED at the given instant.
func (a *Account) Close(at time.Time) {
	a.Status = AccountStatusClosed
	a.UnregisteredAt = &at
}

// NextAccountNumber returns the number following latest, or FirstAccountNumber
// when latest is empty.
func NextAccountNumber(latest string) (string, error) {
	if latest == "" {
		return FirstAccountNumber, nil
	}
	n, err := strconv.ParseInt(latest, 10, 64)
	if err != nil {
		return "", fmt.Errorf("parse account number %q: %w", latest, err)
	}
	next := strconv.FormatInt(n+1, 10)
	if len(next) != AccountNumberLength {
		return "", fmt.Errorf("account number space exhausted after %s", latest)
	}
	return next, nil
}
