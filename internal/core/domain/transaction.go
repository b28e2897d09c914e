package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TransactionType represents the kind of balance movement.
type TransactionType string

const (
	TransactionTypeUse    TransactionType = "USE"
	TransactionTypeCancel TransactionType = "CANCEL"
)

// TransactionResult records whether the movement was applied.
type TransactionResult string

const (
	TransactionResultSuccess TransactionResult = "SUCCESS"
	TransactionResultFailure TransactionResult = "FAILURE"
)

// CancellationWindow is how long after a use it may still be cancelled.
const CancellationWindow = 1 // years

// Transaction is an immutable ledger entry. BalanceSnapshot is the account
// balance right after the entry was applied, or the unchanged balance for
// FAILURE entries.
type Transaction struct {
	TransactionID         string            `json:"transaction_id"`
	AccountID             int64             `json:"account_id"`
	AccountNumber         string            `json:"account_number"`
	Type                  TransactionType   `json:"transaction_type"`
	Result                TransactionResult `json:"transaction_result"`
	Amount                int64             `json:"amount"`
	BalanceSnapshot       int64             `json:"balance_snapshot"`
	OriginalTransactionID *string           `json:"original_transaction_id,omitempty"`
	TransactedAt          time.Time         `json:"transacted_at"`
}

// NewTransactionID returns a 32-character lowercase hex identifier.
func NewTransactionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// IsCancellable returns true if this entry is a successful use.
func (t *Transaction) IsCancellable() bool {
	return t.Type == TransactionTypeUse && t.Result == TransactionResultSuccess
}

// CancellationExpired reports whether now is past the cancellation window.
func (t *Transaction) CancellationExpired(now time.Time) bool {
	return t.TransactedAt.Before(now.AddDate(-CancellationWindow, 0, 0))
}
