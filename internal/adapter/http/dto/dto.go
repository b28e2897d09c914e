package dto

import (
	"time"

	"balance-ledger/internal/core/domain"
)

// Amount bounds accepted by the transaction endpoints.
const (
	MinAmount = 10
	MaxAmount = 1_000_000_000
)

// CreateUserRequest is the request body for owner registration.
type CreateUserRequest struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
}

// CreateAccountRequest is the request body for opening an account.
type CreateAccountRequest struct {
	UserID         int64 `json:"user_id" binding:"required,gt=0"`
	InitialBalance int64 `json:"initial_balance" binding:"gte=0"`
}

// DeleteAccountRequest is the request body for closing an account.
type DeleteAccountRequest struct {
	UserID        int64  `json:"user_id" binding:"required,gt=0"`
	AccountNumber string `json:"account_number" binding:"required,account_number"`
}

// ListAccountsQuery is the query string for listing a user's accounts.
type ListAccountsQuery struct {
	UserID int64 `form:"user_id" binding:"required,gt=0"`
}

// UseBalanceRequest is the request body for a debit.
type UseBalanceRequest struct {
	UserID        int64  `json:"user_id" binding:"required,gt=0"`
	AccountNumber string `json:"account_number" binding:"required,account_number"`
	Amount        int64  `json:"amount" binding:"required,min=10,max=1000000000"`
}

// CancelBalanceRequest is the request body for reversing a prior debit.
type CancelBalanceRequest struct {
	TransactionID string `json:"transaction_id" binding:"required,transaction_id"`
	AccountNumber string `json:"account_number" binding:"required,account_number"`
	Amount        int64  `json:"amount" binding:"required,min=10,max=1000000000"`
}

// TransactionIDParam binds the :transaction_id path segment.
type TransactionIDParam struct {
	TransactionID string `uri:"transaction_id" binding:"required,transaction_id"`
}

// UserResponse is the response body for an owner.
type UserResponse struct {
	UserID    int64  `json:"user_id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

// AccountResponse is the response body for an account.
type AccountResponse struct {
	UserID         int64   `json:"user_id"`
	AccountNumber  string  `json:"account_number"`
	Balance        int64   `json:"balance"`
	Status         string  `json:"status"`
	RegisteredAt   string  `json:"registered_at"`
	UnregisteredAt *string `json:"unregistered_at,omitempty"`
}

// TransactionResponse is the response body for a ledger entry.
type TransactionResponse struct {
	TransactionID         string  `json:"transaction_id"`
	AccountNumber         string  `json:"account_number"`
	TransactionType       string  `json:"transaction_type"`
	TransactionResult     string  `json:"transaction_result"`
	Amount                int64   `json:"amount"`
	BalanceSnapshot       int64   `json:"balance_snapshot"`
	OriginalTransactionID *string `json:"original_transaction_id,omitempty"`
	TransactedAt          string  `json:"transacted_at"`
}

// NewUserResponse converts domain.AccountUser to DTO.
func NewUserResponse(u *domain.AccountUser) UserResponse {
	return UserResponse{
		UserID:    u.ID,
		Name:      u.Name,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
}

// NewAccountResponse converts domain.Account to DTO.
func NewAccountResponse(a *domain.Account) AccountResponse {
	resp := AccountResponse{
		UserID:        a.UserID,
		AccountNumber: a.AccountNumber,
		Balance:       a.Balance,
		Status:        string(a.Status),
		RegisteredAt:  a.RegisteredAt.Format(time.RFC3339),
	}
	if a.UnregisteredAt != nil {
		s := a.UnregisteredAt.Format(time.RFC3339)
		resp.UnregisteredAt = &s
	}
	return resp
}

// NewAccountListResponse converts a slice of accounts, never returning nil.
func NewAccountListResponse(accounts []domain.Account) []AccountResponse {
	out := make([]AccountResponse, 0, len(accounts))
	for i := range accounts {
		out = append(out, NewAccountResponse(&accounts[i]))
	}
	return out
}

// NewTransactionResponse converts domain.Transaction to DTO.
func NewTransactionResponse(t *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		TransactionID:         t.TransactionID,
		AccountNumber:         t.AccountNumber,
		TransactionType:       string(t.Type),
		TransactionResult:     string(t.Result),
		Amount:                t.Amount,
		BalanceSnapshot:       t.BalanceSnapshot,
		OriginalTransactionID: t.OriginalTransactionID,
		TransactedAt:          t.TransactedAt.Format(time.RFC3339),
	}
}
