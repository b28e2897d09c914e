package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// CodeOf returns the code of the first AppError in err's chain, or "" if there is none.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// HasCode reports whether err carries an AppError with the given code.
func HasCode(err error, code string) bool {
	return err != nil && CodeOf(err) == code
}

// Error codes.
const (
	CodeOwnerNotFound               = "ACC_001"
	CodeAccountNotFound             = "ACC_002"
	CodeOwnerAccountMismatch        = "ACC_003"
	CodeAccountAlreadyClosed        = "ACC_004"
	CodeAmountExceedsBalance        = "ACC_005"
	CodeMaxAccountsPerUser          = "ACC_006"
	CodeBalanceNotEmpty             = "ACC_007"
	CodeTransactionNotFound         = "TXN_001"
	CodeTransactionAccountMismatch  = "TXN_002"
	CodeTransactionAmountMismatch   = "TXN_003"
	CodeCancellationWindowExpired   = "TXN_004"
	CodeTransactionNotCancellable   = "TXN_005"
	CodeTransactionAlreadyCancelled = "TXN_006"
	CodeValidation                  = "REQ_001"
	CodeRateLimitExceeded           = "RATE_001"
	CodeInternal                    = "SYS_001"
	CodeLockTimeout                 = "SYS_002"
)

// ---- Account (ACC) ----

func ErrOwnerNotFound() *AppError {
	return New(CodeOwnerNotFound, "Account owner not found", http.StatusNotFound)
}

func ErrAccountNotFound() *AppError {
	return New(CodeAccountNotFound, "Account not found", http.StatusNotFound)
}

func ErrOwnerAccountMismatch() *AppError {
	return New(CodeOwnerAccountMismatch, "Account does not belong to user", http.StatusForbidden)
}

func ErrAccountAlreadyClosed() *AppError {
	return New(CodeAccountAlreadyClosed, "Account is already closed", http.StatusConflict)
}

func ErrAmountExceedsBalance() *AppError {
	return New(CodeAmountExceedsBalance, "Amount exceeds account balance", http.StatusPaymentRequired)
}

func ErrMaxAccountsPerUser() *AppError {
	return New(CodeMaxAccountsPerUser, "Maximum number of accounts per user reached", http.StatusConflict)
}

func ErrBalanceNotEmpty() *AppError {
	return New(CodeBalanceNotEmpty, "Account balance is not empty", http.StatusConflict)
}

// ---- Transaction (TXN) ----

func ErrTransactionNotFound() *AppError {
	return New(CodeTransactionNotFound, "Transaction not found", http.StatusNotFound)
}

func ErrTransactionAccountMismatch() *AppError {
	return New(CodeTransactionAccountMismatch, "Transaction does not belong to account", http.StatusBadRequest)
}

func ErrTransactionAmountMismatch() *AppError {
	return New(CodeTransactionAmountMismatch, "Cancel amount must equal the original amount", http.StatusBadRequest)
}

func ErrCancellationWindowExpired() *AppError {
	return New(CodeCancellationWindowExpired, "Transaction is too old to cancel", http.StatusBadRequest)
}

func ErrTransactionNotCancellable() *AppError {
	return New(CodeTransactionNotCancellable, "Only successful use transactions can be cancelled", http.StatusBadRequest)
}

func ErrTransactionAlreadyCancelled() *AppError {
	return New(CodeTransactionAlreadyCancelled, "Transaction has already been cancelled", http.StatusConflict)
}

// ---- Request (REQ) ----

func ErrInvalidAmount() *AppError {
	return New(CodeValidation, "Invalid amount", http.StatusBadRequest)
}

// Validation returns a REQ_001 validation error with a custom message.
func Validation(message string) *AppError {
	return New(CodeValidation, message, http.StatusBadRequest)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New(CodeRateLimitExceeded, "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrLockTimeout(err error) *AppError {
	return Wrap(CodeLockTimeout, "Lock acquisition timeout", http.StatusServiceUnavailable, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap(CodeInternal, "Internal server error", http.StatusInternalServerError, err)
}

// IsBusinessRejection reports whether err is a ledger rule violation, as opposed
// to a lock timeout, a malformed request or an infrastructure failure.
func IsBusinessRejection(err error) bool {
	switch CodeOf(err) {
	case CodeOwnerNotFound, CodeAccountNotFound, CodeOwnerAccountMismatch,
		CodeAccountAlreadyClosed, CodeAmountExceedsBalance,
		CodeTransactionNotFound, CodeTransactionAccountMismatch,
		CodeTransactionAmountMismatch, CodeCancellationWindowExpired,
		CodeTransactionNotCancellable, CodeTransactionAlreadyCancelled:
		return true
	default:
		return false
	}
}
