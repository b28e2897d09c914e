package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccount_IsActive(t *testing.T) {
	tests := []struct {
		name   string
		status AccountStatus
		want   bool
	}{
		{"active", AccountStatusActive, true},
		{"closed", AccountStatusClosed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Account{Status: tt.status}
			assert.Equal(t, tt.want, a.IsActive())
		})
	}
}

func TestAccount_DebitCredit(t *testing.T) {
	a := &Account{Balance: 10000}

	assert.True(t, a.CanDebit(10000))
	assert.False(t, a.CanDebit(10001))

	a.Debit(3000)
	assert.Equal(t, int64(7000), a.Balance)

	a.Credit(3000)
	assert.Equal(t, int64(10000), a.Balance)
}

func TestAccount_OwnedBy(t *testing.T) {
	a := &Account{UserID: 7}
	assert.True(t, a.OwnedBy(7))
	assert.False(t, a.OwnedBy(8))
}

func TestAccount_Close(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	a := &Account{Status: AccountStatusActive}

	a.Close(at)

	assert.Equal(t, AccountStatusClosed, a.Status)
	require.NotNil(t, a.UnregisteredAt)
	assert.Equal(t, at, *a.UnregisteredAt)
}

func TestNextAccountNumber(t *testing.T) {
	tests := []struct {
		name    string
		latest  string
		want    string
		wantErr bool
	}{
		{"first account", "", FirstAccountNumber, false},
		{"increments", "1000000000", "1000000001", false},
		{"carries", "1000000999", "1000001000", false},
		{"exhausted", "9999999999", "", true},
		{"garbage", "abc", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextAccountNumber(tt.latest)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewTransactionID(t *testing.T) {
	id := NewTransactionID()
	assert.Len(t, id, 32)
	assert.Regexp(t, "^[0-9a-f]{32}$", id)
	assert.NotEqual(t, id, NewTransactionID())
}

func TestTransaction_IsCancellable(t *testing.T) {
	tests := []struct {
		name   string
		txType TransactionType
		result TransactionResult
		want   bool
	}{
		{"successful use", TransactionTypeUse, TransactionResultSuccess, true},
		{"failed use", TransactionTypeUse, TransactionResultFailure, false},
		{"successful cancel", TransactionTypeCancel, TransactionResultSuccess, false},
		{"failed cancel", TransactionTypeCancel, TransactionResultFailure, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := &Transaction{Type: tt.txType, Result: tt.result}
			assert.Equal(t, tt.want, tx.IsCancellable())
		})
	}
}

func TestTransaction_CancellationExpired(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		transactedAt time.Time
		want         bool
	}{
		{"yesterday", now.AddDate(0, 0, -1), false},
		{"exactly one year", now.AddDate(-1, 0, 0), false},
		{"one year and a second", now.AddDate(-1, 0, 0).Add(-time.Second), true},
		{"two years", now.AddDate(-2, 0, 0), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := &Transaction{TransactedAt: tt.transactedAt}
			assert.Equal(t, tt.want, tx.CancellationExpired(now))
		})
	}
}
