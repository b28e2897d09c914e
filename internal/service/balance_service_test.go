package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"balance-ledger/internal/core/domain"
	"balance-ledger/internal/core/ports"
	"balance-ledger/internal/core/ports/mocks"
	"balance-ledger/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type balanceTestDeps struct {
	svc         *BalanceServiceImpl
	userRepo    *mocks.MockUserRepository
	accountRepo *mocks.MockAccountRepository
	txRepo      *mocks.MockTransactionRepository
	transactor  *mocks.MockDBTransactor
	ctrl        *gomock.Controller
}

func setupBalanceService(t *testing.T) *balanceTestDeps {
	ctrl := gomock.NewController(t)
	d := &balanceTestDeps{
		userRepo:    mocks.NewMockUserRepository(ctrl),
		accountRepo: mocks.NewMockAccountRepository(ctrl),
		txRepo:      mocks.NewMockTransactionRepository(ctrl),
		transactor:  mocks.NewMockDBTransactor(ctrl),
		ctrl:        ctrl,
	}
	d.svc = NewBalanceService(d.userRepo, d.accountRepo, d.txRepo, d.transactor, zerolog.Nop())
	d.svc.now = func() time.Time { return fixedNow }
	return d
}

// mockTx implements pgx.Tx for testing
type mockTx struct {
	pgx.Tx
	committed bool
}

func (m *mockTx) Rollback(_ context.Context) error { return nil }
func (m *mockTx) Commit(_ context.Context) error {
	m.committed = true
	return nil
}

func assertAppError(t *testing.T, err error, expectedCode string) {
	t.Helper()
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, expectedCode, appErr.Code)
}

func testUser() *domain.AccountUser {
	return &domain.AccountUser{ID: 1, Name: "kim"}
}

func testAccount(balance int64) *domain.Account {
	return &domain.Account{
		ID:            7,
		UserID:        1,
		AccountNumber: "1000000000",
		Balance:       balance,
		Status:        domain.AccountStatusActive,
	}
}

func testUseEntry(amount int64, at time.Time) *domain.Transaction {
	return &domain.Transaction{
		TransactionID:   "0123456789abcdef0123456789abcdef",
		AccountID:       7,
		AccountNumber:   "1000000000",
		Type:            domain.TransactionTypeUse,
		Result:          domain.TransactionResultSuccess,
		Amount:          amount,
		BalanceSnapshot: 9000,
		TransactedAt:    at,
	}
}

// ==================== UseBalance Tests ====================

func TestBalanceService_UseBalance_Success(t *testing.T) {
	d := setupBalanceService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}

	d.userRepo.EXPECT().GetByID(ctx, int64(1)).Return(testUser(), nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.accountRepo.EXPECT().GetByNumberForUpdate(ctx, tx, "1000000000").Return(testAccount(10000), nil)
	d.accountRepo.EXPECT().Update(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, a *domain.Account) error {
			assert.Equal(t, int64(9000), a.Balance)
			assert.Equal(t, fixedNow, a.UpdatedAt)
			return nil
		})
	d.txRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)

	txn, err := d.svc.UseBalance(ctx, ports.UseBalanceRequest{UserID: 1, AccountNumber: "1000000000", Amount: 1000})

	require.NoError(t, err)
	require.NotNil(t, txn)
	assert.Len(t, txn.TransactionID, 32)
	assert.Equal(t, domain.TransactionTypeUse, txn.Type)
	assert.Equal(t, domain.TransactionResultSuccess, txn.Result)
	assert.Equal(t, int64(1000), txn.Amount)
	assert.Equal(t, int64(9000), txn.BalanceSnapshot)
	assert.Equal(t, int64(7), txn.AccountID)
	assert.Equal(t, fixedNow, txn.TransactedAt)
	assert.Nil(t, txn.OriginalTransactionID)
	assert.True(t, tx.committed)
}

func TestBalanceService_UseBalance_ExactBalance(t *testing.T) {
	d := setupBalanceService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}

	d.userRepo.EXPECT().GetByID(ctx, int64(1)).Return(testUser(), nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.accountRepo.EXPECT().GetByNumberForUpdate(ctx, tx, "1000000000").Return(testAccount(500), nil)
	d.accountRepo.EXPECT().Update(ctx, tx, gomock.Any()).Return(nil)
	d.txRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)

	txn, err := d.svc.UseBalance(ctx, ports.UseBalanceRequest{UserID: 1, AccountNumber: "1000000000", Amount: 500})

	require.NoError(t, err)
	assert.Equal(t, int64(0), txn.BalanceSnapshot)
}

func TestBalanceService_UseBalance_InvalidAmount(t *testing.T) {
	d := setupBalanceService(t)
	defer d.ctrl.Finish()

	for _, amount := range []int64{0, -100} {
		_, err := d.svc.UseBalance(context.Background(), ports.UseBalanceRequest{UserID: 1, AccountNumber: "1000000000", Amount: amount})
		assertAppError(t, err, apperror.CodeValidation)
	}
}

func TestBalanceService_UseBalance_OwnerNotFound(t *testing.T) {
	d := setupBalanceService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.userRepo.EXPECT().GetByID(ctx, int64(1)).Return(nil, nil)

	_, err := d.svc.UseBalance(ctx, ports.UseBalanceRequest{UserID: 1, AccountNumber: "1000000000", Amount: 1000})
	assertAppError(t, err, "ACC_001")
}

func TestBalanceService_UseBalance_AccountNotFound(t *testing.T) {
	d := setupBalanceService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}

	d.userRepo.EXPECT().GetByID(ctx, int64(1)).Return(testUser(), nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.accountRepo.EXPECT().GetByNumberForUpdate(ctx, tx, "1000000000").Return(nil, nil)

	_, err := d.svc.UseBalance(ctx, ports.UseBalanceRequest{UserID: 1, AccountNumber: "1000000000", Amount: 1000})
	assertAppError(t, err, "ACC_002")
	assert.False(t, tx.committed)
}

func TestBalanceService_UseBalance_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		account func() *domain.Account
		amount  int64
		code    string
	}{
		{
			name: "owner mismatch",
			account: func() *domain.Account {
				a := testAccount(10000)
				a.UserID = 2
				return a
			},
			amount: 1000,
			code:   "ACC_003",
		},
		{
			name: "account closed",
			account: func() *domain.Account {
				a := testAccount(10000)
				a.Close(fixedNow)
				return a
			},
			amount: 1000,
			code:   "ACC_004",
		},
		{
			name:    "amount exceeds balance",
			account: func() *domain.Account { return testAccount(500) },
			amount:  501,
			code:    "ACC_005",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := setupBalanceService(t)
			defer d.ctrl.Finish()

			ctx := context.Background()
			tx := &mockTx{}

			d.userRepo.EXPECT().GetByID(ctx, int64(1)).Return(testUser(), nil)
			d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
			d.accountRepo.EXPECT().GetByNumberForUpdate(ctx, tx, "1000000000").Return(tt.account(), nil)

			_, err := d.svc.UseBalance(ctx, ports.UseBalanceRequest{UserID: 1, AccountNumber: "1000000000", Amount: tt.amount})
			assertAppError(t, err, tt.code)
			assert.True(t, apperror.IsBusinessRejection(err))
			assert.False(t, tx.committed)
		})
	}
}

func TestBalanceService_UseBalance_UpdateFails(t *testing.T) {
	d := setupBalanceService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}

	d.userRepo.EXPECT().GetByID(ctx, int64(1)).Return(testUser(), nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.accountRepo.EXPECT().GetByNumberForUpdate(ctx, tx, "1000000000").Return(testAccount(10000), nil)
	d.accountRepo.EXPECT().Update(ctx, tx, gomock.Any()).Return(errors.New("connection reset"))

	_, err := d.svc.UseBalance(ctx, ports.UseBalanceRequest{UserID: 1, AccountNumber: "1000000000", Amount: 1000})
	assertAppError(t, err, apperror.CodeInternal)
	assert.False(t, apperror.IsBusinessRejection(err))
	assert.False(t, tx.committed)
}

func TestBalanceService_UseBalance_BeginFails(t *testing.T) {
	d := setupBalanceService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.userRepo.EXPECT().GetByID(ctx, int64(1)).Return(testUser(), nil)
	d.transactor.EXPECT().Begin(ctx).Return(nil, errors.New("pool closed"))

	_, err := d.svc.UseBalance(ctx, ports.UseBalanceRequest{UserID: 1, AccountNumber: "1000000000", Amount: 1000})
	assertAppError(t, err, apperror.CodeInternal)
}

// ==================== CancelBalance Tests ====================

func TestBalanceService_CancelBalance_Success(t *testing.T) {
	d := setupBalanceService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	original := testUseEntry(1000, fixedNow.Add(-time.Hour))

	d.txRepo.EXPECT().GetByID(ctx, original.TransactionID).Return(original, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.accountRepo.EXPECT().GetByNumberForUpdate(ctx, tx, "1000000000").Return(testAccount(9000), nil)
	d.txRepo.EXPECT().CheckCancelExists(ctx, tx, original.TransactionID).Return(false, nil)
	d.accountRepo.EXPECT().Update(ctx, tx, gomock.Any()).Return(nil)
	d.txRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)

	txn, err := d.svc.CancelBalance(ctx, ports.CancelBalanceRequest{
		TransactionID: original.TransactionID,
		AccountNumber: "1000000000",
		Amount:        1000,
	})

	require.NoError(t, err)
	assert.Equal(t, domain.TransactionTypeCancel, txn.Type)
	assert.Equal(t, domain.TransactionResultSuccess, txn.Result)
	assert.Equal(t, int64(10000), txn.BalanceSnapshot)
	require.NotNil(t, txn.OriginalTransactionID)
	assert.Equal(t, original.TransactionID, *txn.OriginalTransactionID)
	assert.NotEqual(t, original.TransactionID, txn.TransactionID)
	assert.True(t, tx.committed)
}

func TestBalanceService_CancelBalance_TransactionNotFound(t *testing.T) {
	d := setupBalanceService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.txRepo.EXPECT().GetByID(ctx, "missing").Return(nil, nil)

	_, err := d.svc.CancelBalance(ctx, ports.CancelBalanceRequest{TransactionID: "missing", AccountNumber: "1000000000", Amount: 1000})
	assertAppError(t, err, "TXN_001")
}

func TestBalanceService_CancelBalance_AccountNotFound(t *testing.T) {
	d := setupBalanceService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	original := testUseEntry(1000, fixedNow)

	d.txRepo.EXPECT().GetByID(ctx, original.TransactionID).Return(original, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.accountRepo.EXPECT().GetByNumberForUpdate(ctx, tx, "1000000001").Return(nil, nil)

	_, err := d.svc.CancelBalance(ctx, ports.CancelBalanceRequest{TransactionID: original.TransactionID, AccountNumber: "1000000001", Amount: 1000})
	assertAppError(t, err, "ACC_002")
}

func TestBalanceService_CancelBalance_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		original func() *domain.Transaction
		account  func() *domain.Account
		amount   int64
		code     string
	}{
		{
			name:     "account mismatch",
			original: func() *domain.Transaction { return testUseEntry(1000, fixedNow) },
			account: func() *domain.Account {
				a := testAccount(9000)
				a.ID = 8
				return a
			},
			amount: 1000,
			code:   "TXN_002",
		},
		{
			name:     "partial amount",
			original: func() *domain.Transaction { return testUseEntry(1000, fixedNow) },
			account:  func() *domain.Account { return testAccount(9000) },
			amount:   500,
			code:     "TXN_003",
		},
		{
			name:     "over amount",
			original: func() *domain.Transaction { return testUseEntry(1000, fixedNow) },
			account:  func() *domain.Account { return testAccount(9000) },
			amount:   1500,
			code:     "TXN_003",
		},
		{
			name:     "older than a year",
			original: func() *domain.Transaction { return testUseEntry(1000, fixedNow.AddDate(0, 0, -400)) },
			account:  func() *domain.Account { return testAccount(9000) },
			amount:   1000,
			code:     "TXN_004",
		},
		{
			name: "not a successful use",
			original: func() *domain.Transaction {
				e := testUseEntry(1000, fixedNow)
				e.Result = domain.TransactionResultFailure
				return e
			},
			account: func() *domain.Account { return testAccount(9000) },
			amount:  1000,
			code:    "TXN_005",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := setupBalanceService(t)
			defer d.ctrl.Finish()

			ctx := context.Background()
			tx := &mockTx{}
			original := tt.original()

			d.txRepo.EXPECT().GetByID(ctx, original.TransactionID).Return(original, nil)
			d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
			d.accountRepo.EXPECT().GetByNumberForUpdate(ctx, tx, "1000000000").Return(tt.account(), nil)

			_, err := d.svc.CancelBalance(ctx, ports.CancelBalanceRequest{
				TransactionID: original.TransactionID,
				AccountNumber: "1000000000",
				Amount:        tt.amount,
			})
			assertAppError(t, err, tt.code)
			assert.True(t, apperror.IsBusinessRejection(err))
			assert.False(t, tx.committed)
		})
	}
}

func TestBalanceService_CancelBalance_WithinWindowBoundary(t *testing.T) {
	d := setupBalanceService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	original := testUseEntry(1000, fixedNow.AddDate(-1, 0, 0))

	d.txRepo.EXPECT().GetByID(ctx, original.TransactionID).Return(original, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.accountRepo.EXPECT().GetByNumberForUpdate(ctx, tx, "1000000000").Return(testAccount(9000), nil)
	d.txRepo.EXPECT().CheckCancelExists(ctx, tx, original.TransactionID).Return(false, nil)
	d.accountRepo.EXPECT().Update(ctx, tx, gomock.Any()).Return(nil)
	d.txRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)

	_, err := d.svc.CancelBalance(ctx, ports.CancelBalanceRequest{TransactionID: original.TransactionID, AccountNumber: "1000000000", Amount: 1000})
	require.NoError(t, err)
}

func TestBalanceService_CancelBalance_AlreadyCancelled(t *testing.T) {
	d := setupBalanceService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	original := testUseEntry(1000, fixedNow)

	d.txRepo.EXPECT().GetByID(ctx, original.TransactionID).Return(original, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.accountRepo.EXPECT().GetByNumberForUpdate(ctx, tx, "1000000000").Return(testAccount(10000), nil)
	d.txRepo.EXPECT().CheckCancelExists(ctx, tx, original.TransactionID).Return(true, nil)

	_, err := d.svc.CancelBalance(ctx, ports.CancelBalanceRequest{TransactionID: original.TransactionID, AccountNumber: "1000000000", Amount: 1000})
	assertAppError(t, err, "TXN_006")
}

// ==================== RecordFailed Tests ====================

func TestBalanceService_RecordFailedUse(t *testing.T) {
	d := setupBalanceService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}

	d.accountRepo.EXPECT().GetByNumber(ctx, "1000000000").Return(testAccount(300), nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.txRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)

	txn, err := d.svc.RecordFailedUse(ctx, "1000000000", 5000)

	require.NoError(t, err)
	assert.Equal(t, domain.TransactionTypeUse, txn.Type)
	assert.Equal(t, domain.TransactionResultFailure, txn.Result)
	assert.Equal(t, int64(5000), txn.Amount)
	assert.Equal(t, int64(300), txn.BalanceSnapshot)
	assert.True(t, tx.committed)
}

func TestBalanceService_RecordFailedCancel(t *testing.T) {
	d := setupBalanceService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}

	d.accountRepo.EXPECT().GetByNumber(ctx, "1000000000").Return(testAccount(9000), nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.txRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)

	txn, err := d.svc.RecordFailedCancel(ctx, "1000000000", 500)

	require.NoError(t, err)
	assert.Equal(t, domain.TransactionTypeCancel, txn.Type)
	assert.Equal(t, domain.TransactionResultFailure, txn.Result)
	assert.Equal(t, int64(9000), txn.BalanceSnapshot)
	assert.Nil(t, txn.OriginalTransactionID)
}

func TestBalanceService_RecordFailed_AccountNotFound(t *testing.T) {
	d := setupBalanceService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.accountRepo.EXPECT().GetByNumber(ctx, "1999999999").Return(nil, nil)

	_, err := d.svc.RecordFailedUse(ctx, "1999999999", 1000)
	assertAppError(t, err, "ACC_002")
}

// ==================== QueryTransaction Tests ====================

func TestBalanceService_QueryTransaction(t *testing.T) {
	d := setupBalanceService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	entry := testUseEntry(1000, fixedNow)
	d.txRepo.EXPECT().GetByID(ctx, entry.TransactionID).Return(entry, nil)

	got, err := d.svc.QueryTransaction(ctx, entry.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, entry, got)
}

func TestBalanceService_QueryTransaction_NotFound(t *testing.T) {
	d := setupBalanceService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.txRepo.EXPECT().GetByID(ctx, "nope").Return(nil, nil)

	_, err := d.svc.QueryTransaction(ctx, "nope")
	assertAppError(t, err, "TXN_001")
}

func TestBalanceService_QueryTransaction_StorageError(t *testing.T) {
	d := setupBalanceService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.txRepo.EXPECT().GetByID(ctx, "x").Return(nil, errors.New("timeout"))

	_, err := d.svc.QueryTransaction(ctx, "x")
	assertAppError(t, err, apperror.CodeInternal)
}
