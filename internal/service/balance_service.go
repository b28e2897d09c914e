package service

import (
	"context"
	"fmt"
	"time"

	"balance-ledger/internal/core/domain"
	"balance-ledger/internal/core/ports"
	"balance-ledger/pkg/apperror"

	"github.com/rs/zerolog"
)

// BalanceServiceImpl implements ports.BalanceService. Every method runs in a
// single database transaction and assumes the account lock is already held.
type BalanceServiceImpl struct {
	userRepo    ports.UserRepository
	accountRepo ports.AccountRepository
	txRepo      ports.TransactionRepository
	transactor  ports.DBTransactor
	log         zerolog.Logger
	now         func() time.Time
}

// NewBalanceService creates a new BalanceServiceImpl.
func NewBalanceService(
	userRepo ports.UserRepository,
	accountRepo ports.AccountRepository,
	txRepo ports.TransactionRepository,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *BalanceServiceImpl {
	return &BalanceServiceImpl{
		userRepo:    userRepo,
		accountRepo: accountRepo,
		txRepo:      txRepo,
		transactor:  transactor,
		log:         log,
		now:         time.Now,
	}
}

// UseBalance debits the account and appends a successful USE entry.
func (s *BalanceServiceImpl) UseBalance(ctx context.Context, req ports.UseBalanceRequest) (*domain.Transaction, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	user, err := s.userRepo.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get user: %w", err))
	}
	if user == nil {
		return nil, apperror.ErrOwnerNotFound()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	account, err := s.accountRepo.GetByNumberForUpdate(ctx, dbTx, req.AccountNumber)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrAccountNotFound()
	}

	if !account.OwnedBy(user.ID) {
		return nil, apperror.ErrOwnerAccountMismatch()
	}
	if !account.IsActive() {
		return nil, apperror.ErrAccountAlreadyClosed()
	}
	if !account.CanDebit(req.Amount) {
		return nil, apperror.ErrAmountExceedsBalance()
	}

	now := s.now().UTC()
	account.Debit(req.Amount)
	account.UpdatedAt = now

	if err := s.accountRepo.Update(ctx, dbTx, account); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update account: %w", err))
	}

	txn := newEntry(account, domain.TransactionTypeUse, domain.TransactionResultSuccess, req.Amount, now)
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create transaction: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.logEntry(txn, "balance used")
	return txn, nil
}

// CancelBalance reverses a prior successful use of exactly the same amount.
func (s *BalanceServiceImpl) CancelBalance(ctx context.Context, req ports.CancelBalanceRequest) (*domain.Transaction, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	original, err := s.txRepo.GetByID(ctx, req.TransactionID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get transaction: %w", err))
	}
	if original == nil {
		return nil, apperror.ErrTransactionNotFound()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	account, err := s.accountRepo.GetByNumberForUpdate(ctx, dbTx, req.AccountNumber)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrAccountNotFound()
	}

	now := s.now().UTC()
	if original.AccountID != account.ID {
		return nil, apperror.ErrTransactionAccountMismatch()
	}
	if req.Amount != original.Amount {
		return nil, apperror.ErrTransactionAmountMismatch()
	}
	if original.CancellationExpired(now) {
		return nil, apperror.ErrCancellationWindowExpired()
	}
	if !original.IsCancellable() {
		return nil, apperror.ErrTransactionNotCancellable()
	}

	cancelled, err := s.txRepo.CheckCancelExists(ctx, dbTx, original.TransactionID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check cancel: %w", err))
	}
	if cancelled {
		return nil, apperror.ErrTransactionAlreadyCancelled()
	}

	account.Credit(req.Amount)
	account.UpdatedAt = now

	if err := s.accountRepo.Update(ctx, dbTx, account); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update account: %w", err))
	}

	txn := newEntry(account, domain.TransactionTypeCancel, domain.TransactionResultSuccess, req.Amount, now)
	originalID := original.TransactionID
	txn.OriginalTransactionID = &originalID
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create transaction: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.logEntry(txn, "balance cancelled")
	return txn, nil
}

// RecordFailedUse appends a FAILURE entry for a rejected use.
func (s *BalanceServiceImpl) RecordFailedUse(ctx context.Context, accountNumber string, amount int64) (*domain.Transaction, error) {
	return s.recordFailure(ctx, domain.TransactionTypeUse, accountNumber, amount)
}

// RecordFailedCancel appends a FAILURE entry for a rejected cancel.
func (s *BalanceServiceImpl) RecordFailedCancel(ctx context.Context, accountNumber string, amount int64) (*domain.Transaction, error) {
	return s.recordFailure(ctx, domain.TransactionTypeCancel, accountNumber, amount)
}

// QueryTransaction returns a single ledger entry.
func (s *BalanceServiceImpl) QueryTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	txn, err := s.txRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get transaction: %w", err))
	}
	if txn == nil {
		return nil, apperror.ErrTransactionNotFound()
	}
	return txn, nil
}

// recordFailure never touches the balance; the snapshot is whatever the
// account holds at the time of the write.
func (s *BalanceServiceImpl) recordFailure(
	ctx context.Context,
	txType domain.TransactionType,
	accountNumber string,
	amount int64,
) (*domain.Transaction, error) {
	account, err := s.accountRepo.GetByNumber(ctx, accountNumber)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrAccountNotFound()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	txn := newEntry(account, txType, domain.TransactionResultFailure, amount, s.now().UTC())
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create transaction: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.logEntry(txn, "failed attempt recorded")
	return txn, nil
}

func (s *BalanceServiceImpl) logEntry(txn *domain.Transaction, msg string) {
	s.log.Info().
		Str("tx_id", txn.TransactionID).
		Str("account_number", txn.AccountNumber).
		Str("type", string(txn.Type)).
		Int64("amount", txn.Amount).
		Str("result", string(txn.Result)).
		Int64("balance_snapshot", txn.BalanceSnapshot).
		Msg(msg)
}

func newEntry(
	account *domain.Account,
	txType domain.TransactionType,
	result domain.TransactionResult,
	amount int64,
	at time.Time,
) *domain.Transaction {
	return &domain.Transaction{
		TransactionID:   domain.NewTransactionID(),
		AccountID:       account.ID,
		AccountNumber:   account.AccountNumber,
		Type:            txType,
		Result:          result,
		Amount:          amount,
		BalanceSnapshot: account.Balance,
		TransactedAt:    at,
	}
}
