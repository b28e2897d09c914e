package service

import (
	"context"

	"balance-ledger/internal/core/domain"
	"balance-ledger/internal/core/ports"
	"balance-ledger/pkg/apperror"

	"github.com/rs/zerolog"
)

// TransactionServiceImpl implements ports.TransactionService. Balance changes
// run under the per-account lock; a business-rule rejection is recorded as a
// FAILURE entry once the lock has been released.
type TransactionServiceImpl struct {
	balance ports.BalanceService
	use     func(context.Context, ports.UseBalanceRequest) (*domain.Transaction, error)
	cancel  func(context.Context, ports.CancelBalanceRequest) (*domain.Transaction, error)
	log     zerolog.Logger
}

// NewTransactionService creates a new TransactionServiceImpl.
func NewTransactionService(
	balance ports.BalanceService,
	locker ports.LockCoordinator,
	opts LockOptions,
	log zerolog.Logger,
) *TransactionServiceImpl {
	return &TransactionServiceImpl{
		balance: balance,
		use: Guard(locker, opts, func(r ports.UseBalanceRequest) string {
			return r.AccountNumber
		}, balance.UseBalance, log),
		cancel: Guard(locker, opts, func(r ports.CancelBalanceRequest) string {
			return r.AccountNumber
		}, balance.CancelBalance, log),
		log: log,
	}
}

// UseBalance debits the account under its lock.
func (s *TransactionServiceImpl) UseBalance(ctx context.Context, req ports.UseBalanceRequest) (*domain.Transaction, error) {
	txn, err := s.use(ctx, req)
	if err != nil {
		if apperror.IsBusinessRejection(err) {
			s.compensate(ctx, domain.TransactionTypeUse, req.AccountNumber, req.Amount, err)
		}
		return nil, err
	}
	return txn, nil
}

// CancelBalance reverses a prior use under the account lock.
func (s *TransactionServiceImpl) CancelBalance(ctx context.Context, req ports.CancelBalanceRequest) (*domain.Transaction, error) {
	txn, err := s.cancel(ctx, req)
	if err != nil {
		if apperror.IsBusinessRejection(err) {
			s.compensate(ctx, domain.TransactionTypeCancel, req.AccountNumber, req.Amount, err)
		}
		return nil, err
	}
	return txn, nil
}

// QueryTransaction reads without locking.
func (s *TransactionServiceImpl) QueryTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	return s.balance.QueryTransaction(ctx, transactionID)
}

// compensate is best-effort: its own failure is logged and the caller still
// sees the original rejection.
func (s *TransactionServiceImpl) compensate(
	ctx context.Context,
	txType domain.TransactionType,
	accountNumber string,
	amount int64,
	cause error,
) {
	ctx = context.WithoutCancel(ctx)

	var err error
	if txType == domain.TransactionTypeUse {
		_, err = s.balance.RecordFailedUse(ctx, accountNumber, amount)
	} else {
		_, err = s.balance.RecordFailedCancel(ctx, accountNumber, amount)
	}
	if err != nil {
		s.log.Warn().
			Err(err).
			Str("account_number", accountNumber).
			Str("type", string(txType)).
			Int64("amount", amount).
			Str("rejection", apperror.CodeOf(cause)).
			Msg("failed to record failed attempt")
	}
}
