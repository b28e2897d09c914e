package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"balance-ledger/internal/core/domain"
	"balance-ledger/internal/core/ports"
	"balance-ledger/pkg/apperror"

	"github.com/rs/zerolog"
)

// maxNumberAttempts bounds retries when two registrations race for the same
// account number.
const maxNumberAttempts = 3

// AccountServiceImpl implements ports.AccountService.
type AccountServiceImpl struct {
	userRepo    ports.UserRepository
	accountRepo ports.AccountRepository
	transactor  ports.DBTransactor
	deleteFn    func(context.Context, ports.DeleteAccountRequest) (*domain.Account, error)
	log         zerolog.Logger
	now         func() time.Time
}

// NewAccountService creates a new AccountServiceImpl. Closing an account runs
// under the same per-account lock as balance changes.
func NewAccountService(
	userRepo ports.UserRepository,
	accountRepo ports.AccountRepository,
	transactor ports.DBTransactor,
	locker ports.LockCoordinator,
	opts LockOptions,
	log zerolog.Logger,
) *AccountServiceImpl {
	s := &AccountServiceImpl{
		userRepo:    userRepo,
		accountRepo: accountRepo,
		transactor:  transactor,
		log:         log,
		now:         time.Now,
	}
	s.deleteFn = Guard(locker, opts, func(r ports.DeleteAccountRequest) string {
		return r.AccountNumber
	}, s.closeAccount, log)
	return s
}

// CreateUser registers an account owner.
func (s *AccountServiceImpl) CreateUser(ctx context.Context, name string) (*domain.AccountUser, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.Validation("name is required")
	}

	now := s.now().UTC()
	user := &domain.AccountUser{
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create user: %w", err))
	}

	s.log.Info().Int64("user_id", user.ID).Msg("user created")
	return user, nil
}

// CreateAccount opens a new account with the next free account number.
func (s *AccountServiceImpl) CreateAccount(ctx context.Context, req ports.CreateAccountRequest) (*domain.Account, error) {
	if req.InitialBalance < 0 {
		return nil, apperror.Validation("initial_balance must not be negative")
	}

	user, err := s.userRepo.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get user: %w", err))
	}
	if user == nil {
		return nil, apperror.ErrOwnerNotFound()
	}

	for attempt := 1; ; attempt++ {
		account, err := s.createAccount(ctx, user.ID, req.InitialBalance)
		if err == nil {
			s.log.Info().
				Int64("user_id", user.ID).
				Str("account_number", account.AccountNumber).
				Int64("balance", account.Balance).
				Msg("account created")
			return account, nil
		}
		if !errors.Is(err, ports.ErrDuplicateAccountNumber) {
			return nil, err
		}
		if attempt >= maxNumberAttempts {
			return nil, apperror.InternalError(fmt.Errorf("assign account number: %w", err))
		}
		s.log.Warn().Int64("user_id", user.ID).Int("attempt", attempt).Msg("account number taken, retrying")
	}
}

func (s *AccountServiceImpl) createAccount(ctx context.Context, userID, initialBalance int64) (*domain.Account, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	count, err := s.accountRepo.CountByUserID(ctx, dbTx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("count accounts: %w", err))
	}
	if count >= domain.MaxAccountsPerUser {
		return nil, apperror.ErrMaxAccountsPerUser()
	}

	latest, err := s.accountRepo.GetLatestNumber(ctx, dbTx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("latest account number: %w", err))
	}
	number, err := domain.NextAccountNumber(latest)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	now := s.now().UTC()
	account := &domain.Account{
		UserID:        userID,
		AccountNumber: number,
		Balance:       initialBalance,
		Status:        domain.AccountStatusActive,
		RegisteredAt:  now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.accountRepo.Create(ctx, dbTx, account); err != nil {
		if errors.Is(err, ports.ErrDuplicateAccountNumber) {
			return nil, err
		}
		return nil, apperror.InternalError(fmt.Errorf("create account: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		if errors.Is(err, ports.ErrDuplicateAccountNumber) {
			return nil, err
		}
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return account, nil
}

// DeleteAccount closes an empty account under its lock.
func (s *AccountServiceImpl) DeleteAccount(ctx context.Context, req ports.DeleteAccountRequest) (*domain.Account, error) {
	return s.deleteFn(ctx, req)
}

func (s *AccountServiceImpl) closeAccount(ctx context.Context, req ports.DeleteAccountRequest) (*domain.Account, error) {
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
	if account.Balance > 0 {
		return nil, apperror.ErrBalanceNotEmpty()
	}

	now := s.now().UTC()
	account.Close(now)
	account.UpdatedAt = now

	if err := s.accountRepo.Update(ctx, dbTx, account); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update account: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Int64("user_id", user.ID).
		Str("account_number", account.AccountNumber).
		Msg("account closed")
	return account, nil
}

// ListAccounts returns every account the user owns, ordered by number.
func (s *AccountServiceImpl) ListAccounts(ctx context.Context, userID int64) ([]domain.Account, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get user: %w", err))
	}
	if user == nil {
		return nil, apperror.ErrOwnerNotFound()
	}

	accounts, err := s.accountRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list accounts: %w", err))
	}
	return accounts, nil
}
