package service

import (
	"context"
	"fmt"
	"time"

	"fixed-deposit-bank/config"
	"fixed-deposit-bank/internal/core/domain"
	"fixed-deposit-bank/internal/core/ports"
	"fixed-deposit-bank/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MembershipServiceImpl implements ports.MembershipService. A membership
// lock shares the balance-reservation primitive with fixed deposits but has
// its own lifecycle: no maturity, no interest, no penalty.
type MembershipServiceImpl struct {
	accountRepo ports.AccountRepository
	lockRepo    ports.MembershipLockRepository
	eventRepo   ports.EventRepository
	transactor  ports.DBTransactor
	clock       ports.BlockClock
	cfg         config.BankConfig
	log         zerolog.Logger
}

// NewMembershipService creates a new MembershipServiceImpl.
func NewMembershipService(
	accountRepo ports.AccountRepository,
	lockRepo ports.MembershipLockRepository,
	eventRepo ports.EventRepository,
	transactor ports.DBTransactor,
	clock ports.BlockClock,
	cfg config.BankConfig,
	log zerolog.Logger,
) *MembershipServiceImpl {
	return &MembershipServiceImpl{
		accountRepo: accountRepo,
		lockRepo:    lockRepo,
		eventRepo:   eventRepo,
		transactor:  transactor,
		clock:       clock,
		cfg:         cfg,
		log:         log,
	}
}

// Lock reserves amount under the membership tag. One lock per account.
func (s *MembershipServiceImpl) Lock(ctx context.Context, accountID uuid.UUID, amount int64) (*domain.MembershipLock, error) {
	if amount < s.cfg.MinLockAmount || amount > s.cfg.MaxLockAmount {
		return nil, apperror.ErrInvalidAmount()
	}

	block, err := s.clock.Current(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("read block height: %w", err))
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	existing, err := s.lockRepo.GetByAccountIDForUpdate(ctx, dbTx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check lock: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrAlreadyLocked()
	}

	account, err := s.accountRepo.GetByIDForUpdate(ctx, dbTx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrAccountNotFound()
	}
	if !account.CanReserve(amount) {
		return nil, apperror.ErrInsufficientBalance()
	}

	now := time.Now().UTC()
	lock := &domain.MembershipLock{
		AccountID:     accountID,
		Amount:        amount,
		LockedAtBlock: block,
		CreatedAt:     now,
	}

	if err := s.accountRepo.UpdateBalances(ctx, dbTx, accountID,
		account.FreeBalance-amount, account.ReservedBalance+amount); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("reserve lock amount: %w", err))
	}
	if err := s.lockRepo.Create(ctx, dbTx, lock); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create lock: %w", err))
	}

	event := &domain.LedgerEvent{
		ID:        uuid.New(),
		Kind:      domain.EventMembershipLock,
		AccountID: accountID,
		Amount:    amount,
		Block:     block,
		CreatedAt: now,
	}
	if err := s.eventRepo.Create(ctx, dbTx, event); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("journal event: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("account_id", accountID.String()).
		Int64("amount", amount).
		Int64("block", block).
		Msg("membership lock created")

	return lock, nil
}

// Unlock releases the full locked amount back to the free balance.
func (s *MembershipServiceImpl) Unlock(ctx context.Context, accountID uuid.UUID) (*domain.MembershipLock, error) {
	block, err := s.clock.Current(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("read block height: %w", err))
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	lock, err := s.lockRepo.GetByAccountIDForUpdate(ctx, dbTx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find lock: %w", err))
	}
	if lock == nil {
		return nil, apperror.ErrLockNotFound()
	}

	account, err := s.accountRepo.GetByIDForUpdate(ctx, dbTx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrAccountNotFound()
	}

	if err := s.accountRepo.UpdateBalances(ctx, dbTx, accountID,
		account.FreeBalance+lock.Amount, account.ReservedBalance-lock.Amount); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("release lock amount: %w", err))
	}
	if err := s.lockRepo.Delete(ctx, dbTx, accountID); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("remove lock: %w", err))
	}

	event := &domain.LedgerEvent{
		ID:        uuid.New(),
		Kind:      domain.EventMembershipFree,
		AccountID: accountID,
		Amount:    lock.Amount,
		Block:     block,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.eventRepo.Create(ctx, dbTx, event); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("journal event: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("account_id", accountID.String()).
		Int64("amount", lock.Amount).
		Msg("membership lock released")

	return lock, nil
}

// Get returns the account's membership lock, or LCK_002 if none exists.
func (s *MembershipServiceImpl) Get(ctx context.Context, accountID uuid.UUID) (*domain.MembershipLock, error) {
	lock, err := s.lockRepo.GetByAccountID(ctx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find lock: %w", err))
	}
	if lock == nil {
		return nil, apperror.ErrLockNotFound()
	}
	return lock, nil
}
