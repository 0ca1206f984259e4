package service

import (
	"context"
	"fmt"
	"time"

	"fixed-deposit-bank/internal/core/domain"
	"fixed-deposit-bank/internal/core/ports"
	"fixed-deposit-bank/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AccountServiceImpl implements ports.AccountService.
type AccountServiceImpl struct {
	accountRepo ports.AccountRepository
	eventRepo   ports.EventRepository
	transactor  ports.DBTransactor
	clock       ports.BlockClock
	log         zerolog.Logger
}

// NewAccountService creates a new AccountServiceImpl.
func NewAccountService(
	accountRepo ports.AccountRepository,
	eventRepo ports.EventRepository,
	transactor ports.DBTransactor,
	clock ports.BlockClock,
	log zerolog.Logger,
) *AccountServiceImpl {
	return &AccountServiceImpl{
		accountRepo: accountRepo,
		eventRepo:   eventRepo,
		transactor:  transactor,
		clock:       clock,
		log:         log,
	}
}

// GetBalance returns the free/reserved/total view of an account.
func (s *AccountServiceImpl) GetBalance(ctx context.Context, accountID uuid.UUID) (*ports.BalanceView, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrAccountNotFound()
	}
	return &ports.BalanceView{
		Free:     account.FreeBalance,
		Reserved: account.ReservedBalance,
		Total:    account.TotalBalance(),
	}, nil
}

// Topup credits the account's free balance from an external source.
func (s *AccountServiceImpl) Topup(ctx context.Context, accountID uuid.UUID, amount int64) (*ports.BalanceView, error) {
	if amount <= 0 {
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

	account, err := s.accountRepo.GetByIDForUpdate(ctx, dbTx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrAccountNotFound()
	}

	newFree := account.FreeBalance + amount
	if err := s.accountRepo.UpdateBalances(ctx, dbTx, accountID, newFree, account.ReservedBalance); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("credit account: %w", err))
	}

	event := &domain.LedgerEvent{
		ID:        uuid.New(),
		Kind:      domain.EventTopup,
		AccountID: accountID,
		Amount:    amount,
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
		Int64("amount", amount).
		Msg("account topped up")

	return &ports.BalanceView{
		Free:     newFree,
		Reserved: account.ReservedBalance,
		Total:    newFree + account.ReservedBalance,
	}, nil
}
