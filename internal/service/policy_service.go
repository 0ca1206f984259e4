package service

import (
	"context"
	"fmt"
	"time"

	"fixed-deposit-bank/internal/core/domain"
	"fixed-deposit-bank/internal/core/ports"
	"fixed-deposit-bank/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// PolicyServiceImpl implements ports.PolicyService: the rate registry and
// the treasury operations.
type PolicyServiceImpl struct {
	accountRepo ports.AccountRepository
	policyRepo  ports.PolicyRepository
	eventRepo   ports.EventRepository
	transactor  ports.DBTransactor
	authorizer  ports.Authorizer
	clock       ports.BlockClock
	log         zerolog.Logger
}

// NewPolicyService creates a new PolicyServiceImpl.
func NewPolicyService(
	accountRepo ports.AccountRepository,
	policyRepo ports.PolicyRepository,
	eventRepo ports.EventRepository,
	transactor ports.DBTransactor,
	authorizer ports.Authorizer,
	clock ports.BlockClock,
	log zerolog.Logger,
) *PolicyServiceImpl {
	return &PolicyServiceImpl{
		accountRepo: accountRepo,
		policyRepo:  policyRepo,
		eventRepo:   eventRepo,
		transactor:  transactor,
		authorizer:  authorizer,
		clock:       clock,
		log:         log,
	}
}

// GetPolicy returns the current rates and treasury pointer.
func (s *PolicyServiceImpl) GetPolicy(ctx context.Context) (*domain.BankPolicy, error) {
	policy, err := s.policyRepo.Get(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("read policy: %w", err))
	}
	return policy, nil
}

// SetInterestRate replaces the interest rate. Privileged callers only.
// Open deposits are not re-priced; the rate applies at close time.
func (s *PolicyServiceImpl) SetInterestRate(ctx context.Context, caller ports.Caller, bps int64) error {
	if err := s.requirePrivileged(ctx, caller); err != nil {
		return err
	}
	if !domain.ValidInterestRate(bps) {
		return apperror.ErrInvalidRate("interest rate must be non-negative")
	}

	block, err := s.clock.Current(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("read block height: %w", err))
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.policyRepo.SetInterestRate(ctx, dbTx, bps); err != nil {
		return apperror.InternalError(fmt.Errorf("set interest rate: %w", err))
	}
	if err := s.journalRateChange(ctx, dbTx, caller.AccountID, bps, block); err != nil {
		return err
	}
	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().Int64("interest_rate_bps", bps).Str("by", caller.Username).Msg("interest rate set")
	return nil
}

// SetPenaltyRate replaces the penalty rate. Privileged callers only; the
// rate must stay inside the [0.5%, 1%] band.
func (s *PolicyServiceImpl) SetPenaltyRate(ctx context.Context, caller ports.Caller, bps int64) error {
	if err := s.requirePrivileged(ctx, caller); err != nil {
		return err
	}
	if !domain.ValidPenaltyRate(bps) {
		return apperror.ErrInvalidRate(fmt.Sprintf(
			"penalty rate must be within [%d, %d] basis points",
			domain.MinPenaltyRateBps, domain.MaxPenaltyRateBps))
	}

	block, err := s.clock.Current(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("read block height: %w", err))
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.policyRepo.SetPenaltyRate(ctx, dbTx, bps); err != nil {
		return apperror.InternalError(fmt.Errorf("set penalty rate: %w", err))
	}
	if err := s.journalRateChange(ctx, dbTx, caller.AccountID, bps, block); err != nil {
		return err
	}
	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().Int64("penalty_rate_bps", bps).Str("by", caller.Username).Msg("penalty rate set")
	return nil
}

// SetTreasury replaces the treasury account. Privileged callers only; the
// account must exist.
func (s *PolicyServiceImpl) SetTreasury(ctx context.Context, caller ports.Caller, treasuryID uuid.UUID) error {
	if err := s.requirePrivileged(ctx, caller); err != nil {
		return err
	}

	account, err := s.accountRepo.GetByID(ctx, treasuryID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("find treasury account: %w", err))
	}
	if account == nil {
		return apperror.ErrAccountNotFound()
	}

	block, err := s.clock.Current(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("read block height: %w", err))
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.policyRepo.SetTreasury(ctx, dbTx, treasuryID); err != nil {
		return apperror.InternalError(fmt.Errorf("set treasury: %w", err))
	}

	event := &domain.LedgerEvent{
		ID:        uuid.New(),
		Kind:      domain.EventTreasuryChanged,
		AccountID: treasuryID,
		Block:     block,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.eventRepo.Create(ctx, dbTx, event); err != nil {
		return apperror.InternalError(fmt.Errorf("journal event: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().Str("treasury_id", treasuryID.String()).Str("by", caller.Username).Msg("treasury account set")
	return nil
}

// FundTreasury transfers from the caller's free balance into the treasury.
// Any caller may fund.
func (s *PolicyServiceImpl) FundTreasury(ctx context.Context, caller ports.Caller, amount int64) error {
	if amount <= 0 {
		return apperror.ErrInvalidAmount()
	}

	policy, err := s.policyRepo.Get(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("read policy: %w", err))
	}
	if !policy.HasTreasury() {
		return apperror.ErrTreasuryNotSet()
	}

	block, err := s.clock.Current(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("read block height: %w", err))
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	// Lock order: funder before treasury.
	funder, err := s.accountRepo.GetByIDForUpdate(ctx, dbTx, caller.AccountID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("lock account: %w", err))
	}
	if funder == nil {
		return apperror.ErrAccountNotFound()
	}
	if funder.FreeBalance < amount {
		return apperror.ErrInsufficientBalance()
	}

	// Funder and treasury may be the same row. Debit and credit cancel out,
	// so no balance write at all: two absolute writes here would let the
	// second clobber the first and mint the amount.
	if funder.ID != *policy.TreasuryID {
		treasury, err := s.accountRepo.GetByIDForUpdate(ctx, dbTx, *policy.TreasuryID)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("lock treasury: %w", err))
		}
		if treasury == nil {
			return apperror.ErrTreasuryNotSet()
		}

		if err := s.accountRepo.UpdateBalances(ctx, dbTx, funder.ID,
			funder.FreeBalance-amount, funder.ReservedBalance); err != nil {
			return apperror.InternalError(fmt.Errorf("debit funder: %w", err))
		}
		if err := s.accountRepo.UpdateBalances(ctx, dbTx, treasury.ID,
			treasury.FreeBalance+amount, treasury.ReservedBalance); err != nil {
			return apperror.InternalError(fmt.Errorf("credit treasury: %w", err))
		}
	}

	event := &domain.LedgerEvent{
		ID:             uuid.New(),
		Kind:           domain.EventTreasuryFunded,
		AccountID:      funder.ID,
		CounterpartyID: policy.TreasuryID,
		Amount:         amount,
		Block:          block,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.eventRepo.Create(ctx, dbTx, event); err != nil {
		return apperror.InternalError(fmt.Errorf("journal event: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("funder_id", funder.ID.String()).
		Int64("amount", amount).
		Msg("treasury funded")
	return nil
}

func (s *PolicyServiceImpl) requirePrivileged(ctx context.Context, caller ports.Caller) error {
	privileged, err := s.authorizer.IsPrivileged(ctx, caller.Username)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("authorize caller: %w", err))
	}
	if !privileged {
		return apperror.ErrUnauthorized()
	}
	return nil
}

func (s *PolicyServiceImpl) journalRateChange(ctx context.Context, dbTx pgx.Tx, by uuid.UUID, bps, block int64) error {
	event := &domain.LedgerEvent{
		ID:        uuid.New(),
		Kind:      domain.EventRateChanged,
		AccountID: by,
		Amount:    bps,
		Block:     block,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.eventRepo.Create(ctx, dbTx, event); err != nil {
		return apperror.InternalError(fmt.Errorf("journal event: %w", err))
	}
	return nil
}
