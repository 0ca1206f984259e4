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
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// DepositServiceImpl implements ports.DepositService: the fixed-deposit
// lifecycle engine. Every open/close is one database transaction; the block
// height is read once before the transaction begins.
type DepositServiceImpl struct {
	accountRepo ports.AccountRepository
	depositRepo ports.DepositRepository
	policyRepo  ports.PolicyRepository
	eventRepo   ports.EventRepository
	transactor  ports.DBTransactor
	clock       ports.BlockClock
	cfg         config.BankConfig
	log         zerolog.Logger
}

// NewDepositService creates a new DepositServiceImpl.
func NewDepositService(
	accountRepo ports.AccountRepository,
	depositRepo ports.DepositRepository,
	policyRepo ports.PolicyRepository,
	eventRepo ports.EventRepository,
	transactor ports.DBTransactor,
	clock ports.BlockClock,
	cfg config.BankConfig,
	log zerolog.Logger,
) *DepositServiceImpl {
	return &DepositServiceImpl{
		accountRepo: accountRepo,
		depositRepo: depositRepo,
		policyRepo:  policyRepo,
		eventRepo:   eventRepo,
		transactor:  transactor,
		clock:       clock,
		cfg:         cfg,
		log:         log,
	}
}

// Open reserves the principal from the owner's free balance and inserts the
// deposit row. Reservation and insertion commit together or not at all.
func (s *DepositServiceImpl) Open(ctx context.Context, req ports.OpenDepositRequest) (*domain.FixedDeposit, error) {
	if req.Amount < s.cfg.MinDepositAmount || req.Amount > s.cfg.MaxDepositAmount {
		return nil, apperror.ErrInvalidAmount()
	}
	if req.MaturityBlocks < s.cfg.MinMaturityBlocks || req.MaturityBlocks > s.cfg.MaxMaturityBlocks {
		return nil, apperror.ErrInvalidMaturityPeriod()
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

	owner, err := s.accountRepo.GetByIDForUpdate(ctx, dbTx, req.OwnerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock account: %w", err))
	}
	if owner == nil {
		return nil, apperror.ErrAccountNotFound()
	}

	// Counted under the owner row lock: concurrent opens for the same owner
	// serialize on GetByIDForUpdate, so two of them cannot both see zero.
	if !s.cfg.AllowMultipleFDs {
		open, err := s.depositRepo.CountByOwner(ctx, dbTx, req.OwnerID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("count deposits: %w", err))
		}
		if open > 0 {
			return nil, apperror.ErrDuplicateDeposit()
		}
	}

	if !owner.CanReserve(req.Amount) {
		return nil, apperror.ErrInsufficientBalance()
	}

	now := time.Now().UTC()
	deposit := &domain.FixedDeposit{
		ID:             uuid.New(),
		OwnerID:        req.OwnerID,
		Principal:      req.Amount,
		OpenedAtBlock:  block,
		MaturityBlocks: req.MaturityBlocks,
		CreatedAt:      now,
	}

	// Reserve: free -> reserved
	newFree := owner.FreeBalance - req.Amount
	newReserved := owner.ReservedBalance + req.Amount
	if err := s.accountRepo.UpdateBalances(ctx, dbTx, owner.ID, newFree, newReserved); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("reserve principal: %w", err))
	}

	if err := s.depositRepo.Create(ctx, dbTx, deposit); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create deposit: %w", err))
	}

	event := &domain.LedgerEvent{
		ID:        uuid.New(),
		Kind:      domain.EventDepositOpened,
		AccountID: owner.ID,
		Amount:    req.Amount,
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
		Str("deposit_id", deposit.ID.String()).
		Str("owner_id", owner.ID.String()).
		Int64("principal", req.Amount).
		Int64("block", block).
		Int64("maturity_blocks", req.MaturityBlocks).
		Msg("fixed deposit opened")

	return deposit, nil
}

// Close settles a fixed deposit. Mature closes pay interest from the
// treasury at the current rate; premature closes deduct the penalty from the
// principal. Unreserve, treasury movement and row removal commit together.
func (s *DepositServiceImpl) Close(ctx context.Context, req ports.CloseDepositRequest) (*ports.CloseDepositResult, error) {
	depositID, err := s.resolveDepositID(ctx, req)
	if err != nil {
		return nil, err
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

	deposit, err := s.depositRepo.GetByIDForUpdate(ctx, dbTx, depositID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock deposit: %w", err))
	}
	if deposit == nil || deposit.OwnerID != req.OwnerID {
		return nil, apperror.ErrDepositNotFound()
	}

	// Lock order: owner account before treasury account, everywhere.
	owner, err := s.accountRepo.GetByIDForUpdate(ctx, dbTx, deposit.OwnerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock account: %w", err))
	}
	if owner == nil {
		return nil, apperror.ErrAccountNotFound()
	}

	// Current rates win: the policy row is read inside this transaction.
	policy, err := s.policyRepo.GetTx(ctx, dbTx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("read policy: %w", err))
	}

	result := &ports.CloseDepositResult{
		DepositID: deposit.ID,
		Principal: deposit.Principal,
		Mature:    deposit.IsMature(block),
		Block:     block,
	}

	if result.Mature {
		if err := s.settleMature(ctx, dbTx, deposit, owner, policy, result); err != nil {
			return nil, err
		}
	} else {
		if err := s.settlePremature(ctx, dbTx, deposit, owner, policy, result); err != nil {
			return nil, err
		}
	}

	if err := s.depositRepo.Delete(ctx, dbTx, deposit.ID); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("remove deposit: %w", err))
	}

	kind := domain.EventDepositMatured
	if !result.Mature {
		kind = domain.EventDepositPenalty
	}
	event := &domain.LedgerEvent{
		ID:             uuid.New(),
		Kind:           kind,
		AccountID:      owner.ID,
		CounterpartyID: policy.TreasuryID,
		Amount:         result.Payout,
		Block:          block,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.eventRepo.Create(ctx, dbTx, event); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("journal event: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("deposit_id", deposit.ID.String()).
		Str("owner_id", owner.ID.String()).
		Bool("mature", result.Mature).
		Int64("principal", result.Principal).
		Int64("interest", result.Interest).
		Int64("penalty", result.Penalty).
		Int64("payout", result.Payout).
		Int64("block", block).
		Msg("fixed deposit closed")

	return result, nil
}

// settleMature unreserves the principal in full and pays interest from the
// treasury. Fails with TreasuryInsufficient (rolling everything back) rather
// than paying partially.
func (s *DepositServiceImpl) settleMature(
	ctx context.Context,
	dbTx pgx.Tx,
	deposit *domain.FixedDeposit,
	owner *domain.Account,
	policy *domain.BankPolicy,
	result *ports.CloseDepositResult,
) error {
	result.Interest = deposit.InterestAt(policy.InterestRateBps)
	result.Payout = deposit.Principal + result.Interest

	if result.Interest > 0 {
		if !policy.HasTreasury() {
			return apperror.ErrTreasuryNotSet()
		}
		// The owner may be the treasury. Interest then self-cancels, and a
		// separate absolute write per role would clobber the other one.
		if owner.ID == *policy.TreasuryID {
			if owner.FreeBalance < result.Interest {
				return apperror.ErrTreasuryInsufficient()
			}
			newFree := owner.FreeBalance + deposit.Principal
			newReserved := owner.ReservedBalance - deposit.Principal
			if err := s.accountRepo.UpdateBalances(ctx, dbTx, owner.ID, newFree, newReserved); err != nil {
				return apperror.InternalError(fmt.Errorf("release principal: %w", err))
			}
			return nil
		}
		treasury, err := s.accountRepo.GetByIDForUpdate(ctx, dbTx, *policy.TreasuryID)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("lock treasury: %w", err))
		}
		if treasury == nil {
			return apperror.ErrTreasuryNotSet()
		}
		if treasury.FreeBalance < result.Interest {
			return apperror.ErrTreasuryInsufficient()
		}
		if err := s.accountRepo.UpdateBalances(ctx, dbTx, treasury.ID,
			treasury.FreeBalance-result.Interest, treasury.ReservedBalance); err != nil {
			return apperror.InternalError(fmt.Errorf("debit treasury: %w", err))
		}
	}

	newFree := owner.FreeBalance + deposit.Principal + result.Interest
	newReserved := owner.ReservedBalance - deposit.Principal
	if err := s.accountRepo.UpdateBalances(ctx, dbTx, owner.ID, newFree, newReserved); err != nil {
		return apperror.InternalError(fmt.Errorf("release principal: %w", err))
	}
	return nil
}

// settlePremature unreserves the principal and deducts the penalty from it.
// The penalty is burned or credited to the treasury per configuration.
func (s *DepositServiceImpl) settlePremature(
	ctx context.Context,
	dbTx pgx.Tx,
	deposit *domain.FixedDeposit,
	owner *domain.Account,
	policy *domain.BankPolicy,
	result *ports.CloseDepositResult,
) error {
	result.Penalty = deposit.PenaltyAt(policy.PenaltyRateBps)
	result.Payout = deposit.Principal - result.Penalty

	// Treasury routing only applies when a treasury exists; a premature close
	// must never be blocked on treasury configuration, so it burns otherwise.
	routeToTreasury := s.cfg.PenaltyRoute == config.PenaltyRouteTreasury &&
		result.Penalty > 0 && policy.HasTreasury()

	if routeToTreasury && owner.ID == *policy.TreasuryID {
		// Penalty paid to oneself: only the principal moves.
		newFree := owner.FreeBalance + deposit.Principal
		newReserved := owner.ReservedBalance - deposit.Principal
		if err := s.accountRepo.UpdateBalances(ctx, dbTx, owner.ID, newFree, newReserved); err != nil {
			return apperror.InternalError(fmt.Errorf("release principal: %w", err))
		}
		return nil
	}

	newFree := owner.FreeBalance + result.Payout
	newReserved := owner.ReservedBalance - deposit.Principal
	if err := s.accountRepo.UpdateBalances(ctx, dbTx, owner.ID, newFree, newReserved); err != nil {
		return apperror.InternalError(fmt.Errorf("release principal: %w", err))
	}

	if routeToTreasury {
		treasury, err := s.accountRepo.GetByIDForUpdate(ctx, dbTx, *policy.TreasuryID)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("lock treasury: %w", err))
		}
		if treasury == nil {
			return apperror.ErrTreasuryNotSet()
		}
		if err := s.accountRepo.UpdateBalances(ctx, dbTx, treasury.ID,
			treasury.FreeBalance+result.Penalty, treasury.ReservedBalance); err != nil {
			return apperror.InternalError(fmt.Errorf("credit treasury: %w", err))
		}
	}
	// PenaltyRouteBurn, or treasury route without a treasury: the deducted
	// amount simply leaves the ledger.
	return nil
}

// resolveDepositID maps a nil DepositID to the caller's single open deposit.
func (s *DepositServiceImpl) resolveDepositID(ctx context.Context, req ports.CloseDepositRequest) (uuid.UUID, error) {
	if req.DepositID != nil {
		return *req.DepositID, nil
	}
	deposits, err := s.depositRepo.ListByOwner(ctx, req.OwnerID)
	if err != nil {
		return uuid.Nil, apperror.InternalError(fmt.Errorf("list deposits: %w", err))
	}
	switch len(deposits) {
	case 0:
		return uuid.Nil, apperror.ErrDepositNotFound()
	case 1:
		return deposits[0].ID, nil
	default:
		return uuid.Nil, apperror.ErrAmbiguousDeposit()
	}
}

// List returns the caller's open deposits.
func (s *DepositServiceImpl) List(ctx context.Context, ownerID uuid.UUID) ([]domain.FixedDeposit, error) {
	deposits, err := s.depositRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list deposits: %w", err))
	}
	return deposits, nil
}
