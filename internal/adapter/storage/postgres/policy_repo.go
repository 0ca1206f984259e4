package postgres

import (
	"context"
	"fmt"

	"fixed-deposit-bank/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PolicyRepo implements ports.PolicyRepository. The bank_policy table holds
// exactly one row, seeded by the schema migration.
type PolicyRepo struct {
	pool Pool
}

// NewPolicyRepo creates a new PolicyRepo.
func NewPolicyRepo(pool Pool) *PolicyRepo {
	return &PolicyRepo{pool: pool}
}

// Get reads the policy row (without locking).
func (r *PolicyRepo) Get(ctx context.Context) (*domain.BankPolicy, error) {
	query := `SELECT interest_rate_bps, penalty_rate_bps, treasury_id, updated_at
		FROM bank_policy WHERE singleton = TRUE`

	p := &domain.BankPolicy{}
	err := r.pool.QueryRow(ctx, query).Scan(
		&p.InterestRateBps, &p.PenaltyRateBps, &p.TreasuryID, &p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("get bank policy: %w", err)
	}
	return p, nil
}

// GetTx reads the policy row inside tx so a close observes the rate
// committed at close time.
func (r *PolicyRepo) GetTx(ctx context.Context, tx pgx.Tx) (*domain.BankPolicy, error) {
	query := `SELECT interest_rate_bps, penalty_rate_bps, treasury_id, updated_at
		FROM bank_policy WHERE singleton = TRUE`

	p := &domain.BankPolicy{}
	err := tx.QueryRow(ctx, query).Scan(
		&p.InterestRateBps, &p.PenaltyRateBps, &p.TreasuryID, &p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("get bank policy in tx: %w", err)
	}
	return p, nil
}

// SetInterestRate replaces the interest rate within a transaction.
func (r *PolicyRepo) SetInterestRate(ctx context.Context, tx pgx.Tx, bps int64) error {
	query := `UPDATE bank_policy SET interest_rate_bps = $1, updated_at = NOW() WHERE singleton = TRUE`

	if _, err := tx.Exec(ctx, query, bps); err != nil {
		return fmt.Errorf("set interest rate: %w", err)
	}
	return nil
}

// SetPenaltyRate replaces the penalty rate within a transaction.
func (r *PolicyRepo) SetPenaltyRate(ctx context.Context, tx pgx.Tx, bps int64) error {
	query := `UPDATE bank_policy SET penalty_rate_bps = $1, updated_at = NOW() WHERE singleton = TRUE`

	if _, err := tx.Exec(ctx, query, bps); err != nil {
		return fmt.Errorf("set penalty rate: %w", err)
	}
	return nil
}

// SetTreasury replaces the treasury account pointer within a transaction.
func (r *PolicyRepo) SetTreasury(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) error {
	query := `UPDATE bank_policy SET treasury_id = $1, updated_at = NOW() WHERE singleton = TRUE`

	if _, err := tx.Exec(ctx, query, accountID); err != nil {
		return fmt.Errorf("set treasury: %w", err)
	}
	return nil
}
