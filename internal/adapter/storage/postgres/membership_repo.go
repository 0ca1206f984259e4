package postgres

import (
	"context"
	"errors"
	"fmt"

	"fixed-deposit-bank/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// MembershipLockRepo implements ports.MembershipLockRepository. The table
// is keyed by account id, which enforces one lock per account.
type MembershipLockRepo struct {
	pool Pool
}

// NewMembershipLockRepo creates a new MembershipLockRepo.
func NewMembershipLockRepo(pool Pool) *MembershipLockRepo {
	return &MembershipLockRepo{pool: pool}
}

// Create inserts a new membership lock within a transaction.
func (r *MembershipLockRepo) Create(ctx context.Context, tx pgx.Tx, l *domain.MembershipLock) error {
	query := `INSERT INTO membership_locks (account_id, amount, locked_at_block, created_at)
		VALUES ($1, $2, $3, $4)`

	_, err := tx.Exec(ctx, query, l.AccountID, l.Amount, l.LockedAtBlock, l.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert membership lock: %w", err)
	}
	return nil
}

// GetByAccountID fetches an account's lock (without locking).
func (r *MembershipLockRepo) GetByAccountID(ctx context.Context, accountID uuid.UUID) (*domain.MembershipLock, error) {
	query := `SELECT account_id, amount, locked_at_block, created_at
		FROM membership_locks WHERE account_id = $1`

	l := &domain.MembershipLock{}
	err := r.pool.QueryRow(ctx, query, accountID).Scan(
		&l.AccountID, &l.Amount, &l.LockedAtBlock, &l.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get membership lock: %w", err)
	}
	return l, nil
}

// GetByAccountIDForUpdate fetches an account's lock with pessimistic locking.
// This MUST be called within a transaction.
func (r *MembershipLockRepo) GetByAccountIDForUpdate(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (*domain.MembershipLock, error) {
	query := `SELECT account_id, amount, locked_at_block, created_at
		FROM membership_locks WHERE account_id = $1 FOR UPDATE`

	l := &domain.MembershipLock{}
	err := tx.QueryRow(ctx, query, accountID).Scan(
		&l.AccountID, &l.Amount, &l.LockedAtBlock, &l.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get membership lock for update: %w", err)
	}
	return l, nil
}

// Delete removes an account's lock within a transaction.
func (r *MembershipLockRepo) Delete(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) error {
	query := `DELETE FROM membership_locks WHERE account_id = $1`

	tag, err := tx.Exec(ctx, query, accountID)
	if err != nil {
		return fmt.Errorf("delete membership lock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("membership lock not found: %s", accountID)
	}
	return nil
}
