package postgres

import (
	"context"
	"errors"
	"fmt"

	"fixed-deposit-bank/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DepositRepo implements ports.DepositRepository.
type DepositRepo struct {
	pool Pool
}

// NewDepositRepo creates a new DepositRepo.
func NewDepositRepo(pool Pool) *DepositRepo {
	return &DepositRepo{pool: pool}
}

// Create inserts a new fixed deposit within a transaction.
func (r *DepositRepo) Create(ctx context.Context, tx pgx.Tx, d *domain.FixedDeposit) error {
	query := `INSERT INTO deposits (id, owner_id, principal, opened_at_block, maturity_blocks, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := tx.Exec(ctx, query,
		d.ID, d.OwnerID, d.Principal, d.OpenedAtBlock, d.MaturityBlocks, d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert deposit: %w", err)
	}
	return nil
}

// GetByID fetches a deposit by its UUID (without locking).
func (r *DepositRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.FixedDeposit, error) {
	query := `SELECT id, owner_id, principal, opened_at_block, maturity_blocks, created_at
		FROM deposits WHERE id = $1`

	d := &domain.FixedDeposit{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&d.ID, &d.OwnerID, &d.Principal, &d.OpenedAtBlock, &d.MaturityBlocks, &d.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get deposit by id: %w", err)
	}
	return d, nil
}

// GetByIDForUpdate fetches a deposit by ID with pessimistic locking.
// This MUST be called within a transaction.
func (r *DepositRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.FixedDeposit, error) {
	query := `SELECT id, owner_id, principal, opened_at_block, maturity_blocks, created_at
		FROM deposits WHERE id = $1 FOR UPDATE`

	d := &domain.FixedDeposit{}
	err := tx.QueryRow(ctx, query, id).Scan(
		&d.ID, &d.OwnerID, &d.Principal, &d.OpenedAtBlock, &d.MaturityBlocks, &d.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get deposit for update: %w", err)
	}
	return d, nil
}

// ListByOwner fetches all open deposits for an owner, oldest first.
func (r *DepositRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.FixedDeposit, error) {
	query := `SELECT id, owner_id, principal, opened_at_block, maturity_blocks, created_at
		FROM deposits WHERE owner_id = $1 ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list deposits by owner: %w", err)
	}
	defer rows.Close()

	var deposits []domain.FixedDeposit
	for rows.Next() {
		var d domain.FixedDeposit
		if err := rows.Scan(&d.ID, &d.OwnerID, &d.Principal, &d.OpenedAtBlock, &d.MaturityBlocks, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan deposit: %w", err)
		}
		deposits = append(deposits, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deposits: %w", err)
	}
	return deposits, nil
}

// CountByOwner counts an owner's open deposits. This MUST be called within a
// transaction holding the owner's account row lock.
func (r *DepositRepo) CountByOwner(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM deposits WHERE owner_id = $1`

	var count int64
	if err := tx.QueryRow(ctx, query, ownerID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count deposits by owner: %w", err)
	}
	return count, nil
}

// Delete removes a settled deposit within a transaction.
func (r *DepositRepo) Delete(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	query := `DELETE FROM deposits WHERE id = $1`

	tag, err := tx.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete deposit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("deposit not found: %s", id)
	}
	return nil
}
