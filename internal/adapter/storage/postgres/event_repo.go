package postgres

import (
	"context"
	"fmt"

	"fixed-deposit-bank/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// EventRepo implements ports.EventRepository. Rows are append-only.
type EventRepo struct {
	pool Pool
}

// NewEventRepo creates a new EventRepo.
func NewEventRepo(pool Pool) *EventRepo {
	return &EventRepo{pool: pool}
}

// Create appends a journal row within a transaction.
func (r *EventRepo) Create(ctx context.Context, tx pgx.Tx, e *domain.LedgerEvent) error {
	query := `INSERT INTO ledger_events (id, kind, account_id, counterparty_id, amount, block, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := tx.Exec(ctx, query,
		e.ID, e.Kind, e.AccountID, e.CounterpartyID, e.Amount, e.Block, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ledger event: %w", err)
	}
	return nil
}

// ListByAccount fetches an account's journal rows, newest first.
func (r *EventRepo) ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.LedgerEvent, error) {
	query := `SELECT id, kind, account_id, counterparty_id, amount, block, created_at
		FROM ledger_events WHERE account_id = $1 OR counterparty_id = $1
		ORDER BY created_at DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("list ledger events: %w", err)
	}
	defer rows.Close()

	var events []domain.LedgerEvent
	for rows.Next() {
		var e domain.LedgerEvent
		if err := rows.Scan(&e.ID, &e.Kind, &e.AccountID, &e.CounterpartyID, &e.Amount, &e.Block, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger events: %w", err)
	}
	return events, nil
}
