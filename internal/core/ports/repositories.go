package ports

import (
	"context"

	"fixed-deposit-bank/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AccountRepository is the balance ledger: free/reserved bookkeeping per
// account. Methods accepting pgx.Tx are used inside transaction blocks for
// pessimistic locking.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Account, error)
	// UpdateBalances writes both balance columns atomically within tx.
	UpdateBalances(ctx context.Context, tx pgx.Tx, id uuid.UUID, free, reserved int64) error
}

// DepositRepository persists open fixed deposits, keyed by vault id with an
// owner index.
type DepositRepository interface {
	Create(ctx context.Context, tx pgx.Tx, deposit *domain.FixedDeposit) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.FixedDeposit, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.FixedDeposit, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.FixedDeposit, error)
	// CountByOwner runs inside tx so the count is taken under the owner's
	// row lock.
	CountByOwner(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID) (int64, error)
	Delete(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
}

// MembershipLockRepository persists membership locks, one per account.
type MembershipLockRepository interface {
	Create(ctx context.Context, tx pgx.Tx, lock *domain.MembershipLock) error
	GetByAccountID(ctx context.Context, accountID uuid.UUID) (*domain.MembershipLock, error)
	GetByAccountIDForUpdate(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (*domain.MembershipLock, error)
	Delete(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) error
}

// PolicyRepository persists the singleton rate registry / treasury row.
type PolicyRepository interface {
	Get(ctx context.Context) (*domain.BankPolicy, error)
	// GetTx reads the policy row inside tx so a close observes the rate
	// committed at close time.
	GetTx(ctx context.Context, tx pgx.Tx) (*domain.BankPolicy, error)
	SetInterestRate(ctx context.Context, tx pgx.Tx, bps int64) error
	SetPenaltyRate(ctx context.Context, tx pgx.Tx, bps int64) error
	SetTreasury(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) error
}

// EventRepository appends ledger event journal rows.
type EventRepository interface {
	Create(ctx context.Context, tx pgx.Tx, event *domain.LedgerEvent) error
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.LedgerEvent, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
