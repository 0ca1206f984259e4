package integration

import (
	"context"
	"fmt"
	"sync"

	"fixed-deposit-bank/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- In-Memory Account Repo ---

type inMemoryAccountRepo struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]*domain.Account
}

func newInMemoryAccountRepo() *inMemoryAccountRepo {
	return &inMemoryAccountRepo{accounts: make(map[uuid.UUID]*domain.Account)}
}

func (r *inMemoryAccountRepo) Create(ctx context.Context, a *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.accounts {
		if existing.Username == a.Username {
			return fmt.Errorf("username already exists")
		}
	}
	cp := *a
	r.accounts[a.ID] = &cp
	return nil
}

func (r *inMemoryAccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *inMemoryAccountRepo) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.accounts {
		if a.Username == username {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryAccountRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Account, error) {
	if ltx, ok := tx.(*lockingTx); ok {
		ltx.lockRow(id)
	}
	return r.GetByID(ctx, id)
}

func (r *inMemoryAccountRepo) UpdateBalances(ctx context.Context, tx pgx.Tx, id uuid.UUID, free, reserved int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return fmt.Errorf("account not found")
	}
	a.FreeBalance = free
	a.ReservedBalance = reserved
	return nil
}

// --- In-Memory Deposit Repo ---

type inMemoryDepositRepo struct {
	mu       sync.RWMutex
	deposits map[uuid.UUID]*domain.FixedDeposit
}

func newInMemoryDepositRepo() *inMemoryDepositRepo {
	return &inMemoryDepositRepo{deposits: make(map[uuid.UUID]*domain.FixedDeposit)}
}

func (r *inMemoryDepositRepo) Create(ctx context.Context, tx pgx.Tx, d *domain.FixedDeposit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *d
	r.deposits[d.ID] = &cp
	return nil
}

func (r *inMemoryDepositRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.FixedDeposit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.deposits[id]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (r *inMemoryDepositRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.FixedDeposit, error) {
	return r.GetByID(ctx, id)
}

func (r *inMemoryDepositRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.FixedDeposit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.FixedDeposit
	for _, d := range r.deposits {
		if d.OwnerID == ownerID {
			result = append(result, *d)
		}
	}
	return result, nil
}

func (r *inMemoryDepositRepo) CountByOwner(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var count int64
	for _, d := range r.deposits {
		if d.OwnerID == ownerID {
			count++
		}
	}
	return count, nil
}

func (r *inMemoryDepositRepo) Delete(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.deposits[id]; !ok {
		return fmt.Errorf("deposit not found")
	}
	delete(r.deposits, id)
	return nil
}

// --- In-Memory Membership Lock Repo ---

type inMemoryLockRepo struct {
	mu    sync.RWMutex
	locks map[uuid.UUID]*domain.MembershipLock
}

func newInMemoryLockRepo() *inMemoryLockRepo {
	return &inMemoryLockRepo{locks: make(map[uuid.UUID]*domain.MembershipLock)}
}

func (r *inMemoryLockRepo) Create(ctx context.Context, tx pgx.Tx, l *domain.MembershipLock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.locks[l.AccountID]; ok {
		return fmt.Errorf("lock already exists")
	}
	cp := *l
	r.locks[l.AccountID] = &cp
	return nil
}

func (r *inMemoryLockRepo) GetByAccountID(ctx context.Context, accountID uuid.UUID) (*domain.MembershipLock, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.locks[accountID]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (r *inMemoryLockRepo) GetByAccountIDForUpdate(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (*domain.MembershipLock, error) {
	return r.GetByAccountID(ctx, accountID)
}

func (r *inMemoryLockRepo) Delete(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.locks[accountID]; !ok {
		return fmt.Errorf("lock not found")
	}
	delete(r.locks, accountID)
	return nil
}

// --- In-Memory Policy Repo ---

type inMemoryPolicyRepo struct {
	mu     sync.RWMutex
	policy domain.BankPolicy
}

func newInMemoryPolicyRepo() *inMemoryPolicyRepo {
	// Matches the seeded singleton row: zero interest, lowest legal penalty.
	return &inMemoryPolicyRepo{policy: domain.BankPolicy{PenaltyRateBps: 50}}
}

func (r *inMemoryPolicyRepo) Get(ctx context.Context) (*domain.BankPolicy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cp := r.policy
	return &cp, nil
}

func (r *inMemoryPolicyRepo) GetTx(ctx context.Context, tx pgx.Tx) (*domain.BankPolicy, error) {
	return r.Get(ctx)
}

func (r *inMemoryPolicyRepo) SetInterestRate(ctx context.Context, tx pgx.Tx, bps int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policy.InterestRateBps = bps
	return nil
}

func (r *inMemoryPolicyRepo) SetPenaltyRate(ctx context.Context, tx pgx.Tx, bps int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policy.PenaltyRateBps = bps
	return nil
}

func (r *inMemoryPolicyRepo) SetTreasury(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := accountID
	r.policy.TreasuryID = &id
	return nil
}

// --- In-Memory Event Repo ---

type inMemoryEventRepo struct {
	mu     sync.RWMutex
	events []domain.LedgerEvent
}

func newInMemoryEventRepo() *inMemoryEventRepo {
	return &inMemoryEventRepo{}
}

func (r *inMemoryEventRepo) Create(ctx context.Context, tx pgx.Tx, e *domain.LedgerEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *e)
	return nil
}

func (r *inMemoryEventRepo) ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.LedgerEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.LedgerEvent
	for i := len(r.events) - 1; i >= 0 && len(result) < limit; i-- {
		e := r.events[i]
		if e.AccountID == accountID || (e.CounterpartyID != nil && *e.CounterpartyID == accountID) {
			result = append(result, e)
		}
	}
	return result, nil
}

// kinds returns the event kinds journaled so far, oldest first.
func (r *inMemoryEventRepo) kinds() []domain.EventKind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.EventKind, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

// --- In-Memory Transactor ---

// inMemoryTransactor hands out lockingTx transactions sharing one row-lock
// table, so GetByIDForUpdate serializes concurrent services on the same
// account the way a FOR UPDATE row lock does.
type inMemoryTransactor struct {
	mu       sync.Mutex
	rowLocks map[uuid.UUID]*sync.Mutex
}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{rowLocks: make(map[uuid.UUID]*sync.Mutex)}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &lockingTx{transactor: t, held: make(map[uuid.UUID]*sync.Mutex)}, nil
}

func (t *inMemoryTransactor) rowLock(id uuid.UUID) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.rowLocks[id]
	if !ok {
		l = &sync.Mutex{}
		t.rowLocks[id] = l
	}
	return l
}

// lockingTx holds per-row locks from GetByIDForUpdate until Commit or
// Rollback. Re-locking a row already held is a no-op, matching re-selecting a
// row FOR UPDATE within one transaction.
type lockingTx struct {
	noopTx
	transactor *inMemoryTransactor
	mu         sync.Mutex
	held       map[uuid.UUID]*sync.Mutex
	done       bool
}

func (t *lockingTx) lockRow(id uuid.UUID) {
	t.mu.Lock()
	if _, ok := t.held[id]; ok {
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()

	l := t.transactor.rowLock(id)
	l.Lock()

	t.mu.Lock()
	t.held[id] = l
	t.mu.Unlock()
}

func (t *lockingTx) release() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return
	}
	t.done = true
	for _, l := range t.held {
		l.Unlock()
	}
	t.held = nil
}

func (t *lockingTx) Commit(ctx context.Context) error {
	t.release()
	return nil
}

func (t *lockingTx) Rollback(ctx context.Context) error {
	t.release()
	return nil
}

// noopTx is a no-op pgx.Tx implementation for in-memory testing.
type noopTx struct{}

func (t *noopTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *noopTx) Commit(ctx context.Context) error          { return nil }
func (t *noopTx) Rollback(ctx context.Context) error        { return nil }
func (t *noopTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *noopTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *noopTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *noopTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *noopTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *noopTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *noopTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *noopTx) Conn() *pgx.Conn { return nil }

// --- Manual Block Clock ---

// manualClock is a block clock advanced explicitly by the test.
type manualClock struct {
	mu     sync.Mutex
	height int64
}

func (c *manualClock) Current(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.height, nil
}

func (c *manualClock) advance(blocks int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.height += blocks
}

func (c *manualClock) set(height int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.height = height
}
