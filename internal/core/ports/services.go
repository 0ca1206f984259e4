package ports

import (
	"context"
	"time"

	"fixed-deposit-bank/internal/core/domain"

	"github.com/google/uuid"
)

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(accountID uuid.UUID, username string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	AccountID uuid.UUID
	Username  string
}

// --- Service Ports (Business Logic) ---

// AuthService defines authentication business logic.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*domain.Account, error)
	Login(ctx context.Context, username, password string) (string, time.Time, error) // token, expiry, error
}

// RegisterRequest holds input for account registration.
type RegisterRequest struct {
	Username string
	Password string
}

// AccountService defines balance queries and the external on-ramp credit.
type AccountService interface {
	GetBalance(ctx context.Context, accountID uuid.UUID) (*BalanceView, error)
	Topup(ctx context.Context, accountID uuid.UUID, amount int64) (*BalanceView, error)
}

// BalanceView is the free/reserved/total triple reported to clients.
type BalanceView struct {
	Free     int64
	Reserved int64
	Total    int64
}

// PolicyService defines the rate registry and treasury operations.
// Setters require a privileged caller.
type PolicyService interface {
	GetPolicy(ctx context.Context) (*domain.BankPolicy, error)
	SetInterestRate(ctx context.Context, caller Caller, bps int64) error
	SetPenaltyRate(ctx context.Context, caller Caller, bps int64) error
	SetTreasury(ctx context.Context, caller Caller, treasuryID uuid.UUID) error
	FundTreasury(ctx context.Context, caller Caller, amount int64) error
}

// Caller identifies the authenticated account invoking an operation.
type Caller struct {
	AccountID uuid.UUID
	Username  string
}

// DepositService is the fixed-deposit lifecycle engine.
type DepositService interface {
	Open(ctx context.Context, req OpenDepositRequest) (*domain.FixedDeposit, error)
	Close(ctx context.Context, req CloseDepositRequest) (*CloseDepositResult, error)
	List(ctx context.Context, ownerID uuid.UUID) ([]domain.FixedDeposit, error)
}

// OpenDepositRequest holds validated input for opening a fixed deposit.
type OpenDepositRequest struct {
	OwnerID        uuid.UUID
	Amount         int64
	MaturityBlocks int64
}

// CloseDepositRequest holds input for closing a fixed deposit.
// DepositID nil resolves the caller's single open deposit.
type CloseDepositRequest struct {
	OwnerID   uuid.UUID
	DepositID *uuid.UUID
}

// CloseDepositResult reports the settled amounts of a closure.
type CloseDepositResult struct {
	DepositID uuid.UUID
	Principal int64
	Mature    bool
	Interest  int64 // paid from treasury; zero when premature
	Penalty   int64 // deducted from principal; zero when mature
	Payout    int64 // net credit to the owner's free balance
	Block     int64
}

// MembershipService defines the membership lock/unlock operations.
type MembershipService interface {
	Lock(ctx context.Context, accountID uuid.UUID, amount int64) (*domain.MembershipLock, error)
	Unlock(ctx context.Context, accountID uuid.UUID) (*domain.MembershipLock, error)
	Get(ctx context.Context, accountID uuid.UUID) (*domain.MembershipLock, error)
}
