package domain

import (
	"time"

	"github.com/google/uuid"
)

// Account is a ledger account: identity plus free/reserved balance columns.
// Free is spendable; reserved is held by fixed deposits and membership locks.
type Account struct {
	ID              uuid.UUID `json:"id"`
	Username        string    `json:"username"`
	PasswordHash    string    `json:"-"` // Never expose
	FreeBalance     int64     `json:"free_balance"`
	ReservedBalance int64     `json:"reserved_balance"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TotalBalance returns free + reserved.
func (a *Account) TotalBalance() int64 {
	return a.FreeBalance + a.ReservedBalance
}

// CanReserve reports whether amount can be moved from free to reserved.
func (a *Account) CanReserve(amount int64) bool {
	return amount > 0 && a.FreeBalance >= amount
}
