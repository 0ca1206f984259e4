package domain

import (
	"time"

	"github.com/google/uuid"
)

// MembershipLock is a pure balance reservation granting membership status.
// One lock per account; no interest, no penalty, released in full.
type MembershipLock struct {
	AccountID     uuid.UUID `json:"account_id"`
	Amount        int64     `json:"amount"`
	LockedAtBlock int64     `json:"locked_at_block"`
	CreatedAt     time.Time `json:"created_at"`
}
