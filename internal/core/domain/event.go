package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventKind labels a ledger event journal entry.
type EventKind string

const (
	EventDepositOpened   EventKind = "DEPOSIT_OPENED"
	EventDepositMatured  EventKind = "DEPOSIT_CLOSED_MATURE"
	EventDepositPenalty  EventKind = "DEPOSIT_CLOSED_PREMATURE"
	EventMembershipLock  EventKind = "MEMBERSHIP_LOCKED"
	EventMembershipFree  EventKind = "MEMBERSHIP_UNLOCKED"
	EventTreasuryFunded  EventKind = "TREASURY_FUNDED"
	EventTreasuryChanged EventKind = "TREASURY_CHANGED"
	EventRateChanged     EventKind = "RATE_CHANGED"
	EventTopup           EventKind = "TOPUP"
)

// LedgerEvent is an immutable journal row written in the same transaction
// as the state change it records.
type LedgerEvent struct {
	ID             uuid.UUID  `json:"id"`
	Kind           EventKind  `json:"kind"`
	AccountID      uuid.UUID  `json:"account_id"`
	CounterpartyID *uuid.UUID `json:"counterparty_id,omitempty"`
	Amount         int64      `json:"amount"`
	Block          int64      `json:"block"`
	CreatedAt      time.Time  `json:"created_at"`
}
