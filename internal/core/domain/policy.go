package domain

import (
	"time"

	"github.com/google/uuid"
)

// BankPolicy is the singleton rate registry plus the treasury pointer.
// Rates are basis points and are read at close time, never snapshotted
// per deposit: two identical deposits closed under different rates pay out
// differently, and that is intended.
type BankPolicy struct {
	InterestRateBps int64      `json:"interest_rate_bps"`
	PenaltyRateBps  int64      `json:"penalty_rate_bps"`
	TreasuryID      *uuid.UUID `json:"treasury_id,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// HasTreasury reports whether a treasury account has been configured.
func (p *BankPolicy) HasTreasury() bool {
	return p.TreasuryID != nil
}

// ValidInterestRate reports whether bps is an acceptable interest rate.
func ValidInterestRate(bps int64) bool {
	return bps >= 0
}

// ValidPenaltyRate reports whether bps is inside the permitted penalty band.
func ValidPenaltyRate(bps int64) bool {
	return bps >= MinPenaltyRateBps && bps <= MaxPenaltyRateBps
}
