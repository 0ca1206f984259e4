package domain

import (
	"time"

	"github.com/google/uuid"
)

// RateScale is the divisor for basis-point rates: 1 bp = 0.01%.
const RateScale = 10_000

// Penalty rate band for premature closure, in basis points [0.5%, 1%].
const (
	MinPenaltyRateBps = 50
	MaxPenaltyRateBps = 100
)

// FixedDeposit is one open vault: principal reserved at opened_at_block for
// maturity_blocks. Closed deposits are deleted; history lives in the event journal.
type FixedDeposit struct {
	ID             uuid.UUID `json:"id"`
	OwnerID        uuid.UUID `json:"owner_id"`
	Principal      int64     `json:"principal"`
	OpenedAtBlock  int64     `json:"opened_at_block"`
	MaturityBlocks int64     `json:"maturity_blocks"`
	CreatedAt      time.Time `json:"created_at"`
}

// IsMature reports whether the deposit has reached maturity at the given block.
func (d *FixedDeposit) IsMature(block int64) bool {
	return block-d.OpenedAtBlock >= d.MaturityBlocks
}

// MaturesAtBlock returns the first block at which the deposit is mature.
func (d *FixedDeposit) MaturesAtBlock() int64 {
	return d.OpenedAtBlock + d.MaturityBlocks
}

// InterestAt computes the interest payout for the given rate in basis points.
// Floor division: fractional units are kept by the treasury.
func (d *FixedDeposit) InterestAt(rateBps int64) int64 {
	return d.Principal * rateBps / RateScale
}

// PenaltyAt computes the premature-closure penalty for the given rate in
// basis points. Floor division: fractional units stay with the owner.
func (d *FixedDeposit) PenaltyAt(rateBps int64) int64 {
	return d.Principal * rateBps / RateScale
}
