package dto

// RegisterRequest is the request body for account registration.
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

// LoginRequest is the request body for account login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterResponse is the response body for successful registration.
type RegisterResponse struct {
	AccountID string `json:"account_id"`
	Username  string `json:"username"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// TopupRequest is the request body for an account credit.
type TopupRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

// BalanceResponse is the response for a balance query.
type BalanceResponse struct {
	Free     int64 `json:"free"`
	Reserved int64 `json:"reserved"`
	Total    int64 `json:"total"`
}

// OpenDepositRequest is the request body for opening a fixed deposit.
type OpenDepositRequest struct {
	Amount         int64 `json:"amount" binding:"required,gt=0"`
	MaturityBlocks int64 `json:"maturity_blocks" binding:"required,gt=0"`
}

// CloseDepositRequest is the request body for closing a fixed deposit.
// DepositID may be omitted when the caller has exactly one open deposit.
type CloseDepositRequest struct {
	DepositID *string `json:"deposit_id,omitempty"`
}

// DepositResponse is the response body for a fixed deposit.
type DepositResponse struct {
	ID             string `json:"id"`
	Principal      int64  `json:"principal"`
	OpenedAtBlock  int64  `json:"opened_at_block"`
	MaturityBlocks int64  `json:"maturity_blocks"`
	MaturesAtBlock int64  `json:"matures_at_block"`
	CreatedAt      string `json:"created_at"`
}

// CloseDepositResponse is the response body for a deposit settlement.
type CloseDepositResponse struct {
	DepositID string `json:"deposit_id"`
	Principal int64  `json:"principal"`
	Mature    bool   `json:"mature"`
	Interest  int64  `json:"interest"`
	Penalty   int64  `json:"penalty"`
	Payout    int64  `json:"payout"`
	Block     int64  `json:"block"`
}

// LockRequest is the request body for creating a membership lock.
type LockRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

// LockResponse is the response body for a membership lock.
type LockResponse struct {
	AccountID     string `json:"account_id"`
	Amount        int64  `json:"amount"`
	LockedAtBlock int64  `json:"locked_at_block"`
}

// PolicyResponse is the response body for the policy query.
type PolicyResponse struct {
	InterestRateBps int64   `json:"interest_rate_bps"`
	PenaltyRateBps  int64   `json:"penalty_rate_bps"`
	TreasuryID      *string `json:"treasury_id,omitempty"`
}

// SetRateRequest is the request body for the rate setters.
type SetRateRequest struct {
	Bps int64 `json:"bps" binding:"min=0"`
}

// SetTreasuryRequest is the request body for pointing the treasury at an
// account.
type SetTreasuryRequest struct {
	AccountID string `json:"account_id" binding:"required,uuid"`
}

// FundTreasuryRequest is the request body for funding the treasury.
type FundTreasuryRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}
