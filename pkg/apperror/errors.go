package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Authentication (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid credentials", http.StatusUnauthorized)
}

func ErrUsernameExists() *AppError {
	return New("AUTH_002", "Username already exists", http.StatusConflict)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_003", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrUsernameReserved() *AppError {
	return New("AUTH_004", "Username is reserved", http.StatusConflict)
}

// ---- Administration (ADM) ----

func ErrUnauthorized() *AppError {
	return New("ADM_001", "Caller is not privileged for this operation", http.StatusForbidden)
}

func ErrInvalidRate(reason string) *AppError {
	return New("ADM_002", fmt.Sprintf("Invalid rate: %s", reason), http.StatusBadRequest)
}

// ---- Balances (BAL) ----

func ErrInsufficientBalance() *AppError {
	return New("BAL_001", "Insufficient free balance", http.StatusPaymentRequired)
}

func ErrInvalidAmount() *AppError {
	return New("BAL_002", "Invalid amount", http.StatusBadRequest)
}

func ErrAccountNotFound() *AppError {
	return New("BAL_003", "Account not found", http.StatusNotFound)
}

// ---- Fixed deposits (FD) ----

func ErrDuplicateDeposit() *AppError {
	return New("FD_001", "An open fixed deposit already exists for this account", http.StatusConflict)
}

func ErrDepositNotFound() *AppError {
	return New("FD_002", "No such fixed deposit", http.StatusNotFound)
}

func ErrInvalidMaturityPeriod() *AppError {
	return New("FD_003", "Maturity period outside the permitted range", http.StatusBadRequest)
}

func ErrAmbiguousDeposit() *AppError {
	return New("FD_004", "Multiple open deposits; a deposit id is required", http.StatusBadRequest)
}

// ---- Membership locks (LCK) ----

func ErrAlreadyLocked() *AppError {
	return New("LCK_001", "A membership lock already exists for this account", http.StatusConflict)
}

func ErrLockNotFound() *AppError {
	return New("LCK_002", "No such membership lock", http.StatusNotFound)
}

// ---- Treasury (TRS) ----

func ErrTreasuryNotSet() *AppError {
	return New("TRS_001", "Treasury account is not configured", http.StatusConflict)
}

// ErrTreasuryInsufficient is retryable: the same close succeeds once the
// treasury is funded. 503 lets clients tell it apart from permanent errors.
func ErrTreasuryInsufficient() *AppError {
	return New("TRS_002", "Treasury balance cannot cover the interest payout", http.StatusServiceUnavailable)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a BAL_002-style validation error with a custom message.
func Validation(message string) *AppError {
	return New("BAL_002", message, http.StatusBadRequest)
}
