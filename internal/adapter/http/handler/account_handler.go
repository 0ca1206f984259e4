package handler

import (
	"fixed-deposit-bank/internal/adapter/http/dto"
	"fixed-deposit-bank/internal/core/ports"
	"fixed-deposit-bank/pkg/apperror"
	"fixed-deposit-bank/pkg/response"

	"github.com/gin-gonic/gin"
)

// AccountHandler handles balance endpoints.
type AccountHandler struct {
	accountSvc ports.AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountSvc ports.AccountService) *AccountHandler {
	return &AccountHandler{accountSvc: accountSvc}
}

// GetBalance handles GET /api/v1/accounts/balance.
func (h *AccountHandler) GetBalance(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	view, err := h.accountSvc.GetBalance(c.Request.Context(), caller.AccountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.BalanceResponse{
		Free:     view.Free,
		Reserved: view.Reserved,
		Total:    view.Total,
	})
}

// Topup handles POST /api/v1/accounts/topup.
func (h *AccountHandler) Topup(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.TopupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	view, err := h.accountSvc.Topup(c.Request.Context(), caller.AccountID, req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.BalanceResponse{
		Free:     view.Free,
		Reserved: view.Reserved,
		Total:    view.Total,
	})
}
