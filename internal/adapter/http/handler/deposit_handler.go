package handler

import (
	"time"

	"fixed-deposit-bank/internal/adapter/http/dto"
	"fixed-deposit-bank/internal/core/domain"
	"fixed-deposit-bank/internal/core/ports"
	"fixed-deposit-bank/pkg/apperror"
	"fixed-deposit-bank/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DepositHandler handles fixed-deposit endpoints.
type DepositHandler struct {
	depositSvc ports.DepositService
}

// NewDepositHandler creates a new DepositHandler.
func NewDepositHandler(depositSvc ports.DepositService) *DepositHandler {
	return &DepositHandler{depositSvc: depositSvc}
}

// Open handles POST /api/v1/deposits.
func (h *DepositHandler) Open(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.OpenDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	deposit, err := h.depositSvc.Open(c.Request.Context(), ports.OpenDepositRequest{
		OwnerID:        caller.AccountID,
		Amount:         req.Amount,
		MaturityBlocks: req.MaturityBlocks,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toDepositResponse(deposit))
}

// Close handles POST /api/v1/deposits/close.
func (h *DepositHandler) Close(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.CloseDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	var depositID *uuid.UUID
	if req.DepositID != nil {
		id, err := uuid.Parse(*req.DepositID)
		if err != nil {
			response.Error(c, apperror.Validation("invalid deposit_id"))
			return
		}
		depositID = &id
	}

	result, err := h.depositSvc.Close(c.Request.Context(), ports.CloseDepositRequest{
		OwnerID:   caller.AccountID,
		DepositID: depositID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.CloseDepositResponse{
		DepositID: result.DepositID.String(),
		Principal: result.Principal,
		Mature:    result.Mature,
		Interest:  result.Interest,
		Penalty:   result.Penalty,
		Payout:    result.Payout,
		Block:     result.Block,
	})
}

// List handles GET /api/v1/deposits.
func (h *DepositHandler) List(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	deposits, err := h.depositSvc.List(c.Request.Context(), caller.AccountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.DepositResponse, 0, len(deposits))
	for i := range deposits {
		out = append(out, toDepositResponse(&deposits[i]))
	}
	response.OK(c, out)
}

func toDepositResponse(d *domain.FixedDeposit) dto.DepositResponse {
	return dto.DepositResponse{
		ID:             d.ID.String(),
		Principal:      d.Principal,
		OpenedAtBlock:  d.OpenedAtBlock,
		MaturityBlocks: d.MaturityBlocks,
		MaturesAtBlock: d.MaturesAtBlock(),
		CreatedAt:      d.CreatedAt.Format(time.RFC3339),
	}
}
