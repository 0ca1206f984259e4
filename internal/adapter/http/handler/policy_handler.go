package handler

import (
	"fixed-deposit-bank/internal/adapter/http/dto"
	"fixed-deposit-bank/internal/core/domain"
	"fixed-deposit-bank/internal/core/ports"
	"fixed-deposit-bank/pkg/apperror"
	"fixed-deposit-bank/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PolicyHandler handles rate registry and treasury endpoints.
type PolicyHandler struct {
	policySvc ports.PolicyService
}

// NewPolicyHandler creates a new PolicyHandler.
func NewPolicyHandler(policySvc ports.PolicyService) *PolicyHandler {
	return &PolicyHandler{policySvc: policySvc}
}

// GetPolicy handles GET /api/v1/policy.
func (h *PolicyHandler) GetPolicy(c *gin.Context) {
	policy, err := h.policySvc.GetPolicy(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toPolicyResponse(policy))
}

// SetInterestRate handles PUT /api/v1/admin/policy/interest-rate.
func (h *PolicyHandler) SetInterestRate(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.SetRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	if err := h.policySvc.SetInterestRate(c.Request.Context(), caller, req.Bps); err != nil {
		response.Error(c, err)
		return
	}

	h.respondWithPolicy(c)
}

// SetPenaltyRate handles PUT /api/v1/admin/policy/penalty-rate.
func (h *PolicyHandler) SetPenaltyRate(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.SetRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	if err := h.policySvc.SetPenaltyRate(c.Request.Context(), caller, req.Bps); err != nil {
		response.Error(c, err)
		return
	}

	h.respondWithPolicy(c)
}

// SetTreasury handles PUT /api/v1/admin/policy/treasury.
func (h *PolicyHandler) SetTreasury(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.SetTreasuryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	treasuryID, err := uuid.Parse(req.AccountID)
	if err != nil {
		response.Error(c, apperror.Validation("account_id must be a valid UUID"))
		return
	}

	if err := h.policySvc.SetTreasury(c.Request.Context(), caller, treasuryID); err != nil {
		response.Error(c, err)
		return
	}

	h.respondWithPolicy(c)
}

// FundTreasury handles POST /api/v1/policy/treasury/fund. Any authenticated
// account may move its own free balance into the treasury.
func (h *PolicyHandler) FundTreasury(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.FundTreasuryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	if err := h.policySvc.FundTreasury(c.Request.Context(), caller, req.Amount); err != nil {
		response.Error(c, err)
		return
	}

	h.respondWithPolicy(c)
}

func (h *PolicyHandler) respondWithPolicy(c *gin.Context) {
	policy, err := h.policySvc.GetPolicy(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toPolicyResponse(policy))
}

func toPolicyResponse(p *domain.BankPolicy) dto.PolicyResponse {
	resp := dto.PolicyResponse{
		InterestRateBps: p.InterestRateBps,
		PenaltyRateBps:  p.PenaltyRateBps,
	}
	if p.TreasuryID != nil {
		id := p.TreasuryID.String()
		resp.TreasuryID = &id
	}
	return resp
}
