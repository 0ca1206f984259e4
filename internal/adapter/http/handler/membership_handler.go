package handler

import (
	"fixed-deposit-bank/internal/adapter/http/dto"
	"fixed-deposit-bank/internal/core/domain"
	"fixed-deposit-bank/internal/core/ports"
	"fixed-deposit-bank/pkg/apperror"
	"fixed-deposit-bank/pkg/response"

	"github.com/gin-gonic/gin"
)

// MembershipHandler handles membership lock endpoints.
type MembershipHandler struct {
	membershipSvc ports.MembershipService
}

// NewMembershipHandler creates a new MembershipHandler.
func NewMembershipHandler(membershipSvc ports.MembershipService) *MembershipHandler {
	return &MembershipHandler{membershipSvc: membershipSvc}
}

// Lock handles POST /api/v1/membership/lock.
func (h *MembershipHandler) Lock(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.LockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	lock, err := h.membershipSvc.Lock(c.Request.Context(), caller.AccountID, req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toLockResponse(lock))
}

// Unlock handles POST /api/v1/membership/unlock.
func (h *MembershipHandler) Unlock(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	lock, err := h.membershipSvc.Unlock(c.Request.Context(), caller.AccountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toLockResponse(lock))
}

// Get handles GET /api/v1/membership.
func (h *MembershipHandler) Get(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	lock, err := h.membershipSvc.Get(c.Request.Context(), caller.AccountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toLockResponse(lock))
}

func toLockResponse(l *domain.MembershipLock) dto.LockResponse {
	return dto.LockResponse{
		AccountID:     l.AccountID.String(),
		Amount:        l.Amount,
		LockedAtBlock: l.LockedAtBlock,
	}
}
