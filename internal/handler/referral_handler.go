package handler

import (
	"net/http"

	"viewearn/internal/middleware"
	"viewearn/internal/service"

	"github.com/gin-gonic/gin"
)

type ReferralHandler struct {
	svc *service.ReferralService
}

func NewReferralHandler(svc *service.ReferralService) *ReferralHandler {
	return &ReferralHandler{svc: svc}
}

// GetMyReferralCode returns the authenticated user's referral code, creating one if it doesn't exist yet.
// GET /me/referral-code
func (h *ReferralHandler) GetMyReferralCode(c *gin.Context) {
	rc, err := h.svc.MyCode(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":       rc.Code,
		"is_active":  rc.IsActive,
		"created_at": rc.CreatedAt,
	})
}

// GetMyReferrals lists users who joined with the caller's code.
// GET /me/referrals
func (h *ReferralHandler) GetMyReferrals(c *gin.Context) {
	limit, offset := parseLimitOffset(c)
	referrals, err := h.svc.MyReferrals(c.Request.Context(), middleware.GetUserID(c), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"referrals": referrals, "total": len(referrals)})
}

// Redeem records that the caller joined with someone's code.
// POST /me/referral
func (h *ReferralHandler) Redeem(c *gin.Context) {
	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ref, err := h.svc.ProcessReferralCode(c.Request.Context(), req.Code, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ref)
}
