package handler

import (
	"net/http"

	"viewearn/internal/middleware"
	"viewearn/internal/service"

	"github.com/gin-gonic/gin"
)

type RewardHandler struct {
	ledger *service.LedgerService
}

func NewRewardHandler(ledger *service.LedgerService) *RewardHandler {
	return &RewardHandler{ledger: ledger}
}

// Catalog handles GET /rewards. Items the caller owns are flagged.
func (h *RewardHandler) Catalog(c *gin.Context) {
	ctx := c.Request.Context()
	rewards, err := h.ledger.Rewards(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	owned, err := h.ledger.OwnedRewards(ctx, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	have := make(map[uint]bool, len(owned))
	for _, ur := range owned {
		have[ur.RewardID] = true
	}
	out := make([]gin.H, 0, len(rewards))
	for _, r := range rewards {
		out = append(out, gin.H{
			"id":          r.ID,
			"name":        r.Name,
			"description": r.Description,
			"coin_price":  r.CoinPrice,
			"owned":       have[r.ID],
		})
	}
	c.JSON(http.StatusOK, gin.H{"rewards": out})
}

// Owned handles GET /me/rewards.
func (h *RewardHandler) Owned(c *gin.Context) {
	owned, err := h.ledger.OwnedRewards(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rewards": owned})
}

// Purchase handles POST /rewards/:id/purchase.
func (h *RewardHandler) Purchase(c *gin.Context) {
	rewardID, ok := parseID(c, "id")
	if !ok {
		return
	}
	p, err := h.ledger.PurchaseReward(c.Request.Context(), middleware.GetUserID(c), rewardID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}
