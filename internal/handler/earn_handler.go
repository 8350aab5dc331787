package handler

import (
	"net/http"

	"viewearn/internal/middleware"
	"viewearn/internal/service"

	"github.com/gin-gonic/gin"
)

// EarnHandler receives view events from the player.
type EarnHandler struct {
	ledger *service.LedgerService
}

func NewEarnHandler(ledger *service.LedgerService) *EarnHandler {
	return &EarnHandler{ledger: ledger}
}

// VideoView handles POST /videos/:id/view. A same-day replay answers
// 200 with credited=false.
func (h *EarnHandler) VideoView(c *gin.Context) {
	videoID, ok := parseID(c, "id")
	if !ok {
		return
	}
	userID := middleware.GetUserID(c)
	credited, err := h.ledger.RecordVideoView(c.Request.Context(), userID, videoID)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := gin.H{"credited": credited}
	if credited {
		if w, err := h.ledger.Wallet(c.Request.Context(), userID); err == nil {
			resp["wallet"] = w
		}
	}
	c.JSON(http.StatusOK, resp)
}

// AdView handles POST /ads/:id/view.
func (h *EarnHandler) AdView(c *gin.Context) {
	adID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		VideoID uint `json:"video_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	credited, err := h.ledger.RecordAdView(c.Request.Context(), adID, req.VideoID, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"credited": credited})
}
