package handler

import (
	"net/http"

	"viewearn/internal/middleware"
	"viewearn/internal/service"

	"github.com/gin-gonic/gin"
)

type StreakHandler struct {
	ledger *service.LedgerService
}

func NewStreakHandler(ledger *service.LedgerService) *StreakHandler {
	return &StreakHandler{ledger: ledger}
}

func (h *StreakHandler) Get(c *gin.Context) {
	st, err := h.ledger.Streak(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// CheckIn handles POST /me/streak/check-in.
func (h *StreakHandler) CheckIn(c *gin.Context) {
	res, err := h.ledger.CheckIn(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
