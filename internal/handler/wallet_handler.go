package handler

import (
	"net/http"
	"strconv"

	"viewearn/internal/domain"
	"viewearn/internal/middleware"
	"viewearn/internal/rules"
	"viewearn/internal/service"

	"github.com/gin-gonic/gin"
)

type WalletHandler struct {
	ledger *service.LedgerService
}

func NewWalletHandler(ledger *service.LedgerService) *WalletHandler {
	return &WalletHandler{ledger: ledger}
}

// GetWallet handles GET /me/wallet.
func (h *WalletHandler) GetWallet(c *gin.Context) {
	w, err := h.ledger.Wallet(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// Transactions handles GET /me/wallet/transactions (coin ledger).
func (h *WalletHandler) Transactions(c *gin.Context) {
	limit, offset := parseLimitOffset(c)
	list, err := h.ledger.CoinTransactions(c.Request.Context(), middleware.GetUserID(c), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": list})
}

// Earnings handles GET /me/earnings (currency ledger).
func (h *WalletHandler) Earnings(c *gin.Context) {
	limit, offset := parseLimitOffset(c)
	list, err := h.ledger.Earnings(c.Request.Context(), middleware.GetUserID(c), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"earnings": list})
}

// ConvertPreview handles GET /me/convert/preview?coins=N. It reads no state.
func (h *WalletHandler) ConvertPreview(c *gin.Context) {
	coins, err := strconv.ParseInt(c.Query("coins"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "coins must be an integer"})
		return
	}
	amount, used := rules.ConvertPreview(coins)
	c.JSON(http.StatusOK, gin.H{
		"coins_used":  used,
		"amount":      amount,
		"convertible": coins >= domain.MinConvertCoins,
	})
}

// Convert handles POST /me/convert.
func (h *WalletHandler) Convert(c *gin.Context) {
	var req struct {
		Coins int64 `json:"coins" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cv, err := h.ledger.ConvertCoins(c.Request.Context(), middleware.GetUserID(c), req.Coins)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cv)
}

func parseLimitOffset(c *gin.Context) (int, int) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
