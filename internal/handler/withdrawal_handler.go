package handler

import (
	"net/http"
	"regexp"
	"strings"

	"viewearn/internal/middleware"
	"viewearn/internal/service"

	"github.com/gin-gonic/gin"
)

var (
	ifscPattern    = regexp.MustCompile(`^[A-Z]{4}0[A-Z0-9]{6}$`)
	accountPattern = regexp.MustCompile(`^[0-9]{9,18}$`)
)

type WithdrawalHandler struct {
	ledger *service.LedgerService
}

func NewWithdrawalHandler(ledger *service.LedgerService) *WithdrawalHandler {
	return &WithdrawalHandler{ledger: ledger}
}

// Create handles POST /me/withdrawals. Nothing is debited until an admin
// approves the request.
func (h *WithdrawalHandler) Create(c *gin.Context) {
	var req struct {
		Amount        int64  `json:"amount" binding:"required,min=1"`
		AccountHolder string `json:"account_holder" binding:"required"`
		AccountNumber string `json:"account_number" binding:"required"`
		IFSCCode      string `json:"ifsc_code" binding:"required"`
		BankName      string `json:"bank_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	bank := service.BankDetails{
		AccountHolder: strings.TrimSpace(req.AccountHolder),
		AccountNumber: strings.ReplaceAll(req.AccountNumber, " ", ""),
		IFSCCode:      strings.ToUpper(strings.TrimSpace(req.IFSCCode)),
		BankName:      strings.TrimSpace(req.BankName),
	}
	if !accountPattern.MatchString(bank.AccountNumber) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account number"})
		return
	}
	if !ifscPattern.MatchString(bank.IFSCCode) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid IFSC code"})
		return
	}
	wr, err := h.ledger.RequestWithdrawal(c.Request.Context(), middleware.GetUserID(c), req.Amount, bank)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, wr)
}

// List handles GET /me/withdrawals.
func (h *WithdrawalHandler) List(c *gin.Context) {
	limit, offset := parseLimitOffset(c)
	list, err := h.ledger.Withdrawals(c.Request.Context(), middleware.GetUserID(c), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawals": list})
}
