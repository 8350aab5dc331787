package handler

import (
	"net/http"
	"strconv"

	"viewearn/internal/clock"
	"viewearn/internal/domain"
	"viewearn/internal/models"
	"viewearn/internal/repository"
	"viewearn/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminReports is the read-only reporting surface behind the dashboard.
type AdminReports interface {
	GetDashboardStats() (*repository.DashboardStats, error)
	ListCoinTransactions(txType string, page, limit int) ([]models.CoinTransaction, int64, error)
	ListReferrals(page, limit int) ([]models.Referral, int64, error)
	EarningsByDay(earningType, since string) ([]repository.AmountPoint, error)
}

type AdminHandler struct {
	reports AdminReports
	ledger  *service.LedgerService
	clock   clock.Clock
}

func NewAdminHandler(reports AdminReports, ledger *service.LedgerService, clk clock.Clock) *AdminHandler {
	return &AdminHandler{reports: reports, ledger: ledger, clock: clk}
}

// Dashboard handles GET /admin/dashboard.
func (h *AdminHandler) Dashboard(c *gin.Context) {
	stats, err := h.reports.GetDashboardStats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ListTransactions handles GET /admin/transactions.
func (h *AdminHandler) ListTransactions(c *gin.Context) {
	txType := c.Query("type")
	page, limit := parsePagination(c)
	list, total, err := h.reports.ListCoinTransactions(txType, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list transactions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list, "total": total, "page": page, "limit": limit})
}

// ListReferrals handles GET /admin/referrals.
func (h *AdminHandler) ListReferrals(c *gin.Context) {
	page, limit := parsePagination(c)
	list, total, err := h.reports.ListReferrals(page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list referrals"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list, "total": total, "page": page, "limit": limit})
}

// ListWithdrawals handles GET /admin/withdrawals?status=pending.
func (h *AdminHandler) ListWithdrawals(c *gin.Context) {
	status := c.DefaultQuery("status", domain.WithdrawalPending)
	switch status {
	case domain.WithdrawalPending, domain.WithdrawalApproved, domain.WithdrawalRejected:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}
	page, limit := parsePagination(c)
	list, err := h.ledger.WithdrawalsByStatus(c.Request.Context(), status, limit, (page-1)*limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list, "page": page, "limit": limit})
}

type reviewRequest struct {
	Notes string `json:"notes"`
}

// ApproveWithdrawal handles POST /admin/withdrawals/:id/approve.
func (h *AdminHandler) ApproveWithdrawal(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req reviewRequest
	_ = c.ShouldBindJSON(&req)
	wr, err := h.ledger.ApproveWithdrawal(c.Request.Context(), id, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wr)
}

// RejectWithdrawal handles POST /admin/withdrawals/:id/reject.
func (h *AdminHandler) RejectWithdrawal(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req reviewRequest
	_ = c.ShouldBindJSON(&req)
	wr, err := h.ledger.RejectWithdrawal(c.Request.Context(), id, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wr)
}

// Reconcile handles GET /admin/users/:id/reconcile.
func (h *AdminHandler) Reconcile(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	r, err := h.ledger.Reconcile(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// Analytics handles GET /admin/analytics?days=30.
func (h *AdminHandler) Analytics(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))
	if days <= 0 || days > 365 {
		days = 30
	}
	since := h.clock.Now().AddDate(0, 0, -(days - 1)).Format(domain.DateLayout)
	out := gin.H{"days": days, "since": since}
	for _, t := range []string{domain.EarningVideoWatch, domain.EarningAdView, domain.EarningDailyTask, domain.EarningReferral, domain.EarningCoinConversion} {
		points, err := h.reports.EarningsByDay(t, since)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load analytics"})
			return
		}
		out[t] = points
	}
	c.JSON(http.StatusOK, out)
}

func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}

