package handler

import (
	"errors"
	"net/http"
	"strconv"

	"viewearn/internal/domain"
	"viewearn/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var errorStatus = []struct {
	err    error
	status int
}{
	{domain.ErrNotFound, http.StatusNotFound},
	{domain.ErrAlreadyClaimed, http.StatusConflict},
	{domain.ErrAlreadyOwned, http.StatusConflict},
	{domain.ErrAlreadyReferred, http.StatusConflict},
	{domain.ErrWithdrawalNotPending, http.StatusConflict},
	{domain.ErrNotEligible, http.StatusUnprocessableEntity},
	{domain.ErrInsufficientCoins, http.StatusUnprocessableEntity},
	{domain.ErrInsufficientBalance, http.StatusUnprocessableEntity},
	{domain.ErrBelowMinimum, http.StatusBadRequest},
	{domain.ErrInvalidAmount, http.StatusBadRequest},
	{domain.ErrSelfReferral, http.StatusBadRequest},
}

// respondError maps ledger errors to a status. Anything unknown is logged
// and hidden behind a 500.
func respondError(c *gin.Context, err error) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			c.JSON(e.status, gin.H{"error": e.err.Error()})
			return
		}
	}
	logger.L().Error("[API] request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(id), true
}
