package handler

import (
	"net/http"

	"viewearn/internal/middleware"
	"viewearn/internal/service"

	"github.com/gin-gonic/gin"
)

type TaskHandler struct {
	ledger *service.LedgerService
}

func NewTaskHandler(ledger *service.LedgerService) *TaskHandler {
	return &TaskHandler{ledger: ledger}
}

// List handles GET /tasks.
func (h *TaskHandler) List(c *gin.Context) {
	tasks, err := h.ledger.Tasks(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// Claim handles POST /tasks/:id/claim. The body is ignored; progress is
// computed on the server.
func (h *TaskHandler) Claim(c *gin.Context) {
	taskID, ok := parseID(c, "id")
	if !ok {
		return
	}
	claim, err := h.ledger.ClaimTaskReward(c.Request.Context(), middleware.GetUserID(c), taskID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, claim)
}
