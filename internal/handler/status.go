package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/contentpilot/backend/internal/service/orchestrator"
)

type StatusHandler struct {
	orchestrator *orchestrator.Orchestrator
}

func NewStatusHandler(orch *orchestrator.Orchestrator) *StatusHandler {
	return &StatusHandler{orchestrator: orch}
}

// Queue reports the generation queue depth and active worker count.
func (h *StatusHandler) Queue(c *gin.Context) {
	c.JSON(http.StatusOK, h.orchestrator.GetQueueStatus())
}
