package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"relnet/internal/jobs"
)

// JobEnqueuer es la parte de la cola que usa el handler.
type JobEnqueuer interface {
	Push(ctx context.Context, job jobs.Job) error
}

type JobHandler struct {
	logger *zap.Logger
	queue  JobEnqueuer
}

func NewJobHandler(logger *zap.Logger, queue JobEnqueuer) *JobHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobHandler{logger: logger, queue: queue}
}

// Enqueue maneja POST /jobs.
func (h *JobHandler) Enqueue(c *gin.Context) {
	var req struct {
		Type        string `json:"type" binding:"required,oneof=metrics insights match"`
		WorkspaceID string `json:"workspace_id" binding:"required"`
		GoalID      string `json:"goal_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid enqueue request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	job := jobs.Job{Type: req.Type, WorkspaceID: req.WorkspaceID, GoalID: req.GoalID}
	if err := h.queue.Push(c.Request.Context(), job); err != nil {
		if errors.Is(err, jobs.ErrInvalidJob) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("enqueue job failed", zap.String("type", job.Type), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not enqueue job"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "queued", "job": job})
}
