package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/photovault/internal/jobs"
	"github.com/your-org/photovault/pkg/dto"
)

type ReconcileHandler struct {
	processor *jobs.Processor
	queue     *jobs.Queue
}

func NewReconcileHandler(processor *jobs.Processor, queue *jobs.Queue) *ReconcileHandler {
	return &ReconcileHandler{processor: processor, queue: queue}
}

// Create triggers a consistency audit as a background job. With sync=true
// the call waits and returns the finished job, whose result carries the
// report.
func (h *ReconcileHandler) Create(c *gin.Context) {
	var req dto.ReconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	jobID := h.processor.StartReconcile(req.Repair)

	if !req.Sync {
		c.JSON(http.StatusAccepted, gin.H{"job_id": jobID})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Minute)
	defer cancel()
	job, err := h.queue.Wait(ctx, jobID)
	if err != nil {
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error(), "job": dto.JobFromQueue(job)})
		return
	}
	c.JSON(http.StatusOK, dto.JobFromQueue(job))
}
