package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/photovault/internal/jobs"
	"github.com/your-org/photovault/pkg/dto"
)

const syncWaitTimeout = 10 * time.Minute

type ScanHandler struct {
	processor *jobs.Processor
	queue     *jobs.Queue
}

func NewScanHandler(processor *jobs.Processor, queue *jobs.Queue) *ScanHandler {
	return &ScanHandler{processor: processor, queue: queue}
}

// Create triggers a library scan. By default it returns the job id
// immediately; with sync=true it waits for the scan job to finish and
// returns the final job including its result.
func (h *ScanHandler) Create(c *gin.Context) {
	var req dto.StartScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	jobID := h.processor.StartScan(req.Path, req.Limit)

	if !req.Sync {
		c.JSON(http.StatusAccepted, dto.StartScanResponse{JobID: jobID})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), syncWaitTimeout)
	defer cancel()
	job, err := h.queue.Wait(ctx, jobID)
	if err != nil {
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error(), "job": dto.JobFromQueue(job)})
		return
	}
	c.JSON(http.StatusOK, dto.JobFromQueue(job))
}
