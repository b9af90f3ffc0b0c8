package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/photovault/internal/jobs"
	"github.com/your-org/photovault/pkg/dto"
)

type JobHandler struct {
	queue *jobs.Queue
}

func NewJobHandler(queue *jobs.Queue) *JobHandler {
	return &JobHandler{queue: queue}
}

func (h *JobHandler) List(c *gin.Context) {
	status := jobs.Status(c.Query("status"))

	list := h.queue.List(status)
	resp := make([]dto.JobResponse, 0, len(list))
	for _, j := range list {
		resp = append(resp, dto.JobFromQueue(j))
	}
	c.JSON(http.StatusOK, gin.H{"jobs": resp, "total": len(resp)})
}

func (h *JobHandler) Get(c *gin.Context) {
	job, ok := h.queue.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	c.JSON(http.StatusOK, dto.JobFromQueue(job))
}

func (h *JobHandler) Cancel(c *gin.Context) {
	if err := h.queue.Cancel(c.Param("id")); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}
