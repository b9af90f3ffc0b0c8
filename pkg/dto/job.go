package dto

import (
	"time"

	"github.com/your-org/photovault/internal/jobs"
)

type JobResponse struct {
	ID          string      `json:"id"`
	Type        string      `json:"type"`
	Status      string      `json:"status"`
	Progress    int         `json:"progress"`
	Message     string      `json:"message,omitempty"`
	Priority    int         `json:"priority"`
	Retries     int         `json:"retries"`
	MaxRetries  int         `json:"max_retries"`
	Result      interface{} `json:"result,omitempty"`
	Error       string      `json:"error,omitempty"`
	CreatedAt   string      `json:"created_at"`
	StartedAt   string      `json:"started_at,omitempty"`
	CompletedAt string      `json:"completed_at,omitempty"`
}

func JobFromQueue(j jobs.Job) JobResponse {
	resp := JobResponse{
		ID:         j.ID,
		Type:       j.Type,
		Status:     string(j.Status),
		Progress:   j.Progress,
		Message:    j.Message,
		Priority:   j.Priority,
		Retries:    j.Retries,
		MaxRetries: j.MaxRetries,
		Result:     j.Result,
		Error:      j.Error,
		CreatedAt:  j.CreatedAt.Format(time.RFC3339),
	}
	if j.StartedAt != nil {
		resp.StartedAt = j.StartedAt.Format(time.RFC3339)
	}
	if j.CompletedAt != nil {
		resp.CompletedAt = j.CompletedAt.Format(time.RFC3339)
	}
	return resp
}
