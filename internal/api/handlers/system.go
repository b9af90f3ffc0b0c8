package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/photovault/internal/events"
	"github.com/your-org/photovault/internal/recognition"
	"github.com/your-org/photovault/internal/storage"
)

type SystemHandler struct {
	db        *storage.PostgresStore
	minio     *storage.MinIOStore
	publisher *events.Publisher
	recog     *recognition.Client
}

func NewSystemHandler(db *storage.PostgresStore, minio *storage.MinIOStore, publisher *events.Publisher, recog *recognition.Client) *SystemHandler {
	return &SystemHandler{db: db, minio: minio, publisher: publisher, recog: recog}
}

func (h *SystemHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *SystemHandler) Readyz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	// Check Postgres
	if err := h.db.Ping(ctx); err != nil {
		checks["postgres"] = err.Error()
		healthy = false
	} else {
		checks["postgres"] = "ok"
	}

	// Check MinIO
	if err := h.minio.Ping(ctx); err != nil {
		checks["minio"] = err.Error()
		healthy = false
	} else {
		checks["minio"] = "ok"
	}

	// Check NATS
	if err := h.publisher.Ping(); err != nil {
		checks["nats"] = err.Error()
		healthy = false
	} else {
		checks["nats"] = "ok"
	}

	// The recognition service is degraded-tolerant: report it but don't
	// flip readiness on it.
	if err := h.recog.Ping(ctx); err != nil {
		checks["recognition"] = err.Error()
	} else {
		checks["recognition"] = "ok"
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status": map[bool]string{true: "ready", false: "not ready"}[healthy],
		"checks": checks,
	})
}
