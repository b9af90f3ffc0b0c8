package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/photovault/internal/api/handlers"
	"github.com/your-org/photovault/internal/api/ws"
	"github.com/your-org/photovault/internal/auth"
	"github.com/your-org/photovault/internal/events"
	"github.com/your-org/photovault/internal/jobs"
	"github.com/your-org/photovault/internal/recognition"
	"github.com/your-org/photovault/internal/reconcile"
	"github.com/your-org/photovault/internal/storage"
)

type RouterConfig struct {
	APIKey     string
	DB         *storage.PostgresStore
	MinIO      *storage.MinIOStore
	Queue      *jobs.Queue
	Processor  *jobs.Processor
	Hub        *ws.Hub
	Publisher  *events.Publisher
	Recognizer *recognition.Client
	Reconciler *reconcile.Reconciler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.DB, cfg.MinIO, cfg.Publisher, cfg.Recognizer)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 (with auth)
	v1 := r.Group("/v1")
	v1.Use(auth.APIKeyMiddleware(cfg.APIKey))

	// WebSocket: live job events
	v1.GET("/ws", cfg.Hub.HandleWS)

	// Scans
	scanH := handlers.NewScanHandler(cfg.Processor, cfg.Queue)
	v1.POST("/scans", scanH.Create)

	// Jobs
	jobH := handlers.NewJobHandler(cfg.Queue)
	v1.GET("/jobs", jobH.List)
	v1.GET("/jobs/:id", jobH.Get)
	v1.POST("/jobs/:id/cancel", jobH.Cancel)

	// Assets
	assetH := handlers.NewAssetHandler(cfg.DB, cfg.MinIO)
	v1.GET("/assets", assetH.List)
	v1.GET("/assets/:id", assetH.Get)
	v1.GET("/assets/:id/thumbnail", assetH.Thumbnail)
	v1.GET("/assets/:id/faces", assetH.Faces)

	// Persons & review queue
	personH := handlers.NewPersonHandler(cfg.DB, cfg.Reconciler)
	v1.POST("/persons", personH.Create)
	v1.GET("/persons", personH.List)
	v1.GET("/persons/:id", personH.Get)
	v1.GET("/review", personH.ListReview)
	v1.POST("/review/:faceId/confirm", personH.ConfirmReview)
	v1.POST("/review/:faceId/reject", personH.RejectReview)

	// Consistency reconciler
	reconcileH := handlers.NewReconcileHandler(cfg.Processor, cfg.Queue)
	v1.POST("/reconcile", reconcileH.Create)

	return r
}
