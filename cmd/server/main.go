package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/your-org/photovault/internal/api"
	"github.com/your-org/photovault/internal/api/ws"
	"github.com/your-org/photovault/internal/config"
	"github.com/your-org/photovault/internal/events"
	"github.com/your-org/photovault/internal/jobs"
	"github.com/your-org/photovault/internal/library"
	"github.com/your-org/photovault/internal/observability"
	"github.com/your-org/photovault/internal/recognition"
	"github.com/your-org/photovault/internal/reconcile"
	"github.com/your-org/photovault/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting photovault", "port", cfg.Server.Port)

	if err := run(cfg); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.NewPostgresStore(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	objects, err := storage.NewMinIOStore(cfg.MinIO)
	if err != nil {
		return fmt.Errorf("connect minio: %w", err)
	}
	if err := objects.EnsureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}

	publisher, err := events.NewPublisher(cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("connect nats: %w", err)
	}
	defer publisher.Close()
	if err := publisher.EnsureStream(ctx); err != nil {
		return fmt.Errorf("ensure stream: %w", err)
	}

	recog := recognition.NewClient(cfg.Recognition)
	if err := recog.Ping(ctx); err != nil {
		// Degraded mode: scans and thumbnails still work without the
		// recognition service.
		slog.Warn("recognition service unreachable", "url", cfg.Recognition.BaseURL, "error", err)
	}

	reconciler := reconcile.New(db, recog, cfg.Reconciler)

	pipeline := recognition.NewPipeline(recog, db, cfg.Recognition)
	pipeline.AfterAssign = reconciler.QuickCheck

	scanner := library.NewScanner(db)

	queue := jobs.NewQueue(cfg.Jobs)
	processor := jobs.NewProcessor(queue, db, objects, scanner, recog, pipeline, reconciler, cfg.Library)
	processor.Register()

	hub := ws.NewHub()
	go hub.Run()

	queue.Notify(hub.BroadcastJobEvent)
	queue.Notify(publisher.PublishJobEvent)
	queue.Start()

	router := api.NewRouter(api.RouterConfig{
		APIKey:     cfg.Server.APIKey,
		DB:         db,
		MinIO:      objects,
		Queue:      queue,
		Processor:  processor,
		Hub:        hub,
		Publisher:  publisher,
		Recognizer: recog,
		Reconciler: reconciler,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		slog.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown", "error", err)
	}

	// Let running jobs finish within the configured grace period.
	queue.Shutdown()

	slog.Info("shutdown complete")
	return nil
}
