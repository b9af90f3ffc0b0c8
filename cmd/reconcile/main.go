package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/your-org/photovault/internal/config"
	"github.com/your-org/photovault/internal/observability"
	"github.com/your-org/photovault/internal/recognition"
	"github.com/your-org/photovault/internal/reconcile"
	"github.com/your-org/photovault/internal/storage"
)

// One-shot consistency audit between the local database and the remote
// recognition service. Prints the report as JSON to stdout.
func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	repair := flag.Bool("repair", false, "re-upload missing remote faces")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	observability.SetupLogger(cfg.Logging.Level, "text")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.NewPostgresStore(cfg.Database)
	if err != nil {
		slog.Error("connect postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	recog := recognition.NewClient(cfg.Recognition)
	reconciler := reconcile.New(db, recog, cfg.Reconciler)

	report, err := reconciler.Audit(ctx, *repair)
	if err != nil {
		slog.Error("audit", "error", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		slog.Error("encode report", "error", err)
		os.Exit(1)
	}

	if len(report.Divergences) > 0 && !*repair {
		os.Exit(2)
	}
}
