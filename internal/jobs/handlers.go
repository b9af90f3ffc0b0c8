package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/photovault/internal/config"
	"github.com/your-org/photovault/internal/library"
	"github.com/your-org/photovault/internal/models"
	"github.com/your-org/photovault/internal/observability"
	"github.com/your-org/photovault/internal/recognition"
	"github.com/your-org/photovault/internal/reconcile"
	"github.com/your-org/photovault/internal/thumbs"
)

const (
	TypeScan        = "scan"
	TypeThumbnail   = "thumbnail"
	TypeRecognition = "face-recognition"
	TypeReconcile   = "reconcile"
)

// Store is the persistence contract the handlers write through.
type Store interface {
	CreateAsset(ctx context.Context, hash, path string, size int64, mimeType string) (*models.MediaAsset, error)
	GetAsset(ctx context.Context, id uuid.UUID) (*models.MediaAsset, error)
	UpdateAssetStatus(ctx context.Context, id uuid.UUID, status models.AssetStatus) error
	MarkAssetProcessing(ctx context.Context, id uuid.UUID) error
	SetAssetThumbnail(ctx context.Context, id uuid.UUID, key string) error
	CreateFace(ctx context.Context, assetID uuid.UUID, bbox [4]int, confidence float64, imagePath string) (*models.Face, error)
}

// ObjectStore receives generated thumbnails.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
}

// Detector finds faces in an image via the remote service.
type Detector interface {
	Detect(ctx context.Context, image []byte) ([]recognition.Detection, error)
}

// FaceRouter classifies detected faces (the auto-recognition pipeline).
type FaceRouter interface {
	Process(ctx context.Context, faces []models.Face) recognition.Summary
}

// Auditor runs a consistency audit against the remote store.
type Auditor interface {
	Audit(ctx context.Context, repair bool) (*reconcile.Report, error)
}

// Processor owns the job handlers for the ingestion pipeline and registers
// them on the queue.
type Processor struct {
	queue    *Queue
	store    Store
	objects  ObjectStore
	scanner  *library.Scanner
	detector Detector
	router   FaceRouter
	auditor  Auditor
	cfg      config.LibraryConfig
}

func NewProcessor(
	queue *Queue,
	store Store,
	objects ObjectStore,
	scanner *library.Scanner,
	detector Detector,
	router FaceRouter,
	auditor Auditor,
	cfg config.LibraryConfig,
) *Processor {
	return &Processor{
		queue:    queue,
		store:    store,
		objects:  objects,
		scanner:  scanner,
		detector: detector,
		router:   router,
		auditor:  auditor,
		cfg:      cfg,
	}
}

// Register binds all pipeline handlers to the queue. Call before
// Queue.Start.
func (p *Processor) Register() {
	p.queue.RegisterHandler(TypeScan, p.handleScan)
	p.queue.RegisterHandler(TypeThumbnail, p.handleThumbnail)
	p.queue.RegisterHandler(TypeRecognition, p.handleRecognition)
	p.queue.RegisterHandler(TypeReconcile, p.handleReconcile)
}

// StartScan submits a scan job for the given root (empty means the
// configured source directory) and returns the job id immediately.
func (p *Processor) StartScan(root string, limit int) string {
	return p.queue.Add(TypeScan, models.ScanTask{Root: root, Limit: limit}, Options{
		Priority:   10,
		MaxRetries: 1, // a failed scan is simply re-requested
	})
}

// StartReconcile submits a reconcile job and returns the job id.
func (p *Processor) StartReconcile(repair bool) string {
	return p.queue.Add(TypeReconcile, models.ReconcileTask{Repair: repair}, Options{
		Priority:   1,
		MaxRetries: 1,
	})
}

// handleScan discovers unprocessed files, records pending assets, and fans
// the work out as directory-local batch jobs.
func (p *Processor) handleScan(ctx context.Context, job Job, progress ProgressFunc) (interface{}, error) {
	task, ok := job.Payload.(models.ScanTask)
	if !ok {
		return nil, fmt.Errorf("unexpected scan payload %T", job.Payload)
	}
	root := task.Root
	if root == "" {
		root = p.cfg.SourceDir
	}

	progress(5, "discovering files")
	candidates, stats, err := p.scanner.Discover(ctx, root, task.Limit)
	if err != nil {
		return nil, err
	}

	// Record a pending asset per candidate. A failure on one file drops
	// that file from the work set, not the whole scan.
	assetIDs := make(map[string]uuid.UUID, len(candidates))
	recorded := candidates[:0]
	for i, cand := range candidates {
		asset, err := p.store.CreateAsset(ctx, cand.Hash, cand.Path, cand.Size, cand.MimeType)
		if err != nil {
			slog.Warn("record asset", "path", cand.Path, "error", err)
			continue
		}
		assetIDs[cand.Hash] = asset.ID
		recorded = append(recorded, cand)
		if len(candidates) > 0 {
			progress(10+40*(i+1)/len(candidates), fmt.Sprintf("recorded %d/%d files", i+1, len(candidates)))
		}
	}

	batches := library.CreateBatches(recorded, p.cfg.BatchSize)
	progress(60, fmt.Sprintf("created %d batches", len(batches)))

	var jobIDs []string
	for _, batch := range batches {
		ids := make([]string, 0, len(batch.Items))
		for _, item := range batch.Items {
			ids = append(ids, assetIDs[item.Hash].String())
		}
		payload := models.BatchTask{BatchID: batch.ID, AssetIDs: ids}

		jobIDs = append(jobIDs, p.queue.Add(TypeThumbnail, payload, Options{
			Priority:   5,
			MaxRetries: 3,
			RetryDelay: 10 * time.Second,
		}))
		jobIDs = append(jobIDs, p.queue.Add(TypeRecognition, payload, Options{
			Priority:   3,
			MaxRetries: 3,
			RetryDelay: 30 * time.Second,
		}))
	}

	progress(100, "scan complete")
	return models.ScanResult{
		DiscoveredFiles: stats.Discovered,
		FilesToProcess:  len(recorded),
		BatchesCreated:  len(batches),
		JobIDs:          jobIDs,
	}, nil
}

// handleThumbnail generates and stores a thumbnail for each asset in the
// batch. Unreadable or undecodable files are skipped, not fatal.
func (p *Processor) handleThumbnail(ctx context.Context, job Job, progress ProgressFunc) (interface{}, error) {
	task, ok := job.Payload.(models.BatchTask)
	if !ok {
		return nil, fmt.Errorf("unexpected thumbnail payload %T", job.Payload)
	}

	var result models.ThumbnailResult
	for i, idStr := range task.AssetIDs {
		id, err := uuid.Parse(idStr)
		if err != nil {
			result.Skipped++
			continue
		}
		asset, err := p.store.GetAsset(ctx, id)
		if err != nil || asset == nil {
			slog.Warn("thumbnail: asset not found", "asset", idStr, "error", err)
			result.Skipped++
			continue
		}

		// Conditional on pending: the recognition job for the same batch
		// runs concurrently and may already have completed the asset.
		if err := p.store.MarkAssetProcessing(ctx, asset.ID); err != nil {
			slog.Warn("thumbnail: mark asset processing", "asset", asset.ID, "error", err)
		}

		data, err := os.ReadFile(asset.SourcePath)
		if err != nil {
			slog.Warn("thumbnail: read source", "path", asset.SourcePath, "error", err)
			result.Skipped++
			continue
		}
		thumb, err := thumbs.Generate(data, p.cfg.ThumbnailSize)
		if err != nil {
			slog.Warn("thumbnail: generate", "path", asset.SourcePath, "error", err)
			result.Skipped++
			continue
		}

		key := "thumbs/" + asset.ContentHash + ".jpg"
		if err := p.objects.PutObject(ctx, key, thumb, "image/jpeg"); err != nil {
			slog.Warn("thumbnail: store", "key", key, "error", err)
			result.Skipped++
			continue
		}
		if err := p.store.SetAssetThumbnail(ctx, asset.ID, key); err != nil {
			slog.Warn("thumbnail: record key", "asset", asset.ID, "error", err)
		}

		result.Generated++
		progress(100*(i+1)/len(task.AssetIDs), fmt.Sprintf("thumbnails %d/%d", i+1, len(task.AssetIDs)))
	}

	return result, nil
}

// handleRecognition detects faces in each asset of the batch and routes
// them through the auto-recognition pipeline. A remote-service failure on
// one asset counts it as processed-but-unrecognized rather than failing
// the job.
func (p *Processor) handleRecognition(ctx context.Context, job Job, progress ProgressFunc) (interface{}, error) {
	task, ok := job.Payload.(models.BatchTask)
	if !ok {
		return nil, fmt.Errorf("unexpected recognition payload %T", job.Payload)
	}

	var result models.RecognitionResult
	for i, idStr := range task.AssetIDs {
		id, err := uuid.Parse(idStr)
		if err != nil {
			result.Skipped++
			continue
		}
		asset, err := p.store.GetAsset(ctx, id)
		if err != nil || asset == nil {
			slog.Warn("recognition: asset not found", "asset", idStr, "error", err)
			result.Skipped++
			continue
		}

		data, err := os.ReadFile(asset.SourcePath)
		if err != nil {
			slog.Warn("recognition: read source", "path", asset.SourcePath, "error", err)
			if err := p.store.UpdateAssetStatus(ctx, asset.ID, models.AssetStatusFailed); err != nil {
				slog.Warn("recognition: mark asset failed", "asset", asset.ID, "error", err)
			}
			result.Errors++
			continue
		}

		detections, err := p.detector.Detect(ctx, data)
		if err != nil {
			// Degraded remote service: the asset is processed, just
			// without recognition.
			slog.Warn("recognition: detect", "asset", asset.ID, "error", err)
			result.Processed++
			result.Unrecognized++
			p.completeAsset(ctx, asset.ID)
			continue
		}

		faces := make([]models.Face, 0, len(detections))
		for _, det := range detections {
			face, err := p.store.CreateFace(ctx, asset.ID, det.Box, det.Confidence, asset.SourcePath)
			if err != nil {
				slog.Warn("recognition: record face", "asset", asset.ID, "error", err)
				continue
			}
			faces = append(faces, *face)
		}
		observability.FacesDetected.Add(float64(len(faces)))

		summary := p.router.Process(ctx, faces)
		result.Processed++
		result.FacesDetected += len(faces)
		result.AutoAssigned += summary.AutoAssigned
		result.NeedsReview += summary.NeedsReview
		result.Unrecognized += summary.Unrecognized
		result.Errors += summary.Errors

		p.completeAsset(ctx, asset.ID)
		progress(100*(i+1)/len(task.AssetIDs), fmt.Sprintf("recognized %d/%d assets", i+1, len(task.AssetIDs)))
	}

	return result, nil
}

func (p *Processor) completeAsset(ctx context.Context, id uuid.UUID) {
	if err := p.store.UpdateAssetStatus(ctx, id, models.AssetStatusCompleted); err != nil {
		slog.Warn("mark asset completed", "asset", id, "error", err)
	}
}

// handleReconcile runs a full consistency audit as a background job.
func (p *Processor) handleReconcile(ctx context.Context, job Job, progress ProgressFunc) (interface{}, error) {
	task, ok := job.Payload.(models.ReconcileTask)
	if !ok {
		return nil, fmt.Errorf("unexpected reconcile payload %T", job.Payload)
	}

	progress(10, "auditing local and remote stores")
	report, err := p.auditor.Audit(ctx, task.Repair)
	if err != nil {
		return nil, err
	}
	return report, nil
}
