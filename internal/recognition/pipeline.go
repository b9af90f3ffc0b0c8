package recognition

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/your-org/photovault/internal/config"
	"github.com/your-org/photovault/internal/models"
	"github.com/your-org/photovault/internal/observability"
	"github.com/your-org/photovault/internal/thumbs"
)

// Recognizer is the slice of the remote client the pipeline calls.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) ([]Candidate, error)
}

// FaceStore is the persistence contract for routing outcomes.
type FaceStore interface {
	AssignFace(ctx context.Context, faceID, personID uuid.UUID, confidence float64, method models.AssignMethod) error
	SuggestFace(ctx context.Context, faceID, personID uuid.UUID, confidence float64) error
	GetPersonBySubject(ctx context.Context, subjectID string) (*models.Person, error)
}

// Summary counts how a batch of faces was routed.
type Summary struct {
	Processed    int `json:"processed"`
	AutoAssigned int `json:"auto_assigned"`
	NeedsReview  int `json:"needs_review"`
	Unrecognized int `json:"unrecognized"`
	Skipped      int `json:"skipped"`
	Errors       int `json:"errors"`
}

// Pipeline classifies unassigned faces by calling the remote service once
// per face. Calls run concurrently under their own cap, independent of the
// job queue's concurrency bound, so a wide batch cannot overwhelm the
// remote service.
type Pipeline struct {
	client Recognizer
	store  FaceStore
	cfg    config.RecognitionConfig
	sem    *semaphore.Weighted

	// AfterAssign, when set, runs after each successful auto-assignment
	// (the reconciler's quick per-person drift check is wired here).
	AfterAssign func(ctx context.Context, personID uuid.UUID)
}

func NewPipeline(client Recognizer, store FaceStore, cfg config.RecognitionConfig) *Pipeline {
	return &Pipeline{
		client: client,
		store:  store,
		cfg:    cfg,
		sem:    semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
	}
}

// Process routes every face lacking a person assignment. A failure on one
// face is logged and counted; the rest of the batch continues.
func (p *Pipeline) Process(ctx context.Context, faces []models.Face) Summary {
	var (
		mu      sync.Mutex
		summary Summary
		wg      sync.WaitGroup
	)

	for _, face := range faces {
		if face.PersonID != nil {
			continue
		}

		if face.ImagePath == "" {
			slog.Warn("face has no image path, skipping", "face", face.ID)
			mu.Lock()
			summary.Skipped++
			mu.Unlock()
			continue
		}

		if err := p.sem.Acquire(ctx, 1); err != nil {
			slog.Warn("recognition batch interrupted", "error", err)
			break
		}

		wg.Add(1)
		go func(face models.Face) {
			defer wg.Done()
			defer p.sem.Release(1)

			outcome := p.processFace(ctx, face)

			mu.Lock()
			summary.Processed++
			switch outcome {
			case outcomeAuto:
				summary.AutoAssigned++
			case outcomeReview:
				summary.NeedsReview++
			case outcomeNone:
				summary.Unrecognized++
			case outcomeError:
				summary.Errors++
			}
			mu.Unlock()
		}(face)
	}

	wg.Wait()
	return summary
}

type outcome int

const (
	outcomeNone outcome = iota
	outcomeAuto
	outcomeReview
	outcomeError
)

func (p *Pipeline) processFace(ctx context.Context, face models.Face) outcome {
	image, err := os.ReadFile(face.ImagePath)
	if err != nil {
		slog.Warn("read face image", "face", face.ID, "path", face.ImagePath, "error", err)
		return outcomeError
	}

	crop, err := thumbs.Crop(image, face.BBox)
	if err != nil {
		slog.Warn("crop face", "face", face.ID, "error", err)
		return outcomeError
	}

	candidates, err := p.client.Recognize(ctx, crop)
	if err != nil {
		slog.Warn("recognize face", "face", face.ID, "error", err)
		return outcomeError
	}
	if len(candidates) == 0 {
		observability.FacesRouted.WithLabelValues("unrecognized").Inc()
		return outcomeNone
	}

	// First candidate wins; the service returns them ranked and ties keep
	// its order.
	best := candidates[0]

	switch {
	case best.Similarity >= p.cfg.AutoAssignThreshold:
		person, err := p.store.GetPersonBySubject(ctx, best.Subject)
		if err != nil {
			slog.Warn("lookup person for subject", "subject", best.Subject, "error", err)
			return outcomeError
		}
		if person == nil {
			slog.Warn("remote subject has no local person, leaving face unassigned",
				"subject", best.Subject, "face", face.ID)
			observability.FacesRouted.WithLabelValues("unrecognized").Inc()
			return outcomeNone
		}
		if err := p.store.AssignFace(ctx, face.ID, person.ID, best.Similarity, models.AssignMethodAuto); err != nil {
			slog.Warn("auto-assign face", "face", face.ID, "error", err)
			return outcomeError
		}
		slog.Info("face auto-assigned",
			"face", face.ID, "person", person.ID, "similarity", best.Similarity)
		observability.FacesRouted.WithLabelValues("auto").Inc()
		if p.AfterAssign != nil {
			p.AfterAssign(ctx, person.ID)
		}
		return outcomeAuto

	case best.Similarity >= p.cfg.ReviewThreshold:
		person, err := p.store.GetPersonBySubject(ctx, best.Subject)
		if err != nil || person == nil {
			if err != nil {
				slog.Warn("lookup person for subject", "subject", best.Subject, "error", err)
			}
			observability.FacesRouted.WithLabelValues("unrecognized").Inc()
			return outcomeNone
		}
		if err := p.store.SuggestFace(ctx, face.ID, person.ID, best.Similarity); err != nil {
			slog.Warn("mark face for review", "face", face.ID, "error", err)
			return outcomeError
		}
		observability.FacesRouted.WithLabelValues("review").Inc()
		return outcomeReview

	default:
		observability.FacesRouted.WithLabelValues("unrecognized").Inc()
		return outcomeNone
	}
}
