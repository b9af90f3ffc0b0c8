// Package reconcile audits the local face/person records against the
// remote recognition subject store and optionally repairs drift.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/photovault/internal/config"
	"github.com/your-org/photovault/internal/models"
	"github.com/your-org/photovault/internal/observability"
	"github.com/your-org/photovault/internal/recognition"
	"github.com/your-org/photovault/internal/thumbs"
)

type DivergenceKind string

const (
	// KindMissingRemoteSubject: a person references a subject the remote
	// store no longer has. Reported only; re-creating or reassigning is a
	// human decision.
	KindMissingRemoteSubject DivergenceKind = "missing_remote_subject"
	// KindOrphanedLocalFace: a locally-assigned face whose training
	// sample is missing remotely (remote count under half the local
	// count). Repairable by re-uploading.
	KindOrphanedLocalFace DivergenceKind = "orphaned_local_face"
)

// Divergence is one detected inconsistency with enough identifying data to
// drive repair.
type Divergence struct {
	Kind        DivergenceKind `json:"kind"`
	PersonID    uuid.UUID      `json:"person_id"`
	PersonName  string         `json:"person_name"`
	SubjectID   string         `json:"subject_id"`
	FaceID      *uuid.UUID     `json:"face_id,omitempty"`
	FacePath    string         `json:"face_path,omitempty"`
	LocalCount  int            `json:"local_count"`
	RemoteCount int            `json:"remote_count"`
}

// Report is the transient outcome of one audit. It is returned, not
// persisted.
type Report struct {
	StartedAt      time.Time    `json:"started_at"`
	FinishedAt     time.Time    `json:"finished_at"`
	CheckedPersons int          `json:"checked_persons"`
	Divergences    []Divergence `json:"divergences"`
	RepairedFaces  int          `json:"repaired_faces"`
	FailedRepairs  int          `json:"failed_repairs"`
}

// Store is the persistence contract the reconciler audits.
type Store interface {
	ListPersons(ctx context.Context) ([]models.Person, error)
	GetPerson(ctx context.Context, id uuid.UUID) (*models.Person, error)
	CountAssignedFaces(ctx context.Context, personID uuid.UUID) (int, error)
	ListAssignedFaces(ctx context.Context, personID uuid.UUID) ([]models.Face, error)
	UpdatePersonFaceCount(ctx context.Context, id uuid.UUID, count int) error
}

// Remote is the slice of the recognition client the reconciler needs.
type Remote interface {
	ListSubjects(ctx context.Context) ([]string, error)
	ListFaces(ctx context.Context, subject string) ([]recognition.SubjectFace, error)
	AddFace(ctx context.Context, subject string, image []byte) (string, error)
}

type Reconciler struct {
	store  Store
	remote Remote
	cfg    config.ReconcilerConfig
}

func New(store Store, remote Remote, cfg config.ReconcilerConfig) *Reconciler {
	return &Reconciler{store: store, remote: remote, cfg: cfg}
}

// Audit compares every person carrying a remote subject reference against
// the remote store. With repair enabled, orphaned faces are re-uploaded;
// a failed repair is logged and counted, never fatal to the rest.
func (r *Reconciler) Audit(ctx context.Context, repair bool) (*Report, error) {
	report := &Report{StartedAt: time.Now()}

	subjects, err := r.remote.ListSubjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list remote subjects: %w", err)
	}
	subjectSet := make(map[string]bool, len(subjects))
	for _, s := range subjects {
		subjectSet[s] = true
	}

	persons, err := r.store.ListPersons(ctx)
	if err != nil {
		return nil, fmt.Errorf("list persons: %w", err)
	}

	for _, person := range persons {
		if person.SubjectID == "" {
			continue
		}
		report.CheckedPersons++

		localCount, err := r.store.CountAssignedFaces(ctx, person.ID)
		if err != nil {
			slog.Warn("count local faces", "person", person.ID, "error", err)
			continue
		}

		// Keep the aggregate honest while we're here.
		if localCount != person.FaceCount {
			if err := r.store.UpdatePersonFaceCount(ctx, person.ID, localCount); err != nil {
				slog.Warn("sync person face count", "person", person.ID, "error", err)
			}
		}

		if !subjectSet[person.SubjectID] {
			report.Divergences = append(report.Divergences, Divergence{
				Kind:       KindMissingRemoteSubject,
				PersonID:   person.ID,
				PersonName: person.Name,
				SubjectID:  person.SubjectID,
				LocalCount: localCount,
			})
			observability.ReconcilerDivergences.WithLabelValues(string(KindMissingRemoteSubject)).Inc()
			continue
		}

		remoteFaces, err := r.remote.ListFaces(ctx, person.SubjectID)
		if err != nil {
			slog.Warn("list remote faces", "subject", person.SubjectID, "error", err)
			continue
		}
		remoteCount := len(remoteFaces)

		if !orphaned(localCount, remoteCount) {
			continue
		}

		faces, err := r.store.ListAssignedFaces(ctx, person.ID)
		if err != nil {
			slog.Warn("list local faces", "person", person.ID, "error", err)
			continue
		}

		// The remote API exposes only a count per subject, not which
		// samples survive, so repair caps at the shortfall instead of
		// re-uploading every local face.
		missing := localCount - remoteCount
		for _, face := range faces {
			if missing <= 0 {
				break
			}
			if face.ImagePath == "" {
				continue
			}
			if _, err := os.Stat(face.ImagePath); err != nil {
				continue // image gone from disk, nothing to re-upload
			}

			faceID := face.ID
			report.Divergences = append(report.Divergences, Divergence{
				Kind:        KindOrphanedLocalFace,
				PersonID:    person.ID,
				PersonName:  person.Name,
				SubjectID:   person.SubjectID,
				FaceID:      &faceID,
				FacePath:    face.ImagePath,
				LocalCount:  localCount,
				RemoteCount: remoteCount,
			})
			observability.ReconcilerDivergences.WithLabelValues(string(KindOrphanedLocalFace)).Inc()
			missing--

			if !repair {
				continue
			}
			if err := r.repairFace(ctx, person.SubjectID, face); err != nil {
				slog.Warn("repair face", "face", face.ID, "subject", person.SubjectID, "error", err)
				report.FailedRepairs++
				continue
			}
			report.RepairedFaces++
			observability.ReconcilerRepairs.Inc()
		}
	}

	report.FinishedAt = time.Now()
	slog.Info("consistency audit finished",
		"checked", report.CheckedPersons,
		"divergences", len(report.Divergences),
		"repaired", report.RepairedFaces,
		"failed_repairs", report.FailedRepairs,
	)
	return report, nil
}

// QuickCheck compares one person's local and remote face counts right
// after an assignment-affecting operation. Advisory only: drift beyond the
// tolerance is logged, never repaired here.
func (r *Reconciler) QuickCheck(ctx context.Context, personID uuid.UUID) {
	person, err := r.store.GetPerson(ctx, personID)
	if err != nil || person == nil || person.SubjectID == "" {
		return
	}

	localCount, err := r.store.CountAssignedFaces(ctx, personID)
	if err != nil {
		return
	}
	remoteFaces, err := r.remote.ListFaces(ctx, person.SubjectID)
	if err != nil {
		return
	}

	drift := localCount - len(remoteFaces)
	if drift < 0 {
		drift = -drift
	}
	if drift > r.cfg.DriftTolerance {
		slog.Warn("local/remote face counts drifting",
			"person", personID,
			"subject", person.SubjectID,
			"local", localCount,
			"remote", len(remoteFaces),
			"tolerance", r.cfg.DriftTolerance,
		)
	}
}

// repairFace re-uploads the face crop as a training sample for the
// subject.
func (r *Reconciler) repairFace(ctx context.Context, subject string, face models.Face) error {
	image, err := os.ReadFile(face.ImagePath)
	if err != nil {
		return fmt.Errorf("read face image: %w", err)
	}
	crop, err := thumbs.Crop(image, face.BBox)
	if err != nil {
		return fmt.Errorf("crop face: %w", err)
	}
	if _, err := r.remote.AddFace(ctx, subject, crop); err != nil {
		return err
	}
	return nil
}

// orphaned reports whether the remote count fell under half the local
// count.
func orphaned(localCount, remoteCount int) bool {
	if localCount == 0 {
		return false
	}
	return remoteCount*2 < localCount
}
