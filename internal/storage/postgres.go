package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/your-org/photovault/internal/config"
	"github.com/your-org/photovault/internal/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Media assets ---

// CreateAsset inserts an asset keyed by content hash. If a row with the
// same hash already exists the existing row is returned unchanged, so
// concurrent scans over duplicate files cannot create a second record.
func (s *PostgresStore) CreateAsset(ctx context.Context, hash, path string, size int64, mimeType string) (*models.MediaAsset, error) {
	a := &models.MediaAsset{
		ID:          uuid.New(),
		ContentHash: hash,
		SourcePath:  path,
		SizeBytes:   size,
		MimeType:    mimeType,
		Status:      models.AssetStatusPending,
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO media_assets (id, content_hash, source_path, size_bytes, mime_type, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (content_hash) DO UPDATE SET content_hash = EXCLUDED.content_hash
		 RETURNING id, source_path, size_bytes, mime_type, status, thumbnail_key, discovered_at, completed_at`,
		a.ID, a.ContentHash, a.SourcePath, a.SizeBytes, a.MimeType, a.Status,
	).Scan(&a.ID, &a.SourcePath, &a.SizeBytes, &a.MimeType, &a.Status, &a.ThumbnailKey, &a.DiscoveredAt, &a.CompletedAt)
	if err != nil {
		return nil, fmt.Errorf("create asset: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) GetAsset(ctx context.Context, id uuid.UUID) (*models.MediaAsset, error) {
	a := &models.MediaAsset{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, content_hash, source_path, size_bytes, mime_type, status, thumbnail_key, discovered_at, completed_at
		 FROM media_assets WHERE id = $1`, id,
	).Scan(&a.ID, &a.ContentHash, &a.SourcePath, &a.SizeBytes, &a.MimeType, &a.Status, &a.ThumbnailKey, &a.DiscoveredAt, &a.CompletedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get asset: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) GetAssetByHash(ctx context.Context, hash string) (*models.MediaAsset, error) {
	a := &models.MediaAsset{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, content_hash, source_path, size_bytes, mime_type, status, thumbnail_key, discovered_at, completed_at
		 FROM media_assets WHERE content_hash = $1`, hash,
	).Scan(&a.ID, &a.ContentHash, &a.SourcePath, &a.SizeBytes, &a.MimeType, &a.Status, &a.ThumbnailKey, &a.DiscoveredAt, &a.CompletedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get asset by hash: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) ListAssets(ctx context.Context, status *models.AssetStatus, limit, offset int) ([]models.MediaAsset, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	query := `SELECT id, content_hash, source_path, size_bytes, mime_type, status, thumbnail_key, discovered_at, completed_at
	          FROM media_assets`
	args := []interface{}{}
	if status != nil {
		query += ` WHERE status = $1 ORDER BY discovered_at DESC LIMIT $2 OFFSET $3`
		args = append(args, *status, limit, offset)
	} else {
		query += ` ORDER BY discovered_at DESC LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var assets []models.MediaAsset
	for rows.Next() {
		var a models.MediaAsset
		if err := rows.Scan(&a.ID, &a.ContentHash, &a.SourcePath, &a.SizeBytes, &a.MimeType, &a.Status, &a.ThumbnailKey, &a.DiscoveredAt, &a.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		assets = append(assets, a)
	}
	return assets, nil
}

func (s *PostgresStore) UpdateAssetStatus(ctx context.Context, id uuid.UUID, status models.AssetStatus) error {
	var completedAt *time.Time
	if status == models.AssetStatusCompleted || status == models.AssetStatusFailed {
		now := time.Now()
		completedAt = &now
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE media_assets SET status = $1, completed_at = $2 WHERE id = $3`,
		status, completedAt, id)
	if err != nil {
		return fmt.Errorf("update asset status: %w", err)
	}
	return nil
}

// MarkAssetProcessing moves a pending asset to processing. An asset
// already past pending (a concurrent handler finished it first) is left
// untouched, so a late or retried attempt can never regress a terminal
// status.
func (s *PostgresStore) MarkAssetProcessing(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE media_assets SET status = $1 WHERE id = $2 AND status = $3`,
		models.AssetStatusProcessing, id, models.AssetStatusPending)
	if err != nil {
		return fmt.Errorf("mark asset processing: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetAssetThumbnail(ctx context.Context, id uuid.UUID, key string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE media_assets SET thumbnail_key = $1 WHERE id = $2`, key, id)
	if err != nil {
		return fmt.Errorf("set asset thumbnail: %w", err)
	}
	return nil
}

// --- Faces ---

func (s *PostgresStore) CreateFace(ctx context.Context, assetID uuid.UUID, bbox [4]int, confidence float64, imagePath string) (*models.Face, error) {
	f := &models.Face{
		ID:               uuid.New(),
		AssetID:          assetID,
		BBox:             bbox,
		DetectConfidence: confidence,
		Method:           models.AssignMethodUnknown,
		ImagePath:        imagePath,
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO faces (id, asset_id, x1, y1, x2, y2, detect_confidence, method, image_path)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING created_at`,
		f.ID, f.AssetID, bbox[0], bbox[1], bbox[2], bbox[3], f.DetectConfidence, f.Method, f.ImagePath,
	).Scan(&f.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create face: %w", err)
	}
	return f, nil
}

func (s *PostgresStore) GetFace(ctx context.Context, id uuid.UUID) (*models.Face, error) {
	f := &models.Face{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, asset_id, x1, y1, x2, y2, detect_confidence, person_id, match_confidence, method,
		        suggested_person_id, suggested_confidence, image_path, created_at
		 FROM faces WHERE id = $1`, id,
	).Scan(&f.ID, &f.AssetID, &f.BBox[0], &f.BBox[1], &f.BBox[2], &f.BBox[3], &f.DetectConfidence,
		&f.PersonID, &f.MatchConfidence, &f.Method,
		&f.SuggestedPersonID, &f.SuggestedConfidence, &f.ImagePath, &f.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get face: %w", err)
	}
	return f, nil
}

// AssignFace links a face to a person. Match confidence is mandatory so
// an assignment can never exist without one.
func (s *PostgresStore) AssignFace(ctx context.Context, faceID, personID uuid.UUID, confidence float64, method models.AssignMethod) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE faces SET person_id = $1, match_confidence = $2, method = $3,
		        suggested_person_id = NULL, suggested_confidence = NULL
		 WHERE id = $4`,
		personID, confidence, method, faceID)
	if err != nil {
		return fmt.Errorf("assign face: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("face not found")
	}
	return nil
}

// SuggestFace marks a face as awaiting manual confirmation for a person.
func (s *PostgresStore) SuggestFace(ctx context.Context, faceID, personID uuid.UUID, confidence float64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE faces SET suggested_person_id = $1, suggested_confidence = $2
		 WHERE id = $3 AND person_id IS NULL`,
		personID, confidence, faceID)
	if err != nil {
		return fmt.Errorf("suggest face: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("face not found or already assigned")
	}
	return nil
}

func (s *PostgresStore) ClearSuggestion(ctx context.Context, faceID uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE faces SET suggested_person_id = NULL, suggested_confidence = NULL WHERE id = $1`,
		faceID)
	if err != nil {
		return fmt.Errorf("clear suggestion: %w", err)
	}
	return nil
}

// ListReviewFaces returns faces awaiting manual confirmation. The review
// queue is derived by query, not stored as its own entity.
func (s *PostgresStore) ListReviewFaces(ctx context.Context, limit int) ([]models.Face, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, asset_id, x1, y1, x2, y2, detect_confidence, person_id, match_confidence, method,
		        suggested_person_id, suggested_confidence, image_path, created_at
		 FROM faces
		 WHERE person_id IS NULL AND suggested_person_id IS NOT NULL
		 ORDER BY created_at ASC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list review faces: %w", err)
	}
	defer rows.Close()
	return scanFaces(rows)
}

func (s *PostgresStore) ListFacesByAsset(ctx context.Context, assetID uuid.UUID) ([]models.Face, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, asset_id, x1, y1, x2, y2, detect_confidence, person_id, match_confidence, method,
		        suggested_person_id, suggested_confidence, image_path, created_at
		 FROM faces WHERE asset_id = $1 ORDER BY created_at ASC`, assetID)
	if err != nil {
		return nil, fmt.Errorf("list faces by asset: %w", err)
	}
	defer rows.Close()
	return scanFaces(rows)
}

func (s *PostgresStore) ListAssignedFaces(ctx context.Context, personID uuid.UUID) ([]models.Face, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, asset_id, x1, y1, x2, y2, detect_confidence, person_id, match_confidence, method,
		        suggested_person_id, suggested_confidence, image_path, created_at
		 FROM faces WHERE person_id = $1 ORDER BY created_at ASC`, personID)
	if err != nil {
		return nil, fmt.Errorf("list assigned faces: %w", err)
	}
	defer rows.Close()
	return scanFaces(rows)
}

func (s *PostgresStore) CountAssignedFaces(ctx context.Context, personID uuid.UUID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM faces WHERE person_id = $1`, personID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count assigned faces: %w", err)
	}
	return count, nil
}

func scanFaces(rows pgx.Rows) ([]models.Face, error) {
	var faces []models.Face
	for rows.Next() {
		var f models.Face
		if err := rows.Scan(&f.ID, &f.AssetID, &f.BBox[0], &f.BBox[1], &f.BBox[2], &f.BBox[3],
			&f.DetectConfidence, &f.PersonID, &f.MatchConfidence, &f.Method,
			&f.SuggestedPersonID, &f.SuggestedConfidence, &f.ImagePath, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan face: %w", err)
		}
		faces = append(faces, f)
	}
	return faces, nil
}

// --- Persons ---

func (s *PostgresStore) CreatePerson(ctx context.Context, name, subjectID string) (*models.Person, error) {
	p := &models.Person{
		ID:        uuid.New(),
		Name:      name,
		SubjectID: subjectID,
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO persons (id, name, subject_id) VALUES ($1, $2, $3) RETURNING created_at, updated_at`,
		p.ID, p.Name, p.SubjectID,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create person: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) GetPerson(ctx context.Context, id uuid.UUID) (*models.Person, error) {
	p := &models.Person{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, subject_id, face_count, created_at, updated_at FROM persons WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.SubjectID, &p.FaceCount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get person: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) GetPersonBySubject(ctx context.Context, subjectID string) (*models.Person, error) {
	p := &models.Person{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, subject_id, face_count, created_at, updated_at FROM persons WHERE subject_id = $1`, subjectID,
	).Scan(&p.ID, &p.Name, &p.SubjectID, &p.FaceCount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get person by subject: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) ListPersons(ctx context.Context) ([]models.Person, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, subject_id, face_count, created_at, updated_at FROM persons ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list persons: %w", err)
	}
	defer rows.Close()

	var persons []models.Person
	for rows.Next() {
		var p models.Person
		if err := rows.Scan(&p.ID, &p.Name, &p.SubjectID, &p.FaceCount, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		persons = append(persons, p)
	}
	return persons, nil
}

func (s *PostgresStore) UpdatePersonFaceCount(ctx context.Context, id uuid.UUID, count int) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE persons SET face_count = $1, updated_at = NOW() WHERE id = $2`, count, id)
	if err != nil {
		return fmt.Errorf("update person face count: %w", err)
	}
	return nil
}
