package models

import (
	"time"

	"github.com/google/uuid"
)

type AssetStatus string

const (
	AssetStatusPending    AssetStatus = "pending"
	AssetStatusProcessing AssetStatus = "processing"
	AssetStatusCompleted  AssetStatus = "completed"
	AssetStatusFailed     AssetStatus = "failed"
)

// MediaAsset is one media file identified by its content hash. Re-scanning
// the same bytes under a different path must not create a second row.
type MediaAsset struct {
	ID           uuid.UUID   `json:"id" db:"id"`
	ContentHash  string      `json:"content_hash" db:"content_hash"`
	SourcePath   string      `json:"source_path" db:"source_path"`
	SizeBytes    int64       `json:"size_bytes" db:"size_bytes"`
	MimeType     string      `json:"mime_type" db:"mime_type"`
	Status       AssetStatus `json:"status" db:"status"`
	ThumbnailKey string      `json:"thumbnail_key,omitempty" db:"thumbnail_key"`
	DiscoveredAt time.Time   `json:"discovered_at" db:"discovered_at"`
	CompletedAt  *time.Time  `json:"completed_at,omitempty" db:"completed_at"`
}
