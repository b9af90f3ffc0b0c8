package dto

import (
	"github.com/google/uuid"
)

type AssetResponse struct {
	ID           uuid.UUID `json:"id"`
	ContentHash  string    `json:"content_hash"`
	SourcePath   string    `json:"source_path"`
	SizeBytes    int64     `json:"size_bytes"`
	MimeType     string    `json:"mime_type"`
	Status       string    `json:"status"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	DiscoveredAt string    `json:"discovered_at"`
	CompletedAt  string    `json:"completed_at,omitempty"`
}
