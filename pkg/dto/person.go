package dto

import (
	"github.com/google/uuid"
)

type CreatePersonRequest struct {
	Name string `json:"name" binding:"required"`
	// SubjectID links the person to the remote recognition store's
	// subject; optional for people never trained remotely.
	SubjectID string `json:"subject_id"`
}

type PersonResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	SubjectID string    `json:"subject_id,omitempty"`
	FaceCount int       `json:"face_count"`
	CreatedAt string    `json:"created_at"`
}

type ConfirmFaceRequest struct {
	PersonID uuid.UUID `json:"person_id" binding:"required"`
}

type ReviewFaceResponse struct {
	ID                  uuid.UUID  `json:"id"`
	AssetID             uuid.UUID  `json:"asset_id"`
	BBox                [4]int     `json:"bbox"`
	DetectConfidence    float64    `json:"detect_confidence"`
	SuggestedPersonID   *uuid.UUID `json:"suggested_person_id,omitempty"`
	SuggestedConfidence *float64   `json:"suggested_confidence,omitempty"`
	ImagePath           string     `json:"image_path"`
	CreatedAt           string     `json:"created_at"`
}
