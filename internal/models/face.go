package models

import (
	"time"

	"github.com/google/uuid"
)

type AssignMethod string

const (
	AssignMethodManual  AssignMethod = "manual"
	AssignMethodAuto    AssignMethod = "auto"
	AssignMethodUnknown AssignMethod = "unknown"
)

// Face is a detected face within a MediaAsset. PersonID is set once the
// face is assigned; MatchConfidence must be present whenever PersonID is.
// A face with a suggested person but no assignment is awaiting manual
// review.
type Face struct {
	ID                  uuid.UUID    `json:"id" db:"id"`
	AssetID             uuid.UUID    `json:"asset_id" db:"asset_id"`
	BBox                [4]int       `json:"bbox" db:"bbox"` // x1, y1, x2, y2
	DetectConfidence    float64      `json:"detect_confidence" db:"detect_confidence"`
	PersonID            *uuid.UUID   `json:"person_id,omitempty" db:"person_id"`
	MatchConfidence     *float64     `json:"match_confidence,omitempty" db:"match_confidence"`
	Method              AssignMethod `json:"method" db:"method"`
	SuggestedPersonID   *uuid.UUID   `json:"suggested_person_id,omitempty" db:"suggested_person_id"`
	SuggestedConfidence *float64     `json:"suggested_confidence,omitempty" db:"suggested_confidence"`
	ImagePath           string       `json:"image_path" db:"image_path"`
	CreatedAt           time.Time    `json:"created_at" db:"created_at"`
}
