package models

import (
	"time"

	"github.com/google/uuid"
)

// Person is the local identity row. SubjectID is the remote recognition
// store's handle for this person; empty when the person was never trained
// remotely. FaceCount is an aggregate maintained by the reconciler.
type Person struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	SubjectID string    `json:"subject_id,omitempty" db:"subject_id"`
	FaceCount int       `json:"face_count" db:"face_count"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
