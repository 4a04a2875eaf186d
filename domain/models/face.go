package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Vertex is one corner of a face bounding polygon, in pixels.
type Vertex struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Face struct {
	ID          uuid.UUID `gorm:"primaryKey;type:uuid" json:"id"`
	PhotoID     uuid.UUID `gorm:"type:uuid;not null;index" json:"photo_id"`
	FaceID      string    `gorm:"not null;index" json:"face_id"`
	PersonName  *string   `gorm:"index" json:"person_name,omitempty"`
	BoundingBox []Vertex  `gorm:"serializer:json;type:text" json:"bounding_box"`
	Confidence  float64   `json:"confidence"` // 0-100
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Face) TableName() string {
	return "faces"
}

func (f *Face) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

// FaceIdentifier derives the stable id of the index-th face found in one detection call.
func FaceIdentifier(photoID, attachmentID uuid.UUID, index int) string {
	return fmt.Sprintf("face_%s_%s_%d", photoID, attachmentID, index)
}

// PersonSummary is a derived row: faces grouped by (face_id, person_name).
type PersonSummary struct {
	FaceID     string `json:"face_id"`
	PersonName string `json:"person_name"`
	PhotoCount int64  `json:"photo_count"`
}
