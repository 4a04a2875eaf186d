package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TagType string

const (
	TagTypeLabel  TagType = "label"
	TagTypeManual TagType = "manual"
)

// MinLabelConfidence is the lowest confidence (0-100) at which a vision label is stored.
const MinLabelConfidence = 60.0

type Tag struct {
	ID         uuid.UUID `gorm:"primaryKey;type:uuid" json:"id"`
	PhotoID    uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_tags_photo_name_type" json:"photo_id"`
	Name       string    `gorm:"not null;index;uniqueIndex:idx_tags_photo_name_type" json:"name"`
	Type       TagType   `gorm:"size:20;not null;uniqueIndex:idx_tags_photo_name_type" json:"type"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Tag) TableName() string {
	return "tags"
}

func (t *Tag) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Keyword is the free-text tag vocabulary shared by manual tags and accepted vision labels.
type Keyword struct {
	ID        uuid.UUID `gorm:"primaryKey;type:uuid" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func (Keyword) TableName() string {
	return "keywords"
}

func (k *Keyword) BeforeCreate(tx *gorm.DB) error {
	if k.ID == uuid.Nil {
		k.ID = uuid.New()
	}
	return nil
}
