package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PhotoStatus string

const (
	PhotoStatusDraft     PhotoStatus = "draft"
	PhotoStatusPending   PhotoStatus = "pending"
	PhotoStatusPublished PhotoStatus = "published"
	PhotoStatusDeleted   PhotoStatus = "deleted"
)

// EnrichmentStatus tracks a photo through the vision enrichment state machine:
// unprocessed -> scheduled -> processing -> enriched | failed.
type EnrichmentStatus string

const (
	EnrichmentUnprocessed EnrichmentStatus = "unprocessed"
	EnrichmentScheduled   EnrichmentStatus = "scheduled"
	EnrichmentProcessing  EnrichmentStatus = "processing"
	EnrichmentEnriched    EnrichmentStatus = "enriched"
	EnrichmentFailed      EnrichmentStatus = "failed"
)

type Photo struct {
	ID           uuid.UUID   `gorm:"primaryKey;type:uuid" json:"id"`
	AttachmentID uuid.UUID   `gorm:"type:uuid;index" json:"attachment_id"`
	OwnerID      *uuid.UUID  `gorm:"type:uuid;index" json:"owner_id,omitempty"`
	Status       PhotoStatus `gorm:"size:20;not null;default:'draft';index" json:"status"`

	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	EventDate    string `gorm:"size:10" json:"event_date,omitempty"` // YYYY-MM-DD
	EventDateEnd string `gorm:"size:10" json:"event_date_end,omitempty"`
	Location     string `json:"location,omitempty"`

	// External media id of an imported Google Photos item; at most one photo per id.
	GooglePhotosMediaID *string `gorm:"uniqueIndex" json:"google_photos_media_id,omitempty"`

	EnrichmentStatus    EnrichmentStatus `gorm:"size:20;not null;default:'unprocessed';index" json:"enrichment_status"`
	EnrichmentUpdatedAt *time.Time       `json:"enrichment_updated_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Categories []Category `gorm:"many2many:photo_categories" json:"categories,omitempty"`
	Keywords   []Keyword  `gorm:"many2many:photo_keywords" json:"keywords,omitempty"`
}

func (Photo) TableName() string {
	return "photos"
}

func (p *Photo) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (p *Photo) IsPublished() bool {
	return p.Status == PhotoStatusPublished
}

// EnrichmentTransition is one row of the per-photo enrichment state log.
type EnrichmentTransition struct {
	ID        uuid.UUID        `gorm:"primaryKey;type:uuid" json:"id"`
	PhotoID   uuid.UUID        `gorm:"type:uuid;not null;index" json:"photo_id"`
	From      EnrichmentStatus `gorm:"column:from_status;size:20" json:"from"`
	To        EnrichmentStatus `gorm:"column:to_status;size:20" json:"to"`
	Reason    string           `json:"reason,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

func (EnrichmentTransition) TableName() string {
	return "enrichment_transitions"
}

func (t *EnrichmentTransition) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
