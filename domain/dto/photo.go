package dto

import (
	"time"

	"github.com/google/uuid"

	"smart-gallery/domain/models"
)

// PhotoResponse is the DTO for photo API responses
type PhotoResponse struct {
	ID                  uuid.UUID               `json:"id"`
	AttachmentID        uuid.UUID               `json:"attachment_id"`
	Status              models.PhotoStatus      `json:"status"`
	Title               string                  `json:"title"`
	Description         string                  `json:"description,omitempty"`
	EventDate           string                  `json:"event_date,omitempty"`
	EventDateEnd        string                  `json:"event_date_end,omitempty"`
	Location            string                  `json:"location,omitempty"`
	Source              string                  `json:"source"`
	EnrichmentStatus    models.EnrichmentStatus `json:"enrichment_status"`
	EnrichmentUpdatedAt *time.Time              `json:"enrichment_updated_at,omitempty"`
	Categories          []CategoryResponse      `json:"categories"`
	CreatedAt           time.Time               `json:"created_at"`
	UpdatedAt           time.Time               `json:"updated_at"`
}

type CategoryResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

// RelatedPhotoResponse is one recommendation with the number of tags it shares with the source photo.
type RelatedPhotoResponse struct {
	Photo      PhotoResponse `json:"photo"`
	SharedTags int64         `json:"shared_tags"`
}

type AddTagRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// SetPersonRequest names the person behind a face. An empty name clears it.
type SetPersonRequest struct {
	Name string `json:"name" validate:"max=100"`
}

type ViewCountResponse struct {
	PhotoID uuid.UUID `json:"photo_id"`
	Views   int64     `json:"views"`
}

// UploadForm carries the non-file fields of a multipart photo upload.
type UploadForm struct {
	Title        string `form:"title" validate:"max=255"`
	Description  string `form:"description"`
	EventDate    string `form:"event_date" validate:"omitempty,datetime=2006-01-02"`
	EventDateEnd string `form:"event_date_end" validate:"omitempty,datetime=2006-01-02"`
	Location     string `form:"location" validate:"max=255"`
	Categories   string `form:"categories"` // comma separated category ids
}

// SearchParams are the query parameters of a photo search.
type SearchParams struct {
	Query    string `query:"q" validate:"max=255"`
	Category string `query:"category_id" validate:"omitempty,uuid"`
	DateFrom string `query:"date_from" validate:"omitempty,datetime=2006-01-02"`
	DateTo   string `query:"date_to" validate:"omitempty,datetime=2006-01-02"`
	Tags     string `query:"tags"` // comma separated tag names
	Page     int    `query:"page"`
	Limit    int    `query:"limit"`
}
