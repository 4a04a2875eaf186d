package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"smart-gallery/domain/models"
)

type PhotoFilter struct {
	Status           models.PhotoStatus
	EnrichmentStatus models.EnrichmentStatus
	CategoryID       *uuid.UUID
}

// PhotoSearch narrows published photos. Text matches titles, descriptions, tag names
// and keywords; Tags matches any of the given tag names; dates are YYYY-MM-DD.
type PhotoSearch struct {
	Text       string
	CategoryID *uuid.UUID
	DateFrom   string
	DateTo     string
	Tags       []string
}

type PhotoRepository interface {
	Create(ctx context.Context, photo *models.Photo) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Photo, error)
	GetByGooglePhotosMediaID(ctx context.Context, mediaID string) (*models.Photo, error)
	List(ctx context.Context, filter PhotoFilter, offset, limit int) ([]models.Photo, int64, error)
	Search(ctx context.Context, query PhotoSearch, offset, limit int) ([]models.Photo, int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.PhotoStatus) error

	// Delete removes the photo together with its tags, faces, links, view counter and
	// transition log.
	Delete(ctx context.Context, id uuid.UUID) error

	// TransitionEnrichment sets the enrichment status and appends a transition row,
	// returning the previous status.
	TransitionEnrichment(ctx context.Context, id uuid.UUID, to models.EnrichmentStatus, reason string) (models.EnrichmentStatus, error)
	// ClaimEnrichment moves the photo from one status to another only if it is still in
	// from, reporting whether this caller made the move.
	ClaimEnrichment(ctx context.Context, id uuid.UUID, from, to models.EnrichmentStatus, reason string) (bool, error)
	GetTransitions(ctx context.Context, id uuid.UUID) ([]models.EnrichmentTransition, error)
	// GetStale lists photos whose enrichment status has not changed since updatedBefore.
	GetStale(ctx context.Context, status models.EnrichmentStatus, updatedBefore time.Time) ([]models.Photo, error)
	CountByEnrichmentStatus(ctx context.Context) (map[models.EnrichmentStatus]int64, error)

	AttachCategory(ctx context.Context, photoID, categoryID uuid.UUID) error
	HasCategory(ctx context.Context, photoID, categoryID uuid.UUID) (bool, error)
	AttachKeyword(ctx context.Context, photoID, keywordID uuid.UUID) error
}
