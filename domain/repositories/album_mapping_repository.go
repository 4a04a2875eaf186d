package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"smart-gallery/domain/models"
)

type AlbumMappingRepository interface {
	// SaveListing upserts album titles and counts, keeping existing category links.
	SaveListing(ctx context.Context, albums []models.AlbumMapping) error
	GetByAlbumID(ctx context.Context, albumID string) (*models.AlbumMapping, error)
	SetCategory(ctx context.Context, albumID, title string, categoryID uuid.UUID, importedAt time.Time) error
	List(ctx context.Context) ([]models.AlbumMapping, error)
	ListMapped(ctx context.Context) ([]models.AlbumMapping, error)
}
