package repositories

import (
	"context"

	"github.com/google/uuid"

	"smart-gallery/domain/models"
)

// RelatedPhoto is one recommender hit: a published photo and its shared tag count.
type RelatedPhoto struct {
	Photo   models.Photo
	Matches int64
}

type TagRepository interface {
	// CreateIfAbsent inserts the tag unless (photo_id, name, type) already exists.
	CreateIfAbsent(ctx context.Context, tag *models.Tag) (bool, error)
	GetByPhoto(ctx context.Context, photoID uuid.UUID) ([]models.Tag, error)
	GetByPhotoAndType(ctx context.Context, photoID uuid.UUID, tagType models.TagType) ([]models.Tag, error)
	GetNamesByPhoto(ctx context.Context, photoID uuid.UUID) ([]string, error)
	FindRelated(ctx context.Context, photoID uuid.UUID, names []string, limit int) ([]RelatedPhoto, error)
}

type KeywordRepository interface {
	FirstOrCreate(ctx context.Context, name string) (*models.Keyword, error)
}
