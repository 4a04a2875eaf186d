package repositories

import (
	"context"

	"github.com/google/uuid"

	"smart-gallery/domain/models"
)

type FaceRepository interface {
	CreateBatch(ctx context.Context, faces []*models.Face) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Face, error)
	GetByPhoto(ctx context.Context, photoID uuid.UUID) ([]models.Face, error)
	UpdatePersonName(ctx context.Context, id uuid.UUID, name *string) error
	ListPeople(ctx context.Context) ([]models.PersonSummary, error)
}
