package repositories

import (
	"context"

	"github.com/google/uuid"

	"smart-gallery/domain/models"
)

type AttachmentRepository interface {
	Create(ctx context.Context, attachment *models.Attachment) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Attachment, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type ViewRepository interface {
	Increment(ctx context.Context, photoID uuid.UUID) (int64, error)
	Get(ctx context.Context, photoID uuid.UUID) (int64, error)
}
