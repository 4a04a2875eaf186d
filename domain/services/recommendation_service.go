package services

import (
	"context"

	"github.com/google/uuid"

	"smart-gallery/domain/models"
)

const (
	DefaultRelatedLimit = 12
	MaxRelatedLimit     = 50
)

type RelatedPhoto struct {
	Photo      models.Photo `json:"photo"`
	SharedTags int64        `json:"shared_tags"`
}

type RecommendationService interface {
	GetRelated(ctx context.Context, photoID uuid.UUID, limit int) ([]RelatedPhoto, error)
}
