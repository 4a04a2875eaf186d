package serviceimpl

import (
	"context"

	"github.com/google/uuid"

	"smart-gallery/domain/repositories"
	"smart-gallery/domain/services"
)

type RecommendationServiceImpl struct {
	photoRepo repositories.PhotoRepository
	tagRepo   repositories.TagRepository
}

func NewRecommendationService(photoRepo repositories.PhotoRepository, tagRepo repositories.TagRepository) services.RecommendationService {
	return &RecommendationServiceImpl{photoRepo: photoRepo, tagRepo: tagRepo}
}

// GetRelated ranks other published photos by how many distinct tag names they share
// with photoID. Photos sharing nothing are never returned.
func (s *RecommendationServiceImpl) GetRelated(ctx context.Context, photoID uuid.UUID, limit int) ([]services.RelatedPhoto, error) {
	if limit <= 0 {
		limit = services.DefaultRelatedLimit
	}
	if limit > services.MaxRelatedLimit {
		limit = services.MaxRelatedLimit
	}

	if _, err := s.photoRepo.GetByID(ctx, photoID); err != nil {
		return nil, photoLookupError(err)
	}

	names, err := s.tagRepo.GetNamesByPhoto(ctx, photoID)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return []services.RelatedPhoto{}, nil
	}

	hits, err := s.tagRepo.FindRelated(ctx, photoID, names, limit)
	if err != nil {
		return nil, err
	}

	related := make([]services.RelatedPhoto, 0, len(hits))
	for _, hit := range hits {
		related = append(related, services.RelatedPhoto{Photo: hit.Photo, SharedTags: hit.Matches})
	}
	return related, nil
}
