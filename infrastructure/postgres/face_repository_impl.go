package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"smart-gallery/domain/models"
	"smart-gallery/domain/repositories"
)

type FaceRepositoryImpl struct {
	db *gorm.DB
}

func NewFaceRepository(db *gorm.DB) repositories.FaceRepository {
	return &FaceRepositoryImpl{db: db}
}

func (r *FaceRepositoryImpl) CreateBatch(ctx context.Context, faces []*models.Face) error {
	if len(faces) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(faces, 100).Error
}

func (r *FaceRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.Face, error) {
	var face models.Face
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&face).Error; err != nil {
		return nil, notFound(err)
	}
	return &face, nil
}

func (r *FaceRepositoryImpl) GetByPhoto(ctx context.Context, photoID uuid.UUID) ([]models.Face, error) {
	var faces []models.Face
	err := r.db.WithContext(ctx).
		Where("photo_id = ?", photoID).
		Order("created_at ASC, face_id ASC").
		Find(&faces).Error
	return faces, err
}

func (r *FaceRepositoryImpl) UpdatePersonName(ctx context.Context, id uuid.UUID, name *string) error {
	res := r.db.WithContext(ctx).Model(&models.Face{}).Where("id = ?", id).Update("person_name", name)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// ListPeople groups named faces by (face_id, person_name), most photos first.
func (r *FaceRepositoryImpl) ListPeople(ctx context.Context) ([]models.PersonSummary, error) {
	var people []models.PersonSummary
	err := r.db.WithContext(ctx).Model(&models.Face{}).
		Select("face_id, person_name, COUNT(*) AS photo_count").
		Where("person_name IS NOT NULL AND person_name <> ''").
		Group("face_id, person_name").
		Order("photo_count DESC").
		Scan(&people).Error
	return people, err
}
