package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"smart-gallery/domain/models"
	"smart-gallery/domain/repositories"
)

type AttachmentRepositoryImpl struct {
	db *gorm.DB
}

func NewAttachmentRepository(db *gorm.DB) repositories.AttachmentRepository {
	return &AttachmentRepositoryImpl{db: db}
}

func (r *AttachmentRepositoryImpl) Create(ctx context.Context, attachment *models.Attachment) error {
	return r.db.WithContext(ctx).Create(attachment).Error
}

func (r *AttachmentRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.Attachment, error) {
	var attachment models.Attachment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&attachment).Error; err != nil {
		return nil, notFound(err)
	}
	return &attachment, nil
}

func (r *AttachmentRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Attachment{}).Error
}

type ViewRepositoryImpl struct {
	db *gorm.DB
}

func NewViewRepository(db *gorm.DB) repositories.ViewRepository {
	return &ViewRepositoryImpl{db: db}
}

func (r *ViewRepositoryImpl) Increment(ctx context.Context, photoID uuid.UUID) (int64, error) {
	now := time.Now()
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "photo_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"view_count":  gorm.Expr("photo_views.view_count + 1"),
			"last_viewed": now,
		}),
	}).Create(&models.PhotoView{PhotoID: photoID, ViewCount: 1, LastViewed: now}).Error
	if err != nil {
		return 0, err
	}
	return r.Get(ctx, photoID)
}

func (r *ViewRepositoryImpl) Get(ctx context.Context, photoID uuid.UUID) (int64, error) {
	var view models.PhotoView
	err := r.db.WithContext(ctx).Where("photo_id = ?", photoID).Limit(1).Find(&view).Error
	return view.ViewCount, err
}
