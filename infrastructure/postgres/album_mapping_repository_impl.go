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

type AlbumMappingRepositoryImpl struct {
	db *gorm.DB
}

func NewAlbumMappingRepository(db *gorm.DB) repositories.AlbumMappingRepository {
	return &AlbumMappingRepositoryImpl{db: db}
}

func (r *AlbumMappingRepositoryImpl) SaveListing(ctx context.Context, albums []models.AlbumMapping) error {
	if len(albums) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "album_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "media_items_count", "cover_photo_base_url", "synced_at"}),
	}).CreateInBatches(albums, 100).Error
}

func (r *AlbumMappingRepositoryImpl) GetByAlbumID(ctx context.Context, albumID string) (*models.AlbumMapping, error) {
	var mapping models.AlbumMapping
	if err := r.db.WithContext(ctx).Where("album_id = ?", albumID).First(&mapping).Error; err != nil {
		return nil, notFound(err)
	}
	return &mapping, nil
}

func (r *AlbumMappingRepositoryImpl) SetCategory(ctx context.Context, albumID, title string, categoryID uuid.UUID, importedAt time.Time) error {
	mapping := models.AlbumMapping{
		AlbumID:        albumID,
		Title:          title,
		CategoryID:     &categoryID,
		LastImportedAt: &importedAt,
		SyncedAt:       importedAt,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "album_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"category_id", "last_imported_at"}),
	}).Create(&mapping).Error
}

func (r *AlbumMappingRepositoryImpl) List(ctx context.Context) ([]models.AlbumMapping, error) {
	var mappings []models.AlbumMapping
	err := r.db.WithContext(ctx).Order("title ASC").Find(&mappings).Error
	return mappings, err
}

func (r *AlbumMappingRepositoryImpl) ListMapped(ctx context.Context) ([]models.AlbumMapping, error) {
	var mappings []models.AlbumMapping
	err := r.db.WithContext(ctx).
		Where("category_id IS NOT NULL").
		Order("title ASC").
		Find(&mappings).Error
	return mappings, err
}
