package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"smart-gallery/domain/models"
	"smart-gallery/domain/repositories"
)

type TagRepositoryImpl struct {
	db *gorm.DB
}

func NewTagRepository(db *gorm.DB) repositories.TagRepository {
	return &TagRepositoryImpl{db: db}
}

func (r *TagRepositoryImpl) CreateIfAbsent(ctx context.Context, tag *models.Tag) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(tag)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *TagRepositoryImpl) GetByPhoto(ctx context.Context, photoID uuid.UUID) ([]models.Tag, error) {
	var tags []models.Tag
	err := r.db.WithContext(ctx).
		Where("photo_id = ?", photoID).
		Order("confidence DESC, name ASC").
		Find(&tags).Error
	return tags, err
}

func (r *TagRepositoryImpl) GetByPhotoAndType(ctx context.Context, photoID uuid.UUID, tagType models.TagType) ([]models.Tag, error) {
	var tags []models.Tag
	err := r.db.WithContext(ctx).
		Where("photo_id = ? AND type = ?", photoID, tagType).
		Order("confidence DESC, name ASC").
		Find(&tags).Error
	return tags, err
}

func (r *TagRepositoryImpl) GetNamesByPhoto(ctx context.Context, photoID uuid.UUID) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).Model(&models.Tag{}).
		Where("photo_id = ?", photoID).
		Distinct("name").
		Order("name ASC").
		Pluck("name", &names).Error
	return names, err
}

// FindRelated ranks published photos other than photoID by how many of names they share.
func (r *TagRepositoryImpl) FindRelated(ctx context.Context, photoID uuid.UUID, names []string, limit int) ([]repositories.RelatedPhoto, error) {
	if len(names) == 0 || limit <= 0 {
		return nil, nil
	}

	var rows []struct {
		PhotoID uuid.UUID
		Matches int64
	}
	err := r.db.WithContext(ctx).Table("tags").
		Select("tags.photo_id AS photo_id, COUNT(DISTINCT tags.name) AS matches").
		Joins("JOIN photos ON photos.id = tags.photo_id").
		Where("tags.photo_id <> ? AND tags.name IN ? AND photos.status = ?", photoID, names, models.PhotoStatusPublished).
		Group("tags.photo_id, photos.created_at").
		Order("matches DESC, photos.created_at DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, len(rows))
	for i, row := range rows {
		ids[i] = row.PhotoID
	}

	var photos []models.Photo
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&photos).Error; err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.Photo, len(photos))
	for _, p := range photos {
		byID[p.ID] = p
	}

	related := make([]repositories.RelatedPhoto, 0, len(rows))
	for _, row := range rows {
		photo, ok := byID[row.PhotoID]
		if !ok {
			continue
		}
		related = append(related, repositories.RelatedPhoto{Photo: photo, Matches: row.Matches})
	}
	return related, nil
}

type KeywordRepositoryImpl struct {
	db *gorm.DB
}

func NewKeywordRepository(db *gorm.DB) repositories.KeywordRepository {
	return &KeywordRepositoryImpl{db: db}
}

func (r *KeywordRepositoryImpl) FirstOrCreate(ctx context.Context, name string) (*models.Keyword, error) {
	var keyword models.Keyword
	err := r.db.WithContext(ctx).
		Where(models.Keyword{Name: name}).
		FirstOrCreate(&keyword).Error
	if err != nil {
		return nil, err
	}
	return &keyword, nil
}
