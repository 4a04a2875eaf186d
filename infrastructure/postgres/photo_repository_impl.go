package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"smart-gallery/domain/models"
	"smart-gallery/domain/repositories"
)

type PhotoRepositoryImpl struct {
	db *gorm.DB
}

func NewPhotoRepository(db *gorm.DB) repositories.PhotoRepository {
	return &PhotoRepositoryImpl{db: db}
}

func (r *PhotoRepositoryImpl) Create(ctx context.Context, photo *models.Photo) error {
	return r.db.WithContext(ctx).Omit("Categories.*", "Keywords.*").Create(photo).Error
}

func (r *PhotoRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.Photo, error) {
	var photo models.Photo
	err := r.db.WithContext(ctx).Preload("Categories").Where("id = ?", id).First(&photo).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &photo, nil
}

func (r *PhotoRepositoryImpl) GetByGooglePhotosMediaID(ctx context.Context, mediaID string) (*models.Photo, error) {
	var photo models.Photo
	err := r.db.WithContext(ctx).Where("google_photos_media_id = ?", mediaID).First(&photo).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &photo, nil
}

func (r *PhotoRepositoryImpl) List(ctx context.Context, filter repositories.PhotoFilter, offset, limit int) ([]models.Photo, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		if filter.Status != "" {
			db = db.Where("photos.status = ?", filter.Status)
		}
		if filter.EnrichmentStatus != "" {
			db = db.Where("photos.enrichment_status = ?", filter.EnrichmentStatus)
		}
		if filter.CategoryID != nil {
			db = db.Joins("JOIN photo_categories ON photo_categories.photo_id = photos.id").
				Where("photo_categories.category_id = ?", *filter.CategoryID)
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Photo{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var photos []models.Photo
	err := r.db.WithContext(ctx).
		Scopes(scope).
		Preload("Categories").
		Order("photos.created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&photos).Error
	return photos, total, err
}

// Search only returns published photos, newest first.
func (r *PhotoRepositoryImpl) Search(ctx context.Context, query repositories.PhotoSearch, offset, limit int) ([]models.Photo, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		db = db.Where("photos.status = ?", models.PhotoStatusPublished)

		if query.Text != "" {
			like := "%" + escapeLike(strings.ToLower(query.Text)) + "%"
			tagged := r.db.Table("tags").Select("photo_id").
				Where(`LOWER(name) LIKE ? ESCAPE '\'`, like)
			keyworded := r.db.Table("photo_keywords").Select("photo_keywords.photo_id").
				Joins("JOIN keywords ON keywords.id = photo_keywords.keyword_id").
				Where(`LOWER(keywords.name) LIKE ? ESCAPE '\'`, like)
			db = db.Where(
				`(LOWER(photos.title) LIKE ? ESCAPE '\' OR LOWER(photos.description) LIKE ? ESCAPE '\' OR photos.id IN (?) OR photos.id IN (?))`,
				like, like, tagged, keyworded,
			)
		}

		if query.CategoryID != nil {
			db = db.Where("photos.id IN (?)", r.db.Table("photo_categories").Select("photo_id").
				Where("category_id = ?", *query.CategoryID))
		}

		switch {
		case query.DateFrom != "" && query.DateTo != "":
			db = db.Where("(photos.event_date BETWEEN ? AND ? OR photos.event_date_end BETWEEN ? AND ?)",
				query.DateFrom, query.DateTo, query.DateFrom, query.DateTo)
		case query.DateFrom != "":
			db = db.Where("photos.event_date >= ?", query.DateFrom)
		case query.DateTo != "":
			db = db.Where("photos.event_date <> '' AND photos.event_date <= ?", query.DateTo)
		}

		if len(query.Tags) > 0 {
			names := make([]string, len(query.Tags))
			for i, name := range query.Tags {
				names[i] = strings.ToLower(name)
			}
			db = db.Where("photos.id IN (?)", r.db.Table("tags").Select("photo_id").
				Where("LOWER(name) IN ?", names))
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Photo{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var photos []models.Photo
	err := r.db.WithContext(ctx).
		Scopes(scope).
		Preload("Categories").
		Order("photos.created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&photos).Error
	return photos, total, err
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s)
}

func (r *PhotoRepositoryImpl) UpdateStatus(ctx context.Context, id uuid.UUID, status models.PhotoStatus) error {
	res := r.db.WithContext(ctx).Model(&models.Photo{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *PhotoRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cleanup := []string{
			"DELETE FROM tags WHERE photo_id = ?",
			"DELETE FROM faces WHERE photo_id = ?",
			"DELETE FROM photo_categories WHERE photo_id = ?",
			"DELETE FROM photo_keywords WHERE photo_id = ?",
			"DELETE FROM photo_views WHERE photo_id = ?",
			"DELETE FROM enrichment_transitions WHERE photo_id = ?",
		}
		for _, stmt := range cleanup {
			if err := tx.Exec(stmt, id).Error; err != nil {
				return err
			}
		}

		res := tx.Where("id = ?", id).Delete(&models.Photo{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repositories.ErrNotFound
		}
		return nil
	})
}

func (r *PhotoRepositoryImpl) TransitionEnrichment(ctx context.Context, id uuid.UUID, to models.EnrichmentStatus, reason string) (models.EnrichmentStatus, error) {
	var from models.EnrichmentStatus
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var photo models.Photo
		if err := tx.Select("id", "enrichment_status").Where("id = ?", id).First(&photo).Error; err != nil {
			return notFound(err)
		}
		from = photo.EnrichmentStatus

		now := time.Now()
		if err := tx.Model(&models.Photo{}).Where("id = ?", id).Updates(map[string]interface{}{
			"enrichment_status":     to,
			"enrichment_updated_at": now,
		}).Error; err != nil {
			return err
		}

		return tx.Create(&models.EnrichmentTransition{
			PhotoID: id,
			From:    from,
			To:      to,
			Reason:  reason,
		}).Error
	})
	return from, err
}

func (r *PhotoRepositoryImpl) ClaimEnrichment(ctx context.Context, id uuid.UUID, from, to models.EnrichmentStatus, reason string) (bool, error) {
	claimed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Photo{}).
			Where("id = ? AND enrichment_status = ?", id, from).
			Updates(map[string]interface{}{
				"enrichment_status":     to,
				"enrichment_updated_at": time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		claimed = true

		return tx.Create(&models.EnrichmentTransition{
			PhotoID: id,
			From:    from,
			To:      to,
			Reason:  reason,
		}).Error
	})
	return claimed, err
}

func (r *PhotoRepositoryImpl) GetTransitions(ctx context.Context, id uuid.UUID) ([]models.EnrichmentTransition, error) {
	var transitions []models.EnrichmentTransition
	err := r.db.WithContext(ctx).
		Where("photo_id = ?", id).
		Order("created_at ASC").
		Find(&transitions).Error
	return transitions, err
}

func (r *PhotoRepositoryImpl) GetStale(ctx context.Context, status models.EnrichmentStatus, updatedBefore time.Time) ([]models.Photo, error) {
	var photos []models.Photo
	err := r.db.WithContext(ctx).
		Where("enrichment_status = ? AND enrichment_updated_at < ?", status, updatedBefore).
		Find(&photos).Error
	return photos, err
}

func (r *PhotoRepositoryImpl) CountByEnrichmentStatus(ctx context.Context) (map[models.EnrichmentStatus]int64, error) {
	var rows []struct {
		EnrichmentStatus models.EnrichmentStatus
		Total            int64
	}
	err := r.db.WithContext(ctx).Model(&models.Photo{}).
		Select("enrichment_status, COUNT(*) AS total").
		Group("enrichment_status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[models.EnrichmentStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.EnrichmentStatus] = row.Total
	}
	return counts, nil
}

func (r *PhotoRepositoryImpl) AttachCategory(ctx context.Context, photoID, categoryID uuid.UUID) error {
	return r.attach(ctx, "photo_categories", "category_id", photoID, categoryID)
}

func (r *PhotoRepositoryImpl) HasCategory(ctx context.Context, photoID, categoryID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Table("photo_categories").
		Where("photo_id = ? AND category_id = ?", photoID, categoryID).
		Count(&count).Error
	return count > 0, err
}

func (r *PhotoRepositoryImpl) AttachKeyword(ctx context.Context, photoID, keywordID uuid.UUID) error {
	return r.attach(ctx, "photo_keywords", "keyword_id", photoID, keywordID)
}

// attach inserts a join row unless it already exists.
func (r *PhotoRepositoryImpl) attach(ctx context.Context, table, column string, photoID, otherID uuid.UUID) error {
	var count int64
	if err := r.db.WithContext(ctx).Table(table).
		Where("photo_id = ? AND "+column+" = ?", photoID, otherID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return r.db.WithContext(ctx).Table(table).Create(map[string]interface{}{
		"photo_id": photoID,
		column:     otherID,
	}).Error
}
