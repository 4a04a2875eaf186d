package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"smart-gallery/domain/models"
	"smart-gallery/domain/repositories"
)

type CategoryRepositoryImpl struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) repositories.CategoryRepository {
	return &CategoryRepositoryImpl{db: db}
}

func (r *CategoryRepositoryImpl) Create(ctx context.Context, category *models.Category) error {
	return r.db.WithContext(ctx).Create(category).Error
}

func (r *CategoryRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *CategoryRepositoryImpl) GetBySlug(ctx context.Context, slug string) (*models.Category, error) {
	return r.first(ctx, "slug = ?", slug)
}

func (r *CategoryRepositoryImpl) GetByName(ctx context.Context, name string) (*models.Category, error) {
	return r.first(ctx, "name = ?", name)
}

func (r *CategoryRepositoryImpl) List(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error
	return categories, err
}

func (r *CategoryRepositoryImpl) first(ctx context.Context, query string, arg interface{}) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).Where(query, arg).First(&category).Error; err != nil {
		return nil, notFound(err)
	}
	return &category, nil
}
