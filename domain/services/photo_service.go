package services

import (
	"context"
	"io"

	"github.com/google/uuid"

	"smart-gallery/domain/models"
	"smart-gallery/domain/repositories"
)

type UploadInput struct {
	Filename     string
	Size         int64
	Content      io.Reader
	Title        string
	Description  string
	EventDate    string
	EventDateEnd string
	Location     string
	CategoryIDs  []uuid.UUID
	OwnerID      *uuid.UUID
}

type PhotoService interface {
	Upload(ctx context.Context, input UploadInput) (*models.Photo, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Photo, error)
	List(ctx context.Context, filter repositories.PhotoFilter, page, limit int) ([]models.Photo, int64, error)
	// Search pages through published photos matching every non-empty field of query.
	Search(ctx context.Context, query repositories.PhotoSearch, page, limit int) ([]models.Photo, int64, error)
	Approve(ctx context.Context, id uuid.UUID) (*models.Photo, error)
	Reject(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error

	AddManualTag(ctx context.Context, photoID uuid.UUID, name string) (*models.Tag, error)
	// GetTags returns the unique manual and vision tag names of a photo.
	GetTags(ctx context.Context, photoID uuid.UUID) ([]string, error)
	// GetAITags returns vision labels ordered by confidence, highest first.
	GetAITags(ctx context.Context, photoID uuid.UUID) ([]models.Tag, error)
	GetFaces(ctx context.Context, photoID uuid.UUID) ([]models.Face, error)
	GetPeople(ctx context.Context) ([]models.PersonSummary, error)
	SetPersonName(ctx context.Context, faceID uuid.UUID, name string) (*models.Face, error)

	RecordView(ctx context.Context, photoID uuid.UUID) (int64, error)
	GetViewCount(ctx context.Context, photoID uuid.UUID) (int64, error)
}
