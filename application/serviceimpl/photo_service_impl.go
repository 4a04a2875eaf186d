package serviceimpl

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "golang.org/x/image/webp"

	"smart-gallery/domain/models"
	"smart-gallery/domain/repositories"
	"smart-gallery/domain/services"
	"smart-gallery/infrastructure/storage"
	"smart-gallery/pkg/logger"
)

// MaxUploadSize caps a single user upload.
const MaxUploadSize = 10 << 20

var allowedUploadExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

type PhotoServiceImpl struct {
	photoRepo   repositories.PhotoRepository
	tagRepo     repositories.TagRepository
	keywordRepo repositories.KeywordRepository
	faceRepo    repositories.FaceRepository
	viewRepo    repositories.ViewRepository
	settings    services.SettingsService
	store       storage.MediaStore
	enrichment  services.EnrichmentService
}

func NewPhotoService(
	photoRepo repositories.PhotoRepository,
	tagRepo repositories.TagRepository,
	keywordRepo repositories.KeywordRepository,
	faceRepo repositories.FaceRepository,
	viewRepo repositories.ViewRepository,
	settings services.SettingsService,
	store storage.MediaStore,
	enrichment services.EnrichmentService,
) services.PhotoService {
	return &PhotoServiceImpl{
		photoRepo:   photoRepo,
		tagRepo:     tagRepo,
		keywordRepo: keywordRepo,
		faceRepo:    faceRepo,
		viewRepo:    viewRepo,
		settings:    settings,
		store:       store,
		enrichment:  enrichment,
	}
}

func (s *PhotoServiceImpl) Upload(ctx context.Context, input services.UploadInput) (*models.Photo, error) {
	if !s.settings.IsFeatureEnabled(ctx, services.FeatureUserUploads) {
		return nil, services.ErrUploadsDisabled
	}

	ext := strings.ToLower(filepath.Ext(input.Filename))
	if !allowedUploadExtensions[ext] {
		return nil, fmt.Errorf("%w: file type %q is not allowed", services.ErrInvalidUpload, ext)
	}
	if input.Size > MaxUploadSize {
		return nil, fmt.Errorf("%w: file exceeds %d MB", services.ErrInvalidUpload, MaxUploadSize>>20)
	}
	for _, date := range []string{input.EventDate, input.EventDateEnd} {
		if date == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", date); err != nil {
			return nil, fmt.Errorf("%w: date %q must be YYYY-MM-DD", services.ErrInvalidUpload, date)
		}
	}

	tempPath, err := spoolUpload(input.Content)
	if err != nil {
		return nil, err
	}
	if err := validateImage(tempPath); err != nil {
		os.Remove(tempPath)
		return nil, err
	}

	attachmentID, err := s.store.StoreDownloadedImage(ctx, tempPath, input.Filename)
	if err != nil {
		os.Remove(tempPath)
		return nil, err
	}

	status := models.PhotoStatusPublished
	if isTruthy(s.settings.GetSetting(ctx, services.SettingModerateUploads, "1")) {
		status = models.PhotoStatusPending
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(input.Filename), filepath.Ext(input.Filename))
	}

	photo := &models.Photo{
		AttachmentID: attachmentID,
		OwnerID:      input.OwnerID,
		Status:       status,
		Title:        title,
		Description:  strings.TrimSpace(input.Description),
		EventDate:    input.EventDate,
		EventDateEnd: input.EventDateEnd,
		Location:     strings.TrimSpace(input.Location),
	}
	if err := s.photoRepo.Create(ctx, photo); err != nil {
		s.store.Delete(ctx, attachmentID)
		return nil, fmt.Errorf("failed to create photo: %w", err)
	}

	for _, categoryID := range input.CategoryIDs {
		if err := s.photoRepo.AttachCategory(ctx, photo.ID, categoryID); err != nil {
			logger.Error(logger.CategoryAPI, "category_link_failed", "Failed to attach category", err, map[string]interface{}{
				"photo_id":    photo.ID.String(),
				"category_id": categoryID.String(),
			})
		}
	}

	if s.settings.IsFeatureEnabled(ctx, services.FeatureAITagging) || s.settings.IsFeatureEnabled(ctx, services.FeatureFaceDetection) {
		if err := s.enrichment.Schedule(ctx, photo.ID, attachmentID); err != nil {
			logger.EnrichmentError("schedule_failed", "Failed to schedule enrichment for upload", err, map[string]interface{}{
				"photo_id": photo.ID.String(),
			})
		}
	}

	logger.Info(logger.CategoryAPI, "photo_uploaded", "Photo uploaded", map[string]interface{}{
		"photo_id": photo.ID.String(),
		"status":   status,
	})
	return s.photoRepo.GetByID(ctx, photo.ID)
}

// spoolUpload copies at most MaxUploadSize bytes of r into a temp file.
func spoolUpload(r io.Reader) (string, error) {
	if r == nil {
		return "", fmt.Errorf("%w: empty upload", services.ErrInvalidUpload)
	}

	tmp, err := os.CreateTemp("", "upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	n, err := io.Copy(tmp, io.LimitReader(r, MaxUploadSize+1))
	tmp.Close()

	switch {
	case err != nil:
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to read upload: %w", err)
	case n == 0:
		os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: empty upload", services.ErrInvalidUpload)
	case n > MaxUploadSize:
		os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: file exceeds %d MB", services.ErrInvalidUpload, MaxUploadSize>>20)
	}
	return tmp.Name(), nil
}

// validateImage checks the sniffed type and that the header decodes as an image.
func validateImage(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	head := make([]byte, 512)
	n, _ := io.ReadFull(f, head)
	if mimeType := http.DetectContentType(head[:n]); !strings.HasPrefix(mimeType, "image/") {
		return fmt.Errorf("%w: content type %s is not an image", services.ErrInvalidUpload, mimeType)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, _, err := image.DecodeConfig(f); err != nil {
		return fmt.Errorf("%w: %v", services.ErrInvalidUpload, err)
	}
	return nil
}

func (s *PhotoServiceImpl) Get(ctx context.Context, id uuid.UUID) (*models.Photo, error) {
	photo, err := s.photoRepo.GetByID(ctx, id)
	if err != nil {
		return nil, photoLookupError(err)
	}
	return photo, nil
}

func (s *PhotoServiceImpl) List(ctx context.Context, filter repositories.PhotoFilter, page, limit int) ([]models.Photo, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.photoRepo.List(ctx, filter, (page-1)*limit, limit)
}

func (s *PhotoServiceImpl) Search(ctx context.Context, query repositories.PhotoSearch, page, limit int) ([]models.Photo, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query.Text = strings.TrimSpace(query.Text)
	tags := make([]string, 0, len(query.Tags))
	for _, name := range query.Tags {
		if name = strings.TrimSpace(name); name != "" {
			tags = append(tags, name)
		}
	}
	query.Tags = tags

	photos, total, err := s.photoRepo.Search(ctx, query, (page-1)*limit, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search photos: %w", err)
	}
	return photos, total, nil
}

func (s *PhotoServiceImpl) Approve(ctx context.Context, id uuid.UUID) (*models.Photo, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.photoRepo.UpdateStatus(ctx, id, models.PhotoStatusPublished); err != nil {
		return nil, fmt.Errorf("failed to approve photo: %w", err)
	}
	logger.Info(logger.CategoryAPI, "photo_approved", "Photo approved", map[string]interface{}{"photo_id": id.String()})
	return s.Get(ctx, id)
}

// Reject discards a pending upload entirely.
func (s *PhotoServiceImpl) Reject(ctx context.Context, id uuid.UUID) error {
	if err := s.Delete(ctx, id); err != nil {
		return err
	}
	logger.Info(logger.CategoryAPI, "photo_rejected", "Photo rejected", map[string]interface{}{"photo_id": id.String()})
	return nil
}

func (s *PhotoServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	photo, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.photoRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete photo: %w", err)
	}
	if err := s.store.Delete(ctx, photo.AttachmentID); err != nil {
		logger.StorageError("delete_failed", "Failed to delete photo binary", err, map[string]interface{}{
			"photo_id":      id.String(),
			"attachment_id": photo.AttachmentID.String(),
		})
	}
	return nil
}

func (s *PhotoServiceImpl) AddManualTag(ctx context.Context, photoID uuid.UUID, name string) (*models.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, services.ErrInvalidTag
	}
	if _, err := s.Get(ctx, photoID); err != nil {
		return nil, err
	}

	tag := &models.Tag{PhotoID: photoID, Name: name, Type: models.TagTypeManual, Confidence: 100}
	if _, err := s.tagRepo.CreateIfAbsent(ctx, tag); err != nil {
		return nil, fmt.Errorf("failed to add tag: %w", err)
	}

	keyword, err := s.keywordRepo.FirstOrCreate(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to register keyword: %w", err)
	}
	if err := s.photoRepo.AttachKeyword(ctx, photoID, keyword.ID); err != nil {
		return nil, fmt.Errorf("failed to link keyword: %w", err)
	}
	return tag, nil
}

func (s *PhotoServiceImpl) GetTags(ctx context.Context, photoID uuid.UUID) ([]string, error) {
	if _, err := s.Get(ctx, photoID); err != nil {
		return nil, err
	}
	names, err := s.tagRepo.GetNamesByPhoto(ctx, photoID)
	if err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

func (s *PhotoServiceImpl) GetAITags(ctx context.Context, photoID uuid.UUID) ([]models.Tag, error) {
	if _, err := s.Get(ctx, photoID); err != nil {
		return nil, err
	}
	return s.tagRepo.GetByPhotoAndType(ctx, photoID, models.TagTypeLabel)
}

func (s *PhotoServiceImpl) GetFaces(ctx context.Context, photoID uuid.UUID) ([]models.Face, error) {
	if _, err := s.Get(ctx, photoID); err != nil {
		return nil, err
	}
	return s.faceRepo.GetByPhoto(ctx, photoID)
}

func (s *PhotoServiceImpl) GetPeople(ctx context.Context) ([]models.PersonSummary, error) {
	return s.faceRepo.ListPeople(ctx)
}

// SetPersonName labels a face; an empty name clears the label.
func (s *PhotoServiceImpl) SetPersonName(ctx context.Context, faceID uuid.UUID, name string) (*models.Face, error) {
	var value *string
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		value = &trimmed
	}

	if err := s.faceRepo.UpdatePersonName(ctx, faceID, value); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrFaceNotFound
		}
		return nil, err
	}

	face, err := s.faceRepo.GetByID(ctx, faceID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, services.ErrFaceNotFound
	}
	return face, err
}

// RecordView counts a view of a published photo. Other photos report their current
// count unchanged.
func (s *PhotoServiceImpl) RecordView(ctx context.Context, photoID uuid.UUID) (int64, error) {
	photo, err := s.Get(ctx, photoID)
	if err != nil {
		return 0, err
	}
	if !photo.IsPublished() {
		return s.viewRepo.Get(ctx, photoID)
	}
	return s.viewRepo.Increment(ctx, photoID)
}

func (s *PhotoServiceImpl) GetViewCount(ctx context.Context, photoID uuid.UUID) (int64, error) {
	if _, err := s.Get(ctx, photoID); err != nil {
		return 0, err
	}
	return s.viewRepo.Get(ctx, photoID)
}
