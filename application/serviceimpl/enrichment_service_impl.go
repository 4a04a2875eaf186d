package serviceimpl

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"smart-gallery/domain/models"
	"smart-gallery/domain/repositories"
	"smart-gallery/domain/services"
	"smart-gallery/infrastructure/storage"
	"smart-gallery/infrastructure/vision"
	"smart-gallery/infrastructure/websocket"
	"smart-gallery/infrastructure/worker"
	"smart-gallery/pkg/logger"
)

type EnrichmentServiceImpl struct {
	photoRepo    repositories.PhotoRepository
	tagRepo      repositories.TagRepository
	keywordRepo  repositories.KeywordRepository
	faceRepo     repositories.FaceRepository
	categoryRepo repositories.CategoryRepository
	settings     services.SettingsService
	store        storage.MediaStore
	analyzer     vision.Analyzer
	queue        EnrichmentQueue
	events       EventBroadcaster
	delay        time.Duration
	now          func() time.Time
}

func NewEnrichmentService(
	photoRepo repositories.PhotoRepository,
	tagRepo repositories.TagRepository,
	keywordRepo repositories.KeywordRepository,
	faceRepo repositories.FaceRepository,
	categoryRepo repositories.CategoryRepository,
	settings services.SettingsService,
	store storage.MediaStore,
	analyzer vision.Analyzer,
	queue EnrichmentQueue,
	events EventBroadcaster,
	delay time.Duration,
) *EnrichmentServiceImpl {
	if events == nil {
		events = noopBroadcaster{}
	}
	return &EnrichmentServiceImpl{
		photoRepo:    photoRepo,
		tagRepo:      tagRepo,
		keywordRepo:  keywordRepo,
		faceRepo:     faceRepo,
		categoryRepo: categoryRepo,
		settings:     settings,
		store:        store,
		analyzer:     analyzer,
		queue:        queue,
		events:       events,
		delay:        delay,
		now:          time.Now,
	}
}

// Schedule queues one delayed enrichment run. A photo that is already scheduled is
// left alone so repeated saves collapse into a single run.
func (s *EnrichmentServiceImpl) Schedule(ctx context.Context, photoID, attachmentID uuid.UUID) error {
	photo, err := s.photoRepo.GetByID(ctx, photoID)
	if err != nil {
		return photoLookupError(err)
	}
	if photo.EnrichmentStatus == models.EnrichmentScheduled {
		return nil
	}
	if attachmentID == uuid.Nil {
		attachmentID = photo.AttachmentID
	}

	if _, err := s.photoRepo.TransitionEnrichment(ctx, photoID, models.EnrichmentScheduled, "queued"); err != nil {
		return fmt.Errorf("failed to mark photo scheduled: %w", err)
	}

	job := worker.Job{PhotoID: photoID, AttachmentID: attachmentID}
	if err := s.queue.Enqueue(ctx, job, s.delay); err != nil {
		s.photoRepo.TransitionEnrichment(ctx, photoID, models.EnrichmentUnprocessed, "enqueue_failed")
		return fmt.Errorf("failed to enqueue enrichment: %w", err)
	}

	logger.Enrichment("scheduled", "Enrichment scheduled", map[string]interface{}{
		"photo_id": photoID.String(),
		"delay":    s.delay.String(),
	})
	s.publish(photoID, models.EnrichmentScheduled, "")
	return nil
}

// Process runs one enrichment pass: vision call, then tags, then faces, then the
// People category. Only a scheduled photo is processed, so a trigger delivered twice
// runs once. Failures mark the photo failed and are returned for the worker.
func (s *EnrichmentServiceImpl) Process(ctx context.Context, photoID, attachmentID uuid.UUID) error {
	start := s.now()

	photo, err := s.photoRepo.GetByID(ctx, photoID)
	if err != nil {
		err = photoLookupError(err)
		logger.EnrichmentError("photo_lookup_failed", "Photo for enrichment not found", err, map[string]interface{}{
			"photo_id": photoID.String(),
		})
		return err
	}
	if attachmentID == uuid.Nil {
		attachmentID = photo.AttachmentID
	}

	claimed, err := s.photoRepo.ClaimEnrichment(ctx, photoID, models.EnrichmentScheduled, models.EnrichmentProcessing, "started")
	if err != nil {
		return fmt.Errorf("failed to mark photo processing: %w", err)
	}
	if !claimed {
		// another delivery of the same trigger already ran or is running
		logger.Debug(logger.CategoryEnrichment, "duplicate_skipped", "Photo is no longer scheduled, skipping", map[string]interface{}{
			"photo_id": photoID.String(),
			"status":   string(photo.EnrichmentStatus),
		})
		return nil
	}
	s.publish(photoID, models.EnrichmentProcessing, "")

	path, err := s.store.GetFilePath(ctx, attachmentID)
	if err != nil {
		return s.fail(ctx, photoID, err)
	}

	features := vision.Features{
		Tagging:       s.settings.IsFeatureEnabled(ctx, services.FeatureAITagging),
		FaceDetection: s.settings.IsFeatureEnabled(ctx, services.FeatureFaceDetection),
	}
	if !features.Any() {
		s.photoRepo.TransitionEnrichment(ctx, photoID, models.EnrichmentUnprocessed, "features_disabled")
		s.publish(photoID, models.EnrichmentUnprocessed, "features_disabled")
		logger.Enrichment("skipped", "All enrichment features disabled", map[string]interface{}{"photo_id": photoID.String()})
		return nil
	}

	image, err := os.ReadFile(path)
	if err != nil {
		return s.fail(ctx, photoID, fmt.Errorf("%w: %v", services.ErrMissingAsset, err))
	}

	result, err := s.analyzer.Analyze(ctx, vision.Request{
		Provider:    s.settings.GetSetting(ctx, services.SettingAPIProvider, vision.ProviderGoogle),
		Credentials: s.credentials(ctx),
		Image:       image,
		Features:    features,
	})
	if err != nil {
		return s.fail(ctx, photoID, err)
	}

	tagCount, err := s.saveLabels(ctx, photoID, result.Labels)
	if err != nil {
		return s.fail(ctx, photoID, err)
	}

	faceCount, err := s.saveFaces(ctx, photoID, attachmentID, result.Faces)
	if err != nil {
		return s.fail(ctx, photoID, err)
	}

	if faceCount > 0 {
		if err := s.attachPeopleCategory(ctx, photoID); err != nil {
			return s.fail(ctx, photoID, err)
		}
	}

	reason := fmt.Sprintf("%d tags, %d faces", tagCount, faceCount)
	if _, err := s.photoRepo.TransitionEnrichment(ctx, photoID, models.EnrichmentEnriched, reason); err != nil {
		return fmt.Errorf("failed to mark photo enriched: %w", err)
	}

	logger.Enrichment("enriched", "Photo enriched", map[string]interface{}{
		"photo_id": photoID.String(),
		"tags":     tagCount,
		"faces":    faceCount,
		"duration": s.now().Sub(start).String(),
	})
	s.publish(photoID, models.EnrichmentEnriched, reason)
	return nil
}

func (s *EnrichmentServiceImpl) PrepareRetry(ctx context.Context, photoID uuid.UUID) (bool, error) {
	ok, err := s.photoRepo.ClaimEnrichment(ctx, photoID, models.EnrichmentFailed, models.EnrichmentScheduled, "retry")
	if err != nil {
		return false, fmt.Errorf("failed to reschedule photo: %w", err)
	}
	if ok {
		s.publish(photoID, models.EnrichmentScheduled, "retry")
	}
	return ok, nil
}

func (s *EnrichmentServiceImpl) credentials(ctx context.Context) vision.Credentials {
	return vision.Credentials{
		GoogleAPIKey: s.settings.GetSetting(ctx, services.SettingGoogleVisionAPIKey, ""),
		AWSAccessKey: s.settings.GetSetting(ctx, services.SettingAWSAccessKey, ""),
		AWSSecretKey: s.settings.GetSetting(ctx, services.SettingAWSSecretKey, ""),
		AWSRegion:    s.settings.GetSetting(ctx, services.SettingAWSRegion, "us-east-1"),
		GeminiAPIKey: s.settings.GetSetting(ctx, services.SettingGeminiAPIKey, ""),
		GeminiModel:  s.settings.GetSetting(ctx, services.SettingGeminiModel, ""),
	}
}

// saveLabels keeps labels at or above MinLabelConfidence and registers each in the
// keyword vocabulary.
func (s *EnrichmentServiceImpl) saveLabels(ctx context.Context, photoID uuid.UUID, labels []vision.Label) (int, error) {
	saved := 0
	for _, label := range labels {
		name := strings.TrimSpace(label.Name)
		// compare the unrounded score: 59.996 must not pass as 60
		if name == "" || label.Score*100 < models.MinLabelConfidence {
			continue
		}
		confidence := percent(label.Score)

		if _, err := s.tagRepo.CreateIfAbsent(ctx, &models.Tag{
			PhotoID:    photoID,
			Name:       name,
			Type:       models.TagTypeLabel,
			Confidence: confidence,
		}); err != nil {
			return saved, fmt.Errorf("failed to save tag %q: %w", name, err)
		}

		keyword, err := s.keywordRepo.FirstOrCreate(ctx, name)
		if err != nil {
			return saved, fmt.Errorf("failed to register keyword %q: %w", name, err)
		}
		if err := s.photoRepo.AttachKeyword(ctx, photoID, keyword.ID); err != nil {
			return saved, fmt.Errorf("failed to link keyword %q: %w", name, err)
		}
		saved++
	}
	return saved, nil
}

// saveFaces appends one row per detection; ids are stable only within this run.
func (s *EnrichmentServiceImpl) saveFaces(ctx context.Context, photoID, attachmentID uuid.UUID, boxes []vision.FaceBox) (int, error) {
	if len(boxes) == 0 {
		return 0, nil
	}

	faces := make([]*models.Face, 0, len(boxes))
	for i, box := range boxes {
		faces = append(faces, &models.Face{
			PhotoID:     photoID,
			FaceID:      models.FaceIdentifier(photoID, attachmentID, i),
			BoundingBox: box.BoundingBox,
			Confidence:  percent(box.Confidence),
		})
	}

	if err := s.faceRepo.CreateBatch(ctx, faces); err != nil {
		return 0, fmt.Errorf("failed to save faces: %w", err)
	}
	return len(faces), nil
}

func (s *EnrichmentServiceImpl) attachPeopleCategory(ctx context.Context, photoID uuid.UUID) error {
	category, err := s.categoryRepo.GetBySlug(ctx, models.PeopleCategorySlug)
	if errors.Is(err, repositories.ErrNotFound) {
		category = &models.Category{Name: models.PeopleCategoryName, Slug: models.PeopleCategorySlug}
		if createErr := s.categoryRepo.Create(ctx, category); createErr != nil {
			// created concurrently
			category, err = s.categoryRepo.GetBySlug(ctx, models.PeopleCategorySlug)
		} else {
			err = nil
		}
	}
	if err != nil {
		return fmt.Errorf("failed to resolve People category: %w", err)
	}

	linked, err := s.photoRepo.HasCategory(ctx, photoID, category.ID)
	if err != nil {
		return fmt.Errorf("failed to check People category: %w", err)
	}
	if linked {
		return nil
	}
	if err := s.photoRepo.AttachCategory(ctx, photoID, category.ID); err != nil {
		return fmt.Errorf("failed to attach People category: %w", err)
	}
	logger.Enrichment("people_linked", "Photo added to People", map[string]interface{}{"photo_id": photoID.String()})
	return nil
}

func (s *EnrichmentServiceImpl) fail(ctx context.Context, photoID uuid.UUID, cause error) error {
	kind := services.KindOf(cause)
	reason := string(kind) + ": " + cause.Error()

	if _, err := s.photoRepo.TransitionEnrichment(ctx, photoID, models.EnrichmentFailed, reason); err != nil {
		logger.EnrichmentError("transition_failed", "Failed to mark photo failed", err, map[string]interface{}{
			"photo_id": photoID.String(),
		})
	}

	logger.EnrichmentError("failed", "Enrichment failed", cause, map[string]interface{}{
		"photo_id": photoID.String(),
		"kind":     string(kind),
	})
	s.publish(photoID, models.EnrichmentFailed, string(kind))
	return cause
}

func (s *EnrichmentServiceImpl) publish(photoID uuid.UUID, status models.EnrichmentStatus, detail string) {
	s.events.Broadcast(websocket.EventEnrichmentUpdated, map[string]interface{}{
		"photo_id": photoID.String(),
		"status":   status,
		"detail":   detail,
	})
}

func (s *EnrichmentServiceImpl) GetStatus(ctx context.Context, photoID uuid.UUID) (*services.EnrichmentStatusView, error) {
	photo, err := s.photoRepo.GetByID(ctx, photoID)
	if err != nil {
		return nil, photoLookupError(err)
	}

	transitions, err := s.photoRepo.GetTransitions(ctx, photoID)
	if err != nil {
		return nil, err
	}

	return &services.EnrichmentStatusView{
		PhotoID:     photoID,
		Status:      photo.EnrichmentStatus,
		Transitions: transitions,
	}, nil
}

func (s *EnrichmentServiceImpl) ResetStuck(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := s.now().Add(-olderThan)
	touched := 0

	stuck, err := s.photoRepo.GetStale(ctx, models.EnrichmentProcessing, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to list stuck photos: %w", err)
	}
	for _, photo := range stuck {
		if _, err := s.photoRepo.TransitionEnrichment(ctx, photo.ID, models.EnrichmentFailed, "stuck in processing"); err != nil {
			logger.EnrichmentError("reset_failed", "Failed to reset stuck photo", err, map[string]interface{}{"photo_id": photo.ID.String()})
			continue
		}
		s.publish(photo.ID, models.EnrichmentFailed, "stuck")
		touched++
	}

	lost, err := s.photoRepo.GetStale(ctx, models.EnrichmentScheduled, cutoff)
	if err != nil {
		return touched, fmt.Errorf("failed to list stale scheduled photos: %w", err)
	}
	for _, photo := range lost {
		if _, err := s.photoRepo.TransitionEnrichment(ctx, photo.ID, models.EnrichmentScheduled, "requeued"); err != nil {
			continue
		}
		if err := s.queue.Enqueue(ctx, worker.Job{PhotoID: photo.ID, AttachmentID: photo.AttachmentID}, 0); err != nil {
			logger.EnrichmentError("requeue_failed", "Failed to requeue scheduled photo", err, map[string]interface{}{"photo_id": photo.ID.String()})
			continue
		}
		touched++
	}

	if touched > 0 {
		logger.Enrichment("reset_stuck", "Reset stale enrichment jobs", map[string]interface{}{
			"processing": len(stuck),
			"scheduled":  len(lost),
		})
	}
	return touched, nil
}

// percent converts a 0..1 score to a 0..100 confidence with two decimals.
func percent(score float64) float64 {
	return math.Round(score*100*100) / 100
}

func photoLookupError(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return services.ErrPhotoNotFound
	}
	return err
}
