package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"smart-gallery/domain/models"
)

type EnrichmentStatusView struct {
	PhotoID     uuid.UUID                     `json:"photo_id"`
	Status      models.EnrichmentStatus       `json:"status"`
	Transitions []models.EnrichmentTransition `json:"transitions"`
}

// EnrichmentService runs vision enrichment for photos.
type EnrichmentService interface {
	// Schedule marks the photo scheduled and queues it after the debounce delay.
	Schedule(ctx context.Context, photoID, attachmentID uuid.UUID) error

	// Process runs one enrichment pass. It is invoked by the queue worker.
	Process(ctx context.Context, photoID, attachmentID uuid.UUID) error

	// PrepareRetry moves a failed photo back to scheduled before the queue retries it.
	PrepareRetry(ctx context.Context, photoID uuid.UUID) (bool, error)

	GetStatus(ctx context.Context, photoID uuid.UUID) (*EnrichmentStatusView, error)

	// ResetStuck fails photos left in processing for longer than olderThan and requeues
	// scheduled photos whose job was lost, returning how many it touched.
	ResetStuck(ctx context.Context, olderThan time.Duration) (int, error)
}
