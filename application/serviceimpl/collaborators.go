package serviceimpl

import (
	"context"
	"time"

	"smart-gallery/domain/models"
	"smart-gallery/infrastructure/worker"
)

// EnrichmentQueue is the scheduling side of the worker queue.
type EnrichmentQueue interface {
	Enqueue(ctx context.Context, job worker.Job, delay time.Duration) error
}

// EventBroadcaster pushes live updates to connected clients.
type EventBroadcaster interface {
	Broadcast(eventType string, data interface{})
}

// AlbumCache holds the last album listing.
type AlbumCache interface {
	Get(ctx context.Context) ([]models.AlbumMapping, bool, error)
	Set(ctx context.Context, albums []models.AlbumMapping) error
	Invalidate(ctx context.Context) error
}

type noopBroadcaster struct{}

func (noopBroadcaster) Broadcast(string, interface{}) {}
