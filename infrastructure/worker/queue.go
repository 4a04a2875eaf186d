package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Job is one queued enrichment run. Attempt counts retries already made.
type Job struct {
	PhotoID      uuid.UUID `json:"photo_id"`
	AttachmentID uuid.UUID `json:"attachment_id"`
	Attempt      int       `json:"attempt"`
}

// Processor runs a single enrichment pass. PrepareRetry puts a failed photo back in
// line for another pass and reports false when something else already did.
type Processor interface {
	Process(ctx context.Context, photoID, attachmentID uuid.UUID) error
	PrepareRetry(ctx context.Context, photoID uuid.UUID) (bool, error)
}

// Queue delivers jobs to a Processor after an optional delay.
type Queue interface {
	Enqueue(ctx context.Context, job Job, delay time.Duration) error
	Start(processor Processor) error
	Stop()
	IsRunning() bool
	Backend() string
}
