package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"smart-gallery/domain/services"
	"smart-gallery/pkg/config"
	"smart-gallery/pkg/logger"
)

var ErrQueueFull = errors.New("enrichment queue is full")

// EnrichmentWorker is the in-process queue: a buffered channel drained by a fixed pool
// of goroutines, with timers for delayed delivery and retries.
type EnrichmentWorker struct {
	processor Processor
	jobs      chan Job

	// Worker control
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	isRunning bool
	mu        sync.Mutex
	timers    map[*time.Timer]struct{}

	workers        int
	maxRetries     int
	baseRetryDelay time.Duration

	circuitBreaker *CircuitBreaker
}

func NewEnrichmentWorker(cfg config.EnrichmentConfig) *EnrichmentWorker {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = 256
	}
	return &EnrichmentWorker{
		jobs:           make(chan Job, size),
		timers:         make(map[*time.Timer]struct{}),
		workers:        workers,
		maxRetries:     cfg.MaxRetries,
		baseRetryDelay: cfg.BaseRetryDelay,
		circuitBreaker: NewCircuitBreaker(5, time.Minute),
	}
}

func (w *EnrichmentWorker) Backend() string {
	return "memory"
}

// Enqueue delivers the job now, or after delay when it is positive.
func (w *EnrichmentWorker) Enqueue(ctx context.Context, job Job, delay time.Duration) error {
	if delay <= 0 {
		return w.push(job)
	}
	w.after(delay, job)
	return nil
}

func (w *EnrichmentWorker) push(job Job) error {
	select {
	case w.jobs <- job:
		return nil
	default:
		logger.EnrichmentError("queue_full", "Enrichment queue is full, job dropped", ErrQueueFull, map[string]interface{}{
			"photo_id": job.PhotoID.String(),
		})
		return ErrQueueFull
	}
}

func (w *EnrichmentWorker) after(delay time.Duration, job Job) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		w.mu.Lock()
		delete(w.timers, timer)
		w.mu.Unlock()
		w.push(job)
	})
	w.timers[timer] = struct{}{}
}

func (w *EnrichmentWorker) Start(processor Processor) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.isRunning {
		return nil
	}
	if processor == nil {
		return fmt.Errorf("enrichment worker needs a processor")
	}

	w.processor = processor
	w.isRunning = true
	w.ctx, w.cancel = context.WithCancel(context.Background())

	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go w.run()
	}

	logger.Enrichment("worker_started", "Enrichment worker started", map[string]interface{}{
		"workers":     w.workers,
		"max_retries": w.maxRetries,
	})
	return nil
}

// Stop cancels pending timers and waits for in-flight jobs.
func (w *EnrichmentWorker) Stop() {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return
	}
	w.isRunning = false
	for timer := range w.timers {
		timer.Stop()
	}
	w.timers = make(map[*time.Timer]struct{})
	w.mu.Unlock()

	w.cancel()
	w.wg.Wait()
	logger.Enrichment("worker_stopped", "Enrichment worker stopped", nil)
}

func (w *EnrichmentWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.isRunning
}

// Pending returns queued plus delayed jobs.
func (w *EnrichmentWorker) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.jobs) + len(w.timers)
}

func (w *EnrichmentWorker) run() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case job := <-w.jobs:
			w.handle(job)
		}
	}
}

func (w *EnrichmentWorker) handle(job Job) {
	if w.circuitBreaker.IsOpen() {
		wait := w.circuitBreaker.RemainingOpen()
		logger.Warn(logger.CategoryEnrichment, "circuit_open", "Vision provider circuit open, delaying job", map[string]interface{}{
			"photo_id": job.PhotoID.String(),
			"failures": w.circuitBreaker.Failures(),
			"wait":     wait.String(),
		})
		w.after(wait+time.Millisecond, job)
		return
	}

	err := w.processor.Process(w.ctx, job.PhotoID, job.AttachmentID)
	if err == nil {
		w.circuitBreaker.RecordSuccess()
		return
	}

	switch services.KindOf(err) {
	case services.KindTimeout, services.KindMalformedResponse, services.KindOther:
		w.circuitBreaker.RecordFailure()
	}

	if !errors.Is(err, services.ErrTimeout) || job.Attempt >= w.maxRetries {
		return
	}

	if ok, err := w.processor.PrepareRetry(w.ctx, job.PhotoID); err != nil || !ok {
		logger.Warn(logger.CategoryEnrichment, "retry_skipped", "Photo could not be rescheduled for retry", map[string]interface{}{
			"photo_id": job.PhotoID.String(),
			"error":    errString(err),
		})
		return
	}

	// exponential backoff
	delay := w.baseRetryDelay * time.Duration(1<<uint(job.Attempt))
	job.Attempt++
	logger.Enrichment("retry_scheduled", "Enrichment timed out, retrying", map[string]interface{}{
		"photo_id": job.PhotoID.String(),
		"attempt":  job.Attempt,
		"delay":    delay.String(),
	})
	w.after(delay, job)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
