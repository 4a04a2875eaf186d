package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/hibiken/asynq"

	"smart-gallery/domain/services"
	"smart-gallery/pkg/config"
	"smart-gallery/pkg/logger"
)

const TaskTypeEnrich = "enrichment:process"

// AsynqQueue keeps enrichment jobs in Redis so scheduled work survives restarts.
type AsynqQueue struct {
	redisOpt       asynq.RedisClientOpt
	client         *asynq.Client
	server         *asynq.Server
	concurrency    int
	maxRetries     int
	baseRetryDelay time.Duration

	processor Processor
	isRunning bool
	mu        sync.Mutex
}

func NewAsynqQueue(redisCfg config.RedisConfig, cfg config.EnrichmentConfig) *AsynqQueue {
	opt := asynq.RedisClientOpt{
		Addr:     redisCfg.RedisAddr(),
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	}
	concurrency := cfg.Workers
	if concurrency <= 0 {
		concurrency = 1
	}
	return &AsynqQueue{
		redisOpt:       opt,
		client:         asynq.NewClient(opt),
		concurrency:    concurrency,
		maxRetries:     cfg.MaxRetries,
		baseRetryDelay: cfg.BaseRetryDelay,
	}
}

func (q *AsynqQueue) Backend() string {
	return "asynq"
}

func (q *AsynqQueue) Enqueue(ctx context.Context, job Job, delay time.Duration) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}

	opts := []asynq.Option{
		asynq.MaxRetry(q.maxRetries),
		asynq.Timeout(5 * time.Minute),
	}
	if delay > 0 {
		opts = append(opts, asynq.ProcessIn(delay))
	}

	info, err := q.client.EnqueueContext(ctx, asynq.NewTask(TaskTypeEnrich, payload), opts...)
	if err != nil {
		return fmt.Errorf("failed to enqueue enrichment task: %w", err)
	}

	logger.Debug(logger.CategoryEnrichment, "task_enqueued", "Enrichment task enqueued", map[string]interface{}{
		"photo_id": job.PhotoID.String(),
		"task_id":  info.ID,
		"delay":    delay.String(),
	})
	return nil
}

func (q *AsynqQueue) Start(processor Processor) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.isRunning {
		return nil
	}

	q.processor = processor
	q.server = asynq.NewServer(q.redisOpt, asynq.Config{
		Concurrency: q.concurrency,
		RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
			return q.baseRetryDelay * time.Duration(1<<uint(n))
		},
		Logger:   asynqLogger{},
		LogLevel: asynq.WarnLevel,
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypeEnrich, q.handle)

	if err := q.server.Start(mux); err != nil {
		return fmt.Errorf("failed to start asynq server: %w", err)
	}
	q.isRunning = true

	logger.Enrichment("worker_started", "Asynq enrichment worker started", map[string]interface{}{
		"concurrency": q.concurrency,
		"redis":       q.redisOpt.Addr,
	})
	return nil
}

// handle lets asynq retry timeouts only; every other failure is final.
func (q *AsynqQueue) handle(ctx context.Context, task *asynq.Task) error {
	var job Job
	if err := json.Unmarshal(task.Payload(), &job); err != nil {
		return fmt.Errorf("bad payload: %v: %w", err, asynq.SkipRetry)
	}

	err := q.processor.Process(ctx, job.PhotoID, job.AttachmentID)
	if err == nil {
		return nil
	}
	if errors.Is(err, services.ErrTimeout) && q.retriesLeft(ctx) {
		if ok, prepErr := q.processor.PrepareRetry(ctx, job.PhotoID); prepErr == nil && ok {
			return err
		}
	}
	return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
}

func (q *AsynqQueue) retriesLeft(ctx context.Context) bool {
	retried, ok := asynq.GetRetryCount(ctx)
	if !ok {
		return false
	}
	maxRetry, ok := asynq.GetMaxRetry(ctx)
	return ok && retried < maxRetry
}

func (q *AsynqQueue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.isRunning {
		return
	}
	q.isRunning = false
	q.server.Shutdown()
	q.client.Close()
	logger.Enrichment("worker_stopped", "Asynq enrichment worker stopped", nil)
}

func (q *AsynqQueue) IsRunning() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.isRunning
}

// asynqLogger routes asynq's internal logging into the enrichment category.
type asynqLogger struct{}

func (asynqLogger) Debug(args ...interface{}) {
	logger.Debug(logger.CategoryEnrichment, "asynq", fmt.Sprint(args...), nil)
}

func (asynqLogger) Info(args ...interface{}) {
	logger.Info(logger.CategoryEnrichment, "asynq", fmt.Sprint(args...), nil)
}

func (asynqLogger) Warn(args ...interface{}) {
	logger.Warn(logger.CategoryEnrichment, "asynq", fmt.Sprint(args...), nil)
}

func (asynqLogger) Error(args ...interface{}) {
	logger.Error(logger.CategoryEnrichment, "asynq", fmt.Sprint(args...), nil, nil)
}

func (asynqLogger) Fatal(args ...interface{}) {
	logger.Error(logger.CategoryEnrichment, "asynq_fatal", fmt.Sprint(args...), nil, nil)
	os.Exit(1)
}
