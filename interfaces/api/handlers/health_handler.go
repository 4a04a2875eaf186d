package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"smart-gallery/domain/models"
	"smart-gallery/domain/repositories"
	"smart-gallery/infrastructure/worker"
)

// Pinger is any dependency that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	db              *gorm.DB
	redis           Pinger
	store           Pinger
	queue           worker.Queue
	photoRepository repositories.PhotoRepository
	stuckAfter      time.Duration
}

// NewHealthHandler creates a new health handler. redis and queue may be nil.
func NewHealthHandler(
	db *gorm.DB,
	redis Pinger,
	store Pinger,
	queue worker.Queue,
	photoRepository repositories.PhotoRepository,
	stuckAfter time.Duration,
) *HealthHandler {
	return &HealthHandler{
		db:              db,
		redis:           redis,
		store:           store,
		queue:           queue,
		photoRepository: photoRepository,
		stuckAfter:      stuckAfter,
	}
}

// ComponentHealth represents health status of a component
type ComponentHealth struct {
	Status  string `json:"status"` // "ok", "error", "unavailable"
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// DetailedHealthResponse represents detailed health check response
type DetailedHealthResponse struct {
	Status     string                     `json:"status"` // "healthy", "degraded", "unhealthy"
	Timestamp  time.Time                  `json:"timestamp"`
	Components map[string]ComponentHealth `json:"components"`
	Metrics    *HealthMetrics             `json:"metrics,omitempty"`
}

// HealthMetrics counts photos per enrichment state.
type HealthMetrics struct {
	Unprocessed int64 `json:"unprocessed"`
	Scheduled   int64 `json:"scheduled"`
	Processing  int64 `json:"processing"`
	Enriched    int64 `json:"enriched"`
	Failed      int64 `json:"failed"`
	Stuck       int64 `json:"stuck"`
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"message": "Server is running",
		"service": "Smart Gallery API",
	})
}

// DetailedHealth godoc
// @Summary Get detailed system health
// @Description Returns detailed health status of all system components
// @Tags Health
// @Accept json
// @Produce json
// @Success 200 {object} DetailedHealthResponse
// @Router /health/detailed [get]
func (h *HealthHandler) DetailedHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 10*time.Second)
	defer cancel()

	var dbHealth, redisHealth, storageHealth ComponentHealth
	var g errgroup.Group
	g.Go(func() error { dbHealth = h.checkDatabase(ctx); return nil })
	g.Go(func() error { redisHealth = check(ctx, h.redis, "Redis"); return nil })
	g.Go(func() error { storageHealth = check(ctx, h.store, "Media store"); return nil })
	g.Wait()

	response := DetailedHealthResponse{
		Timestamp: time.Now(),
		Components: map[string]ComponentHealth{
			"database": dbHealth,
			"redis":    redisHealth,
			"storage":  storageHealth,
			"queue":    h.checkQueue(),
		},
	}

	hasCriticalFailure := dbHealth.Status != "ok" || storageHealth.Status != "ok"
	allHealthy := true
	for _, component := range response.Components {
		if component.Status == "error" {
			allHealthy = false
		}
	}

	if dbHealth.Status == "ok" {
		response.Metrics = h.getMetrics(ctx)
		if response.Metrics != nil && response.Metrics.Stuck > 0 {
			allHealthy = false
		}
	}

	switch {
	case hasCriticalFailure:
		response.Status = "unhealthy"
	case !allHealthy:
		response.Status = "degraded"
	default:
		response.Status = "healthy"
	}

	statusCode := fiber.StatusOK
	if response.Status == "unhealthy" {
		statusCode = fiber.StatusServiceUnavailable
	}
	return c.Status(statusCode).JSON(response)
}

func (h *HealthHandler) checkDatabase(ctx context.Context) ComponentHealth {
	start := time.Now()

	if h.db == nil {
		return ComponentHealth{Status: "error", Message: "Database not configured"}
	}

	sqlDB, err := h.db.DB()
	if err != nil {
		return ComponentHealth{Status: "error", Message: "Failed to get database connection: " + err.Error()}
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return ComponentHealth{Status: "error", Message: "Database ping failed: " + err.Error()}
	}

	return ComponentHealth{Status: "ok", Message: "Connected", Latency: time.Since(start).String()}
}

func check(ctx context.Context, p Pinger, name string) ComponentHealth {
	start := time.Now()

	if p == nil {
		return ComponentHealth{Status: "unavailable", Message: name + " not configured"}
	}
	if err := p.Ping(ctx); err != nil {
		return ComponentHealth{Status: "error", Message: name + " ping failed: " + err.Error()}
	}
	return ComponentHealth{Status: "ok", Message: "Connected", Latency: time.Since(start).String()}
}

func (h *HealthHandler) checkQueue() ComponentHealth {
	if h.queue == nil {
		return ComponentHealth{Status: "unavailable", Message: "Enrichment queue not configured"}
	}
	if !h.queue.IsRunning() {
		return ComponentHealth{Status: "error", Message: h.queue.Backend() + " queue is not running"}
	}
	message := h.queue.Backend() + " queue running"
	if p, ok := h.queue.(interface{ Pending() int }); ok {
		message += fmt.Sprintf(", %d pending", p.Pending())
	}
	return ComponentHealth{Status: "ok", Message: message}
}

func (h *HealthHandler) getMetrics(ctx context.Context) *HealthMetrics {
	if h.photoRepository == nil {
		return nil
	}

	counts, err := h.photoRepository.CountByEnrichmentStatus(ctx)
	if err != nil {
		return nil
	}

	metrics := &HealthMetrics{
		Unprocessed: counts[models.EnrichmentUnprocessed],
		Scheduled:   counts[models.EnrichmentScheduled],
		Processing:  counts[models.EnrichmentProcessing],
		Enriched:    counts[models.EnrichmentEnriched],
		Failed:      counts[models.EnrichmentFailed],
	}

	if metrics.Processing > 0 && h.stuckAfter > 0 {
		stuck, err := h.photoRepository.GetStale(ctx, models.EnrichmentProcessing, time.Now().Add(-h.stuckAfter))
		if err == nil {
			metrics.Stuck = int64(len(stuck))
		}
	}

	return metrics
}
