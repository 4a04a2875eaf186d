package scheduler

import (
	"context"
	"errors"
	"time"

	"smart-gallery/domain/services"
	"smart-gallery/pkg/config"
	"smart-gallery/pkg/logger"
)

const (
	JobResetStuckEnrichment = "reset-stuck-enrichment"
	JobGooglePhotosResync   = "google-photos-resync"
)

// RegisterGalleryJobs adds the maintenance jobs. A job whose cron expression is empty
// is left out.
func RegisterGalleryJobs(s JobScheduler, cfg *config.Config, enrichment services.EnrichmentService, googlePhotos services.GooglePhotosService) error {
	if cron := cfg.Scheduler.StuckCheckCron; cron != "" {
		stuckAfter := cfg.Enrichment.StuckAfter
		err := s.AddJob(JobResetStuckEnrichment, cron, time.Minute, func(ctx context.Context) error {
			touched, err := enrichment.ResetStuck(ctx, stuckAfter)
			if touched > 0 {
				logger.Scheduler("stuck_enrichment_reset", "Reset stale enrichment jobs", map[string]interface{}{"photos": touched})
			}
			return err
		})
		if err != nil {
			return err
		}
	}

	if cron := cfg.GooglePhotos.ResyncCron; cron != "" {
		err := s.AddJob(JobGooglePhotosResync, cron, 30*time.Minute, func(ctx context.Context) error {
			results, err := googlePhotos.ResyncMappedAlbums(ctx)
			if errors.Is(err, services.ErrNotConnected) {
				return nil
			}
			imported := 0
			for _, r := range results {
				imported += r.Imported
			}
			logger.Scheduler("google_photos_resynced", "Mapped albums resynced", map[string]interface{}{
				"albums":   len(results),
				"imported": imported,
			})
			return err
		})
		if err != nil {
			return err
		}
	}

	return nil
}
