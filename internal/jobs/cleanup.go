package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"fileforge/internal/store"
)

// FileRemover deletes stored files. Removal failures are tolerated by the
// cleanup pass.
type FileRemover interface {
	Remove(path string) error
}

// CleanupService deletes completed history records older than a retention
// cutoff, cascading to jobs, logs and metadata, and removes the backing
// files best-effort. Pending, processing and failed records are kept.
type CleanupService struct {
	store store.Store
	files FileRemover
	log   zerolog.Logger
}

func NewCleanupService(s store.Store, files FileRemover, log zerolog.Logger) *CleanupService {
	return &CleanupService{store: s, files: files, log: log}
}

// Run deletes completed records created before the cutoff. When userID is
// non-empty only that user's records are considered. It returns the number
// of history records deleted and is safe to call repeatedly.
func (c *CleanupService) Run(ctx context.Context, cutoff time.Time, userID string) (int, error) {
	records, err := c.store.CompletedBefore(ctx, cutoff, userID)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, record := range records {
		if err := c.files.Remove(record.OriginalPath); err != nil {
			c.log.Warn().Err(err).Str("path", record.OriginalPath).Msg("failed to remove original file")
		}
		if record.ProcessedPath != nil {
			if err := c.files.Remove(*record.ProcessedPath); err != nil {
				c.log.Warn().Err(err).Str("path", *record.ProcessedPath).Msg("failed to remove processed file")
			}
		}
		if err := c.store.DeleteHistory(ctx, record.ID); err != nil {
			c.log.Error().Err(err).Str("history_id", record.ID).Msg("failed to delete history record")
			continue
		}
		deleted++
	}

	c.log.Info().
		Int("deleted", deleted).
		Time("cutoff", cutoff).
		Msg("cleanup pass finished")
	return deleted, nil
}

// RunRetention is Run with the cutoff expressed as an age in days.
func (c *CleanupService) RunRetention(ctx context.Context, days int, userID string) (int, error) {
	return c.Run(ctx, time.Now().AddDate(0, 0, -days), userID)
}
