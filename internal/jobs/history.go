package jobs

import (
	"context"

	"github.com/rs/zerolog"

	"fileforge/internal/models"
	"fileforge/internal/store"
)

// HistoryService serves the per-file processing records and removes them
// on request, backing files included.
type HistoryService struct {
	store store.Store
	files FileRemover
	log   zerolog.Logger
}

func NewHistoryService(s store.Store, files FileRemover, log zerolog.Logger) *HistoryService {
	return &HistoryService{store: s, files: files, log: log}
}

func (h *HistoryService) List(ctx context.Context, f store.HistoryFilter) ([]models.FileHistory, error) {
	return h.store.ListHistory(ctx, f)
}

func (h *HistoryService) Get(ctx context.Context, id string) (*models.FileHistory, error) {
	return h.store.GetHistory(ctx, id)
}

// Stats aggregates the user's records into the overview counters.
func (h *HistoryService) Stats(ctx context.Context, userID string) (*store.HistoryStats, error) {
	return h.store.HistoryStats(ctx, userID)
}

// Delete removes one record with its jobs, logs and metadata, and the
// files it points at. File removal failures are logged, not fatal.
func (h *HistoryService) Delete(ctx context.Context, id string) error {
	record, err := h.store.GetHistory(ctx, id)
	if err != nil {
		return err
	}
	if err := h.files.Remove(record.OriginalPath); err != nil {
		h.log.Warn().Err(err).Str("path", record.OriginalPath).Msg("failed to remove original file")
	}
	if record.ProcessedPath != nil {
		if err := h.files.Remove(*record.ProcessedPath); err != nil {
			h.log.Warn().Err(err).Str("path", *record.ProcessedPath).Msg("failed to remove processed file")
		}
	}
	return h.store.DeleteHistory(ctx, id)
}
