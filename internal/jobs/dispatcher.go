package jobs

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"fileforge/internal/models"
	"fileforge/internal/store"
)

// FileInput is an uploaded file that has already been persisted to the
// uploads directory.
type FileInput struct {
	OriginalName string
	StoredPath   string
	Size         int64
}

// JobRef identifies one file's job within a dispatched batch.
type JobRef struct {
	JobID        string `json:"jobId"`
	HistoryID    string `json:"historyId"`
	OriginalName string `json:"originalName"`
}

// Receipt is returned to the caller immediately after dispatch, before
// any processing has started.
type Receipt struct {
	BatchID string   `json:"batchId"`
	Jobs    []JobRef `json:"jobs"`
}

// Dispatcher validates operation options, records one history row and one
// job row per file, and hands the batch to the runner. It never waits for
// processing.
type Dispatcher struct {
	store  store.Store
	runner *Runner
	log    zerolog.Logger
}

func NewDispatcher(s store.Store, runner *Runner, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{store: s, runner: runner, log: log}
}

// Dispatch creates the batch records and schedules background processing.
// Validation failures happen before any record is written.
func (d *Dispatcher) Dispatch(ctx context.Context, userID string, files []FileInput, opts Options) (*Receipt, error) {
	if len(files) == 0 {
		return nil, &ValidationError{Field: "files", Message: "at least one file is required"}
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	details, err := opts.Details()
	if err != nil {
		return nil, err
	}

	batchID := uuid.New().String()
	op := opts.Operation()

	receipt := &Receipt{BatchID: batchID, Jobs: make([]JobRef, 0, len(files))}
	work := make([]workItem, 0, len(files))

	for _, file := range files {
		history := &models.FileHistory{
			ID:               uuid.New().String(),
			UserID:           userID,
			OriginalFilename: file.OriginalName,
			OriginalPath:     file.StoredPath,
			OperationType:    op,
			OperationDetails: details,
			FileSize:         file.Size,
			Status:           models.StatusPending,
		}
		if err := d.store.CreateHistory(ctx, history); err != nil {
			return nil, fmt.Errorf("failed to record file history: %w", err)
		}

		job := &models.ProcessingJob{
			ID:            fmt.Sprintf("%s-%s", batchID, history.ID),
			FileHistoryID: history.ID,
			OperationType: op,
			Status:        models.StatusPending,
			Progress:      0,
		}
		if err := d.store.CreateJob(ctx, job); err != nil {
			return nil, fmt.Errorf("failed to record processing job: %w", err)
		}

		receipt.Jobs = append(receipt.Jobs, JobRef{
			JobID:        job.ID,
			HistoryID:    history.ID,
			OriginalName: file.OriginalName,
		})
		work = append(work, workItem{
			jobID:     job.ID,
			historyID: history.ID,
			inputPath: file.StoredPath,
			op:        op,
			opts:      opts,
		})
	}

	d.log.Info().
		Str("batch_id", batchID).
		Str("operation", string(op)).
		Int("files", len(files)).
		Str("user_id", userID).
		Msg("batch dispatched")

	d.runner.Dispatch(work)
	return receipt, nil
}
