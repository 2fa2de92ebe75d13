package store

import (
	"context"
	"errors"
	"time"

	"fileforge/internal/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// HistoryFilter narrows ListHistory results. Zero values mean "no filter".
type HistoryFilter struct {
	UserID        string
	OperationType models.OperationType
	Status        models.Status
	Limit         int
	Offset        int
}

// HistoryStats aggregates the history table for the stats overview.
type HistoryStats struct {
	TotalFiles            int64                          `json:"totalFiles"`
	TotalSize             int64                          `json:"totalSize"`
	TotalProcessedSize    int64                          `json:"totalProcessedSize"`
	AverageProcessingTime float64                        `json:"averageProcessingTime"`
	OperationsByType      map[models.OperationType]int64 `json:"operationsByType"`
	StatusDistribution    map[models.Status]int64        `json:"statusDistribution"`
}

// Store is the durable record store shared by the dispatcher, runner, status
// and cleanup services. Implementations must serialize concurrent writes per
// record; callers never share a record across concurrently running batches.
type Store interface {
	CreateHistory(ctx context.Context, h *models.FileHistory) error
	GetHistory(ctx context.Context, id string) (*models.FileHistory, error)
	ListHistory(ctx context.Context, f HistoryFilter) ([]models.FileHistory, error)
	// CompleteHistory sets the processed_* fields and transitions to completed.
	CompleteHistory(ctx context.Context, id, filename, path string, size int64, seconds float64) error
	// FailHistory transitions to failed and records the error message.
	FailHistory(ctx context.Context, id, message string) error
	// DeleteHistory removes the record and cascades to its jobs, job logs and
	// metadata rows.
	DeleteHistory(ctx context.Context, id string) error
	// CompletedBefore returns completed records created before the cutoff,
	// optionally scoped to one user.
	CompletedBefore(ctx context.Context, cutoff time.Time, userID string) ([]models.FileHistory, error)
	// HistoryStats aggregates counts, sizes and the average processing time of
	// completed records, optionally scoped to one user.
	HistoryStats(ctx context.Context, userID string) (*HistoryStats, error)

	CreateJob(ctx context.Context, j *models.ProcessingJob) error
	// GetJob returns the job with its log entries ordered by timestamp.
	GetJob(ctx context.Context, id string) (*models.ProcessingJob, error)
	// StartJob transitions pending -> processing and resets progress to 0.
	StartJob(ctx context.Context, id string) error
	SetJobProgress(ctx context.Context, id string, progress int) error
	// FinishJob sets a terminal status and the final progress value.
	FinishJob(ctx context.Context, id string, status models.Status, progress int) error
	AppendJobLog(ctx context.Context, id, message string) error

	AddMetadata(ctx context.Context, historyID string, md map[string]string) error
	GetMetadata(ctx context.Context, historyID string) (map[string]string, error)

	CreateUser(ctx context.Context, u *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}
