package jobs

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"fileforge/internal/models"
	"fileforge/internal/store"
)

// LogLine is one progress message from a job's run.
type LogLine struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// JobStatus is the pollable view of one job. Completed jobs carry the
// output fields and a download URL; failed jobs carry the error message.
type JobStatus struct {
	JobID         string               `json:"jobId"`
	FileHistoryID string               `json:"fileHistoryId"`
	OperationType models.OperationType `json:"operationType"`
	Status        models.Status        `json:"status"`
	Progress      int                  `json:"progress"`
	OriginalName  string               `json:"originalFilename"`
	Logs          []LogLine            `json:"logs"`

	ProcessedFilename *string           `json:"processedFilename,omitempty"`
	ProcessedSize     *int64            `json:"processedSize,omitempty"`
	ProcessingTime    *float64          `json:"processingTime,omitempty"`
	DownloadURL       string            `json:"downloadUrl,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	ErrorMessage      *string           `json:"error,omitempty"`
}

// StatusService assembles job status snapshots for polling clients.
type StatusService struct {
	store store.Store
}

func NewStatusService(s store.Store) *StatusService {
	return &StatusService{store: s}
}

// Get returns the current snapshot of a job. The snapshot is consistent
// with the records at read time; callers poll for fresh values.
func (s *StatusService) Get(ctx context.Context, jobID string) (*JobStatus, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	history, err := s.store.GetHistory(ctx, job.FileHistoryID)
	if err != nil {
		return nil, fmt.Errorf("job %s references missing history: %w", jobID, err)
	}

	status := &JobStatus{
		JobID:         job.ID,
		FileHistoryID: history.ID,
		OperationType: job.OperationType,
		Status:        job.Status,
		Progress:      job.Progress,
		OriginalName:  history.OriginalFilename,
		Logs:          make([]LogLine, 0, len(job.Logs)),
	}
	for _, entry := range job.Logs {
		status.Logs = append(status.Logs, LogLine{Message: entry.Message, Timestamp: entry.Timestamp})
	}

	switch job.Status {
	case models.StatusCompleted:
		status.ProcessedFilename = history.ProcessedFilename
		status.ProcessedSize = history.ProcessedSize
		status.ProcessingTime = history.ProcessingTime
		if history.ProcessedPath != nil {
			status.DownloadURL = "/processed/" + filepath.Base(*history.ProcessedPath)
		}
		md, err := s.store.GetMetadata(ctx, history.ID)
		if err == nil && len(md) > 0 {
			status.Metadata = md
		}
	case models.StatusFailed:
		status.ErrorMessage = history.ErrorMessage
	}
	return status, nil
}
