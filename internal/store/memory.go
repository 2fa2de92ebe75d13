package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"fileforge/internal/models"
)

// MemoryStore is an in-process Store used by tests and by the zero-config
// development mode. All methods are safe for concurrent use.
type MemoryStore struct {
	mu       sync.Mutex
	history  map[string]*models.FileHistory
	jobs     map[string]*models.ProcessingJob
	logs     map[string][]models.JobLog
	metadata map[string]map[string]string
	users    map[string]*models.User
	nextLog  uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		history:  make(map[string]*models.FileHistory),
		jobs:     make(map[string]*models.ProcessingJob),
		logs:     make(map[string][]models.JobLog),
		metadata: make(map[string]map[string]string),
		users:    make(map[string]*models.User),
	}
}

func (s *MemoryStore) CreateHistory(ctx context.Context, h *models.FileHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *h
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	s.history[h.ID] = &cp
	return nil
}

func (s *MemoryStore) GetHistory(ctx context.Context, id string) (*models.FileHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.history[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *h
	return &cp, nil
}

func (s *MemoryStore) ListHistory(ctx context.Context, f HistoryFilter) ([]models.FileHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var records []models.FileHistory
	for _, h := range s.history {
		if f.UserID != "" && h.UserID != f.UserID {
			continue
		}
		if f.OperationType != "" && h.OperationType != f.OperationType {
			continue
		}
		if f.Status != "" && h.Status != f.Status {
			continue
		}
		records = append(records, *h)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	if f.Offset >= len(records) {
		return nil, nil
	}
	records = records[f.Offset:]
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (s *MemoryStore) CompleteHistory(ctx context.Context, id, filename, path string, size int64, seconds float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.history[id]
	if !ok {
		return ErrNotFound
	}
	h.ProcessedFilename = &filename
	h.ProcessedPath = &path
	h.ProcessedSize = &size
	h.ProcessingTime = &seconds
	h.Status = models.StatusCompleted
	h.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) FailHistory(ctx context.Context, id, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.history[id]
	if !ok {
		return ErrNotFound
	}
	h.Status = models.StatusFailed
	h.ErrorMessage = &message
	h.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) DeleteHistory(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.history[id]; !ok {
		return ErrNotFound
	}
	delete(s.history, id)
	delete(s.metadata, id)
	for jobID, j := range s.jobs {
		if j.FileHistoryID == id {
			delete(s.jobs, jobID)
			delete(s.logs, jobID)
		}
	}
	return nil
}

func (s *MemoryStore) CompletedBefore(ctx context.Context, cutoff time.Time, userID string) ([]models.FileHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var records []models.FileHistory
	for _, h := range s.history {
		if h.Status != models.StatusCompleted {
			continue
		}
		if !h.CreatedAt.Before(cutoff) {
			continue
		}
		if userID != "" && h.UserID != userID {
			continue
		}
		records = append(records, *h)
	}
	return records, nil
}

func (s *MemoryStore) HistoryStats(ctx context.Context, userID string) (*HistoryStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := &HistoryStats{
		OperationsByType:   make(map[models.OperationType]int64),
		StatusDistribution: make(map[models.Status]int64),
	}
	var timeSum float64
	var timed int64
	for _, h := range s.history {
		if userID != "" && h.UserID != userID {
			continue
		}
		stats.TotalFiles++
		stats.TotalSize += h.FileSize
		if h.ProcessedSize != nil {
			stats.TotalProcessedSize += *h.ProcessedSize
		}
		if h.ProcessingTime != nil {
			timeSum += *h.ProcessingTime
			timed++
		}
		stats.OperationsByType[h.OperationType]++
		stats.StatusDistribution[h.Status]++
	}
	if timed > 0 {
		stats.AverageProcessingTime = timeSum / float64(timed)
	}
	return stats, nil
}

func (s *MemoryStore) CreateJob(ctx context.Context, j *models.ProcessingJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *j
	s.jobs[j.ID] = &cp
	return nil
}

func (s *MemoryStore) GetJob(ctx context.Context, id string) (*models.ProcessingJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *j
	cp.Logs = append([]models.JobLog(nil), s.logs[id]...)
	return &cp, nil
}

func (s *MemoryStore) StartJob(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	j.Status = models.StatusProcessing
	j.Progress = 0
	j.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) SetJobProgress(ctx context.Context, id string, progress int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	j.Progress = progress
	j.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) FinishJob(ctx context.Context, id string, status models.Status, progress int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	j.Status = status
	j.Progress = progress
	j.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) AppendJobLog(ctx context.Context, id, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return ErrNotFound
	}
	s.nextLog++
	s.logs[id] = append(s.logs[id], models.JobLog{
		ID:        s.nextLog,
		JobID:     id,
		Message:   message,
		Timestamp: time.Now(),
	})
	return nil
}

func (s *MemoryStore) AddMetadata(ctx context.Context, historyID string, md map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.metadata[historyID]
	if !ok {
		existing = make(map[string]string)
		s.metadata[historyID] = existing
	}
	for k, v := range md {
		existing[k] = v
	}
	return nil
}

func (s *MemoryStore) GetMetadata(ctx context.Context, historyID string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	md := make(map[string]string, len(s.metadata[historyID]))
	for k, v := range s.metadata[historyID] {
		md[k] = v
	}
	return md, nil
}

func (s *MemoryStore) CreateUser(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}
