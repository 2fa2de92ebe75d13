package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fileforge/internal/models"

	"gorm.io/gorm"
)

// GormStore persists records through gorm (postgres or embedded sqlite).
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a store backed by the given database handle.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) CreateHistory(ctx context.Context, h *models.FileHistory) error {
	if err := s.db.WithContext(ctx).Create(h).Error; err != nil {
		return fmt.Errorf("failed to create file history: %w", err)
	}
	return nil
}

func (s *GormStore) GetHistory(ctx context.Context, id string) (*models.FileHistory, error) {
	var h models.FileHistory
	if err := s.db.WithContext(ctx).First(&h, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get file history: %w", err)
	}
	return &h, nil
}

func (s *GormStore) ListHistory(ctx context.Context, f HistoryFilter) ([]models.FileHistory, error) {
	query := s.db.WithContext(ctx).Model(&models.FileHistory{})
	if f.UserID != "" {
		query = query.Where("user_id = ?", f.UserID)
	}
	if f.OperationType != "" {
		query = query.Where("operation_type = ?", f.OperationType)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	var records []models.FileHistory
	if err := query.Order("created_at DESC").Limit(limit).Offset(f.Offset).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list file history: %w", err)
	}
	return records, nil
}

func (s *GormStore) CompleteHistory(ctx context.Context, id, filename, path string, size int64, seconds float64) error {
	res := s.db.WithContext(ctx).Model(&models.FileHistory{}).Where("id = ?", id).Updates(map[string]interface{}{
		"processed_filename": filename,
		"processed_path":     path,
		"processed_size":     size,
		"processing_time":    seconds,
		"status":             models.StatusCompleted,
		"updated_at":         time.Now(),
	})
	if res.Error != nil {
		return fmt.Errorf("failed to complete file history: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) FailHistory(ctx context.Context, id, message string) error {
	res := s.db.WithContext(ctx).Model(&models.FileHistory{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":        models.StatusFailed,
		"error_message": message,
		"updated_at":    time.Now(),
	})
	if res.Error != nil {
		return fmt.Errorf("failed to mark file history failed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) DeleteHistory(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var h models.FileHistory
		if err := tx.First(&h, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		var jobIDs []string
		if err := tx.Model(&models.ProcessingJob{}).Where("file_history_id = ?", id).Pluck("id", &jobIDs).Error; err != nil {
			return err
		}
		if len(jobIDs) > 0 {
			if err := tx.Where("job_id IN ?", jobIDs).Delete(&models.JobLog{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("file_history_id = ?", id).Delete(&models.ProcessingJob{}).Error; err != nil {
			return err
		}
		if err := tx.Where("file_history_id = ?", id).Delete(&models.FileMetadata{}).Error; err != nil {
			return err
		}
		return tx.Delete(&h).Error
	})
}

func (s *GormStore) CompletedBefore(ctx context.Context, cutoff time.Time, userID string) ([]models.FileHistory, error) {
	query := s.db.WithContext(ctx).
		Where("status = ?", models.StatusCompleted).
		Where("created_at < ?", cutoff)
	if userID != "" {
		query = query.Where("user_id = ?", userID)
	}

	var records []models.FileHistory
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to select old records: %w", err)
	}
	return records, nil
}

func (s *GormStore) HistoryStats(ctx context.Context, userID string) (*HistoryStats, error) {
	base := func() *gorm.DB {
		q := s.db.WithContext(ctx).Model(&models.FileHistory{})
		if userID != "" {
			q = q.Where("user_id = ?", userID)
		}
		return q
	}

	stats := &HistoryStats{
		OperationsByType:   make(map[models.OperationType]int64),
		StatusDistribution: make(map[models.Status]int64),
	}

	var totals struct {
		Files         int64
		Size          int64
		ProcessedSize int64
		AvgTime       float64
	}
	err := base().
		Select("COUNT(*) AS files, COALESCE(SUM(file_size), 0) AS size, COALESCE(SUM(processed_size), 0) AS processed_size, COALESCE(AVG(processing_time), 0) AS avg_time").
		Scan(&totals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate history totals: %w", err)
	}
	stats.TotalFiles = totals.Files
	stats.TotalSize = totals.Size
	stats.TotalProcessedSize = totals.ProcessedSize
	stats.AverageProcessingTime = totals.AvgTime

	var byOp []struct {
		OperationType models.OperationType
		Count         int64
	}
	if err := base().Select("operation_type, COUNT(*) AS count").Group("operation_type").Scan(&byOp).Error; err != nil {
		return nil, fmt.Errorf("failed to count by operation: %w", err)
	}
	for _, row := range byOp {
		stats.OperationsByType[row.OperationType] = row.Count
	}

	var byStatus []struct {
		Status models.Status
		Count  int64
	}
	if err := base().Select("status, COUNT(*) AS count").Group("status").Scan(&byStatus).Error; err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}
	for _, row := range byStatus {
		stats.StatusDistribution[row.Status] = row.Count
	}

	return stats, nil
}

func (s *GormStore) CreateJob(ctx context.Context, j *models.ProcessingJob) error {
	if err := s.db.WithContext(ctx).Create(j).Error; err != nil {
		return fmt.Errorf("failed to create processing job: %w", err)
	}
	return nil
}

func (s *GormStore) GetJob(ctx context.Context, id string) (*models.ProcessingJob, error) {
	var j models.ProcessingJob
	err := s.db.WithContext(ctx).
		Preload("Logs", func(db *gorm.DB) *gorm.DB { return db.Order("timestamp ASC, id ASC") }).
		First(&j, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get processing job: %w", err)
	}
	return &j, nil
}

func (s *GormStore) StartJob(ctx context.Context, id string) error {
	return s.setJob(ctx, id, map[string]interface{}{
		"status":     models.StatusProcessing,
		"progress":   0,
		"updated_at": time.Now(),
	})
}

func (s *GormStore) SetJobProgress(ctx context.Context, id string, progress int) error {
	return s.setJob(ctx, id, map[string]interface{}{
		"progress":   progress,
		"updated_at": time.Now(),
	})
}

func (s *GormStore) FinishJob(ctx context.Context, id string, status models.Status, progress int) error {
	return s.setJob(ctx, id, map[string]interface{}{
		"status":     status,
		"progress":   progress,
		"updated_at": time.Now(),
	})
}

func (s *GormStore) setJob(ctx context.Context, id string, updates map[string]interface{}) error {
	res := s.db.WithContext(ctx).Model(&models.ProcessingJob{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update processing job: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) AppendJobLog(ctx context.Context, id, message string) error {
	entry := models.JobLog{
		JobID:     id,
		Message:   message,
		Timestamp: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to append job log: %w", err)
	}
	return nil
}

func (s *GormStore) AddMetadata(ctx context.Context, historyID string, md map[string]string) error {
	for key, value := range md {
		entry := models.FileMetadata{
			FileHistoryID: historyID,
			Key:           key,
			Value:         value,
			CreatedAt:     time.Now(),
		}
		if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to add metadata %q: %w", key, err)
		}
	}
	return nil
}

func (s *GormStore) GetMetadata(ctx context.Context, historyID string) (map[string]string, error) {
	var rows []models.FileMetadata
	if err := s.db.WithContext(ctx).Where("file_history_id = ?", historyID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get metadata: %w", err)
	}
	md := make(map[string]string, len(rows))
	for _, row := range rows {
		md[row.Key] = row.Value
	}
	return md, nil
}

func (s *GormStore) CreateUser(ctx context.Context, u *models.User) error {
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, "email = ?", email)
}

func (s *GormStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getUser(ctx, "username = ?", username)
}

func (s *GormStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.getUser(ctx, "id = ?", id)
}

func (s *GormStore) getUser(ctx context.Context, cond, arg string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, cond, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}
