package models

import (
	"time"
)

// ProcessingJob is the pollable status handle for one file's background
// task. Its ID is composite: "<batchID>-<fileHistoryID>".
type ProcessingJob struct {
	ID            string        `gorm:"primaryKey;type:varchar(80)" json:"job_id"`
	FileHistoryID string        `gorm:"not null;type:varchar(36);index" json:"file_history_id"`
	OperationType OperationType `gorm:"not null;type:varchar(50);index" json:"operation_type"`
	Status        Status        `gorm:"not null;type:varchar(50);default:'pending';index" json:"status"`
	Progress      int           `gorm:"default:0" json:"progress"` // 0..100
	CreatedAt     time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`

	History FileHistory `gorm:"foreignKey:FileHistoryID" json:"-"`
	Logs    []JobLog    `gorm:"foreignKey:JobID" json:"logs,omitempty"`
}

func (ProcessingJob) TableName() string {
	return "processing_jobs"
}

// JobLog stores one progress log line for a job.
type JobLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	JobID     string    `gorm:"not null;type:varchar(80);index" json:"job_id"`
	Message   string    `gorm:"type:text" json:"message"`
	Timestamp time.Time `gorm:"not null;index" json:"timestamp"`
}

func (JobLog) TableName() string {
	return "job_logs"
}
