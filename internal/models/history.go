package models

import (
	"time"
)

// OperationType identifies which processing pipeline a file went through.
type OperationType string

const (
	OperationConversion        OperationType = "conversion"
	OperationCompression       OperationType = "compression"
	OperationExtraction        OperationType = "extraction"
	OperationArchiveExtraction OperationType = "archive_extraction"
)

// Valid reports whether t is one of the known operation types.
func (t OperationType) Valid() bool {
	switch t {
	case OperationConversion, OperationCompression, OperationExtraction, OperationArchiveExtraction:
		return true
	}
	return false
}

// Status is the lifecycle state shared by FileHistory and ProcessingJob.
// Completed and failed are terminal.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transitions can occur.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// FileHistory records one file's lifecycle through one operation. It is the
// root entity: ProcessingJob, JobLog and FileMetadata rows are owned by it
// and deleted with it.
type FileHistory struct {
	ID                string        `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID            string        `gorm:"type:varchar(36);index" json:"user_id,omitempty"`
	OriginalFilename  string        `gorm:"not null;type:varchar(500)" json:"original_filename"`
	OriginalPath      string        `gorm:"not null;type:varchar(1000)" json:"original_path"`
	ProcessedFilename *string       `gorm:"type:varchar(500)" json:"processed_filename"`
	ProcessedPath     *string       `gorm:"type:varchar(1000)" json:"processed_path"`
	OperationType     OperationType `gorm:"not null;type:varchar(50);index" json:"operation_type"`
	OperationDetails  string        `gorm:"type:text" json:"operation_details"` // opaque JSON, tagged by OperationType
	FileSize          int64         `gorm:"not null" json:"file_size"`
	ProcessedSize     *int64        `json:"processed_size"`
	ProcessingTime    *float64      `json:"processing_time"` // seconds
	Status            Status        `gorm:"not null;type:varchar(50);default:'pending';index" json:"status"`
	ErrorMessage      *string       `gorm:"type:text" json:"error_message"`
	CreatedAt         time.Time     `gorm:"not null;index" json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`

	Jobs     []ProcessingJob `gorm:"foreignKey:FileHistoryID" json:"jobs,omitempty"`
	Metadata []FileMetadata  `gorm:"foreignKey:FileHistoryID" json:"metadata,omitempty"`
}

func (FileHistory) TableName() string {
	return "file_history"
}
