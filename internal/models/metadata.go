package models

import (
	"time"
)

// FileMetadata holds key-value annotations produced by text extraction
// (page count, detected language, ...). Rows exist only when the extraction
// request asked for metadata, and are deleted with their FileHistory.
type FileMetadata struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	FileHistoryID string    `gorm:"not null;type:varchar(36);index" json:"file_history_id"`
	Key           string    `gorm:"not null;type:varchar(255);column:metadata_key" json:"key"`
	Value         string    `gorm:"type:text;column:metadata_value" json:"value"`
	CreatedAt     time.Time `json:"created_at"`
}

func (FileMetadata) TableName() string {
	return "file_metadata"
}
