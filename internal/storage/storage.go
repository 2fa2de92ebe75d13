package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Storage manages the local directories backing uploads and processed
// artifacts. Uploaded files land in uploads/, finished artifacts in
// processed/, scratch space in temp/.
type Storage struct {
	basePath string
}

// NewStorage creates the directory layout under basePath.
func NewStorage(basePath string) (*Storage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	dirs := []string{"uploads", "processed", "temp"}
	for _, dir := range dirs {
		if err := os.MkdirAll(filepath.Join(basePath, dir), 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s directory: %w", dir, err)
		}
	}

	return &Storage{basePath: basePath}, nil
}

// UploadsDir returns the directory uploaded originals are written to.
func (s *Storage) UploadsDir() string {
	return filepath.Join(s.basePath, "uploads")
}

// ProcessedDir returns the directory completed artifacts are written to.
func (s *Storage) ProcessedDir() string {
	return filepath.Join(s.basePath, "processed")
}

// TempDir returns the scratch directory for in-flight processing.
func (s *Storage) TempDir() string {
	return filepath.Join(s.basePath, "temp")
}

// SaveUpload writes an uploaded file into uploads/ under a collision-free
// name that preserves the original extension, and returns the stored path
// and byte count.
func (s *Storage) SaveUpload(reader io.Reader, originalName string) (string, int64, error) {
	name := fmt.Sprintf("%s-%d%s", uuid.New().String(), time.Now().UnixMilli(), filepath.Ext(originalName))
	path := filepath.Join(s.UploadsDir(), name)

	file, err := os.Create(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create upload file: %w", err)
	}
	defer file.Close()

	size, err := io.Copy(file, reader)
	if err != nil {
		os.Remove(path)
		return "", 0, fmt.Errorf("failed to write upload file: %w", err)
	}

	return path, size, nil
}

// Remove deletes a file or directory tree previously created under the
// storage root. Paths outside the root are refused.
func (s *Storage) Remove(path string) error {
	if !s.Contains(path) {
		return fmt.Errorf("path %s is outside storage root", path)
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

// Contains reports whether path lives under the storage root.
func (s *Storage) Contains(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	root, err := filepath.Abs(s.basePath)
	if err != nil {
		return false
	}
	return abs == root || strings.HasPrefix(abs, root+string(filepath.Separator))
}
