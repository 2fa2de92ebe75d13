package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fileforge/internal/models"
	"fileforge/internal/store"
)

type fakeRemover struct {
	removed []string
}

func (f *fakeRemover) Remove(path string) error {
	f.removed = append(f.removed, path)
	return nil
}

func seedHistory(t *testing.T, s store.Store, id string, status models.Status, age time.Duration, userID string) {
	t.Helper()
	processed := "/tmp/processed/" + id
	h := &models.FileHistory{
		ID:               id,
		UserID:           userID,
		OriginalFilename: id + ".txt",
		OriginalPath:     "/tmp/uploads/" + id,
		OperationType:    models.OperationCompression,
		FileSize:         10,
		Status:           status,
		CreatedAt:        time.Now().Add(-age),
	}
	if status == models.StatusCompleted {
		h.ProcessedPath = &processed
	}
	require.NoError(t, s.CreateHistory(context.Background(), h))
}

func TestCleanupDeletesOldCompletedOnly(t *testing.T) {
	s := store.NewMemoryStore()
	remover := &fakeRemover{}
	cleanup := NewCleanupService(s, remover, zerolog.Nop())

	seedHistory(t, s, "old-done", models.StatusCompleted, 48*time.Hour, "")
	seedHistory(t, s, "new-done", models.StatusCompleted, time.Hour, "")
	seedHistory(t, s, "old-failed", models.StatusFailed, 48*time.Hour, "")
	seedHistory(t, s, "old-pending", models.StatusPending, 48*time.Hour, "")

	deleted, err := cleanup.Run(context.Background(), time.Now().Add(-24*time.Hour), "")
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = s.GetHistory(context.Background(), "old-done")
	assert.ErrorIs(t, err, store.ErrNotFound)

	for _, id := range []string{"new-done", "old-failed", "old-pending"} {
		_, err := s.GetHistory(context.Background(), id)
		assert.NoError(t, err, "record %s should survive cleanup", id)
	}

	// original and processed files of the deleted record were removed
	assert.Contains(t, remover.removed, "/tmp/uploads/old-done")
	assert.Contains(t, remover.removed, "/tmp/processed/old-done")
}

func TestCleanupIsIdempotent(t *testing.T) {
	s := store.NewMemoryStore()
	cleanup := NewCleanupService(s, &fakeRemover{}, zerolog.Nop())

	seedHistory(t, s, "old-done", models.StatusCompleted, 72*time.Hour, "")

	deleted, err := cleanup.RunRetention(context.Background(), 1, "")
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	deleted, err = cleanup.RunRetention(context.Background(), 1, "")
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)
}

func TestCleanupScopedToUser(t *testing.T) {
	s := store.NewMemoryStore()
	cleanup := NewCleanupService(s, &fakeRemover{}, zerolog.Nop())

	seedHistory(t, s, "mine", models.StatusCompleted, 48*time.Hour, "user-1")
	seedHistory(t, s, "theirs", models.StatusCompleted, 48*time.Hour, "user-2")

	deleted, err := cleanup.Run(context.Background(), time.Now(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = s.GetHistory(context.Background(), "theirs")
	assert.NoError(t, err)
}
