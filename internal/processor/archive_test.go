package processor

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildZip(t *testing.T, dir string, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(dir, "archive.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return path
}

func TestExtractArchive(t *testing.T) {
	dir := t.TempDir()
	outDir := t.TempDir()
	input := buildZip(t, dir, map[string]string{
		"readme.txt":      "hello",
		"docs/manual.txt": "manual text",
	})

	extractor := NewZipExtractor(outDir)
	var messages []string
	result, err := extractor.ExtractArchive(context.Background(), input, ArchiveOptions{}, func(_ int, msg string) {
		messages = append(messages, msg)
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.FilesExtracted)
	assert.Positive(t, result.Size)
	assert.True(t, strings.HasSuffix(result.Filename, "-extracted"))

	data, err := os.ReadFile(filepath.Join(result.Path, "readme.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	data, err = os.ReadFile(filepath.Join(result.Path, "docs", "manual.txt"))
	require.NoError(t, err)
	assert.Equal(t, "manual text", string(data))

	require.NotEmpty(t, messages)
	assert.Equal(t, "Preparing archive extraction...", messages[0])
	assert.Equal(t, "Archive extraction completed", messages[len(messages)-1])
}

func TestExtractArchiveCustomPathName(t *testing.T) {
	dir := t.TempDir()
	input := buildZip(t, dir, map[string]string{"a.txt": "a"})

	extractor := NewZipExtractor(t.TempDir())
	result, err := extractor.ExtractArchive(context.Background(), input, ArchiveOptions{ExtractPath: "my-output"}, nil)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(result.Filename, "-my-output"))
}

func TestExtractArchiveRejectsTraversalEntries(t *testing.T) {
	dir := t.TempDir()
	outDir := t.TempDir()
	input := buildZip(t, dir, map[string]string{"../escape.txt": "bad"})

	extractor := NewZipExtractor(outDir)
	_, err := extractor.ExtractArchive(context.Background(), input, ArchiveOptions{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes output directory")

	// failed extraction leaves no partial output behind
	remaining, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestExtractArchiveUnsupportedType(t *testing.T) {
	dir := t.TempDir()
	input := writeTempFile(t, dir, "archive.rar", "not really an archive")

	extractor := NewZipExtractor(t.TempDir())
	_, err := extractor.ExtractArchive(context.Background(), input, ArchiveOptions{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported archive type")
}
