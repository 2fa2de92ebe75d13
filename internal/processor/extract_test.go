package processor

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTextFile(t *testing.T) {
	dir := t.TempDir()
	input := writeTempFile(t, dir, "report.md", "# Heading\n\nBody text here.")

	extractor := NewTextExtractor(dir)
	result, err := extractor.Extract(context.Background(), input, "auto", true, "en", nil)
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(result.Filename, "-extracted.txt"))
	data, err := os.ReadFile(result.Path)
	require.NoError(t, err)
	assert.Equal(t, "# Heading\n\nBody text here.", string(data))

	require.NotNil(t, result.Metadata)
	assert.Equal(t, "native", result.Metadata["extractionMode"])
	assert.Equal(t, "en", result.Metadata["language"])
	assert.Equal(t, "26", result.Metadata["textLength"])
}

func TestExtractWithoutMetadata(t *testing.T) {
	dir := t.TempDir()
	input := writeTempFile(t, dir, "plain.txt", "some text")

	extractor := NewTextExtractor(dir)
	result, err := extractor.Extract(context.Background(), input, "native", false, "", nil)
	require.NoError(t, err)
	assert.Nil(t, result.Metadata)
}

func TestExtractOCRModesUnavailable(t *testing.T) {
	dir := t.TempDir()
	input := writeTempFile(t, dir, "scan.txt", "text")
	extractor := NewTextExtractor(dir)

	for _, mode := range []string{"ocr", "hybrid"} {
		_, err := extractor.Extract(context.Background(), input, mode, false, "", nil)
		require.Error(t, err, "mode %s", mode)
		assert.Contains(t, err.Error(), "OCR engine")
	}
}

func TestExtractUnsupportedFileType(t *testing.T) {
	dir := t.TempDir()
	input := writeTempFile(t, dir, "binary.bin", "\x00\x01")
	extractor := NewTextExtractor(dir)

	_, err := extractor.Extract(context.Background(), input, "native", false, "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not supported")
}
