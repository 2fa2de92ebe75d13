package processor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// TextExtractor pulls text out of text-based documents. PDF inputs get
// page-count metadata through pdfcpu; OCR modes need an external engine and
// are rejected with a descriptive error.
type TextExtractor struct {
	outputDir string
}

func NewTextExtractor(outputDir string) *TextExtractor {
	return &TextExtractor{outputDir: outputDir}
}

func (e *TextExtractor) Extract(ctx context.Context, inputPath, mode string, includeMetadata bool, language string, onProgress ProgressFunc) (*Result, error) {
	start := time.Now()
	ext := strings.ToLower(filepath.Ext(inputPath))

	if onProgress != nil {
		onProgress(10, "Analyzing file for text extraction...")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if mode == "auto" {
		mode = "native"
	}
	switch mode {
	case "native":
	case "ocr", "hybrid":
		return nil, fmt.Errorf("extraction mode %s requires an external OCR engine", mode)
	default:
		return nil, fmt.Errorf("unsupported extraction mode: %s", mode)
	}

	if onProgress != nil {
		onProgress(20, "Extracting native text...")
	}

	metadata := map[string]string{}
	var text string

	switch ext {
	case ".txt", ".csv", ".md", ".log", ".json", ".xml", ".html":
		raw, err := os.ReadFile(inputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read input: %w", err)
		}
		text = string(raw)
	case ".pdf":
		pages, err := api.PageCountFile(inputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read pdf: %w", err)
		}
		metadata["pageCount"] = strconv.Itoa(pages)

		if onProgress != nil {
			onProgress(50, fmt.Sprintf("Extracting content from %d pages...", pages))
		}
		text, err = extractPDFContent(inputPath)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("native text extraction not supported for: %s", ext)
	}

	if onProgress != nil {
		onProgress(80, "Formatting extracted text...")
	}

	outputFilename := fmt.Sprintf("%s-%d-extracted.txt", uuid.New().String(), time.Now().UnixMilli())
	outputPath := filepath.Join(e.outputDir, outputFilename)
	if err := os.WriteFile(outputPath, []byte(text), 0644); err != nil {
		return nil, fmt.Errorf("failed to write output: %w", err)
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat output: %w", err)
	}

	metadata["textLength"] = strconv.Itoa(len(text))
	metadata["extractionMode"] = mode
	if language != "" {
		metadata["language"] = language
	}

	if onProgress != nil {
		onProgress(100, "Text extraction completed")
	}

	result := &Result{
		Filename:       outputFilename,
		Path:           outputPath,
		Size:           info.Size(),
		ProcessingTime: time.Since(start).Seconds(),
	}
	if includeMetadata {
		result.Metadata = metadata
	}
	return result, nil
}

// extractPDFContent dumps the page content streams into a scratch directory
// and concatenates them. Content streams are raw PDF operators rather than
// clean prose, which is the best a library-only extraction can do here.
func extractPDFContent(inputPath string) (string, error) {
	tmpDir, err := os.MkdirTemp("", "fileforge-pdf-")
	if err != nil {
		return "", fmt.Errorf("failed to create scratch dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	if err := api.ExtractContentFile(inputPath, tmpDir, nil, nil); err != nil {
		return "", fmt.Errorf("failed to extract pdf content: %w", err)
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		return "", fmt.Errorf("failed to list extracted content: %w", err)
	}

	var sb strings.Builder
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(tmpDir, entry.Name()))
		if err != nil {
			continue
		}
		sb.Write(raw)
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}
