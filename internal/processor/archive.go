package processor

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ZipExtractor unpacks archives into a fresh directory under the processed
// root. Only zip archives are handled; other archive types are rejected.
type ZipExtractor struct {
	outputDir string
}

func NewZipExtractor(outputDir string) *ZipExtractor {
	return &ZipExtractor{outputDir: outputDir}
}

func (e *ZipExtractor) ExtractArchive(ctx context.Context, inputPath string, opts ArchiveOptions, onProgress ProgressFunc) (*Result, error) {
	start := time.Now()
	ext := strings.ToLower(filepath.Ext(inputPath))

	baseName := "extracted"
	if opts.ExtractPath != "" {
		baseName = filepath.Base(opts.ExtractPath)
	}
	outputName := fmt.Sprintf("%s-%d-%s", uuid.New().String(), time.Now().UnixMilli(), baseName)
	outputDir := filepath.Join(e.outputDir, outputName)

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	if onProgress != nil {
		onProgress(10, "Preparing archive extraction...")
	}

	var filesExtracted int
	var err error
	switch ext {
	case ".zip":
		filesExtracted, err = e.extractZip(ctx, inputPath, outputDir, opts.OverwriteExisting, onProgress)
	default:
		err = fmt.Errorf("unsupported archive type: %s, currently only .zip is supported", ext)
	}
	if err != nil {
		os.RemoveAll(outputDir)
		return nil, err
	}

	size, err := dirSize(outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to measure output: %w", err)
	}

	if onProgress != nil {
		onProgress(100, "Archive extraction completed")
	}

	return &Result{
		Filename:       outputName,
		Path:           outputDir,
		Size:           size,
		FilesExtracted: filesExtracted,
		ProcessingTime: time.Since(start).Seconds(),
	}, nil
}

func (e *ZipExtractor) extractZip(ctx context.Context, zipPath, outDir string, overwrite bool, onProgress ProgressFunc) (int, error) {
	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open archive: %w", err)
	}
	defer reader.Close()

	total := len(reader.File)
	if total == 0 {
		total = 1
	}

	extracted := 0
	for i, entry := range reader.File {
		if err := ctx.Err(); err != nil {
			return extracted, err
		}

		destPath, err := sanitizePath(outDir, entry.Name)
		if err != nil {
			return extracted, err
		}

		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(destPath, 0755); err != nil {
				return extracted, fmt.Errorf("failed to create directory: %w", err)
			}
		} else {
			if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
				return extracted, fmt.Errorf("failed to create directory: %w", err)
			}
			if _, statErr := os.Stat(destPath); statErr == nil && !overwrite {
				// keep the existing file
			} else {
				if err := writeZipEntry(entry, destPath); err != nil {
					return extracted, err
				}
				extracted++
			}
		}

		if onProgress != nil {
			pct := 10 + (i+1)*80/total
			onProgress(pct, fmt.Sprintf("Extracting %s", entry.Name))
		}
	}
	return extracted, nil
}

func writeZipEntry(entry *zip.File, destPath string) error {
	src, err := entry.Open()
	if err != nil {
		return fmt.Errorf("failed to open archive entry %s: %w", entry.Name, err)
	}
	defer src.Close()

	dst, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", destPath, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to write %s: %w", destPath, err)
	}
	return nil
}

// sanitizePath rejects entries that would escape the output directory.
func sanitizePath(outDir, name string) (string, error) {
	destPath := filepath.Join(outDir, filepath.FromSlash(name))
	if destPath != outDir && !strings.HasPrefix(destPath, outDir+string(filepath.Separator)) {
		return "", fmt.Errorf("archive entry %s escapes output directory", name)
	}
	return destPath, nil
}

func dirSize(targetDir string) (int64, error) {
	var size int64
	err := filepath.Walk(targetDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}
