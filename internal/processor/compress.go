package processor

import (
	"compress/gzip"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LocalCompressor shrinks files in place of a codec farm: raster images are
// re-encoded at a level-dependent quality, everything else is gzipped.
type LocalCompressor struct {
	outputDir string
}

func NewLocalCompressor(outputDir string) *LocalCompressor {
	return &LocalCompressor{outputDir: outputDir}
}

func (c *LocalCompressor) Compress(ctx context.Context, inputPath, level string, preserveQuality, removeMetadata bool, onProgress ProgressFunc) (*Result, error) {
	start := time.Now()
	ext := strings.ToLower(filepath.Ext(inputPath))

	if onProgress != nil {
		onProgress(10, "Analyzing file for compression...")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		outputFilename string
		outputPath     string
		err            error
	)

	switch fileType(ext) {
	case "image":
		outputFilename = fmt.Sprintf("%s-%d-compressed%s", uuid.New().String(), time.Now().UnixMilli(), ext)
		outputPath = filepath.Join(c.outputDir, outputFilename)
		err = c.compressImage(inputPath, outputPath, ext, level, preserveQuality, onProgress)
	default:
		outputFilename = fmt.Sprintf("%s-%d-compressed%s.gz", uuid.New().String(), time.Now().UnixMilli(), ext)
		outputPath = filepath.Join(c.outputDir, outputFilename)
		err = c.compressGzip(inputPath, outputPath, level, onProgress)
	}
	if err != nil {
		os.Remove(outputPath)
		return nil, err
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat output: %w", err)
	}

	if onProgress != nil {
		onProgress(100, "Compression completed")
	}

	return &Result{
		Filename:       outputFilename,
		Path:           outputPath,
		Size:           info.Size(),
		ProcessingTime: time.Since(start).Seconds(),
	}, nil
}

func (c *LocalCompressor) compressImage(inputPath, outputPath, ext, level string, preserveQuality bool, onProgress ProgressFunc) error {
	if onProgress != nil {
		onProgress(20, "Loading image for compression...")
	}

	in, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer in.Close()

	img, _, err := image.Decode(in)
	if err != nil {
		return fmt.Errorf("unsupported or corrupt image input: %w", err)
	}

	if onProgress != nil {
		onProgress(40, fmt.Sprintf("Compressing image at %s level...", level))
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	defer out.Close()

	switch ext {
	case ".png":
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(out, img); err != nil {
			return fmt.Errorf("failed to encode png: %w", err)
		}
	default:
		// Any other raster input is re-encoded as jpeg, which also strips
		// metadata.
		if err := jpeg.Encode(out, img, &jpeg.Options{Quality: jpegQuality(level, preserveQuality)}); err != nil {
			return fmt.Errorf("failed to encode jpeg: %w", err)
		}
	}
	return nil
}

func (c *LocalCompressor) compressGzip(inputPath, outputPath, level string, onProgress ProgressFunc) error {
	if onProgress != nil {
		onProgress(30, "Compressing with gzip...")
	}

	in, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer in.Close()

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	defer out.Close()

	gz, err := gzip.NewWriterLevel(out, gzipLevel(level))
	if err != nil {
		return fmt.Errorf("failed to create gzip writer: %w", err)
	}

	if _, err := io.Copy(gz, in); err != nil {
		gz.Close()
		return fmt.Errorf("failed to write gzip output: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to flush gzip output: %w", err)
	}
	return nil
}

func jpegQuality(level string, preserveQuality bool) int {
	q := map[string]int{
		"light":   85,
		"medium":  75,
		"high":    65,
		"extreme": 50,
	}[level]
	if q == 0 {
		q = 75
	}
	if !preserveQuality {
		q -= 10
	}
	return q
}

func gzipLevel(level string) int {
	switch level {
	case "light":
		return gzip.BestSpeed
	case "high", "extreme":
		return gzip.BestCompression
	default:
		return gzip.DefaultCompression
	}
}
