package processor

import (
	"context"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	// webp inputs are decode-only
	_ "golang.org/x/image/webp"
)

// ImageConverter converts between raster image formats. Video, audio and
// document targets need an external transcoder and are rejected with a
// descriptive error.
type ImageConverter struct {
	outputDir string
}

func NewImageConverter(outputDir string) *ImageConverter {
	return &ImageConverter{outputDir: outputDir}
}

func (c *ImageConverter) Convert(ctx context.Context, inputPath, targetFormat string, onProgress ProgressFunc) (*Result, error) {
	start := time.Now()
	targetFormat = strings.ToLower(targetFormat)

	if onProgress != nil {
		onProgress(10, "Analyzing file type...")
	}

	switch targetFormat {
	case "jpg", "jpeg", "png", "gif", "bmp", "tiff":
	case "webp":
		return nil, fmt.Errorf("conversion to webp is not supported (encode unavailable)")
	default:
		return nil, fmt.Errorf("conversion to %s requires an external transcoder", targetFormat)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	in, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer in.Close()

	if onProgress != nil {
		onProgress(20, "Loading image...")
	}

	img, sourceFormat, err := image.Decode(in)
	if err != nil {
		return nil, fmt.Errorf("unsupported or corrupt image input: %w", err)
	}

	if onProgress != nil {
		onProgress(60, fmt.Sprintf("Converting %s to %s...", sourceFormat, targetFormat))
	}

	outputFilename := fmt.Sprintf("%s-%d.%s", uuid.New().String(), time.Now().UnixMilli(), targetFormat)
	outputPath := filepath.Join(c.outputDir, outputFilename)

	out, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create output: %w", err)
	}
	defer out.Close()

	switch targetFormat {
	case "jpg", "jpeg":
		err = jpeg.Encode(out, img, &jpeg.Options{Quality: 90})
	case "png":
		err = png.Encode(out, img)
	case "gif":
		err = gif.Encode(out, img, nil)
	case "bmp":
		err = bmp.Encode(out, img)
	case "tiff":
		err = tiff.Encode(out, img, nil)
	}
	if err != nil {
		os.Remove(outputPath)
		return nil, fmt.Errorf("failed to encode %s: %w", targetFormat, err)
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat output: %w", err)
	}

	if onProgress != nil {
		onProgress(100, "Image conversion completed")
	}

	return &Result{
		Filename:       outputFilename,
		Path:           outputPath,
		Size:           info.Size(),
		ProcessingTime: time.Since(start).Seconds(),
	}, nil
}
