// Package processor holds the external processing collaborators invoked by
// the background runner. The runner treats them as black boxes: each takes an
// input path, operation options and a progress callback, and either returns a
// Result describing the produced artifact or fails with a human-readable
// error that ends up on the job record.
package processor

import (
	"context"
)

// ProgressFunc receives progress events from a collaborator. Implementations
// may call it any number of times, including zero. Callers must tolerate
// invocations after the job already reached a terminal state.
type ProgressFunc func(percent int, message string)

// Result describes the artifact a collaborator produced.
type Result struct {
	Filename       string
	Path           string
	Size           int64
	ProcessingTime float64           // seconds
	FilesExtracted int               // archive extraction only
	Metadata       map[string]string // extraction only, when requested
}

// ArchiveOptions tunes archive extraction.
type ArchiveOptions struct {
	ExtractPath       string
	OverwriteExisting bool
}

type Converter interface {
	Convert(ctx context.Context, inputPath, targetFormat string, onProgress ProgressFunc) (*Result, error)
}

type Compressor interface {
	Compress(ctx context.Context, inputPath, level string, preserveQuality, removeMetadata bool, onProgress ProgressFunc) (*Result, error)
}

type Extractor interface {
	Extract(ctx context.Context, inputPath, mode string, includeMetadata bool, language string, onProgress ProgressFunc) (*Result, error)
}

type ArchiveExtractor interface {
	ExtractArchive(ctx context.Context, inputPath string, opts ArchiveOptions, onProgress ProgressFunc) (*Result, error)
}

// Set bundles one collaborator per operation type for injection into the
// runner.
type Set struct {
	Converter  Converter
	Compressor Compressor
	Extractor  Extractor
	Archive    ArchiveExtractor
}

// fileType buckets an extension the way the upload allow-list does.
func fileType(ext string) string {
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tiff", ".webp":
		return "image"
	case ".mp4", ".avi", ".mov", ".wmv", ".flv", ".webm":
		return "video"
	case ".mp3", ".wav", ".ogg", ".aac", ".flac":
		return "audio"
	case ".pdf", ".docx", ".doc", ".txt", ".rtf", ".csv", ".md", ".log":
		return "document"
	case ".zip", ".rar", ".7z", ".tar", ".gz":
		return "archive"
	}
	return "unknown"
}
