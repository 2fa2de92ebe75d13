package jobs

import (
	"encoding/json"
	"fmt"
	"strings"

	"fileforge/internal/models"
)

// ValidationError marks request options that were rejected before any
// records were created.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

var conversionFormats = map[string]struct{}{
	// images
	"jpg": {}, "jpeg": {}, "png": {}, "webp": {}, "gif": {}, "bmp": {}, "tiff": {},
	// videos
	"mp4": {}, "avi": {}, "mov": {}, "wmv": {}, "flv": {}, "webm": {},
	// audio
	"mp3": {}, "wav": {}, "ogg": {}, "aac": {}, "flac": {},
	// documents
	"pdf": {}, "docx": {}, "txt": {},
}

var compressionLevels = map[string]struct{}{
	"light": {}, "medium": {}, "high": {}, "extreme": {},
}

var extractionModes = map[string]struct{}{
	"auto": {}, "ocr": {}, "native": {}, "hybrid": {},
}

var extractionLanguages = map[string]struct{}{
	"auto": {}, "en": {}, "es": {}, "fr": {}, "de": {}, "zh": {},
	"ja": {}, "ko": {}, "ru": {}, "ar": {}, "hi": {},
}

// Options describes one operation's parameters. Implementations validate
// themselves and serialize to the details blob stored on each history row.
type Options interface {
	Operation() models.OperationType
	Validate() error
	Details() (string, error)
}

type ConversionOptions struct {
	TargetFormat string `json:"targetFormat"`
}

func (o ConversionOptions) Operation() models.OperationType { return models.OperationConversion }

func (o ConversionOptions) Validate() error {
	format := strings.ToLower(o.TargetFormat)
	if format == "" {
		return &ValidationError{Field: "targetFormat", Message: "target format is required"}
	}
	if _, ok := conversionFormats[format]; !ok {
		return &ValidationError{Field: "targetFormat", Message: fmt.Sprintf("unsupported format %q", o.TargetFormat)}
	}
	return nil
}

func (o ConversionOptions) Details() (string, error) {
	return encodeDetails(o.Operation(), map[string]any{
		"targetFormat": strings.ToLower(o.TargetFormat),
	})
}

type CompressionOptions struct {
	Level           string `json:"compressionLevel"`
	PreserveQuality bool   `json:"preserveQuality"`
	RemoveMetadata  bool   `json:"removeMetadata"`
}

func (o CompressionOptions) Operation() models.OperationType { return models.OperationCompression }

func (o CompressionOptions) Validate() error {
	if o.Level == "" {
		return &ValidationError{Field: "compressionLevel", Message: "compression level is required"}
	}
	if _, ok := compressionLevels[o.Level]; !ok {
		return &ValidationError{Field: "compressionLevel", Message: fmt.Sprintf("unknown level %q", o.Level)}
	}
	return nil
}

func (o CompressionOptions) Details() (string, error) {
	return encodeDetails(o.Operation(), map[string]any{
		"compressionLevel": o.Level,
		"preserveQuality":  o.PreserveQuality,
		"removeMetadata":   o.RemoveMetadata,
	})
}

type ExtractionOptions struct {
	Mode            string `json:"extractionMode"`
	IncludeMetadata bool   `json:"includeMetadata"`
	Language        string `json:"language"`
}

func (o ExtractionOptions) Operation() models.OperationType { return models.OperationExtraction }

func (o ExtractionOptions) Validate() error {
	if o.Mode == "" {
		return &ValidationError{Field: "extractionMode", Message: "extraction mode is required"}
	}
	if _, ok := extractionModes[o.Mode]; !ok {
		return &ValidationError{Field: "extractionMode", Message: fmt.Sprintf("unknown mode %q", o.Mode)}
	}
	if o.Language != "" {
		if _, ok := extractionLanguages[o.Language]; !ok {
			return &ValidationError{Field: "language", Message: fmt.Sprintf("unsupported language %q", o.Language)}
		}
	}
	return nil
}

func (o ExtractionOptions) Details() (string, error) {
	language := o.Language
	if language == "" {
		language = "auto"
	}
	return encodeDetails(o.Operation(), map[string]any{
		"extractionMode":  o.Mode,
		"includeMetadata": o.IncludeMetadata,
		"language":        language,
	})
}

type ArchiveOptions struct {
	ExtractPath       string `json:"extractPath"`
	OverwriteExisting bool   `json:"overwriteExisting"`
}

func (o ArchiveOptions) Operation() models.OperationType { return models.OperationArchiveExtraction }

func (o ArchiveOptions) Validate() error {
	if strings.Contains(o.ExtractPath, "..") {
		return &ValidationError{Field: "extractPath", Message: "must not contain path traversal"}
	}
	return nil
}

func (o ArchiveOptions) Details() (string, error) {
	return encodeDetails(o.Operation(), map[string]any{
		"extractPath":       o.ExtractPath,
		"overwriteExisting": o.OverwriteExisting,
	})
}

// encodeDetails tags the blob with its operation so consumers can decode
// it without consulting the history row.
func encodeDetails(op models.OperationType, fields map[string]any) (string, error) {
	fields["operation"] = string(op)
	raw, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("failed to encode operation details: %w", err)
	}
	return string(raw), nil
}

// DecodeDetails returns the tagged operation and the raw fields of a
// details blob.
func DecodeDetails(details string) (models.OperationType, map[string]any, error) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(details), &fields); err != nil {
		return "", nil, fmt.Errorf("failed to decode operation details: %w", err)
	}
	op, _ := fields["operation"].(string)
	return models.OperationType(op), fields, nil
}
