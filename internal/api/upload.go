package api

import (
	"fmt"
	"mime"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"fileforge/internal/jobs"
	"fileforge/internal/storage"
)

var allowedMIMETypes = map[string]struct{}{
	// images
	"image/jpeg": {}, "image/jpg": {}, "image/png": {}, "image/gif": {},
	"image/webp": {}, "image/bmp": {}, "image/tiff": {},
	// documents
	"application/pdf": {}, "application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
	"application/vnd.ms-excel": {},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": {},
	"text/plain": {}, "text/csv": {},
	// audio
	"audio/mpeg": {}, "audio/mp3": {}, "audio/wav": {}, "audio/ogg": {},
	"audio/aac": {}, "audio/flac": {},
	// video
	"video/mp4": {}, "video/avi": {}, "video/mov": {}, "video/wmv": {},
	"video/flv": {}, "video/webm": {},
	// archives
	"application/zip": {}, "application/x-rar-compressed": {},
	"application/x-7z-compressed": {}, "application/gzip": {}, "application/x-tar": {},
}

// uploadLimits bounds a single intake request.
type uploadLimits struct {
	maxBytes int64
	maxFiles int
}

// intakeFiles persists the request's multipart files to the uploads
// directory and returns them as dispatch inputs. Any rejected file fails
// the whole request before dispatch.
func intakeFiles(c *gin.Context, store *storage.Storage, limits uploadLimits) ([]jobs.FileInput, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, &jobs.ValidationError{Field: "files", Message: "multipart form required"}
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		headers = form.File["file"]
	}
	if len(headers) == 0 {
		return nil, &jobs.ValidationError{Field: "files", Message: "no files uploaded"}
	}
	if len(headers) > limits.maxFiles {
		return nil, &jobs.ValidationError{Field: "files", Message: fmt.Sprintf("at most %d files per request", limits.maxFiles)}
	}

	// A file rejected partway through must not leave the earlier saves
	// behind; no history record points at them, so cleanup never would.
	inputs := make([]jobs.FileInput, 0, len(headers))
	discardSaved := func() {
		for _, in := range inputs {
			_ = store.Remove(in.StoredPath)
		}
	}
	for _, header := range headers {
		if err := checkUpload(header, limits.maxBytes); err != nil {
			discardSaved()
			return nil, err
		}
		src, err := header.Open()
		if err != nil {
			discardSaved()
			return nil, fmt.Errorf("failed to open upload %s: %w", header.Filename, err)
		}
		path, size, err := store.SaveUpload(src, header.Filename)
		src.Close()
		if err != nil {
			discardSaved()
			return nil, fmt.Errorf("failed to save upload %s: %w", header.Filename, err)
		}
		inputs = append(inputs, jobs.FileInput{
			OriginalName: header.Filename,
			StoredPath:   path,
			Size:         size,
		})
	}
	return inputs, nil
}

func checkUpload(header *multipart.FileHeader, maxBytes int64) error {
	if header.Size > maxBytes {
		return &jobs.ValidationError{
			Field:   "files",
			Message: fmt.Sprintf("%s exceeds the %dMB size limit", header.Filename, maxBytes>>20),
		}
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(header.Filename))
	}
	if semi := strings.IndexByte(contentType, ';'); semi >= 0 {
		contentType = strings.TrimSpace(contentType[:semi])
	}
	if _, ok := allowedMIMETypes[contentType]; !ok {
		return &jobs.ValidationError{
			Field:   "files",
			Message: fmt.Sprintf("file type %s is not supported", contentType),
		}
	}
	return nil
}
