// Package intake turns uploaded slip images into recognition tasks. It is
// the single gate for image validation: size bounds, extension checks, and
// magic-byte content sniffing all happen here, so downstream stages can
// assume every task carries a well-formed image.
package intake

import (
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/purrup/auto-overtime/internal/domain"
)

// BuildTask validates an uploaded image and wraps it in an immutable
// recognition task. The returned task owns its own copy of the image bytes;
// callers may reuse or discard their buffer afterwards.
func BuildTask(filename string, data []byte) (domain.RecognitionTask, error) {
	if len(data) == 0 {
		return domain.RecognitionTask{}, fmt.Errorf("%w: %s", domain.ErrEmptyImage, filename)
	}
	if len(data) > domain.MaxImageSizeBytes {
		return domain.RecognitionTask{}, fmt.Errorf("%w: %s is %d bytes (max %d)",
			domain.ErrImageTooLarge, filename, len(data), domain.MaxImageSizeBytes)
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if _, ok := domain.AllowedExtensions[ext]; !ok {
		return domain.RecognitionTask{}, fmt.Errorf("%w: extension %q", domain.ErrUnsupportedImage, ext)
	}

	// Magic-byte detection; the extension alone is not trusted.
	sniffLen := len(data)
	if sniffLen > 512 {
		sniffLen = 512
	}
	contentType := http.DetectContentType(data[:sniffLen])
	if _, ok := domain.AllowedContentTypes[contentType]; !ok {
		return domain.RecognitionTask{}, fmt.Errorf("%w: detected content type %q", domain.ErrUnsupportedImage, contentType)
	}

	task := domain.RecognitionTask{
		ID:             uuid.New().String(),
		ImageBytes:     append([]byte(nil), data...),
		SourceFilename: filename,
		ContentType:    contentType,
	}
	log.Printf("intake.BuildTask: accepted %s (%s, %d bytes) as task %s",
		filename, contentType, len(data), task.ID)
	return task, nil
}

// UploadedFile is one raw image as received from the caller, before any
// validation has run.
type UploadedFile struct {
	Filename string
	Data     []byte
}

// BuildTasks validates a set of uploaded images as one batch. It enforces
// the batch size bounds and fails the whole set on the first invalid image,
// so a batch never starts with a task that is known to be doomed. Task
// order follows upload order.
func BuildTasks(files []UploadedFile) ([]domain.RecognitionTask, error) {
	if len(files) < domain.MinBatchTasks || len(files) > domain.MaxBatchTasks {
		return nil, fmt.Errorf("%w: got %d files (allowed %d-%d)",
			domain.ErrBatchSizeOutOfRange, len(files), domain.MinBatchTasks, domain.MaxBatchTasks)
	}

	tasks := make([]domain.RecognitionTask, 0, len(files))
	for _, f := range files {
		task, err := BuildTask(f.Filename, f.Data)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}
