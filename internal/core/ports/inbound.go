package ports

import (
	"context"

	"github.com/kirillkom/photo-tagger/internal/core/domain"
)

// PhotoTagger is the inbound contract for the upload-then-lookup workflow.
type PhotoTagger interface {
	// UploadAndTag calls onComplete exactly once; failures yield an empty slice.
	UploadAndTag(ctx context.Context, imageBytes []byte, onProgress ProgressFunc, onComplete func(tags []string))
	TagPhoto(ctx context.Context, photo domain.Photo, onProgress ProgressFunc) domain.TaggingResult
}
