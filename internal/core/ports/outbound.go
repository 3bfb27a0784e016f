package ports

import (
	"context"
	"time"

	"github.com/kirillkom/photo-tagger/internal/core/domain"
)

// ProgressFunc receives upload completion as a fraction in [0,1].
type ProgressFunc func(fraction float64)

// TaggingService is the remote image-tagging API.
type TaggingService interface {
	UploadContent(ctx context.Context, photo domain.Photo, onProgress ProgressFunc) (domain.UploadResult, error)
	FetchTags(ctx context.Context, contentID string) (domain.TagQueryResult, error)
}

// TagEventPublisher announces finished tagging runs.
type TagEventPublisher interface {
	PublishPhotoTagged(ctx context.Context, event domain.PhotoTaggedEvent) error
}

// TaggingRecorder observes stage and run outcomes.
type TaggingRecorder interface {
	ObserveStage(stage domain.TaggingStage, status string, duration time.Duration)
	ObserveRun(outcome domain.TaggingOutcome, tagCount int, duration time.Duration)
}
