package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/photo-tagger/internal/core/domain"
	"github.com/kirillkom/photo-tagger/internal/core/ports"
)

const defaultPublishTimeout = 2 * time.Second

type TagPhotoUseCase struct {
	tagging   ports.TaggingService
	publisher ports.TagEventPublisher
	recorder  ports.TaggingRecorder

	publishTimeout time.Duration
	now            func() time.Time
}

func NewTagPhotoUseCase(
	tagging ports.TaggingService,
	publisher ports.TagEventPublisher,
	recorder ports.TaggingRecorder,
) *TagPhotoUseCase {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &TagPhotoUseCase{
		tagging:        tagging,
		publisher:      publisher,
		recorder:       recorder,
		publishTimeout: defaultPublishTimeout,
		now:            time.Now,
	}
}

// UploadAndTag uploads imageBytes as image.jpg and reports the tags found.
// onComplete is called exactly once; any failure yields an empty slice.
func (uc *TagPhotoUseCase) UploadAndTag(
	ctx context.Context,
	imageBytes []byte,
	onProgress ports.ProgressFunc,
	onComplete func(tags []string),
) {
	result := uc.TagPhoto(ctx, domain.NewJPEGPhoto(imageBytes), onProgress)
	if onComplete != nil {
		onComplete(result.Tags)
	}
}

// TagPhoto runs the upload and the dependent tag lookup. It never returns an
// error; failures are reported through the result outcome and reason.
func (uc *TagPhotoUseCase) TagPhoto(
	ctx context.Context,
	photo domain.Photo,
	onProgress ports.ProgressFunc,
) domain.TaggingResult {
	start := uc.now()
	result := domain.TaggingResult{
		RunID:  uuid.NewString(),
		Stage:  domain.StageIdle,
		Tags:   []string{},
		Colors: []domain.PhotoColor{},
	}

	if len(photo.Data) == 0 {
		uc.fail(&result, domain.WrapError(domain.ErrInvalidInput, "upload content", errors.New("empty image data")))
		return uc.finish(ctx, result, start)
	}

	result.Stage = domain.StageUploading
	upload, err := uc.upload(ctx, photo, onProgress)
	if err != nil {
		uc.fail(&result, err)
		return uc.finish(ctx, result, start)
	}
	result.ContentID = upload.ContentID
	result.Stage = domain.StageUploaded
	slog.Info("content_uploaded", "run_id", result.RunID, "content_id", upload.ContentID)

	result.Stage = domain.StageFetching
	query, err := uc.fetchTags(ctx, upload.ContentID)
	if err != nil {
		uc.fail(&result, err)
		return uc.finish(ctx, result, start)
	}
	if query.Skipped > 0 {
		slog.Debug("tag_entries_skipped", "run_id", result.RunID, "content_id", upload.ContentID, "skipped", query.Skipped)
	}

	result.Stage = domain.StageCompleted
	if len(query.Tags) > 0 {
		result.Tags = query.Tags
		result.Outcome = domain.OutcomeTagged
	} else {
		result.Outcome = domain.OutcomeEmpty
	}
	return uc.finish(ctx, result, start)
}

func (uc *TagPhotoUseCase) upload(ctx context.Context, photo domain.Photo, onProgress ports.ProgressFunc) (domain.UploadResult, error) {
	if photo.Filename == "" {
		photo.Filename = domain.UploadFilename
	}
	if photo.MimeType == "" {
		photo.MimeType = domain.UploadMimeType
	}

	forwarder := newProgressForwarder(onProgress)
	stageStart := uc.now()
	upload, err := uc.tagging.UploadContent(ctx, photo, forwarder.forward)
	forwarder.close()

	if err == nil && upload.ContentID == "" {
		err = domain.WrapError(domain.ErrResponseShape, "upload content", errors.New("empty content id"))
	}
	uc.recorder.ObserveStage(domain.StageUploading, stageStatus(err), uc.now().Sub(stageStart))
	if err != nil {
		return domain.UploadResult{}, fmt.Errorf("upload content: %w", err)
	}
	return upload, nil
}

func (uc *TagPhotoUseCase) fetchTags(ctx context.Context, contentID string) (domain.TagQueryResult, error) {
	stageStart := uc.now()
	query, err := uc.tagging.FetchTags(ctx, contentID)
	uc.recorder.ObserveStage(domain.StageFetching, stageStatus(err), uc.now().Sub(stageStart))
	if err != nil {
		return domain.TagQueryResult{}, fmt.Errorf("fetch tags: %w", err)
	}
	return query, nil
}

func (uc *TagPhotoUseCase) fail(result *domain.TaggingResult, err error) {
	result.FailedStage = result.Stage
	result.Stage = domain.StageFailed
	result.Outcome = domain.OutcomeFailed
	result.Reason = err
	result.Tags = []string{}
}

func (uc *TagPhotoUseCase) finish(ctx context.Context, result domain.TaggingResult, start time.Time) domain.TaggingResult {
	result.Duration = uc.now().Sub(start)
	uc.recorder.ObserveRun(result.Outcome, len(result.Tags), result.Duration)

	if result.Failed() {
		slog.Warn("tagging_failed",
			"run_id", result.RunID,
			"content_id", result.ContentID,
			"stage", string(result.FailedStage),
			"error", result.Reason,
		)
	} else {
		slog.Info("tagging_completed",
			"run_id", result.RunID,
			"content_id", result.ContentID,
			"outcome", string(result.Outcome),
			"tags", len(result.Tags),
			"duration_ms", float64(result.Duration.Microseconds())/1000.0,
		)
	}

	uc.publish(ctx, result)
	return result
}

func (uc *TagPhotoUseCase) publish(ctx context.Context, result domain.TaggingResult) {
	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.publishTimeout)
	defer cancel()

	event := domain.NewPhotoTaggedEvent(result, uc.now())
	if err := uc.publisher.PublishPhotoTagged(publishCtx, event); err != nil {
		slog.Warn("publish_photo_tagged_failed", "run_id", result.RunID, "error", err)
	}
}

func stageStatus(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

type noopPublisher struct{}

func (noopPublisher) PublishPhotoTagged(context.Context, domain.PhotoTaggedEvent) error { return nil }

type noopRecorder struct{}

func (noopRecorder) ObserveStage(domain.TaggingStage, string, time.Duration) {}
func (noopRecorder) ObserveRun(domain.TaggingOutcome, int, time.Duration) {}
