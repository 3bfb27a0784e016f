package domain

import "time"

// TaggingRequest is one of UploadContent, FetchTags or FetchColors.
type TaggingRequest interface {
	isTaggingRequest()
}

type UploadContent struct{}

type FetchTags struct {
	ContentID string
}

type FetchColors struct {
	ContentID string
}

func (UploadContent) isTaggingRequest() {}
func (FetchTags) isTaggingRequest()     {}
func (FetchColors) isTaggingRequest()   {}

const (
	UploadFieldName = "imagefile"
	UploadFilename  = "image.jpg"
	UploadMimeType  = "image/jpeg"
)

// Photo is the multipart payload sent to the tagging service.
type Photo struct {
	Filename string
	MimeType string
	Data     []byte
}

// NewJPEGPhoto wraps raw bytes with the upload defaults.
func NewJPEGPhoto(data []byte) Photo {
	return Photo{
		Filename: UploadFilename,
		MimeType: UploadMimeType,
		Data:     data,
	}
}

type UploadResult struct {
	ContentID string
}

type TagQueryResult struct {
	Tags    []string
	Skipped int
}

// PhotoColor is never populated: color lookup is unimplemented.
type PhotoColor struct {
	Name    string  `json:"name"`
	Hex     string  `json:"hex"`
	Percent float64 `json:"percent"`
}

type TaggingOutcome string

const (
	OutcomeTagged TaggingOutcome = "tagged"
	OutcomeEmpty  TaggingOutcome = "empty"
	OutcomeFailed TaggingOutcome = "failed"
)

type TaggingStage string

const (
	StageIdle      TaggingStage = "idle"
	StageUploading TaggingStage = "uploading"
	StageUploaded  TaggingStage = "uploaded"
	StageFetching  TaggingStage = "fetching"
	StageCompleted TaggingStage = "completed"
	StageFailed    TaggingStage = "failed"
)

// TaggingResult is the outcome of one upload-and-tag run. Tags and Colors are
// never nil. Stage is the last stage reached; Reason is set when Outcome is
// OutcomeFailed.
type TaggingResult struct {
	RunID       string
	ContentID   string
	Outcome     TaggingOutcome
	Stage       TaggingStage
	FailedStage TaggingStage
	Tags        []string
	Colors      []PhotoColor
	Reason      error
	Duration    time.Duration
}

func (r TaggingResult) Failed() bool {
	return r.Outcome == OutcomeFailed
}

// PhotoTaggedEvent is published once per run.
type PhotoTaggedEvent struct {
	RunID      string         `json:"run_id"`
	ContentID  string         `json:"content_id,omitempty"`
	Outcome    TaggingOutcome `json:"outcome"`
	Tags       []string       `json:"tags"`
	Error      string         `json:"error,omitempty"`
	DurationMS float64        `json:"duration_ms"`
	OccurredAt time.Time      `json:"occurred_at"`
}

func NewPhotoTaggedEvent(result TaggingResult, at time.Time) PhotoTaggedEvent {
	event := PhotoTaggedEvent{
		RunID:      result.RunID,
		ContentID:  result.ContentID,
		Outcome:    result.Outcome,
		Tags:       result.Tags,
		DurationMS: float64(result.Duration.Microseconds()) / 1000.0,
		OccurredAt: at.UTC(),
	}
	if event.Tags == nil {
		event.Tags = []string{}
	}
	if result.Reason != nil {
		event.Error = result.Reason.Error()
	}
	return event
}
