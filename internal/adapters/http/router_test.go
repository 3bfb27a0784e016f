package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/kirillkom/photo-tagger/internal/core/domain"
	"github.com/kirillkom/photo-tagger/internal/core/ports"
	"github.com/kirillkom/photo-tagger/internal/observability/metrics"
)

type photoTaggerFake struct {
	mu       sync.Mutex
	progress []float64
	result   domain.TaggingResult
	photos   []domain.Photo
}

func (f *photoTaggerFake) UploadAndTag(ctx context.Context, imageBytes []byte, onProgress ports.ProgressFunc, onComplete func([]string)) {
	result := f.TagPhoto(ctx, domain.NewJPEGPhoto(imageBytes), onProgress)
	onComplete(result.Tags)
}

func (f *photoTaggerFake) TagPhoto(_ context.Context, photo domain.Photo, onProgress ports.ProgressFunc) domain.TaggingResult {
	f.mu.Lock()
	f.photos = append(f.photos, photo)
	f.mu.Unlock()
	if onProgress != nil {
		for _, p := range f.progress {
			onProgress(p)
		}
	}
	return f.result
}

func taggedResult(tags ...string) domain.TaggingResult {
	return domain.TaggingResult{
		RunID:     "run-1",
		ContentID: "abc",
		Outcome:   domain.OutcomeTagged,
		Stage:     domain.StageCompleted,
		Tags:      tags,
		Colors:    []domain.PhotoColor{},
	}
}

func imageFixture(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := 0; i < 8; i++ {
		img.Set(i, i, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func multipartRequest(t *testing.T, field string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(field, "photo.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/photos/tags", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func newTestHandler(tagger ports.PhotoTagger, opts RouterOptions) http.Handler {
	return NewRouter(tagger, metrics.NewHTTPServerMetrics(serviceName), opts).Handler()
}

func TestHealthz(t *testing.T) {
	handler := newTestHandler(&photoTaggerFake{}, RouterOptions{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
}

func TestTagPhotoReturnsTags(t *testing.T) {
	tagger := &photoTaggerFake{result: taggedResult("cat", "pet")}
	handler := newTestHandler(tagger, RouterOptions{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, multipartRequest(t, "imagefile", imageFixture(t)))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	var resp tagPhotoResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Outcome != "tagged" || resp.ContentID != "abc" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if len(resp.Tags) != 2 || resp.Tags[0] != "cat" || resp.Tags[1] != "pet" {
		t.Fatalf("unexpected tags %v", resp.Tags)
	}
	if len(tagger.photos) != 1 || tagger.photos[0].MimeType != "image/jpeg" {
		t.Fatalf("expected a prepared jpeg photo, got %+v", tagger.photos)
	}
}

func TestTagPhotoAcceptsFileFieldFallback(t *testing.T) {
	handler := newTestHandler(&photoTaggerFake{result: taggedResult("dog")}, RouterOptions{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, multipartRequest(t, "file", imageFixture(t)))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
}

func TestTagPhotoFailedRunStillReturns200(t *testing.T) {
	tagger := &photoTaggerFake{result: domain.TaggingResult{
		RunID:       "run-2",
		Outcome:     domain.OutcomeFailed,
		Stage:       domain.StageFailed,
		FailedStage: domain.StageUploading,
		Tags:        []string{},
		Colors:      []domain.PhotoColor{},
		Reason:      errors.New("upload content: transport error"),
	}}
	handler := newTestHandler(tagger, RouterOptions{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, multipartRequest(t, "imagefile", imageFixture(t)))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	var resp tagPhotoResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Outcome != "failed" || resp.FailedStage != "uploading" || resp.Error == "" {
		t.Fatalf("unexpected failure response %+v", resp)
	}
	if resp.Tags == nil || len(resp.Tags) != 0 {
		t.Fatalf("expected empty tags array, got %v", resp.Tags)
	}
}

func TestTagPhotoRequiresImageField(t *testing.T) {
	handler := newTestHandler(&photoTaggerFake{}, RouterOptions{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, multipartRequest(t, "other", imageFixture(t)))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestTagPhotoRejectsNonImage(t *testing.T) {
	tagger := &photoTaggerFake{}
	handler := newTestHandler(tagger, RouterOptions{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, multipartRequest(t, "imagefile", []byte("plain text")))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	if len(tagger.photos) != 0 {
		t.Fatalf("workflow must not run for invalid images")
	}
}

func TestTagPhotoRejectsWrongMethod(t *testing.T) {
	handler := newTestHandler(&photoTaggerFake{}, RouterOptions{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/photos/tags", nil))
	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.Code)
	}
}

func TestTagPhotoRejectsOversizedBody(t *testing.T) {
	handler := newTestHandler(&photoTaggerFake{}, RouterOptions{MaxUploadBytes: 1024})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, multipartRequest(t, "imagefile", bytes.Repeat([]byte{0xff}, 4096)))
	if res.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", res.Code)
	}
}

func TestTagPhotoStreamsProgressThenResult(t *testing.T) {
	tagger := &photoTaggerFake{
		progress: []float64{0.25, 0.5, 1},
		result:   taggedResult("cat"),
	}
	handler := newTestHandler(tagger, RouterOptions{})

	req := multipartRequest(t, "imagefile", imageFixture(t))
	req.Header.Set("Accept", "text/event-stream")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if ct := res.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected event stream, got %q", ct)
	}

	var events []string
	for _, line := range strings.Split(res.Body.String(), "\n") {
		if name, ok := strings.CutPrefix(line, "event: "); ok {
			events = append(events, name)
		}
	}
	want := []string{"progress", "progress", "progress", "result"}
	if strings.Join(events, ",") != strings.Join(want, ",") {
		t.Fatalf("expected events %v, got %v", want, events)
	}
	if !strings.Contains(res.Body.String(), `"tags":["cat"]`) {
		t.Fatalf("expected result payload with tags, got %s", res.Body.String())
	}
}

func TestRateLimitMiddlewareReturns429(t *testing.T) {
	handler := newTestHandler(&photoTaggerFake{result: taggedResult("cat")}, RouterOptions{
		RateLimitRPS:   1,
		RateLimitBurst: 1,
	})

	res1 := httptest.NewRecorder()
	handler.ServeHTTP(res1, multipartRequest(t, "imagefile", imageFixture(t)))
	if res1.Code != http.StatusOK {
		t.Fatalf("first request expected 200, got %d", res1.Code)
	}

	res2 := httptest.NewRecorder()
	handler.ServeHTTP(res2, multipartRequest(t, "imagefile", imageFixture(t)))
	if res2.Code != http.StatusTooManyRequests {
		t.Fatalf("second request expected 429, got %d", res2.Code)
	}
	if res2.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header for 429 response")
	}
}

func TestMetricsEndpointExposesRequests(t *testing.T) {
	handler := newTestHandler(&photoTaggerFake{}, RouterOptions{})

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "phototagger_http_requests_total") {
		t.Fatalf("expected request counter in metrics output")
	}
}

func TestMapErrorToHTTPStatus(t *testing.T) {
	cases := map[error]int{
		domain.WrapError(domain.ErrInvalidInput, "op", errors.New("x")):  http.StatusBadRequest,
		domain.WrapError(domain.ErrTemporary, "op", errors.New("x")):     http.StatusServiceUnavailable,
		domain.WrapError(domain.ErrTransport, "op", errors.New("x")):     http.StatusBadGateway,
		domain.WrapError(domain.ErrResponseShape, "op", errors.New("x")): http.StatusBadGateway,
		errors.New("other"): http.StatusInternalServerError,
	}
	for err, want := range cases {
		if got := mapErrorToHTTPStatus(err); got != want {
			t.Fatalf("mapErrorToHTTPStatus(%v) = %d, want %d", err, got, want)
		}
	}
}
