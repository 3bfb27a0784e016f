package httpadapter

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/kirillkom/photo-tagger/internal/core/domain"
	"github.com/kirillkom/photo-tagger/internal/core/ports"
	"github.com/kirillkom/photo-tagger/internal/infrastructure/imageprep"
	"github.com/kirillkom/photo-tagger/internal/observability/metrics"
)

const (
	serviceName         = "api"
	defaultMaxUpload    = 20 << 20
	multipartFormMemory = 8 << 20
)

type RouterOptions struct {
	MaxUploadBytes int64
	ImagePrep      imageprep.Options
	RateLimitRPS   float64
	RateLimitBurst int
}

type Router struct {
	tagger  ports.PhotoTagger
	metrics *metrics.HTTPServerMetrics
	opts    RouterOptions
}

func NewRouter(tagger ports.PhotoTagger, httpMetrics *metrics.HTTPServerMetrics, opts RouterOptions) *Router {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUpload
	}
	return &Router{
		tagger:  tagger,
		metrics: httpMetrics,
		opts:    opts,
	}
}

func (rt *Router) Handler() http.Handler {
	var onLimited func()
	if rt.metrics != nil {
		onLimited = func() { rt.metrics.RecordRateLimited(serviceName) }
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.Handle("/v1/photos/tags", rateLimitMiddleware(
		http.HandlerFunc(rt.tagPhoto),
		rt.opts.RateLimitRPS,
		rt.opts.RateLimitBurst,
		onLimited,
	))

	var handler http.Handler = mux
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type tagPhotoResponse struct {
	RunID       string              `json:"run_id"`
	ContentID   string              `json:"content_id,omitempty"`
	Outcome     string              `json:"outcome"`
	Tags        []string            `json:"tags"`
	Colors      []domain.PhotoColor `json:"colors"`
	FailedStage string              `json:"failed_stage,omitempty"`
	Error       string              `json:"error,omitempty"`
}

func newTagPhotoResponse(result domain.TaggingResult) tagPhotoResponse {
	resp := tagPhotoResponse{
		RunID:     result.RunID,
		ContentID: result.ContentID,
		Outcome:   string(result.Outcome),
		Tags:      result.Tags,
		Colors:    result.Colors,
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}
	if resp.Colors == nil {
		resp.Colors = []domain.PhotoColor{}
	}
	if result.Failed() {
		resp.FailedStage = string(result.FailedStage)
		if result.Reason != nil {
			resp.Error = result.Reason.Error()
		}
	}
	return resp
}

func (rt *Router) tagPhoto(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, rt.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartFormMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "image exceeds upload limit")
			return
		}
		writeError(w, r, http.StatusBadRequest, "multipart form is required")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, err := formImage(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "multipart field 'imagefile' is required")
		return
	}
	defer file.Close()

	photo, err := imageprep.Prepare(file, rt.opts.ImagePrep)
	if err != nil {
		writeError(w, r, mapErrorToHTTPStatus(err), err.Error())
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordUpload(serviceName, len(photo.Data))
	}

	if wantsEventStream(r) {
		rt.streamTagging(w, r, photo)
		return
	}

	result := rt.tagger.TagPhoto(r.Context(), photo, nil)
	writeJSON(w, http.StatusOK, newTagPhotoResponse(result))
}

func formImage(r *http.Request) (multipart.File, error) {
	file, _, err := r.FormFile(domain.UploadFieldName)
	if err == nil {
		return file, nil
	}
	file, _, fallbackErr := r.FormFile("file")
	if fallbackErr == nil {
		return file, nil
	}
	return nil, err
}

func wantsEventStream(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/event-stream")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	payload := map[string]string{"error": message}
	if requestID := requestIDFromContext(r.Context()); requestID != "" {
		payload["request_id"] = requestID
	}
	writeJSON(w, status, payload)
}
