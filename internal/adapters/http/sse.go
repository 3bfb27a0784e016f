package httpadapter

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/kirillkom/photo-tagger/internal/core/domain"
)

type progressFrame struct {
	Fraction float64 `json:"fraction"`
}

// streamTagging emits "progress" events while the upload runs and a single
// "result" event once the run ends.
func (rt *Router) streamTagging(w http.ResponseWriter, r *http.Request, photo domain.Photo) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusNotAcceptable, "streaming is not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	progress := make(chan float64, 16)
	done := make(chan domain.TaggingResult, 1)

	go func() {
		done <- rt.tagger.TagPhoto(ctx, photo, func(fraction float64) {
			select {
			case progress <- fraction:
			case <-ctx.Done():
			}
		})
	}()

	for {
		select {
		case fraction := <-progress:
			if err := writeEvent(w, "progress", progressFrame{Fraction: fraction}); err != nil {
				slog.Warn("sse_write_failed", "request_id", requestIDFromContext(ctx), "error", err)
			}
			flusher.Flush()
		case result := <-done:
			for drained := false; !drained; {
				select {
				case fraction := <-progress:
					_ = writeEvent(w, "progress", progressFrame{Fraction: fraction})
				default:
					drained = true
				}
			}
			if err := writeEvent(w, "result", newTagPhotoResponse(result)); err != nil {
				slog.Warn("sse_write_failed", "request_id", requestIDFromContext(ctx), "error", err)
			}
			flusher.Flush()
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
