package usecase

import (
	"math"
	"sync"

	"github.com/kirillkom/photo-tagger/internal/core/ports"
)

// progressForwarder passes every transport report to the caller. Values are
// clamped to [0,1], never decrease, and stop once the upload stage returns.
type progressForwarder struct {
	next ports.ProgressFunc

	mu     sync.Mutex
	last   float64
	closed bool
}

func newProgressForwarder(next ports.ProgressFunc) *progressForwarder {
	return &progressForwarder{next: next, last: -1}
}

func (f *progressForwarder) forward(fraction float64) {
	if f.next == nil || math.IsNaN(fraction) {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}

	fraction = math.Max(0, math.Min(1, fraction))
	// A lower report repeats the last value so the sequence never decreases.
	f.last = math.Max(f.last, fraction)
	f.next(f.last)
}

func (f *progressForwarder) close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}
