package pipeline

import (
	"sync"
	"time"
)

// rateMeter computes a frames-per-second rate over a sliding window.
type rateMeter struct {
	mu     sync.Mutex
	window time.Duration
	marks  []time.Time
}

func newRateMeter(window time.Duration) *rateMeter {
	if window <= 0 {
		window = time.Second
	}
	return &rateMeter{window: window}
}

// mark records one frame at the given instant.
func (r *rateMeter) mark(at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prune(at)
	r.marks = append(r.marks, at)
}

// rate returns frames per second observed within the window ending at now.
func (r *rateMeter) rate(now time.Time) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prune(now)
	return float64(len(r.marks)) / r.window.Seconds()
}

// prune drops marks older than the window. Caller holds mu.
func (r *rateMeter) prune(now time.Time) {
	cutoff := now.Add(-r.window)
	i := 0
	for i < len(r.marks) && !r.marks[i].After(cutoff) {
		i++
	}
	if i > 0 {
		r.marks = append(r.marks[:0], r.marks[i:]...)
	}
}
