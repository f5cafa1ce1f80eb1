package observability

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/hazyhaar/mdextract/extractor"
)

// Stats keeps process-lifetime counters. It is safe for concurrent use.
type Stats struct {
	mu       sync.Mutex
	since    time.Time
	total    int64
	failed   int64
	bytes    int64
	duration time.Duration
	byRoute  map[string]int64
	byKind   map[string]int64
}

// Snapshot is a copy of the counters, shaped for JSON.
type Snapshot struct {
	Since         time.Time        `json:"since"`
	Total         int64            `json:"total"`
	Succeeded     int64            `json:"succeeded"`
	Failed        int64            `json:"failed"`
	Bytes         int64            `json:"bytes"`
	AvgDurationMs float64          `json:"avg_duration_ms"`
	ByRoute       map[string]int64 `json:"by_route"`
	ByErrorKind   map[string]int64 `json:"by_error_kind"`
	EventsDropped int64            `json:"events_dropped,omitempty"` // filled by the caller from EventLogger.Dropped
}

// NewStats returns zeroed counters.
func NewStats() *Stats {
	return &Stats{
		since:   time.Now().UTC(),
		byRoute: make(map[string]int64),
		byKind:  make(map[string]int64),
	}
}

// RecordExtraction counts ev.
func (s *Stats) RecordExtraction(_ context.Context, ev extractor.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	s.bytes += int64(ev.Bytes)
	s.duration += ev.Duration
	s.byRoute[ev.Route]++
	if ev.Kind != "" {
		s.failed++
		s.byKind[ev.Kind]++
	}
}

// Snapshot copies the current counters.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Since:       s.since,
		Total:       s.total,
		Succeeded:   s.total - s.failed,
		Failed:      s.failed,
		Bytes:       s.bytes,
		ByRoute:     maps.Clone(s.byRoute),
		ByErrorKind: maps.Clone(s.byKind),
	}
	if s.total > 0 {
		snap.AvgDurationMs = float64(s.duration.Milliseconds()) / float64(s.total)
	}
	return snap
}

type tee []extractor.EventRecorder

func (t tee) RecordExtraction(ctx context.Context, ev extractor.Event) {
	for _, r := range t {
		r.RecordExtraction(ctx, ev)
	}
}

// Tee fans one event out to several recorders. Nil recorders are skipped.
func Tee(recorders ...extractor.EventRecorder) extractor.EventRecorder {
	var t tee
	for _, r := range recorders {
		if r != nil {
			t = append(t, r)
		}
	}
	return t
}
