package audit

import (
	"context"
	"sync"
	"time"
)

// Recorder is an in-memory Publisher keeping the most recent events. It
// backs the admin activity view and doubles as a capture sink in tests.
type Recorder struct {
	mu     sync.RWMutex
	events []Event
	cap    int
}

func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = 256
	}
	return &Recorder{cap: capacity}
}

func (r *Recorder) Emit(_ context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	if len(r.events) > r.cap {
		r.events = r.events[len(r.events)-r.cap:]
	}
	return nil
}

// Recent returns the newest events, most recent last.
func (r *Recorder) Recent(limit int) []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if limit <= 0 || limit > len(r.events) {
		limit = len(r.events)
	}
	out := make([]Event, limit)
	copy(out, r.events[len(r.events)-limit:])
	return out
}

// Tee fans one event out to several publishers, stopping on the first error.
type Tee []Publisher

func (t Tee) Emit(ctx context.Context, event Event) error {
	for _, p := range t {
		if err := p.Emit(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
