package inquiry

import (
	"context"
	"sync"
	"time"

	"github.com/scrypster/socratic/pkg/types"
)

// defaultEscapeBuffer is the number of escape events kept in memory.
const defaultEscapeBuffer = 100

// EscapeEvent records one firing of the escape hatch.
type EscapeEvent struct {
	// ID uniquely identifies the event.
	ID string `json:"id"`

	// At is the time the hatch fired.
	At time.Time `json:"at"`

	// LearnerID and Topic are copied from the context for filtering.
	LearnerID string `json:"learner_id,omitempty"`
	Topic     string `json:"topic,omitempty"`

	// Chosen is the randomly picked question type.
	Chosen types.QuestionType `json:"chosen"`

	// Reason explains why every earlier rule declined.
	Reason string `json:"reason"`

	// Snapshot is a deep copy of the context the selector saw.
	Snapshot types.Context `json:"snapshot"`
}

// EscapeRecorder persists escape events. Recording failures are logged and
// never affect selection.
type EscapeRecorder interface {
	RecordEscape(ctx context.Context, e EscapeEvent) error
}

// escapeRing is a fixed-size buffer of the most recent escape events.
type escapeRing struct {
	mu     sync.Mutex
	events []EscapeEvent
	next   int
	full   bool
}

func newEscapeRing(size int) *escapeRing {
	if size <= 0 {
		size = defaultEscapeBuffer
	}
	return &escapeRing{events: make([]EscapeEvent, size)}
}

func (r *escapeRing) add(e EscapeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[r.next] = e
	r.next = (r.next + 1) % len(r.events)
	if r.next == 0 {
		r.full = true
	}
}

// list returns the buffered events oldest first.
func (r *escapeRing) list() []EscapeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.full {
		return append([]EscapeEvent(nil), r.events[:r.next]...)
	}
	out := make([]EscapeEvent, 0, len(r.events))
	out = append(out, r.events[r.next:]...)
	return append(out, r.events[:r.next]...)
}
