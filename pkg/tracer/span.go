package tracer

import "time"

// SpanStatus is the terminal status of a closed span.
type SpanStatus string

const (
	StatusOK    SpanStatus = "ok"
	StatusError SpanStatus = "error"
)

// Event is a point-in-time marker attached to an open span.
type Event struct {
	Name      string    `json:"name"`
	Timestamp time.Time `json:"timestamp"`
}

// Span is one timed unit of work within a trace. A span is open until its
// EndTime is set, and is mutated only by the goroutine that opened it.
type Span struct {
	SpanID       string           `json:"span_id"`
	ParentSpanID string           `json:"parent_span_id,omitempty"` // empty only for the root
	Name         string           `json:"name"`
	StartTime    time.Time        `json:"start_time"`
	EndTime      time.Time        `json:"end_time"`
	Attributes   map[string]Value `json:"attributes,omitempty"`
	Events       []Event          `json:"events,omitempty"`
	Status       SpanStatus       `json:"status,omitempty"`

	// dropped spans exist past the span cap: callers keep a usable handle,
	// the record does not.
	dropped bool
}

func (s *Span) closed() bool {
	return !s.EndTime.IsZero()
}

// Duration is zero while the span is open.
func (s *Span) Duration() time.Duration {
	if !s.closed() {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

func (s *Span) setAttribute(key string, value Value, max int) bool {
	if s.Attributes == nil {
		s.Attributes = make(map[string]Value, 4)
	}
	if _, exists := s.Attributes[key]; !exists && len(s.Attributes) >= max {
		return false
	}
	s.Attributes[key] = value
	return true
}
