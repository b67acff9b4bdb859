package tracer

import (
	"encoding/json"
	"hash/fnv"
	"math"
	"time"

	"github.com/spcl/faas-profiler-go/pkg/config"
)

type recorderState uint8

const (
	stateCollecting recorderState = iota
	stateFinalized
)

// Recorder accumulates the span tree of a single invocation and finalizes it
// into an immutable Record. One recorder belongs to exactly one invocation
// and is driven by that invocation's goroutine; the single-writer discipline
// makes locks unnecessary. Concurrent invocations each get their own
// recorder and never observe each other's state.
type Recorder struct {
	cfg   *config.Profiler
	clock clock
	ids   idSource

	traceID string
	// span id of the upstream caller, when restored from a carrier
	inboundParent string

	spans []*Span // every recorded span, in start order
	stack []*Span // open spans, innermost last

	state        recorderState
	sampled      bool
	truncated    bool
	spanLeaked   bool
	droppedSpans int

	functionContext  *FunctionContext
	inboundContext   *InboundContext
	outboundContexts []OutboundContext
	data             map[string]RecordData
}

// NewRecorder starts a fresh trace.
func NewRecorder(cfg *config.Profiler) *Recorder {
	if cfg == nil {
		cfg = config.Default()
	}
	cfg.Normalize()
	r := &Recorder{cfg: cfg}
	r.traceID = r.ids.NewTraceID()
	r.sampled = sampleTrace(r.traceID, cfg.SamplingRate)
	return r
}

// RestoreRecorder seeds a recorder from an inbound carrier so the root span
// attaches as a child of the upstream caller. A malformed or absent carrier
// starts a fresh trace; the fault is reported to the caller but already
// recovered from.
func RestoreRecorder(cfg *config.Profiler, carrier Carrier) (*Recorder, error) {
	cc, err := carrier.Extract()
	if err != nil {
		return NewRecorder(cfg), err
	}

	if cfg == nil {
		cfg = config.Default()
	}
	cfg.Normalize()
	r := &Recorder{cfg: cfg}
	r.traceID = cc.TraceID
	r.inboundParent = cc.RecordID
	r.sampled = sampleTrace(r.traceID, cfg.SamplingRate)
	return r, nil
}

func (r *Recorder) TraceID() string { return r.traceID }

// Sampled reports the head-sampling decision for this trace. Unsampled
// recorders still collect and propagate so downstream decisions stay
// consistent; the facade simply skips export.
func (r *Recorder) Sampled() bool { return r.sampled }

// StartSpan opens a span as a child of the current one (root if none) and
// makes it the current context. Past the span cap the returned handle is
// detached: callers can use it freely, the record only gets the truncated
// flag.
func (r *Recorder) StartSpan(name string, attrs ...Attribute) (*Span, error) {
	if r.state == stateFinalized {
		return nil, ErrRecorderFinalized
	}

	span := &Span{
		SpanID:    r.ids.NewSpanID(),
		Name:      name,
		StartTime: r.clock.Now(),
	}
	if len(r.stack) > 0 {
		span.ParentSpanID = r.stack[len(r.stack)-1].SpanID
	} else {
		span.ParentSpanID = r.inboundParent
	}
	for _, a := range attrs {
		span.setAttribute(a.Key, a.Value, r.cfg.MaxAttributesPerSpan)
	}

	if len(r.spans) >= r.cfg.MaxSpansPerTrace {
		span.dropped = true
		r.truncated = true
		r.droppedSpans++
		return span, nil
	}

	r.spans = append(r.spans, span)
	r.stack = append(r.stack, span)
	return span, nil
}

// EndSpan closes exactly the given span and restores its parent as the
// current context. Children still open above it are force-closed with
// status=error, the same recovery finalize applies. Closing a span twice is
// ErrInvalidSpanState.
func (r *Recorder) EndSpan(span *Span, status SpanStatus) error {
	if r.state == stateFinalized {
		return ErrRecorderFinalized
	}
	if span == nil {
		return ErrInvalidSpanState
	}
	if span.closed() {
		return ErrInvalidSpanState
	}
	if status == "" {
		status = StatusOK
	}
	if span.dropped {
		r.closeSpan(span, status)
		return nil
	}

	depth := -1
	for i := len(r.stack) - 1; i >= 0; i-- {
		if r.stack[i] == span {
			depth = i
			break
		}
	}
	if depth < 0 {
		// open but not on the stack: not ours
		return ErrInvalidSpanState
	}

	for i := len(r.stack) - 1; i > depth; i-- {
		r.closeSpan(r.stack[i], StatusError)
		r.spanLeaked = true
	}
	r.closeSpan(span, status)
	r.stack = r.stack[:depth]
	return nil
}

// AddAttribute mutates an open span. The value is coerced onto the scalar
// sum type; past the attribute cap it is dropped and the record marked
// truncated.
func (r *Recorder) AddAttribute(span *Span, key string, value any) error {
	if r.state == stateFinalized {
		return ErrRecorderFinalized
	}
	if span == nil || span.closed() {
		return ErrSpanAlreadyClosed
	}
	if !span.setAttribute(key, CoerceValue(value), r.cfg.MaxAttributesPerSpan) {
		r.truncated = true
	}
	return nil
}

// AddEvent attaches a named event to an open span. A zero timestamp means
// now.
func (r *Recorder) AddEvent(span *Span, name string, at time.Time) error {
	if r.state == stateFinalized {
		return ErrRecorderFinalized
	}
	if span == nil || span.closed() {
		return ErrSpanAlreadyClosed
	}
	if at.IsZero() {
		at = r.clock.Now()
	}
	span.Events = append(span.Events, Event{Name: name, Timestamp: at})
	return nil
}

// Record envelope setters, consumed by Finalize.

func (r *Recorder) SetFunctionContext(fc *FunctionContext) { r.functionContext = fc }
func (r *Recorder) SetInboundContext(ic *InboundContext)   { r.inboundContext = ic }

func (r *Recorder) AddOutboundContext(oc OutboundContext) {
	r.outboundContexts = append(r.outboundContexts, oc)
}

// AddData attaches a named measurement or information payload to the record.
func (r *Recorder) AddData(name string, typ RecordDataType, results json.RawMessage) {
	if r.data == nil {
		r.data = make(map[string]RecordData, 4)
	}
	r.data[name] = RecordData{Name: name, Type: typ, Results: results}
}

// Finalize walks the span tree, force-closes anything an instrumentation bug
// left open (status=error, span_leaked=true) and produces the immutable
// Record. Any later span operation fails with ErrRecorderFinalized.
func (r *Recorder) Finalize() (*Record, error) {
	if r.state == stateFinalized {
		return nil, ErrRecorderFinalized
	}

	for i := len(r.stack) - 1; i >= 0; i-- {
		r.closeSpan(r.stack[i], StatusError)
		r.spanLeaked = true
	}
	r.stack = nil
	r.state = stateFinalized

	rec := &Record{
		FormatVersion:    FormatVersion,
		TraceID:          r.traceID,
		Spans:            make([]Span, 0, len(r.spans)),
		LowConfidenceIDs: r.ids.lowConfidence,
		Truncated:        r.truncated,
		SpanLeaked:       r.spanLeaked,
		DroppedSpans:     r.droppedSpans,
		FunctionContext:  r.functionContext,
		InboundContext:   r.inboundContext,
		OutboundContexts: r.outboundContexts,
		Data:             r.data,
	}

	byID := make(map[string]*Span, len(r.spans))
	for _, s := range r.spans {
		byID[s.SpanID] = s
	}
	for _, s := range r.spans {
		if s.ParentSpanID == "" || s.ParentSpanID == r.inboundParent {
			if rec.RootSpanID == "" {
				rec.RootSpanID = s.SpanID
			}
		} else if parent, ok := byID[s.ParentSpanID]; ok {
			// a child never outlives its parent
			if s.EndTime.After(parent.EndTime) {
				s.EndTime = parent.EndTime
			}
		}
		rec.Spans = append(rec.Spans, *s)
	}

	return rec, nil
}

func (r *Recorder) closeSpan(span *Span, status SpanStatus) {
	span.EndTime = r.clock.Now()
	if span.EndTime.Before(span.StartTime) {
		span.EndTime = span.StartTime
	}
	span.Status = status
}

// sampleTrace makes the head-sampling decision from a hash of the trace ID,
// so every participant of a trace decides the same way.
func sampleTrace(traceID string, rate float64) bool {
	if rate >= 1 {
		return true
	}
	if rate <= 0 {
		return false
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(traceID))
	return float64(h.Sum64())/float64(math.MaxUint64) < rate
}
