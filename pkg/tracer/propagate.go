package tracer

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spcl/faas-profiler-go/pkg/config"
)

// Carrier is the minimal mapping propagated across a call boundary, suitable
// for embedding in headers or message attributes of an outbound call.
type Carrier map[string]string

// CarrierContext is the identity pair a downstream invocation attaches to.
// RecordID is the span id of the caller's current span.
type CarrierContext struct {
	TraceID  string `json:"trace_id"`
	RecordID string `json:"record_id"`
	ParentID string `json:"parent_id,omitempty"`
}

// Defined reports whether the context can seed a child trace.
func (cc CarrierContext) Defined() bool {
	return cc.TraceID != "" && cc.RecordID != ""
}

// Extract parses the carrier. Trace IDs must be well-formed UUIDs; anything
// else is ErrCarrierMalformed and the caller starts a fresh trace.
func (c Carrier) Extract() (CarrierContext, error) {
	if c == nil {
		return CarrierContext{}, fmt.Errorf("%w: no carrier", ErrCarrierMalformed)
	}
	cc := CarrierContext{
		TraceID:  c[config.TraceIDHeader],
		RecordID: c[config.RecordIDHeader],
		ParentID: c[config.ParentIDHeader],
	}
	if !cc.Defined() {
		return CarrierContext{}, fmt.Errorf("%w: trace id and record id are required", ErrCarrierMalformed)
	}
	if _, err := uuid.Parse(cc.TraceID); err != nil {
		return CarrierContext{}, fmt.Errorf("%w: bad trace id %q", ErrCarrierMalformed, cc.TraceID)
	}
	return cc, nil
}

// Current returns the active carrier context, or false when no span is open.
func (r *Recorder) Current() (CarrierContext, bool) {
	if r.state == stateFinalized || len(r.stack) == 0 {
		return CarrierContext{}, false
	}
	top := r.stack[len(r.stack)-1]
	return CarrierContext{
		TraceID:  r.traceID,
		RecordID: top.SpanID,
		ParentID: top.ParentSpanID,
	}, true
}

// Inject writes the current span's identity into an outbound carrier so the
// downstream call can attach as a child. A recorder with no open span
// injects nothing.
func (r *Recorder) Inject(carrier Carrier) {
	cc, ok := r.Current()
	if !ok || carrier == nil {
		return
	}
	carrier[config.TraceIDHeader] = cc.TraceID
	carrier[config.RecordIDHeader] = cc.RecordID
	if cc.ParentID != "" {
		carrier[config.ParentIDHeader] = cc.ParentID
	}
}
