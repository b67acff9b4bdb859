package profiler

import (
	"context"
	"time"

	"github.com/spcl/faas-profiler-go/pkg/tracer"
)

type invocationKey struct{}

// ContextWith returns a context carrying the invocation.
func ContextWith(ctx context.Context, inv *Invocation) context.Context {
	return context.WithValue(ctx, invocationKey{}, inv)
}

// FromContext returns the invocation carried by ctx, or nil when the handler
// runs without one. The nil result is safe to call methods on.
func FromContext(ctx context.Context) *Invocation {
	inv, _ := ctx.Value(invocationKey{}).(*Invocation)
	return inv
}

// StartSpan opens a span on the invocation carried by ctx.
func StartSpan(ctx context.Context, name string, attrs ...tracer.Attribute) *tracer.Span {
	return FromContext(ctx).StartSpan(name, attrs...)
}

// EndSpan closes a span on the invocation carried by ctx.
func EndSpan(ctx context.Context, span *tracer.Span, status tracer.SpanStatus) {
	FromContext(ctx).EndSpan(span, status)
}

// AddEvent attaches an event through the invocation carried by ctx.
func AddEvent(ctx context.Context, span *tracer.Span, name string, at time.Time) {
	FromContext(ctx).AddEvent(span, name, at)
}
