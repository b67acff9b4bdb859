package export

import (
	"context"
	"fmt"
	"sort"
	"strings"

	attr "go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktr "go.opentelemetry.io/otel/sdk/trace"
	tr "go.opentelemetry.io/otel/trace"

	"github.com/spcl/faas-profiler-go/pkg/tracer"
)

// Bridge replays finalized records through the OpenTelemetry SDK, so an
// existing OTLP collector can consume profiler traces without understanding
// the record format.
type Bridge struct {
	tp     *sdktr.TracerProvider
	tracer tr.Tracer
}

// NewOTLPBridge ships replayed spans over OTLP gRPC (endpoint taken from the
// standard OTEL_* environment).
func NewOTLPBridge(ctx context.Context) (*Bridge, error) {
	exporter, err := otlptracegrpc.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("export: creating gRPC exporter: %w", err)
	}
	tp := sdktr.NewTracerProvider(
		sdktr.WithBatcher(exporter),
		sdktr.WithResource(resource.Empty()))
	return NewBridge(tp), nil
}

// NewStdoutBridge pretty-prints replayed spans, for local debugging.
func NewStdoutBridge() (*Bridge, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("export: creating stdout exporter: %w", err)
	}
	tp := sdktr.NewTracerProvider(
		sdktr.WithBatcher(exporter),
		sdktr.WithResource(resource.Empty()))
	return NewBridge(tp), nil
}

// NewBridge wraps an existing provider; tests hand in one with their own
// span processor.
func NewBridge(tp *sdktr.TracerProvider) *Bridge {
	return &Bridge{
		tp:     tp,
		tracer: tp.Tracer("faas-profiler"),
	}
}

func (b *Bridge) Shutdown(ctx context.Context) error {
	return b.tp.Shutdown(ctx)
}

// Export decodes the payload and replays its span tree, replaying parents
// before children so the links survive the SDK's own id generation.
func (b *Bridge) Export(ctx context.Context, payload []byte) error {
	rec, err := tracer.Decode(payload)
	if err != nil {
		return err
	}

	spans := make([]tracer.Span, len(rec.Spans))
	copy(spans, rec.Spans)
	sort.SliceStable(spans, func(i, j int) bool {
		return spans[i].StartTime.Before(spans[j].StartTime)
	})

	traceID := convertTraceID(rec.TraceID)

	type replayed struct {
		ctx    context.Context
		spanID tr.SpanID
	}
	byID := make(map[string]replayed, len(spans))

	for _, span := range spans {
		parentCtx := ctx
		parentSpanID := tr.SpanID{}
		if parent, ok := byID[span.ParentSpanID]; ok {
			parentCtx = parent.ctx
			parentSpanID = parent.spanID
		}

		traceFlags := tr.TraceFlags(0x01)
		if !parentSpanID.IsValid() {
			traceFlags = 0x00
		}
		parentCtx = tr.ContextWithSpanContext(parentCtx, tr.NewSpanContext(tr.SpanContextConfig{
			TraceID:    traceID,
			SpanID:     parentSpanID,
			TraceFlags: traceFlags,
		}))

		startOpts := []tr.SpanStartOption{
			tr.WithTimestamp(span.StartTime),
			tr.WithAttributes(convertAttributes(span.Attributes)...),
		}
		spanCtx, trSpan := b.tracer.Start(parentCtx, span.Name, startOpts...)
		for _, ev := range span.Events {
			trSpan.AddEvent(ev.Name, tr.WithTimestamp(ev.Timestamp))
		}
		if span.Status == tracer.StatusError {
			trSpan.SetStatus(codes.Error, "")
		}
		trSpan.End(tr.WithTimestamp(span.EndTime))

		byID[span.SpanID] = replayed{ctx: spanCtx, spanID: trSpan.SpanContext().SpanID()}
	}

	return nil
}

// convertTraceID maps a UUID-format trace id onto the 16-byte OTel id, zero
// if it doesn't parse.
func convertTraceID(id string) tr.TraceID {
	hexID := strings.ReplaceAll(id, "-", "")
	traceID, err := tr.TraceIDFromHex(hexID)
	if err != nil {
		return tr.TraceID{}
	}
	return traceID
}

func convertAttributes(values map[string]tracer.Value) []attr.KeyValue {
	out := make([]attr.KeyValue, 0, len(values))
	for key, value := range values {
		switch v := value.Interface().(type) {
		case string:
			out = append(out, attr.String(key, v))
		case int64:
			out = append(out, attr.Int64(key, v))
		case float64:
			out = append(out, attr.Float64(key, v))
		case bool:
			out = append(out, attr.Bool(key, v))
		}
	}
	return out
}
