package profiler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spcl/faas-profiler-go/pkg/config"
	"github.com/spcl/faas-profiler-go/pkg/export"
	"github.com/spcl/faas-profiler-go/pkg/measurement"
	"github.com/spcl/faas-profiler-go/pkg/tracer"
)

// Invocation is the isolated per-execution state: one recorder, one sampler,
// one root span. Concurrent invocations in the same process never share any
// of it. All methods are nil-receiver safe so instrumentation can be left in
// place when profiling is disabled.
type Invocation struct {
	p   *Profiler
	rec *tracer.Recorder

	root    *tracer.Span
	sampler *measurement.Sampler

	fc      tracer.FunctionContext
	inbound *tracer.InboundContext

	coldStart bool
	warmSince time.Time
	warmFor   int

	finished bool
}

func (inv *Invocation) TraceID() string {
	if inv == nil {
		return ""
	}
	return inv.rec.TraceID()
}

func (inv *Invocation) Sampled() bool {
	return inv != nil && inv.rec.Sampled()
}

func (inv *Invocation) ColdStart() bool {
	return inv != nil && inv.coldStart
}

// StartSpan opens a child of the current span. Telemetry faults are logged
// and swallowed, the returned handle may be nil and stays safe to use.
func (inv *Invocation) StartSpan(name string, attrs ...tracer.Attribute) *tracer.Span {
	if inv == nil {
		return nil
	}
	span, err := inv.rec.StartSpan(name, attrs...)
	if err != nil {
		config.LogDiag.WithError(err).WithField("span", name).Warn("profiler couldn't open span")
		return nil
	}
	return span
}

// EndSpan closes a span opened through this invocation.
func (inv *Invocation) EndSpan(span *tracer.Span, status tracer.SpanStatus) {
	if inv == nil || span == nil {
		return
	}
	if err := inv.rec.EndSpan(span, status); err != nil {
		config.LogDiag.WithError(err).Warn("profiler couldn't close span")
	}
}

// AddAttribute annotates an open span; arbitrary values are coerced onto the
// scalar kinds the wire format supports.
func (inv *Invocation) AddAttribute(span *tracer.Span, key string, value any) {
	if inv == nil {
		return
	}
	if err := inv.rec.AddAttribute(span, key, value); err != nil {
		config.LogDiag.WithError(err).WithField("key", key).Warn("profiler couldn't add attribute")
	}
}

// AddEvent attaches a point-in-time marker to an open span.
func (inv *Invocation) AddEvent(span *tracer.Span, name string, at time.Time) {
	if inv == nil {
		return
	}
	if err := inv.rec.AddEvent(span, name, at); err != nil {
		config.LogDiag.WithError(err).WithField("event", name).Warn("profiler couldn't add event")
	}
}

// InjectOutbound writes the current tracing identity into the outbound
// carrier and records the outbound request, so the downstream invocation can
// attach as a child even when the carrier is stripped on the way.
func (inv *Invocation) InjectOutbound(ctx context.Context, carrier tracer.Carrier, out *tracer.OutboundContext) {
	if inv == nil {
		return
	}
	inv.rec.Inject(carrier)

	if out == nil {
		return
	}
	if out.CalledAt.IsZero() {
		out.CalledAt = time.Now()
	}
	inv.rec.AddOutboundContext(*out)

	if !out.Resolvable() {
		return
	}
	if tc, ok := inv.rec.Current(); ok {
		if err := inv.p.table.RecordOutbound(ctx, out, tc); err != nil {
			config.LogDiag.WithError(err).Warn("profiler couldn't record outbound request")
		}
	}
}

// Finish closes the invocation: ends the root span with a status derived
// from the handler's error, attaches measurements and warm-state data,
// finalizes the record and hands it to the exporter. Calling Finish again is
// a no-op. Handler errors pass through untouched.
func (inv *Invocation) Finish(ctx context.Context, handlerErr error) {
	if inv == nil || inv.finished {
		return
	}
	inv.finished = true

	inv.fc.HandlerFinishedAt = time.Now()

	status := tracer.StatusOK
	if handlerErr != nil {
		status = tracer.StatusError
		inv.fc.HasError = true
		inv.fc.ErrorType = fmt.Sprintf("%T", handlerErr)
		inv.fc.ErrorMessage = handlerErr.Error()
	}
	if inv.root != nil {
		if err := inv.rec.EndSpan(inv.root, status); err != nil {
			config.LogDiag.WithError(err).Warn("profiler couldn't close root span")
		}
	}

	if inv.sampler != nil {
		for _, data := range inv.sampler.Stop().RecordData() {
			inv.rec.AddData(data.Name, data.Type, data.Results)
		}
	}
	inv.addWarmData()

	if inv.inbound != nil {
		inv.rec.SetInboundContext(inv.inbound)
		inv.recordInbound(ctx)
	}

	inv.fc.FinishedAt = time.Now()
	inv.rec.SetFunctionContext(&inv.fc)

	rec, err := inv.rec.Finalize()
	if err != nil {
		config.LogDiag.WithError(err).Warn("profiler couldn't finalize record")
		return
	}
	if !inv.rec.Sampled() {
		return
	}

	payload, err := tracer.Encode(rec)
	if err != nil {
		config.LogDiag.WithError(err).Warn("profiler couldn't encode record")
		return
	}
	inv.p.export(ctx, payload)
}

func (inv *Invocation) startSampler() {
	if inv.p.cfg.MeasureInterval <= 0 {
		return
	}
	sampler, err := measurement.NewSampler(inv.p.cfg.MeasureInterval)
	if err != nil {
		config.LogDiag.WithError(err).Warn("profiler couldn't start measurement sampler")
		return
	}
	sampler.Start()
	inv.sampler = sampler
}

func (inv *Invocation) addWarmData() {
	warm := struct {
		IsWarm    bool      `json:"is_warm"`
		WarmSince time.Time `json:"warm_since"`
		WarmFor   int       `json:"warm_for"`
	}{
		IsWarm:    !inv.coldStart,
		WarmSince: inv.warmSince,
		WarmFor:   inv.warmFor,
	}
	raw, err := json.Marshal(warm)
	if err != nil {
		return
	}
	inv.rec.AddData("is_warm", tracer.DataTypeInformation, raw)
}

func (inv *Invocation) recordInbound(ctx context.Context) {
	if !inv.inbound.Resolvable() {
		return
	}
	tc := tracer.CarrierContext{TraceID: inv.rec.TraceID()}
	if inv.root != nil {
		tc.RecordID = inv.root.SpanID
	}
	if !tc.Defined() {
		return
	}
	if err := inv.p.table.RecordInbound(ctx, inv.inbound, tc); err != nil {
		config.LogDiag.WithError(err).Warn("profiler couldn't record inbound request")
	}
}

// Flush drains a buffered exporter if one is wired, hooked on process
// shutdown.
func (p *Profiler) Flush() {
	if buffered, ok := p.exporter.(*export.Buffered); ok {
		buffered.Close()
	}
	if table, ok := p.table.(interface{ Flush() }); ok {
		table.Flush()
	}
}
