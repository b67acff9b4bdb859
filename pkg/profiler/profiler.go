// Package profiler wires recorder, propagation, measurements, request table
// and exporter into a per-invocation facade. Telemetry faults are swallowed
// and logged here; the handler's outcome is never changed by profiling.
package profiler

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/spcl/faas-profiler-go/pkg/config"
	"github.com/spcl/faas-profiler-go/pkg/export"
	"github.com/spcl/faas-profiler-go/pkg/requests"
	"github.com/spcl/faas-profiler-go/pkg/tracer"
)

// Profiler is the long-lived, process-wide part: configuration, exporter,
// request table and warm-state tracking. Invocations are the isolated
// per-execution part.
type Profiler struct {
	cfg      *config.Profiler
	exporter export.Exporter
	table    requests.Table

	mu          sync.Mutex
	warmSince   time.Time
	invocations int
}

// New builds a profiler from viper configuration. Construction never fails
// hard on telemetry concerns: an unusable exporter or request table degrades
// to the noop implementation with a diagnostic log line.
func New(vp *viper.Viper) *Profiler {
	cfg := config.New(vp)
	return NewWithExporter(cfg, buildExporter(cfg))
}

// NewWithExporter wires an explicit exporter, used by tests and by callers
// owning their transport.
func NewWithExporter(cfg *config.Profiler, exporter export.Exporter) *Profiler {
	if cfg == nil {
		cfg = config.Default()
	}
	cfg.Normalize()
	if exporter == nil {
		exporter = export.Noop{}
	}

	var table requests.Table = requests.Noop{}
	if cfg.RequestTableDSN != "" {
		sqlTable, err := requests.NewSQLTable(cfg.RequestTableDSN)
		if err != nil {
			config.LogDiag.WithError(err).Warn("profiler couldn't open request table, falling back to noop")
		} else {
			table = sqlTable
		}
	}

	return &Profiler{
		cfg:      cfg,
		exporter: exporter,
		table:    table,
	}
}

func buildExporter(cfg *config.Profiler) export.Exporter {
	switch cfg.Exporter {
	case config.ExporterStdout:
		return export.NewStdout()
	case config.ExporterOTLP:
		bridge, err := export.NewOTLPBridge(context.Background())
		if err != nil {
			config.LogDiag.WithError(err).Warn("profiler couldn't create OTLP bridge, falling back to noop")
			return export.Noop{}
		}
		return bridge
	default:
		return export.Noop{}
	}
}

// StartInvocation opens the trace for one execution. The recorder is seeded
// from the inbound carrier when one is present, resolved through the request
// table when only identifiers are known, and fresh otherwise. The returned
// context carries the invocation for nested instrumentation.
func (p *Profiler) StartInvocation(ctx context.Context, fc tracer.FunctionContext, inbound *tracer.InboundContext, carrier tracer.Carrier) (context.Context, *Invocation) {
	invokedAt := time.Now()
	fc.InvokedAt = invokedAt
	if inbound != nil && inbound.InvokedAt.IsZero() {
		inbound.InvokedAt = invokedAt
	}

	rec := p.seedRecorder(ctx, inbound, carrier)

	inv := &Invocation{
		p:       p,
		rec:     rec,
		fc:      fc,
		inbound: inbound,
	}
	inv.coldStart, inv.warmSince, inv.warmFor = p.warmState(invokedAt)

	rootName := fc.Handler
	if rootName == "" {
		rootName = "invoke"
	}
	root, err := rec.StartSpan(rootName,
		tracer.Bool("cold_start", inv.coldStart),
		tracer.String("function_key", fc.FunctionKey()))
	if err != nil {
		config.LogDiag.WithError(err).Warn("profiler couldn't open root span")
	}
	inv.root = root

	inv.startSampler()

	fc.HandlerExecutedAt = time.Now()
	inv.fc = fc

	return ContextWith(ctx, inv), inv
}

func (p *Profiler) seedRecorder(ctx context.Context, inbound *tracer.InboundContext, carrier tracer.Carrier) *tracer.Recorder {
	if carrier != nil {
		rec, err := tracer.RestoreRecorder(p.cfg, carrier)
		if err != nil {
			logrus.WithError(err).Debug("inbound carrier unusable, starting fresh trace")
		}
		return rec
	}

	// async triggers leave no carrier; the request table may still know the
	// outbound request that caused us
	if inbound != nil && inbound.Resolvable() {
		if tc, err := p.table.FindContextByInbound(ctx, inbound); err == nil {
			seeded := tracer.Carrier{
				config.TraceIDHeader:  tc.TraceID,
				config.RecordIDHeader: tc.RecordID,
			}
			rec, err := tracer.RestoreRecorder(p.cfg, seeded)
			if err == nil {
				return rec
			}
			logrus.WithError(err).Debug("resolved tracing context unusable, starting fresh trace")
		}
	}

	return tracer.NewRecorder(p.cfg)
}

// warmState reports whether this is the first invocation in the process and
// for how many invocations the runtime has been warm.
func (p *Profiler) warmState(at time.Time) (coldStart bool, warmSince time.Time, warmFor int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.warmSince.IsZero() {
		p.warmSince = at
		p.invocations = 1
		return true, at, 0
	}
	p.invocations++
	return false, p.warmSince, p.invocations - 1
}

func (p *Profiler) export(ctx context.Context, payload []byte) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.ExportTimeout)
	defer cancel()
	if err := p.exporter.Export(ctx, payload); err != nil {
		config.LogDiag.WithError(err).Warn("profiler couldn't export record")
	}
}
