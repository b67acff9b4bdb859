package config

import (
	"time"

	"github.com/spf13/viper"
)

// for root
var Debug = false

// Recorder limits, overridable per instance.
const (
	DefaultSamplingRate    = 1.0
	DefaultMaxAttributes   = 64
	DefaultMaxSpans        = 512
	DefaultExportTimeout   = 2 * time.Second
	DefaultSampleInterval  = 100 * time.Millisecond
	DefaultExportBufferLen = 64
)

// Exporter kinds selectable via configuration.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

// Profiler is the static configuration object handed to the recorder and the
// invocation facade at construction time. Zero values are replaced by the
// defaults above.
type Profiler struct {
	// SamplingRate keeps this fraction of traces, in [0,1].
	SamplingRate float64

	MaxAttributesPerSpan int
	MaxSpansPerTrace     int

	// Exporter selects the built-in exporter ("none", "stdout", "otlp").
	Exporter      string
	ExportTimeout time.Duration

	// RequestTableDSN enables the SQL request table when non-empty.
	RequestTableDSN string

	// MeasureInterval enables resource sampling when positive.
	MeasureInterval time.Duration
}

func Default() *Profiler {
	return &Profiler{
		SamplingRate:         DefaultSamplingRate,
		MaxAttributesPerSpan: DefaultMaxAttributes,
		MaxSpansPerTrace:     DefaultMaxSpans,
		Exporter:             ExporterNone,
		ExportTimeout:        DefaultExportTimeout,
	}
}

// New builds a Profiler config from viper. A nil viper yields the defaults,
// mirroring how the recorder is constructed under testing.
func New(vp *viper.Viper) *Profiler {
	cfg := Default()
	if vp == nil {
		return cfg
	}

	if vp.IsSet("sampling-rate") {
		cfg.SamplingRate = vp.GetFloat64("sampling-rate")
	}
	if vp.IsSet("max-attributes-per-span") {
		cfg.MaxAttributesPerSpan = vp.GetInt("max-attributes-per-span")
	}
	if vp.IsSet("max-spans-per-trace") {
		cfg.MaxSpansPerTrace = vp.GetInt("max-spans-per-trace")
	}
	if vp.IsSet("exporter") {
		cfg.Exporter = vp.GetString("exporter")
	}
	if vp.IsSet("export-timeout") {
		cfg.ExportTimeout = vp.GetDuration("export-timeout")
	}
	cfg.RequestTableDSN = vp.GetString("request-table-dsn")
	cfg.MeasureInterval = vp.GetDuration("measure-interval")

	return cfg.Normalize()
}

// Normalize clamps the sampling rate into [0,1] and backfills defaults, so a
// misconfigured profiler degrades instead of failing the invocation.
func (c *Profiler) Normalize() *Profiler {
	if c.SamplingRate < 0 {
		c.SamplingRate = 0
	}
	if c.SamplingRate > 1 {
		c.SamplingRate = 1
	}
	if c.MaxAttributesPerSpan <= 0 {
		c.MaxAttributesPerSpan = DefaultMaxAttributes
	}
	if c.MaxSpansPerTrace <= 0 {
		c.MaxSpansPerTrace = DefaultMaxSpans
	}
	if c.Exporter == "" {
		c.Exporter = ExporterNone
	}
	if c.ExportTimeout <= 0 {
		c.ExportTimeout = DefaultExportTimeout
	}
	return c
}
