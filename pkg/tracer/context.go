package tracer

import (
	"encoding/json"
	"time"

	"github.com/spcl/faas-profiler-go/pkg/config"
)

// FunctionContext describes the profiled serverless function and its timing
// envelope for one invocation.
type FunctionContext struct {
	Provider config.Provider `json:"provider"`
	Runtime  config.Runtime  `json:"runtime"`
	Region   string          `json:"region,omitempty"`

	FunctionName string `json:"function_name"`
	Handler      string `json:"handler,omitempty"`

	InvokedAt         time.Time `json:"invoked_at"`
	HandlerExecutedAt time.Time `json:"handler_executed_at"`
	HandlerFinishedAt time.Time `json:"handler_finished_at"`
	FinishedAt        time.Time `json:"finished_at"`

	MaxMemory        int `json:"max_memory,omitempty"`
	MaxExecutionTime int `json:"max_execution_time,omitempty"`

	HasError     bool   `json:"has_error,omitempty"`
	ErrorType    string `json:"error_type,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// FunctionKey uniquely names the function across providers.
func (fc *FunctionContext) FunctionKey() string {
	provider := fc.Provider
	if provider == "" {
		provider = config.ProviderUnidentified
	}
	name := fc.FunctionName
	if name == "" {
		name = config.Unidentified
	}
	return string(provider) + config.FunctionKeyDelimiter + name
}

// HandlerExecutionTime is the business-logic time, zero if unknown.
func (fc *FunctionContext) HandlerExecutionTime() time.Duration {
	if fc.HandlerExecutedAt.IsZero() || fc.HandlerFinishedAt.IsZero() {
		return 0
	}
	return fc.HandlerFinishedAt.Sub(fc.HandlerExecutedAt)
}

// TotalExecutionTime spans the whole invocation including profiler work.
func (fc *FunctionContext) TotalExecutionTime() time.Duration {
	if fc.InvokedAt.IsZero() || fc.FinishedAt.IsZero() {
		return 0
	}
	return fc.FinishedAt.Sub(fc.InvokedAt)
}

// ProfilerOverhead is the time this library spent around the handler.
func (fc *FunctionContext) ProfilerOverhead() time.Duration {
	total, handler := fc.TotalExecutionTime(), fc.HandlerExecutionTime()
	if total == 0 || handler == 0 {
		return 0
	}
	return total - handler
}

// RequestContext is shared by inbound and outbound request descriptions.
type RequestContext struct {
	Provider  config.Provider  `json:"provider"`
	Service   config.Service   `json:"service"`
	Operation config.Operation `json:"operation"`

	TriggerSynchronicity config.TriggerSynchronicity `json:"trigger_synchronicity,omitempty"`

	// Identifier keys the request across systems (queue arn + message id,
	// bucket + object key, ...). Tags are free-form annotations.
	Identifier map[string]string `json:"identifier,omitempty"`
	Tags       map[string]string `json:"tags,omitempty"`

	// LatencyMS is the observed request latency in milliseconds.
	LatencyMS float64 `json:"latency,omitempty"`
}

// Resolvable reports whether the request can be correlated, i.e. whether it
// carries identifiers.
func (rc *RequestContext) Resolvable() bool {
	return len(rc.Identifier) > 0
}

// InboundContext describes the request that triggered this invocation.
type InboundContext struct {
	RequestContext

	InvokedAt time.Time `json:"invoked_at"`
}

// OutboundContext describes a call the handler made to another system.
type OutboundContext struct {
	RequestContext

	CalledAt   time.Time `json:"called_at"`
	ReturnedAt time.Time `json:"returned_at"`

	HasError     bool   `json:"has_error,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// RecordDataType classifies attached result payloads.
type RecordDataType string

const (
	DataTypeCPU         RecordDataType = "cpu"
	DataTypeMemory      RecordDataType = "memory"
	DataTypeNetwork     RecordDataType = "network"
	DataTypeDisk        RecordDataType = "disk"
	DataTypeInformation RecordDataType = "information"
)

// RecordData is one named measurement or information payload on a record.
// Results stays raw JSON so records round-trip byte-exactly.
type RecordData struct {
	Name    string          `json:"name"`
	Type    RecordDataType  `json:"type"`
	Results json.RawMessage `json:"results"`
}
