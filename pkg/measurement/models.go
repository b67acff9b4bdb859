// Package measurement samples the resource usage of the running invocation
// and packages it as record data payloads.
package measurement

import (
	"encoding/json"

	"github.com/spcl/faas-profiler-go/pkg/config"
	"github.com/spcl/faas-profiler-go/pkg/tracer"
)

// Point is one sample: elapsed milliseconds since sampling started, value.
type Point [2]float64

// CPUUsage is the process CPU percentage over the invocation.
type CPUUsage struct {
	IntervalMS float64 `json:"interval"`
	Percentage []Point `json:"percentage"`
}

// MemoryUsage tracks resident and virtual sizes against their baseline at
// sampling start, in bytes.
type MemoryUsage struct {
	IntervalMS  float64 `json:"interval"`
	RSSBaseline float64 `json:"rss_baseline"`
	VMSBaseline float64 `json:"vms_baseline"`
	RSS         []Point `json:"rss"`
	VMS         []Point `json:"vms"`
}

// NetworkIOCounters are host-wide counter deltas over the invocation.
type NetworkIOCounters struct {
	BytesSent       uint64 `json:"bytes_sent"`
	BytesReceived   uint64 `json:"bytes_received"`
	PacketsSent     uint64 `json:"packets_sent"`
	PacketsReceived uint64 `json:"packets_received"`
	ErrorIn         uint64 `json:"error_in"`
	ErrorOut        uint64 `json:"error_out"`
	DropIn          uint64 `json:"drop_in"`
	DropOut         uint64 `json:"drop_out"`
}

// DiskIOCounters are host-wide counter deltas over the invocation.
type DiskIOCounters struct {
	ReadCount  uint64 `json:"read_count"`
	WriteCount uint64 `json:"write_count"`
	ReadBytes  uint64 `json:"read_bytes"`
	WriteBytes uint64 `json:"write_bytes"`
}

// Results bundles everything one sampler run measured.
type Results struct {
	CPU     CPUUsage          `json:"cpu"`
	Memory  MemoryUsage       `json:"memory"`
	Network NetworkIOCounters `json:"network"`
	Disk    DiskIOCounters    `json:"disk"`
}

// RecordData converts the results into named record payloads. Marshaling
// these models cannot fail, so the conversion is total.
func (res *Results) RecordData() []tracer.RecordData {
	marshal := func(v any) json.RawMessage {
		raw, err := json.Marshal(v)
		if err != nil {
			config.LogDiag.WithError(err).Warn("profiler couldn't marshal measurement results")
			return json.RawMessage("null")
		}
		return raw
	}
	return []tracer.RecordData{
		{Name: "cpu_usage", Type: tracer.DataTypeCPU, Results: marshal(res.CPU)},
		{Name: "memory_usage", Type: tracer.DataTypeMemory, Results: marshal(res.Memory)},
		{Name: "network_io_counters", Type: tracer.DataTypeNetwork, Results: marshal(res.Network)},
		{Name: "disk_io_counters", Type: tracer.DataTypeDisk, Results: marshal(res.Disk)},
	}
}
