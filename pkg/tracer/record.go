package tracer

import (
	"encoding/json"
	"fmt"
)

// FormatVersion is the wire format version this library emits.
const FormatVersion = 1

// Record is the finalized, immutable export unit: one trace with its full
// span tree. Once the recorder hands it off nothing mutates it anymore.
type Record struct {
	FormatVersion int    `json:"format_version"`
	TraceID       string `json:"trace_id"`
	RootSpanID    string `json:"root_span_id,omitempty"`
	Spans         []Span `json:"spans"`

	LowConfidenceIDs bool `json:"low_confidence_ids,omitempty"`
	Truncated        bool `json:"truncated,omitempty"`
	SpanLeaked       bool `json:"span_leaked,omitempty"`
	DroppedSpans     int  `json:"dropped_spans,omitempty"`

	FunctionContext  *FunctionContext      `json:"function_context,omitempty"`
	InboundContext   *InboundContext       `json:"inbound_context,omitempty"`
	OutboundContexts []OutboundContext     `json:"outbound_contexts,omitempty"`
	Data             map[string]RecordData `json:"data,omitempty"`
}

// Span returns the span with the given id, nil if absent.
func (rec *Record) Span(spanID string) *Span {
	for i := range rec.Spans {
		if rec.Spans[i].SpanID == spanID {
			return &rec.Spans[i]
		}
	}
	return nil
}

// Children returns the spans parented by spanID, in record order.
func (rec *Record) Children(spanID string) []Span {
	var out []Span
	for _, s := range rec.Spans {
		if s.ParentSpanID == spanID {
			out = append(out, s)
		}
	}
	return out
}

// Encode serializes the record into its versioned wire form. Encoding is
// total: every value a recorder can produce serializes, and map keys come
// out sorted so equal records yield equal bytes.
func Encode(rec *Record) ([]byte, error) {
	if rec == nil {
		return nil, fmt.Errorf("tracer: cannot encode nil record")
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("tracer: encoding record %s: %w", rec.TraceID, err)
	}
	return payload, nil
}

// Decode parses an encoded record, rejecting format versions this consumer
// does not understand.
func Decode(payload []byte) (*Record, error) {
	var version struct {
		FormatVersion int `json:"format_version"`
	}
	if err := json.Unmarshal(payload, &version); err != nil {
		return nil, fmt.Errorf("tracer: decoding record envelope: %w", err)
	}
	if version.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version.FormatVersion)
	}

	var rec Record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("tracer: decoding record: %w", err)
	}
	return &rec, nil
}
