package tracer

import "errors"

// Telemetry faults. All of them are handled inside the library: the
// invocation facade logs them to the diagnostic channel and the handler's
// outcome is never changed by any of these.
var (
	// ErrInvalidSpanState reports a double close or an end call for a span
	// the recorder does not own.
	ErrInvalidSpanState = errors.New("tracer: invalid span state")

	// ErrSpanAlreadyClosed reports a mutation of a closed span.
	ErrSpanAlreadyClosed = errors.New("tracer: span already closed")

	// ErrRecorderFinalized reports any span operation after Finalize.
	ErrRecorderFinalized = errors.New("tracer: recorder finalized")

	// ErrCarrierMalformed reports an unusable inbound carrier. Recovery is a
	// fresh trace, not a failure.
	ErrCarrierMalformed = errors.New("tracer: carrier malformed")

	// ErrUnsupportedVersion reports a record payload with a format version
	// this consumer does not understand.
	ErrUnsupportedVersion = errors.New("tracer: unsupported record format version")
)
