package requests

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/spcl/faas-profiler-go/pkg/tracer"
)

var (
	// ErrInvalidContext reports a record attempt without the pieces a row
	// needs (tracing identity, identifiers, time constraint).
	ErrInvalidContext = errors.New("requests: invalid context for request record")

	// ErrNoRecord reports that no matching row resolves the lookup.
	ErrNoRecord = errors.New("requests: no matching request record")
)

// timeSlack absorbs clock skew between the two sides of a recorded request.
const timeSlack = time.Millisecond

// Table stores request records and resolves tracing contexts from them.
type Table interface {
	// RecordInbound stores the request that triggered this invocation.
	RecordInbound(ctx context.Context, in *tracer.InboundContext, tc tracer.CarrierContext) error

	// RecordOutbound stores a call the handler made, so the downstream
	// invocation can find its parent.
	RecordOutbound(ctx context.Context, out *tracer.OutboundContext, tc tracer.CarrierContext) error

	// FindContextByInbound resolves the tracing context of the outbound
	// request that caused the given inbound one.
	FindContextByInbound(ctx context.Context, in *tracer.InboundContext) (tracer.CarrierContext, error)

	// FindContextByOutbound resolves the tracing context of the invocation
	// an outbound request triggered.
	FindContextByOutbound(ctx context.Context, out *tracer.OutboundContext) (tracer.CarrierContext, error)
}

// Noop is the fallback for unresolved providers: records are skipped with a
// warning, lookups never resolve.
type Noop struct{}

func (Noop) RecordInbound(context.Context, *tracer.InboundContext, tracer.CarrierContext) error {
	logrus.Warn("skipping inbound request record, no request table defined")
	return nil
}

func (Noop) RecordOutbound(context.Context, *tracer.OutboundContext, tracer.CarrierContext) error {
	logrus.Warn("skipping outbound request record, no request table defined")
	return nil
}

func (Noop) FindContextByInbound(context.Context, *tracer.InboundContext) (tracer.CarrierContext, error) {
	return tracer.CarrierContext{}, ErrNoRecord
}

func (Noop) FindContextByOutbound(context.Context, *tracer.OutboundContext) (tracer.CarrierContext, error) {
	return tracer.CarrierContext{}, ErrNoRecord
}

func validateRecord(tc tracer.CarrierContext, identifier map[string]string, at time.Time) error {
	if !tc.Defined() {
		return fmt.Errorf("%w: trace id and record id are required", ErrInvalidContext)
	}
	if len(identifier) == 0 {
		return fmt.Errorf("%w: identifiers are required", ErrInvalidContext)
	}
	if at.IsZero() {
		return fmt.Errorf("%w: time constraint is required", ErrInvalidContext)
	}
	return nil
}
