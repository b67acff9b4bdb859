package requests

import (
	"context"
	"testing"
	"time"

	"github.com/spcl/faas-profiler-go/pkg/tracer"
	r "github.com/stretchr/testify/require"
)

func TestNoop_NeverResolves(t *testing.T) {
	table := Noop{}

	_, err := table.FindContextByInbound(context.Background(), &tracer.InboundContext{})
	r.ErrorIs(t, err, ErrNoRecord)

	_, err = table.FindContextByOutbound(context.Background(), &tracer.OutboundContext{})
	r.ErrorIs(t, err, ErrNoRecord)

	r.NoError(t, table.RecordInbound(context.Background(), &tracer.InboundContext{}, tracer.CarrierContext{}))
	r.NoError(t, table.RecordOutbound(context.Background(), &tracer.OutboundContext{}, tracer.CarrierContext{}))
}

func TestValidateRecord(t *testing.T) {
	tc := tracer.CarrierContext{TraceID: "t", RecordID: "r"}
	identifier := map[string]string{"k": "v"}
	at := time.Unix(1, 0)

	r.NoError(t, validateRecord(tc, identifier, at))
	r.ErrorIs(t, validateRecord(tracer.CarrierContext{}, identifier, at), ErrInvalidContext)
	r.ErrorIs(t, validateRecord(tc, nil, at), ErrInvalidContext)
	r.ErrorIs(t, validateRecord(tc, identifier, time.Time{}), ErrInvalidContext)
}
