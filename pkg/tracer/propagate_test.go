package tracer

import (
	"testing"
	"time"

	"github.com/spcl/faas-profiler-go/pkg/config"
	r "github.com/stretchr/testify/require"
)

const (
	uuid1 = "00000000-0000-0000-0000-000000000001"
	uuid2 = "00000000-0000-0000-0000-000000000002"
)

var zeroTime time.Time

func TestCarrier_InjectExtractRound(t *testing.T) {
	rec := NewRecorder(nil)
	a, _ := rec.StartSpan("a")

	carrier := Carrier{}
	rec.Inject(carrier)

	cc, err := carrier.Extract()
	r.NoError(t, err)
	r.Equal(t, rec.TraceID(), cc.TraceID)
	r.Equal(t, a.SpanID, cc.RecordID)
}

func TestCarrier_ExtractMalformed(t *testing.T) {
	var nilCarrier Carrier
	_, err := nilCarrier.Extract()
	r.ErrorIs(t, err, ErrCarrierMalformed)

	_, err = Carrier{config.TraceIDHeader: uuid1}.Extract()
	r.ErrorIs(t, err, ErrCarrierMalformed)

	_, err = Carrier{
		config.TraceIDHeader:  "not-a-uuid",
		config.RecordIDHeader: "0000000000000001",
	}.Extract()
	r.ErrorIs(t, err, ErrCarrierMalformed)
}

func TestRestoreRecorder_AttachesToUpstream(t *testing.T) {
	upstream := NewRecorder(nil)
	call, _ := upstream.StartSpan("call-downstream")

	carrier := Carrier{}
	upstream.Inject(carrier)

	rec, err := RestoreRecorder(nil, carrier)
	r.NoError(t, err)
	r.Equal(t, upstream.TraceID(), rec.TraceID())

	root, err := rec.StartSpan("handle")
	r.NoError(t, err)
	r.Equal(t, call.SpanID, root.ParentSpanID)

	// the restored root still counts as root of its own record
	r.NoError(t, rec.EndSpan(root, StatusOK))
	record, err := rec.Finalize()
	r.NoError(t, err)
	r.Equal(t, root.SpanID, record.RootSpanID)
}

func TestRestoreRecorder_MalformedStartsFresh(t *testing.T) {
	rec, err := RestoreRecorder(nil, Carrier{config.TraceIDHeader: "garbage"})
	r.ErrorIs(t, err, ErrCarrierMalformed)
	r.NotNil(t, rec)
	r.NotEmpty(t, rec.TraceID())

	root, err := rec.StartSpan("handle")
	r.NoError(t, err)
	r.Equal(t, "", root.ParentSpanID)
}

func TestRecorder_InjectWithoutOpenSpan(t *testing.T) {
	rec := NewRecorder(nil)

	carrier := Carrier{}
	rec.Inject(carrier)
	r.Empty(t, carrier)

	_, ok := rec.Current()
	r.False(t, ok)
}
