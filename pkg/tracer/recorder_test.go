package tracer

import (
	"testing"

	"github.com/spcl/faas-profiler-go/pkg/config"
	r "github.com/stretchr/testify/require"
)

func TestRecorder_NestedSpans(t *testing.T) {
	rec := NewRecorder(nil)

	a, err := rec.StartSpan("a")
	r.NoError(t, err)
	b, err := rec.StartSpan("b")
	r.NoError(t, err)
	c, err := rec.StartSpan("c")
	r.NoError(t, err)

	r.Equal(t, a.SpanID, b.ParentSpanID)
	r.Equal(t, b.SpanID, c.ParentSpanID)
	r.Equal(t, "", a.ParentSpanID)

	r.NoError(t, rec.EndSpan(c, StatusOK))
	r.NoError(t, rec.EndSpan(b, StatusOK))
	r.NoError(t, rec.EndSpan(a, StatusOK))

	record, err := rec.Finalize()
	r.NoError(t, err)
	r.Equal(t, a.SpanID, record.RootSpanID)
	r.Equal(t, 3, len(record.Spans))
	r.False(t, record.SpanLeaked)
	r.False(t, record.Truncated)

	// children never outlive their parents
	for _, s := range record.Spans {
		if s.ParentSpanID == "" {
			continue
		}
		parent := record.Span(s.ParentSpanID)
		r.NotNil(t, parent)
		r.False(t, s.EndTime.After(parent.EndTime))
		r.False(t, s.StartTime.Before(parent.StartTime))
	}
}

func TestRecorder_EndSpanTwice(t *testing.T) {
	rec := NewRecorder(nil)

	a, err := rec.StartSpan("a")
	r.NoError(t, err)
	r.NoError(t, rec.EndSpan(a, StatusOK))
	r.ErrorIs(t, rec.EndSpan(a, StatusOK), ErrInvalidSpanState)
}

func TestRecorder_EndSpanNil(t *testing.T) {
	rec := NewRecorder(nil)
	r.ErrorIs(t, rec.EndSpan(nil, StatusOK), ErrInvalidSpanState)
}

func TestRecorder_AttributeAfterClose(t *testing.T) {
	rec := NewRecorder(nil)

	a, err := rec.StartSpan("a")
	r.NoError(t, err)
	r.NoError(t, rec.AddAttribute(a, "k", "v"))
	r.NoError(t, rec.EndSpan(a, StatusOK))

	r.ErrorIs(t, rec.AddAttribute(a, "k2", "v"), ErrSpanAlreadyClosed)
	r.ErrorIs(t, rec.AddEvent(a, "e", zeroTime), ErrSpanAlreadyClosed)
}

func TestRecorder_EndOutOfOrderForceClosesChildren(t *testing.T) {
	rec := NewRecorder(nil)

	a, _ := rec.StartSpan("a")
	b, _ := rec.StartSpan("b")
	c, _ := rec.StartSpan("c")

	// ending a closes b and c with status error
	r.NoError(t, rec.EndSpan(a, StatusOK))

	record, err := rec.Finalize()
	r.NoError(t, err)
	r.True(t, record.SpanLeaked)
	r.Equal(t, StatusOK, record.Span(a.SpanID).Status)
	r.Equal(t, StatusError, record.Span(b.SpanID).Status)
	r.Equal(t, StatusError, record.Span(c.SpanID).Status)
}

func TestRecorder_FinalizeForceClosesOpenSpans(t *testing.T) {
	rec := NewRecorder(nil)

	a, _ := rec.StartSpan("a")
	b, _ := rec.StartSpan("b")

	record, err := rec.Finalize()
	r.NoError(t, err)
	r.True(t, record.SpanLeaked)
	for _, id := range []string{a.SpanID, b.SpanID} {
		s := record.Span(id)
		r.NotNil(t, s)
		r.False(t, s.EndTime.IsZero())
		r.Equal(t, StatusError, s.Status)
	}
}

func TestRecorder_SpanCapTruncates(t *testing.T) {
	cfg := config.Default()
	cfg.MaxSpansPerTrace = 2
	rec := NewRecorder(cfg)

	a, err := rec.StartSpan("a")
	r.NoError(t, err)
	b, err := rec.StartSpan("b")
	r.NoError(t, err)
	c, err := rec.StartSpan("c")
	r.NoError(t, err)
	r.NotNil(t, c)

	// the dropped handle stays usable
	r.NoError(t, rec.AddAttribute(c, "k", "v"))
	r.NoError(t, rec.EndSpan(c, StatusOK))
	r.NoError(t, rec.EndSpan(b, StatusOK))
	r.NoError(t, rec.EndSpan(a, StatusOK))

	record, err := rec.Finalize()
	r.NoError(t, err)
	r.True(t, record.Truncated)
	r.Equal(t, 1, record.DroppedSpans)
	r.Equal(t, 2, len(record.Spans))
	r.Nil(t, record.Span(c.SpanID))
}

func TestRecorder_AttributeCapTruncates(t *testing.T) {
	cfg := config.Default()
	cfg.MaxAttributesPerSpan = 2
	rec := NewRecorder(cfg)

	a, _ := rec.StartSpan("a")
	r.NoError(t, rec.AddAttribute(a, "k1", 1))
	r.NoError(t, rec.AddAttribute(a, "k2", 2))
	r.NoError(t, rec.AddAttribute(a, "k3", 3))
	// updating an existing key never counts against the cap
	r.NoError(t, rec.AddAttribute(a, "k1", 11))
	r.NoError(t, rec.EndSpan(a, StatusOK))

	record, err := rec.Finalize()
	r.NoError(t, err)
	r.True(t, record.Truncated)

	s := record.Span(a.SpanID)
	r.Equal(t, 2, len(s.Attributes))
	r.Equal(t, int64(11), s.Attributes["k1"].Interface())
	_, dropped := s.Attributes["k3"]
	r.False(t, dropped)
}

func TestRecorder_FinalizedOperationsFail(t *testing.T) {
	rec := NewRecorder(nil)
	a, _ := rec.StartSpan("a")

	_, err := rec.Finalize()
	r.NoError(t, err)

	_, err = rec.StartSpan("late")
	r.ErrorIs(t, err, ErrRecorderFinalized)
	r.ErrorIs(t, rec.EndSpan(a, StatusOK), ErrRecorderFinalized)
	r.ErrorIs(t, rec.AddAttribute(a, "k", "v"), ErrRecorderFinalized)
	r.ErrorIs(t, rec.AddEvent(a, "e", zeroTime), ErrRecorderFinalized)

	_, err = rec.Finalize()
	r.ErrorIs(t, err, ErrRecorderFinalized)
}

func TestRecorder_UniqueTraceIDs(t *testing.T) {
	const n = 10000
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		rec := NewRecorder(nil)
		_, dup := seen[rec.TraceID()]
		r.False(t, dup)
		seen[rec.TraceID()] = struct{}{}
	}
}

func TestRecorder_SamplingBounds(t *testing.T) {
	r.True(t, sampleTrace(uuid1, 1.0))
	r.False(t, sampleTrace(uuid1, 0.0))

	// the decision is a pure function of the trace id
	first := sampleTrace(uuid1, 0.5)
	for i := 0; i < 10; i++ {
		r.Equal(t, first, sampleTrace(uuid1, 0.5))
	}
}

func TestRecorder_SamplingRateRoughlyHolds(t *testing.T) {
	kept := 0
	const n = 2000
	for i := 0; i < n; i++ {
		rec := NewRecorder(nil)
		if sampleTrace(rec.TraceID(), 0.5) {
			kept++
		}
	}
	r.Greater(t, kept, n/4)
	r.Less(t, kept, 3*n/4)
}

func TestRecorder_EventTimestamps(t *testing.T) {
	rec := NewRecorder(nil)
	a, _ := rec.StartSpan("a")

	r.NoError(t, rec.AddEvent(a, "implicit", zeroTime))
	r.Equal(t, 1, len(a.Events))
	r.False(t, a.Events[0].Timestamp.IsZero())
}
