package tracer

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// clock yields monotonically non-decreasing timestamps so clock skew can
// never produce a negative span duration. Accessed by the single goroutine
// owning the recorder, like everything else on it.
type clock struct {
	last time.Time
}

func (c *clock) Now() time.Time {
	now := time.Now()
	if now.Before(c.last) {
		return c.last
	}
	c.last = now
	return now
}

// idSource generates trace and span identifiers. Trace IDs are 128-bit UUIDs,
// span IDs 64-bit random hex. If entropy is unavailable it switches to a
// time-and-counter generator and marks the record low-confidence instead of
// failing the invocation.
type idSource struct {
	lowConfidence bool
	seq           uint64
}

func (g *idSource) NewTraceID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		return g.degraded(16)
	}
	return id.String()
}

func (g *idSource) NewSpanID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return g.degraded(8)
	}
	return hex.EncodeToString(b)
}

func (g *idSource) degraded(size int) string {
	g.lowConfidence = true
	g.seq++
	b := make([]byte, size)
	binary.BigEndian.PutUint64(b[size-8:], uint64(time.Now().UnixNano())+g.seq)
	return hex.EncodeToString(b)
}
