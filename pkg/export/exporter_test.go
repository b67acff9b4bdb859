package export

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	r "github.com/stretchr/testify/require"
)

func TestWriter_NewlineDelimited(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	r.NoError(t, w.Export(context.Background(), []byte(`{"a":1}`)))
	r.NoError(t, w.Export(context.Background(), []byte(`{"b":2}`)))
	r.Equal(t, "{\"a\":1}\n{\"b\":2}\n", buf.String())
}

func TestDir_WritesRecordFile(t *testing.T) {
	dir := t.TempDir()
	e := NewDir(dir)

	payload := []byte(`{"format_version":1,"root_span_id":"00000000000000ab","spans":[]}`)
	r.NoError(t, e.Export(context.Background(), payload))

	got, err := os.ReadFile(filepath.Join(dir, "unprocessed_records", "00000000000000ab.json"))
	r.NoError(t, err)
	r.Equal(t, payload, got)
}

func TestDir_FallsBackToRandomName(t *testing.T) {
	dir := t.TempDir()
	e := NewDir(dir)

	r.NoError(t, e.Export(context.Background(), []byte(`{"spans":[]}`)))

	entries, err := os.ReadDir(filepath.Join(dir, "unprocessed_records"))
	r.NoError(t, err)
	r.Equal(t, 1, len(entries))
}

// capture collects payloads, optionally blocking until released.
type capture struct {
	mu       sync.Mutex
	payloads [][]byte
	block    chan struct{}
}

func (c *capture) Export(_ context.Context, payload []byte) error {
	if c.block != nil {
		<-c.block
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payloads = append(c.payloads, payload)
	return nil
}

func (c *capture) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.payloads)
}

func TestBuffered_DeliversEverythingOnClose(t *testing.T) {
	inner := &capture{}
	b := NewBuffered(inner, 16)

	for i := 0; i < 10; i++ {
		r.NoError(t, b.Export(context.Background(), []byte{byte(i)}))
	}
	b.Close()

	r.Equal(t, 10, inner.count())
	r.Equal(t, int64(0), b.Dropped())
}

func TestBuffered_DropsWhenFull(t *testing.T) {
	inner := &capture{block: make(chan struct{})}
	b := NewBuffered(inner, 1)

	for i := 0; i < 8; i++ {
		r.NoError(t, b.Export(context.Background(), []byte{byte(i)}))
	}
	r.Greater(t, b.Dropped(), int64(0))

	close(inner.block)
	b.Close()
}

func TestBuffered_ExportAfterClose(t *testing.T) {
	inner := &capture{}
	b := NewBuffered(inner, 4)
	b.Close()

	r.NoError(t, b.Export(context.Background(), []byte("late")))
	r.Equal(t, int64(1), b.Dropped())
	r.Equal(t, 0, inner.count())

	// closing twice is fine
	b.Close()
}

func TestBuffered_DeliversWithoutClose(t *testing.T) {
	inner := &capture{}
	b := NewBuffered(inner, 4)
	defer b.Close()

	r.NoError(t, b.Export(context.Background(), []byte("x")))

	deadline := time.Now().Add(2 * time.Second)
	for inner.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	r.Equal(t, 1, inner.count())
}
