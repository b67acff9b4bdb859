// Package export defines the sink finished profiling records are handed to.
// Transport is entirely the implementation's concern; the core only sees
// Export outcomes and degrades silently on failure.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Exporter ships one encoded record payload. Implementations may block,
// buffer or drop; the profiler never retries and never surfaces the error to
// the handler.
type Exporter interface {
	Export(ctx context.Context, payload []byte) error
}

// Noop drops every payload. Default when no exporter is configured.
type Noop struct{}

func (Noop) Export(context.Context, []byte) error { return nil }

// Writer emits newline-delimited payloads to an io.Writer, typically stdout
// where the platform's log shipping picks them up.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func NewStdout() *Writer {
	return NewWriter(os.Stdout)
}

func (e *Writer) Export(_ context.Context, payload []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.w.Write(payload); err != nil {
		return fmt.Errorf("export: writing record: %w", err)
	}
	if _, err := e.w.Write([]byte{'\n'}); err != nil {
		return fmt.Errorf("export: writing record: %w", err)
	}
	return nil
}

// Dir drops each payload into dir under unprocessed_records/{record_id}.json,
// the key layout the collector expects in its record bucket.
type Dir struct {
	dir string
}

const unprocessedPrefix = "unprocessed_records"

func NewDir(dir string) *Dir {
	return &Dir{dir: dir}
}

func (e *Dir) Export(_ context.Context, payload []byte) error {
	var envelope struct {
		RootSpanID string `json:"root_span_id"`
	}
	recordID := ""
	if err := json.Unmarshal(payload, &envelope); err == nil {
		recordID = envelope.RootSpanID
	}
	if recordID == "" {
		recordID = uuid.NewString()
	}

	path := filepath.Join(e.dir, unprocessedPrefix)
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("export: creating record dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(path, recordID+".json"), payload, 0644); err != nil {
		return fmt.Errorf("export: writing record %s: %w", recordID, err)
	}
	return nil
}
