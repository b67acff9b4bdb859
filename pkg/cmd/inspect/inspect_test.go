package inspect

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spcl/faas-profiler-go/pkg/tracer"
	"github.com/spf13/viper"
	r "github.com/stretchr/testify/require"
)

func writeRecordFile(t *testing.T) (string, *tracer.Record) {
	rec := tracer.NewRecorder(nil)
	root, _ := rec.StartSpan("handle")
	child, _ := rec.StartSpan("resize")
	r.NoError(t, rec.EndSpan(child, tracer.StatusOK))
	r.NoError(t, rec.EndSpan(root, tracer.StatusOK))

	record, err := rec.Finalize()
	r.NoError(t, err)
	payload, err := tracer.Encode(record)
	r.NoError(t, err)

	path := filepath.Join(t.TempDir(), "record.json")
	r.NoError(t, os.WriteFile(path, payload, 0644))
	return path, record
}

func TestInspect_PrintsSpanTree(t *testing.T) {
	path, record := writeRecordFile(t)

	cmd := New(viper.New())
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{path})

	r.NoError(t, cmd.Execute())
	r.Contains(t, out.String(), record.TraceID)
	r.Contains(t, out.String(), "handle")
	r.Contains(t, out.String(), "resize")
}

func TestInspect_RejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "future.json")
	r.NoError(t, os.WriteFile(path, []byte(`{"format_version":99,"spans":[]}`), 0644))

	cmd := New(viper.New())
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{path})

	r.ErrorIs(t, cmd.Execute(), tracer.ErrUnsupportedVersion)
}

func TestInspect_MissingFile(t *testing.T) {
	cmd := New(viper.New())
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "absent.json")})

	r.Error(t, cmd.Execute())
}
