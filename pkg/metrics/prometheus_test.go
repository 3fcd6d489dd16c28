package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTextfile(t *testing.T) {
	rec := NewPrometheusRecorder()
	rec.ObserveCommand("python", 0, 2*time.Second)
	rec.ObserveCommand("python", 0, time.Second)
	rec.ObserveCommand("twine", 1, time.Second)
	rec.ObserveStage("sdist", nil, 30*time.Second)
	rec.ObserveStage("bdist", errors.New("boom"), time.Minute)
	rec.AddUploadedBytes("snapshot", 2048)
	rec.AddUploadedBytes("snapshot", 0)

	path := filepath.Join(t.TempDir(), "textfile", "rtool.prom")
	require.NoError(t, rec.WriteTextfile(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(content)

	assert.Contains(t, text, `rtool_commands_total{status="success",tool="python"} 2`)
	assert.Contains(t, text, `rtool_commands_total{status="error",tool="twine"} 1`)
	assert.Contains(t, text, `rtool_command_duration_seconds_count{tool="python"} 2`)
	assert.Contains(t, text, `rtool_stage_duration_seconds_count{stage="sdist",status="success"} 1`)
	assert.Contains(t, text, `rtool_stage_duration_seconds_count{stage="bdist",status="error"} 1`)
	assert.Contains(t, text, `rtool_uploaded_bytes_total{target="snapshot"} 2048`)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file must be renamed into place")
}

func TestRecordersAreIndependent(t *testing.T) {
	a := NewPrometheusRecorder()
	b := NewPrometheusRecorder()
	a.ObserveCommand("git", 0, time.Millisecond)

	families, err := b.Registry().Gather()
	require.NoError(t, err)
	assert.Empty(t, families)
}

func TestNilAndNopRecorders(t *testing.T) {
	var rec *PrometheusRecorder
	assert.NotPanics(t, func() {
		rec.ObserveCommand("git", 0, time.Second)
		rec.ObserveStage("sdist", nil, time.Second)
		rec.AddUploadedBytes("index", 10)
		require.NoError(t, rec.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")))
	})

	done := Stage(nil, "sdist")
	assert.NotPanics(t, func() { done(nil) })
}

func TestStage(t *testing.T) {
	rec := NewPrometheusRecorder()
	done := Stage(rec, "upload-release")
	done(errors.New("rejected"))

	path := filepath.Join(t.TempDir(), "rtool.prom")
	require.NoError(t, rec.WriteTextfile(path))
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `rtool_stage_duration_seconds_count{stage="upload-release",status="error"} 1`)
}
