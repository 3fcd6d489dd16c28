package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

// PrometheusRecorder implements the Recorder interface using Prometheus metrics.
// Each recorder owns its registry so repeated construction in one process is safe.
// All methods are safe on a nil receiver.
type PrometheusRecorder struct {
	registry        *prometheus.Registry
	commandsTotal   *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
	stageDuration   *prometheus.HistogramVec
	uploadedBytes   *prometheus.CounterVec
}

// NewPrometheusRecorder creates a new Prometheus-based metrics recorder.
func NewPrometheusRecorder() *PrometheusRecorder {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &PrometheusRecorder{
		registry: registry,
		commandsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rtool_commands_total",
				Help: "Total number of external commands by tool and status",
			},
			[]string{"tool", "status"},
		),
		commandDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rtool_command_duration_seconds",
				Help:    "Duration of external commands in seconds",
				Buckets: prometheus.ExponentialBuckets(0.05, 4, 8),
			},
			[]string{"tool"},
		),
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rtool_stage_duration_seconds",
				Help:    "Duration of release pipeline stages in seconds",
				Buckets: prometheus.ExponentialBuckets(1, 3, 8),
			},
			[]string{"stage", "status"},
		),
		uploadedBytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rtool_uploaded_bytes_total",
				Help: "Total number of artifact bytes uploaded by target",
			},
			[]string{"target"},
		),
	}
}

// Registry exposes the underlying registry.
func (p *PrometheusRecorder) Registry() *prometheus.Registry {
	if p == nil {
		return nil
	}
	return p.registry
}

// ObserveCommand records metrics for a finished external command.
func (p *PrometheusRecorder) ObserveCommand(tool string, exitCode int, duration time.Duration) {
	if p == nil {
		return
	}
	p.commandsTotal.WithLabelValues(tool, status(exitCode != 0)).Inc()
	p.commandDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// ObserveStage records the duration of a pipeline stage.
func (p *PrometheusRecorder) ObserveStage(stage string, err error, duration time.Duration) {
	if p == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage, status(err != nil)).Observe(duration.Seconds())
}

// AddUploadedBytes counts uploaded bytes for a target ("index" or "snapshot").
func (p *PrometheusRecorder) AddUploadedBytes(target string, n int64) {
	if p == nil || n <= 0 {
		return
	}
	p.uploadedBytes.WithLabelValues(target).Add(float64(n))
}

// WriteTextfile writes every gathered metric family in the text exposition format.
// The file is replaced atomically so a concurrent scrape never sees a partial file.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	if p == nil {
		return nil
	}

	families, err := p.registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create metrics file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(tmp, mf); err != nil {
			_ = tmp.Close()
			return fmt.Errorf("failed to encode metrics: %w", err)
		}
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("failed to set metrics file mode: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace metrics file: %w", err)
	}
	return nil
}
