// Package metrics records how long release commands and pipeline stages take and how
// many bytes were uploaded, and exports them for node_exporter's textfile collector.
package metrics

import "time"

// Recorder defines the interface for recording release pipeline metrics.
type Recorder interface {
	// ObserveCommand records one finished external command.
	ObserveCommand(tool string, exitCode int, duration time.Duration)

	// ObserveStage records one finished pipeline stage (sdist, bdist, upload-snapshot...).
	ObserveStage(stage string, err error, duration time.Duration)

	// AddUploadedBytes counts bytes sent to an upload target.
	AddUploadedBytes(target string, n int64)
}

// NoopRecorder implements Recorder with no-op behavior for when metrics are disabled.
type NoopRecorder struct{}

// Nop returns a no-op metrics recorder that discards all metrics.
func Nop() Recorder {
	return &NoopRecorder{}
}

// ObserveCommand does nothing in the no-op recorder.
func (n *NoopRecorder) ObserveCommand(_ string, _ int, _ time.Duration) {}

// ObserveStage does nothing in the no-op recorder.
func (n *NoopRecorder) ObserveStage(_ string, _ error, _ time.Duration) {}

// AddUploadedBytes does nothing in the no-op recorder.
func (n *NoopRecorder) AddUploadedBytes(_ string, _ int64) {}

// OrNop returns r, or the no-op recorder when r is nil.
func OrNop(r Recorder) Recorder {
	if r == nil {
		return Nop()
	}
	return r
}

// Stage starts timing a stage; call the returned function with the stage's outcome.
//
//	done := metrics.Stage(rec, "sdist")
//	err := run()
//	done(err)
func Stage(r Recorder, stage string) func(err error) {
	start := time.Now()
	return func(err error) {
		OrNop(r).ObserveStage(stage, err, time.Since(start))
	}
}

func status(failed bool) string {
	if failed {
		return "error"
	}
	return "success"
}
