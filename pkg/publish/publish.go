// Package publish ships built artifacts: release uploads to the package index through
// the upload client, and snapshot uploads to the snapshot server over SFTP with a
// stable "latest" alias per artifact.
package publish

import (
	"context"
	"io"

	"rtool/pkg/config"
	"rtool/pkg/exec"
	"rtool/pkg/journal"
	"rtool/pkg/logx"
	"rtool/pkg/metrics"
	"rtool/pkg/version"
)

// VersionSource reads the release and snapshot versions.
type VersionSource interface {
	Get() (version.Version, error)
	Snapshot(ctx context.Context) (string, error)
}

// ArtifactRecorder stores published artifacts.
type ArtifactRecorder interface {
	RecordArtifact(ctx context.Context, a journal.Artifact) error
}

// Publisher uploads release and snapshot artifacts.
type Publisher struct {
	cfg      *config.Config
	executor exec.Executor
	versions VersionSource
	metrics  metrics.Recorder
	journal  ArtifactRecorder
	progress Reporter
	logger   *logx.Logger
	out      io.Writer
	runID    string
}

// NewPublisher creates a publisher. Upload client output goes to out.
func NewPublisher(cfg *config.Config, executor exec.Executor, versions VersionSource, rec metrics.Recorder, out io.Writer) *Publisher {
	if out == nil {
		out = io.Discard
	}
	return &Publisher{
		cfg:      cfg,
		executor: executor,
		versions: versions,
		metrics:  metrics.OrNop(rec),
		progress: Nop(),
		logger:   logx.NewLogger("publish"),
		out:      out,
	}
}

// WithJournal records every uploaded artifact under runID.
func (p *Publisher) WithJournal(rec ArtifactRecorder, runID string) *Publisher {
	p.journal = rec
	p.runID = runID
	return p
}

// WithProgress reports snapshot upload progress to r.
func (p *Publisher) WithProgress(r Reporter) *Publisher {
	if r == nil {
		r = Nop()
	}
	p.progress = r
	return p
}

func (p *Publisher) record(ctx context.Context, a journal.Artifact) {
	if p.journal == nil {
		return
	}
	a.RunID = p.runID
	if err := p.journal.RecordArtifact(ctx, a); err != nil {
		p.logger.Warn("Could not record %s in the journal: %v", a.Name, err)
	}
}
