package publish

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"rtool/pkg/config"
	"rtool/pkg/exec"
	"rtool/pkg/journal"
	"rtool/pkg/metrics"
	"rtool/pkg/naming"
)

// IndexCredentials authenticate against the package index.
type IndexCredentials struct {
	Username   string
	Password   string
	Repository string
}

// ReleaseOpts selects the artifact kinds uploaded to the index.
type ReleaseOpts struct {
	Sdist bool
	Wheel bool
}

// UploadRelease uploads the selected source distributions and wheels through the upload
// client, project by project. The first failed upload aborts; nothing is retried.
func (p *Publisher) UploadRelease(ctx context.Context, projects []config.Project, creds IndexCredentials, opts ReleaseOpts) (err error) {
	done := metrics.Stage(p.metrics, "upload-release")
	defer func() { done(err) }()

	if creds.Repository == "" {
		creds.Repository = p.cfg.Repository
	}

	v, err := p.versions.Get()
	if err != nil {
		return err
	}

	for i := range projects {
		project := &projects[i]

		var kinds []naming.Kind
		if opts.Sdist {
			kinds = append(kinds, naming.KindSdist)
		}
		if opts.Wheel {
			kinds = append(kinds, naming.KindWheel)
		}

		for _, kind := range kinds {
			name, err := naming.Name(kind, project, v.String(), p.cfg.Platform)
			if err != nil {
				return err
			}
			if err := p.uploadToIndex(ctx, creds, filepath.Join(p.cfg.DistDir, name)); err != nil {
				return err
			}
			p.record(ctx, journal.Artifact{
				Project:     project.Name,
				Kind:        string(kind),
				Name:        name,
				Destination: creds.Repository,
				Size:        fileSize(filepath.Join(p.cfg.DistDir, name)),
			})
		}
	}
	return nil
}

func (p *Publisher) uploadToIndex(ctx context.Context, creds IndexCredentials, path string) error {
	p.logger.Info("🚀 Uploading %s to %s...", filepath.Base(path), creds.Repository)

	argv := []string{
		p.cfg.UploadClient,
		"upload",
		"-u", creds.Username,
		"-p", creds.Password,
		"-r", creds.Repository,
		path,
	}
	_, err := p.executor.Run(ctx, argv, exec.Opts{
		Dir:    p.cfg.ReleaseDir,
		Stdout: p.out,
		Redact: []string{creds.Password},
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", filepath.Base(path), err)
	}
	p.metrics.AddUploadedBytes("index", fileSize(path))
	return nil
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
