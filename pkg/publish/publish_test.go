package publish

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"rtool/pkg/config"
	"rtool/pkg/journal"
	"rtool/pkg/version"
)

type stubVersions struct {
	version  string
	snapshot string
}

func (s stubVersions) Get() (version.Version, error) {
	return version.ParseVersion(s.version)
}

func (s stubVersions) Snapshot(context.Context) (string, error) {
	return s.snapshot, nil
}

type recordedArtifacts struct {
	artifacts []journal.Artifact
	mu        sync.Mutex
}

func (r *recordedArtifacts) RecordArtifact(_ context.Context, a journal.Artifact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.artifacts = append(r.artifacts, a)
	return nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	release := t.TempDir()
	cfg := config.Default()
	cfg.ReleaseDir = release
	cfg.DistDir = filepath.Join(release, "dist")
	cfg.BuildDir = filepath.Join(release, "build")
	cfg.Platform = config.PlatformLinux
	require.NoError(t, os.MkdirAll(cfg.DistDir, 0755))
	return cfg
}

func writeDist(t *testing.T, cfg *config.Config, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(cfg.DistDir, name), []byte("content of "+name), 0644))
	}
}

func selectProjects(t *testing.T, cfg *config.Config, names ...string) []config.Project {
	t.Helper()
	projects, err := cfg.Select(names)
	require.NoError(t, err)
	return projects
}
