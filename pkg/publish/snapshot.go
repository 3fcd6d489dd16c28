package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"rtool/pkg/config"
	"rtool/pkg/journal"
	"rtool/pkg/metrics"
	"rtool/pkg/naming"
)

// RemoteFS is the subset of a remote file session used for snapshot uploads.
// Paths are slash-separated and relative to the session's home directory.
type RemoteFS interface {
	MkdirAll(dir string) error
	ReadDir(dir string) ([]os.FileInfo, error)
	Remove(name string) error
	Rename(oldname, newname string) error
	// Symlink creates link pointing at target. target is relative to link's directory.
	Symlink(target, link string) error
	Lstat(name string) (os.FileInfo, error)
	Create(name string) (io.WriteCloser, error)
	Close() error
}

// Dialer opens a remote session.
type Dialer interface {
	Dial(ctx context.Context) (RemoteFS, error)
}

// SnapshotOpts selects the artifact kinds uploaded as snapshots.
type SnapshotOpts struct {
	Sdist bool
	Wheel bool
	Bdist bool
}

func (o SnapshotOpts) kinds(project *config.Project, platform config.Platform) []naming.Kind {
	var kinds []naming.Kind
	if o.Sdist {
		kinds = append(kinds, naming.KindSdist)
	}
	if o.Wheel {
		kinds = append(kinds, naming.KindWheel)
	}
	if o.Bdist && len(project.ToolsFor(platform)) > 0 {
		kinds = append(kinds, naming.KindBdist)
	}
	return kinds
}

// UploadSnapshot uploads the selected artifacts to the snapshot server over one session.
//
// Every artifact is uploaded into <dir>/v<version>/ under its snapshot name. Older
// snapshots of the same artifact are deleted first, the file is written under a
// hidden name and renamed into place, and <dir>/<latest name> is re-pointed at it.
func (p *Publisher) UploadSnapshot(ctx context.Context, dialer Dialer, projects []config.Project, opts SnapshotOpts) (err error) {
	done := metrics.Stage(p.metrics, "upload-snapshot")
	defer func() { done(err) }()

	v, err := p.versions.Get()
	if err != nil {
		return err
	}
	snapshot, err := p.versions.Snapshot(ctx)
	if err != nil {
		return err
	}

	remote, err := dialer.Dial(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := remote.Close(); closeErr != nil {
			p.logger.Warn("Closing remote session: %v", closeErr)
		}
	}()

	u := &snapshotUpload{
		Publisher: p,
		remote:    remote,
		version:   v.String(),
		snapshot:  snapshot,
		baseDir:   p.cfg.Snapshot.Dir,
	}
	u.versionDir = path.Join(u.baseDir, "v"+u.version)

	for i := range projects {
		project := &projects[i]
		if err := remote.MkdirAll(u.versionDir); err != nil {
			return fmt.Errorf("failed to create %s: %w", u.versionDir, err)
		}
		for _, kind := range opts.kinds(project, p.cfg.Platform) {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := u.artifact(ctx, project, kind); err != nil {
				return err
			}
		}
	}
	return nil
}

type snapshotUpload struct {
	*Publisher
	remote     RemoteFS
	version    string
	snapshot   string
	baseDir    string
	versionDir string
}

func (u *snapshotUpload) artifact(ctx context.Context, project *config.Project, kind naming.Kind) error {
	name, err := naming.Name(kind, project, u.version, u.cfg.Platform)
	if err != nil {
		return err
	}
	local := filepath.Join(u.cfg.DistDir, name)
	remoteName := naming.Rename(name, u.version, u.snapshot)

	src, err := os.Open(local)
	if err != nil {
		return fmt.Errorf("missing artifact %s: %w", name, err)
	}
	defer src.Close()
	info, err := src.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", local, err)
	}

	if err := u.removeStale(naming.StalePattern(name, u.version)); err != nil {
		return err
	}

	u.logger.Info("⬆️  Uploading %s as %s...", name, remoteName)
	hidden := path.Join(u.versionDir, "."+remoteName)
	final := path.Join(u.versionDir, remoteName)
	if err := u.put(src, hidden, remoteName, info.Size()); err != nil {
		return err
	}
	if err := u.remote.Rename(hidden, final); err != nil {
		return fmt.Errorf("failed to rename %s into place: %w", hidden, err)
	}
	u.metrics.AddUploadedBytes("snapshot", info.Size())

	if err := u.updateLatest(naming.LatestName(name, u.version), remoteName); err != nil {
		return err
	}

	u.record(ctx, journal.Artifact{
		Project:     project.Name,
		Kind:        string(kind),
		Name:        remoteName,
		Destination: u.versionDir,
		Size:        info.Size(),
	})
	return nil
}

// removeStale deletes every entry of the version directory matching pattern, including
// hidden leftovers of interrupted uploads.
func (u *snapshotUpload) removeStale(pattern string) error {
	entries, err := u.remote.ReadDir(u.versionDir)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", u.versionDir, err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if !matches(pattern, name) && !matches("."+pattern, name) {
			continue
		}
		u.logger.Info("🗑️  Removing %s...", name)
		if err := u.remote.Remove(path.Join(u.versionDir, name)); err != nil {
			return fmt.Errorf("failed to remove %s: %w", name, err)
		}
	}
	return nil
}

func matches(pattern, name string) bool {
	ok, err := path.Match(pattern, name)
	return err == nil && ok
}

func (u *snapshotUpload) put(src io.Reader, dst, label string, size int64) error {
	w, err := u.remote.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}

	tracker := u.progress.Start(label, size)
	_, copyErr := io.Copy(&trackingWriter{w: w, tracker: tracker}, src)
	tracker.Finish()
	closeErr := w.Close()

	if copyErr != nil {
		return fmt.Errorf("failed to upload %s: %w", label, copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to upload %s: %w", label, closeErr)
	}
	return nil
}

// updateLatest re-points the latest alias at the freshly uploaded file.
func (u *snapshotUpload) updateLatest(latestName, remoteName string) error {
	link := path.Join(u.baseDir, latestName)
	if _, err := u.remote.Lstat(link); err == nil {
		u.logger.Info("🗑️  Removing %s...", link)
		if err := u.remote.Remove(link); err != nil {
			return fmt.Errorf("failed to remove %s: %w", link, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to check %s: %w", link, err)
	}

	target := path.Join("v"+u.version, remoteName)
	if err := u.remote.Symlink(target, link); err != nil {
		return fmt.Errorf("failed to link %s: %w", link, err)
	}
	return nil
}

type trackingWriter struct {
	w       io.Writer
	tracker Tracker
}

func (t *trackingWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	t.tracker.Add(int64(n))
	return n, err
}
