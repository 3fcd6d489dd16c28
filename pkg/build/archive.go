package build

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"rtool/pkg/config"
)

// Archive is a write-only binary archive.
type Archive interface {
	// Add copies the file at path into the archive under name.
	// A directory is added with its whole tree below name.
	Add(path, name string) error
	Close() error
}

// CreateArchive creates a zip archive on Windows and a gzipped tarball elsewhere.
func CreateArchive(path string, platform config.Platform) (Archive, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive: %w", err)
	}
	if platform.UsesZip() {
		return &zipArchive{file: f, w: zip.NewWriter(f)}, nil
	}
	gz := gzip.NewWriter(f)
	return &tarArchive{file: f, gz: gz, w: tar.NewWriter(gz)}, nil
}

type zipArchive struct {
	file *os.File
	w    *zip.Writer
}

func (a *zipArchive) Add(path, name string) error {
	return addTree(path, name, a.addFile)
}

func (a *zipArchive) addFile(path, name string) error {
	src, info, err := openRegular(path)
	if err != nil {
		return err
	}
	defer src.Close()

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("failed to build zip header for %s: %w", path, err)
	}
	header.Name = name
	header.Method = zip.Deflate

	dst, err := a.w.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", name, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to add %s: %w", name, err)
	}
	return nil
}

func (a *zipArchive) Close() error {
	if err := a.w.Close(); err != nil {
		_ = a.file.Close()
		return fmt.Errorf("failed to finish zip archive: %w", err)
	}
	return a.file.Close()
}

type tarArchive struct {
	file *os.File
	gz   *gzip.Writer
	w    *tar.Writer
}

func (a *tarArchive) Add(path, name string) error {
	return addTree(path, name, a.addFile)
}

func (a *tarArchive) addFile(path, name string) error {
	src, info, err := openRegular(path)
	if err != nil {
		return err
	}
	defer src.Close()

	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("failed to build tar header for %s: %w", path, err)
	}
	header.Name = name

	if err := a.w.WriteHeader(header); err != nil {
		return fmt.Errorf("failed to add %s: %w", name, err)
	}
	if _, err := io.Copy(a.w, src); err != nil {
		return fmt.Errorf("failed to add %s: %w", name, err)
	}
	return nil
}

func (a *tarArchive) Close() error {
	tarErr := a.w.Close()
	gzErr := a.gz.Close()
	fileErr := a.file.Close()
	switch {
	case tarErr != nil:
		return fmt.Errorf("failed to finish tar archive: %w", tarErr)
	case gzErr != nil:
		return fmt.Errorf("failed to finish gzip stream: %w", gzErr)
	default:
		return fileErr
	}
}

// addTree calls addFile for path, or for every regular file below it when path is a directory.
// Entry names use forward slashes.
func addTree(root, name string, addFile func(path, name string) error) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return addFile(root, name)
	}
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("failed to walk %s: %w", p, err)
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		return addFile(p, path.Join(name, filepath.ToSlash(rel)))
	})
}

func openRegular(path string) (*os.File, os.FileInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		_ = f.Close()
		return nil, nil, fmt.Errorf("%s is not a regular file", path)
	}
	return f, info, nil
}
