package mocks

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"time"
)

type memEntry struct {
	modTime time.Time
	link    string
	data    []byte
	dir     bool
}

// MemoryRemoteFS is an in-memory remote file tree for snapshot upload tests.
// It implements publish.RemoteFS with SFTP semantics: Rename refuses to overwrite and
// Symlink refuses an existing link.
type MemoryRemoteFS struct {
	entries map[string]*memEntry

	// FailOp, when set, is consulted before every operation; a non-nil error fails it.
	FailOp func(op, name string) error

	// Ops records every mutating operation, e.g. "rename a b".
	Ops []string

	Closed bool

	mu sync.Mutex
}

// NewMemoryRemoteFS creates an empty remote tree.
func NewMemoryRemoteFS() *MemoryRemoteFS {
	return &MemoryRemoteFS{entries: map[string]*memEntry{".": {dir: true}}}
}

func clean(name string) string {
	return path.Clean(strings.TrimPrefix(name, "/"))
}

func notExist(op, name string) error {
	return &fs.PathError{Op: op, Path: name, Err: fs.ErrNotExist}
}

func (m *MemoryRemoteFS) fail(op, name string) error {
	if m.FailOp != nil {
		return m.FailOp(op, name)
	}
	return nil
}

func (m *MemoryRemoteFS) requireDir(op, dir string) error {
	e, ok := m.entries[dir]
	if !ok {
		return notExist(op, dir)
	}
	if !e.dir {
		return &fs.PathError{Op: op, Path: dir, Err: fmt.Errorf("not a directory")}
	}
	return nil
}

// MkdirAll implements publish.RemoteFS.
func (m *MemoryRemoteFS) MkdirAll(dir string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	dir = clean(dir)
	if err := m.fail("mkdir", dir); err != nil {
		return err
	}
	m.Ops = append(m.Ops, "mkdir "+dir)
	return m.mkdirAll(dir)
}

func (m *MemoryRemoteFS) mkdirAll(dir string) error {
	var cur string
	for _, part := range strings.Split(dir, "/") {
		cur = path.Join(cur, part)
		if e, ok := m.entries[cur]; ok {
			if !e.dir {
				return &fs.PathError{Op: "mkdir", Path: cur, Err: fs.ErrExist}
			}
			continue
		}
		m.entries[cur] = &memEntry{dir: true, modTime: time.Now()}
	}
	return nil
}

// ReadDir implements publish.RemoteFS. Entries are sorted by name.
func (m *MemoryRemoteFS) ReadDir(dir string) ([]os.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	dir = clean(dir)
	if err := m.fail("readdir", dir); err != nil {
		return nil, err
	}
	if err := m.requireDir("readdir", dir); err != nil {
		return nil, err
	}

	var infos []os.FileInfo
	for name, e := range m.entries {
		if name != "." && path.Dir(name) == dir {
			infos = append(infos, memInfo{name: path.Base(name), entry: e})
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })
	return infos, nil
}

// Remove implements publish.RemoteFS. Symlinks are removed, never followed.
func (m *MemoryRemoteFS) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	name = clean(name)
	if err := m.fail("remove", name); err != nil {
		return err
	}
	if _, ok := m.entries[name]; !ok {
		return notExist("remove", name)
	}
	for other := range m.entries {
		if path.Dir(other) == name && other != name {
			return &fs.PathError{Op: "remove", Path: name, Err: fmt.Errorf("directory not empty")}
		}
	}
	m.Ops = append(m.Ops, "remove "+name)
	delete(m.entries, name)
	return nil
}

// Rename implements publish.RemoteFS.
func (m *MemoryRemoteFS) Rename(oldname, newname string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	oldname, newname = clean(oldname), clean(newname)
	if err := m.fail("rename", oldname); err != nil {
		return err
	}
	e, ok := m.entries[oldname]
	if !ok {
		return notExist("rename", oldname)
	}
	if _, exists := m.entries[newname]; exists {
		return &fs.PathError{Op: "rename", Path: newname, Err: fs.ErrExist}
	}
	if err := m.requireDir("rename", path.Dir(newname)); err != nil {
		return err
	}
	m.Ops = append(m.Ops, "rename "+oldname+" "+newname)
	delete(m.entries, oldname)
	m.entries[newname] = e
	return nil
}

// Symlink implements publish.RemoteFS.
func (m *MemoryRemoteFS) Symlink(target, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	link = clean(link)
	if err := m.fail("symlink", link); err != nil {
		return err
	}
	if _, exists := m.entries[link]; exists {
		return &fs.PathError{Op: "symlink", Path: link, Err: fs.ErrExist}
	}
	if err := m.requireDir("symlink", path.Dir(link)); err != nil {
		return err
	}
	m.Ops = append(m.Ops, "symlink "+target+" "+link)
	m.entries[link] = &memEntry{link: target, modTime: time.Now()}
	return nil
}

// Lstat implements publish.RemoteFS.
func (m *MemoryRemoteFS) Lstat(name string) (os.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name = clean(name)
	if err := m.fail("lstat", name); err != nil {
		return nil, err
	}
	e, ok := m.entries[name]
	if !ok {
		return nil, notExist("lstat", name)
	}
	return memInfo{name: path.Base(name), entry: e}, nil
}

// Create implements publish.RemoteFS. Content becomes visible when the writer is closed.
func (m *MemoryRemoteFS) Create(name string) (io.WriteCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name = clean(name)
	if err := m.fail("create", name); err != nil {
		return nil, err
	}
	if err := m.requireDir("create", path.Dir(name)); err != nil {
		return nil, err
	}
	m.Ops = append(m.Ops, "create "+name)
	m.entries[name] = &memEntry{modTime: time.Now()}
	return &memWriter{fs: m, name: name}, nil
}

// Close implements publish.RemoteFS.
func (m *MemoryRemoteFS) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// WriteFile seeds a file, creating parent directories. Seeding is not recorded in Ops.
func (m *MemoryRemoteFS) WriteFile(name string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name = clean(name)
	_ = m.mkdirAll(path.Dir(name))
	m.entries[name] = &memEntry{data: append([]byte(nil), data...), modTime: time.Now()}
}

// SeedSymlink seeds a symlink, creating parent directories.
func (m *MemoryRemoteFS) SeedSymlink(target, link string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	link = clean(link)
	_ = m.mkdirAll(path.Dir(link))
	m.entries[link] = &memEntry{link: target, modTime: time.Now()}
}

// ReadFile returns a file's content.
func (m *MemoryRemoteFS) ReadFile(name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[clean(name)]
	if !ok || e.dir || e.link != "" {
		return nil, false
	}
	return append([]byte(nil), e.data...), true
}

// Readlink returns a symlink's target.
func (m *MemoryRemoteFS) Readlink(name string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[clean(name)]
	if !ok || e.link == "" {
		return "", false
	}
	return e.link, true
}

// List returns every path in the tree (directories included), sorted.
func (m *MemoryRemoteFS) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.entries))
	for name := range m.entries {
		if name != "." {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

type memWriter struct {
	fs   *MemoryRemoteFS
	name string
	buf  bytes.Buffer
}

func (w *memWriter) Write(p []byte) (int, error) {
	if err := w.fs.failLocked("write", w.name); err != nil {
		return 0, err
	}
	return w.buf.Write(p)
}

func (w *memWriter) Close() error {
	w.fs.mu.Lock()
	defer w.fs.mu.Unlock()
	if e, ok := w.fs.entries[w.name]; ok {
		e.data = w.buf.Bytes()
	}
	return nil
}

func (m *MemoryRemoteFS) failLocked(op, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fail(op, name)
}

type memInfo struct {
	entry *memEntry
	name  string
}

func (i memInfo) Name() string { return i.name }

func (i memInfo) Size() int64 { return int64(len(i.entry.data)) }

func (i memInfo) Mode() fs.FileMode {
	switch {
	case i.entry.dir:
		return fs.ModeDir | 0755
	case i.entry.link != "":
		return fs.ModeSymlink | 0777
	default:
		return 0644
	}
}

func (i memInfo) ModTime() time.Time { return i.entry.modTime }

func (i memInfo) IsDir() bool { return i.entry.dir }

func (i memInfo) Sys() any { return nil }
