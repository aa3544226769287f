// Package staging manages request-local temporary files and directories used
// to stage exports before they are streamed to a client.
package staging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
)

type Manager struct {
	dir    string
	active atomic.Int64
}

// NewManager stages resources under dir, or the OS temp dir when dir is empty.
func NewManager(dir string) *Manager {
	return &Manager{dir: dir}
}

func (m *Manager) root() string {
	if m.dir == "" {
		return os.TempDir()
	}
	return m.dir
}

// Resource is a staged file or directory. Release removes it; only the first
// call has an effect.
type Resource struct {
	path  string
	file  string
	once  sync.Once
	err   error
	owner *Manager
}

// Path is the staged file or directory itself.
func (r *Resource) Path() string {
	return r.path
}

// File is the staged file. For a directory resource it is the single file
// inside the directory.
func (r *Resource) File() string {
	return r.file
}

func (r *Resource) Release() error {
	r.once.Do(func() {
		r.err = os.RemoveAll(r.path)
		r.owner.active.Add(-1)
	})
	return r.err
}

// ErrReleased is returned when opening a resource that was already released.
var ErrReleased = errors.New("staged resource released")

// Open opens the staged file for reading.
func (r *Resource) Open() (*os.File, error) {
	f, err := os.Open(r.file)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrReleased
	}
	return f, err
}

// Active is the number of acquired resources not yet released.
func (m *Manager) Active() int {
	return int(m.active.Load())
}

// StageFile creates a temp file matching pattern and fills it. If fill fails
// or panics the file is removed before returning, and fill's error is
// returned unchanged.
func (m *Manager) StageFile(pattern string, fill func(io.Writer) error) (*Resource, error) {
	if err := os.MkdirAll(m.root(), 0o755); err != nil {
		return nil, fmt.Errorf("create staging root: %w", err)
	}
	f, err := os.CreateTemp(m.root(), pattern)
	if err != nil {
		return nil, fmt.Errorf("create staging file: %w", err)
	}
	m.active.Add(1)
	res := &Resource{path: f.Name(), file: f.Name(), owner: m}
	if err := m.fill(res, f, fill); err != nil {
		return nil, err
	}
	return res, nil
}

// StageInDir creates a temp directory matching pattern holding one file
// called name, and fills that file. Failure handling matches StageFile.
func (m *Manager) StageInDir(pattern, name string, fill func(io.Writer) error) (*Resource, error) {
	if err := os.MkdirAll(m.root(), 0o755); err != nil {
		return nil, fmt.Errorf("create staging root: %w", err)
	}
	dir, err := os.MkdirTemp(m.root(), pattern)
	if err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	m.active.Add(1)
	res := &Resource{path: dir, file: filepath.Join(dir, filepath.Base(name)), owner: m}

	f, err := os.OpenFile(res.file, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		_ = res.Release()
		return nil, fmt.Errorf("create staging file: %w", err)
	}
	if err := m.fill(res, f, fill); err != nil {
		return nil, err
	}
	return res, nil
}

func (m *Manager) fill(res *Resource, f *os.File, fill func(io.Writer) error) error {
	done := false
	defer func() {
		if !done {
			f.Close()
			_ = res.Release()
		}
	}()

	if err := fill(f); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close staging file: %w", err)
	}
	done = true
	return nil
}

// IsWritable checks that resources can be staged.
func (m *Manager) IsWritable() error {
	res, err := m.StageFile(".writetest-*", func(w io.Writer) error {
		_, err := w.Write([]byte("ok"))
		return err
	})
	if err != nil {
		return err
	}
	return res.Release()
}
