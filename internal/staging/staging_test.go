package staging

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func entriesIn(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	return len(entries)
}

func TestStageFileReleasedOnce(t *testing.T) {
	root := t.TempDir()
	m := NewManager(root)

	res, err := m.StageFile("export-*.zip", func(w io.Writer) error {
		_, err := w.Write([]byte("archive"))
		return err
	})
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if m.Active() != 1 {
		t.Fatalf("expected 1 active resource, got %d", m.Active())
	}
	data, err := os.ReadFile(res.File())
	if err != nil || string(data) != "archive" {
		t.Fatalf("staged content %q err %v", data, err)
	}

	if err := res.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := res.Release(); err != nil {
		t.Fatalf("second release: %v", err)
	}
	if m.Active() != 0 {
		t.Fatalf("expected 0 active resources, got %d", m.Active())
	}
	if n := entriesIn(t, root); n != 0 {
		t.Fatalf("expected staging root to be empty, found %d entries", n)
	}
	if _, err := res.Open(); !errors.Is(err, ErrReleased) {
		t.Fatalf("expected ErrReleased, got %v", err)
	}
}

func TestStageFileFailureRemovesFileAndKeepsError(t *testing.T) {
	root := t.TempDir()
	m := NewManager(root)
	boom := errors.New("boom")

	res, err := m.StageFile("export-*.zip", func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return boom
	})
	if err != boom {
		t.Fatalf("expected original error, got %v", err)
	}
	if res != nil {
		t.Fatalf("expected no resource on failure")
	}
	if m.Active() != 0 {
		t.Fatalf("expected 0 active resources, got %d", m.Active())
	}
	if n := entriesIn(t, root); n != 0 {
		t.Fatalf("partial file left behind")
	}
}

func TestStageFilePanicRemovesFile(t *testing.T) {
	root := t.TempDir()
	m := NewManager(root)

	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("expected panic to propagate")
			}
		}()
		_, _ = m.StageFile("export-*.zip", func(w io.Writer) error {
			panic("fill exploded")
		})
	}()

	if m.Active() != 0 {
		t.Fatalf("expected 0 active resources, got %d", m.Active())
	}
	if n := entriesIn(t, root); n != 0 {
		t.Fatalf("file left behind after panic")
	}
}

func TestStageInDir(t *testing.T) {
	root := t.TempDir()
	m := NewManager(root)

	res, err := m.StageInDir("all-*", "all_images_by_labels.zip", func(w io.Writer) error {
		_, err := w.Write([]byte("outer"))
		return err
	})
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if filepath.Dir(res.File()) != res.Path() {
		t.Fatalf("file %s not inside dir %s", res.File(), res.Path())
	}
	if filepath.Base(res.File()) != "all_images_by_labels.zip" {
		t.Fatalf("unexpected file name %s", res.File())
	}
	f, err := res.Open()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	data, _ := io.ReadAll(f)
	f.Close()
	if string(data) != "outer" {
		t.Fatalf("unexpected content %q", data)
	}

	if err := res.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := os.Stat(res.Path()); !os.IsNotExist(err) {
		t.Fatalf("directory not removed: %v", err)
	}
}

func TestStageInDirFailureRemovesDir(t *testing.T) {
	root := t.TempDir()
	m := NewManager(root)
	boom := errors.New("boom")

	if _, err := m.StageInDir("all-*", "out.zip", func(io.Writer) error { return boom }); err != boom {
		t.Fatalf("expected original error, got %v", err)
	}
	if n := entriesIn(t, root); n != 0 {
		t.Fatalf("directory left behind")
	}
	if m.Active() != 0 {
		t.Fatalf("expected 0 active resources, got %d", m.Active())
	}
}

func TestIsWritable(t *testing.T) {
	root := t.TempDir()
	m := NewManager(filepath.Join(root, "nested"))
	if err := m.IsWritable(); err != nil {
		t.Fatalf("expected writable: %v", err)
	}
	if m.Active() != 0 {
		t.Fatalf("write test leaked a resource")
	}
}
