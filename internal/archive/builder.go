package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zip"
)

var ErrDuplicateEntry = errors.New("duplicate archive entry")

// Entry is one named member of an archive. Content may itself be a built
// archive.
type Entry struct {
	Name     string
	Content  []byte
	Modified time.Time
}

// Writer writes deflate-compressed zip archives. Entries without content are
// skipped.
type Writer struct {
	zw    *zip.Writer
	names map[string]struct{}
	count int
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{zw: zip.NewWriter(w), names: make(map[string]struct{})}
}

// Add writes e and reports whether it was written.
func (w *Writer) Add(e Entry) (bool, error) {
	if len(e.Content) == 0 {
		return false, nil
	}
	if _, dup := w.names[e.Name]; dup {
		return false, fmt.Errorf("%w: %s", ErrDuplicateEntry, e.Name)
	}
	fw, err := w.zw.CreateHeader(&zip.FileHeader{
		Name:     e.Name,
		Method:   zip.Deflate,
		Modified: e.Modified,
	})
	if err != nil {
		return false, fmt.Errorf("create entry %s: %w", e.Name, err)
	}
	if _, err := fw.Write(e.Content); err != nil {
		return false, fmt.Errorf("write entry %s: %w", e.Name, err)
	}
	w.names[e.Name] = struct{}{}
	w.count++
	return true, nil
}

// Count is the number of entries written so far.
func (w *Writer) Count() int {
	return w.count
}

// Close writes the central directory. It does not close the underlying writer.
func (w *Writer) Close() error {
	return w.zw.Close()
}

// Build writes entries in order as one archive and returns how many were written.
func Build(out io.Writer, entries []Entry) (int, error) {
	w := NewWriter(out)
	for _, e := range entries {
		if _, err := w.Add(e); err != nil {
			return w.Count(), err
		}
	}
	if err := w.Close(); err != nil {
		return w.Count(), fmt.Errorf("finish archive: %w", err)
	}
	return w.Count(), nil
}

// BuildBytes builds an archive in memory.
func BuildBytes(entries []Entry) ([]byte, int, error) {
	var buf bytes.Buffer
	n, err := Build(&buf, entries)
	if err != nil {
		return nil, n, err
	}
	return buf.Bytes(), n, nil
}
