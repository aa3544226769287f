package archive

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
)

func readArchive(t *testing.T, data []byte) ([]string, map[string][]byte) {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	var names []string
	contents := map[string][]byte{}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read %s: %v", f.Name, err)
		}
		names = append(names, f.Name)
		contents[f.Name] = b
	}
	return names, contents
}

func TestBuildWritesEntriesInOrder(t *testing.T) {
	mod := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	data, n, err := BuildBytes([]Entry{
		{Name: "b.jpg", Content: []byte("second"), Modified: mod},
		{Name: "a.jpg", Content: []byte("first"), Modified: mod},
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 entries, got %d", n)
	}
	names, contents := readArchive(t, data)
	if len(names) != 2 || names[0] != "b.jpg" || names[1] != "a.jpg" {
		t.Fatalf("unexpected order %v", names)
	}
	if string(contents["a.jpg"]) != "first" {
		t.Fatalf("unexpected content %q", contents["a.jpg"])
	}
}

func TestBuildSkipsEmptyContent(t *testing.T) {
	data, n, err := BuildBytes([]Entry{
		{Name: "empty.jpg"},
		{Name: "zero.jpg", Content: []byte{}},
		{Name: "ok.jpg", Content: []byte("x")},
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 entry, got %d", n)
	}
	names, _ := readArchive(t, data)
	if len(names) != 1 || names[0] != "ok.jpg" {
		t.Fatalf("unexpected entries %v", names)
	}
}

func TestBuildRejectsDuplicateNames(t *testing.T) {
	_, _, err := BuildBytes([]Entry{
		{Name: "a.jpg", Content: []byte("1")},
		{Name: "a.jpg", Content: []byte("2")},
	})
	if !errors.Is(err, ErrDuplicateEntry) {
		t.Fatalf("expected ErrDuplicateEntry, got %v", err)
	}
}

func TestBuildNestedArchive(t *testing.T) {
	inner, _, err := BuildBytes([]Entry{{Name: "20240115_090000_1.jpg", Content: []byte("img")}})
	if err != nil {
		t.Fatalf("build inner: %v", err)
	}
	outer, _, err := BuildBytes([]Entry{{Name: LabelArchiveName("cat"), Content: inner}})
	if err != nil {
		t.Fatalf("build outer: %v", err)
	}
	names, contents := readArchive(t, outer)
	if len(names) != 1 || names[0] != "cat.zip" {
		t.Fatalf("unexpected outer entries %v", names)
	}
	innerNames, innerContents := readArchive(t, contents["cat.zip"])
	if len(innerNames) != 1 || string(innerContents["20240115_090000_1.jpg"]) != "img" {
		t.Fatalf("unexpected inner archive %v", innerNames)
	}
}

func TestBuildDeterministic(t *testing.T) {
	entries := []Entry{
		{Name: "cat/090000_1.jpg", Content: bytes.Repeat([]byte("abc"), 500), Modified: time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)},
		{Name: "cat/103000_2.jpg", Content: []byte("def"), Modified: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)},
	}
	first, _, err := BuildBytes(entries)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	second, _, err := BuildBytes(entries)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("identical input produced different archives")
	}
}

func TestBuildEmptyArchiveIsValid(t *testing.T) {
	data, n, err := BuildBytes(nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no entries, got %d", n)
	}
	names, _ := readArchive(t, data)
	if len(names) != 0 {
		t.Fatalf("unexpected entries %v", names)
	}
}
