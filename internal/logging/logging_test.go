package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, expect := range cases {
		if got := ParseLevel(in); got != expect {
			t.Fatalf("level %q => %v, expected %v", in, got, expect)
		}
	}
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, closer, err := New("info", path)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Info("image uploaded", "id", 7)
	logger.Debug("hidden")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "image uploaded") || !strings.Contains(string(data), "id=7") {
		t.Fatalf("log file missing record: %s", data)
	}
	if strings.Contains(string(data), "hidden") {
		t.Fatalf("debug record written at info level")
	}
}
