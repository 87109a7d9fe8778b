package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"Error", slog.LevelError},
		{"", slog.LevelInfo},
		{"chatty", slog.LevelInfo},
		{"info+2", slog.LevelInfo + 2},
		{"WARN-1", slog.LevelWarn - 1},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSetupLoggerWritesJSON(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	logger, closer, err := SetupLogger(Config{File: "~/logs/imgwall.log", Level: "warn"})
	if err != nil {
		t.Fatalf("SetupLogger returned error: %v", err)
	}
	logger.Info("dropped")
	logger.Warn("kept", "src", "a.jpg")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(home, "logs", "imgwall.log"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	lines := bytes.Split(bytes.TrimSpace(data), []byte("\n"))
	if len(lines) != 1 {
		t.Fatalf("got %d log lines, want 1: %s", len(lines), data)
	}
	var rec map[string]any
	if err := json.Unmarshal(lines[0], &rec); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if rec["msg"] != "kept" || rec["src"] != "a.jpg" || rec["app"] != "imgwall" {
		t.Fatalf("record = %v", rec)
	}
}

func TestNewConsoleFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsole(&buf, "error")
	logger.Warn("quiet")
	if buf.Len() != 0 {
		t.Fatalf("console wrote %q below its level", buf.String())
	}
}

func TestNullLoggerIsDisabled(t *testing.T) {
	if NullLogger().Enabled(context.Background(), slog.LevelError) {
		t.Fatal("NullLogger reports error level enabled")
	}
}
