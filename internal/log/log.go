// Package log builds the structured logger shared by every imgwall component.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Config selects where logs go and how verbose they are.
type Config struct {
	File  string
	Level string
}

// SetupLogger returns a JSON logger appending to cfg.File. The caller closes
// the returned file on shutdown.
func SetupLogger(cfg Config) (*slog.Logger, io.Closer, error) {
	f, err := openLogFile(cfg.File)
	if err != nil {
		return nil, nil, err
	}
	handler := slog.NewJSONHandler(f, &slog.HandlerOptions{Level: ParseLevel(cfg.Level)})
	return slog.New(handler).With("app", "imgwall"), f, nil
}

// NewConsole returns a text logger for headless commands writing to w.
func NewConsole(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

func openLogFile(path string) (*os.File, error) {
	path, err := expandHome(path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir %s: %w", filepath.Dir(path), err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

func expandHome(path string) (string, error) {
	rest, ok := strings.CutPrefix(path, "~")
	if !ok {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve ~ in log path: %w", err)
	}
	return filepath.Join(home, rest), nil
}

// ParseLevel reads names like "debug", "WARN" or "info+2". "warning" is
// accepted as an alias; anything unrecognized falls back to info.
func ParseLevel(level string) slog.Level {
	if strings.EqualFold(level, "warning") {
		return slog.LevelWarn
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// NullLogger drops every record. Used when the log file cannot be opened.
func NullLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
