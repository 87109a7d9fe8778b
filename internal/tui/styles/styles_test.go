package styles

import (
	"strings"
	"testing"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"much too long", 8, "much ..."},
		{"abc", 2, "ab"},
		{"anything", 0, ""},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}

func TestTruncateLeft(t *testing.T) {
	got := TruncateLeft("http://example.com/images/cat.png", 12)
	if got != "...s/cat.png" {
		t.Errorf("TruncateLeft = %q, want ...s/cat.png", got)
	}
}

func TestRenderProgressBar(t *testing.T) {
	bar := RenderProgressBar(50, 10)
	if strings.Count(bar, "█") != 5 || strings.Count(bar, "░") != 5 {
		t.Errorf("RenderProgressBar(50, 10) = %q", bar)
	}
	if RenderProgressBar(50, 2) != "" {
		t.Error("narrow bar should render empty")
	}
	if strings.Count(RenderProgressBar(150, 4), "█") != 4 {
		t.Error("overflowing percent not clamped")
	}
}

func TestProgressColor(t *testing.T) {
	tests := []struct {
		percent float64
		want    string
	}{
		{0, "#e5a00d"},
		{-20, "#e5a00d"},
		{100, "#10b981"},
		{250, "#10b981"},
	}
	for _, tt := range tests {
		if got := string(ProgressColor(tt.percent)); !strings.EqualFold(got, tt.want) {
			t.Errorf("ProgressColor(%v) = %q, want %q", tt.percent, got, tt.want)
		}
	}
	if mid := ProgressColor(50); mid == ProgressColor(0) || mid == ProgressColor(100) {
		t.Errorf("ProgressColor(50) = %q, want a blend", mid)
	}
}
