package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
)

// Color palette
var (
	Amber      = lipgloss.Color("#E5A00D")
	SlateDark  = lipgloss.Color("#1F2937")
	SlateLight = lipgloss.Color("#374151")
	DimGray    = lipgloss.Color("#6B7280")
	LightGray  = lipgloss.Color("#9CA3AF")
	White      = lipgloss.Color("#F9FAFB")
	Green      = lipgloss.Color("#10B981")
	Red        = lipgloss.Color("#EF4444")
	Blue       = lipgloss.Color("#3B82F6")
)

// Borders
var (
	ActiveBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Amber)

	InactiveBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(DimGray)
)

// Text styles
var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(White).
			Bold(true)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(LightGray)

	DimStyle = lipgloss.NewStyle().
			Foreground(DimGray)

	AccentStyle = lipgloss.NewStyle().
			Foreground(Amber)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Red)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(Green)

	LoadingStyle = lipgloss.NewStyle().
			Foreground(Blue)
)

// Raw state characters (unstyled)
const (
	LoadingChar = "◐"
	ErrorChar   = "✗"
	SuccessChar = "✓"
	IdleChar    = "○"
)

// Grid cell styles
var (
	CellStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(DimGray).
			Padding(0, 1)

	CellSelectedStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(Amber).
				Padding(0, 1)
)

// Spinner style
var SpinnerStyle = lipgloss.NewStyle().Foreground(Amber)

// Filter styles
var (
	FilterStyle = lipgloss.NewStyle().
			Foreground(Amber)

	FilterPromptStyle = lipgloss.NewStyle().
				Foreground(Amber).
				Bold(true)
)

// Status bar styles
var (
	StatusBarStyle = lipgloss.NewStyle().
			Foreground(LightGray).
			Background(SlateDark).
			Padding(0, 1)

	BadgeStyle = lipgloss.NewStyle().
			Foreground(White).
			Background(Amber).
			Padding(0, 1)
)

// Progress bar styles
var (
	ProgressFullStyle = lipgloss.NewStyle().
				Foreground(Amber)

	ProgressEmptyStyle = lipgloss.NewStyle().
				Foreground(DimGray)
)

// StateStyle picks the text style for an image state name
// ("loading", "error", "success").
func StateStyle(state string) lipgloss.Style {
	switch state {
	case "loading":
		return LoadingStyle
	case "error":
		return ErrorStyle
	case "success":
		return SuccessStyle
	default:
		return DimStyle
	}
}

// StateIndicator renders the state character in its color.
func StateIndicator(state string, requested bool) string {
	switch {
	case state == "error":
		return ErrorStyle.Render(ErrorChar)
	case state == "success":
		return SuccessStyle.Render(SuccessChar)
	case !requested:
		return DimStyle.Render(IdleChar)
	default:
		return LoadingStyle.Render(LoadingChar)
	}
}

// Truncate truncates a string to the given width with ellipsis
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	r := []rune(s)
	if width <= 3 {
		return string(r[:min(width, len(r))])
	}
	return string(r[:min(width-3, len(r))]) + "..."
}

// TruncateLeft keeps the end of s, which is the informative part of a URL.
func TruncateLeft(s string, width int) string {
	r := []rune(s)
	if len(r) <= width || width <= 3 {
		return Truncate(s, width)
	}
	return "..." + string(r[len(r)-width+3:])
}

// RenderProgressBar renders a progress bar
func RenderProgressBar(percent float64, width int) string {
	if width < 3 {
		return ""
	}

	filled := int(float64(width) * percent / 100)
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	full := ProgressFullStyle.Foreground(ProgressColor(percent))
	return full.Render(strings.Repeat("█", filled)) +
		ProgressEmptyStyle.Render(strings.Repeat("░", width-filled))
}

// ProgressColor blends from the loading color to the success color.
func ProgressColor(percent float64) lipgloss.Color {
	from, err := colorful.Hex(string(Amber))
	if err != nil {
		return Amber
	}
	to, err := colorful.Hex(string(Green))
	if err != nil {
		return Amber
	}
	t := min(max(percent/100, 0), 1)
	return lipgloss.Color(from.BlendLab(to, t).Clamped().Hex())
}
