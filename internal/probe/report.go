package probe

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"

	"github.com/mmcdole/imgwall/internal/tui/styles"
)

// Render writes the report. Styled output is meant for a terminal; plain
// output is tab-separated, one source per line.
func Render(w io.Writer, r Report, styled bool) error {
	if !styled {
		return renderPlain(w, r)
	}
	return renderStyled(w, r)
}

func renderPlain(w io.Writer, r Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STATE\tTRIES\tSIZE\tSRC\tERROR")
	for _, res := range r.Results {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", res.State, res.Attempts, size(res), res.Src, res.Err)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, summary(r))
	return err
}

func renderStyled(w io.Writer, r Report) error {
	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render("imgwall probe") + "\n\n")

	srcWidth := 0
	for _, res := range r.Results {
		srcWidth = max(srcWidth, lipgloss.Width(res.Src))
	}
	srcWidth = min(srcWidth, 60)

	for _, res := range r.Results {
		line := styles.StateIndicator(res.State, true) + " " +
			lipgloss.NewStyle().Width(srcWidth).Render(styles.TruncateLeft(res.Src, srcWidth)) + "  " +
			styles.StateStyle(res.State).Render(fmt.Sprintf("%-7s", res.State))
		if s := size(res); s != "-" {
			line += "  " + styles.DimStyle.Render(s)
		}
		if res.Attempts > 1 {
			line += "  " + styles.AccentStyle.Render(fmt.Sprintf("%d tries", res.Attempts))
		}
		if res.Err != "" {
			line += "  " + styles.ErrorStyle.Render(res.Err)
		}
		b.WriteString(line + "\n")
	}

	b.WriteString("\n" + styles.SubtitleStyle.Render(summary(r)) + "\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func size(res Result) string {
	if res.Info.Width == 0 && res.Info.Height == 0 {
		return "-"
	}
	if res.Info.Format == "" {
		return fmt.Sprintf("%dx%d", res.Info.Width, res.Info.Height)
	}
	return fmt.Sprintf("%s %dx%d", res.Info.Format, res.Info.Width, res.Info.Height)
}

func summary(r Report) string {
	s := r.Stats
	return fmt.Sprintf("%d sources, %d failed, %d clone hits, %d used / %d free clones",
		s.Sources, r.Failed(), s.Hits, s.UsedClones, s.FreeClones)
}
