package components

import (
	"fmt"
	"path"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/mmcdole/imgwall/internal/tui/styles"
)

// Cell is a render snapshot of one wall slot.
type Cell struct {
	Index       int
	Src         string
	State       string
	Class       string
	Requested   bool
	Progress    float64
	HasProgress bool
	Shown       string // key of the mounted clone
	Format      string
	Width       int
	Height      int
	Attempts    int
	Err         string
}

// Layout constants for the wall
const (
	// Border adds 1 char on each side
	BorderWidth  = 2
	BorderHeight = 2

	// Each cell is a bordered box with three content lines
	CellLines  = 3
	CellHeight = CellLines + BorderHeight

	// Header line plus filter bar
	HeaderLines = 1

	MinCellWidth = 12
)

// Grid is the image wall: cells laid out in rows with a fuzzy filter
type Grid struct {
	cells []Cell

	// Selection; cursor indexes the filtered list, offset is a row
	cursor  int
	offset  int
	columns int
	maxRows int

	// Dimensions
	width     int
	height    int
	cellWidth int
	focused   bool

	// Filter state
	filterActive bool
	filterInput  textinput.Model
	filterQuery  string
	filteredIdx  []int // indices into cells
}

// NewGrid creates a new wall grid
func NewGrid(columns, cellWidth int) Grid {
	ti := textinput.New()
	ti.Placeholder = "type to filter..."
	ti.Prompt = "/ "
	ti.PromptStyle = styles.FilterPromptStyle
	ti.TextStyle = styles.FilterStyle

	if columns < 1 {
		columns = 1
	}
	if cellWidth < MinCellWidth {
		cellWidth = MinCellWidth
	}
	return Grid{
		filterInput: ti,
		columns:     columns,
		cellWidth:   cellWidth,
		maxRows:     1,
		focused:     true,
	}
}

// SetCells replaces the cell snapshots, keeping cursor and filter
func (g *Grid) SetCells(cells []Cell) {
	g.cells = cells
	if g.filterQuery != "" {
		g.refilter()
	}
	g.clampCursor()
}

// Cells returns the current snapshots
func (g Grid) Cells() []Cell {
	return g.cells
}

// SetSize updates the component dimensions
func (g *Grid) SetSize(width, height int) {
	g.width = width
	g.height = height
	g.recalcLayout()
}

// SetFocused sets the focus state
func (g *Grid) SetFocused(focused bool) {
	g.focused = focused
}

// Columns returns the number of cells per row
func (g Grid) Columns() int {
	return g.columns
}

// recalcLayout fits columns to the width and rows to the height
func (g *Grid) recalcLayout() {
	boxWidth := g.cellWidth + BorderWidth + 2
	if fit := (g.width - BorderWidth) / boxWidth; fit >= 1 && fit < g.columns {
		g.columns = fit
	}

	interiorHeight := g.height - BorderHeight - HeaderLines
	if g.filterActive {
		interiorHeight--
	}
	g.maxRows = interiorHeight / CellHeight
	if g.maxRows < 1 {
		g.maxRows = 1
	}
	g.ensureVisible()
}

// Cursor returns the cursor position within the filtered list
func (g Grid) Cursor() int {
	return g.cursor
}

// Selected returns the cell under the cursor
func (g Grid) Selected() (Cell, bool) {
	if g.itemCount() == 0 {
		return Cell{}, false
	}
	return g.cells[g.mapIndex(g.cursor)], true
}

// VisibleIndices returns the cell indices currently on screen
func (g Grid) VisibleIndices() []int {
	start := g.offset * g.columns
	end := start + g.maxRows*g.columns
	if count := g.itemCount(); end > count {
		end = count
	}
	var out []int
	for i := start; i < end; i++ {
		out = append(out, g.cells[g.mapIndex(i)].Index)
	}
	return out
}

// ensureVisible scrolls so the cursor row is on screen
func (g *Grid) ensureVisible() {
	row := g.cursor / g.columns
	if row < g.offset {
		g.offset = row
	}
	if row >= g.offset+g.maxRows {
		g.offset = row - g.maxRows + 1
	}
}

func (g *Grid) clampCursor() {
	count := g.itemCount()
	if g.cursor >= count {
		g.cursor = count - 1
	}
	if g.cursor < 0 {
		g.cursor = 0
	}
	g.ensureVisible()
}

// ToggleFilter activates the filter input
func (g *Grid) ToggleFilter() {
	g.filterActive = true
	g.filterInput.Focus()
	g.recalcLayout()
}

// IsFiltering returns true if filter mode is active
func (g Grid) IsFiltering() bool {
	return g.filterActive
}

// IsFilterTyping returns true if filter is active AND input is focused
func (g Grid) IsFilterTyping() bool {
	return g.filterActive && g.filterInput.Focused()
}

// ClearFilter deactivates the filter and shows all cells
func (g *Grid) ClearFilter() {
	g.filterActive = false
	g.filterQuery = ""
	g.filteredIdx = nil
	g.filterInput.SetValue("")
	g.filterInput.Blur()
	g.recalcLayout()
}

// applyFilter filters cells by the current query and resets the cursor
func (g *Grid) applyFilter() {
	g.filterQuery = g.filterInput.Value()
	g.refilter()
	g.cursor = 0
	g.offset = 0
}

func (g *Grid) refilter() {
	if g.filterQuery == "" {
		g.filteredIdx = nil
		return
	}

	srcs := make([]string, len(g.cells))
	for i, c := range g.cells {
		srcs[i] = strings.ToLower(c.Src)
	}
	matches := fuzzy.Find(strings.ToLower(g.filterQuery), srcs)

	g.filteredIdx = make([]int, len(matches))
	for i, match := range matches {
		g.filteredIdx[i] = match.Index
	}
}

// itemCount returns the number of cells after filtering
func (g Grid) itemCount() int {
	if g.filteredIdx != nil {
		return len(g.filteredIdx)
	}
	return len(g.cells)
}

// mapIndex maps a cursor position to the index in cells
func (g Grid) mapIndex(i int) int {
	if g.filteredIdx != nil && i < len(g.filteredIdx) {
		return g.filteredIdx[i]
	}
	return i
}

// Update handles key messages
func (g Grid) Update(msg tea.Msg) (Grid, tea.Cmd) {
	if !g.focused {
		return g, nil
	}

	if g.IsFilterTyping() {
		if msg, ok := msg.(tea.KeyMsg); ok {
			switch {
			case key.Matches(msg, GridKeys.Escape):
				g.ClearFilter()
				return g, nil
			case key.Matches(msg, GridKeys.Enter):
				g.filterInput.Blur()
				return g, nil
			case msg.String() == "backspace" && g.filterInput.Value() == "":
				g.ClearFilter()
				return g, nil
			}
		}

		var cmd tea.Cmd
		g.filterInput, cmd = g.filterInput.Update(msg)
		g.applyFilter()
		return g, cmd
	}

	keyPress, ok := msg.(tea.KeyMsg)
	if !ok {
		return g, nil
	}

	if g.filterActive {
		switch {
		case key.Matches(keyPress, GridKeys.Escape):
			g.ClearFilter()
			return g, nil
		case key.Matches(keyPress, GridKeys.Filter):
			g.filterInput.Focus()
			return g, nil
		}
	}

	count := g.itemCount()
	if count == 0 {
		return g, nil
	}

	switch {
	case key.Matches(keyPress, GridKeys.Right):
		if g.cursor < count-1 {
			g.cursor++
		}
	case key.Matches(keyPress, GridKeys.Left):
		if g.cursor > 0 {
			g.cursor--
		}
	case key.Matches(keyPress, GridKeys.Down):
		if g.cursor+g.columns < count {
			g.cursor += g.columns
		}
	case key.Matches(keyPress, GridKeys.Up):
		if g.cursor-g.columns >= 0 {
			g.cursor -= g.columns
		}
	case key.Matches(keyPress, GridKeys.Home):
		g.cursor = 0
	case key.Matches(keyPress, GridKeys.End):
		g.cursor = count - 1
	case key.Matches(keyPress, GridKeys.HalfDown):
		g.cursor += g.columns * max(g.maxRows/2, 1)
	case key.Matches(keyPress, GridKeys.HalfUp):
		g.cursor -= g.columns * max(g.maxRows/2, 1)
	}
	g.clampCursor()
	return g, nil
}

// View renders the wall. spin is the current spinner frame for loading cells.
func (g Grid) View(spin string) string {
	style := styles.InactiveBorder
	if g.focused {
		style = styles.ActiveBorder
	}
	frameW, frameH := style.GetFrameSize()

	return style.
		Width(max(g.width-frameW, 0)).
		Height(max(g.height-frameH, 0)).
		Render(g.renderRows(spin))
}

func (g Grid) renderRows(spin string) string {
	count := g.itemCount()
	header := styles.DimStyle.Render(fmt.Sprintf("%d images", len(g.cells)))
	if g.offset > 0 {
		header += styles.DimStyle.Render("  ↑ more")
	}

	if count == 0 {
		empty := styles.DimStyle.Render("No images")
		if g.filterQuery != "" {
			empty = styles.DimStyle.Render("No matches")
		}
		return g.withFilterBar(header + "\n" + empty)
	}

	var rows []string
	for r := g.offset; r < g.offset+g.maxRows; r++ {
		start := r * g.columns
		if start >= count {
			break
		}
		end := min(start+g.columns, count)

		boxes := make([]string, 0, end-start)
		for i := start; i < end; i++ {
			boxes = append(boxes, g.renderCell(g.cells[g.mapIndex(i)], i == g.cursor, spin))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
	}

	lastShown := min((g.offset+g.maxRows)*g.columns, count)
	if lastShown < count {
		header += styles.DimStyle.Render("  ↓ more")
	}
	return g.withFilterBar(header + "\n" + strings.Join(rows, "\n"))
}

func (g Grid) withFilterBar(content string) string {
	if !g.filterActive {
		return content
	}
	bar := g.filterInput.View()
	if g.filterQuery != "" {
		bar += styles.DimStyle.Render(fmt.Sprintf(" [%d/%d]", g.itemCount(), len(g.cells)))
	}
	return content + "\n" + bar
}

// renderCell draws one bordered cell: name, status line, detail line
func (g Grid) renderCell(c Cell, selected bool, spin string) string {
	style := styles.CellStyle
	if selected {
		style = styles.CellSelectedStyle
	}
	w := g.cellWidth

	name := styles.StateIndicator(c.State, c.Requested) + " " + styles.Truncate(path.Base(c.Src), w-2)

	var status string
	switch {
	case c.State == "loading" && c.Requested && c.HasProgress:
		status = styles.RenderProgressBar(c.Progress, w)
	case c.State == "loading" && c.Requested:
		status = spin + styles.LoadingStyle.Render(" loading")
	case c.State == "loading":
		status = styles.DimStyle.Render("waiting")
	default:
		status = styles.StateStyle(c.State).Render(c.State)
	}

	var detail string
	switch {
	case c.Err != "" && c.State == "error":
		detail = styles.ErrorStyle.Render(styles.Truncate(c.Err, w))
	case c.Width > 0:
		detail = styles.DimStyle.Render(styles.Truncate(fmt.Sprintf("%s %dx%d", c.Format, c.Width, c.Height), w))
	default:
		detail = styles.DimStyle.Render(styles.TruncateLeft(c.Shown, w))
	}

	return style.Width(w + 2).Render(name + "\n" + status + "\n" + detail)
}
