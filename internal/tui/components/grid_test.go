package components

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func testCells(srcs ...string) []Cell {
	cells := make([]Cell, len(srcs))
	for i, src := range srcs {
		cells[i] = Cell{Index: i, Src: src, State: "loading"}
	}
	return cells
}

func numberedCells(n int) []Cell {
	srcs := make([]string, n)
	for i := range srcs {
		srcs[i] = fmt.Sprintf("img/%02d.png", i)
	}
	return testCells(srcs...)
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
}

// newTestGrid has 3 columns and room for 2 rows.
func newTestGrid(cells []Cell) Grid {
	g := NewGrid(3, 20)
	g.SetSize(200, BorderHeight+HeaderLines+2*CellHeight)
	g.SetCells(cells)
	return g
}

func TestVisibleIndicesFollowCursor(t *testing.T) {
	g := newTestGrid(numberedCells(10))

	if got, want := g.VisibleIndices(), []int{0, 1, 2, 3, 4, 5}; !reflect.DeepEqual(got, want) {
		t.Fatalf("VisibleIndices() = %v, want %v", got, want)
	}

	g, _ = g.Update(keyMsg("down"))
	g, _ = g.Update(keyMsg("j"))
	if g.Cursor() != 6 {
		t.Fatalf("Cursor() = %d, want 6", g.Cursor())
	}
	if got, want := g.VisibleIndices(), []int{3, 4, 5, 6, 7, 8}; !reflect.DeepEqual(got, want) {
		t.Errorf("VisibleIndices() = %v, want %v", got, want)
	}

	g, _ = g.Update(keyMsg("G"))
	if got, want := g.VisibleIndices(), []int{6, 7, 8, 9}; !reflect.DeepEqual(got, want) {
		t.Errorf("VisibleIndices() at end = %v, want %v", got, want)
	}

	g, _ = g.Update(keyMsg("l"))
	if g.Cursor() != 9 {
		t.Errorf("Cursor() moved past the last cell: %d", g.Cursor())
	}
	g, _ = g.Update(keyMsg("g"))
	if c, _ := g.Selected(); c.Index != 0 {
		t.Errorf("Selected() after home = %d, want 0", c.Index)
	}
}

func TestColumnsShrinkToWidth(t *testing.T) {
	g := NewGrid(6, 20)
	g.SetSize(2+2*24, 40)
	if g.Columns() != 2 {
		t.Errorf("Columns() = %d, want 2", g.Columns())
	}
}

func TestFilterNarrowsCells(t *testing.T) {
	g := newTestGrid(testCells("img/cat1.png", "img/dog.png", "img/cat2.png", "img/bird.png"))

	g.ToggleFilter()
	if !g.IsFilterTyping() {
		t.Fatal("filter input not focused")
	}
	g, _ = g.Update(keyMsg("cat"))

	got := g.VisibleIndices()
	sort.Ints(got)
	if want := []int{0, 2}; !reflect.DeepEqual(got, want) {
		t.Fatalf("filtered indices = %v, want %v", got, want)
	}
	if c, ok := g.Selected(); !ok || !strings.Contains(c.Src, "cat") {
		t.Errorf("Selected() = %+v, want a cat", c)
	}

	g, _ = g.Update(keyMsg("enter"))
	if g.IsFilterTyping() || !g.IsFiltering() {
		t.Fatal("enter should keep the filter but leave typing mode")
	}

	g, _ = g.Update(keyMsg("esc"))
	if g.IsFiltering() || len(g.VisibleIndices()) != 4 {
		t.Errorf("esc did not clear the filter: %v", g.VisibleIndices())
	}
}

func TestSetCellsKeepsFilter(t *testing.T) {
	g := newTestGrid(testCells("a/cat.png", "a/dog.png"))
	g.ToggleFilter()
	g, _ = g.Update(keyMsg("dog"))

	updated := testCells("a/cat.png", "a/dog.png")
	updated[1].State = "success"
	g.SetCells(updated)

	c, ok := g.Selected()
	if !ok || c.Index != 1 || c.State != "success" {
		t.Errorf("Selected() = %+v, want refreshed dog cell", c)
	}
}

func TestViewRendersStates(t *testing.T) {
	cells := testCells("a/ok.png", "a/bad.png", "a/wait.png")
	cells[0].State, cells[0].Width, cells[0].Height, cells[0].Format = "success", 12, 7, "png"
	cells[1].State, cells[1].Err = "error", "status 404"
	g := newTestGrid(cells)

	out := g.View("*")
	for _, want := range []string{"ok.png", "png 12x7", "error", "404", "waiting", "3 images"} {
		if !strings.Contains(out, want) {
			t.Errorf("View() missing %q:\n%s", want, out)
		}
	}
}

func TestUpdateMovesCursorOnKeysOnly(t *testing.T) {
	g := newTestGrid(numberedCells(6))

	g, _ = g.Update(tea.WindowSizeMsg{Width: 80, Height: 20})
	if g.Cursor() != 0 {
		t.Fatalf("Cursor() after non-key message = %d, want 0", g.Cursor())
	}

	steps := []struct {
		key  tea.KeyMsg
		want int
	}{
		{keyMsg("l"), 1},
		{tea.KeyMsg{Type: tea.KeyRight}, 2},
		{keyMsg("down"), 5},
		{tea.KeyMsg{Type: tea.KeyUp}, 2},
		{keyMsg("h"), 1},
	}
	for _, s := range steps {
		g, _ = g.Update(s.key)
		if g.Cursor() != s.want {
			t.Fatalf("Cursor() after %q = %d, want %d", s.key.String(), g.Cursor(), s.want)
		}
	}
}
