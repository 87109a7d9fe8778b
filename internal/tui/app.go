package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mmcdole/imgwall/internal/imgmanager"
	"github.com/mmcdole/imgwall/internal/tui/components"
	"github.com/mmcdole/imgwall/internal/tui/styles"
)

// ChromeHeight is the status bar below the wall
const ChromeHeight = 1

// Model is the main Bubble Tea model for the image wall
type Model struct {
	Ready bool

	Session *Session

	// UI Components
	Grid    components.Grid
	Spinner spinner.Model
	Help    help.Model

	// Data
	Stats imgmanager.Stats

	// Dimensions
	Width  int
	Height int

	// UI state
	StatusMsg   string
	StatusIsErr bool
	ShowHelp    bool

	// Slots already marked visible; never un-shown
	shown map[int]bool
}

// NewModel creates a new application model
func NewModel(sess *Session, columns, cellWidth int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.SpinnerStyle

	h := help.New()
	h.Styles.ShortKey = styles.AccentStyle
	h.Styles.FullKey = styles.AccentStyle

	return Model{
		Session: sess,
		Grid:    components.NewGrid(columns, cellWidth),
		Spinner: sp,
		Help:    h,
		shown:   make(map[int]bool),
	}
}

// Init initializes the application
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		SnapshotCmd(m.Session),
		WaitForChangeCmd(m.Session.Changes()),
		m.Spinner.Tick,
	)
}

// Update handles all messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Ready = true
		m.updateLayout()
		return m, m.showVisible()

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case SnapshotMsg:
		m.Grid.SetCells(msg.Cells)
		m.Stats = msg.Stats
		return m, m.showVisible()

	case ChangedMsg:
		return m, tea.Batch(
			SnapshotCmd(m.Session),
			WaitForChangeCmd(m.Session.Changes()),
		)

	case ShownMsg:
		return m, SnapshotCmd(m.Session)

	case ReloadedMsg:
		m.StatusMsg = "Reloading " + msg.Src
		m.StatusIsErr = false
		return m, nil

	case ErrMsg:
		m.StatusMsg = msg.Error()
		m.StatusIsErr = true
		return m, nil
	}
	return m, nil
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// While typing a filter every key belongs to the input
	if m.Grid.IsFilterTyping() {
		var cmd tea.Cmd
		m.Grid, cmd = m.Grid.Update(msg)
		return m, tea.Batch(cmd, m.showVisible())
	}

	switch {
	case key.Matches(msg, Keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, Keys.Help):
		m.ShowHelp = !m.ShowHelp
		m.Help.ShowAll = m.ShowHelp
		m.updateLayout()
		return m, m.showVisible()

	case key.Matches(msg, Keys.Filter) && !m.Grid.IsFiltering():
		m.Grid.ToggleFilter()
		return m, nil

	case key.Matches(msg, Keys.Reload):
		cell, ok := m.Grid.Selected()
		if !ok || cell.State != "error" {
			m.StatusMsg = "Nothing to reload"
			m.StatusIsErr = false
			return m, nil
		}
		return m, ReloadCmd(m.Session, cell.Index, cell.Src)
	}

	var cmd tea.Cmd
	m.Grid, cmd = m.Grid.Update(msg)
	return m, tea.Batch(cmd, m.showVisible())
}

// updateLayout sizes the grid to the window minus chrome
func (m *Model) updateLayout() {
	chrome := ChromeHeight
	if m.ShowHelp {
		chrome += lipgloss.Height(m.Help.View(Keys))
	}
	m.Grid.SetSize(m.Width, m.Height-chrome)
}

// showVisible requests slots that scrolled into view
func (m Model) showVisible() tea.Cmd {
	if !m.Ready {
		return nil
	}
	var fresh []int
	for _, i := range m.Grid.VisibleIndices() {
		if !m.shown[i] {
			m.shown[i] = true
			fresh = append(fresh, i)
		}
	}
	return ShowCmd(m.Session, fresh)
}

// View renders the application
func (m Model) View() string {
	if !m.Ready {
		return "Loading..."
	}

	view := m.Grid.View(m.Spinner.View()) + "\n" + m.renderStatusBar()
	if m.ShowHelp {
		view += "\n" + m.Help.View(Keys)
	}
	return view
}

func (m Model) renderStatusBar() string {
	s := m.Stats
	counts := fmt.Sprintf("sources %d  clones %d used / %d free  hits %d  errors %d",
		s.Sources, s.UsedClones, s.FreeClones, s.Hits, s.Errors)

	left := styles.BadgeStyle.Render("imgwall")
	if cell, ok := m.Grid.Selected(); ok {
		left += " " + styles.SubtitleStyle.Render(styles.TruncateLeft(cell.Src, max(m.Width/3, 10)))
	}

	right := styles.DimStyle.Render(counts)
	if m.StatusMsg != "" {
		style := styles.SubtitleStyle
		if m.StatusIsErr {
			style = styles.ErrorStyle
		}
		right = style.Render(m.StatusMsg) + "  " + right
	}
	if !m.ShowHelp {
		right += "  " + m.Help.View(Keys)
	}

	gap := m.Width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return styles.StatusBarStyle.Width(max(m.Width, 0)).Render(left + lipgloss.NewStyle().Width(gap).Render("") + right)
}
