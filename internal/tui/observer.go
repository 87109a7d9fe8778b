package tui

import tea "github.com/charmbracelet/bubbletea"

// WaitForChangeCmd blocks until the session reports a change. The model
// re-issues it after every ChangedMsg.
func WaitForChangeCmd(changes <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return ChangedMsg{}
	}
}
