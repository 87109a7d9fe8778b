package tui

import (
	"github.com/mmcdole/imgwall/internal/imgmanager"
	"github.com/mmcdole/imgwall/internal/tui/components"
)

// Message types for the TUI

// ErrMsg represents an error
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// SnapshotMsg carries a fresh view of every slot
type SnapshotMsg struct {
	Cells []components.Cell
	Stats imgmanager.Stats
}

// ChangedMsg signals that some slot changed and a snapshot is due
type ChangedMsg struct{}

// ShownMsg signals that slots were marked visible
type ShownMsg struct {
	Indices []int
}

// ReloadedMsg signals that a failed slot was queued again
type ReloadedMsg struct {
	Index int
	Src   string
}
