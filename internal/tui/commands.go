package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Command factories for loop operations

const loopTimeout = 5 * time.Second

// SnapshotCmd captures the current state of every slot
func SnapshotCmd(sess *Session) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loopTimeout)
		defer cancel()

		cells, stats, err := sess.Snapshot(ctx)
		if err != nil {
			return ErrMsg{Err: err, Context: "reading image state"}
		}
		return SnapshotMsg{Cells: cells, Stats: stats}
	}
}

// ShowCmd marks slots visible so their images are requested
func ShowCmd(sess *Session, indices []int) tea.Cmd {
	if len(indices) == 0 {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loopTimeout)
		defer cancel()

		if err := sess.Show(ctx, indices); err != nil {
			return ErrMsg{Err: err, Context: "requesting images"}
		}
		return ShownMsg{Indices: indices}
	}
}

// ReloadCmd retries a failed slot
func ReloadCmd(sess *Session, index int, src string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loopTimeout)
		defer cancel()

		if err := sess.Reload(ctx, index); err != nil {
			return ErrMsg{Err: err, Context: "reloading " + src}
		}
		return ReloadedMsg{Index: index, Src: src}
	}
}
