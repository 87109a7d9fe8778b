package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/mmcdole/imgwall/internal/tui"
)

var viewList string

var viewCmd = &cobra.Command{
	Use:   "view [url...]",
	Short: "Show images as a wall of tiles that load as they scroll into view",
	RunE: func(cmd *cobra.Command, args []string) error {
		srcs, err := readSources(args, viewList, os.Stdin)
		if err != nil {
			return err
		}
		if len(srcs) == 0 {
			return errors.New("no image sources given")
		}

		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		sess, err := tui.NewSession(cmd.Context(), rt.loop, rt.manager, srcs, rt.logger)
		if err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
		defer func() {
			if err := sess.Close(context.WithoutCancel(cmd.Context())); err != nil {
				rt.logger.Warn("failed to close session", "error", err)
			}
		}()

		model := tui.NewModel(sess, rt.cfg.UI.GridColumns, rt.cfg.UI.CellWidth)
		p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))

		rt.logger.Info("starting TUI", "sources", sess.Len())
		if _, err := p.Run(); err != nil {
			rt.logger.Error("TUI error", "error", err)
			return fmt.Errorf("TUI error: %w", err)
		}
		return nil
	},
}

func init() {
	viewCmd.Flags().StringVarP(&viewList, "list", "l", "", "file with one image URL per line (- for stdin)")
	rootCmd.AddCommand(viewCmd)
}
