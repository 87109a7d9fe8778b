package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mmcdole/imgwall/internal/probe"
)

var (
	probeList   string
	probeFilter string
	probeWait   time.Duration
)

var probeCmd = &cobra.Command{
	Use:   "probe [url...]",
	Short: "Load every image headlessly and report the outcome",
	RunE: func(cmd *cobra.Command, args []string) error {
		srcs, err := readSources(args, probeList, os.Stdin)
		if err != nil {
			return err
		}
		srcs = probe.Filter(srcs, probeFilter)

		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		ctx := cmd.Context()
		if probeWait > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, probeWait)
			defer cancel()
		}

		report, err := probe.Run(ctx, rt.loop, rt.manager, srcs)
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		timedOut := err != nil

		styled := term.IsTerminal(int(os.Stdout.Fd()))
		if err := probe.Render(os.Stdout, report, styled); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}

		switch {
		case timedOut:
			return fmt.Errorf("probe timed out after %s", probeWait)
		case report.Failed() > 0:
			return fmt.Errorf("%d of %d images failed to load", report.Failed(), len(report.Results))
		}
		return nil
	},
}

func init() {
	probeCmd.Flags().StringVarP(&probeList, "list", "l", "", "file with one image URL per line (- for stdin)")
	probeCmd.Flags().StringVarP(&probeFilter, "filter", "f", "", "only probe sources fuzzily matching this text")
	probeCmd.Flags().DurationVarP(&probeWait, "wait", "w", 0, "give up after this long (0 waits for every image)")
	rootCmd.AddCommand(probeCmd)
}
