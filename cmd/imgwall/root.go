package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mmcdole/imgwall/internal/config"
	"github.com/mmcdole/imgwall/internal/fetch"
	"github.com/mmcdole/imgwall/internal/imgmanager"
	"github.com/mmcdole/imgwall/internal/log"
	"github.com/mmcdole/imgwall/internal/loop"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "imgwall",
	Short:         "imgwall - lazy, rate-limited image loading for the terminal",
	Long:          "imgwall loads image URLs through per-host rules with batching, retries and placeholder swapping, and shows their progress as a wall of tiles.",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	defaults := config.DefaultConfig()
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "config file (default ~/.config/imgwall/config.yaml)")
	flags.Int("max-tries", defaults.Images.MaxTries, "attempts per image before showing the error placeholder")
	flags.Int("batch-size", defaults.Images.BatchSize, "loads started per queue pass (0 = unlimited)")
	flags.Int("delay", defaults.Images.Delay, "queue debounce in milliseconds")
	flags.Bool("lazy", defaults.Images.LazyLoad, "only load images once they scroll into view")
	flags.Duration("timeout", defaults.Fetch.Timeout, "per-request timeout")
	flags.Bool("verify-image", defaults.Fetch.VerifyImage, "decode image headers to confirm the response is an image")
	flags.String("base-url", defaults.Fetch.BaseURL, "base URL for relative sources")
	flags.Int("columns", defaults.UI.GridColumns, "tiles per row")
	flags.String("log-file", defaults.Logging.File, "log file path")
	flags.String("log-level", defaults.Logging.Level, "log level (DEBUG, INFO, WARN, ERROR)")
}

// runtime is the wired image stack shared by subcommands.
type runtime struct {
	cfg       *config.Config
	logger    *slog.Logger
	loop      *loop.Runner
	manager   *imgmanager.Manager
	logCloser io.Closer
	cancel    context.CancelFunc
	done      chan error
}

func newRuntime(cmd *cobra.Command) (*runtime, error) {
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, closer, err := log.SetupLogger(log.Config{File: cfg.Logging.File, Level: cfg.Logging.Level})
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = log.NullLogger()
	}
	slog.SetDefault(logger)
	logger.Info("starting imgwall", "version", Version, "command", cmd.Name())

	ctx, cancel := context.WithCancel(cmd.Context())
	l := loop.NewRunner(logger)
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	transport, err := fetch.NewHTTPTransport(ctx, l, cfg.FetchOptions(), logger)
	if err != nil {
		cancel()
		<-done
		if closer != nil {
			_ = closer.Close()
		}
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	return &runtime{
		cfg:       cfg,
		logger:    logger,
		loop:      l,
		manager:   imgmanager.New(l, transport, cfg.ManagerOptions(), logger),
		logCloser: closer,
		cancel:    cancel,
		done:      done,
	}, nil
}

// Close stops the loop and flushes the log file.
func (r *runtime) Close() {
	r.cancel()
	if err := <-r.done; err != nil && !errors.Is(err, context.Canceled) {
		r.logger.Warn("loop stopped with error", "error", err)
	}
	r.logger.Info("shutting down")
	if r.logCloser != nil {
		_ = r.logCloser.Close()
	}
}
