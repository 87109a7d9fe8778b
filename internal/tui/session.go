package tui

import (
	"context"
	"fmt"
	"log/slog"
	"path"

	"github.com/mmcdole/imgwall/internal/imgmanager"
	"github.com/mmcdole/imgwall/internal/imgwrap"
	"github.com/mmcdole/imgwall/internal/tui/components"
)

// Executor runs a function on the image manager's loop and waits for it.
// loop.Runner implements it.
type Executor interface {
	Do(ctx context.Context, fn func()) error
}

// Session owns one wrap per wall slot. Its exported methods may be called
// from any goroutine; all manager access goes through the Executor.
type Session struct {
	exec    Executor
	manager *imgmanager.Manager
	logger  *slog.Logger

	wraps   []*imgwrap.Wrap
	changes chan struct{}
}

// NewSession creates a wrap for every src. Nothing is requested until Show.
func NewSession(ctx context.Context, exec Executor, m *imgmanager.Manager, srcs []string, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		exec:    exec,
		manager: m,
		logger:  logger,
		changes: make(chan struct{}, 1),
	}

	var buildErr error
	err := exec.Do(ctx, func() {
		for _, src := range srcs {
			w, err := imgwrap.New(m, src, map[string]string{
				"alt":   path.Base(src),
				"title": src,
			})
			if err != nil {
				buildErr = err
				return
			}
			w.OnLoadSuccess(func(*imgwrap.Wrap, *imgmanager.Source) { s.notify() })
			w.OnLoadError(func(_ *imgwrap.Wrap, source *imgmanager.Source) {
				s.logger.Warn("image failed", "src", source.Src(), "error", source.Err())
				s.notify()
			})
			if source := w.Source(); source != nil {
				source.Subscribe(imgmanager.EventWillLoad, func(imgmanager.Event) { s.notify() })
				source.Subscribe(imgmanager.EventProgress, func(imgmanager.Event) { s.notify() })
			}
			s.wraps = append(s.wraps, w)
		}
	})
	if err != nil {
		return nil, err
	}
	if buildErr != nil {
		return nil, fmt.Errorf("failed to create wall: %w", buildErr)
	}
	return s, nil
}

// Changes delivers a value whenever some slot changed since the last
// receive.
func (s *Session) Changes() <-chan struct{} {
	return s.changes
}

// notify is non-blocking; one pending change is enough.
func (s *Session) notify() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

// Len returns the number of slots.
func (s *Session) Len() int { return len(s.wraps) }

// Snapshot captures every slot and the manager counters.
func (s *Session) Snapshot(ctx context.Context) ([]components.Cell, imgmanager.Stats, error) {
	var (
		cells []components.Cell
		stats imgmanager.Stats
	)
	err := s.exec.Do(ctx, func() {
		cells = make([]components.Cell, len(s.wraps))
		for i, w := range s.wraps {
			cells[i] = cellFor(i, w)
		}
		stats = s.manager.Stats()
	})
	return cells, stats, err
}

func cellFor(i int, w *imgwrap.Wrap) components.Cell {
	c := components.Cell{Index: i, Src: w.Src(), Class: w.Class()}
	src := w.Source()
	if src == nil {
		return c
	}
	c.State = src.State().String()
	c.Requested = src.Requested()
	c.Progress, c.HasProgress = src.Progress()
	c.Attempts = src.ErrorCount()
	if src.IsSuccess() {
		c.Attempts++
		info := src.Info()
		c.Format, c.Width, c.Height = info.Format, info.Width, info.Height
	}
	if err := src.Err(); err != nil {
		c.Err = err.Error()
	}
	if clone := w.Clone(); clone != nil {
		c.Shown = clone.Key()
	}
	return c
}

// Show marks the slots at indices visible, which requests their images.
func (s *Session) Show(ctx context.Context, indices []int) error {
	return s.exec.Do(ctx, func() {
		for _, i := range indices {
			if i >= 0 && i < len(s.wraps) && !s.wraps[i].Visible() {
				s.wraps[i].Show()
			}
		}
	})
}

// Reload retries a failed slot.
func (s *Session) Reload(ctx context.Context, index int) error {
	var reloadErr error
	err := s.exec.Do(ctx, func() {
		if index < 0 || index >= len(s.wraps) {
			return
		}
		src := s.wraps[index].Source()
		if src == nil || !src.IsError() {
			return
		}
		reloadErr = src.Reload()
	})
	if err != nil {
		return err
	}
	if reloadErr == nil {
		s.notify()
	}
	return reloadErr
}

// Close destroys every wrap and stops queued loads.
func (s *Session) Close(ctx context.Context) error {
	return s.exec.Do(ctx, func() {
		for _, w := range s.wraps {
			w.Destroy()
		}
		s.manager.Close()
	})
}
