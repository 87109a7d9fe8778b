// Package probe loads a set of images headlessly and reports how each one
// fared.
package probe

import (
	"context"
	"errors"
	"fmt"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/mmcdole/imgwall/internal/fetch"
	"github.com/mmcdole/imgwall/internal/imgmanager"
)

// ErrNoSources indicates there was nothing to probe
var ErrNoSources = errors.New("probe: no sources")

// Executor runs a function on the image manager's loop and waits for it.
type Executor interface {
	Do(ctx context.Context, fn func()) error
}

// Result is the outcome for one source.
type Result struct {
	Src      string
	State    string
	Rule     string
	Attempts int
	Info     fetch.Info
	Err      string
}

// Report is the outcome of a probe run.
type Report struct {
	Results []Result
	Stats   imgmanager.Stats
}

// Failed returns how many sources ended in error.
func (r Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.State == imgmanager.StateError.String() {
			n++
		}
	}
	return n
}

// Filter keeps the sources that fuzzily contain query, ignoring case. An
// empty query keeps everything.
func Filter(srcs []string, query string) []string {
	if query == "" {
		return srcs
	}
	return fuzzy.FindFold(query, srcs)
}

// Dedupe drops repeated sources, keeping first occurrences.
func Dedupe(srcs []string) []string {
	seen := make(map[string]bool, len(srcs))
	out := srcs[:0:0]
	for _, s := range srcs {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// Run requests every source and waits until all are ready or ctx ends.
// Sources still loading when ctx ends are reported as loading.
func Run(ctx context.Context, exec Executor, m *imgmanager.Manager, srcs []string) (Report, error) {
	srcs = Dedupe(srcs)
	if len(srcs) == 0 {
		return Report{}, ErrNoSources
	}

	done := make(chan struct{})
	var sources []*imgmanager.Source
	err := exec.Do(ctx, func() {
		remaining := len(srcs)
		finish := func() {
			remaining--
			if remaining == 0 {
				close(done)
			}
		}
		for _, src := range srcs {
			s := m.SourceFor(src)
			sources = append(sources, s)
			if s.IsReady() {
				finish()
				continue
			}
			s.Once(imgmanager.EventReady, func(imgmanager.Event) { finish() })
			s.Request()
		}
	})
	if err != nil {
		return Report{}, fmt.Errorf("failed to start probe: %w", err)
	}

	var waitErr error
	select {
	case <-done:
	case <-ctx.Done():
		waitErr = ctx.Err()
	}

	// Collect on a fresh context so a timed-out probe still reports.
	var report Report
	err = exec.Do(context.WithoutCancel(ctx), func() {
		for _, s := range sources {
			report.Results = append(report.Results, resultFor(s))
		}
		report.Stats = m.Stats()
	})
	if err != nil {
		return report, fmt.Errorf("failed to collect results: %w", err)
	}
	return report, waitErr
}

func resultFor(s *imgmanager.Source) Result {
	r := Result{
		Src:      s.Src(),
		State:    s.State().String(),
		Rule:     s.Rule().String(),
		Attempts: s.ErrorCount(),
	}
	if s.IsSuccess() {
		r.Attempts++
		r.Info = s.Info()
	}
	if err := s.Err(); err != nil {
		r.Err = err.Error()
	}
	return r
}
