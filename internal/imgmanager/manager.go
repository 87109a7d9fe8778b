// Package imgmanager schedules image loads through rate-limited rules and
// recycles the image elements that display them.
//
// A Manager owns one Source per distinct src string, the Rules those sources
// are scheduled through, and the Pool their clones come from. Everything in
// this package runs on a single loop.Loop; none of it is safe to touch from
// another goroutine.
package imgmanager

import (
	"log/slog"
	"sort"

	"github.com/mmcdole/imgwall/internal/fetch"
	"github.com/mmcdole/imgwall/internal/loop"
)

// Stats is a snapshot of the manager's counters.
type Stats struct {
	Hits       int // clones handed out
	Errors     int // sources whose retries were exhausted
	UsedClones int
	FreeClones int
	Sources    int
}

// Manager is the registry of rules and sources.
type Manager struct {
	loop      loop.Loop
	transport fetch.Transport
	opts      Options
	logger    *slog.Logger

	rules   []*Rule
	sources map[string]*Source
	pool    *Pool
	errors  int
}

// New creates a manager. Rules are built from opts.Rules in order, followed
// by a catch-all rule that uses the defaults.
func New(l loop.Loop, transport fetch.Transport, opts Options, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "imgmanager")

	m := &Manager{
		loop:      l,
		transport: transport,
		opts:      opts,
		logger:    logger,
		sources:   make(map[string]*Source),
		pool:      NewPool(logger),
	}
	for i, cfg := range opts.Rules {
		m.rules = append(m.rules, newRule(i, cfg, opts, l, logger))
	}
	m.rules = append(m.rules, newRule(len(opts.Rules), RuleConfig{}, opts, l, logger))
	return m
}

// Options returns the options the manager was built with.
func (m *Manager) Options() Options { return m.opts }

// Loop returns the loop the manager runs on.
func (m *Manager) Loop() loop.Loop { return m.loop }

// Pool returns the clone pool.
func (m *Manager) Pool() *Pool { return m.pool }

// Rules returns the rules in match order; the last one is the catch-all.
func (m *Manager) Rules() []*Rule {
	return append([]*Rule(nil), m.rules...)
}

// RuleFor returns the first rule matching src.
func (m *Manager) RuleFor(src string) *Rule {
	for _, r := range m.rules {
		if r.Matches(src) {
			return r
		}
	}
	return m.rules[len(m.rules)-1]
}

// SourceFor returns the source for src, creating it on first use. Sources
// are never evicted.
func (m *Manager) SourceFor(src string) *Source {
	if s, ok := m.sources[src]; ok {
		return s
	}
	s := newSource(m, src)
	s.Once(EventDidError, func(Event) { m.errors++ })
	m.sources[src] = s
	return s
}

// Sources returns every known source ordered by src.
func (m *Manager) Sources() []*Source {
	out := make([]*Source, 0, len(m.sources))
	for _, s := range m.sources {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].src < out[j].src })
	return out
}

// Stats returns the current counters.
func (m *Manager) Stats() Stats {
	return Stats{
		Hits:       m.pool.Hits(),
		Errors:     m.errors,
		UsedClones: m.pool.Used(),
		FreeClones: m.pool.FreeTotal(),
		Sources:    len(m.sources),
	}
}

// Close disposes every source so queued loads are skipped. Loads already in
// flight still complete.
func (m *Manager) Close() {
	for _, s := range m.sources {
		s.dispose()
	}
}
