package imgmanager

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/mmcdole/imgwall/internal/dom"
	"github.com/mmcdole/imgwall/internal/fetch"
)

// cacheBusterParam is appended to retry requests so a cached failure is not
// served again.
const cacheBusterParam = "__dummy_eim__"

var cacheBusterSeq atomic.Uint64

var (
	// ErrNoAttempts indicates the source's rule allows zero load attempts
	ErrNoAttempts = errors.New("imgmanager: rule allows no load attempts")

	// ErrUnknownClone indicates a clone that this source did not hand out
	ErrUnknownClone = errors.New("imgmanager: clone does not belong to this source")
)

// appendCacheBuster adds a unique query parameter ahead of any fragment.
func appendCacheBuster(rawURL string) string {
	parts := strings.SplitN(rawURL, "#", 2)
	sep := "?"
	if strings.Contains(parts[0], "?") {
		sep = "&"
	}
	parts[0] += sep + cacheBusterParam + "=" + strconv.FormatUint(cacheBusterSeq.Add(1), 10)
	return strings.Join(parts, "#")
}

// Source is the single loader for one distinct src. It is created by
// Manager.SourceFor and lives as long as the manager. All methods must be
// called on the event loop.
type Source struct {
	manager *Manager
	src     string
	rule    *Rule
	logger  *slog.Logger

	fsm         machine
	maxTries    int
	errorCount  int
	reloaded    bool // every attempt after a Reload is cache-busted
	progress    float64
	hasProgress bool
	lastErr     error
	info        fetch.Info

	node      *dom.Element
	inFlight  bool
	requested bool
	disposed  bool

	clones      []*Clone
	hits        int
	broadcast   string
	broadcasted bool
}

func newSource(m *Manager, src string) *Source {
	rule := m.RuleFor(src)
	s := &Source{
		manager:  m,
		src:      src,
		rule:     rule,
		maxTries: rule.MaxTries(),
		logger:   m.logger.With("src", src),
	}
	s.fsm.subscribe(EventWillLoad, func(Event) { s.rule.PauseLoadQueue() }, false)
	s.fsm.subscribe(EventReady, func(Event) {
		s.rule.ContinueLoadQueue()
		s.switchClones()
	}, false)
	return s
}

// Src returns the requested source string.
func (s *Source) Src() string { return s.src }

// Rule returns the rule that governs this source.
func (s *Source) Rule() *Rule { return s.rule }

// State returns the lifecycle state.
func (s *Source) State() State { return s.fsm.state }

// IsLoading reports whether loading has not concluded.
func (s *Source) IsLoading() bool { return s.fsm.state == StateLoading }

// IsError reports whether every attempt failed.
func (s *Source) IsError() bool { return s.fsm.state == StateError }

// IsSuccess reports whether the image loaded.
func (s *Source) IsSuccess() bool { return !s.IsLoading() && !s.IsError() }

// IsReady reports whether loading concluded either way.
func (s *Source) IsReady() bool { return s.IsError() || s.IsSuccess() }

// Progress returns the load percentage; ok is false until a response with a
// known length has been seen.
func (s *Source) Progress() (percent float64, ok bool) {
	return s.progress, s.hasProgress
}

// ErrorCount returns the number of failed attempts so far.
func (s *Source) ErrorCount() int { return s.errorCount }

// MaxTries returns the attempt budget taken from the rule.
func (s *Source) MaxTries() int { return s.maxTries }

// Err returns the last attempt's error.
func (s *Source) Err() error { return s.lastErr }

// Info returns what the transport reported for the successful attempt.
func (s *Source) Info() fetch.Info { return s.info }

// Hits returns how many clones have been created for this source.
func (s *Source) Hits() int { return s.hits }

// Clones returns the outstanding clones.
func (s *Source) Clones() []*Clone {
	return append([]*Clone(nil), s.clones...)
}

// Disposed implements Disposable.
func (s *Source) Disposed() bool { return s.disposed }

// Subscribe registers fn for kind and returns a function that removes it.
func (s *Source) Subscribe(kind EventKind, fn Handler) func() {
	return s.fsm.subscribe(kind, fn, false)
}

// Once registers fn for the next kind event only.
func (s *Source) Once(kind EventKind, fn Handler) func() {
	return s.fsm.subscribe(kind, fn, true)
}

// VirtualSrc is the pool key clones of this source should show: the loading
// placeholder, the error placeholder, or the URL that actually loaded.
func (s *Source) VirtualSrc() string {
	switch s.fsm.state {
	case StateLoading:
		return s.rule.LoadingSrc()
	case StateError:
		return s.rule.ErrorSrc()
	default:
		src, _ := s.node.Attribute("src")
		return src
	}
}

// Request queues the first load attempt. Later calls do nothing.
func (s *Source) Request() {
	if s.requested || s.disposed {
		return
	}
	s.requested = true
	s.scheduleLoad()
}

// Requested reports whether Request has been called.
func (s *Source) Requested() bool { return s.requested }

// Reload starts over with a fresh attempt budget after a failure.
func (s *Source) Reload() error {
	if err := s.fsm.transition(StateLoading); err != nil {
		return fmt.Errorf("reload %s: %w", s.src, err)
	}
	s.errorCount = 0
	s.reloaded = true
	s.lastErr = nil
	s.hasProgress = false
	s.progress = 0
	s.requested = true
	s.switchClones()
	s.scheduleLoad()
	return nil
}

// CreateClone hands out a clone keyed by the current virtual source.
func (s *Source) CreateClone(attrs Attrs) *Clone {
	c := s.manager.pool.CloneFor(s.VirtualSrc(), attrs)
	s.clones = append(s.clones, c)
	s.hits++
	return c
}

// ReleaseClone returns c to the pool.
func (s *Source) ReleaseClone(c *Clone) error {
	for i, other := range s.clones {
		if other == c {
			s.clones = append(s.clones[:i], s.clones[i+1:]...)
			return s.manager.pool.Release(c)
		}
	}
	return fmt.Errorf("release %s: %w", s.src, ErrUnknownClone)
}

func (s *Source) scheduleLoad() {
	s.rule.ScheduleForLoad(Task{Target: s, Run: s.load})
}

// load runs one attempt; it is the queued task.
func (s *Source) load() error {
	if s.inFlight {
		return nil
	}
	s.inFlight = true
	s.emit(Event{Kind: EventWillLoad})

	if s.maxTries <= 0 {
		s.manager.loop.Post(func() {
			s.inFlight = false
			s.lastErr = ErrNoAttempts
			if err := s.fsm.transition(StateError); err != nil {
				s.logger.Warn("skipping load", "error", err)
				return
			}
			s.emit(Event{Kind: EventReady, Err: ErrNoAttempts})
		})
		return nil
	}

	target := s.src
	if s.errorCount > 0 || s.reloaded {
		target = appendCacheBuster(s.src)
	}
	if s.node == nil {
		s.node = dom.New("img")
	}
	s.node.SetAttribute("src", target)

	var settled bool
	s.manager.transport.Start(target, fetch.Callbacks{
		Load: func(info fetch.Info) {
			if settled {
				return
			}
			settled = true
			s.onLoad(info)
		},
		Error: func(err error) {
			if settled {
				return
			}
			settled = true
			s.onError(err)
		},
		Progress: func(loaded, total int64) {
			if settled {
				return
			}
			s.onProgress(loaded, total)
		},
	})
	return nil
}

func (s *Source) onLoad(info fetch.Info) {
	s.inFlight = false
	if err := s.fsm.transition(StateSuccess); err != nil {
		s.logger.Warn("ignoring load", "error", err)
		return
	}
	s.info = info
	s.lastErr = nil
	s.progress, s.hasProgress = 100, true
	s.logger.Debug("image loaded", "attempts", s.errorCount+1)
	s.emit(Event{Kind: EventDidLoad, Info: info})
	s.emit(Event{Kind: EventReady})
}

func (s *Source) onError(err error) {
	s.inFlight = false
	s.errorCount++
	s.lastErr = err
	if s.errorCount < s.maxTries {
		s.logger.Debug("retrying image", "attempt", s.errorCount, "error", err)
		s.rule.ContinueLoadQueue()
		s.scheduleLoad()
		return
	}
	if terr := s.fsm.transition(StateError); terr != nil {
		s.logger.Warn("ignoring error", "error", terr)
		return
	}
	s.logger.Info("image failed", "attempts", s.errorCount, "error", err)
	s.emit(Event{Kind: EventDidError, Err: err})
	s.emit(Event{Kind: EventReady, Err: err})
}

func (s *Source) onProgress(loaded, total int64) {
	if total <= 0 {
		return
	}
	s.progress = float64(loaded) / float64(total) * 100
	s.hasProgress = true
	s.emit(Event{Kind: EventProgress})
}

// switchClones moves every outstanding clone to the current virtual source.
func (s *Source) switchClones() {
	vs := s.VirtualSrc()
	if s.broadcasted && vs == s.broadcast {
		return
	}
	s.broadcast, s.broadcasted = vs, true
	for i, c := range s.clones {
		replacement := s.manager.pool.Swap(c, vs)
		if replacement == c {
			continue
		}
		s.clones[i] = replacement
		s.emit(Event{Kind: EventSwapped, Old: c, New: replacement})
	}
}

func (s *Source) emit(ev Event) {
	ev.Source = s
	s.fsm.emit(ev)
}

func (s *Source) dispose() {
	s.disposed = true
}
