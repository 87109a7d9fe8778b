package imgmanager

import (
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/mmcdole/imgwall/internal/dom"
	"github.com/mmcdole/imgwall/internal/fetch"
)

var placeholders = Options{
	MaxTries:   1,
	LoadingSrc: "loading.gif",
	ErrorSrc:   "error.gif",
}

func withTries(opts Options, n int) Options {
	opts.MaxTries = n
	return opts
}

func TestSourceLoadSuccess(t *testing.T) {
	m, l, tr := newTestManager(t, placeholders, succeed)

	s := m.SourceFor("a.jpg")
	parent := dom.New("span")
	c := s.CreateClone(Attrs{"alt": "A"})
	if err := parent.AppendChild(c.Element()); err != nil {
		t.Fatal(err)
	}
	if c.Key() != "loading.gif" {
		t.Fatalf("clone key while loading = %q, want loading.gif", c.Key())
	}
	if _, ok := s.Progress(); ok {
		t.Error("Progress() defined before any attempt")
	}

	var kinds []string
	for _, k := range []EventKind{EventWillLoad, EventProgress, EventDidLoad, EventSwapped, EventReady} {
		s.Subscribe(k, func(ev Event) { kinds = append(kinds, ev.Kind.String()) })
	}

	s.Request()
	l.Settle()

	if !s.IsSuccess() || !s.IsReady() || s.IsLoading() || s.IsError() {
		t.Fatalf("state = %s, want success", s.State())
	}
	if got := s.VirtualSrc(); got != "a.jpg" {
		t.Errorf("VirtualSrc() = %q, want a.jpg", got)
	}
	if p, ok := s.Progress(); !ok || p != 100 {
		t.Errorf("Progress() = %v, %v, want 100, true", p, ok)
	}
	if got := strings.Join(kinds, ","); got != "willLoad,progress,didLoad,swapped,ready" {
		t.Errorf("events = %s", got)
	}
	if len(tr.requests) != 1 || tr.requests[0] != "a.jpg" {
		t.Errorf("requests = %v, want [a.jpg]", tr.requests)
	}

	clones := s.Clones()
	if len(clones) != 1 {
		t.Fatalf("len(Clones()) = %d, want 1", len(clones))
	}
	cur := clones[0]
	if cur.Key() != "a.jpg" {
		t.Errorf("clone key = %q, want a.jpg", cur.Key())
	}
	if parent.FirstChild() != cur.Element() {
		t.Error("replacement clone not mounted in place of the placeholder")
	}
	if v, _ := cur.Element().Attribute("alt"); v != "A" {
		t.Errorf("alt = %q, want A", v)
	}
	if !c.Free() || c.Element().HasAttribute("alt") {
		t.Error("placeholder clone not released clean")
	}
	if s.Rule().Paused() {
		t.Error("rule still paused after ready")
	}
}

func TestSourceRetriesWithDistinctURLs(t *testing.T) {
	fail := errors.New("connection reset")
	m, l, tr := newTestManager(t, withTries(placeholders, 3), func(string) error { return fail })

	s := m.SourceFor("a.jpg#frag")
	didError := 0
	s.Subscribe(EventDidError, func(ev Event) {
		didError++
		if !errors.Is(ev.Err, fail) {
			t.Errorf("DidError err = %v", ev.Err)
		}
	})

	s.Request()
	l.Settle()

	if !s.IsError() {
		t.Fatalf("state = %s, want error", s.State())
	}
	if s.ErrorCount() != 3 || didError != 1 {
		t.Errorf("ErrorCount() = %d, didError = %d, want 3, 1", s.ErrorCount(), didError)
	}
	if len(tr.requests) != 3 {
		t.Fatalf("requests = %v, want 3", tr.requests)
	}
	if tr.requests[0] != "a.jpg#frag" {
		t.Errorf("first request = %q, want the bare src", tr.requests[0])
	}
	busted := regexp.MustCompile(`^a\.jpg\?__dummy_eim__=\d+#frag$`)
	seen := map[string]bool{}
	for _, u := range tr.requests {
		if seen[u] {
			t.Errorf("request %q repeated", u)
		}
		seen[u] = true
	}
	for _, u := range tr.requests[1:] {
		if !busted.MatchString(u) {
			t.Errorf("retry url = %q, want cache-buster before fragment", u)
		}
	}
	if s.VirtualSrc() != "error.gif" {
		t.Errorf("VirtualSrc() = %q, want error.gif", s.VirtualSrc())
	}
	if got := m.Stats().Errors; got != 1 {
		t.Errorf("Stats().Errors = %d, want 1", got)
	}
	if s.Rule().Paused() {
		t.Error("rule still paused after error")
	}
}

func TestSourceSucceedsOnRetry(t *testing.T) {
	m, l, _ := newTestManager(t, withTries(placeholders, 2), func(url string) error {
		if url == "a.jpg" {
			return errors.New("flaky")
		}
		return nil
	})

	s := m.SourceFor("a.jpg")
	s.CreateClone(nil)
	s.Request()
	l.Settle()

	if !s.IsSuccess() {
		t.Fatalf("state = %s, want success", s.State())
	}
	if !strings.HasPrefix(s.VirtualSrc(), "a.jpg?__dummy_eim__=") {
		t.Errorf("VirtualSrc() = %q, want the busted url", s.VirtualSrc())
	}
	if got := s.Clones()[0].Key(); got != s.VirtualSrc() {
		t.Errorf("clone key = %q, want %q", got, s.VirtualSrc())
	}
	if s.ErrorCount() != 1 {
		t.Errorf("ErrorCount() = %d, want 1", s.ErrorCount())
	}
}

func TestSourceZeroTriesNeverRequests(t *testing.T) {
	m, l, tr := newTestManager(t, withTries(placeholders, 0), succeed)

	s := m.SourceFor("a.jpg")
	ready := false
	s.Once(EventReady, func(Event) { ready = true })
	s.Request()

	l.Advance(minDelay)

	if !s.IsError() || !ready {
		t.Fatalf("state = %s, ready = %v, want error and ready", s.State(), ready)
	}
	if len(tr.requests) != 0 {
		t.Errorf("requests = %v, want none", tr.requests)
	}
	if !errors.Is(s.Err(), ErrNoAttempts) {
		t.Errorf("Err() = %v, want ErrNoAttempts", s.Err())
	}
	if m.Stats().Errors != 0 {
		t.Errorf("Stats().Errors = %d, want 0 without a failed attempt", m.Stats().Errors)
	}
}

func TestSharedSourceSwapsAllClones(t *testing.T) {
	m, l, tr := newTestManager(t, placeholders, nil)

	s1 := m.SourceFor("b.jpg")
	s2 := m.SourceFor("b.jpg")
	if s1 != s2 {
		t.Fatal("SourceFor returned distinct sources for one src")
	}

	c1 := s1.CreateClone(Attrs{"id": "one"})
	c2 := s2.CreateClone(Attrs{"id": "two"})
	s1.Request()
	s2.Request()

	swapped := map[*Clone]*Clone{}
	s1.Subscribe(EventSwapped, func(ev Event) { swapped[ev.Old] = ev.New })

	l.Settle()
	if len(tr.pending) != 1 {
		t.Fatalf("requests = %v, want exactly one", tr.requests)
	}
	tr.pending[0].Load(fetch.Info{URL: "b.jpg"})
	l.Settle()

	if len(swapped) != 2 || swapped[c1] == nil || swapped[c2] == nil {
		t.Fatalf("swapped = %v, want both clones", swapped)
	}
	for old, repl := range swapped {
		if repl.Key() != "b.jpg" || !old.Free() {
			t.Errorf("clone %d -> %d key %q, old free %v", old.ID(), repl.ID(), repl.Key(), old.Free())
		}
	}
	if v, _ := swapped[c2].Element().Attribute("id"); v != "two" {
		t.Errorf("second replacement id = %q, want two", v)
	}
	if got := m.Pool().FreeCount("loading.gif"); got != 2 {
		t.Errorf("FreeCount(loading.gif) = %d, want 2", got)
	}
	if s1.Hits() != 2 {
		t.Errorf("Hits() = %d, want 2", s1.Hits())
	}
}

func TestSourceCallbacksAreOneShot(t *testing.T) {
	m, l, tr := newTestManager(t, placeholders, nil)
	s := m.SourceFor("a.jpg")

	loads := 0
	s.Subscribe(EventDidLoad, func(Event) { loads++ })
	s.Request()
	l.Settle()

	cb := tr.pending[0]
	cb.Load(fetch.Info{})
	cb.Load(fetch.Info{})
	cb.Error(errors.New("late"))
	l.Settle()

	if loads != 1 || !s.IsSuccess() || s.ErrorCount() != 0 {
		t.Errorf("loads = %d, state = %s, errors = %d", loads, s.State(), s.ErrorCount())
	}
}

func TestSourceReload(t *testing.T) {
	calls := 0
	m, l, tr := newTestManager(t, placeholders, func(string) error {
		calls++
		if calls == 1 {
			return errors.New("down")
		}
		return nil
	})

	s := m.SourceFor("a.jpg")
	s.CreateClone(nil)
	if err := s.Reload(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Reload() while loading = %v, want ErrInvalidTransition", err)
	}

	s.Request()
	l.Settle()
	if !s.IsError() || s.Clones()[0].Key() != "error.gif" {
		t.Fatalf("state = %s, key = %q", s.State(), s.Clones()[0].Key())
	}

	if err := s.Reload(); err != nil {
		t.Fatalf("Reload() = %v", err)
	}
	if !s.IsLoading() || s.Clones()[0].Key() != "loading.gif" {
		t.Fatalf("after reload state = %s, key = %q", s.State(), s.Clones()[0].Key())
	}

	l.Settle()
	if len(tr.requests) != 2 {
		t.Fatalf("requests = %v, want 2", tr.requests)
	}
	if tr.requests[0] != "a.jpg" || !strings.HasPrefix(tr.requests[1], "a.jpg?__dummy_eim__=") {
		t.Errorf("requests = %v, want the reload attempt cache-busted", tr.requests)
	}
	if !s.IsSuccess() || s.Clones()[0].Key() != tr.requests[1] {
		t.Errorf("after reload load state = %s, key = %q, want %q", s.State(), s.Clones()[0].Key(), tr.requests[1])
	}
}

func TestReleaseClone(t *testing.T) {
	m, _, _ := newTestManager(t, placeholders, nil)
	s := m.SourceFor("a.jpg")
	other := m.SourceFor("b.jpg")

	c := s.CreateClone(nil)
	if err := other.ReleaseClone(c); !errors.Is(err, ErrUnknownClone) {
		t.Errorf("foreign release = %v, want ErrUnknownClone", err)
	}
	if err := s.ReleaseClone(c); err != nil {
		t.Fatalf("ReleaseClone() = %v", err)
	}
	if len(s.Clones()) != 0 || !c.Free() {
		t.Errorf("clones = %d, free = %v", len(s.Clones()), c.Free())
	}
	if err := s.ReleaseClone(c); !errors.Is(err, ErrUnknownClone) {
		t.Errorf("second release = %v, want ErrUnknownClone", err)
	}
}

func TestClosedManagerSkipsQueuedLoads(t *testing.T) {
	m, l, tr := newTestManager(t, placeholders, succeed)
	s := m.SourceFor("a.jpg")
	s.Request()
	m.Close()
	l.Settle()

	if len(tr.requests) != 0 || !s.IsLoading() || !s.Disposed() {
		t.Errorf("requests = %v, state = %s", tr.requests, s.State())
	}
}

func TestAppendCacheBuster(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"a.jpg", `^a\.jpg\?__dummy_eim__=\d+$`},
		{"a.jpg?w=10", `^a\.jpg\?w=10&__dummy_eim__=\d+$`},
		{"a.jpg#x", `^a\.jpg\?__dummy_eim__=\d+#x$`},
		{"a.jpg?w=1#x#y", `^a\.jpg\?w=1&__dummy_eim__=\d+#x#y$`},
	}
	for _, tt := range tests {
		got := appendCacheBuster(tt.in)
		if !regexp.MustCompile(tt.want).MatchString(got) {
			t.Errorf("appendCacheBuster(%q) = %q, want match %s", tt.in, got, tt.want)
		}
	}
	if appendCacheBuster("a") == appendCacheBuster("a") {
		t.Error("cache-buster repeated")
	}
}

func TestRetriesShareBatchBudget(t *testing.T) {
	opts := withTries(placeholders, 2)
	opts.BatchSize = 1
	opts.Delay = 10 * time.Millisecond
	m, l, tr := newTestManager(t, opts, func(url string) error {
		if url == "a.jpg" {
			return errors.New("once")
		}
		return nil
	})

	a := m.SourceFor("a.jpg")
	b := m.SourceFor("b.jpg")
	a.Request()
	b.Request()
	l.Settle()

	if !a.IsSuccess() || !b.IsSuccess() {
		t.Fatalf("a = %s, b = %s", a.State(), b.State())
	}
	if len(tr.requests) != 3 || tr.requests[1] != "b.jpg" {
		t.Errorf("requests = %v, want retry queued behind b.jpg", tr.requests)
	}
}
