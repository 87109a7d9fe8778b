package probe

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/mmcdole/imgwall/internal/fetch"
	"github.com/mmcdole/imgwall/internal/imgmanager"
	"github.com/mmcdole/imgwall/internal/loop"
)

type manualExec struct {
	loop *loop.Manual
}

func (e manualExec) Do(_ context.Context, fn func()) error {
	fn()
	e.loop.Settle()
	return nil
}

// stubTransport fails URLs containing "bad" and never answers URLs
// containing "hang".
type stubTransport struct {
	loop     loop.Loop
	requests []string
}

func (s *stubTransport) Start(url string, cb fetch.Callbacks) {
	s.requests = append(s.requests, url)
	if strings.Contains(url, "hang") {
		return
	}
	s.loop.Post(func() {
		if strings.Contains(url, "bad") {
			cb.Error(&fetch.StatusError{URL: url, Code: 404})
			return
		}
		cb.Load(fetch.Info{URL: url, Format: "png", Width: 16, Height: 9})
	})
}

func newTestManager(maxTries int) (*imgmanager.Manager, *stubTransport, manualExec) {
	l := loop.NewManual()
	tr := &stubTransport{loop: l}
	opts := imgmanager.DefaultOptions()
	opts.MaxTries = maxTries
	m := imgmanager.New(l, tr, opts, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return m, tr, manualExec{l}
}

func TestFilter(t *testing.T) {
	srcs := []string{"https://a.test/Cat.png", "https://a.test/dog.jpg", "https://b.test/cart.gif"}

	tests := []struct {
		query string
		want  []string
	}{
		{"", srcs},
		{"cat", []string{"https://a.test/Cat.png", "https://b.test/cart.gif"}},
		{"dog", []string{"https://a.test/dog.jpg"}},
		{"zebra", nil},
	}
	for _, tt := range tests {
		got := Filter(srcs, tt.query)
		if strings.Join(got, ",") != strings.Join(tt.want, ",") {
			t.Fatalf("Filter(%q) = %v, want %v", tt.query, got, tt.want)
		}
	}
}

func TestDedupe(t *testing.T) {
	in := []string{"a", "b", "a", "c", "b"}
	got := Dedupe(in)
	if strings.Join(got, ",") != "a,b,c" {
		t.Fatalf("Dedupe = %v, want [a b c]", got)
	}
	if strings.Join(in, ",") != "a,b,a,c,b" {
		t.Fatalf("Dedupe modified its input: %v", in)
	}
}

func TestRunReportsEachSource(t *testing.T) {
	m, tr, exec := newTestManager(2)

	report, err := Run(context.Background(), exec, m, []string{"good.png", "bad.png", "good.png"})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(report.Results) != 2 {
		t.Fatalf("len(Results) = %d, want 2", len(report.Results))
	}

	good, bad := report.Results[0], report.Results[1]
	if good.State != "success" || good.Attempts != 1 || good.Info.Width != 16 {
		t.Fatalf("good = %+v, want success after 1 attempt", good)
	}
	if good.Rule != "*" {
		t.Fatalf("good.Rule = %q, want %q", good.Rule, "*")
	}
	if bad.State != "error" || bad.Attempts != 2 {
		t.Fatalf("bad = %+v, want error after 2 attempts", bad)
	}
	if !strings.Contains(bad.Err, "404") {
		t.Fatalf("bad.Err = %q, want it to mention 404", bad.Err)
	}
	if report.Failed() != 1 {
		t.Fatalf("Failed() = %d, want 1", report.Failed())
	}
	if report.Stats.Sources != 2 || report.Stats.Errors != 1 {
		t.Fatalf("Stats = %+v, want 2 sources and 1 error", report.Stats)
	}
	if len(tr.requests) != 3 {
		t.Fatalf("requests = %v, want 3", tr.requests)
	}
}

func TestRunNoSources(t *testing.T) {
	m, _, exec := newTestManager(1)
	if _, err := Run(context.Background(), exec, m, nil); !errors.Is(err, ErrNoSources) {
		t.Fatalf("Run(nil) error = %v, want ErrNoSources", err)
	}
}

func TestRunStopsWhenContextEnds(t *testing.T) {
	m, _, exec := newTestManager(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := Run(ctx, exec, m, []string{"hang.png", "good.png"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
	if len(report.Results) != 2 {
		t.Fatalf("len(Results) = %d, want 2", len(report.Results))
	}
	if report.Results[0].State != "loading" {
		t.Fatalf("hang state = %q, want loading", report.Results[0].State)
	}
	if report.Results[1].State != "success" {
		t.Fatalf("good state = %q, want success", report.Results[1].State)
	}
}

func TestRenderPlain(t *testing.T) {
	report := Report{
		Results: []Result{
			{Src: "a.png", State: "success", Attempts: 1, Info: fetch.Info{Format: "png", Width: 2, Height: 3}},
			{Src: "b.png", State: "error", Attempts: 3, Err: "status 404"},
		},
		Stats: imgmanager.Stats{Sources: 2, Errors: 1},
	}

	var buf bytes.Buffer
	if err := Render(&buf, report, false); err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4:\n%s", len(lines), buf.String())
	}
	if f := strings.Fields(lines[1]); f[0] != "success" || f[2] != "png" || f[3] != "2x3" || f[4] != "a.png" {
		t.Fatalf("line 1 = %q", lines[1])
	}
	if !strings.HasSuffix(lines[2], "status 404") {
		t.Fatalf("line 2 = %q, want error column", lines[2])
	}
	if !strings.HasPrefix(lines[3], "2 sources, 1 failed") {
		t.Fatalf("summary = %q", lines[3])
	}
}

func TestRenderStyled(t *testing.T) {
	report := Report{Results: []Result{{Src: "b.png", State: "error", Attempts: 2, Err: "boom"}}}

	var buf bytes.Buffer
	if err := Render(&buf, report, true); err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"b.png", "boom", "2 tries", "1 failed"} {
		if !strings.Contains(out, want) {
			t.Fatalf("styled output missing %q:\n%s", want, out)
		}
	}
}
