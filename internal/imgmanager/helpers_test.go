package imgmanager

import (
	"bytes"
	"io"
	"log/slog"
	"testing"

	"github.com/mmcdole/imgwall/internal/fetch"
	"github.com/mmcdole/imgwall/internal/loop"
)

// fakeTransport records requests and answers them on the loop using respond.
// A nil respond leaves requests pending until the test completes them.
type fakeTransport struct {
	loop     loop.Loop
	respond  func(url string) error
	requests []string
	pending  []fetch.Callbacks
}

func (f *fakeTransport) Start(url string, cb fetch.Callbacks) {
	f.requests = append(f.requests, url)
	if f.respond == nil {
		f.pending = append(f.pending, cb)
		return
	}
	err := f.respond(url)
	f.loop.Post(func() {
		if err != nil {
			cb.Error(err)
			return
		}
		if cb.Progress != nil {
			cb.Progress(50, 100)
		}
		cb.Load(fetch.Info{URL: url, Format: "png"})
	})
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func bufferLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newTestManager(t *testing.T, opts Options, respond func(string) error) (*Manager, *loop.Manual, *fakeTransport) {
	t.Helper()
	l := loop.NewManual()
	tr := &fakeTransport{loop: l, respond: respond}
	return New(l, tr, opts, discardLogger()), l, tr
}

func succeed(string) error { return nil }

func intPtr(n int) *int { return &n }
