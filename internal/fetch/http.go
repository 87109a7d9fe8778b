package fetch

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder

	"github.com/mmcdole/imgwall/internal/loop"
)

const (
	defaultUserAgent = "imgwall/0.1"
	defaultTimeout   = 30 * time.Second
	defaultMaxBytes  = 32 << 20
)

// Options configure an HTTPTransport.
type Options struct {
	Timeout     time.Duration
	UserAgent   string
	VerifyImage bool   // reject bodies whose header is not a known image format
	BaseURL     string // relative sources resolve against this; default is the working directory
	MaxBytes    int64  // largest body read; 0 means 32 MiB
}

// HTTPTransport fetches over HTTP(S) and file:// URLs.
type HTTPTransport struct {
	ctx       context.Context
	loop      loop.Loop
	client    *http.Client
	base      *url.URL
	userAgent string
	verify    bool
	maxBytes  int64
	logger    *slog.Logger
}

// Ensure HTTPTransport implements Transport at compile time.
var _ Transport = (*HTTPTransport)(nil)

// NewHTTPTransport builds a transport whose callbacks are posted to l.
// Requests are bound to ctx; there is no per-request cancellation.
func NewHTTPTransport(ctx context.Context, l loop.Loop, opts Options, logger *slog.Logger) (*HTTPTransport, error) {
	if logger == nil {
		logger = slog.Default()
	}
	base, err := resolveBase(opts.BaseURL)
	if err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	rt := http.DefaultTransport.(*http.Transport).Clone()
	rt.RegisterProtocol("file", http.NewFileTransport(http.Dir("/")))

	return &HTTPTransport{
		ctx:       ctx,
		loop:      l,
		client:    &http.Client{Timeout: timeout, Transport: rt},
		base:      base,
		userAgent: userAgent,
		verify:    opts.VerifyImage,
		maxBytes:  maxBytes,
		logger:    logger,
	}, nil
}

// Start fetches rawURL on a new goroutine.
func (t *HTTPTransport) Start(rawURL string, cb Callbacks) {
	go t.fetch(rawURL, cb)
}

func (t *HTTPTransport) fetch(rawURL string, cb Callbacks) {
	var progress func(loaded, total int64)
	if cb.Progress != nil {
		progress = func(loaded, total int64) {
			t.loop.Post(func() { cb.Progress(loaded, total) })
		}
	}

	info, err := t.get(rawURL, progress)
	if err != nil {
		t.logger.Debug("image request failed", "url", rawURL, "error", err)
	}
	t.loop.Post(func() {
		if err != nil {
			cb.Error(err)
			return
		}
		cb.Load(info)
	})
}

func (t *HTTPTransport) get(rawURL string, progress func(loaded, total int64)) (Info, error) {
	if rawURL == "" {
		return Info{}, ErrEmptyURL
	}
	target, err := t.resolve(rawURL)
	if err != nil {
		return Info{}, err
	}

	req, err := http.NewRequestWithContext(t.ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return Info{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", t.userAgent)
	req.Header.Set("Accept", "image/*")

	resp, err := t.client.Do(req)
	if err != nil {
		return Info{}, fmt.Errorf("request %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Info{}, &StatusError{URL: rawURL, Code: resp.StatusCode}
	}

	if resp.ContentLength > t.maxBytes {
		return Info{}, fmt.Errorf("%w: %s: %d bytes", ErrTooLarge, rawURL, resp.ContentLength)
	}

	var body io.Reader = resp.Body
	if progress != nil && resp.ContentLength > 0 {
		body = &progressReader{r: resp.Body, total: resp.ContentLength, report: progress}
	}
	// One byte past the limit tells an oversized body from one that fits exactly.
	data, err := io.ReadAll(io.LimitReader(body, t.maxBytes+1))
	if err != nil {
		return Info{}, fmt.Errorf("read %s: %w", rawURL, err)
	}
	if int64(len(data)) > t.maxBytes {
		return Info{}, fmt.Errorf("%w: %s: over %d bytes", ErrTooLarge, rawURL, t.maxBytes)
	}

	info := Info{
		URL:         rawURL,
		ContentType: resp.Header.Get("Content-Type"),
		Size:        int64(len(data)),
	}
	if t.verify {
		cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return Info{}, fmt.Errorf("%w: %s: %v", ErrNotImage, rawURL, err)
		}
		info.Format = format
		info.Width = cfg.Width
		info.Height = cfg.Height
	}
	return info, nil
}

func (t *HTTPTransport) resolve(rawURL string) (*url.URL, error) {
	ref, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url %q: %w", rawURL, err)
	}
	return t.base.ResolveReference(ref), nil
}

func resolveBase(raw string) (*url.URL, error) {
	if raw != "" {
		base, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse base url: %w", err)
		}
		return base, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}
	return &url.URL{Scheme: "file", Path: filepath.ToSlash(wd) + "/"}, nil
}

// progressReader reports each whole-percent change of a body with a known length.
type progressReader struct {
	r       io.Reader
	loaded  int64
	total   int64
	percent int64
	report  func(loaded, total int64)
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		p.loaded += int64(n)
		if pct := p.loaded * 100 / p.total; pct != p.percent {
			p.percent = pct
			p.report(p.loaded, p.total)
		}
	}
	return n, err
}
