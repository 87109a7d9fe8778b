// Package fetch performs image requests and reports their outcome back onto
// the event loop.
package fetch

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyURL indicates a request was started without a target
	ErrEmptyURL = errors.New("fetch: empty url")

	// ErrNotImage indicates the response body is not a recognizable image
	ErrNotImage = errors.New("fetch: response is not an image")

	// ErrTooLarge indicates the response body exceeds Options.MaxBytes
	ErrTooLarge = errors.New("fetch: response body too large")
)

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.Code)
}

// Info describes a successfully fetched image.
type Info struct {
	URL         string
	ContentType string
	Size        int64
	Format      string // empty when verification is disabled
	Width       int
	Height      int
}

// Callbacks receive the outcome of one request. Exactly one of Load or Error
// is called. Progress may be nil.
type Callbacks struct {
	Load     func(Info)
	Error    func(error)
	Progress func(loaded, total int64)
}

// Transport starts image requests. Implementations must not block and must
// deliver every callback on the event loop.
type Transport interface {
	Start(url string, cb Callbacks)
}
