package imgmanager

import "time"

// Options are the manager-wide defaults. Rules fall back to these for any
// setting they leave unset.
type Options struct {
	MaxTries   int           // attempts per source; 0 means never request
	BatchSize  int           // loads started per queue pass; 0 means unlimited
	Delay      time.Duration // debounce window of a queue pass; minimum 1ms
	LoadingSrc string        // shown while loading
	ErrorSrc   string        // shown once retries are exhausted

	LoadingClass string
	ErrorClass   string
	SuccessClass string
	LazyLoad     bool

	Rules []RuleConfig
}

// DefaultOptions returns the built-in defaults.
func DefaultOptions() Options {
	return Options{
		MaxTries:     1,
		LoadingClass: "loading",
		ErrorClass:   "error",
		SuccessClass: "success",
		LazyLoad:     true,
	}
}

// RuleConfig describes one rule. At most one of Match, Pattern and Predicate
// may be set; none (or Match "*") matches every source.
type RuleConfig struct {
	Match     string // literal substring
	Pattern   string // regular expression
	Predicate func(src string) bool

	// Overrides; nil or empty falls back to Options.
	BatchSize  *int
	MaxTries   *int
	Delay      time.Duration
	LoadingSrc string
	ErrorSrc   string
}
