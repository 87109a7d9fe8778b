package imgmanager

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/imgwall/internal/loop"
)

// minDelay is the shortest debounce window of a queue pass.
const minDelay = time.Millisecond

// ErrInvalidMatch indicates a rule's match setting could not be used
var ErrInvalidMatch = errors.New("imgmanager: invalid rule match")

// Disposable is implemented by queue task targets that can go away while
// their task is still queued.
type Disposable interface {
	Disposed() bool
}

// Task is one queued unit of work. Target may be nil.
type Task struct {
	Target Disposable
	Run    func() error
}

// Rule matches a subset of sources and governs how they are scheduled for
// loading. All methods must be called on the event loop.
type Rule struct {
	index      int
	desc       string
	matcher    func(src string) bool
	batchSize  int
	delay      time.Duration
	maxTries   int
	loadingSrc string
	errorSrc   string

	loop   loop.Loop
	logger *slog.Logger

	paused int
	queue  []Task
	timer  loop.Timer
}

func newRule(index int, cfg RuleConfig, defaults Options, l loop.Loop, logger *slog.Logger) *Rule {
	r := &Rule{
		index:      index,
		batchSize:  defaults.BatchSize,
		delay:      defaults.Delay,
		maxTries:   defaults.MaxTries,
		loadingSrc: defaults.LoadingSrc,
		errorSrc:   defaults.ErrorSrc,
		loop:       l,
		logger:     logger.With("rule", index),
	}
	if cfg.BatchSize != nil {
		r.batchSize = *cfg.BatchSize
	}
	if cfg.MaxTries != nil {
		r.maxTries = *cfg.MaxTries
	}
	if cfg.Delay > 0 {
		r.delay = cfg.Delay
	}
	if cfg.LoadingSrc != "" {
		r.loadingSrc = cfg.LoadingSrc
	}
	if cfg.ErrorSrc != "" {
		r.errorSrc = cfg.ErrorSrc
	}

	matcher, desc, err := compileMatcher(cfg)
	if err != nil {
		r.logger.Warn("invalid rule match, rule will match nothing", "error", err)
		matcher = matchNone
	}
	r.matcher = matcher
	r.desc = desc
	return r
}

func matchAll(string) bool  { return true }
func matchNone(string) bool { return false }

func compileMatcher(cfg RuleConfig) (func(string) bool, string, error) {
	literal := cfg.Match
	if literal == "*" {
		literal = ""
	}

	set := 0
	for _, ok := range []bool{literal != "", cfg.Pattern != "", cfg.Predicate != nil} {
		if ok {
			set++
		}
	}
	switch {
	case set > 1:
		return nil, "invalid", fmt.Errorf("%w: more than one of match, pattern and predicate set", ErrInvalidMatch)
	case literal != "":
		return func(src string) bool { return strings.Contains(src, literal) }, fmt.Sprintf("contains %q", literal), nil
	case cfg.Pattern != "":
		re, err := regexp.Compile(cfg.Pattern)
		if err != nil {
			return nil, "invalid", fmt.Errorf("%w: %v", ErrInvalidMatch, err)
		}
		return re.MatchString, "pattern " + re.String(), nil
	case cfg.Predicate != nil:
		return cfg.Predicate, "predicate", nil
	default:
		return matchAll, "*", nil
	}
}

// Index is the rule's position in declaration order.
func (r *Rule) Index() int { return r.index }

// String describes the rule's match setting.
func (r *Rule) String() string { return r.desc }

// Matches reports whether src belongs to this rule.
func (r *Rule) Matches(src string) bool { return r.matcher(src) }

// BatchSize is the number of tasks run per pass, 0 meaning all.
func (r *Rule) BatchSize() int { return r.batchSize }

// Delay is the debounce window of a pass.
func (r *Rule) Delay() time.Duration {
	if r.delay < minDelay {
		return minDelay
	}
	return r.delay
}

// MaxTries is the number of load attempts per source.
func (r *Rule) MaxTries() int { return r.maxTries }

// LoadingSrc is the placeholder shown while loading.
func (r *Rule) LoadingSrc() string { return r.loadingSrc }

// ErrorSrc is the placeholder shown after loading failed.
func (r *Rule) ErrorSrc() string { return r.errorSrc }

// QueueLen returns the number of tasks waiting.
func (r *Rule) QueueLen() int { return len(r.queue) }

// Paused reports whether processing is suspended.
func (r *Rule) Paused() bool { return r.paused > 0 }

// ScheduleForLoad appends task to the queue and triggers processing.
func (r *Rule) ScheduleForLoad(task Task) {
	r.queue = append(r.queue, task)
	r.processLoadQueue()
}

// PauseLoadQueue suspends processing. Calls nest; each needs a matching
// ContinueLoadQueue.
func (r *Rule) PauseLoadQueue() {
	r.paused++
}

// ContinueLoadQueue undoes one PauseLoadQueue. Reaching zero schedules
// processing on the next loop turn.
func (r *Rule) ContinueLoadQueue() {
	if r.paused == 0 {
		r.logger.Warn("load queue continued more times than paused")
		return
	}
	r.paused--
	if r.paused == 0 {
		r.loop.Post(r.processLoadQueue)
	}
}

// processLoadQueue (re)arms the debounce timer for the next pass.
func (r *Rule) processLoadQueue() {
	if len(r.queue) == 0 || r.paused > 0 {
		return
	}
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = r.loop.AfterFunc(r.Delay(), r.runPass)
}

func (r *Rule) runPass() {
	r.timer = nil
	if r.paused == 0 {
		n := r.batchSize
		if n <= 0 || n > len(r.queue) {
			n = len(r.queue)
		}
		batch := make([]Task, n)
		copy(batch, r.queue[:n])
		r.queue = r.queue[n:]

		for _, task := range batch {
			r.invoke(task)
		}
	}
	r.loop.Post(r.processLoadQueue)
}

func (r *Rule) invoke(task Task) {
	if task.Target != nil && task.Target.Disposed() {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn("error invoking load queue item", "panic", rec)
		}
	}()
	if err := task.Run(); err != nil {
		r.logger.Warn("error invoking load queue item", "error", err)
	}
}
