package loop

import (
	"sort"
	"time"
)

// maxSettleSteps bounds Settle so a self-rescheduling timer cannot hang a test.
const maxSettleSteps = 100000

// Manual is a deterministic Loop driven by its caller. Time only moves when
// Advance or Settle is called. It is not safe for concurrent use.
type Manual struct {
	now    time.Time
	queue  []func()
	timers []*manualTimer
	seq    uint64
}

// NewManual returns a Manual loop whose virtual clock starts at the Unix epoch.
func NewManual() *Manual {
	return &Manual{now: time.Unix(0, 0)}
}

// Now returns the virtual time.
func (m *Manual) Now() time.Time {
	return m.now
}

// Post queues fn for the next Flush.
func (m *Manual) Post(fn func()) {
	m.queue = append(m.queue, fn)
}

// AfterFunc registers fn to run when the virtual clock reaches now+d.
func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	if d < 0 {
		d = 0
	}
	m.seq++
	t := &manualTimer{owner: m, due: m.now.Add(d), seq: m.seq, fn: fn}
	m.timers = append(m.timers, t)
	return t
}

// Flush runs queued callbacks, including ones they post, until the queue is
// empty. It returns the number of callbacks run.
func (m *Manual) Flush() int {
	n := 0
	for len(m.queue) > 0 {
		fn := m.queue[0]
		m.queue = m.queue[1:]
		fn()
		n++
	}
	return n
}

// Advance moves the clock forward by d, firing due timers in order and
// flushing posted work after each one.
func (m *Manual) Advance(d time.Duration) {
	m.Flush()
	target := m.now.Add(d)
	for {
		t := m.nextTimer()
		if t == nil || t.due.After(target) {
			break
		}
		m.fire(t)
	}
	m.now = target
}

// Settle fires timers one by one until nothing is queued or pending. It
// returns the virtual time that elapsed.
func (m *Manual) Settle() time.Duration {
	start := m.now
	m.Flush()
	for i := 0; i < maxSettleSteps; i++ {
		t := m.nextTimer()
		if t == nil {
			break
		}
		m.fire(t)
	}
	return m.now.Sub(start)
}

// Pending reports queued callbacks plus armed timers.
func (m *Manual) Pending() int {
	return len(m.queue) + len(m.timers)
}

func (m *Manual) nextTimer() *manualTimer {
	if len(m.timers) == 0 {
		return nil
	}
	sort.SliceStable(m.timers, func(i, j int) bool {
		if m.timers[i].due.Equal(m.timers[j].due) {
			return m.timers[i].seq < m.timers[j].seq
		}
		return m.timers[i].due.Before(m.timers[j].due)
	})
	return m.timers[0]
}

func (m *Manual) fire(t *manualTimer) {
	m.remove(t)
	if t.due.After(m.now) {
		m.now = t.due
	}
	t.fired = true
	t.fn()
	m.Flush()
}

func (m *Manual) remove(t *manualTimer) bool {
	for i, other := range m.timers {
		if other == t {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return true
		}
	}
	return false
}

type manualTimer struct {
	owner *Manual
	due   time.Time
	seq   uint64
	fn    func()
	fired bool
}

func (t *manualTimer) Stop() bool {
	if t.fired {
		return false
	}
	return t.owner.remove(t)
}
