package imgmanager

import (
	"errors"
	"fmt"

	"github.com/mmcdole/imgwall/internal/fetch"
)

// ErrInvalidTransition indicates a state change the lifecycle does not allow
var ErrInvalidTransition = errors.New("imgmanager: invalid state transition")

// State is the lifecycle state of a Source.
type State int

const (
	StateLoading State = iota
	StateSuccess
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// transitions lists the allowed moves out of each state. Failed attempts
// that will be retried stay in StateLoading.
var transitions = map[State][]State{
	StateLoading: {StateSuccess, StateError},
	StateError:   {StateLoading},
}

// EventKind identifies a Source notification.
type EventKind int

const (
	EventWillLoad EventKind = iota // an attempt is about to start
	EventDidLoad                   // the final attempt succeeded
	EventDidError                  // retries are exhausted
	EventReady                     // loading concluded either way
	EventProgress                  // progress changed
	EventSwapped                   // an outstanding clone was replaced
)

func (k EventKind) String() string {
	switch k {
	case EventWillLoad:
		return "willLoad"
	case EventDidLoad:
		return "didLoad"
	case EventDidError:
		return "didError"
	case EventReady:
		return "ready"
	case EventProgress:
		return "progress"
	case EventSwapped:
		return "swapped"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers.
type Event struct {
	Kind   EventKind
	Source *Source
	Info   fetch.Info // EventDidLoad
	Err    error      // EventDidError
	Old    *Clone     // EventSwapped
	New    *Clone     // EventSwapped
}

// Handler receives events on the event loop.
type Handler func(Event)

type subscription struct {
	id   int
	fn   Handler
	once bool
}

// machine holds the lifecycle state and its subscribers.
type machine struct {
	state    State
	handlers map[EventKind][]subscription
	nextID   int
}

func (m *machine) subscribe(kind EventKind, fn Handler, once bool) func() {
	if m.handlers == nil {
		m.handlers = make(map[EventKind][]subscription)
	}
	m.nextID++
	id := m.nextID
	m.handlers[kind] = append(m.handlers[kind], subscription{id: id, fn: fn, once: once})
	return func() { m.unsubscribe(kind, id) }
}

func (m *machine) unsubscribe(kind EventKind, id int) {
	subs := m.handlers[kind]
	for i, s := range subs {
		if s.id == id {
			m.handlers[kind] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

func (m *machine) emit(ev Event) {
	subs := append([]subscription(nil), m.handlers[ev.Kind]...)
	for _, s := range subs {
		if s.once {
			m.unsubscribe(ev.Kind, s.id)
		}
	}
	for _, s := range subs {
		s.fn(ev)
	}
}

func (m *machine) transition(to State) error {
	for _, allowed := range transitions[m.state] {
		if allowed == to {
			m.state = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.state, to)
}
