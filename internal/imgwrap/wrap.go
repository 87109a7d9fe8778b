// Package imgwrap binds a display slot to the image manager: it owns a
// wrapper element, mounts the clone for its current source, keeps state
// classes on the wrapper, and loads lazily once the slot becomes visible.
package imgwrap

import (
	"errors"

	"github.com/mmcdole/imgwall/internal/dom"
	"github.com/mmcdole/imgwall/internal/imgmanager"
)

// WrapClass is always present on the wrapper element.
const WrapClass = "img-wrap"

// ErrDestroyed indicates the wrap was used after Destroy
var ErrDestroyed = errors.New("imgwrap: wrap is destroyed")

// Hook is called when the wrap's current source becomes ready.
type Hook func(w *Wrap, s *imgmanager.Source)

// Wrap is one on-screen slot. It must only be used on the manager's loop.
type Wrap struct {
	manager *imgmanager.Manager
	el      *dom.Element
	attrs   map[Attribute]string

	src    string
	source *imgmanager.Source
	clone  *imgmanager.Clone
	unsubs []func()

	visible   bool
	destroyed bool
	onSuccess Hook
	onError   Hook
}

// New creates a wrap showing src. attrs are validated against the forwarded
// attribute set.
func New(m *imgmanager.Manager, src string, attrs map[string]string) (*Wrap, error) {
	w := &Wrap{
		manager: m,
		el:      dom.New("span"),
		attrs:   make(map[Attribute]string),
	}
	for name, value := range attrs {
		a, err := ParseAttribute(name)
		if err != nil {
			return nil, err
		}
		w.attrs[a] = value
	}
	w.el.SetAttribute("style", "display: inline-block;")
	w.attach(src)
	return w, nil
}

// Element returns the wrapper element.
func (w *Wrap) Element() *dom.Element { return w.el }

// Src returns the current source string.
func (w *Wrap) Src() string { return w.src }

// Source returns the current source, nil when src is empty.
func (w *Wrap) Source() *imgmanager.Source { return w.source }

// Clone returns the mounted clone, nil when there is none.
func (w *Wrap) Clone() *imgmanager.Clone { return w.clone }

// Visible reports whether Show has been called.
func (w *Wrap) Visible() bool { return w.visible }

// IsLoading reports whether the current source is still loading.
func (w *Wrap) IsLoading() bool { return w.source != nil && w.source.IsLoading() }

// IsError reports whether the current source failed.
func (w *Wrap) IsError() bool { return w.source != nil && w.source.IsError() }

// IsSuccess reports whether the current source loaded.
func (w *Wrap) IsSuccess() bool { return w.source != nil && w.source.IsSuccess() }

// IsReady reports whether the current source finished either way.
func (w *Wrap) IsReady() bool { return w.source != nil && w.source.IsReady() }

// Progress returns the current source's load progress.
func (w *Wrap) Progress() (float64, bool) {
	if w.source == nil {
		return 0, false
	}
	return w.source.Progress()
}

// Class returns the wrapper's class list.
func (w *Wrap) Class() string {
	v, _ := w.el.Attribute("class")
	return v
}

// OnLoadSuccess sets the hook run each time the current source loads.
func (w *Wrap) OnLoadSuccess(fn Hook) { w.onSuccess = fn }

// OnLoadError sets the hook run each time the current source fails.
func (w *Wrap) OnLoadError(fn Hook) { w.onError = fn }

// Show marks the wrap visible and requests its source. With lazy loading
// disabled sources are requested as soon as they are attached.
func (w *Wrap) Show() {
	if w.destroyed {
		return
	}
	w.visible = true
	if w.source != nil {
		w.source.Request()
	}
}

// SetSrc switches the wrap to another source, releasing the current clone.
func (w *Wrap) SetSrc(src string) error {
	if w.destroyed {
		return ErrDestroyed
	}
	if src == w.src {
		return nil
	}
	w.detach()
	w.attach(src)
	return nil
}

// Attribute returns the value set for a.
func (w *Wrap) Attribute(a Attribute) (string, bool) {
	v, ok := w.attrs[a]
	return v, ok
}

// SetAttribute forwards a to the mounted clone. An empty value is kept, so
// alt="" marks a decorative image.
func (w *Wrap) SetAttribute(a Attribute, value string) {
	w.attrs[a] = value
	if w.clone != nil {
		w.clone = w.manager.Pool().SetAttribute(w.clone, a.String(), value)
	}
}

// RemoveAttribute drops a from the wrap and its clone.
func (w *Wrap) RemoveAttribute(a Attribute) {
	delete(w.attrs, a)
	if w.clone != nil {
		w.clone = w.manager.Pool().RemoveAttribute(w.clone, a.String())
	}
}

// Set is SetAttribute by name.
func (w *Wrap) Set(name, value string) error {
	a, err := ParseAttribute(name)
	if err != nil {
		return err
	}
	w.SetAttribute(a, value)
	return nil
}

// Destroy releases the clone and removes the wrapper from its parent.
func (w *Wrap) Destroy() {
	if w.destroyed {
		return
	}
	w.detach()
	w.el.Remove()
	w.destroyed = true
}

func (w *Wrap) attach(src string) {
	w.src = src
	w.source = nil
	if src == "" {
		w.updateClass()
		return
	}

	s := w.manager.SourceFor(src)
	w.source = s
	w.clone = s.CreateClone(w.cloneAttrs())
	_ = w.el.AppendChild(w.clone.Element())

	w.unsubs = append(w.unsubs,
		s.Subscribe(imgmanager.EventSwapped, w.onSwapped),
		s.Subscribe(imgmanager.EventWillLoad, func(imgmanager.Event) { w.updateClass() }),
		s.Subscribe(imgmanager.EventReady, func(imgmanager.Event) { w.ready(s) }),
	)
	w.updateClass()

	if s.IsReady() {
		w.manager.Loop().Post(func() {
			if w.source == s && !w.destroyed {
				w.fireHook(s)
			}
		})
	}
	if w.visible || !w.manager.Options().LazyLoad {
		s.Request()
	}
}

func (w *Wrap) detach() {
	for _, unsub := range w.unsubs {
		unsub()
	}
	w.unsubs = nil
	if w.clone != nil && w.source != nil {
		_ = w.source.ReleaseClone(w.clone)
	}
	w.clone = nil
}

func (w *Wrap) cloneAttrs() imgmanager.Attrs {
	out := make(imgmanager.Attrs, len(w.attrs))
	for a, v := range w.attrs {
		out[a.String()] = v
	}
	return out
}

func (w *Wrap) onSwapped(ev imgmanager.Event) {
	if ev.Old == w.clone {
		w.clone = ev.New
	}
}

func (w *Wrap) ready(s *imgmanager.Source) {
	w.updateClass()
	w.fireHook(s)
}

func (w *Wrap) fireHook(s *imgmanager.Source) {
	switch {
	case s.IsSuccess() && w.onSuccess != nil:
		w.onSuccess(w, s)
	case s.IsError() && w.onError != nil:
		w.onError(w, s)
	}
}

func (w *Wrap) updateClass() {
	class := WrapClass
	opts := w.manager.Options()
	if s := w.source; s != nil {
		var state string
		switch {
		case s.IsLoading():
			state = opts.LoadingClass
		case s.IsError():
			state = opts.ErrorClass
		default:
			state = opts.SuccessClass
		}
		if state != "" {
			class += " " + state
		}
	}
	w.el.SetAttribute("class", class)
}
