// Package dom is a minimal element tree: tags, ordered attributes, and
// parent/child links. It stands in for the document the image pool mounts its
// elements into; renderers walk it to draw the current state.
package dom

import "errors"

var (
	// ErrNotChild indicates the reference node is not a child of the parent
	ErrNotChild = errors.New("dom: node is not a child of this element")

	// ErrCycle indicates an element would become its own ancestor
	ErrCycle = errors.New("dom: element cannot contain its ancestor")
)

// Attr is a single name/value attribute.
type Attr struct {
	Name  string
	Value string
}

// Element is a node in the tree. The zero value is not usable; use New.
type Element struct {
	tag      string
	attrs    []Attr
	parent   *Element
	children []*Element
}

// New creates a detached element.
func New(tag string) *Element {
	return &Element{tag: tag}
}

// Tag returns the element's tag name.
func (e *Element) Tag() string { return e.tag }

// Parent returns the containing element, nil when detached.
func (e *Element) Parent() *Element { return e.parent }

// Children returns a copy of the child list.
func (e *Element) Children() []*Element {
	if len(e.children) == 0 {
		return nil
	}
	out := make([]*Element, len(e.children))
	copy(out, e.children)
	return out
}

// ChildCount returns the number of children.
func (e *Element) ChildCount() int { return len(e.children) }

// FirstChild returns the first child or nil.
func (e *Element) FirstChild() *Element {
	if len(e.children) == 0 {
		return nil
	}
	return e.children[0]
}

// Attribute returns the named attribute value.
func (e *Element) Attribute(name string) (string, bool) {
	for _, a := range e.attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// HasAttribute reports whether name is set.
func (e *Element) HasAttribute(name string) bool {
	_, ok := e.Attribute(name)
	return ok
}

// SetAttribute sets name, keeping its position if already present.
func (e *Element) SetAttribute(name, value string) {
	for i := range e.attrs {
		if e.attrs[i].Name == name {
			e.attrs[i].Value = value
			return
		}
	}
	e.attrs = append(e.attrs, Attr{Name: name, Value: value})
}

// RemoveAttribute deletes name and reports whether it was present.
func (e *Element) RemoveAttribute(name string) bool {
	for i, a := range e.attrs {
		if a.Name == name {
			e.attrs = append(e.attrs[:i], e.attrs[i+1:]...)
			return true
		}
	}
	return false
}

// Attributes returns a copy of the attributes in insertion order.
func (e *Element) Attributes() []Attr {
	if len(e.attrs) == 0 {
		return nil
	}
	out := make([]Attr, len(e.attrs))
	copy(out, e.attrs)
	return out
}

// Clone returns a detached shallow copy: same tag and attributes, no children.
func (e *Element) Clone() *Element {
	return &Element{tag: e.tag, attrs: e.Attributes()}
}

// AppendChild moves child to the end of e's children, detaching it from any
// previous parent.
func (e *Element) AppendChild(child *Element) error {
	if child.contains(e) {
		return ErrCycle
	}
	child.Remove()
	child.parent = e
	e.children = append(e.children, child)
	return nil
}

// RemoveChild detaches child from e.
func (e *Element) RemoveChild(child *Element) error {
	i := e.indexOf(child)
	if i < 0 {
		return ErrNotChild
	}
	e.children = append(e.children[:i], e.children[i+1:]...)
	child.parent = nil
	return nil
}

// ReplaceChild puts replacement where old was and detaches old.
func (e *Element) ReplaceChild(replacement, old *Element) error {
	if replacement == old {
		return nil
	}
	if e.indexOf(old) < 0 {
		return ErrNotChild
	}
	if replacement.contains(e) {
		return ErrCycle
	}
	replacement.Remove()
	i := e.indexOf(old)
	e.children[i] = replacement
	replacement.parent = e
	old.parent = nil
	return nil
}

// Remove detaches e from its parent, if any.
func (e *Element) Remove() {
	if e.parent != nil {
		_ = e.parent.RemoveChild(e)
	}
}

func (e *Element) indexOf(child *Element) int {
	for i, c := range e.children {
		if c == child {
			return i
		}
	}
	return -1
}

// contains reports whether other is e or one of its descendants.
func (e *Element) contains(other *Element) bool {
	for n := other; n != nil; n = n.parent {
		if n == e {
			return true
		}
	}
	return false
}
