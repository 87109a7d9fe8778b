package imgmanager

import (
	"errors"
	"log/slog"
	"sort"

	"github.com/mmcdole/imgwall/internal/dom"
)

// KeyAttribute is the attribute a clone's pool key is stored in.
const KeyAttribute = "src"

// ErrAlreadyFree indicates a clone was released twice
var ErrAlreadyFree = errors.New("imgmanager: clone is already free")

// Attrs are consumer attributes applied to a clone. The key attribute is
// ignored, as are empty values.
type Attrs map[string]string

// Clone is a pooled image element. A clone is either in use by exactly one
// consumer or parked on its key's free list.
type Clone struct {
	id        int
	el        *dom.Element
	key       string
	attrNames []string
	free      bool
}

// ID is unique per clone for the lifetime of its pool.
func (c *Clone) ID() int { return c.id }

// Element returns the element to mount.
func (c *Clone) Element() *dom.Element { return c.el }

// Key returns the pool key, which is also the element's src.
func (c *Clone) Key() string { return c.key }

// AttributeNames returns the consumer attributes currently set, in the order
// they were first set.
func (c *Clone) AttributeNames() []string {
	return append([]string(nil), c.attrNames...)
}

// Free reports whether the clone is parked on a free list.
func (c *Clone) Free() bool { return c.free }

func (c *Clone) track(name string) {
	for _, n := range c.attrNames {
		if n == name {
			return
		}
	}
	c.attrNames = append(c.attrNames, name)
}

func (c *Clone) untrack(name string) {
	for i, n := range c.attrNames {
		if n == name {
			c.attrNames = append(c.attrNames[:i], c.attrNames[i+1:]...)
			return
		}
	}
}

// Pool hands out and recycles image elements keyed by resolved source.
// Unused elements are parked under an offscreen holder element. All methods
// must be called on the event loop.
type Pool struct {
	logger *slog.Logger
	holder *dom.Element
	bare   map[string]*dom.Element
	free   map[string][]*Clone

	created map[string]int
	nextID  int
	hits    int
	used    int
	freeN   int
}

// NewPool creates an empty pool.
func NewPool(logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		logger:  logger,
		holder:  dom.New("div"),
		bare:    make(map[string]*dom.Element),
		free:    make(map[string][]*Clone),
		created: make(map[string]int),
	}
}

// Holder returns the offscreen element unused clones are parked in.
func (p *Pool) Holder() *dom.Element { return p.holder }

// Hits returns the number of clones handed out, reused or fresh.
func (p *Pool) Hits() int { return p.hits }

// Used returns the number of clones currently in use.
func (p *Pool) Used() int { return p.used }

// FreeTotal returns the number of parked clones across all keys.
func (p *Pool) FreeTotal() int { return p.freeN }

// FreeCount returns the number of parked clones for key.
func (p *Pool) FreeCount(key string) int { return len(p.free[key]) }

// Created returns how many elements were ever fabricated for key.
func (p *Pool) Created(key string) int { return p.created[key] }

// CloneFor returns a clone for key with attrs applied. Attribute names are
// applied in sorted order; an empty value is still set.
func (p *Pool) CloneFor(key string, attrs Attrs) *Clone {
	c := p.acquire(key)
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		if name == KeyAttribute {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c.el.SetAttribute(name, attrs[name])
		c.track(name)
	}
	return c
}

// cloneMoving returns a clone for key carrying from's consumer attributes,
// which are removed from from.
func (p *Pool) cloneMoving(from *Clone, key string) *Clone {
	c := p.acquire(key)
	for _, name := range from.attrNames {
		if value, ok := from.el.Attribute(name); ok {
			c.el.SetAttribute(name, value)
			c.track(name)
		}
		from.el.RemoveAttribute(name)
	}
	from.attrNames = nil
	return c
}

func (p *Pool) acquire(key string) *Clone {
	var c *Clone
	if list := p.free[key]; len(list) > 0 {
		c = list[0]
		list[0] = nil
		p.free[key] = list[1:]
		c.free = false
		p.freeN--
	} else {
		el := p.bareNode(key).Clone()
		_ = p.holder.AppendChild(el)
		p.nextID++
		p.created[key]++
		c = &Clone{id: p.nextID, el: el, key: key}
	}
	p.used++
	p.hits++
	return c
}

func (p *Pool) bareNode(key string) *dom.Element {
	if el, ok := p.bare[key]; ok {
		return el
	}
	el := dom.New("img")
	if key != "" {
		el.SetAttribute(KeyAttribute, key)
	}
	p.bare[key] = el
	return el
}

// SetAttribute sets a consumer attribute and returns the clone now in use.
// Setting the key attribute swaps the clone.
func (p *Pool) SetAttribute(c *Clone, name, value string) *Clone {
	if name == KeyAttribute {
		return p.Swap(c, value)
	}
	c.el.SetAttribute(name, value)
	c.track(name)
	return c
}

// RemoveAttribute removes a consumer attribute and returns the clone now in
// use. Removing the key attribute swaps to the empty key.
func (p *Pool) RemoveAttribute(c *Clone, name string) *Clone {
	if name == KeyAttribute {
		return p.Swap(c, "")
	}
	c.el.RemoveAttribute(name)
	c.untrack(name)
	return c
}

// Release strips c's consumer attributes and parks it on its key's free list.
func (p *Pool) Release(c *Clone) error {
	if c.free {
		p.logger.Warn("releasing a clone that is already free", "key", c.key, "clone", c.id)
		return ErrAlreadyFree
	}
	for _, name := range c.attrNames {
		c.el.RemoveAttribute(name)
	}
	c.attrNames = nil
	_ = p.holder.AppendChild(c.el)
	c.free = true
	p.free[c.key] = append(p.free[c.key], c)
	p.freeN++
	p.used--
	return nil
}

// Swap replaces c with a clone for newKey, carrying c's consumer attributes
// and taking c's place in its parent. c is released. It returns c unchanged
// when the key already matches.
func (p *Pool) Swap(c *Clone, newKey string) *Clone {
	if c.key == newKey {
		return c
	}
	if c.free {
		p.logger.Warn("swapping a free clone", "key", c.key, "clone", c.id)
		return c
	}
	replacement := p.cloneMoving(c, newKey)
	if parent := c.el.Parent(); parent != nil {
		if err := parent.ReplaceChild(replacement.el, c.el); err != nil {
			p.logger.Warn("failed to replace clone", "error", err)
		}
	}
	_ = p.Release(c)
	return replacement
}
