package imgwrap

import (
	"errors"
	"fmt"
)

// ErrUnknownAttribute indicates a name outside the forwarded attribute set
var ErrUnknownAttribute = errors.New("imgwrap: attribute is not forwarded to images")

// Attribute is an image attribute a wrap forwards to its clone.
type Attribute int

const (
	AttrID Attribute = iota
	AttrTitle
	AttrAlign
	AttrAlt
	AttrBorder
	AttrHeight
	AttrHspace
	AttrIsmap
	AttrLongdesc
	AttrName
	AttrWidth
	AttrUsemap
	AttrVspace
	numAttributes
)

var attributeNames = [numAttributes]string{
	AttrID:       "id",
	AttrTitle:    "title",
	AttrAlign:    "align",
	AttrAlt:      "alt",
	AttrBorder:   "border",
	AttrHeight:   "height",
	AttrHspace:   "hspace",
	AttrIsmap:    "ismap",
	AttrLongdesc: "longdesc",
	AttrName:     "name",
	AttrWidth:    "width",
	AttrUsemap:   "usemap",
	AttrVspace:   "vspace",
}

var attributesByName = func() map[string]Attribute {
	m := make(map[string]Attribute, numAttributes)
	for a, name := range attributeNames {
		m[name] = Attribute(a)
	}
	return m
}()

func (a Attribute) String() string {
	if a < 0 || a >= numAttributes {
		return fmt.Sprintf("Attribute(%d)", int(a))
	}
	return attributeNames[a]
}

// ParseAttribute maps an attribute name to its Attribute.
func ParseAttribute(name string) (Attribute, error) {
	a, ok := attributesByName[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownAttribute, name)
	}
	return a, nil
}

// Attributes returns every forwarded attribute in declaration order.
func Attributes() []Attribute {
	out := make([]Attribute, numAttributes)
	for i := range out {
		out[i] = Attribute(i)
	}
	return out
}
