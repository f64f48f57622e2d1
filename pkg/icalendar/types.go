// Package icalendar implements an RFC 5545 iCalendar parser and canonical
// serializer: line unfolding, the component/property/parameter tree,
// RFC 6868 parameter encoding, typed value parsing, and a 75-octet
// UTF-8-safe folding serializer with selective (partial) output.
package icalendar

// Parameter is a single property parameter. Names are compared
// case-insensitively by callers but preserved here exactly as received,
// per spec.md's round-trip-fidelity requirement.
type Parameter struct {
	Name   string
	Values []string
}

// Property is one name/parameters/value triple. Raw holds the value
// text exactly as it appeared after the colon, with folding already
// removed but before any escape/typed decoding — decoding is performed
// on demand by the Value* accessors so that callers that only need to
// round-trip a property never pay for parsing they don't use.
type Property struct {
	Name   string
	Params []*Parameter
	Raw    string
	// Position preserves the order properties appeared in within their
	// component, used by opaque (unrecognized) property passthrough.
	Position int
}

// Component is a node in the parsed tree: VCALENDAR, VEVENT, VTIMEZONE,
// STANDARD, DAYLIGHT, or any opaque/unknown component name.
type Component struct {
	Name       string
	Parent     *Component
	Children   []*Component
	Properties []*Property
}

// NewComponent creates a detached component node.
func NewComponent(name string) *Component {
	return &Component{Name: name}
}

// AddChild appends a child component, wiring its Parent pointer.
func (c *Component) AddChild(child *Component) {
	child.Parent = c
	c.Children = append(c.Children, child)
}

// AddProperty appends a property, recording its original sibling
// position for stable opaque round-tripping.
func (c *Component) AddProperty(p *Property) {
	p.Position = len(c.Properties)
	c.Properties = append(c.Properties, p)
}

// Get returns the first property with the given name (case-insensitive),
// or nil.
func (c *Component) Get(name string) *Property {
	for _, p := range c.Properties {
		if equalFoldASCII(p.Name, name) {
			return p
		}
	}
	return nil
}

// GetAll returns every property with the given name, in document order.
func (c *Component) GetAll(name string) []*Property {
	var out []*Property
	for _, p := range c.Properties {
		if equalFoldASCII(p.Name, name) {
			out = append(out, p)
		}
	}
	return out
}

// ChildrenNamed returns every direct child component with the given
// name (case-insensitive).
func (c *Component) ChildrenNamed(name string) []*Component {
	var out []*Component
	for _, ch := range c.Children {
		if equalFoldASCII(ch.Name, name) {
			out = append(out, ch)
		}
	}
	return out
}

// Param returns the first value of the named parameter, or "".
func (p *Property) Param(name string) string {
	for _, pa := range p.Params {
		if equalFoldASCII(pa.Name, name) {
			if len(pa.Values) > 0 {
				return pa.Values[0]
			}
			return ""
		}
	}
	return ""
}

// ParamValues returns all values of the named parameter.
func (p *Property) ParamValues(name string) []string {
	for _, pa := range p.Params {
		if equalFoldASCII(pa.Name, name) {
			return pa.Values
		}
	}
	return nil
}

func equalFoldASCII(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'a' <= ca && ca <= 'z' {
			ca -= 32
		}
		if 'a' <= cb && cb <= 'z' {
			cb -= 32
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// Calendar is the top-level parsed object: exactly one VCALENDAR root per
// spec.md's invariant.
type Calendar struct {
	Root *Component
}

// Selector describes which components and properties a selective
// serialization should include at each tree level, per spec.md §4.1.2.
// A nil Selector means "include everything".
type Selector struct {
	AllComps bool
	AllProps bool
	Comps    map[string]*Selector
	Props    map[string]bool
}

// Include reports whether the given property name passes this selector.
func (s *Selector) Include(name string) bool {
	if s == nil || s.AllProps {
		return true
	}
	return s.Props[normalizeName(name)]
}

// ChildSelector returns the selector to apply to a child component named
// name, or nil (meaning: include everything) if this selector admits all
// components or has no entry for this name but AllComps is set.
func (s *Selector) ChildSelector(name string) (*Selector, bool) {
	if s == nil {
		return nil, true
	}
	if sub, ok := s.Comps[normalizeName(name)]; ok {
		return sub, true
	}
	if s.AllComps {
		return nil, true
	}
	return nil, false
}

func normalizeName(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'a' <= c && c <= 'z' {
			b[i] = c - 32
		}
	}
	return string(b)
}
