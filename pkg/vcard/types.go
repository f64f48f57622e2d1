// Package vcard implements an RFC 6350 (vCard 4.0) / RFC 2426 (vCard 3.0)
// parser and canonical serializer, sharing pkg/foldline's line folding
// engine with pkg/icalendar but with its own escaping rules: unlike
// iCalendar, vCard never escapes ':' inside a value, and a backslash
// before an unrecognized character is dropped rather than kept.
package vcard

// Parameter is a single property parameter (e.g. TYPE=work).
type Parameter struct {
	Name   string
	Values []string
}

// Property is one vCard content line: name, parameters, and raw
// (unescaped) value text.
type Property struct {
	Name     string
	Group    string // optional "group." prefix before the property name
	Params   []*Parameter
	Raw      string
	Position int
}

// Card is a single vCard object — vCard has no nested component tree,
// just a flat property list between BEGIN:VCARD and END:VCARD.
type Card struct {
	Properties []*Property
}

// AddProperty appends a property, recording its document position for
// stable unknown/X- property round-tripping.
func (c *Card) AddProperty(p *Property) {
	p.Position = len(c.Properties)
	c.Properties = append(c.Properties, p)
}

// Get returns the first property with the given name (case-insensitive).
func (c *Card) Get(name string) *Property {
	for _, p := range c.Properties {
		if equalFoldASCII(p.Name, name) {
			return p
		}
	}
	return nil
}

// GetAll returns every property with the given name, in document order.
func (c *Card) GetAll(name string) []*Property {
	var out []*Property
	for _, p := range c.Properties {
		if equalFoldASCII(p.Name, name) {
			out = append(out, p)
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
