package vcard

import (
	"sort"
	"strings"

	"github.com/sonroyaalmerol/caldav-core/pkg/foldline"
)

// canonicalOrder is vCard's fixed leading property ordering: VERSION
// first (mandated to be the first line after BEGIN:VCARD by RFC 6350
// §6.1.1), then FN, N and UID, with X- properties and anything unrecognized
// trailing in document order.
var canonicalOrder = []string{"VERSION", "FN", "N", "UID"}

// alwaysIncluded lists properties selective serialization must never
// drop even when the client's property list omits them.
var alwaysIncluded = []string{"VERSION", "FN", "UID"}

// Serialize renders a Card using canonical property ordering.
func Serialize(c *Card) []byte {
	return SerializeSelective(c, nil)
}

// Selector names the set of properties an address-data request asked
// for (RFC 6352 §10.4); a nil Selector or one with AllProp set returns
// every property, matching Serialize.
type Selector struct {
	AllProp bool
	Props   map[string]bool
}

// Include reports whether name passes sel, case-insensitively.
func (sel *Selector) Include(name string) bool {
	if sel == nil || sel.AllProp {
		return true
	}
	return sel.Props[strings.ToUpper(name)]
}

// SerializeSelective renders c, applying sel to decide which properties
// appear; properties named in alwaysIncluded are force-kept regardless
// of sel. A nil sel behaves identically to Serialize.
func SerializeSelective(c *Card, sel *Selector) []byte {
	var b strings.Builder
	b.WriteString(foldline.Fold("BEGIN:VCARD"))
	b.WriteString("\r\n")

	included := func(p *Property) bool {
		for _, r := range alwaysIncluded {
			if equalFoldASCII(p.Name, r) {
				return true
			}
		}
		return sel.Include(p.Name)
	}

	written := make(map[*Property]bool)
	for _, wanted := range canonicalOrder {
		for _, p := range c.Properties {
			if equalFoldASCII(p.Name, wanted) && !written[p] && included(p) {
				writeProperty(&b, p)
				written[p] = true
			}
		}
	}
	rest := make([]*Property, 0, len(c.Properties))
	for _, p := range c.Properties {
		if !written[p] && included(p) {
			rest = append(rest, p)
		}
	}
	sort.SliceStable(rest, func(i, j int) bool { return rest[i].Position < rest[j].Position })
	for _, p := range rest {
		writeProperty(&b, p)
		written[p] = true
	}

	b.WriteString(foldline.Fold("END:VCARD"))
	b.WriteString("\r\n")
	return []byte(b.String())
}

func writeProperty(b *strings.Builder, p *Property) {
	var line strings.Builder
	if p.Group != "" {
		line.WriteString(p.Group)
		line.WriteByte('.')
	}
	line.WriteString(p.Name)
	for _, param := range p.Params {
		line.WriteByte(';')
		line.WriteString(param.Name)
		line.WriteByte('=')
		for vi, v := range param.Values {
			if vi > 0 {
				line.WriteByte(',')
			}
			if strings.ContainsAny(v, ":;,\"") {
				line.WriteByte('"')
				line.WriteString(v)
				line.WriteByte('"')
			} else {
				line.WriteString(v)
			}
		}
	}
	line.WriteByte(':')
	line.WriteString(p.Raw)
	b.WriteString(foldline.Fold(line.String()))
	b.WriteString("\r\n")
}
