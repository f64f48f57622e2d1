package icalendar

import (
	"sort"
	"strings"

	"github.com/sonroyaalmerol/caldav-core/pkg/foldline"
)

// vcalendarOrder is the fixed property ordering spec.md §4.1.2 requires
// for the VCALENDAR component itself: PRODID, VERSION, CALSCALE, METHOD,
// then everything else in document order.
var vcalendarOrder = []string{"PRODID", "VERSION", "CALSCALE", "METHOD"}

// vObjectOrder is the fixed leading ordering for VEVENT/VTODO/VJOURNAL:
// UID and DTSTAMP first (both are force-included by selective
// serialization regardless of the requested property set), then
// everything else in document order.
var vObjectOrder = []string{"UID", "DTSTAMP"}

// alwaysIncluded lists properties selective serialization must never
// drop even when the client's PROP list omits them, keyed by component
// name.
var alwaysIncluded = map[string][]string{
	"VCALENDAR": {"VERSION", "PRODID"},
	"VEVENT":    {"UID", "DTSTAMP"},
	"VTODO":     {"UID", "DTSTAMP"},
	"VJOURNAL":  {"UID", "DTSTAMP"},
}

// Serialize renders a full Calendar with no selection (every component
// and property included).
func Serialize(cal *Calendar) []byte {
	return SerializeSelective(cal, nil)
}

// SerializeSelective renders cal, applying sel to decide which
// components/properties appear; properties named in alwaysIncluded are
// force-kept regardless of sel, while child components always follow
// sel. A nil sel behaves
// identically to Serialize.
func SerializeSelective(cal *Calendar, sel *Selector) []byte {
	var b strings.Builder
	writeComponent(&b, cal.Root, sel, true)
	return []byte(b.String())
}

func writeComponent(b *strings.Builder, c *Component, sel *Selector, top bool) {
	b.WriteString(foldline.Fold("BEGIN:" + c.Name))
	b.WriteString("\r\n")

	required := alwaysIncluded[strings.ToUpper(c.Name)]
	order := orderingFor(c.Name)

	written := make(map[*Property]bool)

	writeIfIncluded := func(p *Property) {
		if written[p] {
			return
		}
		name := strings.ToUpper(p.Name)
		forced := false
		for _, r := range required {
			if r == name {
				forced = true
				break
			}
		}
		if forced || sel.Include(p.Name) {
			writeProperty(b, p)
			written[p] = true
		}
	}

	for _, wanted := range order {
		for _, p := range c.Properties {
			if strings.ToUpper(p.Name) == wanted {
				writeIfIncluded(p)
			}
		}
	}
	for _, p := range c.Properties {
		writeIfIncluded(p)
	}

	children := orderedChildren(c)
	for _, child := range children {
		childSel, ok := sel.ChildSelector(child.Name)
		if sel != nil && !ok {
			continue
		}
		writeComponent(b, child, childSel, false)
	}

	b.WriteString(foldline.Fold("END:" + c.Name))
	b.WriteString("\r\n")
}

func orderingFor(name string) []string {
	switch strings.ToUpper(name) {
	case "VCALENDAR":
		return vcalendarOrder
	case "VEVENT", "VTODO", "VJOURNAL":
		return vObjectOrder
	default:
		return nil
	}
}

// orderedChildren sorts VCALENDAR's children so VTIMEZONE blocks come
// first, followed by the remaining components ordered by UID then by
// RECURRENCE-ID (the master instance, with no RECURRENCE-ID, sorts
// first within a UID group).
func orderedChildren(c *Component) []*Component {
	if !equalFoldASCII(c.Name, "VCALENDAR") {
		return c.Children
	}
	out := make([]*Component, len(c.Children))
	copy(out, c.Children)

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		aTZ := equalFoldASCII(a.Name, "VTIMEZONE")
		bTZ := equalFoldASCII(b.Name, "VTIMEZONE")
		if aTZ != bTZ {
			return aTZ
		}
		if aTZ && bTZ {
			return false
		}
		aUID, bUID := propValue(a, "UID"), propValue(b, "UID")
		if aUID != bUID {
			return aUID < bUID
		}
		aRID, bRID := propValue(a, "RECURRENCE-ID"), propValue(b, "RECURRENCE-ID")
		if aRID == "" {
			return bRID != ""
		}
		if bRID == "" {
			return false
		}
		return aRID < bRID
	})
	return out
}

func propValue(c *Component, name string) string {
	if p := c.Get(name); p != nil {
		return p.Raw
	}
	return ""
}

func writeProperty(b *strings.Builder, p *Property) {
	var line strings.Builder
	line.WriteString(p.Name)
	for _, param := range p.Params {
		line.WriteByte(';')
		line.WriteString(param.Name)
		line.WriteByte('=')
		for vi, v := range param.Values {
			if vi > 0 {
				line.WriteByte(',')
			}
			enc := EncodeParamValue(v)
			if NeedsQuoting(v) {
				line.WriteByte('"')
				line.WriteString(enc)
				line.WriteByte('"')
			} else {
				line.WriteString(enc)
			}
		}
	}
	line.WriteByte(':')
	line.WriteString(p.Raw)
	b.WriteString(foldline.Fold(line.String()))
	b.WriteString("\r\n")
}
