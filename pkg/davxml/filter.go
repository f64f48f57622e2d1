package davxml

import "encoding/xml"

// TextMatch is RFC 4791/6352's text-match element: a literal or
// substring match against a property/parameter value, with a collation,
// a match type, and an optional negate-condition flag. Evaluation lives
// in internal/filter; this package only carries the parsed request
// shape.
type TextMatch struct {
	Value           string `xml:",chardata"`
	Collation       string `xml:"collation,attr,omitempty"`
	MatchType       string `xml:"match-type,attr,omitempty"` // contains (default), equals, starts-with, ends-with
	NegateCondition string `xml:"negate-condition,attr,omitempty"`
}

func (t TextMatch) Negated() bool { return t.NegateCondition == "yes" }

// ParamFilter matches a single property parameter.
type ParamFilter struct {
	Name       string     `xml:"name,attr"`
	IsNotDefined *struct{} `xml:"is-not-defined,omitempty"`
	TextMatch  *TextMatch `xml:"text-match,omitempty"`
}

// PropFilter matches a single property within a component.
type PropFilter struct {
	Name         string        `xml:"name,attr"`
	Test         string        `xml:"test,attr,omitempty"` // "anyof" (default) or "allof"
	IsNotDefined *struct{}     `xml:"is-not-defined,omitempty"`
	TimeRange    *TimeRange    `xml:"time-range,omitempty"`
	TextMatch    *TextMatch    `xml:"text-match,omitempty"`
	ParamFilter  []ParamFilter `xml:"param-filter,omitempty"`
}

// TimeRange is a CalDAV time-range element; Start/End are raw UTC
// DATE-TIME strings (form "20060102T150405Z"), either of which may be
// absent for an open-ended range.
type TimeRange struct {
	Start string `xml:"start,attr,omitempty"`
	End   string `xml:"end,attr,omitempty"`
}

// CompFilter matches a calendar component, recursively.
type CompFilter struct {
	Name         string        `xml:"name,attr"`
	IsNotDefined *struct{}     `xml:"is-not-defined,omitempty"`
	TimeRange    *TimeRange    `xml:"time-range,omitempty"`
	CompFilter   []CompFilter  `xml:"comp-filter,omitempty"`
	PropFilter   []PropFilter  `xml:"prop-filter,omitempty"`
}

// CalendarFilter is the top-level <C:filter> element of a calendar-query
// REPORT; RFC 4791 requires exactly one top-level comp-filter (always
// VCALENDAR).
type CalendarFilter struct {
	CompFilter CompFilter `xml:"urn:ietf:params:xml:ns:caldav comp-filter"`
}

// AddressbookFilter is the top-level <CARD:filter> element of an
// addressbook-query REPORT: a flat list of prop-filters against the
// vCard object with its own test=anyof|allof combination.
type AddressbookFilter struct {
	Test       string       `xml:"test,attr,omitempty"`
	PropFilter []PropFilter `xml:"urn:ietf:params:xml:ns:carddav prop-filter,omitempty"`
}

// PropContainer collects the set of requested properties under DAV:prop,
// as used by PROPFIND and every REPORT that embeds a <prop> selector.
// Since the exact property set varies by request and this server must
// distinguish "known, absent" from "unknown, ignore" names, Names keeps
// every child element's resolved xml.Name rather than decoding into Prop
// directly. The calendar-data/address-data children are the exception:
// their nested comp/prop selector tree (RFC 4791 §9.6.1) is decoded in
// full rather than skipped, so callers can drive selective serialization.
type PropContainer struct {
	XMLName      xml.Name
	Names        []xml.Name           `xml:"-"`
	CalendarData *CalendarDataSelector `xml:"-"`
	AddressData  *AddressDataSelector  `xml:"-"`
}

func (p *PropContainer) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	p.XMLName = start.Name
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			p.Names = append(p.Names, t.Name)
			switch t.Name.Local {
			case "calendar-data":
				var sel CalendarDataSelector
				if err := d.DecodeElement(&sel, &t); err != nil {
					return err
				}
				p.CalendarData = &sel
			case "address-data":
				var sel AddressDataSelector
				if err := d.DecodeElement(&sel, &t); err != nil {
					return err
				}
				p.AddressData = &sel
			default:
				if err := d.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			return nil
		}
	}
}

// CalendarDataSelector is the comp/prop selector tree nested inside a
// requested <C:calendar-data> element (RFC 4791 §9.6.1): which
// components and properties of the stored VCALENDAR to return, rather
// than the whole object.
type CalendarDataSelector struct {
	Comp *DataComp `xml:"urn:ietf:params:xml:ns:caldav comp,omitempty"`
}

// DataComp is one <C:comp> node of a calendar-data selector tree.
type DataComp struct {
	Name    string     `xml:"name,attr"`
	AllComp *struct{}  `xml:"urn:ietf:params:xml:ns:caldav allcomp,omitempty"`
	AllProp *struct{}  `xml:"urn:ietf:params:xml:ns:caldav allprop,omitempty"`
	Comp    []DataComp `xml:"urn:ietf:params:xml:ns:caldav comp,omitempty"`
	Prop    []DataProp `xml:"urn:ietf:params:xml:ns:caldav prop,omitempty"`
}

// DataProp names one property within a DataComp's selection.
type DataProp struct {
	Name string `xml:"name,attr"`
}

// AddressDataSelector is the flat prop selector nested inside a
// requested <CARD:address-data> element (RFC 6352 §10.4): vCard has no
// component nesting, so this is just a property name list or allprop.
type AddressDataSelector struct {
	AllProp *struct{}  `xml:"urn:ietf:params:xml:ns:carddav allprop,omitempty"`
	Prop    []DataProp `xml:"urn:ietf:params:xml:ns:carddav prop,omitempty"`
}

// Has reports whether name (local name only, namespace-agnostic) was
// requested.
func (p *PropContainer) Has(local string) bool {
	for _, n := range p.Names {
		if n.Local == local {
			return true
		}
	}
	return false
}

// Expand is CalDAV's (RFC 4791) <C:expand> REPORT modifier requesting
// server-side recurrence expansion between start and end.
type Expand struct {
	Start string `xml:"start,attr"`
	End   string `xml:"end,attr"`
}

// LimitRecurrenceSet bounds which overridden instances accompany the
// master object in a calendar-query response.
type LimitRecurrenceSet struct {
	Start string `xml:"start,attr"`
	End   string `xml:"end,attr"`
}
