package davxml

import "encoding/xml"

// CalendarQuery is the CalDAV calendar-query REPORT body (RFC 4791 §7.8).
type CalendarQuery struct {
	XMLName             xml.Name             `xml:"urn:ietf:params:xml:ns:caldav calendar-query"`
	Prop                *PropContainer       `xml:"DAV: prop,omitempty"`
	AllProp             *struct{}            `xml:"DAV: allprop,omitempty"`
	Filter              CalendarFilter       `xml:"urn:ietf:params:xml:ns:caldav filter"`
	Expand              *Expand              `xml:"urn:ietf:params:xml:ns:caldav expand,omitempty"`
	LimitRecurrenceSet  *LimitRecurrenceSet  `xml:"urn:ietf:params:xml:ns:caldav limit-recurrence-set,omitempty"`
	Timezone            string               `xml:"urn:ietf:params:xml:ns:caldav timezone,omitempty"`
}

// CalendarMultiget is the CalDAV calendar-multiget REPORT body (RFC 4791
// §7.9).
type CalendarMultiget struct {
	XMLName xml.Name       `xml:"urn:ietf:params:xml:ns:caldav calendar-multiget"`
	Prop    *PropContainer `xml:"DAV: prop,omitempty"`
	AllProp *struct{}      `xml:"DAV: allprop,omitempty"`
	Hrefs   []string       `xml:"DAV: href"`
	Expand  *Expand        `xml:"urn:ietf:params:xml:ns:caldav expand,omitempty"`
}

// AddressbookQuery is the CardDAV addressbook-query REPORT body (RFC
// 6352 §8.6).
type AddressbookQuery struct {
	XMLName xml.Name          `xml:"urn:ietf:params:xml:ns:carddav addressbook-query"`
	Prop    *PropContainer    `xml:"DAV: prop,omitempty"`
	AllProp *struct{}         `xml:"DAV: allprop,omitempty"`
	Filter  AddressbookFilter `xml:"urn:ietf:params:xml:ns:carddav filter"`
	Limit   *AddressbookLimit `xml:"urn:ietf:params:xml:ns:carddav limit,omitempty"`
}

type AddressbookLimit struct {
	NResults int `xml:"urn:ietf:params:xml:ns:carddav nresults"`
}

// AddressbookMultiget is the CardDAV addressbook-multiget REPORT body
// (RFC 6352 §8.7).
type AddressbookMultiget struct {
	XMLName xml.Name       `xml:"urn:ietf:params:xml:ns:carddav addressbook-multiget"`
	Prop    *PropContainer `xml:"DAV: prop,omitempty"`
	AllProp *struct{}      `xml:"DAV: allprop,omitempty"`
	Hrefs   []string       `xml:"DAV: href"`
}

// SyncCollection is the WebDAV sync-collection REPORT body (RFC 6578
// §3.2). An empty SyncToken requests an initial sync.
type SyncCollection struct {
	XMLName   xml.Name       `xml:"DAV: sync-collection"`
	SyncToken string         `xml:"DAV: sync-token"`
	SyncLevel string         `xml:"DAV: sync-level,omitempty"`
	Limit     *SyncLimit     `xml:"DAV: limit,omitempty"`
	Prop      *PropContainer `xml:"DAV: prop,omitempty"`
}

type SyncLimit struct {
	NResults int `xml:"DAV: nresults"`
}

// ExpandProperty is the WebDAV expand-property REPORT body (RFC 3253
// §3.8, reused by CalDAV/CardDAV clients to resolve group-membership
// hrefs in one round trip).
type ExpandProperty struct {
	XMLName  xml.Name            `xml:"DAV: expand-property"`
	Property []ExpandPropertyRef `xml:"DAV: property"`
}

type ExpandPropertyRef struct {
	Name     string              `xml:"name,attr"`
	Namespace string             `xml:"namespace,attr,omitempty"`
	Property []ExpandPropertyRef `xml:"DAV: property,omitempty"`
}

// PropertyUpdate is the PROPPATCH request body (RFC 4918 §9.2).
type PropertyUpdate struct {
	XMLName xml.Name          `xml:"DAV: propertyupdate"`
	Set     []PropertyUpdateOp `xml:"DAV: set"`
	Remove  []PropertyUpdateOp `xml:"DAV: remove"`
}

type PropertyUpdateOp struct {
	Prop PropContainer `xml:"DAV: prop"`
}

// PropFind is the PROPFIND request body (RFC 4918 §9.1). A nil body
// (zero PropFind) is equivalent to AllProp per RFC 4918 §9.1's default.
type PropFind struct {
	XMLName  xml.Name       `xml:"DAV: propfind"`
	AllProp  *struct{}      `xml:"DAV: allprop,omitempty"`
	PropName *struct{}      `xml:"DAV: propname,omitempty"`
	Prop     *PropContainer `xml:"DAV: prop,omitempty"`
}

// MkCalendar is the MKCALENDAR request body (RFC 4791 §5.3.1).
type MkCalendar struct {
	XMLName xml.Name           `xml:"urn:ietf:params:xml:ns:caldav mkcalendar"`
	Set     []PropertyUpdateOp `xml:"DAV: set"`
}

// MkCol is the generic MKCOL request body (RFC 5689), used here for
// MKCOL-with-resourcetype addressbook creation.
type MkCol struct {
	XMLName xml.Name           `xml:"DAV: mkcol"`
	Set     []PropertyUpdateOp `xml:"DAV: set"`
}
