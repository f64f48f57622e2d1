// Package davxml implements the WebDAV (RFC 4918), CalDAV (RFC 4791),
// CardDAV (RFC 6352), and Sync Collection (RFC 6578) XML wire model:
// request bodies for PROPFIND/PROPPATCH/REPORT, the multistatus response
// builder, and precondition error rendering. Grounded on the teacher's
// internal/dav/common/types.go encoding/xml struct-tag model, extended
// with the property-filter/param-filter/text-match grammar and the
// addressbook-query/expand-property/sync-collection report bodies the
// teacher's handlers construct ad hoc rather than through a shared type.
package davxml

import "encoding/xml"

const (
	NSDAV     = "DAV:"
	NSCalDAV  = "urn:ietf:params:xml:ns:caldav"
	NSCardDAV = "urn:ietf:params:xml:ns:carddav"
	NSCS      = "http://calendarserver.org/ns/"
)

// MultiStatus is the root of every 207 Multi-Status response body.
type MultiStatus struct {
	XMLName   xml.Name   `xml:"DAV: multistatus"`
	XmlnsD    string     `xml:"xmlns:D,attr,omitempty"`
	XmlnsC    string     `xml:"xmlns:C,attr,omitempty"`
	XmlnsCard string     `xml:"xmlns:CARD,attr,omitempty"`
	XmlnsCS   string     `xml:"xmlns:CS,attr,omitempty"`
	Responses []Response `xml:"response"`
	SyncToken string     `xml:"DAV: sync-token,omitempty"`
}

// Response is one <DAV:response> element: either a normal href with one
// or more propstat blocks, or (for sync-collection truncation/removed
// members) a bare status.
type Response struct {
	Href     string     `xml:"href"`
	PropStat []PropStat `xml:"propstat,omitempty"`
	Status   string     `xml:"status,omitempty"`
	Error    *DAVError  `xml:"error,omitempty"`
}

type PropStat struct {
	Prop   Prop   `xml:"prop"`
	Status string `xml:"status"`
}

// Href wraps a single href chardata element.
type Href struct {
	Value string `xml:",chardata"`
}

// Hrefs wraps a repeated href list.
type Hrefs struct {
	Values []string `xml:"DAV: href"`
}

// DAVError renders the DAV:error element carried by 403/409/412
// responses naming the violated precondition/postcondition, per RFC
// 4918 §16 / RFC 4791 §5.3.2.1.
type DAVError struct {
	XMLName              xml.Name  `xml:"DAV: error"`
	NoUIDConflict        *Href     `xml:"urn:ietf:params:xml:ns:caldav no-uid-conflict,omitempty"`
	ValidCalendarData    *struct{} `xml:"urn:ietf:params:xml:ns:caldav valid-calendar-data,omitempty"`
	ValidCalendarObject  *struct{} `xml:"urn:ietf:params:xml:ns:caldav valid-calendar-object-resource,omitempty"`
	SupportedCalendarData *struct{} `xml:"urn:ietf:params:xml:ns:caldav supported-calendar-data,omitempty"`
	SupportedFilter      *struct{} `xml:"urn:ietf:params:xml:ns:caldav supported-filter,omitempty"`
	SupportedCollation   *struct{} `xml:"urn:ietf:params:xml:ns:caldav supported-collation,omitempty"`
	ValidSyncToken       *struct{} `xml:"DAV: valid-sync-token,omitempty"`
	NumberOfMatchesWithinLimits *struct{} `xml:"DAV: number-of-matches-within-limits,omitempty"`
	NeedPrivileges       *NeedPrivileges `xml:"DAV: need-privileges,omitempty"`
	PropfindFiniteDepth  *struct{} `xml:"DAV: propfind-finite-depth,omitempty"`
}

// NeedPrivileges lists the (resource, privilege) pairs a 403 response
// names per RFC 3744 §7.1.1.
type NeedPrivileges struct {
	Resources []NeedPrivilegeResource `xml:"DAV: resource"`
}

type NeedPrivilegeResource struct {
	Href      string    `xml:"DAV: href"`
	Privilege Privilege `xml:"DAV: privilege"`
}

// Privilege names one DAV:/CalDAV privilege element. Only one of its
// fields is ever set; RenderPrivilege below builds one from a plain
// string name (e.g. "read", "write-content", "read-acl") so callers
// outside this package never construct xml.Name values by hand.
type Privilege struct {
	Read             *struct{} `xml:"DAV: read,omitempty"`
	Write            *struct{} `xml:"DAV: write,omitempty"`
	WriteProperties  *struct{} `xml:"DAV: write-properties,omitempty"`
	WriteContent     *struct{} `xml:"DAV: write-content,omitempty"`
	Bind             *struct{} `xml:"DAV: bind,omitempty"`
	Unbind           *struct{} `xml:"DAV: unbind,omitempty"`
	ReadACL          *struct{} `xml:"DAV: read-acl,omitempty"`
	WriteACL         *struct{} `xml:"DAV: write-acl,omitempty"`
	ReadCurrentUserPrivilegeSet *struct{} `xml:"DAV: read-current-user-privilege-set,omitempty"`
	All              *struct{} `xml:"DAV: all,omitempty"`
}

// RenderPrivilege builds a Privilege with the named field set, given a
// plain privilege token as used by internal/authz.
func RenderPrivilege(name string) Privilege {
	p := Privilege{}
	switch name {
	case "read":
		p.Read = &struct{}{}
	case "write":
		p.Write = &struct{}{}
	case "write-properties":
		p.WriteProperties = &struct{}{}
	case "write-content":
		p.WriteContent = &struct{}{}
	case "bind":
		p.Bind = &struct{}{}
	case "unbind":
		p.Unbind = &struct{}{}
	case "read-acl":
		p.ReadACL = &struct{}{}
	case "write-acl":
		p.WriteACL = &struct{}{}
	case "read-current-user-privilege-set":
		p.ReadCurrentUserPrivilegeSet = &struct{}{}
	default:
		p.All = &struct{}{}
	}
	return p
}
