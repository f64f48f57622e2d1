package davxml

import "encoding/xml"

// Prop is the union of every WebDAV/CalDAV/CardDAV property this server
// can report. Grounded on the teacher's internal/dav/common/types.go
// Prop struct, extended with CardDAV's addressbook-home-set/
// supported-address-data/supported-addressbook-data and RFC 3744's
// current-user-privilege-set.
type Prop struct {
	ResourceType           *ResourceType       `xml:"DAV: resourcetype,omitempty"`
	DisplayName            *string             `xml:"DAV: displayname,omitempty"`
	CurrentUserPrincipal   *Href               `xml:"DAV: current-user-principal>href,omitempty"`
	PrincipalURL           *Href               `xml:"DAV: principal-URL>href,omitempty"`
	PrincipalCollectionSet *Hrefs              `xml:"DAV: principal-collection-set,omitempty"`
	Owner                  *Href               `xml:"DAV: owner>href,omitempty"`
	SyncToken              *string             `xml:"DAV: sync-token,omitempty"`
	ContentType            *string             `xml:"DAV: getcontenttype,omitempty"`
	GetETag                string              `xml:"DAV: getetag,omitempty"`
	GetLastModified        string              `xml:"DAV: getlastmodified,omitempty"`
	MatchesWithinLimits    *int                `xml:"DAV: number-of-matches-within-limits,omitempty"`
	ACL                    *AclProp            `xml:"DAV: acl,omitempty"`
	CurrentUserPrivilegeSet *PrivilegeSet      `xml:"DAV: current-user-privilege-set,omitempty"`
	QuotaAvailableBytes    *int64              `xml:"DAV: quota-available-bytes,omitempty"`
	QuotaUsedBytes         *int64              `xml:"DAV: quota-used-bytes,omitempty"`
	SupportedReportSet     *SupportedReportSet `xml:"DAV: supported-report-set,omitempty"`

	GetCTag *string `xml:"http://calendarserver.org/ns/ getctag,omitempty"`

	CalendarHomeSet               *Href                  `xml:"urn:ietf:params:xml:ns:caldav calendar-home-set>href,omitempty"`
	SupportedCalendarComponentSet *SupportedCompSet      `xml:"urn:ietf:params:xml:ns:caldav supported-calendar-component-set,omitempty"`
	SupportedCalendarData         *SupportedCalData      `xml:"urn:ietf:params:xml:ns:caldav supported-calendar-data,omitempty"`
	CalendarDescription           *string                `xml:"urn:ietf:params:xml:ns:caldav calendar-description,omitempty"`
	CalendarTimezone              *string                `xml:"urn:ietf:params:xml:ns:caldav calendar-timezone,omitempty"`
	MaxResourceSize               *int                   `xml:"urn:ietf:params:xml:ns:caldav max-resource-size,omitempty"`
	MinDateTime                   *string                `xml:"urn:ietf:params:xml:ns:caldav min-date-time,omitempty"`
	MaxDateTime                   *string                `xml:"urn:ietf:params:xml:ns:caldav max-date-time,omitempty"`
	MaxInstances                  *int                   `xml:"urn:ietf:params:xml:ns:caldav max-instances,omitempty"`
	MaxAttendeesPerInstance       *int                   `xml:"urn:ietf:params:xml:ns:caldav max-attendees-per-instance,omitempty"`
	SupportedCollationSet         *SupportedCollationSet `xml:"urn:ietf:params:xml:ns:caldav supported-collation-set,omitempty"`
	CalendarDataText              string                 `xml:"urn:ietf:params:xml:ns:caldav calendar-data,omitempty"`

	AddressbookHomeSet     *Href             `xml:"urn:ietf:params:xml:ns:carddav addressbook-home-set>href,omitempty"`
	AddressbookDescription *string           `xml:"urn:ietf:params:xml:ns:carddav addressbook-description,omitempty"`
	SupportedAddressData   *SupportedAddrData `xml:"urn:ietf:params:xml:ns:carddav supported-address-data,omitempty"`
	MaxResourceSizeCard    *int              `xml:"urn:ietf:params:xml:ns:carddav max-resource-size,omitempty"`
	AddressDataText        string            `xml:"urn:ietf:params:xml:ns:carddav address-data,omitempty"`
}

type ResourceType struct {
	Collection  *struct{} `xml:"DAV: collection,omitempty"`
	Principal   *struct{} `xml:"DAV: principal,omitempty"`
	Calendar    *struct{} `xml:"urn:ietf:params:xml:ns:caldav calendar,omitempty"`
	Addressbook *struct{} `xml:"urn:ietf:params:xml:ns:carddav addressbook,omitempty"`
}

func CollectionResourceType() *ResourceType  { return &ResourceType{Collection: &struct{}{}} }
func CalendarResourceType() *ResourceType    { return &ResourceType{Collection: &struct{}{}, Calendar: &struct{}{}} }
func AddressbookResourceType() *ResourceType { return &ResourceType{Collection: &struct{}{}, Addressbook: &struct{}{}} }
func PrincipalResourceType() *ResourceType   { return &ResourceType{Principal: &struct{}{}} }

type SupportedCalData struct {
	ContentType string `xml:"content-type,attr"`
	Version     string `xml:"version,attr,omitempty"`
}

type SupportedAddrData struct {
	ContentType string `xml:"content-type,attr"`
	Version     string `xml:"version,attr,omitempty"`
}

type SupportedCollationSet struct {
	SupportedCollation []SupportedCollation `xml:"urn:ietf:params:xml:ns:caldav supported-collation"`
}

type SupportedCollation struct {
	Value string `xml:",chardata"`
}

type SupportedCompSet struct {
	Comp []Comp `xml:"urn:ietf:params:xml:ns:caldav comp"`
}

type Comp struct {
	Name string `xml:"name,attr"`
}

// ---------- ACL (RFC 3744, minimal) ----------

type AclProp struct {
	ACE []Ace `xml:"DAV: ace"`
}

type Ace struct {
	Principal Href      `xml:"DAV: principal>href"`
	Grant     Grant     `xml:"DAV: grant"`
	Protected *struct{} `xml:"DAV: protected,omitempty"`
}

type Grant struct {
	Privs []Privilege `xml:"DAV: privilege"`
}

// PrivilegeSet renders DAV:current-user-privilege-set.
type PrivilegeSet struct {
	Privilege []Privilege `xml:"DAV: privilege"`
}

type SupportedReportSet struct {
	SupportedReport []SupportedReport `xml:"DAV: supported-report"`
}

type SupportedReport struct {
	Report ReportType `xml:"DAV: report"`
}

type ReportType struct {
	CalendarQuery       *struct{} `xml:"urn:ietf:params:xml:ns:caldav calendar-query,omitempty"`
	CalendarMultiget    *struct{} `xml:"urn:ietf:params:xml:ns:caldav calendar-multiget,omitempty"`
	FreeBusyQuery       *struct{} `xml:"urn:ietf:params:xml:ns:caldav free-busy-query,omitempty"`
	AddressbookQuery    *struct{} `xml:"urn:ietf:params:xml:ns:carddav addressbook-query,omitempty"`
	AddressbookMultiget *struct{} `xml:"urn:ietf:params:xml:ns:carddav addressbook-multiget,omitempty"`
	SyncCollection      *struct{} `xml:"DAV: sync-collection,omitempty"`
	ExpandProperty      *struct{} `xml:"DAV: expand-property,omitempty"`
}

// PropName renders the result of a PROPFIND propname request: just the
// empty element names, no values.
type PropName struct {
	XMLName xml.Name `xml:"DAV: prop"`
	Names   []xml.Name
}
