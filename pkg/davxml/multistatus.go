package davxml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"net/http"
)

// Builder accumulates Response elements for a single 207 Multi-Status
// body, grouping properties by HTTP status within each response the way
// RFC 4918 §14.24 requires (one propstat block per distinct status among
// the requested properties).
type Builder struct {
	responses []Response
	syncToken string
}

func NewBuilder() *Builder { return &Builder{} }

// WithSyncToken sets the DAV:sync-token trailer a sync-collection REPORT
// response carries alongside its responses.
func (b *Builder) WithSyncToken(token string) *Builder {
	b.syncToken = token
	return b
}

// propStatusGroup accumulates properties destined for one status code
// within one href's response.
type propStatusGroup struct {
	status int
	prop   Prop
}

// ResponseBuilder builds a single href's <response> element across
// possibly several propstat status groups.
type ResponseBuilder struct {
	href   string
	groups []*propStatusGroup
}

func (b *Builder) Resource(href string) *ResponseBuilder {
	return &ResponseBuilder{href: href}
}

// Prop merges fn's mutation of a Prop into the group for the given
// status, creating it if this is the first property at that status for
// this resource.
func (rb *ResponseBuilder) Prop(status int, fn func(*Prop)) *ResponseBuilder {
	for _, g := range rb.groups {
		if g.status == status {
			fn(&g.prop)
			return rb
		}
	}
	g := &propStatusGroup{status: status}
	fn(&g.prop)
	rb.groups = append(rb.groups, g)
	return rb
}

// Done finalizes this resource's response and appends it to the parent
// Builder.
func (rb *ResponseBuilder) Done(b *Builder) {
	resp := Response{Href: rb.href}
	for _, g := range rb.groups {
		resp.PropStat = append(resp.PropStat, PropStat{
			Prop:   g.prop,
			Status: StatusLine(g.status),
		})
	}
	b.responses = append(b.responses, resp)
}

// Status appends a bare-status response (no propstat), used for
// sync-collection entries reporting a removed member (404) or a REPORT
// href-level failure.
func (b *Builder) Status(href string, status int) *Builder {
	b.responses = append(b.responses, Response{Href: href, Status: StatusLine(status)})
	return b
}

// StatusError appends a bare-status response carrying a DAV:error
// precondition child, used when a REPORT or PROPFIND fails for one href
// within an otherwise successful multistatus.
func (b *Builder) StatusError(href string, status int, err *DAVError) *Builder {
	b.responses = append(b.responses, Response{Href: href, Status: StatusLine(status), Error: err})
	return b
}

// StatusLine renders an HTTP status code as the "HTTP/1.1 NNN Reason"
// text RFC 4918 requires inside <status>.
func StatusLine(code int) string {
	return fmt.Sprintf("HTTP/1.1 %d %s", code, http.StatusText(code))
}

// Encode serializes the accumulated responses to a 207 Multi-Status XML
// document, writing the XML declaration and always binding the DAV:,
// CalDAV, CardDAV, and CalendarServer namespace prefixes so clients that
// don't resolve default namespaces still parse it.
func (b *Builder) Encode() ([]byte, error) {
	ms := MultiStatus{
		XmlnsD:    "DAV:",
		XmlnsC:    NSCalDAV,
		XmlnsCard: NSCardDAV,
		XmlnsCS:   NSCS,
		Responses: b.responses,
		SyncToken: b.syncToken,
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	if err := enc.Encode(ms); err != nil {
		return nil, fmt.Errorf("davxml: encode multistatus: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteMultiStatus encodes and writes a completed Builder as the HTTP
// response body with status 207, grounded on the teacher's
// common.WriteMultiStatus.
func WriteMultiStatus(w http.ResponseWriter, b *Builder) error {
	body, err := b.Encode()
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusMultiStatus)
	_, err = w.Write(body)
	return err
}

// EncodePropName renders a PROPFIND propname response body: the prop
// element containing only empty elements named for each property this
// resource has, without values.
func EncodePropName(names []xml.Name) ([]byte, error) {
	var buf bytes.Buffer
	start := xml.StartElement{Name: xml.Name{Space: NSDAV, Local: "prop"}}
	enc := xml.NewEncoder(&buf)
	if err := enc.EncodeToken(start); err != nil {
		return nil, err
	}
	for _, n := range names {
		el := xml.StartElement{Name: n}
		if err := enc.EncodeToken(el); err != nil {
			return nil, err
		}
		if err := enc.EncodeToken(el.End()); err != nil {
			return nil, err
		}
	}
	if err := enc.EncodeToken(start.End()); err != nil {
		return nil, err
	}
	return buf.Bytes(), enc.Flush()
}
