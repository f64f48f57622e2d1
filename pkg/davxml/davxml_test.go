package davxml

import (
	"encoding/xml"
	"strings"
	"testing"
)

func TestBuilderSingleStatusPerResource(t *testing.T) {
	b := NewBuilder()
	b.Resource("/calendars/alice/home/event1.ics").
		Prop(200, func(p *Prop) { p.GetETag = `"abc123"` }).
		Prop(404, func(p *Prop) { p.DisplayName = nil }).
		Done(b)

	out, err := b.Encode()
	if err != nil {
		t.Fatal(err)
	}
	s := string(out)
	if !strings.Contains(s, "200") || !strings.Contains(s, "404") {
		t.Errorf("expected both status groups present:\n%s", s)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	b := NewBuilder()
	b.Resource("/addressbooks/alice/contacts/card1.vcf").
		Prop(200, func(p *Prop) {
			p.GetETag = `"etag-1"`
			p.ResourceType = AddressbookResourceType()
		}).
		Done(b)
	out, err := b.Encode()
	if err != nil {
		t.Fatal(err)
	}
	var ms MultiStatus
	if err := xml.Unmarshal(out, &ms); err != nil {
		t.Fatalf("failed to re-parse multistatus: %v\n%s", err, out)
	}
	if len(ms.Responses) != 1 {
		t.Fatalf("got %d responses", len(ms.Responses))
	}
	if ms.Responses[0].Href != "/addressbooks/alice/contacts/card1.vcf" {
		t.Errorf("got href %q", ms.Responses[0].Href)
	}
}

func TestPropContainerUnmarshal(t *testing.T) {
	body := `<D:propfind xmlns:D="DAV:" xmlns:C="urn:ietf:params:xml:ns:caldav">
		<D:prop>
			<D:getetag/>
			<C:calendar-data/>
		</D:prop>
	</D:propfind>`
	var pf PropFind
	if err := xml.Unmarshal([]byte(body), &pf); err != nil {
		t.Fatal(err)
	}
	if pf.Prop == nil {
		t.Fatal("expected Prop to be populated")
	}
	if !pf.Prop.Has("getetag") || !pf.Prop.Has("calendar-data") {
		t.Errorf("got names %+v", pf.Prop.Names)
	}
}

func TestCalendarQueryFilterParse(t *testing.T) {
	body := `<C:calendar-query xmlns:D="DAV:" xmlns:C="urn:ietf:params:xml:ns:caldav">
		<D:prop><D:getetag/></D:prop>
		<C:filter>
			<C:comp-filter name="VCALENDAR">
				<C:comp-filter name="VEVENT">
					<C:time-range start="20250101T000000Z" end="20250201T000000Z"/>
				</C:comp-filter>
			</C:comp-filter>
		</C:filter>
	</C:calendar-query>`
	var cq CalendarQuery
	if err := xml.Unmarshal([]byte(body), &cq); err != nil {
		t.Fatal(err)
	}
	if cq.Filter.CompFilter.Name != "VCALENDAR" {
		t.Fatalf("got %+v", cq.Filter.CompFilter)
	}
	if len(cq.Filter.CompFilter.CompFilter) != 1 {
		t.Fatalf("got %+v", cq.Filter.CompFilter)
	}
	tr := cq.Filter.CompFilter.CompFilter[0].TimeRange
	if tr == nil || tr.Start != "20250101T000000Z" {
		t.Fatalf("got %+v", tr)
	}
}

func TestAddressbookQueryFilterParse(t *testing.T) {
	body := `<CARD:addressbook-query xmlns:D="DAV:" xmlns:CARD="urn:ietf:params:xml:ns:carddav">
		<D:prop><D:getetag/></D:prop>
		<CARD:filter test="anyof">
			<CARD:prop-filter name="EMAIL">
				<CARD:text-match collation="i;ascii-casemap">jane@example.com</CARD:text-match>
			</CARD:prop-filter>
		</CARD:filter>
	</CARD:addressbook-query>`
	var aq AddressbookQuery
	if err := xml.Unmarshal([]byte(body), &aq); err != nil {
		t.Fatal(err)
	}
	if aq.Filter.Test != "anyof" {
		t.Errorf("got test=%q", aq.Filter.Test)
	}
	if len(aq.Filter.PropFilter) != 1 || aq.Filter.PropFilter[0].Name != "EMAIL" {
		t.Fatalf("got %+v", aq.Filter.PropFilter)
	}
	if aq.Filter.PropFilter[0].TextMatch.Value != "jane@example.com" {
		t.Errorf("got %+v", aq.Filter.PropFilter[0].TextMatch)
	}
}

func TestSyncCollectionParse(t *testing.T) {
	body := `<D:sync-collection xmlns:D="DAV:">
		<D:sync-token>http://example.com/sync/1234</D:sync-token>
		<D:sync-level>1</D:sync-level>
		<D:prop><D:getetag/></D:prop>
	</D:sync-collection>`
	var sc SyncCollection
	if err := xml.Unmarshal([]byte(body), &sc); err != nil {
		t.Fatal(err)
	}
	if sc.SyncToken != "http://example.com/sync/1234" {
		t.Errorf("got token %q", sc.SyncToken)
	}
}

func TestStatusLine(t *testing.T) {
	if got := StatusLine(200); got != "HTTP/1.1 200 OK" {
		t.Errorf("got %q", got)
	}
}

func TestRenderPrivilegeAll(t *testing.T) {
	p := RenderPrivilege("read")
	if p.Read == nil {
		t.Error("expected Read set")
	}
	p2 := RenderPrivilege("unknown-thing")
	if p2.All == nil {
		t.Error("expected fallback to All")
	}
}
