package caldav

import (
	"context"
	"strings"
	"time"

	"github.com/sonroyaalmerol/caldav-core/internal/authz"
	"github.com/sonroyaalmerol/caldav-core/internal/dav/common"
	"github.com/sonroyaalmerol/caldav-core/internal/store"
	"github.com/sonroyaalmerol/caldav-core/pkg/davxml"
	"github.com/sonroyaalmerol/caldav-core/pkg/icalendar"
)

// PropfindCollection renders col's properties into resp, honoring the
// requested name set (or every known property for allprop/no body).
// Grounded on the teacher's propfind.go buildCalendarPropResponse,
// generalized to the ResourceType/ShareCeiling-aware property set
// pkg/davxml exposes.
func (h *Handler) PropfindCollection(ctx context.Context, b *davxml.Builder, href string, col *store.Collection, role authz.Role, req *davxml.PropFind) {
	rb := b.Resource(href)
	names, all := requestedNames(req)

	rb.Prop(200, func(p *davxml.Prop) {
		if all || names["resourcetype"] {
			p.ResourceType = davxml.CalendarResourceType()
		}
		if all || names["displayname"] {
			dn := col.DisplayName
			p.DisplayName = &dn
		}
		if all || names["getctag"] {
			ctag := store.SyncToken{Revision: col.SyncRevision, IssuedAt: time.Now().Unix()}.Encode()
			p.GetCTag = &ctag
		}
		if all || names["sync-token"] {
			tok := store.SyncToken{Revision: col.SyncRevision, IssuedAt: time.Now().Unix()}.Encode()
			p.SyncToken = &tok
		}
		if all || names["owner"] {
			p.Owner = &davxml.Href{Value: common.PrincipalURL(h.basePath, col.OwnerPrincipalID)}
		}
		if all || names["current-user-principal"] {
			p.CurrentUserPrincipal = &davxml.Href{Value: common.PrincipalURL(h.basePath, "")}
		}
		if all || names["principal-collection-set"] {
			p.PrincipalCollectionSet = &davxml.Hrefs{Values: []string{common.PrincipalURL(h.basePath, "")}}
		}
		if all || names["calendar-description"] {
			desc := col.Description
			p.CalendarDescription = &desc
		}
		if all || names["supported-calendar-component-set"] {
			p.SupportedCalendarComponentSet = componentSet(col.SupportedComponents)
		}
		if all || names["supported-calendar-data"] {
			p.SupportedCalendarData = &davxml.SupportedCalData{ContentType: "text/calendar", Version: "2.0"}
		}
		if all || names["supported-collation-set"] {
			p.SupportedCollationSet = &davxml.SupportedCollationSet{SupportedCollation: []davxml.SupportedCollation{
				{Value: "i;ascii-casemap"}, {Value: "i;octet"}, {Value: "i;unicode-casemap"},
			}}
		}
		if all || names["supported-report-set"] {
			p.SupportedReportSet = reportSet()
		}
		if all || names["current-user-privilege-set"] {
			p.CurrentUserPrivilegeSet = privilegeSet(role)
		}
		if all || names["quota-available-bytes"] || names["quota-used-bytes"] {
			if used, err := h.store.CollectionUsage(ctx, col.ID); err == nil {
				p.QuotaUsedBytes = &used
				avail := quotaAvailableBytes(used)
				p.QuotaAvailableBytes = &avail
			}
		}
	})
	rb.Done(b)
}

// quotaAvailableBytes reports a fixed per-collection ceiling minus what's
// already used; this core enforces no actual storage quota, so the
// number is informational rather than an enforced limit.
func quotaAvailableBytes(used int64) int64 {
	const ceiling = 1 << 30 // 1 GiB
	if used >= ceiling {
		return 0
	}
	return ceiling - used
}

// PropfindObject renders a calendar object's properties.
func (h *Handler) PropfindObject(ctx context.Context, b *davxml.Builder, href string, obj *store.ObjectResult, req *davxml.PropFind) {
	rb := b.Resource(href)
	names, all := requestedNames(req)

	rb.Prop(200, func(p *davxml.Prop) {
		if all || names["getetag"] {
			p.GetETag = `"` + obj.Instance.ETag + `"`
		}
		if all || names["getcontenttype"] {
			ct := ContentType
			p.ContentType = &ct
		}
		if all || names["getlastmodified"] {
			p.GetLastModified = obj.Instance.UpdatedAt.UTC().Format(time.RFC1123)
		}
		if all || names["calendar-data"] {
			if obj.Calendar != nil {
				p.CalendarDataText = string(icalendar.SerializeSelective(obj.Calendar, calendarDataSelector(req)))
			} else {
				p.CalendarDataText = string(obj.Entity.CanonicalData)
			}
			if obj.RecurrenceTruncated {
				h.logger.Warn().Str("instance_id", obj.Instance.ID).Msg("occurrence cache truncated before expansion window's end; time-range queries past the cached tail resume via live expansion")
			}
		}
	})
	rb.Done(b)
}

// calendarDataSelector builds a serialization selector from req's
// <C:calendar-data> comp/prop tree, or nil when the request carries no
// selector (allprop, propname, or a plain <C:calendar-data/> with no
// nested comp), meaning the full object should be returned.
func calendarDataSelector(req *davxml.PropFind) *icalendar.Selector {
	if req == nil || req.Prop == nil || req.Prop.CalendarData == nil {
		return nil
	}
	return selectorFromComp(req.Prop.CalendarData.Comp)
}

func selectorFromComp(dc *davxml.DataComp) *icalendar.Selector {
	if dc == nil {
		return nil
	}
	sel := &icalendar.Selector{
		AllComps: dc.AllComp != nil,
		AllProps: dc.AllProp != nil,
		Comps:    map[string]*icalendar.Selector{},
		Props:    map[string]bool{},
	}
	for _, p := range dc.Prop {
		sel.Props[strings.ToUpper(p.Name)] = true
	}
	for i := range dc.Comp {
		sel.Comps[strings.ToUpper(dc.Comp[i].Name)] = selectorFromComp(&dc.Comp[i])
	}
	return sel
}

func requestedNames(req *davxml.PropFind) (map[string]bool, bool) {
	if req == nil || req.AllProp != nil || (req.Prop == nil && req.PropName == nil) {
		return nil, true
	}
	names := map[string]bool{}
	if req.Prop != nil {
		for _, n := range req.Prop.Names {
			names[n.Local] = true
		}
	}
	return names, false
}

func componentSet(comps []string) *davxml.SupportedCompSet {
	if len(comps) == 0 {
		comps = []string{"VEVENT"}
	}
	out := &davxml.SupportedCompSet{}
	for _, c := range comps {
		out.Comp = append(out.Comp, davxml.Comp{Name: c})
	}
	return out
}

func reportSet() *davxml.SupportedReportSet {
	return &davxml.SupportedReportSet{SupportedReport: []davxml.SupportedReport{
		{Report: davxml.ReportType{CalendarQuery: &struct{}{}}},
		{Report: davxml.ReportType{CalendarMultiget: &struct{}{}}},
		{Report: davxml.ReportType{SyncCollection: &struct{}{}}},
	}}
}

func privilegeSet(role authz.Role) *davxml.PrivilegeSet {
	priv := authz.Project(role)
	ps := &davxml.PrivilegeSet{}
	if priv.Read || priv.ReadFreeBusy {
		ps.Privilege = append(ps.Privilege, davxml.RenderPrivilege("read"))
	}
	if priv.WriteContent || priv.WriteProps {
		ps.Privilege = append(ps.Privilege, davxml.RenderPrivilege("write"))
	}
	if priv.ReadACL {
		ps.Privilege = append(ps.Privilege, davxml.RenderPrivilege("read-acl"))
	}
	return ps
}
