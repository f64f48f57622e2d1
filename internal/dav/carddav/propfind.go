package carddav

import (
	"context"
	"strings"
	"time"

	"github.com/sonroyaalmerol/caldav-core/internal/authz"
	"github.com/sonroyaalmerol/caldav-core/internal/dav/common"
	"github.com/sonroyaalmerol/caldav-core/internal/store"
	"github.com/sonroyaalmerol/caldav-core/pkg/davxml"
	"github.com/sonroyaalmerol/caldav-core/pkg/vcard"
)

// PropfindCollection renders col's properties into b. Grounded on the
// teacher's carddav/resource.go propstat assembly, adapted to
// pkg/davxml's builder and this store's Collection type.
func (h *Handler) PropfindCollection(ctx context.Context, b *davxml.Builder, href string, col *store.Collection, role authz.Role, req *davxml.PropFind) {
	rb := b.Resource(href)
	names, all := requestedNames(req)

	rb.Prop(200, func(p *davxml.Prop) {
		if all || names["resourcetype"] {
			p.ResourceType = davxml.AddressbookResourceType()
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
		if all || names["addressbook-description"] {
			desc := col.Description
			p.AddressbookDescription = &desc
		}
		if all || names["supported-address-data"] {
			p.SupportedAddressData = &davxml.SupportedAddrData{ContentType: "text/vcard", Version: "3.0"}
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

// PropfindObject renders a vCard object's properties.
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
		if all || names["address-data"] {
			if sel := addressDataSelector(req); sel != nil && obj.Card != nil {
				p.AddressDataText = string(vcard.SerializeSelective(obj.Card, sel))
			} else {
				p.AddressDataText = string(obj.Entity.CanonicalData)
			}
		}
	})
	rb.Done(b)
}

// addressDataSelector builds a serialization selector from req's
// <CARD:address-data> prop list, or nil when the request carries no
// selector (allprop, propname, or a plain <CARD:address-data/> with no
// nested prop), meaning the full object should be returned.
func addressDataSelector(req *davxml.PropFind) *vcard.Selector {
	if req == nil || req.Prop == nil || req.Prop.AddressData == nil {
		return nil
	}
	ad := req.Prop.AddressData
	if ad.AllProp == nil && len(ad.Prop) == 0 {
		return nil
	}
	sel := &vcard.Selector{AllProp: ad.AllProp != nil, Props: map[string]bool{}}
	for _, p := range ad.Prop {
		sel.Props[strings.ToUpper(p.Name)] = true
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

func reportSet() *davxml.SupportedReportSet {
	return &davxml.SupportedReportSet{SupportedReport: []davxml.SupportedReport{
		{Report: davxml.ReportType{AddressbookQuery: &struct{}{}}},
		{Report: davxml.ReportType{AddressbookMultiget: &struct{}{}}},
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
