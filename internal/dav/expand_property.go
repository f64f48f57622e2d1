package dav

import (
	"context"
	"encoding/xml"

	"github.com/sonroyaalmerol/caldav-core/internal/authz"
	"github.com/sonroyaalmerol/caldav-core/internal/caldaverr"
	"github.com/sonroyaalmerol/caldav-core/internal/dav/common"
	"github.com/sonroyaalmerol/caldav-core/internal/store"
	"github.com/sonroyaalmerol/caldav-core/pkg/davxml"
)

// reportExpandProperty implements RFC 3253 §3.8's expand-property
// REPORT: render the target resource's requested properties, then for
// any requested property that is href-valued and carries nested
// <D:property> children, render the properties of its target resource
// too (saving the client a follow-up PROPFIND). The only href-valued
// properties this server exposes are owner/current-user-principal/
// principal-URL: owner expands to the collection's owning principal,
// the other two to the requesting principal. Those are the only nested
// expansions performed; anything else's nested children are ignored
// rather than erroring, matching a client's fallback expectation for an
// unsupported href target.
func (rt *resolvedTarget) reportExpandProperty(ctx context.Context, role authz.Role, principalID string, body []byte) (*davxml.Builder, error) {
	var req davxml.ExpandProperty
	if err := xml.Unmarshal(body, &req); err != nil {
		return nil, caldaverr.Syntax("malformed expand-property body", err)
	}

	names := map[string]bool{}
	for _, p := range req.Property {
		names[p.Name] = true
	}
	var pf *davxml.PropFind
	if len(names) == 0 {
		pf = &davxml.PropFind{AllProp: &struct{}{}}
	} else {
		pf = &davxml.PropFind{Prop: &davxml.PropContainer{Names: namesToXMLNames(names)}}
	}

	b := davxml.NewBuilder()
	href := rt.href()
	if rt.objectSlug == "" {
		if rt.collection.Kind == store.KindAddressbook {
			rt.h.card.PropfindCollection(ctx, b, href, rt.collection, role, pf)
		} else {
			rt.h.cal.PropfindCollection(ctx, b, href, rt.collection, role, pf)
		}
	} else {
		obj, err := rt.h.Store.GetObject(ctx, rt.collection.ID, rt.objectSlug)
		if err != nil {
			return nil, err
		}
		if rt.collection.Kind == store.KindAddressbook {
			rt.h.card.PropfindObject(ctx, b, href, obj, pf)
		} else {
			rt.h.cal.PropfindObject(ctx, b, href, obj, pf)
		}
	}

	for _, p := range req.Property {
		if len(p.Property) == 0 {
			continue
		}
		switch p.Name {
		case "owner":
			expandPrincipal(b, rt.h.BasePath, rt.collection.OwnerPrincipalID, p.Property)
		case "current-user-principal", "principal-URL":
			expandPrincipal(b, rt.h.BasePath, principalID, p.Property)
		}
	}
	return b, nil
}

func namesToXMLNames(names map[string]bool) []xml.Name {
	out := make([]xml.Name, 0, len(names))
	for n := range names {
		out = append(out, xml.Name{Local: n})
	}
	return out
}

// expandPrincipal renders the minimal principal-resource properties
// this server can answer for principalID, restricted to nested's names
// (or every known one if nested is empty).
func expandPrincipal(b *davxml.Builder, basePath, principalID string, nested []davxml.ExpandPropertyRef) {
	href := common.PrincipalURL(basePath, principalID)
	names := map[string]bool{}
	for _, p := range nested {
		names[p.Name] = true
	}
	all := len(names) == 0

	rb := b.Resource(href)
	rb.Prop(200, func(p *davxml.Prop) {
		if all || names["resourcetype"] {
			p.ResourceType = davxml.PrincipalResourceType()
		}
		if all || names["displayname"] {
			dn := principalID
			p.DisplayName = &dn
		}
		if all || names["principal-URL"] {
			p.PrincipalURL = &davxml.Href{Value: href}
		}
		if all || names["current-user-principal"] {
			p.CurrentUserPrincipal = &davxml.Href{Value: href}
		}
		if all || names["calendar-home-set"] {
			p.CalendarHomeSet = &davxml.Href{Value: common.PrincipalCollectionRoot(basePath)}
		}
		if all || names["addressbook-home-set"] {
			p.AddressbookHomeSet = &davxml.Href{Value: common.PrincipalCollectionRoot(basePath)}
		}
	})
	rb.Done(b)
}
