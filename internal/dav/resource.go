package dav

import (
	"encoding/xml"
	"io"
	"net/http"
	"strings"

	"github.com/sonroyaalmerol/caldav-core/internal/authz"
	"github.com/sonroyaalmerol/caldav-core/internal/caldaverr"
	"github.com/sonroyaalmerol/caldav-core/internal/dav/common"
	"github.com/sonroyaalmerol/caldav-core/internal/store"
	"github.com/sonroyaalmerol/caldav-core/pkg/davxml"
)

// maxXMLBody bounds PROPFIND/PROPPATCH/MKCOL/REPORT request bodies,
// which carry XML control data rather than object content.
const maxXMLBody = 1 << 20 // 1 MiB

func readBody(r *http.Request, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return nil, caldaverr.Syntax("reading request body", err)
	}
	if int64(len(data)) > limit {
		return nil, caldaverr.Precondition("max-resource-size", "request body too large")
	}
	return data, nil
}

func (rt *resolvedTarget) role(r *http.Request, principalID string) (authz.Role, error) {
	return common.ResolveRole(r.Context(), rt.h.Store, principalID, rt.collection)
}

func (rt *resolvedTarget) href() string {
	if rt.objectSlug == "" {
		return common.CollectionHref(rt.h.BasePath, rt.segments)
	}
	return common.ObjectHref(rt.h.BasePath, rt.segments, rt.objectSlug)
}

// propfind handles PROPFIND on both collections and objects, including
// Depth: 0/1 child enumeration for collections. Depth: infinity is
// rejected, per RFC 4918 §9.1's allowance to restrict it.
func (rt *resolvedTarget) propfind(w http.ResponseWriter, r *http.Request, principalID string) {
	role, err := rt.role(r, principalID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if err := common.RequirePrivilege(role, rt.href(), "read", func(p authz.Privileges) bool { return p.Read }); err != nil {
		common.WriteError(w, err)
		return
	}

	var req *davxml.PropFind
	if body, _ := readBody(r, maxXMLBody); len(body) > 0 {
		var pf davxml.PropFind
		if err := xml.Unmarshal(body, &pf); err != nil {
			common.WriteError(w, caldaverr.Syntax("malformed propfind body", err))
			return
		}
		req = &pf
	}

	b := davxml.NewBuilder()

	if rt.objectSlug != "" {
		obj, err := rt.h.Store.GetObject(r.Context(), rt.collection.ID, rt.objectSlug)
		if err != nil {
			common.WriteError(w, err)
			return
		}
		rt.renderObject(r, b, rt.href(), obj, req)
		davxml.WriteMultiStatus(w, b)
		return
	}

	rt.renderCollection(r, b, rt.href(), rt.collection, role, req)

	depth := r.Header.Get("Depth")
	switch depth {
	case "", "0":
	case "1":
		children, instances, err := rt.h.Store.ListChildren(r.Context(), rt.collection.ID, 0)
		if err != nil {
			common.WriteError(w, err)
			return
		}
		for i := range children {
			child := &children[i]
			childRole, err := common.ResolveRole(r.Context(), rt.h.Store, principalID, child)
			if err != nil {
				continue
			}
			childSegs := append(append([]string{}, rt.segments...), child.Slug)
			rt.renderCollection(r, b, common.CollectionHref(rt.h.BasePath, childSegs), child, childRole, req)
		}
		for i := range instances {
			obj, err := rt.h.Store.GetObject(r.Context(), rt.collection.ID, instances[i].Slug)
			if err != nil {
				continue
			}
			rt.renderObject(r, b, common.ObjectHref(rt.h.BasePath, rt.segments, instances[i].Slug), obj, req)
		}
	default:
		common.WriteError(w, caldaverr.Precondition("propfind-finite-depth", "Depth: infinity is not supported"))
		return
	}

	davxml.WriteMultiStatus(w, b)
}

func (rt *resolvedTarget) renderCollection(r *http.Request, b *davxml.Builder, href string, col *store.Collection, role authz.Role, req *davxml.PropFind) {
	switch col.Kind {
	case store.KindCalendar:
		rt.h.cal.PropfindCollection(r.Context(), b, href, col, role, req)
	case store.KindAddressbook:
		rt.h.card.PropfindCollection(r.Context(), b, href, col, role, req)
	default:
		renderGenericCollection(b, href, col, req)
	}
}

func (rt *resolvedTarget) renderObject(r *http.Request, b *davxml.Builder, href string, obj *store.ObjectResult, req *davxml.PropFind) {
	switch rt.collection.Kind {
	case store.KindAddressbook:
		rt.h.card.PropfindObject(r.Context(), b, href, obj, req)
	default:
		rt.h.cal.PropfindObject(r.Context(), b, href, obj, req)
	}
}

// renderGenericCollection renders a principal-home or plain collection:
// just resourcetype/displayname, no calendar/addressbook extras.
func renderGenericCollection(b *davxml.Builder, href string, col *store.Collection, req *davxml.PropFind) {
	b.Resource(href).Prop(200, func(p *davxml.Prop) {
		p.ResourceType = davxml.CollectionResourceType()
		dn := col.DisplayName
		p.DisplayName = &dn
	}).Done(b)
}

// proppatch always rejects, since every property this server exposes is
// either computed (getetag, sync-token, resourcetype) or fixed at
// creation time (displayname, description) — there is no store mutation
// path for them. Grounded on RFC 4918 §9.2's allowance for a server to
// refuse any property set/remove with a 403 forbidden propstat.
func (rt *resolvedTarget) proppatch(w http.ResponseWriter, r *http.Request, principalID string) {
	role, err := rt.role(r, principalID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if err := common.RequirePrivilege(role, rt.href(), "write-properties", func(p authz.Privileges) bool { return p.WriteProps }); err != nil {
		common.WriteError(w, err)
		return
	}

	body, err := readBody(r, maxXMLBody)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	var req davxml.PropertyUpdate
	if len(body) > 0 {
		if err := xml.Unmarshal(body, &req); err != nil {
			common.WriteError(w, caldaverr.Syntax("malformed propertyupdate body", err))
			return
		}
	}

	total := 0
	for _, op := range req.Set {
		total += len(op.Prop.Names)
	}
	for _, op := range req.Remove {
		total += len(op.Prop.Names)
	}

	b := davxml.NewBuilder()
	rb := b.Resource(rt.href())
	if total > 0 {
		rb.Prop(403, func(p *davxml.Prop) {})
	}
	rb.Done(b)
	davxml.WriteMultiStatus(w, b)
}

// mkcol creates a new collection at rt.collection (parent) / rt.objectSlug.
// isMkcalendar forces calendar creation (MKCALENDAR); a plain MKCOL
// always creates an addressbook. The body's resourcetype is not
// inspected, so MKCOL never creates a calendar or plain collection.
func (rt *resolvedTarget) mkcol(w http.ResponseWriter, r *http.Request, principalID string, isMkcalendar bool) {
	if rt.objectSlug == "" {
		common.WriteError(w, caldaverr.Conflict("collection already exists"))
		return
	}
	role, err := rt.role(r, principalID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if err := common.RequirePrivilege(role, rt.href(), "bind", func(p authz.Privileges) bool { return p.WriteContent }); err != nil {
		common.WriteError(w, err)
		return
	}

	body, err := readBody(r, maxXMLBody)
	if err != nil {
		common.WriteError(w, err)
		return
	}

	displayName, description := rt.objectSlug, ""
	kind := store.KindPlain
	var comps []string
	if isMkcalendar {
		kind = store.KindCalendar
		var req davxml.MkCalendar
		if len(body) > 0 {
			if err := xml.Unmarshal(body, &req); err != nil {
				common.WriteError(w, caldaverr.Syntax("malformed mkcalendar body", err))
				return
			}
		}
		displayName, description, comps = extractMkcolProps(req.Set, displayName, description, comps)
	} else {
		var req davxml.MkCol
		if len(body) > 0 {
			if err := xml.Unmarshal(body, &req); err != nil {
				common.WriteError(w, caldaverr.Syntax("malformed mkcol body", err))
				return
			}
		}
		kind = store.KindAddressbook
		displayName, description, comps = extractMkcolProps(req.Set, displayName, description, comps)
	}

	var created *store.Collection
	if kind == store.KindCalendar {
		created, err = rt.h.cal.CreateCalendar(r.Context(), rt.collection.ID, principalID, rt.objectSlug, displayName, description, comps)
	} else {
		created, err = rt.h.card.CreateAddressbook(r.Context(), rt.collection.ID, principalID, rt.objectSlug, displayName, description)
	}
	if err != nil {
		common.WriteError(w, err)
		return
	}

	w.Header().Set("Location", common.CollectionHref(rt.h.BasePath, append(append([]string{}, rt.segments...), created.Slug)))
	w.WriteHeader(http.StatusCreated)
}

// extractMkcolProps returns displayName, description and comps unchanged;
// the MKCOL/MKCALENDAR <set> ops are not applied. PropContainer
// (pkg/davxml) records only the set property names, not their chardata,
// so a new collection keeps the slug as its display name, an empty
// description and the default component set.
func extractMkcolProps(ops []davxml.PropertyUpdateOp, displayName, description string, comps []string) (string, string, []string) {
	return displayName, description, comps
}

// get serves GET/HEAD against a live object.
func (rt *resolvedTarget) get(w http.ResponseWriter, r *http.Request, principalID string, headOnly bool) {
	if rt.objectSlug == "" {
		common.WriteError(w, caldaverr.NotFound("GET on a collection is not supported"))
		return
	}
	role, err := rt.role(r, principalID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if err := common.RequirePrivilege(role, rt.href(), "read", func(p authz.Privileges) bool { return p.Read }); err != nil {
		common.WriteError(w, err)
		return
	}

	obj, err := rt.h.Store.GetObject(r.Context(), rt.collection.ID, rt.objectSlug)
	if err != nil {
		common.WriteError(w, err)
		return
	}

	contentType := "text/calendar; charset=utf-8"
	if rt.collection.Kind == store.KindAddressbook {
		contentType = "text/vcard; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("ETag", `"`+obj.Instance.ETag+`"`)
	w.Header().Set("Last-Modified", obj.Instance.UpdatedAt.UTC().Format(http.TimeFormat))
	if headOnly {
		w.WriteHeader(http.StatusOK)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(obj.Entity.CanonicalData)
}

// put stores rt.objectSlug's content inside rt.collection.
func (rt *resolvedTarget) put(w http.ResponseWriter, r *http.Request, principalID string) {
	if rt.objectSlug == "" {
		common.WriteError(w, caldaverr.Conflict("PUT requires a resource name"))
		return
	}
	role, err := rt.role(r, principalID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if err := common.RequirePrivilege(role, rt.href(), "write-content", func(p authz.Privileges) bool { return p.WriteContent }); err != nil {
		common.WriteError(w, err)
		return
	}

	limit := rt.h.MaxICSBytes
	if rt.collection.Kind == store.KindAddressbook {
		limit = rt.h.MaxVCFBytes
	}
	body, err := readBody(r, limit)
	if err != nil {
		common.WriteError(w, err)
		return
	}

	pre := store.PutPreconditions{
		IfNoneMatchAny: r.Header.Get("If-None-Match") == "*",
		IfMatchETag:    unquoteETag(r.Header.Get("If-Match")),
	}

	var result *store.PutResult
	if rt.collection.Kind == store.KindAddressbook {
		result, err = rt.h.card.Put(r.Context(), rt.collection.ID, rt.objectSlug, body, pre)
	} else {
		result, err = rt.h.cal.Put(r.Context(), rt.collection.ID, rt.objectSlug, body, pre)
	}
	if err != nil {
		common.WriteError(w, err)
		return
	}

	w.Header().Set("ETag", `"`+result.ETag+`"`)
	if result.Created {
		w.Header().Set("Location", rt.href())
		w.WriteHeader(http.StatusCreated)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// delete removes rt.objectSlug, or the whole collection when objectSlug
// is empty.
func (rt *resolvedTarget) delete(w http.ResponseWriter, r *http.Request, principalID string) {
	role, err := rt.role(r, principalID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if err := common.RequirePrivilege(role, rt.href(), "write-content", func(p authz.Privileges) bool { return p.WriteContent }); err != nil {
		common.WriteError(w, err)
		return
	}

	if rt.objectSlug == "" {
		if role < authz.RoleManage {
			common.WriteError(w, caldaverr.Forbidden(rt.href(), "unbind"))
			return
		}
		if err := rt.h.Store.DeleteCollection(r.Context(), rt.collection.ID); err != nil {
			common.WriteError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	ifMatch := unquoteETag(r.Header.Get("If-Match"))
	if err := rt.h.Store.DeleteObject(r.Context(), rt.collection.ID, rt.objectSlug, ifMatch); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// copyMove implements COPY and MOVE on a single object, per spec.md
// §4.5's "clone for safety" semantics (the store always re-parses and
// re-validates, never shares an Entity across collections).
func (rt *resolvedTarget) copyMove(w http.ResponseWriter, r *http.Request, principalID string, move bool) {
	if rt.objectSlug == "" {
		common.WriteError(w, caldaverr.Conflict("COPY/MOVE of a collection is not supported"))
		return
	}
	srcRole, err := rt.role(r, principalID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if err := common.RequirePrivilege(srcRole, rt.href(), "read", func(p authz.Privileges) bool { return p.Read }); err != nil {
		common.WriteError(w, err)
		return
	}
	if move {
		if err := common.RequirePrivilege(srcRole, rt.href(), "write-content", func(p authz.Privileges) bool { return p.WriteContent }); err != nil {
			common.WriteError(w, err)
			return
		}
	}

	dest := r.Header.Get("Destination")
	if dest == "" {
		common.WriteError(w, caldaverr.Syntax("missing Destination header", nil))
		return
	}
	destPath := stripOrigin(dest)
	destSegs := common.SplitPath(rt.h.BasePath, destPath)
	destTarget, err := rt.h.resolve(r, destSegs)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if destTarget.objectSlug == "" {
		common.WriteError(w, caldaverr.Conflict("Destination must name a resource, not a collection"))
		return
	}

	dstRole, err := common.ResolveRole(r.Context(), rt.h.Store, principalID, destTarget.collection)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if err := common.RequirePrivilege(dstRole, destTarget.href(), "write-content", func(p authz.Privileges) bool { return p.WriteContent }); err != nil {
		common.WriteError(w, err)
		return
	}

	overwrite := !strings.EqualFold(r.Header.Get("Overwrite"), "F")

	var result *store.PutResult
	if rt.collection.Kind == store.KindAddressbook {
		if move {
			result, err = rt.h.card.Move(r.Context(), rt.collection.ID, rt.objectSlug, destTarget.collection.ID, destTarget.objectSlug, overwrite)
		} else {
			result, err = rt.h.card.Copy(r.Context(), rt.collection.ID, rt.objectSlug, destTarget.collection.ID, destTarget.objectSlug, overwrite)
		}
	} else {
		if move {
			result, err = rt.h.cal.Move(r.Context(), rt.collection.ID, rt.objectSlug, destTarget.collection.ID, destTarget.objectSlug, overwrite)
		} else {
			result, err = rt.h.cal.Copy(r.Context(), rt.collection.ID, rt.objectSlug, destTarget.collection.ID, destTarget.objectSlug, overwrite)
		}
	}
	if err != nil {
		common.WriteError(w, err)
		return
	}

	w.Header().Set("ETag", `"`+result.ETag+`"`)
	if result.Created {
		w.WriteHeader(http.StatusCreated)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// report dispatches a REPORT body to the matching handler by its root
// element name, per kind.
func (rt *resolvedTarget) report(w http.ResponseWriter, r *http.Request, principalID string) {
	role, err := rt.role(r, principalID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if err := common.RequirePrivilege(role, rt.href(), "read", func(p authz.Privileges) bool { return p.Read }); err != nil {
		common.WriteError(w, err)
		return
	}

	body, err := readBody(r, maxXMLBody)
	if err != nil {
		common.WriteError(w, err)
		return
	}

	var root struct {
		XMLName xml.Name
	}
	if err := xml.Unmarshal(body, &root); err != nil {
		common.WriteError(w, caldaverr.Syntax("malformed REPORT body", err))
		return
	}

	var b *davxml.Builder
	switch root.XMLName.Local {
	case "calendar-query":
		b, err = rt.h.cal.ReportCalendarQuery(r.Context(), rt.collection, rt.segments, body)
	case "calendar-multiget":
		b, err = rt.h.cal.ReportCalendarMultiget(r.Context(), rt.collection, rt.segments, body)
	case "addressbook-query":
		b, err = rt.h.card.ReportAddressbookQuery(r.Context(), rt.collection, rt.segments, body)
	case "addressbook-multiget":
		b, err = rt.h.card.ReportAddressbookMultiget(r.Context(), rt.collection, rt.segments, body)
	case "sync-collection":
		if rt.collection.Kind == store.KindAddressbook {
			b, err = rt.h.card.ReportSyncCollection(r.Context(), rt.collection, rt.segments, body)
		} else {
			b, err = rt.h.cal.ReportSyncCollection(r.Context(), rt.collection, rt.segments, body)
		}
	case "expand-property":
		b, err = rt.reportExpandProperty(r.Context(), role, principalID, body)
	default:
		common.WriteError(w, caldaverr.Precondition("supported-report", "unsupported report: "+root.XMLName.Local))
		return
	}
	if err != nil {
		common.WriteError(w, err)
		return
	}
	davxml.WriteMultiStatus(w, b)
}

func unquoteETag(s string) string {
	return strings.Trim(s, `"`)
}

func stripOrigin(dest string) string {
	if i := strings.Index(dest, "://"); i >= 0 {
		rest := dest[i+3:]
		if slash := strings.Index(rest, "/"); slash >= 0 {
			return rest[slash:]
		}
		return "/"
	}
	return dest
}
