package carddav

import (
	"context"
	"encoding/xml"
	"strings"

	"github.com/sonroyaalmerol/caldav-core/internal/caldaverr"
	"github.com/sonroyaalmerol/caldav-core/internal/dav/common"
	"github.com/sonroyaalmerol/caldav-core/internal/store"
	"github.com/sonroyaalmerol/caldav-core/pkg/davxml"
)

// ReportAddressbookQuery implements RFC 6352 §8.6.
func (h *Handler) ReportAddressbookQuery(ctx context.Context, col *store.Collection, segments []string, body []byte) (*davxml.Builder, error) {
	var req davxml.AddressbookQuery
	if err := xml.Unmarshal(body, &req); err != nil {
		return nil, caldaverr.Syntax("malformed addressbook-query body", err)
	}

	results, err := h.store.Query(ctx, col.ID, nil, store.QueryOptions{AddressbookFilter: &req.Filter})
	if err != nil {
		return nil, err
	}
	if req.Limit != nil && req.Limit.NResults > 0 && len(results) > req.Limit.NResults {
		results = results[:req.Limit.NResults]
	}

	b := davxml.NewBuilder()
	pf := &davxml.PropFind{Prop: req.Prop, AllProp: req.AllProp}
	for i := range results {
		href := common.ObjectHref(h.basePath, segments, results[i].Instance.Slug)
		h.PropfindObject(ctx, b, href, &results[i], pf)
	}
	return b, nil
}

// ReportAddressbookMultiget implements RFC 6352 §8.7.
func (h *Handler) ReportAddressbookMultiget(ctx context.Context, col *store.Collection, segments []string, body []byte) (*davxml.Builder, error) {
	var req davxml.AddressbookMultiget
	if err := xml.Unmarshal(body, &req); err != nil {
		return nil, caldaverr.Syntax("malformed addressbook-multiget body", err)
	}

	b := davxml.NewBuilder()
	pf := &davxml.PropFind{Prop: req.Prop, AllProp: req.AllProp}
	base := common.CollectionHref(h.basePath, segments)
	for _, href := range req.Hrefs {
		slug := hrefSlug(href, base)
		obj, err := h.store.GetObject(ctx, col.ID, slug)
		if err != nil {
			if caldaverr.Is(err, caldaverr.KindNotFound) {
				b.Status(href, 404)
				continue
			}
			return nil, err
		}
		h.PropfindObject(ctx, b, href, obj, pf)
	}
	return b, nil
}

// ReportSyncCollection implements RFC 6578 §3.2 for addressbooks.
func (h *Handler) ReportSyncCollection(ctx context.Context, col *store.Collection, segments []string, body []byte) (*davxml.Builder, error) {
	var req davxml.SyncCollection
	if err := xml.Unmarshal(body, &req); err != nil {
		return nil, caldaverr.Syntax("malformed sync-collection body", err)
	}

	limit := 0
	if req.Limit != nil {
		limit = req.Limit.NResults
	}
	result, err := h.store.Sync(ctx, col.ID, req.SyncToken, limit)
	if err != nil {
		return nil, err
	}

	b := davxml.NewBuilder().WithSyncToken(result.NewToken)
	pf := &davxml.PropFind{Prop: req.Prop}
	for _, change := range result.Changes {
		href := common.ObjectHref(h.basePath, segments, change.Slug)
		if change.Deleted {
			b.Status(href, 404)
			continue
		}
		obj, err := h.store.GetObject(ctx, col.ID, change.Slug)
		if err != nil {
			if caldaverr.Is(err, caldaverr.KindNotFound) {
				b.Status(href, 404)
				continue
			}
			return nil, err
		}
		h.PropfindObject(ctx, b, href, obj, pf)
	}
	if result.Truncated {
		n := len(result.Changes)
		b.Resource(common.CollectionHref(h.basePath, segments)).Prop(507, func(p *davxml.Prop) {
			p.MatchesWithinLimits = &n
		}).Done(b)
	}
	return b, nil
}

func hrefSlug(href, base string) string {
	s := strings.TrimPrefix(href, base)
	return strings.Trim(s, "/")
}
