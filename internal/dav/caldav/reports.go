package caldav

import (
	"context"
	"encoding/xml"
	"strings"

	"github.com/sonroyaalmerol/caldav-core/internal/caldaverr"
	"github.com/sonroyaalmerol/caldav-core/internal/dav/common"
	"github.com/sonroyaalmerol/caldav-core/internal/store"
	"github.com/sonroyaalmerol/caldav-core/pkg/davxml"
)

// ReportCalendarQuery implements RFC 4791 §7.8: evaluate body's filter
// against every live object in col and render matches with the
// requested properties. Time-range matching against a recurring
// master first consults the occurrence cache store.Query maintains;
// once an instance's cached rows are exhausted (past the cache's row
// cap, or beyond the horizon it was computed to), store.Query falls
// back to h.liveOccurrenceResolver to expand the master directly
// against the requested window instead of treating the uncached tail
// as a non-match.
func (h *Handler) ReportCalendarQuery(ctx context.Context, col *store.Collection, segments []string, body []byte) (*davxml.Builder, error) {
	var req davxml.CalendarQuery
	if err := xml.Unmarshal(body, &req); err != nil {
		return nil, caldaverr.Syntax("malformed calendar-query body", err)
	}

	results, err := h.store.Query(ctx, col.ID, h.liveOccurrenceResolver(), store.QueryOptions{CalendarFilter: &req.Filter})
	if err != nil {
		return nil, err
	}

	b := davxml.NewBuilder()
	pf := &davxml.PropFind{Prop: req.Prop, AllProp: req.AllProp}
	for i := range results {
		if req.Expand != nil {
			results[i].Calendar = applyExpand(h, results[i].Calendar, req.Expand)
		} else if req.LimitRecurrenceSet != nil {
			results[i].Calendar = applyLimitRecurrenceSet(results[i].Calendar, req.LimitRecurrenceSet)
		}
		href := common.ObjectHref(h.basePath, segments, results[i].Instance.Slug)
		h.PropfindObject(ctx, b, href, &results[i], pf)
	}
	return b, nil
}

// ReportCalendarMultiget implements RFC 4791 §7.9: fetch exactly the
// hrefs the request names, rendering 404 for any that don't resolve to
// a live object in col.
func (h *Handler) ReportCalendarMultiget(ctx context.Context, col *store.Collection, segments []string, body []byte) (*davxml.Builder, error) {
	var req davxml.CalendarMultiget
	if err := xml.Unmarshal(body, &req); err != nil {
		return nil, caldaverr.Syntax("malformed calendar-multiget body", err)
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
		if req.Expand != nil {
			obj.Calendar = applyExpand(h, obj.Calendar, req.Expand)
		}
		h.PropfindObject(ctx, b, href, obj, pf)
	}
	return b, nil
}

// ReportSyncCollection implements RFC 6578 §3.2, delegating change
// enumeration to store.Sync and rendering removed members as bare-404
// responses per RFC 6578 §3.3.
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
