// Package common holds the HTTP-facing plumbing internal/dav/caldav and
// internal/dav/carddav share: error-to-status/XML mapping, path
// resolution against internal/store's collection tree, and
// authorization-role resolution. Grounded on the teacher's
// internal/dav/common package split (acl.go/paths.go/utils.go), with
// types.go/props.go's duplicated XML model removed in favor of
// pkg/davxml.
package common

import (
	"bytes"
	"encoding/xml"
	"net/http"

	"github.com/sonroyaalmerol/caldav-core/internal/caldaverr"
	"github.com/sonroyaalmerol/caldav-core/pkg/davxml"
)

func marshalError(de *davxml.DAVError) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	if err := enc.Encode(de); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// StatusForError maps a caldaverr.Error's Kind to the HTTP status RFC
// 4918/4791/6352 prescribe for that precondition/postcondition failure.
func StatusForError(err error) int {
	switch {
	case caldaverr.Is(err, caldaverr.KindNotFound):
		return http.StatusNotFound
	case caldaverr.Is(err, caldaverr.KindForbidden):
		return http.StatusForbidden
	case caldaverr.Is(err, caldaverr.KindConflict):
		return http.StatusConflict
	case caldaverr.Is(err, caldaverr.KindConditional):
		return http.StatusPreconditionFailed
	case caldaverr.Is(err, caldaverr.KindSyncTokenExpired):
		return http.StatusForbidden
	case caldaverr.Is(err, caldaverr.KindPrecondition):
		return http.StatusForbidden
	case caldaverr.Is(err, caldaverr.KindSyntax):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// DAVErrorFor renders the DAV:error body a 403/409/412/507 response
// carries, or nil if err names no specific precondition (a plain
// internal error renders with an empty body).
func DAVErrorFor(err error) *davxml.DAVError {
	ce, ok := err.(*caldaverr.Error)
	if !ok {
		return nil
	}
	de := &davxml.DAVError{}
	switch ce.Precondition {
	case "no-uid-conflict":
		de.NoUIDConflict = &davxml.Href{Value: ce.Href}
	case "valid-calendar-data":
		de.ValidCalendarData = &struct{}{}
	case "valid-calendar-object-resource":
		de.ValidCalendarObject = &struct{}{}
	case "supported-calendar-component", "supported-calendar-data":
		de.SupportedCalendarData = &struct{}{}
	case "supported-filter":
		de.SupportedFilter = &struct{}{}
	case "supported-collation":
		de.SupportedCollation = &struct{}{}
	case "valid-sync-token":
		de.ValidSyncToken = &struct{}{}
	default:
		if ce.Kind == caldaverr.KindForbidden {
			de.NeedPrivileges = &davxml.NeedPrivileges{Resources: []davxml.NeedPrivilegeResource{
				{Href: ce.Href, Privilege: []davxml.Privilege{davxml.RenderPrivilege(ce.Privilege)}},
			}}
		} else {
			return nil
		}
	}
	return de
}

// WriteError renders err as a plain-body error response with the status
// StatusForError selects, embedding a DAV:error document when one
// applies.
func WriteError(w http.ResponseWriter, err error) {
	status := StatusForError(err)
	if de := DAVErrorFor(err); de != nil {
		body, encErr := marshalError(de)
		if encErr == nil {
			w.Header().Set("Content-Type", "application/xml; charset=utf-8")
			w.WriteHeader(status)
			_, _ = w.Write(body)
			return
		}
	}
	http.Error(w, err.Error(), status)
}
