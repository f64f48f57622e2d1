package store

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

// SyncToken is the opaque (revision, issued_at) pair spec.md §4.8
// specifies, generalizing the teacher's "seq:<n>" string token (which
// carries only a bare sequence number) to also carry an issue timestamp
// so expired baselines can be distinguished from merely-old ones once
// tombstones outside the retention window are pruned.
type SyncToken struct {
	Revision int64
	IssuedAt int64 // unix seconds
}

// Encode renders the token as the opaque URI-safe string clients store
// and echo back in the next sync-collection REPORT's sync-token.
func (t SyncToken) Encode() string {
	raw := fmt.Sprintf("%d:%d", t.Revision, t.IssuedAt)
	return "caldav-sync:" + base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// ParseSyncToken decodes a token previously produced by Encode. An
// empty string is the valid "initial sync" baseline (revision 0).
func ParseSyncToken(s string) (SyncToken, error) {
	if s == "" {
		return SyncToken{}, nil
	}
	const prefix = "caldav-sync:"
	if !strings.HasPrefix(s, prefix) {
		return SyncToken{}, fmt.Errorf("store: malformed sync token")
	}
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(s, prefix))
	if err != nil {
		return SyncToken{}, fmt.Errorf("store: malformed sync token: %w", err)
	}
	parts := strings.SplitN(string(raw), ":", 2)
	if len(parts) != 2 {
		return SyncToken{}, fmt.Errorf("store: malformed sync token")
	}
	rev, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return SyncToken{}, fmt.Errorf("store: malformed sync token revision: %w", err)
	}
	issued, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return SyncToken{}, fmt.Errorf("store: malformed sync token timestamp: %w", err)
	}
	return SyncToken{Revision: rev, IssuedAt: issued}, nil
}
