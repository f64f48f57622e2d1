package tzresolve

import (
	"testing"
	"time"
)

func TestResolveIANA(t *testing.T) {
	r := NewResolver(time.Hour)
	loc, ok := r.Resolve("America/New_York", nil)
	if !ok || loc == nil {
		t.Fatal("expected resolution for IANA TZID")
	}
	if loc.String() != "America/New_York" {
		t.Errorf("got %q", loc.String())
	}
}

func TestResolveEmpty(t *testing.T) {
	r := NewResolver(time.Hour)
	if _, ok := r.Resolve("", nil); ok {
		t.Error("expected no resolution for empty TZID")
	}
}

func TestResolveUnknownFloating(t *testing.T) {
	r := NewResolver(time.Hour)
	if _, ok := r.Resolve("Not/A/Real/Zone", nil); ok {
		t.Error("expected no resolution for unknown TZID")
	}
}

func TestResolveWindowsAlias(t *testing.T) {
	r := NewResolver(time.Hour)
	loc, ok := r.Resolve("Eastern Standard Time", nil)
	if !ok {
		t.Fatal("expected Windows alias to resolve")
	}
	if loc.String() != "America/New_York" {
		t.Errorf("got %q", loc.String())
	}
}

func TestResolveCachesResult(t *testing.T) {
	r := NewResolver(time.Minute)
	loc1, _ := r.Resolve("America/Chicago", nil)
	loc2, _ := r.Resolve("America/Chicago", nil)
	if loc1 != loc2 {
		t.Error("expected cached *time.Location to be reused")
	}
}

func TestCanonicalTZID(t *testing.T) {
	if got := CanonicalTZID("US/Eastern"); got != "America/New_York" {
		t.Errorf("got %q", got)
	}
	if got := CanonicalTZID("America/Chicago"); got != "America/Chicago" {
		t.Errorf("got %q", got)
	}
}

func TestResolveWallClockGapAndFold(t *testing.T) {
	loc, _ := time.LoadLocation("America/New_York")
	// 2025-03-09 02:30 local does not exist (spring-forward gap).
	gap := ResolveWallClock(loc, 2025, time.March, 9, 2, 30, 0, GapPushForward, FoldPreferEarlier)
	if gap.Location() != loc {
		t.Errorf("expected location preserved: %v", gap)
	}
	if gap.Hour() != 3 || gap.Minute() != 30 {
		t.Errorf("expected gap time pushed forward to 03:30, got %v", gap)
	}
	// 2025-11-02 01:30 local occurs twice (fall-back fold); the earlier is EDT.
	fold := ResolveWallClock(loc, 2025, time.November, 2, 1, 30, 0, GapPushForward, FoldPreferEarlier)
	if _, off := fold.Zone(); off != -4*3600 {
		t.Errorf("expected earlier (EDT) instant in fold, got %v", fold)
	}
}
