package foldline

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestUnfoldBasic(t *testing.T) {
	data := []byte("BEGIN:VCALENDAR\r\nSUMMARY:Long\r\n line\r\nEND:VCALENDAR\r\n")
	lines := Unfold(data)
	want := []string{"BEGIN:VCALENDAR", "SUMMARY:Long line", "END:VCALENDAR"}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d: %v", len(lines), len(want), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d: got %q want %q", i, lines[i], want[i])
		}
	}
}

func TestUnfoldTabContinuation(t *testing.T) {
	data := []byte("SUMMARY:A\r\n\tB\r\n")
	lines := Unfold(data)
	if len(lines) != 1 || lines[0] != "SUMMARY:AB" {
		t.Fatalf("got %v", lines)
	}
}

func TestUnfoldPreservesExtraLeadingWhitespace(t *testing.T) {
	// Only a single SP/HTAB is the fold marker; further whitespace on the
	// continuation line is content.
	data := []byte("SUMMARY:A\r\n  B\r\n")
	lines := Unfold(data)
	if len(lines) != 1 || lines[0] != "SUMMARY:A B" {
		t.Fatalf("got %v", lines)
	}
}

func TestUnfoldLFOnly(t *testing.T) {
	data := []byte("A:1\n B\n")
	lines := Unfold(data)
	if len(lines) != 1 || lines[0] != "A:1B" {
		t.Fatalf("got %v", lines)
	}
}

func TestFoldRoundTrip(t *testing.T) {
	long := "SUMMARY:" + strings.Repeat("x", 200)
	folded := Fold(long)
	unfolded := Unfold([]byte(folded))
	if len(unfolded) != 1 || unfolded[0] != long {
		t.Fatalf("round trip mismatch: got %q", unfolded)
	}
	for _, physical := range strings.Split(folded, "\r\n") {
		if len(physical) > MaxOctets {
			t.Errorf("physical line exceeds %d octets: %d", MaxOctets, len(physical))
		}
	}
}

func TestFoldNeverSplitsUTF8Sequence(t *testing.T) {
	// Use a 3-byte UTF-8 rune (e.g. '世') repeated so that a naive
	// byte-75 cut would land mid-sequence.
	long := "SUMMARY:" + strings.Repeat("世", 40)
	folded := Fold(long)
	for _, physical := range strings.Split(folded, "\r\n") {
		content := strings.TrimPrefix(physical, " ")
		content = strings.TrimPrefix(content, "\t")
		if !utf8.ValidString(content) {
			t.Fatalf("physical line is not valid UTF-8 on its own: %q", physical)
		}
	}
	unfolded := Unfold([]byte(folded))
	if len(unfolded) != 1 || unfolded[0] != long {
		t.Fatalf("round trip mismatch")
	}
}
