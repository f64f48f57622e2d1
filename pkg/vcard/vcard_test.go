package vcard

import (
	"strings"
	"testing"
)

const sampleCard = "BEGIN:VCARD\r\n" +
	"VERSION:4.0\r\n" +
	"FN:Jane Doe\r\n" +
	"N:Doe;Jane;;;\r\n" +
	"UID:card-1\r\n" +
	"END:VCARD\r\n"

func TestParseBasic(t *testing.T) {
	c, err := Parse([]byte(sampleCard))
	if err != nil {
		t.Fatal(err)
	}
	if fn := c.Get("FN"); fn == nil || fn.Raw != "Jane Doe" {
		t.Fatalf("got FN %+v", fn)
	}
}

func TestParseRequiresVersionAndFN(t *testing.T) {
	bad := "BEGIN:VCARD\r\nUID:x\r\nEND:VCARD\r\n"
	if _, err := Parse([]byte(bad)); err == nil {
		t.Error("expected error for missing VERSION/FN")
	}
}

func TestParseAllMultipleCards(t *testing.T) {
	two := sampleCard + sampleCard
	cards, err := ParseAll([]byte(two))
	if err != nil {
		t.Fatal(err)
	}
	if len(cards) != 2 {
		t.Fatalf("got %d cards", len(cards))
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	c, err := Parse([]byte(sampleCard))
	if err != nil {
		t.Fatal(err)
	}
	out := Serialize(c)
	c2, err := Parse(out)
	if err != nil {
		t.Fatalf("re-parse failed: %v\n%s", err, out)
	}
	if c2.Get("UID").Raw != "card-1" {
		t.Errorf("got UID %+v", c2.Get("UID"))
	}
}

func TestSerializeVersionFirst(t *testing.T) {
	c, err := Parse([]byte(sampleCard))
	if err != nil {
		t.Fatal(err)
	}
	out := string(Serialize(c))
	lines := strings.Split(out, "\r\n")
	if lines[1] != "VERSION:4.0" {
		t.Errorf("expected VERSION as first property line, got %q", lines[1])
	}
}

func TestNormalizeGeneratesFNFromN(t *testing.T) {
	raw := "BEGIN:VCARD\r\nVERSION:3.0\r\nN:Doe;Jane;;;\r\nEND:VCARD\r\n"
	out, err := Normalize([]byte(raw), "")
	if err != nil {
		t.Fatal(err)
	}
	c, err := Parse(out)
	if err != nil {
		t.Fatal(err)
	}
	if c.Get("FN") == nil || c.Get("FN").Raw != "Jane Doe" {
		t.Fatalf("got FN %+v", c.Get("FN"))
	}
	if c.Get("UID") == nil {
		t.Error("expected UID to be generated")
	}
}

func TestNormalizeUpgradeVersion(t *testing.T) {
	raw := "BEGIN:VCARD\r\nVERSION:3.0\r\nFN:Jane Doe\r\nEND:VCARD\r\n"
	out, err := Normalize([]byte(raw), "4.0")
	if err != nil {
		t.Fatal(err)
	}
	c, err := Parse(out)
	if err != nil {
		t.Fatal(err)
	}
	if c.Get("VERSION").Raw != "4.0" {
		t.Errorf("got VERSION %+v", c.Get("VERSION"))
	}
}

func TestNormalizeMissingFNAndN(t *testing.T) {
	raw := "BEGIN:VCARD\r\nVERSION:3.0\r\nUID:x\r\nEND:VCARD\r\n"
	if _, err := Normalize([]byte(raw), ""); err == nil {
		t.Error("expected error: no FN and no N to derive it from")
	}
}

func TestEscapeUnescapeRoundTrip(t *testing.T) {
	in := "Doe, Jane; works at Corp\\Inc"
	got := UnescapeText(EscapeText(in))
	if got != in {
		t.Fatalf("round trip mismatch: got %q want %q", got, in)
	}
}

func TestSplitStructuredN(t *testing.T) {
	parts := SplitStructured("Doe;Jane;Q;Dr.;Jr.")
	want := []string{"Doe", "Jane", "Q", "Dr.", "Jr."}
	if len(parts) != len(want) {
		t.Fatalf("got %v", parts)
	}
	for i := range want {
		if parts[i] != want[i] {
			t.Errorf("part %d: got %q want %q", i, parts[i], want[i])
		}
	}
}

func TestValidateRejectsEmpty(t *testing.T) {
	if err := Validate(nil); err == nil {
		t.Error("expected error for empty input")
	}
}
