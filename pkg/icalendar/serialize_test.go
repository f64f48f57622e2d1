package icalendar

import (
	"strings"
	"testing"
)

func TestSerializeRoundTrip(t *testing.T) {
	cal, err := Parse([]byte(sampleEvent))
	if err != nil {
		t.Fatal(err)
	}
	out := Serialize(cal)
	cal2, err := Parse(out)
	if err != nil {
		t.Fatalf("re-parse failed: %v\n%s", err, out)
	}
	uid1 := cal.Root.ChildrenNamed("VEVENT")[0].Get("UID").Raw
	uid2 := cal2.Root.ChildrenNamed("VEVENT")[0].Get("UID").Raw
	if uid1 != uid2 {
		t.Errorf("UID mismatch after round trip: %q vs %q", uid1, uid2)
	}
}

func TestSerializeVCalendarPropertyOrder(t *testing.T) {
	cal, err := Parse([]byte(sampleEvent))
	if err != nil {
		t.Fatal(err)
	}
	out := string(Serialize(cal))
	prodidIdx := strings.Index(out, "PRODID")
	versionIdx := strings.Index(out, "VERSION")
	if prodidIdx == -1 || versionIdx == -1 || prodidIdx > versionIdx {
		t.Errorf("expected PRODID before VERSION, got:\n%s", out)
	}
}

func TestSerializeSelectiveForcesRequiredProperties(t *testing.T) {
	cal, err := Parse([]byte(sampleEvent))
	if err != nil {
		t.Fatal(err)
	}
	sel := &Selector{
		Comps: map[string]*Selector{
			"VEVENT": {Props: map[string]bool{"SUMMARY": true}},
		},
	}
	out := string(SerializeSelective(cal, sel))
	if !strings.Contains(out, "UID:event-1") {
		t.Errorf("expected UID to be force-included, got:\n%s", out)
	}
	if !strings.Contains(out, "DTSTAMP:") {
		t.Errorf("expected DTSTAMP to be force-included, got:\n%s", out)
	}
	if !strings.Contains(out, "SUMMARY:Team meeting") {
		t.Errorf("expected requested SUMMARY, got:\n%s", out)
	}
	if strings.Contains(out, "DTSTART:") {
		t.Errorf("expected DTSTART to be excluded from selective output, got:\n%s", out)
	}
}

func TestSerializeFoldsLongLines(t *testing.T) {
	cal, err := Parse([]byte(sampleEvent))
	if err != nil {
		t.Fatal(err)
	}
	ev := cal.Root.ChildrenNamed("VEVENT")[0]
	ev.AddProperty(&Property{Name: "DESCRIPTION", Raw: strings.Repeat("x", 300)})
	out := string(Serialize(cal))
	for _, physical := range strings.Split(out, "\r\n") {
		if len(physical) > 75 {
			t.Errorf("physical line exceeds 75 octets: %d", len(physical))
		}
	}
}
