package vcard

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Validate checks that raw is structurally well-formed vCard data with
// the properties RFC 6350 requires (VERSION, FN).
func Validate(raw []byte) error {
	if len(raw) == 0 {
		return fmt.Errorf("vcard: empty input")
	}
	_, err := ParseAll(raw)
	return err
}

// Normalize parses raw, upgrades/downgrades it to targetVersion ("3.0" or
// "4.0"; "" leaves an existing VERSION untouched and defaults a missing
// one to "3.0"), generates FN from N if missing, and assigns a UID if one
// is absent. Grounded on the teacher's NormalizeVCard behavior
// (pkg/vcard/vcard.go), rebuilt on this package's own parser and
// serializer instead of delegating to a library.
func Normalize(raw []byte, targetVersion string) ([]byte, error) {
	cards, err := ParseAll(raw)
	if err != nil {
		return nil, err
	}

	var out strings.Builder
	for i, c := range cards {
		switch targetVersion {
		case "4.0", "3.0":
			setValue(c, "VERSION", targetVersion)
		case "":
			if c.Get("VERSION") == nil {
				setValue(c, "VERSION", "3.0")
			}
		default:
			return nil, fmt.Errorf("vcard: unsupported target version %q", targetVersion)
		}

		if c.Get("FN") == nil {
			fn, ok := fnFromName(c)
			if !ok {
				return nil, fmt.Errorf("vcard %d: missing FN and cannot generate from N", i)
			}
			setValue(c, "FN", EscapeText(fn))
		}

		if c.Get("UID") == nil {
			setValue(c, "UID", uuid.NewString())
		}

		out.Write(Serialize(c))
	}
	return []byte(out.String()), nil
}

// fnFromName derives a display name from the structured N property:
// N = Family;Given;Additional;Prefix;Suffix.
func fnFromName(c *Card) (string, bool) {
	n := c.Get("N")
	if n == nil {
		return "", false
	}
	parts := SplitStructured(n.Raw)
	var nameParts []string
	for _, idx := range []int{1, 2, 0} { // Given, Additional, Family
		if idx < len(parts) && parts[idx] != "" {
			nameParts = append(nameParts, UnescapeText(parts[idx]))
		}
	}
	fn := strings.TrimSpace(strings.Join(nameParts, " "))
	if fn == "" {
		return "", false
	}
	return fn, true
}

func setValue(c *Card, name, value string) {
	if p := c.Get(name); p != nil {
		p.Raw = value
		return
	}
	c.AddProperty(&Property{Name: name, Raw: value})
}
