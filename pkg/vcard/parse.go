package vcard

import (
	"fmt"
	"unicode/utf8"

	"github.com/sonroyaalmerol/caldav-core/pkg/foldline"
)

// Parse decodes raw vCard data containing exactly one VCARD object.
func Parse(data []byte) (*Card, error) {
	cards, err := ParseAll(data)
	if err != nil {
		return nil, err
	}
	if len(cards) != 1 {
		return nil, fmt.Errorf("vcard: expected exactly one VCARD object, got %d", len(cards))
	}
	return cards[0], nil
}

// ParseAll decodes raw data that may contain more than one VCARD object
// (e.g. an addressbook-multiget response body concatenating cards).
func ParseAll(data []byte) ([]*Card, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("vcard: input is not valid UTF-8")
	}
	lines := foldline.Unfold(data)

	var cards []*Card
	var cur *Card

	for _, line := range lines {
		if line == "" {
			continue
		}
		group, name, params, value, err := splitLine(line)
		if err != nil {
			return nil, err
		}

		switch {
		case equalFoldASCII(name, "BEGIN"):
			if !equalFoldASCII(value, "VCARD") {
				return nil, fmt.Errorf("vcard: BEGIN must name VCARD, got %q", value)
			}
			if cur != nil {
				return nil, fmt.Errorf("vcard: nested BEGIN:VCARD is not permitted")
			}
			cur = &Card{}

		case equalFoldASCII(name, "END"):
			if !equalFoldASCII(value, "VCARD") || cur == nil {
				return nil, fmt.Errorf("vcard: unmatched END:%s", value)
			}
			cards = append(cards, cur)
			cur = nil

		default:
			if cur == nil {
				return nil, fmt.Errorf("vcard: property %q outside BEGIN:VCARD/END:VCARD", name)
			}
			p := &Property{Name: name, Group: group, Params: params, Raw: value}
			cur.AddProperty(p)
		}
	}
	if cur != nil {
		return nil, fmt.Errorf("vcard: unterminated VCARD (missing END:VCARD)")
	}
	if len(cards) == 0 {
		return nil, fmt.Errorf("vcard: no VCARD object found")
	}
	for i, c := range cards {
		if c.Get("VERSION") == nil {
			return nil, fmt.Errorf("vcard %d: missing required VERSION property", i)
		}
		if c.Get("FN") == nil {
			return nil, fmt.Errorf("vcard %d: missing required FN property", i)
		}
	}
	return cards, nil
}

// splitLine tokenizes one unfolded vCard content line into an optional
// group prefix, the property name, parameters, and raw value.
func splitLine(line string) (group, name string, params []*Parameter, value string, err error) {
	i := 0
	n := len(line)
	nameStart := 0
	for i < n && line[i] != ';' && line[i] != ':' && line[i] != '.' {
		i++
	}
	if i < n && line[i] == '.' {
		group = line[nameStart:i]
		i++
		nameStart = i
		for i < n && line[i] != ';' && line[i] != ':' {
			i++
		}
	}
	if i == nameStart {
		return "", "", nil, "", fmt.Errorf("vcard: empty property name in line %q", line)
	}
	name = line[nameStart:i]

	for i < n && line[i] == ';' {
		i++
		paramNameStart := i
		for i < n && line[i] != '=' {
			i++
		}
		if i >= n {
			return "", "", nil, "", fmt.Errorf("vcard: malformed parameter in line %q", line)
		}
		paramName := line[paramNameStart:i]
		i++

		var values []string
		for {
			var v string
			v, i, err = readParamValue(line, i)
			if err != nil {
				return "", "", nil, "", err
			}
			values = append(values, v)
			if i < n && line[i] == ',' {
				i++
				continue
			}
			break
		}
		params = append(params, &Parameter{Name: paramName, Values: values})
	}

	if i >= n || line[i] != ':' {
		return "", "", nil, "", fmt.Errorf("vcard: missing value separator in line %q", line)
	}
	i++
	value = line[i:]
	return group, name, params, value, nil
}

func readParamValue(line string, i int) (string, int, error) {
	n := len(line)
	if i < n && line[i] == '"' {
		i++
		start := i
		for i < n && line[i] != '"' {
			i++
		}
		if i >= n {
			return "", 0, fmt.Errorf("vcard: unterminated quoted parameter value in line %q", line)
		}
		v := line[start:i]
		i++
		return v, i, nil
	}
	start := i
	for i < n && line[i] != ';' && line[i] != ':' && line[i] != ',' {
		i++
	}
	return line[start:i], i, nil
}
