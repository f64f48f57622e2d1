package icalendar

import (
	"fmt"
	"unicode/utf8"

	"github.com/sonroyaalmerol/caldav-core/pkg/foldline"
)

// Parse decodes raw iCalendar data into a Calendar tree. It validates
// UTF-8, unfolds content lines, then builds the component tree enforcing
// strict BEGIN/END nesting; unknown component and property names are
// kept as opaque nodes rather than rejected, so an object this process
// doesn't fully understand still round-trips losslessly.
func Parse(data []byte) (*Calendar, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("icalendar: input is not valid UTF-8")
	}
	lines := foldline.Unfold(data)

	var stack []*Component
	var root *Component
	vcalendarCount := 0

	for _, line := range lines {
		if line == "" {
			continue
		}
		name, params, value, err := splitLine(line)
		if err != nil {
			return nil, err
		}

		switch {
		case equalFoldASCII(name, "BEGIN"):
			comp := NewComponent(value)
			if len(stack) == 0 {
				if !equalFoldASCII(value, "VCALENDAR") {
					return nil, fmt.Errorf("icalendar: top-level component must be VCALENDAR, got %q", value)
				}
				vcalendarCount++
				if vcalendarCount > 1 {
					return nil, fmt.Errorf("icalendar: multiple top-level VCALENDAR objects in one stream are not supported by Parse; use ParseMulti")
				}
				root = comp
			} else {
				stack[len(stack)-1].AddChild(comp)
			}
			stack = append(stack, comp)

		case equalFoldASCII(name, "END"):
			if len(stack) == 0 {
				return nil, fmt.Errorf("icalendar: unmatched END:%s", value)
			}
			top := stack[len(stack)-1]
			if !equalFoldASCII(top.Name, value) {
				return nil, fmt.Errorf("icalendar: mismatched END:%s, expected END:%s", value, top.Name)
			}
			stack = stack[:len(stack)-1]

		default:
			if len(stack) == 0 {
				return nil, fmt.Errorf("icalendar: property %q outside any component", name)
			}
			p := &Property{Name: name, Params: params, Raw: value}
			stack[len(stack)-1].AddProperty(p)
		}
	}

	if len(stack) != 0 {
		return nil, fmt.Errorf("icalendar: unterminated component %q", stack[len(stack)-1].Name)
	}
	if root == nil {
		return nil, fmt.Errorf("icalendar: no VCALENDAR component found")
	}
	if n := len(root.GetAll("PRODID")); n != 1 {
		return nil, fmt.Errorf("icalendar: VCALENDAR must have exactly one PRODID, found %d", n)
	}
	if n := len(root.GetAll("VERSION")); n != 1 {
		return nil, fmt.Errorf("icalendar: VCALENDAR must have exactly one VERSION, found %d", n)
	}

	return &Calendar{Root: root}, nil
}

// ParseMulti decodes a stream containing more than one top-level
// VCALENDAR object, such as a batch export. Parse rejects this case
// outright since the rest of the codec and store APIs operate on a
// single object at a time.
func ParseMulti(data []byte) ([]*Calendar, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("icalendar: input is not valid UTF-8")
	}
	lines := foldline.Unfold(data)

	var cals []*Calendar
	var stack []*Component
	var root *Component

	for _, line := range lines {
		if line == "" {
			continue
		}
		name, params, value, err := splitLine(line)
		if err != nil {
			return nil, err
		}
		switch {
		case equalFoldASCII(name, "BEGIN"):
			comp := NewComponent(value)
			if len(stack) == 0 {
				if !equalFoldASCII(value, "VCALENDAR") {
					return nil, fmt.Errorf("icalendar: top-level component must be VCALENDAR, got %q", value)
				}
				root = comp
			} else {
				stack[len(stack)-1].AddChild(comp)
			}
			stack = append(stack, comp)
		case equalFoldASCII(name, "END"):
			if len(stack) == 0 {
				return nil, fmt.Errorf("icalendar: unmatched END:%s", value)
			}
			top := stack[len(stack)-1]
			if !equalFoldASCII(top.Name, value) {
				return nil, fmt.Errorf("icalendar: mismatched END:%s, expected END:%s", value, top.Name)
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				cals = append(cals, &Calendar{Root: root})
				root = nil
			}
		default:
			if len(stack) == 0 {
				return nil, fmt.Errorf("icalendar: property %q outside any component", name)
			}
			p := &Property{Name: name, Params: params, Raw: value}
			stack[len(stack)-1].AddProperty(p)
		}
	}
	if len(stack) != 0 {
		return nil, fmt.Errorf("icalendar: unterminated component %q", stack[len(stack)-1].Name)
	}
	return cals, nil
}

// splitLine tokenizes a single unfolded content line into its name,
// parameter list, and raw value, honoring DQUOTE-protected parameter
// values so a ':', ';', or ',' inside quotes is not mistaken for a
// delimiter.
func splitLine(line string) (name string, params []*Parameter, value string, err error) {
	i := 0
	n := len(line)

	nameStart := 0
	for i < n && line[i] != ';' && line[i] != ':' {
		i++
	}
	if i == nameStart {
		return "", nil, "", fmt.Errorf("icalendar: empty property name in line %q", line)
	}
	name = line[nameStart:i]

	for i < n && line[i] == ';' {
		i++ // consume ';'
		paramNameStart := i
		for i < n && line[i] != '=' {
			i++
		}
		if i >= n {
			return "", nil, "", fmt.Errorf("icalendar: malformed parameter in line %q", line)
		}
		paramName := line[paramNameStart:i]
		i++ // consume '='

		var values []string
		for {
			var v string
			v, i, err = readParamValue(line, i)
			if err != nil {
				return "", nil, "", err
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
		return "", nil, "", fmt.Errorf("icalendar: missing value separator in line %q", line)
	}
	i++ // consume ':'
	value = line[i:]

	return name, params, value, nil
}

// readParamValue reads one (possibly quoted) param-value starting at
// position i, returning the decoded value and the position just past it.
func readParamValue(line string, i int) (string, int, error) {
	n := len(line)
	if i < n && line[i] == '"' {
		i++
		start := i
		for i < n && line[i] != '"' {
			i++
		}
		if i >= n {
			return "", 0, fmt.Errorf("icalendar: unterminated quoted parameter value in line %q", line)
		}
		v := DecodeParamValue(line[start:i])
		i++ // consume closing quote
		return v, i, nil
	}
	start := i
	for i < n && line[i] != ';' && line[i] != ':' && line[i] != ',' {
		i++
	}
	return DecodeParamValue(line[start:i]), i, nil
}
