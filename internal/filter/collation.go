// Package filter evaluates CalDAV/CardDAV filter trees (comp-filter,
// prop-filter, param-filter, text-match) against a parsed object,
// grounded on emersion-go-webdav's caldav/match.go recursive match
// structure, extended with collation support, test=anyof|allof
// combination, and CardDAV prop-filter evaluation.
package filter

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// Collation identifies one of the three collations RFC 4791 §9.3.2 / RFC
// 6352 §8.1.1 define.
type Collation string

const (
	CollationOctet          Collation = "i;octet"
	CollationASCIICasemap   Collation = "i;ascii-casemap"
	CollationUnicodeCasemap Collation = "i;unicode-casemap"
)

var caseFolder = cases.Fold()

// ParseCollation validates and normalizes a collation token from a
// text-match element, falling back to def when s is empty. CalDAV's
// default is i;ascii-casemap; CardDAV's is i;unicode-casemap per
// spec.md §4.5 — callers pass the context-appropriate default rather
// than this package assuming one.
func ParseCollation(s string, def Collation) (Collation, error) {
	if s == "" {
		return def, nil
	}
	switch Collation(s) {
	case CollationOctet, CollationASCIICasemap, CollationUnicodeCasemap:
		return Collation(s), nil
	default:
		return "", fmt.Errorf("filter: unsupported collation %q", s)
	}
}

// MatchType is RFC 4791/6352 text-match's match-type attribute (as
// extended by spec.md §4.5): how the pattern relates to the value,
// beyond plain substring containment.
type MatchType string

const (
	MatchContains   MatchType = "contains"
	MatchEquals     MatchType = "equals"
	MatchStartsWith MatchType = "starts-with"
	MatchEndsWith   MatchType = "ends-with"
)

// ParseMatchType normalizes a match-type token, defaulting to contains.
func ParseMatchType(s string) (MatchType, error) {
	switch MatchType(s) {
	case "", MatchContains:
		return MatchContains, nil
	case MatchEquals, MatchStartsWith, MatchEndsWith:
		return MatchType(s), nil
	default:
		return "", fmt.Errorf("filter: unsupported match-type %q", s)
	}
}

// MatchText reports whether value matches pattern under the given
// collation and match type.
func MatchText(c Collation, mt MatchType, value, pattern string) bool {
	switch mt {
	case MatchEquals:
		return Equal(c, value, pattern)
	case MatchStartsWith:
		return hasPrefix(c, value, pattern)
	case MatchEndsWith:
		return hasSuffix(c, value, pattern)
	default:
		return Contains(c, value, pattern)
	}
}

func hasPrefix(c Collation, value, prefix string) bool {
	switch c {
	case CollationOctet:
		return strings.HasPrefix(value, prefix)
	case CollationUnicodeCasemap:
		return strings.HasPrefix(caseFolder.String(value), caseFolder.String(prefix))
	default:
		return strings.HasPrefix(asciiFold(value), asciiFold(prefix))
	}
}

func hasSuffix(c Collation, value, suffix string) bool {
	switch c {
	case CollationOctet:
		return strings.HasSuffix(value, suffix)
	case CollationUnicodeCasemap:
		return strings.HasSuffix(caseFolder.String(value), caseFolder.String(suffix))
	default:
		return strings.HasSuffix(asciiFold(value), asciiFold(suffix))
	}
}

// Contains reports whether value contains substr under the named
// collation's folding rule. i;octet never folds case — it is a byte-exact
// substring test. i;ascii-casemap folds only ASCII letters — using full
// Unicode folding here would be spec-incorrect per RFC 4791 §9.3.2's
// explicit ASCII-only definition. i;unicode-casemap folds with full
// Unicode case-folding via golang.org/x/text/cases, the ecosystem
// library for this rather than a hand-rolled Unicode table.
func Contains(c Collation, value, substr string) bool {
	switch c {
	case CollationOctet:
		return strings.Contains(value, substr)
	case CollationUnicodeCasemap:
		return strings.Contains(caseFolder.String(value), caseFolder.String(substr))
	default: // CollationASCIICasemap
		return strings.Contains(asciiFold(value), asciiFold(substr))
	}
}

// Equal reports whether value equals other under the named collation.
func Equal(c Collation, value, other string) bool {
	switch c {
	case CollationOctet:
		return value == other
	case CollationUnicodeCasemap:
		return caseFolder.String(value) == caseFolder.String(other)
	default:
		return asciiFold(value) == asciiFold(other)
	}
}

func asciiFold(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + 32
		}
	}
	return string(b)
}
