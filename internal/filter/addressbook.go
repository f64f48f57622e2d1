package filter

import (
	"github.com/sonroyaalmerol/caldav-core/internal/caldaverr"
	"github.com/sonroyaalmerol/caldav-core/pkg/davxml"
	"github.com/sonroyaalmerol/caldav-core/pkg/vcard"
)

// MatchCard reports whether card satisfies f's flat prop-filter list,
// combined by f.Test ("anyof", the RFC 6352 default, or "allof").
// Grounded on emersion-go-webdav's carddav/match.go matchPropFilter, but
// extended with param-filter, is-not-defined, and collation support the
// reference implementation leaves as TODO.
func MatchCard(f davxml.AddressbookFilter, card *vcard.Card) (bool, error) {
	if len(f.PropFilter) == 0 {
		return true, nil
	}
	switch f.Test {
	case "allof":
		for _, pf := range f.PropFilter {
			ok, err := matchCardPropFilter(pf, card)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	default: // "anyof" or unset
		for _, pf := range f.PropFilter {
			ok, err := matchCardPropFilter(pf, card)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}
}

func matchCardPropFilter(pf davxml.PropFilter, card *vcard.Card) (bool, error) {
	props := card.GetAll(pf.Name)

	if pf.IsNotDefined != nil {
		return len(props) == 0, nil
	}
	if len(props) == 0 {
		return false, nil
	}

	for _, p := range props {
		ok, err := matchOneCardProp(pf, p)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func matchOneCardProp(pf davxml.PropFilter, p *vcard.Property) (bool, error) {
	for _, paf := range pf.ParamFilter {
		ok, err := matchCardParamFilter(paf, p)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	if pf.TextMatch == nil {
		return true, nil
	}
	ok, err := evalTextMatchDefault(*pf.TextMatch, vcard.UnescapeText(p.Raw), CollationUnicodeCasemap)
	return ok, err
}

func matchCardParamFilter(paf davxml.ParamFilter, p *vcard.Property) (bool, error) {
	vals := paramValues(p, paf.Name)
	if paf.IsNotDefined != nil {
		return len(vals) == 0, nil
	}
	if len(vals) == 0 {
		return false, nil
	}
	if paf.TextMatch == nil {
		return true, nil
	}
	for _, v := range vals {
		ok, err := evalTextMatchDefault(*paf.TextMatch, v, CollationUnicodeCasemap)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func paramValues(p *vcard.Property, name string) []string {
	for _, pa := range p.Params {
		if equalFoldASCII(pa.Name, name) {
			return pa.Values
		}
	}
	return nil
}

// ValidateCollation is a thin wrapper that rejects an unsupported
// collation with the supported-collation precondition, without
// evaluating any filter. def is the
// context-appropriate default (CollationASCIICasemap for CalDAV,
// CollationUnicodeCasemap for CardDAV) applied when s is empty.
func ValidateCollation(s string, def Collation) error {
	_, err := ParseCollation(s, def)
	if err != nil {
		return caldaverr.Precondition("supported-collation", err.Error())
	}
	return nil
}
