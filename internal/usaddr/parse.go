package usaddr

import (
	"regexp"
	"strings"
)

var (
	poBoxRE = regexp.MustCompile(`(?i)\b(?:P\.?\s*O\.?\s*Box|Post\s+Office\s+Box)\s*([\w-]+)`)
	unitRE  = regexp.MustCompile(`(?i)\b(Apt|Apartment|Suite|Ste|Unit|Floor|Fl|Room|Rm|Bldg|Building|#)\s*[#\s]*([\w-]+)`)
	// Trailing "City, ST 12345" or "City, ST 12345-6789" segment.
	cityStateRE = regexp.MustCompile(`([^,]+),\s*([A-Z]{2})\s*(\d{5}(?:-\d{4})?)?$`)
	digitsRE    = regexp.MustCompile(`^\d+$`)
)

var cardinalDirections = map[string]bool{
	"N": true, "S": true, "E": true, "W": true,
	"NE": true, "NW": true, "SE": true, "SW": true,
}

// streetSuffixLookup resolves a trailing token to its canonical suffix form:
// full names map to title case, abbreviations map to themselves.
var streetSuffixLookup = func() map[string]string {
	lookup := make(map[string]string, len(StreetSuffixes)*2)
	for long, abbr := range StreetSuffixes {
		lookup[strings.ToUpper(long)] = titleCaser.String(strings.ToLower(long))
		lookup[strings.ToUpper(abbr)] = titleCaser.String(strings.ToLower(abbr))
	}
	return lookup
}()

// Components holds the pieces extracted from a raw address string. Fields the
// parser could not extract are left empty.
type Components struct {
	StreetNumber    string `json:"street_number,omitempty"`
	StreetName      string `json:"street_name,omitempty"`
	StreetType      string `json:"street_type,omitempty"`
	StreetDirection string `json:"street_direction,omitempty"`
	UnitType        string `json:"unit_type,omitempty"`
	UnitNumber      string `json:"unit_number,omitempty"`
	City            string `json:"city,omitempty"`
	State           string `json:"state,omitempty"`
	PostalCode      string `json:"zipcode,omitempty"`
	POBox           string `json:"po_box,omitempty"`
}

// Empty reports whether the parser extracted nothing at all.
func (c Components) Empty() bool {
	return c == Components{}
}

// ParseComponents splits a full address string into its components. It is
// pure and deterministic; unparseable fragments leave the corresponding
// component unset rather than failing.
func ParseComponents(address string) Components {
	var out Components
	if address == "" {
		return out
	}

	working := strings.TrimSpace(address)

	if m := poBoxRE.FindStringSubmatch(working); m != nil {
		out.POBox = m[1]
		working = strings.Trim(poBoxRE.ReplaceAllString(working, ""), ", ")
	}

	if loc := cityStateRE.FindStringSubmatchIndex(working); loc != nil {
		m := cityStateRE.FindStringSubmatch(working)
		out.City = strings.TrimSpace(m[1])
		out.State = strings.TrimSpace(m[2])
		if m[3] != "" {
			out.PostalCode = strings.TrimSpace(m[3])
		}
		working = strings.Trim(working[:loc[0]], ", ")
	}

	if m := unitRE.FindStringSubmatch(working); m != nil {
		out.UnitType = NormalizeUnitType(m[1])
		out.UnitNumber = strings.TrimSpace(m[2])
		working = strings.Trim(unitRE.ReplaceAllString(working, ""), ", ")
	}

	tokens := strings.Fields(working)

	if len(tokens) > 0 && digitsRE.MatchString(tokens[0]) {
		out.StreetNumber = tokens[0]
		tokens = tokens[1:]
	}

	if len(tokens) > 0 {
		head := strings.ToUpper(strings.TrimRight(tokens[0], ",."))
		if cardinalDirections[head] {
			out.StreetDirection = head
			tokens = tokens[1:]
		}
	}

	if len(tokens) > 0 {
		last := strings.ToUpper(strings.TrimRight(tokens[len(tokens)-1], ",."))
		if suffix, ok := streetSuffixLookup[last]; ok {
			out.StreetType = suffix
			tokens = tokens[:len(tokens)-1]
		}
		out.StreetName = strings.Trim(strings.Join(tokens, " "), ", ")
	}

	return out
}
