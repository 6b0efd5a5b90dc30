package usaddr

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	whitespaceRE = regexp.MustCompile(`\s+`)
	titleCaser   = cases.Title(language.AmericanEnglish)
)

type suffixExpansion struct {
	re          *regexp.Regexp
	replacement string
}

// suffixExpansions rewrites standard abbreviations back to their full suffix
// names ("Pkwy" -> "Parkway"). Built once; ordered for deterministic output.
var suffixExpansions = func() []suffixExpansion {
	longNames := make([]string, 0, len(StreetSuffixes))
	for long := range StreetSuffixes {
		longNames = append(longNames, long)
	}
	sort.Strings(longNames)

	out := make([]suffixExpansion, 0, len(longNames))
	for _, long := range longNames {
		abbr := StreetSuffixes[long]
		out = append(out, suffixExpansion{
			re:          regexp.MustCompile(`(?i)\b` + abbr + `\b`),
			replacement: titleCaser.String(strings.ToLower(long)),
		})
	}
	return out
}()

// NormalizeString collapses internal whitespace, trims the ends, and
// title-cases input that arrives fully upper-cased.
func NormalizeString(value string) string {
	if value == "" {
		return value
	}

	normalized := strings.TrimSpace(whitespaceRE.ReplaceAllString(value, " "))
	if isUpper(normalized) {
		return titleCaser.String(strings.ToLower(normalized))
	}
	return normalized
}

// StandardizeAddress normalizes an address string and expands USPS street
// suffix abbreviations to their full names.
func StandardizeAddress(address string) string {
	if address == "" {
		return address
	}

	address = NormalizeString(address)
	for _, exp := range suffixExpansions {
		address = exp.re.ReplaceAllString(address, exp.replacement)
	}
	return address
}

// NormalizeUnitType maps unit labels ("Apartment", "Ste.", "#") to USPS-style
// abbreviations, passing unrecognized labels through upper-cased.
func NormalizeUnitType(raw string) string {
	cleaned := strings.ToUpper(strings.NewReplacer(".", "", "#", "").Replace(raw))

	for name, abbr := range UnitTypes {
		if cleaned == name || cleaned == abbr {
			return abbr
		}
	}
	if cleaned == "" {
		return raw
	}
	return cleaned
}

// isUpper reports whether the string has at least one cased character and no
// lower-case ones.
func isUpper(s string) bool {
	return s != strings.ToLower(s) && s == strings.ToUpper(s)
}
