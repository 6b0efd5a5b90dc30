package usaddr

import (
	"regexp"
	"strings"
)

var zipRE = regexp.MustCompile(`^\d{5}(?:-\d{4})?$`)

// ValidStateCode reports whether code is a US state, territory, or military
// postal code. Matching is case-insensitive.
func ValidStateCode(code string) bool {
	_, ok := AllStateCodes[strings.ToUpper(strings.TrimSpace(code))]
	return ok
}

// ValidPostalCode reports whether zip is a 5-digit or ZIP+4 postal code.
func ValidPostalCode(zip string) bool {
	return zipRE.MatchString(strings.TrimSpace(zip))
}
