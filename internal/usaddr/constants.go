// Package usaddr provides US address constants, string normalization, and a
// best-effort component parser for free-form address strings. The parser is
// the fully offline path: it never errors, it just leaves components it
// cannot extract unset.
package usaddr

// USStates maps USPS state codes to state names.
var USStates = map[string]string{
	"AL": "Alabama",
	"AK": "Alaska",
	"AZ": "Arizona",
	"AR": "Arkansas",
	"CA": "California",
	"CO": "Colorado",
	"CT": "Connecticut",
	"DE": "Delaware",
	"FL": "Florida",
	"GA": "Georgia",
	"HI": "Hawaii",
	"ID": "Idaho",
	"IL": "Illinois",
	"IN": "Indiana",
	"IA": "Iowa",
	"KS": "Kansas",
	"KY": "Kentucky",
	"LA": "Louisiana",
	"ME": "Maine",
	"MD": "Maryland",
	"MA": "Massachusetts",
	"MI": "Michigan",
	"MN": "Minnesota",
	"MS": "Mississippi",
	"MO": "Missouri",
	"MT": "Montana",
	"NE": "Nebraska",
	"NV": "Nevada",
	"NH": "New Hampshire",
	"NJ": "New Jersey",
	"NM": "New Mexico",
	"NY": "New York",
	"NC": "North Carolina",
	"ND": "North Dakota",
	"OH": "Ohio",
	"OK": "Oklahoma",
	"OR": "Oregon",
	"PA": "Pennsylvania",
	"RI": "Rhode Island",
	"SC": "South Carolina",
	"SD": "South Dakota",
	"TN": "Tennessee",
	"TX": "Texas",
	"UT": "Utah",
	"VT": "Vermont",
	"VA": "Virginia",
	"WA": "Washington",
	"WV": "West Virginia",
	"WI": "Wisconsin",
	"WY": "Wyoming",
	"DC": "District of Columbia",
}

// USTerritories maps USPS territory codes to territory names.
var USTerritories = map[string]string{
	"AS": "American Samoa",
	"GU": "Guam",
	"MP": "Northern Mariana Islands",
	"PR": "Puerto Rico",
	"VI": "U.S. Virgin Islands",
}

// MilitaryStates maps USPS military "state" codes to their designations.
// An address resolving into one of these is flagged as military.
var MilitaryStates = map[string]string{
	"AA": "Armed Forces Americas",
	"AE": "Armed Forces Europe",
	"AP": "Armed Forces Pacific",
}

// AllStateCodes merges states, territories, and military codes.
var AllStateCodes = func() map[string]string {
	merged := make(map[string]string, len(USStates)+len(USTerritories)+len(MilitaryStates))
	for code, name := range USStates {
		merged[code] = name
	}
	for code, name := range USTerritories {
		merged[code] = name
	}
	for code, name := range MilitaryStates {
		merged[code] = name
	}
	return merged
}()

// StreetSuffixes maps full USPS street suffix names to their standard
// abbreviations.
var StreetSuffixes = map[string]string{
	"ALLEY":     "ALY",
	"AVENUE":    "AVE",
	"BOULEVARD": "BLVD",
	"CIRCLE":    "CIR",
	"COURT":     "CT",
	"DRIVE":     "DR",
	"LANE":      "LN",
	"PARKWAY":   "PKWY",
	"PLACE":     "PL",
	"ROAD":      "RD",
	"STREET":    "ST",
	"TRAIL":     "TRL",
	"WAY":       "WAY",
}

// UnitTypes maps full unit designators to USPS abbreviations.
var UnitTypes = map[string]string{
	"APARTMENT": "APT",
	"BUILDING":  "BLDG",
	"FLOOR":     "FL",
	"SUITE":     "STE",
	"UNIT":      "UNIT",
	"ROOM":      "RM",
}
