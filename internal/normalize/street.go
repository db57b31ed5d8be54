package normalize

import (
	"regexp"
	"strings"
)

// Street-type abbreviations expanded before comparison. Keys and values are
// lowercase single tokens.
var streetAbbrevs = map[string]string{
	"st":   "street",
	"rd":   "road",
	"ave":  "avenue",
	"av":   "avenue",
	"ln":   "lane",
	"dr":   "drive",
	"cl":   "close",
	"ct":   "court",
	"pl":   "place",
	"sq":   "square",
	"cres": "crescent",
	"ter":  "terrace",
	"gdns": "gardens",
	"gro":  "grove",
	"pk":   "park",
	"grn":  "green",
	"mws":  "mews",
}

// Words that mark a token sequence as a street name. Used to pick the right
// segment out of a comma-separated address.
var streetTypeWords = map[string]bool{
	"street": true, "road": true, "avenue": true, "lane": true,
	"drive": true, "close": true, "court": true, "place": true,
	"square": true, "crescent": true, "terrace": true, "gardens": true,
	"grove": true, "park": true, "green": true, "way": true,
	"mews": true, "row": true, "walk": true, "hill": true,
	"rise": true, "vale": true, "parade": true, "broadway": true,
}

// Borough and city names that carry no street information. Listings quote
// these inconsistently, so they are stripped rather than compared.
var placeNames = map[string]bool{
	"london": true, "hackney": true, "islington": true, "camden": true,
	"westminster": true, "lambeth": true, "southwark": true,
	"haringey": true, "newham": true, "lewisham": true, "greenwich": true,
	"wandsworth": true, "hammersmith": true, "fulham": true,
	"kensington": true, "chelsea": true, "brent": true, "ealing": true,
	"croydon": true, "shoreditch": true, "dalston": true, "clapham": true,
	"brixton": true, "peckham": true, "stratford": true, "walthamstow": true,
}

var unitPrefixes = map[string]bool{
	"flat": true, "apartment": true, "apt": true, "unit": true,
	"studio": true, "maisonette": true, "room": true,
}

var (
	reEmbeddedPostcode = regexp.MustCompile(`\b[A-Za-z]{1,2}[0-9]{1,2}[A-Za-z]?\s*[0-9][A-Za-z]{2}\b`)
	reBareOutcode      = regexp.MustCompile(`\b[A-Za-z]{1,2}[0-9]{1,2}[A-Za-z]?\b`)
	reHouseNumber      = regexp.MustCompile(`^[0-9]+[A-Za-z]?$|^[0-9]+-[0-9]+$`)
	reUnitLabel        = regexp.MustCompile(`^[0-9]*[A-Za-z]?[0-9]*$`)
	rePunct            = regexp.MustCompile(`[^a-z0-9\s,-]`)
)

// NormalizeStreet reduces a free-text address to a comparable lowercase
// street name: unit and house-number prefixes dropped, abbreviations
// expanded, postcodes and borough names removed. The result is heuristic;
// it only has to be consistent, since street equality is one signal among
// several.
func NormalizeStreet(address string) string {
	s := strings.ToLower(strings.TrimSpace(address))
	if s == "" {
		return ""
	}

	s = reEmbeddedPostcode.ReplaceAllString(s, " ")
	s = rePunct.ReplaceAllString(s, " ")

	s = selectStreetSegment(s)
	s = reBareOutcode.ReplaceAllString(s, " ")

	tokens := strings.Fields(s)
	tokens = stripUnitPrefix(tokens)
	tokens = stripHouseNumber(tokens)
	if len(tokens) > 0 && tokens[0] == "the" {
		tokens = tokens[1:]
	}

	out := tokens[:0]
	for _, tok := range tokens {
		if full, ok := streetAbbrevs[tok]; ok {
			tok = full
		}
		if placeNames[tok] {
			continue
		}
		out = append(out, tok)
	}

	return strings.Join(out, " ")
}

// selectStreetSegment keeps only the comma-separated segment that contains a
// recognized street-type word, when the address has such a segment.
func selectStreetSegment(s string) string {
	if !strings.Contains(s, ",") {
		return s
	}
	segments := strings.Split(s, ",")
	for _, seg := range segments {
		for _, tok := range strings.Fields(seg) {
			if full, ok := streetAbbrevs[tok]; ok {
				tok = full
			}
			if streetTypeWords[tok] {
				return seg
			}
		}
	}
	return strings.Join(segments, " ")
}

func stripUnitPrefix(tokens []string) []string {
	if len(tokens) == 0 || !unitPrefixes[tokens[0]] {
		return tokens
	}
	tokens = tokens[1:]
	// "flat 3", "apartment 2b", "unit c" - drop the unit label too.
	if len(tokens) > 0 && len(tokens[0]) <= 3 && reUnitLabel.MatchString(tokens[0]) {
		tokens = tokens[1:]
	}
	return tokens
}

func stripHouseNumber(tokens []string) []string {
	if len(tokens) > 1 && reHouseNumber.MatchString(tokens[0]) {
		return tokens[1:]
	}
	return tokens
}
