package normalize

import (
	"regexp"
	"strings"
)

// UK postcode shapes. The outcode is one or two letters, one or two digits
// and an optional trailing letter; the incode is a digit plus two letters.
var (
	reFullPostcode  = regexp.MustCompile(`^([A-Za-z]{1,2}[0-9]{1,2}[A-Za-z]?)\s*([0-9][A-Za-z]{2})$`)
	reOutcodeOnly   = regexp.MustCompile(`^([A-Za-z]{1,2}[0-9]{1,2}[A-Za-z]?)$`)
	reOutcodePrefix = regexp.MustCompile(`^([A-Za-z]{1,2}[0-9]{1,2}[A-Za-z]?)\b`)
)

// ExtractOutcode returns the postal-area part of a full or partial UK
// postcode, upper-cased, or "" when the input does not look like one.
func ExtractOutcode(postcode string) string {
	p := strings.TrimSpace(postcode)
	if p == "" {
		return ""
	}
	if m := reFullPostcode.FindStringSubmatch(p); m != nil {
		return strings.ToUpper(m[1])
	}
	if m := reOutcodeOnly.FindStringSubmatch(p); m != nil {
		return strings.ToUpper(m[1])
	}
	if m := reOutcodePrefix.FindStringSubmatch(p); m != nil {
		return strings.ToUpper(m[1])
	}
	return ""
}

// IsFullPostcode reports whether p is a complete postcode (outcode plus
// incode), as opposed to an outcode-only or malformed value.
func IsFullPostcode(p string) bool {
	return reFullPostcode.MatchString(strings.TrimSpace(p))
}
