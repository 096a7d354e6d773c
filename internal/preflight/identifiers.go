package preflight

import (
	"regexp"
	"strings"
)

var (
	isrcPattern = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{3}[0-9]{7}$`)
	icpnPattern = regexp.MustCompile(`^[0-9]{12,13}$`)
	gridPattern = regexp.MustCompile(`^A1[0-9A-Z]{16}$`)
	dpidPattern = regexp.MustCompile(`^PADPIDA[0-9]{10}[0-9A-Z]$`)
	// ISO 3166-1 alpha-2 plus the DDEX Worldwide pseudo territory.
	territoryPattern = regexp.MustCompile(`^(?:[A-Z]{2}|Worldwide)$`)
)

// ValidISRC reports whether s is a 12-character ISRC without hyphens.
func ValidISRC(s string) bool {
	return isrcPattern.MatchString(s)
}

// ValidDPID reports whether s is a DDEX party identifier.
func ValidDPID(s string) bool {
	return dpidPattern.MatchString(s)
}

// ValidGRid reports whether s has the shape of a Global Release Identifier.
func ValidGRid(s string) bool {
	return gridPattern.MatchString(s)
}

// ValidTerritory reports whether s is a two-letter territory code or
// Worldwide.
func ValidTerritory(s string) bool {
	return territoryPattern.MatchString(s)
}

// GTINCheck reports whether the last digit of a UPC-A or EAN-13 code is
// its mod-10 check digit. Callers check the format first.
func GTINCheck(code string) bool {
	if !icpnPattern.MatchString(code) {
		return false
	}
	sum := 0
	body := code[:len(code)-1]
	// weights alternate 3,1 from the digit next to the check digit
	for i := len(body) - 1; i >= 0; i-- {
		d := int(body[i] - '0')
		if (len(body)-1-i)%2 == 0 {
			d *= 3
		}
		sum += d
	}
	want := (10 - sum%10) % 10
	return int(code[len(code)-1]-'0') == want
}

// dpidNamespace reports whether an identifier is declared as a DPID.
func dpidNamespace(namespace, value string) bool {
	return strings.EqualFold(namespace, "DPID") || strings.HasPrefix(value, "PADPID")
}
