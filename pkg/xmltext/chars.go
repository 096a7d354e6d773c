package xmltext

import (
	"strconv"
	"unicode/utf8"
)

var predefinedEntities = map[string]byte{
	"lt":   '<',
	"gt":   '>',
	"amp":  '&',
	"apos": '\'',
	"quot": '"',
}

func parseCharRef(ref string) (rune, error) {
	base := 10
	if len(ref) > 0 && ref[0] == 'x' {
		base = 16
		ref = ref[1:]
	}
	if ref == "" {
		return 0, errInvalidCharRef
	}
	n, err := strconv.ParseUint(ref, base, 32)
	if err != nil {
		return 0, errInvalidCharRef
	}
	r := rune(n)
	if !IsXMLChar(r) {
		return 0, errInvalidCharRef
	}
	return r, nil
}

// IsXMLChar reports whether r is allowed by the XML 1.0 Char production.
func IsXMLChar(r rune) bool {
	switch {
	case r == 0x9 || r == 0xA || r == 0xD:
		return true
	case r >= 0x20 && r <= 0xD7FF:
		return true
	case r >= 0xE000 && r <= 0xFFFD:
		return true
	case r >= 0x10000 && r <= utf8.MaxRune:
		return true
	}
	return false
}

func isNameStartByte(b byte) bool {
	return b == '_' || b == ':' || (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || b >= 0x80
}

func isNameByte(b byte) bool {
	return isNameStartByte(b) || b == '-' || b == '.' || (b >= '0' && b <= '9')
}

// IsNCName reports whether s is a non-colonized XML name.
func IsNCName(s string) bool {
	if s == "" || !isNameStartByte(s[0]) || s[0] == ':' {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isNameByte(s[i]) || s[i] == ':' {
			return false
		}
	}
	return true
}
