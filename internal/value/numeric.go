package value

import (
	"bytes"
	"fmt"
	"strings"
)

// Decimal returns the canonical decimal form: optional minus sign, no
// redundant leading zeros, and no trailing fractional zeros. A fraction of
// only zeros drops the decimal point, so "48.0" becomes "48".
func Decimal(lexical string) (string, error) {
	b := []byte(TrimSpace(lexical))
	if len(b) == 0 {
		return "", fmt.Errorf("empty decimal")
	}
	neg := false
	switch b[0] {
	case '+':
		b = b[1:]
	case '-':
		neg = true
		b = b[1:]
	}
	intPart, fracPart, _ := bytes.Cut(b, []byte{'.'})
	if len(intPart) == 0 && len(fracPart) == 0 {
		return "", fmt.Errorf("invalid decimal %q", lexical)
	}
	if !allDigits(intPart) || !allDigits(fracPart) {
		return "", fmt.Errorf("invalid decimal %q", lexical)
	}
	intPart = bytes.TrimLeft(intPart, "0")
	fracPart = bytes.TrimRight(fracPart, "0")
	if len(intPart) == 0 {
		intPart = []byte{'0'}
	}

	var out strings.Builder
	if neg && !(len(fracPart) == 0 && string(intPart) == "0") {
		out.WriteByte('-')
	}
	out.Write(intPart)
	if len(fracPart) > 0 {
		out.WriteByte('.')
		out.Write(fracPart)
	}
	return out.String(), nil
}

// Integer returns the canonical integer form.
func Integer(lexical string) (string, error) {
	s := TrimSpace(lexical)
	if strings.Contains(s, ".") {
		return "", fmt.Errorf("invalid integer %q", lexical)
	}
	return Decimal(s)
}

// Boolean returns "true" or "false". The numeric forms 1 and 0 are accepted.
func Boolean(lexical string) (string, error) {
	switch strings.ToLower(TrimSpace(lexical)) {
	case "true", "1":
		return "true", nil
	case "false", "0":
		return "false", nil
	}
	return "", fmt.Errorf("invalid boolean %q", lexical)
}

// TrimSpace trims XML whitespace.
func TrimSpace(s string) string {
	return strings.Trim(s, " \t\r\n")
}

func allDigits(b []byte) bool {
	for _, c := range b {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
