// Package value renders typed ERN leaf values in their canonical lexical
// forms.
package value

import "github.com/daddykev/ddex-suite/internal/dialect"

// Canonical renders lexical as kind. Text values are returned unchanged.
// On error the caller decides whether to keep the raw lexical.
func Canonical(kind dialect.ValueKind, lexical string, f Format) (string, error) {
	switch kind {
	case dialect.ValueDateTime:
		return DateTime(lexical, f)
	case dialect.ValueDate:
		return Date(lexical)
	case dialect.ValueDuration:
		d, err := ParseDuration(lexical)
		if err != nil {
			return "", err
		}
		return d.String(), nil
	case dialect.ValueInteger:
		return Integer(lexical)
	case dialect.ValueDecimal:
		return Decimal(lexical)
	case dialect.ValueBoolean:
		return Boolean(lexical)
	default:
		return lexical, nil
	}
}
