package config

import (
	"fmt"
	"strings"
)

// CanonMode selects the serialization rule set.
type CanonMode uint8

const (
	// ModeDbC14n applies every DB-C14N/1.0 rule.
	ModeDbC14n CanonMode = iota
	// ModePretty is human-readable and not byte-stable across versions.
	ModePretty
	// ModeCompact emits no inter-element whitespace.
	ModeCompact
)

// SortStrategy selects how element children are ordered.
type SortStrategy uint8

const (
	SortCanonical SortStrategy = iota
	SortInputOrder
	SortCustom
)

// PrefixStrategy selects how namespace prefixes are chosen.
type PrefixStrategy uint8

const (
	// PrefixLocked forces the registry prefix for every known URI.
	PrefixLocked PrefixStrategy = iota
	// PrefixInherit keeps input prefixes where possible.
	PrefixInherit
)

// PrefixCollision selects what happens when a custom prefix collides.
type PrefixCollision uint8

const (
	// CollisionRename appends the smallest integer that makes the prefix unique.
	CollisionRename PrefixCollision = iota
	// CollisionReject fails with NAMESPACE_LOCK_VIOLATION.
	CollisionReject
)

// LineEnding selects the emitted line terminator.
type LineEnding uint8

const (
	LF LineEnding = iota
	CRLF
)

// IndentChar selects the indentation character.
type IndentChar uint8

const (
	IndentSpace IndentChar = iota
	IndentTab
)

// Normalization selects the Unicode normal form for text and attribute values.
type Normalization uint8

const (
	NFC Normalization = iota
	NFD
	NFKC
	NFKD
)

// QuoteStyle selects the attribute value delimiter.
type QuoteStyle uint8

const (
	QuoteDouble QuoteStyle = iota
	QuoteSingle
)

// TimeZonePolicy selects how instants are shifted before formatting.
type TimeZonePolicy uint8

const (
	TimeZoneUTC TimeZonePolicy = iota
	TimeZonePreserve
	TimeZoneLocal
)

// DateTimeFormat selects the instant layout.
type DateTimeFormat uint8

const (
	// DateTimeISO8601Z is YYYY-MM-DDTHH:MM:SS.sssZ.
	DateTimeISO8601Z DateTimeFormat = iota
	// DateTimeISO8601 keeps a numeric offset.
	DateTimeISO8601
	// DateTimeCustom uses Config.DateTimeLayout.
	DateTimeCustom
)

// PreflightLevel selects how preflight findings affect a build.
type PreflightLevel uint8

const (
	PreflightWarn PreflightLevel = iota
	PreflightNone
	PreflightStrict
)

// IDStrategy selects how missing references are generated.
type IDStrategy uint8

const (
	IDStableHash IDStrategy = iota
	IDRandom128
	IDTimeOrderedUUID
	IDSequential
)

// HashAlgorithm selects the 256-bit digest used for IDs and canonical hashes.
type HashAlgorithm uint8

const (
	HashSHA256 HashAlgorithm = iota
	HashSHA512_256
	HashBLAKE2b256
	HashSHA3_256
)

var (
	canonModeNames      = []string{"dbc14n", "pretty", "compact"}
	sortNames           = []string{"canonical", "input-order", "custom"}
	prefixNames         = []string{"locked", "inherit"}
	collisionNames      = []string{"rename", "reject"}
	lineEndingNames     = []string{"lf", "crlf"}
	indentCharNames     = []string{"space", "tab"}
	normalizationNames  = []string{"nfc", "nfd", "nfkc", "nfkd"}
	quoteNames          = []string{"double", "single"}
	timeZoneNames       = []string{"utc", "preserve", "local"}
	dateTimeFormatNames = []string{"iso8601z", "iso8601", "custom"}
	preflightNames      = []string{"warn", "none", "strict"}
	idStrategyNames     = []string{"stable-hash", "random128", "time-ordered-uuid", "sequential"}
	hashNames           = []string{"sha256", "sha512-256", "blake2b-256", "sha3-256"}
)

func enumString[T ~uint8](names []string, v T) string {
	if int(v) < len(names) {
		return names[v]
	}
	return fmt.Sprintf("unknown(%d)", uint8(v))
}

func parseEnum[T ~uint8](kind string, names []string, text string) (T, error) {
	key := strings.ToLower(strings.TrimSpace(text))
	key = strings.ReplaceAll(key, "_", "-")
	for i, name := range names {
		if key == name || strings.ReplaceAll(name, "-", "") == strings.ReplaceAll(key, "-", "") {
			return T(i), nil
		}
	}
	return 0, fmt.Errorf("unknown %s %q (want one of %s)", kind, text, strings.Join(names, ", "))
}

func (v CanonMode) String() string               { return enumString(canonModeNames, v) }
func (v CanonMode) MarshalText() ([]byte, error) { return []byte(v.String()), nil }
func (v *CanonMode) UnmarshalText(b []byte) (err error) {
	*v, err = parseEnum[CanonMode]("canon mode", canonModeNames, string(b))
	return err
}

func (v SortStrategy) String() string               { return enumString(sortNames, v) }
func (v SortStrategy) MarshalText() ([]byte, error) { return []byte(v.String()), nil }
func (v *SortStrategy) UnmarshalText(b []byte) (err error) {
	*v, err = parseEnum[SortStrategy]("sort strategy", sortNames, string(b))
	return err
}

func (v PrefixStrategy) String() string               { return enumString(prefixNames, v) }
func (v PrefixStrategy) MarshalText() ([]byte, error) { return []byte(v.String()), nil }
func (v *PrefixStrategy) UnmarshalText(b []byte) (err error) {
	*v, err = parseEnum[PrefixStrategy]("prefix strategy", prefixNames, string(b))
	return err
}

func (v PrefixCollision) String() string               { return enumString(collisionNames, v) }
func (v PrefixCollision) MarshalText() ([]byte, error) { return []byte(v.String()), nil }
func (v *PrefixCollision) UnmarshalText(b []byte) (err error) {
	*v, err = parseEnum[PrefixCollision]("prefix collision", collisionNames, string(b))
	return err
}

func (v LineEnding) String() string               { return enumString(lineEndingNames, v) }
func (v LineEnding) MarshalText() ([]byte, error) { return []byte(v.String()), nil }
func (v *LineEnding) UnmarshalText(b []byte) (err error) {
	*v, err = parseEnum[LineEnding]("line ending", lineEndingNames, string(b))
	return err
}

// Bytes returns the terminator bytes.
func (v LineEnding) Bytes() []byte {
	if v == CRLF {
		return []byte("\r\n")
	}
	return []byte("\n")
}

func (v IndentChar) String() string               { return enumString(indentCharNames, v) }
func (v IndentChar) MarshalText() ([]byte, error) { return []byte(v.String()), nil }
func (v *IndentChar) UnmarshalText(b []byte) (err error) {
	*v, err = parseEnum[IndentChar]("indent char", indentCharNames, string(b))
	return err
}

func (v Normalization) String() string               { return enumString(normalizationNames, v) }
func (v Normalization) MarshalText() ([]byte, error) { return []byte(v.String()), nil }
func (v *Normalization) UnmarshalText(b []byte) (err error) {
	*v, err = parseEnum[Normalization]("normalization", normalizationNames, string(b))
	return err
}

func (v QuoteStyle) String() string               { return enumString(quoteNames, v) }
func (v QuoteStyle) MarshalText() ([]byte, error) { return []byte(v.String()), nil }
func (v *QuoteStyle) UnmarshalText(b []byte) (err error) {
	*v, err = parseEnum[QuoteStyle]("quote style", quoteNames, string(b))
	return err
}

func (v TimeZonePolicy) String() string               { return enumString(timeZoneNames, v) }
func (v TimeZonePolicy) MarshalText() ([]byte, error) { return []byte(v.String()), nil }
func (v *TimeZonePolicy) UnmarshalText(b []byte) (err error) {
	*v, err = parseEnum[TimeZonePolicy]("time zone policy", timeZoneNames, string(b))
	return err
}

func (v DateTimeFormat) String() string               { return enumString(dateTimeFormatNames, v) }
func (v DateTimeFormat) MarshalText() ([]byte, error) { return []byte(v.String()), nil }
func (v *DateTimeFormat) UnmarshalText(b []byte) (err error) {
	*v, err = parseEnum[DateTimeFormat]("date-time format", dateTimeFormatNames, string(b))
	return err
}

func (v PreflightLevel) String() string               { return enumString(preflightNames, v) }
func (v PreflightLevel) MarshalText() ([]byte, error) { return []byte(v.String()), nil }
func (v *PreflightLevel) UnmarshalText(b []byte) (err error) {
	*v, err = parseEnum[PreflightLevel]("preflight level", preflightNames, string(b))
	return err
}

func (v IDStrategy) String() string               { return enumString(idStrategyNames, v) }
func (v IDStrategy) MarshalText() ([]byte, error) { return []byte(v.String()), nil }
func (v *IDStrategy) UnmarshalText(b []byte) (err error) {
	*v, err = parseEnum[IDStrategy]("id strategy", idStrategyNames, string(b))
	return err
}

// Deterministic reports whether the strategy derives IDs from content or position only.
func (v IDStrategy) Deterministic() bool {
	return v == IDStableHash || v == IDSequential
}

func (v HashAlgorithm) String() string               { return enumString(hashNames, v) }
func (v HashAlgorithm) MarshalText() ([]byte, error) { return []byte(v.String()), nil }
func (v *HashAlgorithm) UnmarshalText(b []byte) (err error) {
	*v, err = parseEnum[HashAlgorithm]("hash algorithm", hashNames, string(b))
	return err
}
