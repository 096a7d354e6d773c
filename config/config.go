// Package config defines the enumerated canonicalization, fidelity and
// build settings shared by the parser, builder and canonicalizer.
package config

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// Version is the canonical form identifier written into banners.
const Version = "DB-C14N/1.0"

const (
	defaultIndentWidth      = 2
	maxIndentWidth          = 16
	defaultVerifyIterations = 10
)

// Preservation selects which non-schema artifacts survive a round trip.
type Preservation struct {
	Comments          bool `yaml:"comments" toml:"comments"`
	PIs               bool `yaml:"processing_instructions" toml:"processing_instructions"`
	Extensions        bool `yaml:"extensions" toml:"extensions"`
	AttributeOrder    bool `yaml:"attribute_order" toml:"attribute_order"`
	NamespacePrefixes bool `yaml:"namespace_prefixes" toml:"namespace_prefixes"`
	CDATA             bool `yaml:"cdata" toml:"cdata"`
}

// PreserveAll keeps every artifact the sidecar can record.
func PreserveAll() Preservation {
	return Preservation{
		Comments:          true,
		PIs:               true,
		Extensions:        true,
		AttributeOrder:    true,
		NamespacePrefixes: true,
		CDATA:             true,
	}
}

// Config is an immutable set of enumerated choices. Use Default and the
// With methods; the zero value is not the default.
type Config struct {
	Mode             CanonMode
	Sort             SortStrategy
	CustomOrder      map[string][]string
	Prefixes         PrefixStrategy
	Collision        PrefixCollision
	LineEnding       LineEnding
	IndentChar       IndentChar
	IndentWidth      int
	Normalization    Normalization
	Quote            QuoteStyle
	TimeZone         TimeZonePolicy
	Location         *time.Location
	DateTimeFormat   DateTimeFormat
	DateTimeLayout   string
	Preserve         Preservation
	EmitBanner       bool
	VerifyIterations int
	Preflight        PreflightLevel
	IDs              IDStrategy
	Hash             HashAlgorithm
	StrictVersion    bool
}

// Default returns the DB-C14N/1.0 defaults.
func Default() Config {
	return Config{
		Mode:             ModeDbC14n,
		Sort:             SortCanonical,
		Prefixes:         PrefixLocked,
		Collision:        CollisionRename,
		LineEnding:       LF,
		IndentChar:       IndentSpace,
		IndentWidth:      defaultIndentWidth,
		Normalization:    NFC,
		Quote:            QuoteDouble,
		TimeZone:         TimeZoneUTC,
		DateTimeFormat:   DateTimeISO8601Z,
		Preserve:         PreserveAll(),
		VerifyIterations: defaultVerifyIterations,
		Preflight:        PreflightWarn,
		IDs:              IDStableHash,
		Hash:             HashSHA256,
	}
}

// Canonical reports whether the DB-C14N rule set is active.
func (c Config) Canonical() bool {
	return c.Mode == ModeDbC14n
}

// Validate checks ranges and cross-field requirements.
func (c Config) Validate() error {
	if c.IndentWidth < 0 || c.IndentWidth > maxIndentWidth {
		return fmt.Errorf("indent width must be in [0,%d], got %d", maxIndentWidth, c.IndentWidth)
	}
	if c.VerifyIterations < 1 {
		return fmt.Errorf("verify iterations must be >= 1, got %d", c.VerifyIterations)
	}
	if c.Sort == SortCustom && len(c.CustomOrder) == 0 {
		return fmt.Errorf("custom sort strategy requires an order table")
	}
	if c.DateTimeFormat == DateTimeCustom && c.DateTimeLayout == "" {
		return fmt.Errorf("custom date-time format requires a layout")
	}
	for _, v := range []struct {
		name  string
		value uint8
		limit int
	}{
		{"canon mode", uint8(c.Mode), len(canonModeNames)},
		{"sort strategy", uint8(c.Sort), len(sortNames)},
		{"prefix strategy", uint8(c.Prefixes), len(prefixNames)},
		{"prefix collision", uint8(c.Collision), len(collisionNames)},
		{"line ending", uint8(c.LineEnding), len(lineEndingNames)},
		{"indent char", uint8(c.IndentChar), len(indentCharNames)},
		{"normalization", uint8(c.Normalization), len(normalizationNames)},
		{"quote style", uint8(c.Quote), len(quoteNames)},
		{"time zone policy", uint8(c.TimeZone), len(timeZoneNames)},
		{"date-time format", uint8(c.DateTimeFormat), len(dateTimeFormatNames)},
		{"preflight level", uint8(c.Preflight), len(preflightNames)},
		{"id strategy", uint8(c.IDs), len(idStrategyNames)},
		{"hash algorithm", uint8(c.Hash), len(hashNames)},
	} {
		if int(v.value) >= v.limit {
			return fmt.Errorf("%s out of range: %d", v.name, v.value)
		}
	}
	return nil
}

// WithMode sets the canonicalization mode.
func (c Config) WithMode(v CanonMode) Config {
	c.Mode = v
	return c
}

// WithSort sets the ordering strategy.
func (c Config) WithSort(v SortStrategy) Config {
	c.Sort = v
	return c
}

// WithCustomOrder selects SortCustom with a parent→children order table.
// The table overrides the dialect table for the listed parents only.
func (c Config) WithCustomOrder(table map[string][]string) Config {
	c.Sort = SortCustom
	c.CustomOrder = make(map[string][]string, len(table))
	for parent, children := range table {
		c.CustomOrder[parent] = slices.Clone(children)
	}
	return c
}

// WithPrefixes sets the prefix strategy.
func (c Config) WithPrefixes(v PrefixStrategy) Config {
	c.Prefixes = v
	return c
}

// WithCollision sets the prefix collision policy.
func (c Config) WithCollision(v PrefixCollision) Config {
	c.Collision = v
	return c
}

// WithLineEnding sets the line terminator.
func (c Config) WithLineEnding(v LineEnding) Config {
	c.LineEnding = v
	return c
}

// WithIndent sets the indentation character and width.
func (c Config) WithIndent(ch IndentChar, width int) Config {
	c.IndentChar = ch
	c.IndentWidth = width
	return c
}

// WithNormalization sets the Unicode normal form.
func (c Config) WithNormalization(v Normalization) Config {
	c.Normalization = v
	return c
}

// WithQuote sets the attribute quote style.
func (c Config) WithQuote(v QuoteStyle) Config {
	c.Quote = v
	return c
}

// WithTimeZone sets the time zone policy. loc is used by TimeZoneLocal only.
func (c Config) WithTimeZone(v TimeZonePolicy, loc *time.Location) Config {
	c.TimeZone = v
	c.Location = loc
	return c
}

// WithDateTimeFormat sets the instant layout; layout is used by DateTimeCustom only.
func (c Config) WithDateTimeFormat(v DateTimeFormat, layout string) Config {
	c.DateTimeFormat = v
	c.DateTimeLayout = layout
	return c
}

// WithPreserve replaces the preservation flags.
func (c Config) WithPreserve(p Preservation) Config {
	c.Preserve = p
	return c
}

// WithBanner controls the reproducibility banner.
func (c Config) WithBanner(v bool) Config {
	c.EmitBanner = v
	return c
}

// WithVerifyIterations sets the determinism verifier iteration count.
func (c Config) WithVerifyIterations(n int) Config {
	c.VerifyIterations = n
	return c
}

// WithPreflight sets the preflight level.
func (c Config) WithPreflight(v PreflightLevel) Config {
	c.Preflight = v
	return c
}

// WithIDs sets the reference generation strategy.
func (c Config) WithIDs(v IDStrategy) Config {
	c.IDs = v
	return c
}

// WithHash sets the digest algorithm.
func (c Config) WithHash(v HashAlgorithm) Config {
	c.Hash = v
	return c
}

// WithStrictVersion makes unknown dialects fatal.
func (c Config) WithStrictVersion(v bool) Config {
	c.StrictVersion = v
	return c
}

// Banner renders the reproducibility record for every byte-affecting choice.
func (c Config) Banner() string {
	var b strings.Builder
	b.WriteString(Version)
	field := func(k, v string) {
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(v)
	}
	field("mode", c.Mode.String())
	field("sort", c.Sort.String())
	if c.Sort == SortCustom {
		parents := slices.Sorted(maps.Keys(c.CustomOrder))
		field("order", strings.Join(parents, ","))
	}
	field("prefixes", c.Prefixes.String())
	field("collision", c.Collision.String())
	field("nf", strings.ToUpper(c.Normalization.String()))
	field("eol", strings.ToUpper(c.LineEnding.String()))
	field("indent", fmt.Sprintf("%s:%d", c.IndentChar, c.IndentWidth))
	field("quote", c.Quote.String())
	tz := c.TimeZone.String()
	if c.TimeZone == TimeZoneLocal && c.Location != nil {
		tz += ":" + c.Location.String()
	}
	field("tz", tz)
	dt := c.DateTimeFormat.String()
	if c.DateTimeFormat == DateTimeCustom {
		dt += ":" + strings.ReplaceAll(c.DateTimeLayout, " ", "_")
	}
	field("dt", dt)
	field("ids", c.IDs.String())
	field("hash", c.Hash.String())
	return b.String()
}
