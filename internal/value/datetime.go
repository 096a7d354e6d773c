package value

import (
	"fmt"
	"time"

	"github.com/daddykev/ddex-suite/config"
)

const (
	layoutZulu   = "2006-01-02T15:04:05.000Z"
	layoutOffset = "2006-01-02T15:04:05.000Z07:00"
	layoutLocal  = "2006-01-02T15:04:05.000"
	layoutDate   = "2006-01-02"
)

var dateTimeInputs = []struct {
	layout string
	zoned  bool
}{
	{time.RFC3339Nano, true},
	{"2006-01-02T15:04:05.999999999", false},
	{"2006-01-02T15:04Z07:00", true},
	{"2006-01-02T15:04", false},
}

// Format controls how typed temporal leaves are rendered.
type Format struct {
	TimeZone config.TimeZonePolicy
	Location *time.Location
	DateTime config.DateTimeFormat
	Layout   string
}

// FormatFrom extracts the temporal settings of cfg.
func FormatFrom(cfg config.Config) Format {
	return Format{
		TimeZone: cfg.TimeZone,
		Location: cfg.Location,
		DateTime: cfg.DateTimeFormat,
		Layout:   cfg.DateTimeLayout,
	}
}

// ParseDateTime parses an ISO-8601 date-time. zoned reports whether the
// input carried an offset; unzoned values are returned in UTC.
func ParseDateTime(lexical string) (t time.Time, zoned bool, err error) {
	s := TrimSpace(lexical)
	for _, in := range dateTimeInputs {
		if t, err := time.Parse(in.layout, s); err == nil {
			return t, in.zoned, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("invalid date-time %q", lexical)
}

// DateTime renders a date-time leaf.
func DateTime(lexical string, f Format) (string, error) {
	t, zoned, err := ParseDateTime(lexical)
	if err != nil {
		return "", err
	}
	return f.Time(t, zoned), nil
}

// Time renders t under the zone policy and output format. zoned is false
// for floating values, which Preserve keeps without an offset.
func (f Format) Time(t time.Time, zoned bool) string {
	switch f.TimeZone {
	case config.TimeZoneUTC:
		t, zoned = t.UTC(), true
	case config.TimeZoneLocal:
		loc := f.Location
		if loc == nil {
			loc = time.UTC
		}
		t, zoned = t.In(loc), true
	}
	switch f.DateTime {
	case config.DateTimeCustom:
		if f.Layout != "" {
			return t.Format(f.Layout)
		}
	case config.DateTimeISO8601:
		if !zoned {
			return t.Format(layoutLocal)
		}
		return t.Format(layoutOffset)
	}
	if !zoned {
		return t.Format(layoutLocal)
	}
	return t.UTC().Format(layoutZulu)
}

// Date renders a calendar date as YYYY-MM-DD. A trailing zone designator is
// dropped.
func Date(lexical string) (string, error) {
	s := TrimSpace(lexical)
	if len(s) < len(layoutDate) {
		return "", fmt.Errorf("invalid date %q", lexical)
	}
	t, err := time.Parse(layoutDate, s[:len(layoutDate)])
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", lexical, err)
	}
	if rest := s[len(layoutDate):]; rest != "" && rest != "Z" {
		if _, err := time.Parse("Z07:00", rest); err != nil {
			return "", fmt.Errorf("invalid date %q", lexical)
		}
	}
	return t.Format(layoutDate), nil
}

// ParseDate parses YYYY-MM-DD, ignoring a trailing zone designator.
func ParseDate(lexical string) (time.Time, error) {
	s, err := Date(lexical)
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(layoutDate, s)
}
