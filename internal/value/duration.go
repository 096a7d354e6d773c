package value

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var durationPattern = regexp.MustCompile(`^(-)?P(?:(\d+)Y)?(?:(\d+)M)?(?:(\d+)W)?(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)

// Duration is a parsed ISO-8601 duration.
type Duration struct {
	Negative bool
	Years    int
	Months   int
	Days     int
	Hours    int
	Minutes  int
	// Seconds keeps the canonical decimal text of the seconds component.
	Seconds string
}

// ParseDuration parses an ISO-8601 duration. Designators are
// case-insensitive and weeks are folded into days.
func ParseDuration(lexical string) (Duration, error) {
	s := strings.ToUpper(TrimSpace(lexical))
	m := durationPattern.FindStringSubmatch(s)
	if m == nil || s == "P" || s == "-P" || strings.HasSuffix(s, "T") {
		return Duration{}, fmt.Errorf("invalid duration %q", lexical)
	}
	var d Duration
	d.Negative = m[1] == "-"
	var weeks int
	fields := []*int{&d.Years, &d.Months, &weeks, &d.Days, &d.Hours, &d.Minutes}
	for i, dst := range fields {
		raw := m[i+2]
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return Duration{}, fmt.Errorf("duration component %q: %w", raw, err)
		}
		*dst = n
	}
	d.Days += weeks * 7
	d.Seconds = "0"
	if m[8] != "" {
		sec, err := Decimal(m[8])
		if err != nil {
			return Duration{}, err
		}
		d.Seconds = sec
	}
	if d.zero() {
		d.Negative = false
	}
	return d, nil
}

func (d Duration) zero() bool {
	return d.Years == 0 && d.Months == 0 && d.Days == 0 && d.Hours == 0 && d.Minutes == 0 && d.Seconds == "0"
}

// String renders the canonical form: uppercase designators, only non-zero
// components, PT0S for the zero duration.
func (d Duration) String() string {
	if d.zero() {
		return "PT0S"
	}
	var b strings.Builder
	if d.Negative {
		b.WriteByte('-')
	}
	b.WriteByte('P')
	writeComponent(&b, d.Years, 'Y')
	writeComponent(&b, d.Months, 'M')
	writeComponent(&b, d.Days, 'D')
	if d.Hours != 0 || d.Minutes != 0 || d.Seconds != "0" {
		b.WriteByte('T')
		writeComponent(&b, d.Hours, 'H')
		writeComponent(&b, d.Minutes, 'M')
		if d.Seconds != "0" {
			b.WriteString(d.Seconds)
			b.WriteByte('S')
		}
	}
	return b.String()
}

// TotalSeconds approximates the duration in whole seconds using 365-day
// years and 30-day months.
func (d Duration) TotalSeconds() int64 {
	sec, _ := strconv.ParseFloat(d.Seconds, 64)
	total := int64(d.Years)*365*86400 +
		int64(d.Months)*30*86400 +
		int64(d.Days)*86400 +
		int64(d.Hours)*3600 +
		int64(d.Minutes)*60 +
		int64(sec)
	if d.Negative {
		return -total
	}
	return total
}

// FromSeconds builds a canonical duration from a time.Duration, carrying
// whole hours and minutes.
func FromSeconds(td time.Duration) Duration {
	d := Duration{Negative: td < 0}
	if td < 0 {
		td = -td
	}
	d.Hours = int(td / time.Hour)
	td -= time.Duration(d.Hours) * time.Hour
	d.Minutes = int(td / time.Minute)
	td -= time.Duration(d.Minutes) * time.Minute
	sec, _ := Decimal(strconv.FormatFloat(td.Seconds(), 'f', -1, 64))
	d.Seconds = sec
	if d.zero() {
		d.Negative = false
	}
	return d
}

func writeComponent(b *strings.Builder, n int, designator byte) {
	if n == 0 {
		return
	}
	b.WriteString(strconv.Itoa(n))
	b.WriteByte(designator)
}
