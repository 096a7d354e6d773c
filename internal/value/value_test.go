package value

import (
	"testing"
	"time"

	"github.com/daddykev/ddex-suite/config"
	"github.com/daddykev/ddex-suite/internal/dialect"
)

func TestDecimal(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"48.0", "48"},
		{"+1.50", "1.5"},
		{"007", "7"},
		{".5", "0.5"},
		{"-0.000", "0"},
		{" 320.250 ", "320.25"},
		{"-12.010", "-12.01"},
	}
	for _, tt := range tests {
		got, err := Decimal(tt.in)
		if err != nil {
			t.Fatalf("Decimal(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("Decimal(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	for _, bad := range []string{"", ".", "1e5", "1.2.3", "abc"} {
		if _, err := Decimal(bad); err == nil {
			t.Fatalf("Decimal(%q) expected error", bad)
		}
	}
}

func TestIntegerAndBoolean(t *testing.T) {
	if got, err := Integer("+0042"); err != nil || got != "42" {
		t.Fatalf("Integer(+0042) = %q, %v", got, err)
	}
	if _, err := Integer("4.2"); err == nil {
		t.Fatalf("Integer(4.2) expected error")
	}
	if got, err := Boolean(" TRUE "); err != nil || got != "true" {
		t.Fatalf("Boolean(TRUE) = %q, %v", got, err)
	}
	if got, err := Boolean("0"); err != nil || got != "false" {
		t.Fatalf("Boolean(0) = %q, %v", got, err)
	}
	if _, err := Boolean("yes"); err == nil {
		t.Fatalf("Boolean(yes) expected error")
	}
}

func TestDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		seconds int64
	}{
		{"PT3M45S", "PT3M45S", 225},
		{"pt3m45.500s", "PT3M45.5S", 225},
		{"PT0H3M0S", "PT3M", 180},
		{"PT0S", "PT0S", 0},
		{"P0D", "PT0S", 0},
		{"-PT0S", "PT0S", 0},
		{"P1W", "P7D", 7 * 86400},
		{"P1DT1H", "P1DT1H", 90000},
	}
	for _, tt := range tests {
		d, err := ParseDuration(tt.in)
		if err != nil {
			t.Fatalf("ParseDuration(%q) error = %v", tt.in, err)
		}
		if got := d.String(); got != tt.want {
			t.Fatalf("ParseDuration(%q).String() = %q, want %q", tt.in, got, tt.want)
		}
		if got := d.TotalSeconds(); got != tt.seconds {
			t.Fatalf("ParseDuration(%q).TotalSeconds() = %d, want %d", tt.in, got, tt.seconds)
		}
	}
	for _, bad := range []string{"", "P", "PT", "3M", "P1S", "PT1.S"} {
		if _, err := ParseDuration(bad); err == nil {
			t.Fatalf("ParseDuration(%q) expected error", bad)
		}
	}
}

func TestFromSeconds(t *testing.T) {
	if got := FromSeconds(225 * time.Second).String(); got != "PT3M45S" {
		t.Fatalf("FromSeconds(225s) = %q, want PT3M45S", got)
	}
	if got := FromSeconds(0).String(); got != "PT0S" {
		t.Fatalf("FromSeconds(0) = %q, want PT0S", got)
	}
}

func TestDateTime(t *testing.T) {
	berlin := time.FixedZone("CET", 3600)
	tests := []struct {
		name string
		in   string
		f    Format
		want string
	}{
		{"utc offset converted", "2024-01-15T10:30:00+02:00", Format{}, "2024-01-15T08:30:00.000Z"},
		{"fraction truncated to millis", "2024-01-15T10:30:00.123456Z", Format{}, "2024-01-15T10:30:00.123Z"},
		{"floating treated as utc", "2024-01-15T10:30:00", Format{}, "2024-01-15T10:30:00.000Z"},
		{"preserve offset", "2024-01-15T10:30:00+02:00", Format{TimeZone: config.TimeZonePreserve, DateTime: config.DateTimeISO8601}, "2024-01-15T10:30:00.000+02:00"},
		{"preserve floating", "2024-01-15T10:30:00", Format{TimeZone: config.TimeZonePreserve, DateTime: config.DateTimeISO8601}, "2024-01-15T10:30:00.000"},
		{"local zone", "2024-01-15T10:30:00Z", Format{TimeZone: config.TimeZoneLocal, Location: berlin, DateTime: config.DateTimeISO8601}, "2024-01-15T11:30:00.000+01:00"},
		{"custom layout", "2024-01-15T10:30:00Z", Format{DateTime: config.DateTimeCustom, Layout: "2006-01-02 15:04"}, "2024-01-15 10:30"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DateTime(tt.in, tt.f)
			if err != nil {
				t.Fatalf("DateTime() error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("DateTime() = %q, want %q", got, tt.want)
			}
		})
	}
	if _, err := DateTime("15/01/2024", Format{}); err == nil {
		t.Fatalf("DateTime() expected error for non ISO input")
	}
}

func TestDate(t *testing.T) {
	for in, want := range map[string]string{
		"2024-03-01":       "2024-03-01",
		" 2024-03-01Z ":    "2024-03-01",
		"2024-03-01+05:00": "2024-03-01",
	} {
		got, err := Date(in)
		if err != nil || got != want {
			t.Fatalf("Date(%q) = %q, %v, want %q", in, got, err, want)
		}
	}
	if _, err := Date("2024-13-01"); err == nil {
		t.Fatalf("Date(2024-13-01) expected error")
	}
}

func TestCanonicalDispatch(t *testing.T) {
	if got, _ := Canonical(dialect.ValueDecimal, "48.0", Format{}); got != "48" {
		t.Fatalf("Canonical(decimal) = %q, want 48", got)
	}
	if got, _ := Canonical(dialect.ValueText, " keep ", Format{}); got != " keep " {
		t.Fatalf("Canonical(text) = %q, want unchanged", got)
	}
}
