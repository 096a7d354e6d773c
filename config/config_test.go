package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v, want nil", err)
	}
	if !cfg.Canonical() {
		t.Fatalf("Default().Canonical() = false, want true")
	}
	if !cfg.Preserve.Comments || !cfg.Preserve.Extensions {
		t.Fatalf("Default() preservation = %+v, want all enabled", cfg.Preserve)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"negative indent", Default().WithIndent(IndentSpace, -1)},
		{"wide indent", Default().WithIndent(IndentTab, 17)},
		{"zero iterations", Default().WithVerifyIterations(0)},
		{"custom sort without table", Default().WithSort(SortCustom)},
		{"custom layout missing", Default().WithDateTimeFormat(DateTimeCustom, "")},
		{"mode out of range", Default().WithMode(CanonMode(9))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); err == nil {
				t.Fatalf("Validate() = nil, want error")
			}
		})
	}
}

func TestWithCustomOrderClones(t *testing.T) {
	table := map[string][]string{"ResourceList": {"Video", "SoundRecording"}}
	cfg := Default().WithCustomOrder(table)
	table["ResourceList"][0] = "Image"
	if cfg.Sort != SortCustom {
		t.Fatalf("Sort = %v, want custom", cfg.Sort)
	}
	if got := cfg.CustomOrder["ResourceList"][0]; got != "Video" {
		t.Fatalf("CustomOrder aliased caller table: got %q", got)
	}
}

func TestWithDoesNotMutateReceiver(t *testing.T) {
	base := Default()
	_ = base.WithMode(ModeCompact).WithHash(HashBLAKE2b256)
	if base.Mode != ModeDbC14n || base.Hash != HashSHA256 {
		t.Fatalf("With* mutated receiver: %+v", base)
	}
}

func TestBannerRecordsChoices(t *testing.T) {
	got := Default().Banner()
	want := "DB-C14N/1.0 mode=dbc14n sort=canonical prefixes=locked collision=rename nf=NFC eol=LF indent=space:2 quote=double tz=utc dt=iso8601z ids=stable-hash hash=sha256"
	if got != want {
		t.Fatalf("Banner() = %q, want %q", got, want)
	}

	custom := Default().
		WithNormalization(NFKC).
		WithTimeZone(TimeZoneLocal, time.FixedZone("X", 3600)).
		WithDateTimeFormat(DateTimeCustom, "2006-01-02 15:04").
		Banner()
	for _, part := range []string{"nf=NFKC", "tz=local:X", "dt=custom:2006-01-02_15:04"} {
		if !strings.Contains(custom, part) {
			t.Fatalf("Banner() = %q, missing %q", custom, part)
		}
	}
	if Default().Banner() == Default().WithLineEnding(CRLF).Banner() {
		t.Fatalf("Banner() does not distinguish line endings")
	}
}

func TestEnumText(t *testing.T) {
	var h HashAlgorithm
	for in, want := range map[string]HashAlgorithm{
		"sha256":     HashSHA256,
		"SHA512_256": HashSHA512_256,
		"blake2b256": HashBLAKE2b256,
		" sha3-256 ": HashSHA3_256,
	} {
		if err := h.UnmarshalText([]byte(in)); err != nil {
			t.Fatalf("UnmarshalText(%q) error = %v", in, err)
		}
		if h != want {
			t.Fatalf("UnmarshalText(%q) = %v, want %v", in, h, want)
		}
	}
	var ids IDStrategy
	if err := ids.UnmarshalText([]byte("time_ordered_uuid")); err != nil || ids != IDTimeOrderedUUID {
		t.Fatalf("UnmarshalText(time_ordered_uuid) = %v, %v", ids, err)
	}
	if ids.Deterministic() {
		t.Fatalf("IDTimeOrderedUUID.Deterministic() = true")
	}
	var mode CanonMode
	if err := mode.UnmarshalText([]byte("fancy")); err == nil {
		t.Fatalf("UnmarshalText(fancy) expected error")
	}
	if got := CanonMode(7).String(); got != "unknown(7)" {
		t.Fatalf("String() = %q", got)
	}
}
