package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestListSummary(t *testing.T) {
	list := List{
		New(CodeUnresolvedReference, "missing R9"),
		Warn(CodeUnknownElement, "skipped Foo"),
		Info(CodeUnknownAttribute, "kept bar"),
	}
	if got := list.Error(); !strings.HasSuffix(got, "(and 2 more)") {
		t.Fatalf("List.Error() = %q, want summary suffix", got)
	}
	if len(list.Errors()) != 1 || len(list.Warnings()) != 1 || len(list.Infos()) != 1 {
		t.Fatalf("severity filters = %d/%d/%d, want 1/1/1", len(list.Errors()), len(list.Warnings()), len(list.Infos()))
	}
	if !list.HasErrors() {
		t.Fatalf("HasErrors() = false, want true")
	}
	if d, ok := list.Find(CodeUnknownElement); !ok || d.Severity != SeverityWarning {
		t.Fatalf("Find(UNKNOWN_ELEMENT) = %+v, %v", d, ok)
	}
	if (List{}).HasErrors() {
		t.Fatalf("empty list HasErrors() = true")
	}
}

func TestDiagnosticFormatting(t *testing.T) {
	d := Newf(CodeInvalidFormat, "bad ISRC %q", "X").
		At(Location{Path: "/NewReleaseMessage/ResourceList/SoundRecording", Line: 4, Column: 7}).
		WithHint("use CC-XXX-YY-NNNNN without dashes")
	got := d.Error()
	for _, part := range []string{"[INVALID_FORMAT]", "line 4, column 7", "hint:"} {
		if !strings.Contains(got, part) {
			t.Fatalf("Error() = %q, missing %q", got, part)
		}
	}
	if got := (Location{Offset: 12}).String(); got != "(offset 12)" {
		t.Fatalf("Location.String() = %q", got)
	}
}

func TestErrorMatchesSentinelByCode(t *testing.T) {
	err := fmt.Errorf("build: %w", NamespaceLock("ern", "urn:x", Location{}))
	if !stderrors.Is(err, ErrNamespaceLock) {
		t.Fatalf("errors.Is(NamespaceLock, ErrNamespaceLock) = false")
	}
	if stderrors.Is(err, ErrTimeout) {
		t.Fatalf("errors.Is(NamespaceLock, ErrTimeout) = true")
	}
	if got := CodeOf(err); got != CodeNamespaceLockViolation {
		t.Fatalf("CodeOf() = %q", got)
	}
}

func TestTimeoutUnwraps(t *testing.T) {
	err := Timeout(PhaseParse, 1500*time.Millisecond, context.DeadlineExceeded)
	if !stderrors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Timeout does not unwrap to its cause")
	}
	if err.Elapsed != 1500*time.Millisecond {
		t.Fatalf("Elapsed = %v", err.Elapsed)
	}
	if !strings.HasPrefix(err.Error(), "parse: [TIMEOUT]") {
		t.Fatalf("Error() = %q", err.Error())
	}
}

func TestValidationFailedKeepsOnlyErrors(t *testing.T) {
	err := ValidationFailed(List{
		New(CodeRequiredFieldMissing, "MessageId missing"),
		Warn(CodeVersionFallback, "assuming 4.3"),
	})
	if len(err.Diagnostics) != 1 {
		t.Fatalf("Diagnostics = %d, want 1", len(err.Diagnostics))
	}
	if CodeOf(err) != CodeValidationFailed {
		t.Fatalf("CodeOf() = %q", CodeOf(err))
	}
}

func TestLinkFailedPhase(t *testing.T) {
	err := LinkFailed(List{New(CodeDuplicateReference, "A1 defined twice")})
	if err.Phase != PhaseLink || CodeOf(err) != CodeValidationFailed {
		t.Fatalf("LinkFailed() = %v", err)
	}
	if !stderrors.Is(err, ErrValidationFailed) {
		t.Fatalf("errors.Is(LinkFailed(), ErrValidationFailed) = false")
	}
}

func TestCodeOfPlainValues(t *testing.T) {
	if got := CodeOf(New(CodeIO, "x")); got != CodeIO {
		t.Fatalf("CodeOf(Diagnostic) = %q", got)
	}
	if got := CodeOf(List{New(CodeXML, "x")}); got != CodeXML {
		t.Fatalf("CodeOf(List) = %q", got)
	}
	if got := CodeOf(stderrors.New("plain")); got != "" {
		t.Fatalf("CodeOf(plain) = %q", got)
	}
	if _, ok := AsError(nil); ok {
		t.Fatalf("AsError(nil) ok = true")
	}
}
