package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Code is a stable machine-readable error code.
type Code string

const (
	// CodeXML indicates the input is not well-formed XML.
	CodeXML Code = "XML_ERROR"
	// CodeInvalidVersion indicates no known ERN dialect matched in strict mode.
	CodeInvalidVersion Code = "INVALID_VERSION"
	// CodeUnresolvedReference indicates a reference whose target does not exist.
	CodeUnresolvedReference Code = "UNRESOLVED_REFERENCE"
	// CodeSecurityViolation indicates a parse limit was exceeded or a forbidden construct was found.
	CodeSecurityViolation Code = "SECURITY_VIOLATION"
	// CodeTimeout indicates the operation ran past its time budget.
	CodeTimeout Code = "TIMEOUT"
	// CodeNamespaceLockViolation indicates an input binding conflicts with a locked prefix.
	CodeNamespaceLockViolation Code = "NAMESPACE_LOCK_VIOLATION"
	// CodeDeterminismFailure indicates an internal determinism invariant broke.
	CodeDeterminismFailure Code = "DETERMINISM_FAILURE"
	// CodeValidationFailed indicates preflight found errors at Strict level.
	CodeValidationFailed Code = "VALIDATION_FAILED"
	// CodeIO indicates reading input or writing output failed.
	CodeIO Code = "IO_ERROR"

	// CodeDuplicateReference indicates two entities define the same reference.
	CodeDuplicateReference Code = "DUPLICATE_REFERENCE"
	// CodeReferenceCycle indicates a forbidden cycle between entities.
	CodeReferenceCycle Code = "REFERENCE_CYCLE"
	// CodeReferenceTypeMismatch indicates a reference resolves to the wrong entity kind.
	CodeReferenceTypeMismatch Code = "REFERENCE_TYPE_MISMATCH"
	// CodeUnknownElement indicates an element that is not part of the dialect vocabulary.
	CodeUnknownElement Code = "UNKNOWN_ELEMENT"
	// CodeUnknownAttribute indicates an unmodelled attribute on a schema element.
	CodeUnknownAttribute Code = "UNKNOWN_ATTRIBUTE"
	// CodeVersionFallback indicates detection fell back to the newest dialect.
	CodeVersionFallback Code = "VERSION_FALLBACK"
	// CodeRequiredFieldMissing indicates a required field is empty.
	CodeRequiredFieldMissing Code = "REQUIRED_FIELD_MISSING"
	// CodeInvalidFormat indicates an identifier or value has the wrong lexical form.
	CodeInvalidFormat Code = "INVALID_FORMAT"
	// CodeInvalidChecksum indicates an identifier check digit is wrong.
	CodeInvalidChecksum Code = "INVALID_CHECKSUM"
	// CodeInvalidDateOrder indicates a validity window ends before it starts.
	CodeInvalidDateOrder Code = "INVALID_DATE_ORDER"
	// CodeProfileConstraint indicates a profile-specific rule failed.
	CodeProfileConstraint Code = "PROFILE_CONSTRAINT"
	// CodeConfigLocked indicates a mutation attempted after a locked preset was applied.
	CodeConfigLocked Code = "CONFIG_LOCKED"
	// CodeInvalidConfig indicates an option value is out of range.
	CodeInvalidConfig Code = "INVALID_CONFIG"
)

// Severity ranks a diagnostic.
type Severity uint8

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return fmt.Sprintf("severity(%d)", uint8(s))
	}
}

// Phase names the stage that produced an error.
type Phase string

const (
	PhaseDetect    Phase = "detect"
	PhaseParse     Phase = "parse"
	PhaseLink      Phase = "link"
	PhasePreflight Phase = "preflight"
	PhaseGenerate  Phase = "generate"
	PhaseCanonical Phase = "canonicalize"
	PhaseVerify    Phase = "verify"
	PhaseRoundTrip Phase = "roundtrip"
	PhaseConfigure Phase = "configure"
)

// Location points into the input document.
// Zero fields are unknown.
type Location struct {
	Path   string
	Line   int
	Column int
	Offset int64
}

// IsZero reports whether no location information is present.
func (l Location) IsZero() bool {
	return l.Path == "" && l.Line == 0 && l.Column == 0 && l.Offset == 0
}

func (l Location) String() string {
	var b strings.Builder
	if l.Path != "" {
		b.WriteString(l.Path)
	}
	if l.Line > 0 && l.Column > 0 {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "(line %d, column %d)", l.Line, l.Column)
	} else if l.Offset > 0 {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "(offset %d)", l.Offset)
	}
	return b.String()
}

// Diagnostic describes one finding with a code, severity and optional
// source location. Subject carries the offending value, such as a reference.
type Diagnostic struct {
	Code     Code
	Severity Severity
	Message  string
	Hint     string
	Subject  string
	Location Location
}

// Error formats the diagnostic for display, including code, message and context.
func (d Diagnostic) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", d.Code, d.Message)
	if !d.Location.IsZero() {
		fmt.Fprintf(&b, " at %s", d.Location)
	}
	if d.Hint != "" {
		fmt.Fprintf(&b, " (hint: %s)", d.Hint)
	}
	return b.String()
}

// New builds an error-severity diagnostic.
func New(code Code, msg string) Diagnostic {
	return Diagnostic{Code: code, Severity: SeverityError, Message: msg}
}

// Newf formats a message and builds an error-severity diagnostic.
func Newf(code Code, format string, args ...any) Diagnostic {
	return New(code, fmt.Sprintf(format, args...))
}

// Warn builds a warning-severity diagnostic.
func Warn(code Code, msg string) Diagnostic {
	return Diagnostic{Code: code, Severity: SeverityWarning, Message: msg}
}

// Warnf formats a message and builds a warning-severity diagnostic.
func Warnf(code Code, format string, args ...any) Diagnostic {
	return Warn(code, fmt.Sprintf(format, args...))
}

// Info builds an info-severity diagnostic.
func Info(code Code, msg string) Diagnostic {
	return Diagnostic{Code: code, Severity: SeverityInfo, Message: msg}
}

// At returns a copy with the location set.
func (d Diagnostic) At(loc Location) Diagnostic {
	d.Location = loc
	return d
}

// WithHint returns a copy with a remediation hint.
func (d Diagnostic) WithHint(hint string) Diagnostic {
	d.Hint = hint
	return d
}

// WithSubject returns a copy naming the offending value.
func (d Diagnostic) WithSubject(subject string) Diagnostic {
	d.Subject = subject
	return d
}

// WithSeverity returns a copy with a different severity.
func (d Diagnostic) WithSeverity(s Severity) Diagnostic {
	d.Severity = s
	return d
}

// List is an ordered collection of diagnostics. It satisfies error so it
// can be returned directly when every entry is fatal.
type List []Diagnostic

// Error returns a compact summary of the diagnostics.
func (l List) Error() string {
	switch len(l) {
	case 0:
		return "no diagnostics"
	case 1:
		return l[0].Error()
	default:
		return fmt.Sprintf("%s (and %d more)", l[0].Error(), len(l)-1)
	}
}

// Errors returns the error-severity entries.
func (l List) Errors() List { return l.filter(SeverityError) }

// Warnings returns the warning-severity entries.
func (l List) Warnings() List { return l.filter(SeverityWarning) }

// Infos returns the info-severity entries.
func (l List) Infos() List { return l.filter(SeverityInfo) }

// HasErrors reports whether any entry has error severity.
func (l List) HasErrors() bool {
	for i := range l {
		if l[i].Severity == SeverityError {
			return true
		}
	}
	return false
}

// Find returns the first entry with the given code.
func (l List) Find(code Code) (Diagnostic, bool) {
	for _, d := range l {
		if d.Code == code {
			return d, true
		}
	}
	return Diagnostic{}, false
}

func (l List) filter(s Severity) List {
	var out List
	for _, d := range l {
		if d.Severity == s {
			out = append(out, d)
		}
	}
	return out
}

// Error is the failure arm of every fallible operation.
type Error struct {
	Diagnostic
	Phase       Phase
	Elapsed     time.Duration
	Diagnostics List
	Err         error
}

// Error formats the error with its phase and cause.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	if e.Phase != "" {
		b.WriteString(string(e.Phase))
		b.WriteString(": ")
	}
	b.WriteString(e.Diagnostic.Error())
	if len(e.Diagnostics) > 0 {
		fmt.Fprintf(&b, ": %s", e.Diagnostics.Error())
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches another *Error by code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || t == nil || e == nil {
		return false
	}
	return t.Code == e.Code
}

// Sentinels usable with errors.Is.
var (
	ErrXML                 = &Error{Diagnostic: New(CodeXML, "malformed XML")}
	ErrInvalidVersion      = &Error{Diagnostic: New(CodeInvalidVersion, "unknown ERN version")}
	ErrSecurityViolation   = &Error{Diagnostic: New(CodeSecurityViolation, "security limit exceeded")}
	ErrTimeout             = &Error{Diagnostic: New(CodeTimeout, "time budget exceeded")}
	ErrNamespaceLock       = &Error{Diagnostic: New(CodeNamespaceLockViolation, "namespace lock violated")}
	ErrDeterminismFailure  = &Error{Diagnostic: New(CodeDeterminismFailure, "determinism invariant broken")}
	ErrValidationFailed    = &Error{Diagnostic: New(CodeValidationFailed, "preflight validation failed")}
	ErrIO                  = &Error{Diagnostic: New(CodeIO, "i/o failure")}
	ErrConfigLocked        = &Error{Diagnostic: New(CodeConfigLocked, "configuration is locked")}
	ErrUnresolvedReference = &Error{Diagnostic: New(CodeUnresolvedReference, "unresolved reference")}
)

// Wrap builds an *Error from a diagnostic.
func Wrap(phase Phase, d Diagnostic, cause error) *Error {
	return &Error{Diagnostic: d, Phase: phase, Err: cause}
}

// XML reports malformed input at a location.
func XML(loc Location, msg string, cause error) *Error {
	d := New(CodeXML, msg).At(loc).WithHint("check that the document is well-formed UTF-8 XML")
	return Wrap(PhaseParse, d, cause)
}

// InvalidVersion reports an unknown dialect under strict detection.
func InvalidVersion(uri string) *Error {
	d := Newf(CodeInvalidVersion, "no known ERN dialect for namespace %q", uri).
		WithSubject(uri).
		WithHint("declare an ERN 3.8.2, 4.2 or 4.3 namespace on the root element")
	return Wrap(PhaseDetect, d, nil)
}

// Security reports a breached parse limit.
func Security(loc Location, limit string, cause error) *Error {
	d := Newf(CodeSecurityViolation, "limit %s exceeded", limit).At(loc).WithSubject(limit)
	return Wrap(PhaseParse, d, cause)
}

// Timeout reports an expired time budget during phase.
func Timeout(phase Phase, elapsed time.Duration, cause error) *Error {
	d := Newf(CodeTimeout, "%s abandoned after %.3fs", phase, elapsed.Seconds()).
		WithHint("raise the timeout budget or split the input")
	e := Wrap(phase, d, cause)
	e.Elapsed = elapsed
	return e
}

// NamespaceLock reports a binding that conflicts with a locked prefix.
func NamespaceLock(prefix, uri string, loc Location) *Error {
	d := Newf(CodeNamespaceLockViolation, "prefix %q for %q collides with a locked prefix", prefix, uri).
		At(loc).
		WithSubject(prefix).
		WithHint("enable prefix renaming or choose a different prefix")
	return Wrap(PhaseCanonical, d, nil)
}

// DeterminismFailure reports a broken internal invariant.
func DeterminismFailure(phase Phase, msg string) *Error {
	return Wrap(phase, New(CodeDeterminismFailure, msg), nil)
}

// ValidationFailed wraps preflight errors.
func ValidationFailed(list List) *Error {
	errs := list.Errors()
	d := Newf(CodeValidationFailed, "%d preflight error(s)", len(errs)).
		WithHint("fix the listed errors or lower the preflight level")
	e := Wrap(PhasePreflight, d, nil)
	e.Diagnostics = errs
	return e
}

// LinkFailed wraps reference errors that fail a build at every preflight
// level.
func LinkFailed(list List) *Error {
	errs := list.Errors()
	d := Newf(CodeValidationFailed, "%d reference error(s)", len(errs))
	e := Wrap(PhaseLink, d, nil)
	e.Diagnostics = errs
	return e
}

// IO reports an input or output failure.
func IO(phase Phase, msg string, cause error) *Error {
	return Wrap(phase, New(CodeIO, msg), cause)
}

// ConfigLocked reports a mutation attempted on a locked configuration.
func ConfigLocked(preset string) *Error {
	d := Newf(CodeConfigLocked, "configuration locked by preset %q", preset).
		WithSubject(preset).
		WithHint("create a new builder to change options")
	return Wrap(PhaseConfigure, d, nil)
}

// AsError extracts an *Error from err.
func AsError(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e, true
	}
	return nil, false
}

// CodeOf returns the machine code carried by err, or the empty code.
func CodeOf(err error) Code {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	var d Diagnostic
	if errors.As(err, &d) {
		return d.Code
	}
	var l List
	if errors.As(err, &l) && len(l) > 0 {
		return l[0].Code
	}
	return ""
}
