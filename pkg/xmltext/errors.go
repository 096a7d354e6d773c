package xmltext

import (
	"errors"
	"fmt"
)

var (
	errNilReader          = errors.New("nil XML reader")
	errUnexpectedEOF      = errors.New("unexpected EOF")
	errInvalidName        = errors.New("invalid XML name")
	errInvalidEntity      = errors.New("invalid entity reference")
	errInvalidCharRef     = errors.New("invalid character reference")
	errInvalidUTF8        = errors.New("invalid UTF-8")
	errInvalidChar        = errors.New("invalid XML character")
	errInvalidToken       = errors.New("invalid XML token")
	errInvalidComment     = errors.New("invalid XML comment")
	errInvalidPI          = errors.New("invalid XML processing instruction")
	errInvalidAttr        = errors.New("invalid attribute")
	errUnsupportedEnc     = errors.New("unsupported encoding")
	errDuplicateAttr      = errors.New("duplicate attribute name")
	errMismatchedEndTag   = errors.New("mismatched end element")
	errMultipleRoots      = errors.New("multiple root elements")
	errContentOutsideRoot = errors.New("content outside root element")
	errMissingRoot        = errors.New("missing root element")
	errMisplacedDirective = errors.New("directive outside prolog")
	errMisplacedXMLDecl   = errors.New("XML declaration not at start")
)

// Limit names reported by SecurityError.
const (
	LimitDepth            = "max-depth"
	LimitAttrs            = "max-attrs"
	LimitTokenSize        = "max-token-size"
	LimitTotalBytes       = "max-total-bytes"
	LimitEntityRefs       = "max-entity-refs"
	LimitExternalEntities = "external-entities"
)

// SyntaxError reports a well-formedness error with location context.
type SyntaxError struct {
	Offset int64
	Line   int
	Column int
	Path   string
	Err    error
}

// Error formats the syntax error with location and cause.
func (e *SyntaxError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Line > 0 && e.Column > 0 {
		return fmt.Sprintf("xml syntax error at line %d, column %d: %v", e.Line, e.Column, e.Err)
	}
	return fmt.Sprintf("xml syntax error at offset %d: %v", e.Offset, e.Err)
}

// Unwrap exposes the underlying error.
func (e *SyntaxError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// SecurityError reports a breached resource cap or a forbidden construct.
// Decoding stops at the breach; nothing past the cap is buffered.
type SecurityError struct {
	Limit  string
	Max    int64
	Offset int64
	Line   int
	Column int
	Path   string
}

// Error formats the breach.
func (e *SecurityError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Limit == LimitExternalEntities {
		return fmt.Sprintf("xml security violation at line %d, column %d: entity declarations are disabled", e.Line, e.Column)
	}
	return fmt.Sprintf("xml security violation at line %d, column %d: %s %d exceeded", e.Line, e.Column, e.Limit, e.Max)
}
