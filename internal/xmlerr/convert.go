// Package xmlerr maps tokenizer failures onto the public error taxonomy.
package xmlerr

import (
	"context"
	"errors"
	"time"

	ddexerrors "github.com/daddykev/ddex-suite/errors"
	"github.com/daddykev/ddex-suite/pkg/xmltext"
)

// Convert classifies err as a security violation, syntax error, timeout or
// I/O failure. Errors that already carry a code pass through.
func Convert(err error, phase ddexerrors.Phase, started time.Time) error {
	if err == nil {
		return nil
	}
	if _, ok := ddexerrors.AsError(err); ok {
		return err
	}
	var sec *xmltext.SecurityError
	if errors.As(err, &sec) {
		loc := ddexerrors.Location{Path: sec.Path, Line: sec.Line, Column: sec.Column, Offset: sec.Offset}
		e := ddexerrors.Security(loc, sec.Limit, err)
		e.Phase = phase
		return e
	}
	var syn *xmltext.SyntaxError
	if errors.As(err, &syn) {
		loc := ddexerrors.Location{Path: syn.Path, Line: syn.Line, Column: syn.Column, Offset: syn.Offset}
		e := ddexerrors.XML(loc, syn.Err.Error(), err)
		e.Phase = phase
		return e
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ddexerrors.Timeout(phase, time.Since(started), err)
	}
	return ddexerrors.IO(phase, "read input", err)
}
