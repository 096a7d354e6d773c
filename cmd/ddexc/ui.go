package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	ddexerrors "github.com/daddykev/ddex-suite/errors"
)

var (
	colorOK    = lipgloss.Color("#22C55E")
	colorWarn  = lipgloss.Color("#EAB308")
	colorError = lipgloss.Color("#EF4444")
	colorMuted = lipgloss.Color("#6B7280")
)

// printer writes results to stdout and status to stderr. Styles come from
// renderers bound to each writer, so piped output carries no escape codes.
type printer struct {
	out, err io.Writer

	label, ok, muted      lipgloss.Style
	warn, fail, errHeader lipgloss.Style
}

func newPrinter(stdout, stderr io.Writer) *printer {
	o := lipgloss.NewRenderer(stdout)
	e := lipgloss.NewRenderer(stderr)
	return &printer{
		out:       stdout,
		err:       stderr,
		label:     o.NewStyle().Bold(true),
		ok:        o.NewStyle().Foreground(colorOK),
		muted:     o.NewStyle().Foreground(colorMuted),
		warn:      e.NewStyle().Foreground(colorWarn),
		fail:      e.NewStyle().Foreground(colorError),
		errHeader: e.NewStyle().Foreground(colorError).Bold(true),
	}
}

// field prints an aligned "name: value" line.
func (p *printer) field(name string, value any) {
	_, _ = fmt.Fprintf(p.out, "%s %v\n", p.label.Render(fmt.Sprintf("%-12s", name+":")), value)
}

func (p *printer) line(format string, args ...any) {
	_, _ = fmt.Fprintf(p.out, format+"\n", args...)
}

func (p *printer) success(format string, args ...any) {
	_, _ = fmt.Fprintln(p.out, p.ok.Render(fmt.Sprintf(format, args...)))
}

func (p *printer) errorf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.err, "%s %s\n", p.errHeader.Render("error:"), fmt.Sprintf(format, args...))
}

// diagnostics lists warnings and errors on stderr; infos only at verbose
// log levels, which the caller decides.
func (p *printer) diagnostics(list ddexerrors.List, infos bool) {
	for _, d := range list {
		var tag string
		switch d.Severity {
		case ddexerrors.SeverityError:
			tag = p.fail.Render("error")
		case ddexerrors.SeverityWarning:
			tag = p.warn.Render("warn ")
		default:
			if !infos {
				continue
			}
			tag = "info "
		}
		var b strings.Builder
		b.WriteString(string(d.Code))
		b.WriteString(": ")
		b.WriteString(d.Message)
		if !d.Location.IsZero() {
			b.WriteString(" at ")
			b.WriteString(d.Location.String())
		}
		_, _ = fmt.Fprintf(p.err, "%s %s\n", tag, b.String())
	}
}
