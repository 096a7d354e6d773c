package canon

import (
	"bytes"
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/daddykev/ddex-suite/config"
	"github.com/daddykev/ddex-suite/internal/ast"
)

type writer struct {
	ctx    context.Context
	err    error
	buf    []byte
	eol    []byte
	indent []byte
	quote  byte
	pretty bool
}

func newWriter(cfg config.Config) *writer {
	w := &writer{eol: cfg.LineEnding.Bytes(), quote: '"', pretty: cfg.Mode != config.ModeCompact}
	if cfg.Quote == config.QuoteSingle {
		w.quote = '\''
	}
	ch := byte(' ')
	if cfg.IndentChar == config.IndentTab {
		ch = '\t'
	}
	w.indent = bytes.Repeat([]byte{ch}, cfg.IndentWidth)
	return w
}

func serialize(ctx context.Context, doc *ast.Document, cfg config.Config) ([]byte, error) {
	w := newWriter(cfg)
	w.ctx = ctx
	w.buf = append(w.buf, Declaration...)
	w.buf = append(w.buf, w.eol...)
	for _, n := range doc.Prolog {
		w.node(n, 0)
		w.buf = append(w.buf, w.eol...)
	}
	if doc.Root != nil {
		w.element(doc.Root, 0)
		w.buf = append(w.buf, w.eol...)
	}
	for _, n := range doc.Epilog {
		w.node(n, 0)
		w.buf = append(w.buf, w.eol...)
	}
	if w.err != nil {
		return nil, w.err
	}
	return w.buf, nil
}

func (w *writer) node(n ast.Node, depth int) {
	switch v := n.(type) {
	case *ast.Element:
		w.element(v, depth)
	case *ast.Fragment:
		w.element(v.Root, depth)
	case *ast.Text:
		w.buf = ast.AppendText(w.buf, v.Value)
	case *ast.CDATA:
		w.cdata(v.Value)
	case *ast.Comment:
		w.buf = append(w.buf, "<!--"...)
		w.buf = append(w.buf, ast.SafeComment(v.Value)...)
		w.buf = append(w.buf, "-->"...)
	case *ast.ProcInst:
		w.buf = append(w.buf, "<?"...)
		w.buf = append(w.buf, v.Target...)
		if v.Data != "" {
			w.buf = append(w.buf, ' ')
			w.buf = append(w.buf, strings.ReplaceAll(v.Data, "?>", "? >")...)
		}
		w.buf = append(w.buf, "?>"...)
	}
}

// cdata splits the value wherever "]]>" would close the section early.
func (w *writer) cdata(s string) {
	w.buf = append(w.buf, "<![CDATA["...)
	w.buf = append(w.buf, strings.ReplaceAll(s, "]]>", "]]]]><![CDATA[>")...)
	w.buf = append(w.buf, "]]>"...)
}

func (w *writer) name(prefix, local string) {
	if prefix != "" {
		w.buf = append(w.buf, prefix...)
		w.buf = append(w.buf, ':')
	}
	w.buf = append(w.buf, local...)
}

func (w *writer) attr(prefix, local, value string) {
	w.buf = append(w.buf, ' ')
	w.name(prefix, local)
	w.buf = append(w.buf, '=', w.quote)
	w.buf = ast.AppendAttr(w.buf, value, w.quote)
	w.buf = append(w.buf, w.quote)
}

func (w *writer) newline(depth int) {
	if !w.pretty {
		return
	}
	w.buf = append(w.buf, w.eol...)
	for range depth {
		w.buf = append(w.buf, w.indent...)
	}
}

func (w *writer) element(e *ast.Element, depth int) {
	if w.err != nil {
		return
	}
	if err := w.ctx.Err(); err != nil {
		w.err = err
		return
	}
	w.buf = append(w.buf, '<')
	w.name(e.Prefix, e.Name.Local)
	for _, d := range e.Decls {
		if d.Prefix == "" {
			w.attr("", "xmlns", d.URI)
		} else {
			w.attr("xmlns", d.Prefix, d.URI)
		}
	}
	for _, a := range e.Attrs {
		w.attr(a.Prefix, a.Name.Local, a.Value)
	}
	if len(e.Children) == 0 {
		w.buf = append(w.buf, "/>"...)
		return
	}
	w.buf = append(w.buf, '>')
	if elementContent(e) {
		for _, c := range e.Children {
			w.newline(depth + 1)
			w.node(c, depth+1)
		}
		w.newline(depth)
	} else {
		for _, c := range e.Children {
			w.node(c, depth+1)
		}
	}
	w.buf = append(w.buf, "</"...)
	w.name(e.Prefix, e.Name.Local)
	w.buf = append(w.buf, '>')
}

// elementContent reports whether children go on their own lines: there is
// an element child and no character data.
func elementContent(e *ast.Element) bool {
	if !e.HasElementChildren() {
		return false
	}
	for _, c := range e.Children {
		switch c.(type) {
		case *ast.Text, *ast.CDATA:
			return false
		}
	}
	return true
}

// sortAttributes orders attributes by namespace URI then local name, unless
// a non-canonical mode asked to keep input order.
func sortAttributes(root *ast.Element, cfg config.Config) {
	if cfg.Mode != config.ModeDbC14n && cfg.Preserve.AttributeOrder {
		return
	}
	ast.Walk(root, func(e *ast.Element) bool {
		slices.SortStableFunc(e.Attrs, func(a, b ast.Attr) int {
			if c := cmp.Compare(a.Name.Space, b.Name.Space); c != 0 {
				return c
			}
			return cmp.Compare(a.Name.Local, b.Name.Local)
		})
		return true
	})
}
