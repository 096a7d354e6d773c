package canon

import (
	"context"
	"slices"

	"github.com/daddykev/ddex-suite/config"
	"github.com/daddykev/ddex-suite/internal/ast"
	"github.com/daddykev/ddex-suite/internal/dialect"
	"github.com/daddykev/ddex-suite/internal/value"
	"github.com/daddykev/ddex-suite/pkg/xmlstream"
)

type normalizer struct {
	ctx    context.Context
	err    error
	cfg    config.Config
	schema *dialect.Schema
	format value.Format
}

func (n *normalizer) text(s string) string {
	return form(n.cfg.Normalization).String(s)
}

// keep filters comments and processing instructions by the preservation
// switches and drops banners.
func (n *normalizer) keep(node ast.Node) bool {
	switch c := node.(type) {
	case *ast.Comment:
		return n.cfg.Preserve.Comments && !IsBanner(c.Value)
	case *ast.ProcInst:
		return n.cfg.Preserve.PIs
	case *ast.Fragment:
		return n.cfg.Preserve.Extensions
	}
	return true
}

func (n *normalizer) topLevel(nodes []ast.Node) []ast.Node {
	out := nodes[:0]
	for _, node := range nodes {
		if !n.keep(node) {
			continue
		}
		if c, ok := node.(*ast.Comment); ok {
			c.Value = n.text(c.Value)
		}
		out = append(out, node)
	}
	return out
}

// element normalizes e and its subtree. foreign is set inside fragments,
// where schema rules (typed values, child order) do not apply.
func (n *normalizer) element(e *ast.Element, foreign bool) {
	if n.err != nil {
		return
	}
	if err := n.ctx.Err(); err != nil {
		n.err = err
		return
	}
	schema := !foreign && ast.IsSchemaName(e.Name)
	e.Attrs = slices.DeleteFunc(e.Attrs, func(a ast.Attr) bool {
		return !foreign && !n.cfg.Preserve.Extensions && a.Name.Space != "" && !standardAttr(a.Name)
	})
	for i := range e.Attrs {
		e.Attrs[i].Value = n.text(e.Attrs[i].Value)
	}

	kept := e.Children[:0]
	for _, c := range e.Children {
		if n.keep(c) {
			kept = append(kept, c)
		}
	}
	e.Children = kept

	for _, c := range e.Children {
		switch v := c.(type) {
		case *ast.Element:
			n.element(v, foreign)
		case *ast.Fragment:
			n.element(v.Root, true)
		case *ast.Comment:
			v.Value = n.text(v.Value)
		}
	}

	switch {
	case schema && n.schema.Mixed(e.Name.Local):
		n.mixed(e)
	case e.HasElementChildren():
		n.elementContent(e)
		if !foreign {
			n.order(e)
		}
	default:
		n.leaf(e, schema)
	}
}

// mixed keeps text verbatim apart from Unicode normalization.
func (n *normalizer) mixed(e *ast.Element) {
	for _, c := range e.Children {
		switch v := c.(type) {
		case *ast.Text:
			v.Value = n.text(v.Value)
		case *ast.CDATA:
			v.Value = n.text(v.Value)
		}
	}
}

// elementContent drops whitespace-only text between child elements.
func (n *normalizer) elementContent(e *ast.Element) {
	e.Children = slices.DeleteFunc(e.Children, func(c ast.Node) bool {
		t, ok := c.(*ast.Text)
		return ok && isSpace(t.Value)
	})
	for _, c := range e.Children {
		switch v := c.(type) {
		case *ast.Text:
			v.Value = n.text(trimSpace(v.Value))
		case *ast.CDATA:
			v.Value = n.text(v.Value)
		}
	}
}

// leaf collapses text and CDATA into one trimmed node, converts typed
// values, and moves comments and processing instructions after the text.
func (n *normalizer) leaf(e *ast.Element, schema bool) {
	text := trimSpace(e.Text())
	cdata := e.HasCDATA() && n.cfg.Preserve.CDATA
	if schema {
		if kind := n.schema.ValueKind(e.Name.Local); kind != dialect.ValueText && text != "" {
			if v, err := value.Canonical(kind, text, n.format); err == nil {
				text = v
			}
		}
	}
	text = n.text(text)

	var rest []ast.Node
	for _, c := range e.Children {
		switch c.(type) {
		case *ast.Text, *ast.CDATA:
		default:
			rest = append(rest, c)
		}
	}
	e.Children = e.Children[:0]
	switch {
	case text == "":
	case cdata:
		e.Children = append(e.Children, &ast.CDATA{Value: text})
	default:
		e.Children = append(e.Children, &ast.Text{Value: text})
	}
	e.Children = append(e.Children, rest...)
}

// standardAttr reports attributes in namespaces that are never treated as
// extensions.
func standardAttr(name xmlstream.QName) bool {
	return name.Space == xmlstream.XSINamespace || name.Space == xmlstream.XMLNamespace
}

func isSpace(s string) bool {
	return trimSpace(s) == ""
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && isSpaceByte(s[start]) {
		start++
	}
	for end > start && isSpaceByte(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
