package parser

import (
	"strings"

	"go.uber.org/zap"

	ddexerrors "github.com/daddykev/ddex-suite/errors"
	"github.com/daddykev/ddex-suite/internal/ast"
	"github.com/daddykev/ddex-suite/internal/canon"
	"github.com/daddykev/ddex-suite/internal/dialect"
	"github.com/daddykev/ddex-suite/internal/value"
	"github.com/daddykev/ddex-suite/model"
	"github.com/daddykev/ddex-suite/pkg/xmlstream"
)

type mapper struct {
	schema *dialect.Schema
	msg    *model.Message
	sc     *model.Sidecar
	diags  ddexerrors.List
	log    *zap.Logger
	blocks int
}

func newMapper(v dialect.Version, log *zap.Logger) *mapper {
	return &mapper{
		schema: dialect.For(v),
		msg:    &model.Message{},
		sc:     &model.Sidecar{AttributeOrder: make(map[string][]string)},
		log:    log,
	}
}

func (m *mapper) key(parent string) (string, bool) {
	return m.schema.SortKey(parent)
}

// cursor walks one element, tracking which children and attributes the
// model consumed. close records the rest in the sidecar.
type cursor struct {
	m      *mapper
	el     *ast.Element
	path   string
	steps  []string
	used   []bool
	attrs  []bool
	closed bool
}

func (m *mapper) enter(e *ast.Element, path string) *cursor {
	return &cursor{
		m:     m,
		el:    e,
		path:  path,
		steps: ast.Steps(e, m.key),
		used:  make([]bool, len(e.Children)),
		attrs: make([]bool, len(e.Attrs)),
	}
}

func hasElements(e *ast.Element) bool { return e.HasElementChildren() }

func hasText(e *ast.Element) bool { return value.TrimSpace(e.Text()) != "" }

// take consumes the next schema child whose local name is in names and
// which satisfies want.
func (c *cursor) take(want func(*ast.Element) bool, names ...string) *cursor {
	for i, n := range c.el.Children {
		e, ok := n.(*ast.Element)
		if !ok || c.used[i] || !ast.IsSchemaName(e.Name) || !want(e) {
			continue
		}
		for _, name := range names {
			if e.Name.Local == name {
				c.used[i] = true
				return c.m.enter(e, c.path+"/"+c.steps[i])
			}
		}
	}
	return nil
}

// group takes the next container child named local.
func (c *cursor) group(local string) *cursor {
	return c.take(hasElements, local)
}

// groups takes every container child named one of names, in document order.
func (c *cursor) groups(names ...string) []*cursor {
	var out []*cursor
	for g := c.take(hasElements, names...); g != nil; g = c.take(hasElements, names...) {
		out = append(out, g)
	}
	return out
}

// leafNodes takes every child named local that carries text. The caller
// reads attributes and then calls text.
func (c *cursor) leafNodes(local string) []*cursor {
	var out []*cursor
	for l := c.take(hasText, local); l != nil; l = c.take(hasText, local) {
		out = append(out, l)
	}
	return out
}

// leaf takes the next child named local with text and returns the text.
func (c *cursor) leaf(local string) string {
	if l := c.take(hasText, local); l != nil {
		return l.text()
	}
	return ""
}

// leaves returns the text of every child named local.
func (c *cursor) leaves(local string) []string {
	var out []string
	for _, l := range c.leafNodes(local) {
		out = append(out, l.text())
	}
	return out
}

// text closes a leaf cursor and returns its trimmed text.
func (c *cursor) text() string {
	c.close()
	return value.TrimSpace(c.el.Text())
}

// attr consumes an unqualified attribute.
func (c *cursor) attr(local string) string {
	return c.attrNS("", local)
}

func (c *cursor) attrNS(space, local string) string {
	for i, a := range c.el.Attrs {
		if !c.attrs[i] && a.Name.Space == space && a.Name.Local == local {
			c.attrs[i] = true
			return a.Value
		}
	}
	return ""
}

func (c *cursor) close() {
	if c.closed {
		return
	}
	c.closed = true
	m := c.m
	if len(c.el.Attrs) > 1 {
		order := make([]string, len(c.el.Attrs))
		for i, a := range c.el.Attrs {
			order[i] = a.Name.String()
		}
		m.sc.AttributeOrder[c.path] = order
	}
	for i, a := range c.el.Attrs {
		if c.attrs[i] {
			continue
		}
		m.sc.Attributes = append(m.sc.Attributes, model.ExtraAttr{
			Path:           c.path,
			Namespace:      a.Name.Space,
			Prefix:         a.Prefix,
			Local:          a.Name.Local,
			Value:          a.Value,
			ValueNamespace: a.ValueSpace,
		})
		if a.Name.Space == "" && !m.schema.KnownAttr(c.el.Name.Local, a.Name.Local) {
			m.diags = append(m.diags, ddexerrors.Info(ddexerrors.CodeUnknownAttribute,
				"attribute "+a.Name.Local+" on "+c.el.Name.Local+" is kept verbatim").
				At(c.location(c.el)).
				WithSubject(a.Name.Local))
		}
	}

	var pending []ast.Node
	for i, n := range c.el.Children {
		switch v := n.(type) {
		case *ast.Comment, *ast.ProcInst:
			pending = append(pending, n)
		case *ast.Element:
			m.annotate(pending, c.path+"/"+c.steps[i], model.Before)
			pending = nil
			if !c.used[i] {
				m.fragment(c, c.steps[i], v)
			}
		case *ast.Fragment:
			m.annotate(pending, c.path+"/"+c.steps[i], model.Before)
			pending = nil
			m.fragment(c, c.steps[i], v.Root)
		}
	}
	switch {
	case c.el.HasElementChildren():
		m.annotate(pending, c.path, model.LastChild)
	case hasText(c.el):
		m.annotate(pending, c.path, model.Inline)
	default:
		m.annotate(pending, c.path, model.FirstChild)
	}
	if c.el.HasCDATA() {
		m.sc.CDATA = append(m.sc.CDATA, c.path)
	}
}

func (c *cursor) location(e *ast.Element) ddexerrors.Location {
	return ddexerrors.Location{Path: c.path, Line: e.Pos.Line, Column: e.Pos.Column, Offset: e.Pos.Offset}
}

func (m *mapper) annotate(nodes []ast.Node, path string, pos model.Position) {
	for _, n := range nodes {
		a := model.Annotation{Anchor: model.Anchor{Path: path, Position: pos}}
		switch v := n.(type) {
		case *ast.Comment:
			a.Kind, a.Text = model.AnnotationComment, v.Value
		case *ast.ProcInst:
			a.Kind, a.Target, a.Text = model.AnnotationPI, v.Target, v.Data
		}
		m.sc.Annotations = append(m.sc.Annotations, a)
	}
}

// fragment keeps an unconsumed child verbatim under its owner.
func (m *mapper) fragment(owner *cursor, step string, e *ast.Element) {
	f := model.Fragment{
		Owner:     owner.path,
		Namespace: e.Name.Space,
		Local:     e.Name.Local,
		XML:       string(ast.Marshal(e)),
		Prefixes:  prefixes(e),
	}
	if ast.IsSchemaName(e.Name) && !m.schema.Known(e.Name.Local) {
		f.Unknown = true
		path := owner.path + "/" + step
		m.diags = append(m.diags, ddexerrors.Warnf(ddexerrors.CodeUnknownElement,
			"element %s is not part of ERN %s; kept as an extension fragment", e.Name.Local, m.schema.Version()).
			At(ddexerrors.Location{Path: path, Line: e.Pos.Line, Column: e.Pos.Column, Offset: e.Pos.Offset}).
			WithSubject(e.Name.Local))
		m.log.Debug("unknown element", zap.String("path", path))
	}
	m.sc.Fragments = append(m.sc.Fragments, f)
}

// prefixes maps each prefix used inside e to its namespace.
func prefixes(e *ast.Element) map[string]string {
	out := make(map[string]string)
	ast.Walk(e, func(el *ast.Element) bool {
		if el.Name.Space != "" {
			out[el.Prefix] = el.Name.Space
		}
		for _, a := range el.Attrs {
			if a.Name.Space != "" && a.Name.Space != xmlstream.XMLNamespace {
				out[a.Prefix] = a.Name.Space
			}
		}
		return true
	})
	if len(out) == 0 {
		return nil
	}
	return out
}

// topLevel records prolog and epilog annotations. A reproducibility banner
// is not an annotation; it is regenerated on output.
func (m *mapper) topLevel(doc *ast.Document, rootPath string) {
	var prolog []ast.Node
	for _, n := range doc.Prolog {
		if c, ok := n.(*ast.Comment); ok && canon.IsBanner(c.Value) {
			m.sc.Banner = strings.TrimSpace(c.Value)
			continue
		}
		prolog = append(prolog, n)
	}
	m.annotate(prolog, rootPath, model.Before)
	m.annotate(doc.Epilog, rootPath, model.After)
}

// layout records where the document departs from the usual ERN shape.
func (m *mapper) layout(root *ast.Element) {
	m.sc.Unqualified = root.Name.Space == ""
	for _, e := range root.Elements() {
		if dialect.IsERN(e.Name.Space) {
			m.sc.Qualified = true
			return
		}
	}
}

// bindings records every namespace declaration in document order.
func (m *mapper) bindings(e *ast.Element, path string) {
	for _, d := range e.Decls {
		m.sc.Bindings = append(m.sc.Bindings, model.Binding{Prefix: d.Prefix, URI: d.URI, Path: path})
	}
	for i, step := range ast.Steps(e, m.key) {
		switch c := e.Children[i].(type) {
		case *ast.Element:
			m.bindings(c, path+"/"+step)
		case *ast.Fragment:
			m.bindings(c.Root, path+"/"+step)
		}
	}
}
