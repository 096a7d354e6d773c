// Package ast is the serialization-ready tree shared by the builder and the
// canonicalizer. Elements keep their resolved names, original attribute
// order and the namespace declarations that originate on them.
package ast

import (
	"strings"

	"github.com/daddykev/ddex-suite/pkg/xmlstream"
)

// Kind identifies a node type.
type Kind uint8

const (
	KindElement Kind = iota + 1
	KindText
	KindComment
	KindProcInst
	KindCDATA
	KindFragment
)

// Node is one tree node.
type Node interface {
	Kind() Kind
}

// Position records where a node started in the source document.
type Position struct {
	Line   int
	Column int
	Offset int64
}

// Attr is an attribute with its resolved name. ValueSpace is set when the
// value is a QName whose prefix resolved in scope, such as xsi:type.
type Attr struct {
	Name       xmlstream.QName
	Prefix     string
	Value      string
	ValueSpace string
}

// Element is an XML element.
type Element struct {
	Name     xmlstream.QName
	Prefix   string
	Attrs    []Attr
	Decls    []xmlstream.NamespaceDecl
	Children []Node
	Pos      Position
}

// Text is character data.
type Text struct {
	Value string
}

// CDATA is a CDATA section.
type CDATA struct {
	Value string
}

// Comment is an XML comment.
type Comment struct {
	Value string
}

// ProcInst is a processing instruction.
type ProcInst struct {
	Target string
	Data   string
}

// Fragment is a foreign-namespace subtree kept in parsed order after the
// schema children of its owner.
type Fragment struct {
	Root *Element
}

func (*Element) Kind() Kind  { return KindElement }
func (*Text) Kind() Kind     { return KindText }
func (*CDATA) Kind() Kind    { return KindCDATA }
func (*Comment) Kind() Kind  { return KindComment }
func (*ProcInst) Kind() Kind { return KindProcInst }
func (*Fragment) Kind() Kind { return KindFragment }

// Document is a parsed or generated document. Prolog and Epilog hold the
// comments and processing instructions around the root.
type Document struct {
	Prolog []Node
	Root   *Element
	Epilog []Node
}

// NewElement creates an unqualified element.
func NewElement(local string) *Element {
	return &Element{Name: xmlstream.QName{Local: local}}
}

// SetAttr sets or replaces an unqualified attribute.
func (e *Element) SetAttr(local, value string) {
	for i := range e.Attrs {
		if e.Attrs[i].Name.Space == "" && e.Attrs[i].Name.Local == local {
			e.Attrs[i].Value = value
			return
		}
	}
	e.Attrs = append(e.Attrs, Attr{Name: xmlstream.QName{Local: local}, Value: value})
}

// Attr returns the value of an unqualified attribute.
func (e *Element) Attr(local string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name.Space == "" && a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

// Append adds children and returns e.
func (e *Element) Append(children ...Node) *Element {
	e.Children = append(e.Children, children...)
	return e
}

// Leaf appends a child element holding text and returns it. Empty text adds
// nothing.
func (e *Element) Leaf(local, text string) *Element {
	if text == "" {
		return nil
	}
	child := NewElement(local)
	child.Children = []Node{&Text{Value: text}}
	e.Children = append(e.Children, child)
	return child
}

// Child returns the first child element named local.
func (e *Element) Child(local string) *Element {
	for _, n := range e.Children {
		if c, ok := n.(*Element); ok && c.Name.Local == local {
			return c
		}
	}
	return nil
}

// Elements returns the child elements in order, excluding fragments.
func (e *Element) Elements() []*Element {
	var out []*Element
	for _, n := range e.Children {
		if c, ok := n.(*Element); ok {
			out = append(out, c)
		}
	}
	return out
}

// HasElementChildren reports whether e contains an element or fragment.
func (e *Element) HasElementChildren() bool {
	for _, n := range e.Children {
		switch n.(type) {
		case *Element, *Fragment:
			return true
		}
	}
	return false
}

// Text concatenates the direct text and CDATA children of e.
func (e *Element) Text() string {
	var b strings.Builder
	for _, n := range e.Children {
		switch t := n.(type) {
		case *Text:
			b.WriteString(t.Value)
		case *CDATA:
			b.WriteString(t.Value)
		}
	}
	return b.String()
}

// HasCDATA reports whether a direct child is a CDATA section.
func (e *Element) HasCDATA() bool {
	for _, n := range e.Children {
		if n.Kind() == KindCDATA {
			return true
		}
	}
	return false
}

// Walk visits e and its descendants depth first, including fragment roots.
// Returning false from fn skips the subtree.
func Walk(e *Element, fn func(*Element) bool) {
	if e == nil || !fn(e) {
		return
	}
	for _, n := range e.Children {
		switch c := n.(type) {
		case *Element:
			Walk(c, fn)
		case *Fragment:
			Walk(c.Root, fn)
		}
	}
}
