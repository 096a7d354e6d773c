// Package xmlstream layers namespace resolution over the xmltext tokenizer
// and reports events with expanded names and per-element declarations.
package xmlstream

import (
	"fmt"
	"io"

	"github.com/daddykev/ddex-suite/pkg/xmltext"
)

// QName is an expanded name.
type QName struct {
	Space string
	Local string
}

// String returns the name in {uri}local form.
func (q QName) String() string {
	if q.Space == "" {
		return q.Local
	}
	return "{" + q.Space + "}" + q.Local
}

// Attr is a resolved attribute. Unprefixed attributes are in no namespace.
type Attr struct {
	Name   QName
	Prefix string
	Value  string
}

// Event is one namespace-resolved token.
type Event struct {
	Kind        xmltext.Kind
	Name        QName
	Prefix      string
	Attrs       []Attr
	Decls       []NamespaceDecl
	Text        string
	Target      string
	SelfClosing bool
	Depth       int
	Line        int
	Column      int
	Offset      int64
}

// Reader yields namespace-resolved events.
type Reader struct {
	dec *xmltext.Decoder
	ns  nsStack
}

// NewReader creates a reader over r with the given tokenizer limits.
func NewReader(r io.Reader, opts ...xmltext.Options) *Reader {
	return &Reader{dec: xmltext.NewDecoder(r, opts...)}
}

// Next returns the next event or io.EOF.
func (r *Reader) Next() (Event, error) {
	tok, err := r.dec.ReadToken()
	if err != nil {
		return Event{}, err
	}
	ev := Event{
		Kind:        tok.Kind,
		Text:        tok.Text,
		SelfClosing: tok.SelfClosing,
		Depth:       tok.Depth,
		Line:        tok.Line,
		Column:      tok.Column,
		Offset:      tok.Offset,
	}
	switch tok.Kind {
	case xmltext.KindStartElement:
		scope, attrs, err := collectScope(tok.Attrs)
		if err != nil {
			return Event{}, r.errorAt(tok, err)
		}
		r.ns.push(scope)
		ev.Decls = scope.decls
		if ev.Name, ev.Prefix, err = r.resolveElement(tok.Name); err != nil {
			return Event{}, r.errorAt(tok, err)
		}
		ev.Attrs = make([]Attr, 0, len(attrs))
		for _, a := range attrs {
			ra, err := r.resolveAttr(a)
			if err != nil {
				return Event{}, r.errorAt(tok, err)
			}
			for _, seen := range ev.Attrs {
				if seen.Name == ra.Name {
					return Event{}, r.errorAt(tok, fmt.Errorf("duplicate expanded attribute %s", ra.Name))
				}
			}
			ev.Attrs = append(ev.Attrs, ra)
		}
	case xmltext.KindEndElement:
		name, prefix, err := r.resolveElement(tok.Name)
		if err != nil {
			return Event{}, r.errorAt(tok, err)
		}
		ev.Name, ev.Prefix = name, prefix
		r.ns.pop()
	case xmltext.KindPI:
		ev.Target = tok.Name.Local
	}
	return ev, nil
}

// Lookup resolves prefix against the bindings visible at the current event.
func (r *Reader) Lookup(prefix string) (string, bool) {
	return r.ns.lookup(prefix)
}

// InScope returns every binding visible at the current event.
func (r *Reader) InScope() map[string]string {
	return r.ns.inScope()
}

// InputOffset reports raw bytes consumed.
func (r *Reader) InputOffset() int64 {
	return r.dec.InputOffset()
}

func (r *Reader) resolveElement(name xmltext.Name) (QName, string, error) {
	uri, ok := r.ns.lookup(name.Prefix)
	if !ok {
		return QName{}, "", fmt.Errorf("%w: %s", ErrUnboundPrefix, name.Prefix)
	}
	return QName{Space: uri, Local: name.Local}, name.Prefix, nil
}

func (r *Reader) resolveAttr(a xmltext.Attr) (Attr, error) {
	if a.Name.Prefix == "" {
		return Attr{Name: QName{Local: a.Name.Local}, Value: a.Value}, nil
	}
	uri, ok := r.ns.lookup(a.Name.Prefix)
	if !ok {
		return Attr{}, fmt.Errorf("%w: %s", ErrUnboundPrefix, a.Name.Prefix)
	}
	return Attr{Name: QName{Space: uri, Local: a.Name.Local}, Prefix: a.Name.Prefix, Value: a.Value}, nil
}

func (r *Reader) errorAt(tok xmltext.Token, err error) error {
	return &xmltext.SyntaxError{Offset: tok.Offset, Line: tok.Line, Column: tok.Column, Err: err}
}
