package ast

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	ddexerrors "github.com/daddykev/ddex-suite/errors"
	"github.com/daddykev/ddex-suite/internal/state"
	"github.com/daddykev/ddex-suite/internal/xmlerr"
	"github.com/daddykev/ddex-suite/pkg/xmlstream"
	"github.com/daddykev/ddex-suite/pkg/xmltext"
)

// ctxCheckInterval is how many events pass between context checks.
const ctxCheckInterval = 512

// Options configures tree construction.
type Options struct {
	Limits xmltext.Options
	// Foreign reports whether elements in uri start an extension fragment.
	// A nil func disables fragment wrapping.
	Foreign func(uri string) bool
}

type frame struct {
	el        *Element
	inForeign bool
}

// Parse builds a document from r. Context cancellation and deadline
// expiry surface as TIMEOUT errors.
func Parse(ctx context.Context, r io.Reader, opts Options) (*Document, error) {
	started := time.Now()
	sr := xmlstream.NewReader(r, opts.Limits)
	b := NewBuilder(opts, sr.Lookup)
	for n := 0; ; n++ {
		if n%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, xmlerr.Convert(err, ddexerrors.PhaseParse, started)
			}
		}
		ev, err := sr.Next()
		if errors.Is(err, io.EOF) {
			return b.Document(), nil
		}
		if err != nil {
			return nil, xmlerr.Convert(err, ddexerrors.PhaseParse, started)
		}
		b.Add(ev)
	}
}

// Builder assembles a tree from namespace-resolved events. Feeding it the
// events of a single element yields a document whose root is that element.
type Builder struct {
	opts   Options
	doc    *Document
	stack  *state.Stack[frame]
	lookup func(prefix string) (string, bool)
}

// NewBuilder creates a builder. lookup resolves prefixes in QName attribute
// values against the scope of the event being added.
func NewBuilder(opts Options, lookup func(prefix string) (string, bool)) *Builder {
	return &Builder{opts: opts, doc: &Document{}, stack: state.NewStack[frame](32), lookup: lookup}
}

// Depth reports how many elements are open.
func (b *Builder) Depth() int {
	return b.stack.Len()
}

// Document returns the tree built so far.
func (b *Builder) Document() *Document {
	return b.doc
}

// Add consumes one event.
func (b *Builder) Add(ev xmlstream.Event) {
	doc := b.doc
	top, open := b.stack.Peek()
	switch ev.Kind {
	case xmltext.KindStartElement:
		el := &Element{
			Name:   ev.Name,
			Prefix: ev.Prefix,
			Decls:  ev.Decls,
			Pos:    Position{Line: ev.Line, Column: ev.Column, Offset: ev.Offset},
			Attrs:  make([]Attr, 0, len(ev.Attrs)),
		}
		for _, a := range ev.Attrs {
			attr := Attr{Name: a.Name, Prefix: a.Prefix, Value: a.Value}
			if p, _, ok := splitQNameValue(a.Value); ok && b.lookup != nil {
				if uri, bound := b.lookup(p); bound && uri != "" {
					attr.ValueSpace = uri
				}
			}
			el.Attrs = append(el.Attrs, attr)
		}
		foreign := open && top.inForeign
		switch {
		case !open:
			doc.Root = el
		case !foreign && b.opts.Foreign != nil && b.opts.Foreign(ev.Name.Space):
			foreign = true
			top.el.Children = append(top.el.Children, &Fragment{Root: el})
		default:
			top.el.Children = append(top.el.Children, el)
		}
		b.stack.Push(frame{el: el, inForeign: foreign})
	case xmltext.KindEndElement:
		b.stack.Pop()
	case xmltext.KindCharData:
		if open {
			top.el.Children = appendText(top.el.Children, ev.Text)
		}
	case xmltext.KindCDATA:
		if open {
			top.el.Children = append(top.el.Children, &CDATA{Value: ev.Text})
		}
	case xmltext.KindComment:
		doc.place(open, top, &Comment{Value: ev.Text})
	case xmltext.KindPI:
		doc.place(open, top, &ProcInst{Target: ev.Target, Data: ev.Text})
	}
}

func (doc *Document) place(open bool, top frame, n Node) {
	switch {
	case open:
		top.el.Children = append(top.el.Children, n)
	case doc.Root == nil:
		doc.Prolog = append(doc.Prolog, n)
	default:
		doc.Epilog = append(doc.Epilog, n)
	}
}

// appendText merges adjacent character data, which the tokenizer may split
// around references.
func appendText(children []Node, text string) []Node {
	if n := len(children); n > 0 {
		if t, ok := children[n-1].(*Text); ok {
			t.Value += text
			return children
		}
	}
	return append(children, &Text{Value: text})
}

// splitQNameValue splits "prefix:local" when both halves are NCNames.
func splitQNameValue(v string) (prefix, local string, ok bool) {
	prefix, local, found := strings.Cut(v, ":")
	if !found || !xmltext.IsNCName(prefix) || !xmltext.IsNCName(local) {
		return "", "", false
	}
	return prefix, local, true
}
