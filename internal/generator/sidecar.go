package generator

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"github.com/daddykev/ddex-suite/internal/ast"
	"github.com/daddykev/ddex-suite/internal/dialect"
	"github.com/daddykev/ddex-suite/internal/parser"
	"github.com/daddykev/ddex-suite/internal/xiter"
	"github.com/daddykev/ddex-suite/model"
	"github.com/daddykev/ddex-suite/pkg/xmlstream"
)

// reinsert applies the sidecar to a generated tree: fragments first, since
// they change the sibling steps other anchors were recorded against, then
// attributes, attribute order, CDATA boundaries and annotations. Anchors
// whose path no longer exists are dropped.
func reinsert(ctx context.Context, doc *ast.Document, schema *dialect.Schema, sc *model.Sidecar, opts Options) error {
	log := opts.logger()
	idx := ast.Index(doc.Root, schema.SortKey)
	for _, f := range sc.Fragments {
		owner, ok := idx[f.Owner]
		if !ok {
			log.Debug("fragment owner missing", zap.String("owner", f.Owner), zap.String("local", f.Local))
			continue
		}
		n, err := fragmentNode(ctx, f, opts)
		if err != nil {
			return err
		}
		owner.Element.Append(n)
	}

	idx = ast.Index(doc.Root, schema.SortKey)
	for _, a := range sc.Attributes {
		loc, ok := idx[a.Path]
		if !ok {
			log.Debug("attribute anchor missing", zap.String("path", a.Path), zap.String("local", a.Local))
			continue
		}
		setQualifiedAttr(loc.Element, ast.Attr{
			Name:       xmlstream.QName{Space: a.Namespace, Local: a.Local},
			Prefix:     a.Prefix,
			Value:      a.Value,
			ValueSpace: a.ValueNamespace,
		})
	}
	for path, order := range xiter.Sorted(sc.AttributeOrder) {
		if loc, ok := idx[path]; ok {
			reorderAttrs(loc.Element, order)
		}
	}
	for _, path := range sc.CDATA {
		if loc, ok := idx[path]; ok {
			toCDATA(loc.Element)
		}
	}

	after := make(map[ast.Node]int)
	for _, a := range sc.Annotations {
		loc, ok := idx[a.Anchor.Path]
		if !ok {
			log.Debug("annotation anchor missing", zap.String("path", a.Anchor.Path))
			continue
		}
		n := annotationNode(a)
		switch a.Anchor.Position {
		case model.Before:
			if loc.Parent == nil {
				doc.Prolog = append(doc.Prolog, n)
				continue
			}
			loc.Parent.InsertAt(loc.Parent.IndexOf(loc.Node), n)
		case model.After:
			if loc.Parent == nil {
				doc.Epilog = append(doc.Epilog, n)
				continue
			}
			i := loc.Parent.IndexOf(loc.Node) + 1 + after[loc.Node]
			loc.Parent.InsertAt(i, n)
			after[loc.Node]++
		default:
			loc.Element.Append(n)
		}
	}
	return nil
}

// fragmentNode parses a kept subtree. Extension subtrees are wrapped as
// fragments; unknown ERN elements become plain elements whose own
// extension children are wrapped, as a parse of the document would do.
func fragmentNode(ctx context.Context, f model.Fragment, opts Options) (ast.Node, error) {
	popts := ast.Options{Limits: opts.Limits}
	foreign := parser.Foreign(f.Namespace)
	if !foreign {
		popts.Foreign = parser.Foreign
	}
	el, err := ast.ParseFragment(ctx, []byte(f.XML), popts)
	if err != nil {
		return nil, err
	}
	if foreign {
		return &ast.Fragment{Root: el}, nil
	}
	return el, nil
}

func setQualifiedAttr(e *ast.Element, attr ast.Attr) {
	for i := range e.Attrs {
		if e.Attrs[i].Name == attr.Name {
			e.Attrs[i] = attr
			return
		}
	}
	e.Attrs = append(e.Attrs, attr)
}

// reorderAttrs puts the attributes named in order first, in that order.
// Attributes not listed keep their relative order after them.
func reorderAttrs(e *ast.Element, order []string) {
	rank := func(a ast.Attr) int {
		if i := slices.Index(order, a.Name.String()); i >= 0 {
			return i
		}
		return len(order)
	}
	slices.SortStableFunc(e.Attrs, func(a, b ast.Attr) int { return rank(a) - rank(b) })
}

func toCDATA(e *ast.Element) {
	for i, n := range e.Children {
		if t, ok := n.(*ast.Text); ok {
			e.Children[i] = &ast.CDATA{Value: t.Value}
		}
	}
}

func annotationNode(a model.Annotation) ast.Node {
	if a.Kind == model.AnnotationPI {
		return &ast.ProcInst{Target: a.Target, Data: a.Text}
	}
	return &ast.Comment{Value: a.Text}
}
