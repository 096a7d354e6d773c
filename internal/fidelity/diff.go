package fidelity

import (
	"bytes"
	"slices"
	"strings"

	ddexerrors "github.com/daddykev/ddex-suite/errors"
	"github.com/daddykev/ddex-suite/internal/ast"
	"github.com/daddykev/ddex-suite/pkg/xmlstream"
)

// AttrChange classifies an attribute difference.
type AttrChange uint8

const (
	AttrMissing AttrChange = iota + 1
	AttrAdded
	AttrValueChanged
	AttrOrderChanged
)

func (c AttrChange) String() string {
	switch c {
	case AttrMissing:
		return "Missing"
	case AttrAdded:
		return "Added"
	case AttrValueChanged:
		return "ValueChanged"
	case AttrOrderChanged:
		return "OrderChanged"
	}
	return "Unknown"
}

// AttrDiff is a difference in the attributes of an element present on
// both sides. For AttrOrderChanged, Expected and Actual list the names.
type AttrDiff struct {
	Path     string
	Name     string
	Kind     AttrChange
	Expected string
	Actual   string
	Location ddexerrors.Location
}

// StructChange classifies an element difference.
type StructChange uint8

const (
	MissingElement StructChange = iota + 1
	ExtraElement
	OrderChanged
	ContentChanged
	NamespaceChanged
)

func (c StructChange) String() string {
	switch c {
	case MissingElement:
		return "MissingElement"
	case ExtraElement:
		return "ExtraElement"
	case OrderChanged:
		return "OrderChanged"
	case ContentChanged:
		return "ContentChanged"
	case NamespaceChanged:
		return "NamespaceChanged"
	}
	return "Unknown"
}

// StructDiff is an element-level difference. Location points into the
// original for everything but ExtraElement.
type StructDiff struct {
	Path     string
	Kind     StructChange
	Expected string
	Actual   string
	Location ddexerrors.Location
}

type entry struct {
	path string
	loc  ast.Located
}

type indexed struct {
	byPath map[string]ast.Located
	// order lists the paths in document order.
	order []entry
}

func index(root *ast.Element, key ast.KeyFunc) indexed {
	m := ast.Index(root, key)
	order := make([]entry, 0, len(m))
	for p, l := range m {
		order = append(order, entry{path: p, loc: l})
	}
	slices.SortFunc(order, func(x, y entry) int {
		if c := x.loc.Element.Pos.Offset - y.loc.Element.Pos.Offset; c != 0 {
			if c < 0 {
				return -1
			}
			return 1
		}
		return strings.Compare(x.path, y.path)
	})
	return indexed{byPath: m, order: order}
}

func location(path string, e *ast.Element) ddexerrors.Location {
	return ddexerrors.Location{Path: path, Line: e.Pos.Line, Column: e.Pos.Column, Offset: e.Pos.Offset}
}

func isFragment(l ast.Located) bool {
	_, ok := l.Node.(*ast.Fragment)
	return ok
}

func structural(a, b indexed, key ast.KeyFunc) ([]StructDiff, []AttrDiff) {
	var sd []StructDiff
	var ad []AttrDiff
	missing := make(map[*ast.Element]bool)
	for _, en := range a.order {
		x := en.loc
		if missing[x.Parent] {
			missing[x.Element] = true
			continue
		}
		y, ok := b.byPath[en.path]
		if !ok {
			missing[x.Element] = true
			sd = append(sd, StructDiff{Path: en.path, Kind: MissingElement, Expected: x.Element.Name.Local, Location: location(en.path, x.Element)})
			continue
		}
		if x.Element.Name.Space != y.Element.Name.Space {
			sd = append(sd, StructDiff{Path: en.path, Kind: NamespaceChanged,
				Expected: x.Element.Name.Space, Actual: y.Element.Name.Space, Location: location(en.path, x.Element)})
		}
		if isFragment(x) || isFragment(y) {
			want, got := ast.Marshal(x.Element), ast.Marshal(y.Element)
			if !bytes.Equal(want, got) {
				sd = append(sd, StructDiff{Path: en.path, Kind: ContentChanged,
					Expected: string(want), Actual: string(got), Location: location(en.path, x.Element)})
			}
			continue
		}
		ad = append(ad, attributes(en.path, x.Element, y.Element)...)
		if !x.Element.HasElementChildren() && !y.Element.HasElementChildren() {
			want, got := strings.TrimSpace(x.Element.Text()), strings.TrimSpace(y.Element.Text())
			if want != got {
				sd = append(sd, StructDiff{Path: en.path, Kind: ContentChanged, Expected: want, Actual: got, Location: location(en.path, x.Element)})
			}
			continue
		}
		if want, got := childOrder(x.Element, y.Element, key); !slices.Equal(want, got) {
			sd = append(sd, StructDiff{Path: en.path, Kind: OrderChanged,
				Expected: strings.Join(want, " "), Actual: strings.Join(got, " "), Location: location(en.path, x.Element)})
		}
	}
	extra := make(map[*ast.Element]bool)
	for _, en := range b.order {
		y := en.loc
		if extra[y.Parent] {
			extra[y.Element] = true
			continue
		}
		if _, ok := a.byPath[en.path]; !ok {
			extra[y.Element] = true
			sd = append(sd, StructDiff{Path: en.path, Kind: ExtraElement, Actual: y.Element.Name.Local, Location: location(en.path, y.Element)})
		}
	}
	return sd, ad
}

// childOrder returns the child steps of x and y that appear on both sides,
// each in its own document order.
func childOrder(x, y *ast.Element, key ast.KeyFunc) (want, got []string) {
	xs, ys := compact(ast.Steps(x, key)), compact(ast.Steps(y, key))
	for _, s := range xs {
		if slices.Contains(ys, s) {
			want = append(want, s)
		}
	}
	for _, s := range ys {
		if slices.Contains(xs, s) {
			got = append(got, s)
		}
	}
	return want, got
}

func compact(steps []string) []string {
	return slices.DeleteFunc(steps, func(s string) bool { return s == "" })
}

func attributes(path string, x, y *ast.Element) []AttrDiff {
	var out []AttrDiff
	loc := location(path, x)
	find := func(attrs []ast.Attr, name xmlstream.QName) (ast.Attr, bool) {
		for _, a := range attrs {
			if a.Name == name {
				return a, true
			}
		}
		return ast.Attr{}, false
	}
	var common []string
	for _, a := range x.Attrs {
		b, ok := find(y.Attrs, a.Name)
		switch {
		case !ok:
			out = append(out, AttrDiff{Path: path, Name: attrName(a), Kind: AttrMissing, Expected: a.Value, Location: loc})
		case a.Value != b.Value:
			out = append(out, AttrDiff{Path: path, Name: attrName(a), Kind: AttrValueChanged, Expected: a.Value, Actual: b.Value, Location: loc})
			common = append(common, attrName(a))
		default:
			common = append(common, attrName(a))
		}
	}
	var got []string
	for _, b := range y.Attrs {
		if _, ok := find(x.Attrs, b.Name); !ok {
			out = append(out, AttrDiff{Path: path, Name: attrName(b), Kind: AttrAdded, Actual: b.Value, Location: loc})
			continue
		}
		got = append(got, attrName(b))
	}
	if !slices.Equal(common, got) {
		out = append(out, AttrDiff{Path: path, Kind: AttrOrderChanged,
			Expected: strings.Join(common, " "), Actual: strings.Join(got, " "), Location: loc})
	}
	return out
}

func attrName(a ast.Attr) string {
	if a.Name.Space == "" {
		return a.Name.Local
	}
	return a.Name.String()
}
