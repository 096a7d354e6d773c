package fidelity

import (
	"bytes"
	"slices"
	"strings"

	"github.com/daddykev/ddex-suite/internal/ast"
	"github.com/daddykev/ddex-suite/internal/parser"
)

// Category is a class of non-schema content.
type Category string

const (
	// Comments counts comments and processing instructions.
	Comments Category = "comments"
	// Extensions counts foreign-namespace fragments and attributes.
	Extensions Category = "extensions"
	// AttributeOrder counts elements with more than one attribute.
	AttributeOrder Category = "attribute-order"
	// NamespacePrefixes counts namespace declarations.
	NamespacePrefixes Category = "namespace-prefixes"
	// Whitespace counts leaf elements whose text must match exactly.
	Whitespace Category = "whitespace"
)

var categories = []Category{Comments, Extensions, AttributeOrder, NamespacePrefixes, Whitespace}

// Score is how many items of a category in the original survived.
type Score struct {
	Category Category
	Total    int
	Kept     int
}

// Percent is Kept over Total; a category with nothing to keep scores 100.
func (s Score) Percent() float64 {
	if s.Total == 0 {
		return 100
	}
	return 100 * float64(s.Kept) / float64(s.Total)
}

func perfect() []Score {
	out := make([]Score, len(categories))
	for i, c := range categories {
		out[i] = Score{Category: c}
	}
	return out
}

func overall(scores []Score) float64 {
	sum, n := 0.0, 0
	for _, s := range scores {
		if s.Total == 0 {
			continue
		}
		sum += s.Percent()
		n++
	}
	if n == 0 {
		return 100
	}
	return sum / float64(n)
}

func score(before, after *ast.Document, a, b indexed) []Score {
	return []Score{
		scoreAnnotations(before, after),
		scoreExtensions(a, b),
		scoreAttributeOrder(a, b),
		scorePrefixes(a, b),
		scoreWhitespace(a, b),
	}
}

// annotations returns a key per comment and processing instruction.
func annotations(doc *ast.Document) []string {
	var out []string
	visit := func(n ast.Node) {
		switch v := n.(type) {
		case *ast.Comment:
			out = append(out, "!"+strings.TrimSpace(v.Value))
		case *ast.ProcInst:
			out = append(out, "?"+v.Target+" "+strings.TrimSpace(v.Data))
		}
	}
	for _, n := range doc.Prolog {
		visit(n)
	}
	ast.Walk(doc.Root, func(e *ast.Element) bool {
		for _, n := range e.Children {
			visit(n)
		}
		return true
	})
	for _, n := range doc.Epilog {
		visit(n)
	}
	return out
}

func scoreAnnotations(before, after *ast.Document) Score {
	want := annotations(before)
	have := make(map[string]int)
	for _, k := range annotations(after) {
		have[k]++
	}
	s := Score{Category: Comments, Total: len(want)}
	for _, k := range want {
		if have[k] > 0 {
			have[k]--
			s.Kept++
		}
	}
	return s
}

func scoreExtensions(a, b indexed) Score {
	s := Score{Category: Extensions}
	for _, en := range a.order {
		x := en.loc
		y, ok := b.byPath[en.path]
		if isFragment(x) {
			s.Total++
			if ok && isFragment(y) && bytes.Equal(ast.Marshal(x.Element), ast.Marshal(y.Element)) {
				s.Kept++
			}
			continue
		}
		for _, attr := range x.Element.Attrs {
			if !parser.Foreign(attr.Name.Space) {
				continue
			}
			s.Total++
			if !ok {
				continue
			}
			if slices.ContainsFunc(y.Element.Attrs, func(o ast.Attr) bool { return o.Name == attr.Name && o.Value == attr.Value }) {
				s.Kept++
			}
		}
	}
	return s
}

func scoreAttributeOrder(a, b indexed) Score {
	s := Score{Category: AttributeOrder}
	names := func(e *ast.Element) []string {
		out := make([]string, len(e.Attrs))
		for i, at := range e.Attrs {
			out[i] = at.Name.String()
		}
		return out
	}
	for _, en := range a.order {
		x := en.loc
		if isFragment(x) || len(x.Element.Attrs) < 2 {
			continue
		}
		s.Total++
		if y, ok := b.byPath[en.path]; ok && slices.Equal(names(x.Element), names(y.Element)) {
			s.Kept++
		}
	}
	return s
}

func scorePrefixes(a, b indexed) Score {
	s := Score{Category: NamespacePrefixes}
	for _, en := range a.order {
		x := en.loc
		y, ok := b.byPath[en.path]
		for _, d := range x.Element.Decls {
			s.Total++
			if ok && slices.Contains(y.Element.Decls, d) {
				s.Kept++
			}
		}
	}
	return s
}

func scoreWhitespace(a, b indexed) Score {
	s := Score{Category: Whitespace}
	for _, en := range a.order {
		x := en.loc
		if isFragment(x) || x.Element.HasElementChildren() || x.Element.Text() == "" {
			continue
		}
		s.Total++
		if y, ok := b.byPath[en.path]; ok && y.Element.Text() == x.Element.Text() {
			s.Kept++
		}
	}
	return s
}
