package canon

import (
	"cmp"
	"slices"

	"github.com/daddykev/ddex-suite/config"
	"github.com/daddykev/ddex-suite/internal/ast"
)

// unit is an element or fragment together with the comments, processing
// instructions and stray text that precede it. Units move as one.
type unit struct {
	nodes []ast.Node
	rank  int
	key   string
}

// order sorts the children of a schema element by the active strategy.
// Children outside the order table keep their relative order after the
// listed ones; so do trailing non-element nodes.
func (n *normalizer) order(e *ast.Element) {
	if !ast.IsSchemaName(e.Name) {
		return
	}
	table, ok := n.table(e.Name.Local)
	if !ok {
		return
	}
	keyChild, keyed := "", false
	if n.cfg.Sort == config.SortCanonical {
		keyChild, keyed = n.schema.SortKey(e.Name.Local)
	}
	rank := make(map[string]int, len(table))
	for i, name := range table {
		rank[name] = i
	}

	var units []unit
	var pending []ast.Node
	for _, c := range e.Children {
		pending = append(pending, c)
		var el *ast.Element
		switch v := c.(type) {
		case *ast.Element:
			el = v
		case *ast.Fragment:
			el = v.Root
		default:
			continue
		}
		u := unit{nodes: pending, rank: len(table)}
		if r, ok := rank[el.Name.Local]; ok && ast.IsSchemaName(el.Name) && c.Kind() == ast.KindElement {
			u.rank = r
			if keyed {
				u.key = keyOf(el, keyChild)
			}
		}
		units = append(units, u)
		pending = nil
	}
	slices.SortStableFunc(units, func(a, b unit) int {
		if c := cmp.Compare(a.rank, b.rank); c != 0 {
			return c
		}
		return cmp.Compare(a.key, b.key)
	})

	out := make([]ast.Node, 0, len(e.Children))
	for _, u := range units {
		out = append(out, u.nodes...)
	}
	e.Children = append(out, pending...)
}

func (n *normalizer) table(parent string) ([]string, bool) {
	switch n.cfg.Sort {
	case config.SortInputOrder:
		return nil, false
	case config.SortCustom:
		if t, ok := n.cfg.CustomOrder[parent]; ok {
			return t, true
		}
	}
	return n.schema.ChildOrder(parent)
}

func keyOf(e *ast.Element, keyChild string) string {
	if c := e.Child(keyChild); c != nil {
		return trimSpace(c.Text())
	}
	return ""
}
