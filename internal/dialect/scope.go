package dialect

import "github.com/daddykev/ddex-suite/pkg/xmlstream"

// Binding is one prefix binding visible at an element.
// Local reports whether the declaration originates on that element.
type Binding struct {
	Prefix string
	URI    string
	Local  bool
}

// ScopeNode records the declarations originating on one element.
type ScopeNode struct {
	Path   string
	Name   xmlstream.QName
	Prefix string
	Decls  []xmlstream.NamespaceDecl
	parent *ScopeNode
}

// ScopeTree mirrors the element tree with namespace declarations.
type ScopeTree struct {
	nodes map[string]*ScopeNode
	order []*ScopeNode
}

func newScopeTree() *ScopeTree {
	return &ScopeTree{nodes: make(map[string]*ScopeNode)}
}

func (t *ScopeTree) add(node *ScopeNode) {
	t.nodes[node.Path] = node
	t.order = append(t.order, node)
}

// Node returns the scope node at path.
func (t *ScopeTree) Node(path string) (*ScopeNode, bool) {
	n, ok := t.nodes[path]
	return n, ok
}

// Len reports the number of elements recorded.
func (t *ScopeTree) Len() int {
	return len(t.order)
}

// URIFor resolves prefix as seen from the element at path.
func (t *ScopeTree) URIFor(prefix, path string) (string, bool) {
	if prefix == "xml" {
		return xmlstream.XMLNamespace, true
	}
	for n := t.nodes[path]; n != nil; n = n.parent {
		for _, d := range n.Decls {
			if d.Prefix == prefix {
				return d.URI, d.URI != "" || prefix == ""
			}
		}
	}
	if prefix == "" {
		return "", true
	}
	return "", false
}

// PrefixFor returns the innermost prefix bound to uri at path that is not
// shadowed by a nearer declaration. Without a binding it falls back to the
// registry prefix.
func (t *ScopeTree) PrefixFor(uri, path string) (string, bool) {
	shadowed := make(map[string]bool)
	for n := t.nodes[path]; n != nil; n = n.parent {
		for _, d := range n.Decls {
			if shadowed[d.Prefix] {
				continue
			}
			if d.URI == uri {
				return d.Prefix, true
			}
		}
		for _, d := range n.Decls {
			shadowed[d.Prefix] = true
		}
	}
	return PreferredPrefix(uri)
}

// Bindings lists every binding visible at path, innermost first.
func (t *ScopeTree) Bindings(path string) []Binding {
	var out []Binding
	seen := make(map[string]bool)
	start := t.nodes[path]
	for n := start; n != nil; n = n.parent {
		for _, d := range n.Decls {
			if seen[d.Prefix] {
				continue
			}
			seen[d.Prefix] = true
			out = append(out, Binding{Prefix: d.Prefix, URI: d.URI, Local: n == start})
		}
	}
	return out
}
