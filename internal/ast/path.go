package ast

import (
	"strconv"

	"github.com/daddykev/ddex-suite/internal/dialect"
	"github.com/daddykev/ddex-suite/pkg/xmlstream"
)

// KeyFunc names the child element whose text identifies repeated children
// of parent, such as ResourceReference under ResourceList.
type KeyFunc func(parent string) (string, bool)

// Located is an indexed element with its parent.
type Located struct {
	Parent  *Element
	Element *Element
	// Node is the child entry in Parent, either the element or its fragment.
	Node Node
}

// IsSchemaName reports whether q belongs to the ERN vocabulary: unqualified
// or in an ERN namespace.
func IsSchemaName(q xmlstream.QName) bool {
	return q.Space == "" || dialect.IsERN(q.Space)
}

func stepName(q xmlstream.QName) string {
	if IsSchemaName(q) {
		return q.Local
	}
	return q.String()
}

// RootPath returns the path of the document element.
func RootPath(root *Element) string {
	return "/" + stepName(root.Name)
}

// Steps returns a path step for every element or fragment child of e,
// aligned with e.Children; other entries are empty. Children of keyed
// parents use Name{key} when the key is present and unique, so the step
// survives reordering. All others are positional: Name, Name[2], ...
func Steps(e *Element, key KeyFunc) []string {
	steps := make([]string, len(e.Children))
	keyChild, keyed := "", false
	if key != nil && IsSchemaName(e.Name) {
		keyChild, keyed = key(e.Name.Local)
	}
	keyCount := make(map[string]int)
	if keyed {
		for _, n := range e.Children {
			if c, ok := n.(*Element); ok {
				if k := keyText(c, keyChild); k != "" {
					keyCount[stepName(c.Name)+"\x00"+k]++
				}
			}
		}
	}
	seen := make(map[string]int)
	for i, n := range e.Children {
		var c *Element
		switch v := n.(type) {
		case *Element:
			c = v
		case *Fragment:
			c = v.Root
		default:
			continue
		}
		name := stepName(c.Name)
		seen[name]++
		if keyed {
			if k := keyText(c, keyChild); k != "" && keyCount[name+"\x00"+k] == 1 {
				steps[i] = name + "{" + k + "}"
				continue
			}
		}
		if idx := seen[name]; idx > 1 {
			steps[i] = name + "[" + strconv.Itoa(idx) + "]"
		} else {
			steps[i] = name
		}
	}
	return steps
}

func keyText(e *Element, keyChild string) string {
	if c := e.Child(keyChild); c != nil {
		return trimSpace(c.Text())
	}
	return ""
}

// Index maps every keyed path below and including root to its element.
// Fragment interiors are not indexed.
func Index(root *Element, key KeyFunc) map[string]Located {
	out := make(map[string]Located)
	if root == nil {
		return out
	}
	rootPath := RootPath(root)
	out[rootPath] = Located{Element: root, Node: root}
	var walk func(e *Element, path string)
	walk = func(e *Element, path string) {
		for i, step := range Steps(e, key) {
			if step == "" {
				continue
			}
			childPath := path + "/" + step
			switch c := e.Children[i].(type) {
			case *Element:
				out[childPath] = Located{Parent: e, Element: c, Node: c}
				walk(c, childPath)
			case *Fragment:
				out[childPath] = Located{Parent: e, Element: c.Root, Node: c}
			}
		}
	}
	walk(root, rootPath)
	return out
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// IndexOf returns the position of n in e.Children, or -1.
func (e *Element) IndexOf(n Node) int {
	for i, c := range e.Children {
		if c == n {
			return i
		}
	}
	return -1
}

// InsertAt inserts n at position i of e.Children.
func (e *Element) InsertAt(i int, n Node) {
	e.Children = append(e.Children, nil)
	copy(e.Children[i+1:], e.Children[i:])
	e.Children[i] = n
}
