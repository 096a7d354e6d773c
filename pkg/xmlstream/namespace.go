package xmlstream

import (
	"errors"
	"maps"

	"github.com/daddykev/ddex-suite/pkg/xmltext"
)

// Common XML namespaces.
const (
	XMLNamespace   = "http://www.w3.org/XML/1998/namespace"
	XMLNSNamespace = "http://www.w3.org/2000/xmlns/"
	XSINamespace   = "http://www.w3.org/2001/XMLSchema-instance"
)

// ErrUnboundPrefix reports usage of an undeclared namespace prefix.
var ErrUnboundPrefix = errors.New("unbound namespace prefix")

// ErrReservedPrefix reports an illegal binding of xml or xmlns.
var ErrReservedPrefix = errors.New("illegal binding of reserved prefix")

// NamespaceDecl reports a namespace declaration on an element.
// An empty Prefix is the default namespace.
type NamespaceDecl struct {
	Prefix string
	URI    string
}

type nsScope struct {
	prefixes   map[string]string
	defaultNS  string
	decls      []NamespaceDecl
	defaultSet bool
}

type nsStack struct {
	scopes []nsScope
}

func (s *nsStack) push(scope nsScope) {
	s.scopes = append(s.scopes, scope)
}

func (s *nsStack) pop() {
	if len(s.scopes) == 0 {
		return
	}
	s.scopes = s.scopes[:len(s.scopes)-1]
}

func (s *nsStack) lookup(prefix string) (string, bool) {
	if prefix == "xml" {
		return XMLNamespace, true
	}
	for i := len(s.scopes) - 1; i >= 0; i-- {
		scope := s.scopes[i]
		if prefix == "" {
			if scope.defaultSet {
				return scope.defaultNS, true
			}
			continue
		}
		if ns, ok := scope.prefixes[prefix]; ok {
			return ns, true
		}
	}
	if prefix == "" {
		return "", true
	}
	return "", false
}

// inScope flattens every visible binding, innermost wins.
func (s *nsStack) inScope() map[string]string {
	out := make(map[string]string)
	for _, scope := range s.scopes {
		maps.Copy(out, scope.prefixes)
		if scope.defaultSet {
			out[""] = scope.defaultNS
		}
	}
	if uri, ok := out[""]; ok && uri == "" {
		delete(out, "")
	}
	return out
}

// collectScope splits namespace declarations off the attribute list.
func collectScope(attrs []xmltext.Attr) (nsScope, []xmltext.Attr, error) {
	scope := nsScope{}
	rest := attrs[:0:0]
	for _, attr := range attrs {
		switch {
		case attr.Name.Prefix == "" && attr.Name.Local == "xmlns":
			scope.defaultNS = attr.Value
			scope.defaultSet = true
			scope.decls = append(scope.decls, NamespaceDecl{URI: attr.Value})
		case attr.Name.Prefix == "xmlns":
			prefix := attr.Name.Local
			if prefix == "xmlns" || (prefix == "xml") != (attr.Value == XMLNamespace) || attr.Value == "" {
				return nsScope{}, nil, ErrReservedPrefix
			}
			if prefix == "xml" {
				continue
			}
			if scope.prefixes == nil {
				scope.prefixes = make(map[string]string)
			}
			scope.prefixes[prefix] = attr.Value
			scope.decls = append(scope.decls, NamespaceDecl{Prefix: prefix, URI: attr.Value})
		default:
			rest = append(rest, attr)
		}
	}
	return scope, rest, nil
}
