package canon

import (
	"cmp"
	"context"
	"slices"
	"strconv"
	"strings"

	"github.com/daddykev/ddex-suite/config"
	ddexerrors "github.com/daddykev/ddex-suite/errors"
	"github.com/daddykev/ddex-suite/internal/ast"
	"github.com/daddykev/ddex-suite/internal/dialect"
	"github.com/daddykev/ddex-suite/pkg/xmlstream"
)

// usage is what the tree says about one namespace URI.
type usage struct {
	uri      string
	prefix   string // first prefix seen
	known    bool
	attr     bool // used by an attribute name, so it cannot be the default
	pos      ast.Position
	assigned string
}

// lockNamespaces gives every used URI exactly one prefix, rewrites names
// and QName values to match, and declares everything once on the root.
// Declarations that nothing uses disappear.
func lockNamespaces(ctx context.Context, root *ast.Element, cfg config.Config) error {
	uses, unqualified, err := collectUsage(ctx, root)
	if err != nil {
		return err
	}

	ordered := slices.Clone(uses)
	slices.SortStableFunc(ordered, func(a, b *usage) int {
		// known URIs first so custom bindings yield to locked prefixes
		return cmp.Compare(rankKnown(a), rankKnown(b))
	})

	taken := make(map[string]string)
	nsCounter := 0
	generate := func() string {
		for {
			nsCounter++
			p := "ns" + strconv.Itoa(nsCounter)
			if _, ok := taken[p]; !ok && !dialect.IsLockedPrefix(p) {
				return p
			}
		}
	}
	for _, u := range ordered {
		candidate := u.prefix
		if cfg.Prefixes == config.PrefixLocked && u.known {
			candidate, _ = dialect.PreferredPrefix(u.uri)
		}
		if candidate == "" {
			_, defaultTaken := taken[""]
			if cfg.Prefixes == config.PrefixLocked || unqualified || u.attr || defaultTaken {
				candidate = generate()
			}
		}
		prev, clash := taken[candidate]
		clash = clash && prev != u.uri
		if clash || (!u.known && candidate != "" && dialect.IsLockedPrefix(candidate)) {
			if cfg.Collision == config.CollisionReject {
				return ddexerrors.NamespaceLock(candidate, u.uri, ddexerrors.Location{Line: u.pos.Line, Column: u.pos.Column, Offset: u.pos.Offset})
			}
			candidate = rename(candidate, taken)
		}
		taken[candidate] = u.uri
		u.assigned = candidate
	}

	prefixOf := make(map[string]string, len(uses))
	for _, u := range uses {
		prefixOf[u.uri] = u.assigned
	}
	ast.Walk(root, func(e *ast.Element) bool {
		if err == nil {
			err = ctx.Err()
		}
		if err != nil {
			return false
		}
		e.Decls = nil
		e.Prefix = prefixOf[e.Name.Space]
		for i := range e.Attrs {
			a := &e.Attrs[i]
			switch a.Name.Space {
			case "":
				a.Prefix = ""
			case xmlstream.XMLNamespace:
				a.Prefix = "xml"
			default:
				a.Prefix = prefixOf[a.Name.Space]
			}
			if a.ValueSpace != "" {
				a.Value = requalify(a.Value, prefixOf[a.ValueSpace])
			}
		}
		return true
	})
	if err != nil {
		return err
	}

	decls := make([]xmlstream.NamespaceDecl, 0, len(uses))
	for _, u := range uses {
		decls = append(decls, xmlstream.NamespaceDecl{Prefix: u.assigned, URI: u.uri})
	}
	slices.SortFunc(decls, func(a, b xmlstream.NamespaceDecl) int {
		return cmp.Compare(a.Prefix, b.Prefix)
	})
	root.Decls = decls
	return nil
}

func rankKnown(u *usage) int {
	if u.known {
		return 0
	}
	return 1
}

// rename appends the smallest positive integer that frees the prefix.
func rename(prefix string, taken map[string]string) string {
	if prefix == "" {
		prefix = "ns"
	}
	for i := 1; ; i++ {
		p := prefix + strconv.Itoa(i)
		if _, ok := taken[p]; !ok && !dialect.IsLockedPrefix(p) {
			return p
		}
	}
}

func collectUsage(ctx context.Context, root *ast.Element) ([]*usage, bool, error) {
	var uses []*usage
	byURI := make(map[string]*usage)
	unqualified := false
	note := func(uri, prefix string, attr bool, pos ast.Position) {
		if uri == xmlstream.XMLNamespace {
			return
		}
		u, ok := byURI[uri]
		if !ok {
			_, known := dialect.PreferredPrefix(uri)
			u = &usage{uri: uri, prefix: prefix, known: known, pos: pos}
			byURI[uri] = u
			uses = append(uses, u)
		}
		u.attr = u.attr || attr
	}
	var err error
	ast.Walk(root, func(e *ast.Element) bool {
		if err = ctx.Err(); err != nil {
			return false
		}
		if e.Name.Space == "" {
			unqualified = true
		} else {
			note(e.Name.Space, e.Prefix, false, e.Pos)
		}
		for _, a := range e.Attrs {
			if a.Name.Space != "" {
				note(a.Name.Space, a.Prefix, true, e.Pos)
			}
			if a.ValueSpace != "" {
				prefix := ""
				if i := strings.IndexByte(a.Value, ':'); i >= 0 {
					prefix = strings.TrimSpace(a.Value[:i])
				}
				note(a.ValueSpace, prefix, false, e.Pos)
			}
		}
		return true
	})
	return uses, unqualified, err
}

// requalify swaps the prefix of a QName value.
func requalify(v, prefix string) string {
	v = strings.TrimSpace(v)
	if i := strings.IndexByte(v, ':'); i >= 0 {
		v = v[i+1:]
	}
	if prefix == "" {
		return v
	}
	return prefix + ":" + v
}
