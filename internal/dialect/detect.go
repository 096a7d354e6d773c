package dialect

import (
	"bytes"
	"errors"
	"io"
	"time"

	ddexerrors "github.com/daddykev/ddex-suite/errors"
	"github.com/daddykev/ddex-suite/internal/xmlerr"
	"github.com/daddykev/ddex-suite/pkg/xmlstream"
	"github.com/daddykev/ddex-suite/pkg/xmltext"
)

// Declaration is one namespace declaration found in the document.
type Declaration struct {
	Prefix string
	URI    string
	Class  Class
	Path   string
	Line   int
	Column int
}

// Resolution is the outcome of a full detection pass.
type Resolution struct {
	Version       Version
	RootNamespace string
	Fallback      bool
	Declarations  []Declaration
	Scopes        *ScopeTree
	Diagnostics   ddexerrors.List
}

// DetectVersion inspects only the root element of data.
func DetectVersion(data []byte, strict bool, opts ...xmltext.Options) (Version, ddexerrors.List, error) {
	r := xmlstream.NewReader(bytes.NewReader(data), opts...)
	started := time.Now()
	for {
		ev, err := r.Next()
		if err != nil {
			return VersionUnknown, nil, xmlerr.Convert(err, ddexerrors.PhaseDetect, started)
		}
		if ev.Kind == xmltext.KindStartElement {
			return chooseVersion(ev, strict)
		}
	}
}

// Resolve runs a full pass over r and returns the version, every
// declaration and the scope tree.
func Resolve(r io.Reader, strict bool, opts ...xmltext.Options) (*Resolution, error) {
	sr := xmlstream.NewReader(r, opts...)
	res := &Resolution{Scopes: newScopeTree()}
	var paths xmlstream.PathTracker
	var stack []*ScopeNode
	started := time.Now()
	for {
		ev, err := sr.Next()
		if errors.Is(err, io.EOF) {
			return res, nil
		}
		if err != nil {
			return nil, xmlerr.Convert(err, ddexerrors.PhaseDetect, started)
		}
		switch ev.Kind {
		case xmltext.KindStartElement:
			if len(stack) == 0 {
				v, diags, err := chooseVersion(ev, strict)
				if err != nil {
					return nil, err
				}
				res.Version = v
				res.RootNamespace = ev.Name.Space
				res.Fallback = len(diags) > 0
				res.Diagnostics = append(res.Diagnostics, diags...)
			}
			node := &ScopeNode{Path: paths.Push(ev.Name.Local), Name: ev.Name, Prefix: ev.Prefix, Decls: ev.Decls}
			if len(stack) > 0 {
				node.parent = stack[len(stack)-1]
			}
			stack = append(stack, node)
			res.Scopes.add(node)
			for _, d := range ev.Decls {
				ns, _ := Classify(d.URI)
				res.Declarations = append(res.Declarations, Declaration{
					Prefix: d.Prefix,
					URI:    d.URI,
					Class:  ns.Class,
					Path:   node.Path,
					Line:   ev.Line,
					Column: ev.Column,
				})
			}
		case xmltext.KindEndElement:
			paths.Pop()
			stack = stack[:len(stack)-1]
		}
	}
}

func chooseVersion(root xmlstream.Event, strict bool) (Version, ddexerrors.List, error) {
	loc := ddexerrors.Location{Path: "/" + root.Name.Local, Line: root.Line, Column: root.Column, Offset: root.Offset}
	return ChooseVersion(root.Name, root.Decls, loc, strict)
}

// ChooseVersion picks the dialect of a document element from its name and
// the declarations on it. Without an ERN namespace it fails when strict and
// otherwise falls back to Latest with a VERSION_FALLBACK warning.
func ChooseVersion(name xmlstream.QName, decls []xmlstream.NamespaceDecl, loc ddexerrors.Location, strict bool) (Version, ddexerrors.List, error) {
	if ns, ok := Classify(name.Space); ok && ns.Version != VersionUnknown {
		return ns.Version, nil, nil
	}
	for _, d := range decls {
		if ns, ok := Classify(d.URI); ok && ns.Version != VersionUnknown {
			return ns.Version, nil, nil
		}
	}
	if strict {
		return VersionUnknown, nil, ddexerrors.InvalidVersion(name.Space)
	}
	warn := ddexerrors.Warnf(ddexerrors.CodeVersionFallback, "no ERN namespace on root %s; assuming %s", name, Latest).
		At(loc).
		WithSubject(name.Space)
	return Latest, ddexerrors.List{warn}, nil
}
