// Package parser maps an ERN document onto the model. Everything the model
// does not represent (comments, processing instructions, unknown and
// extension elements, extra attributes, attribute order, prefix choices,
// CDATA boundaries) is recorded in the sidecar so the generator can put it
// back.
package parser

import (
	"context"
	"io"

	"go.uber.org/zap"

	ddexerrors "github.com/daddykev/ddex-suite/errors"
	"github.com/daddykev/ddex-suite/internal/ast"
	"github.com/daddykev/ddex-suite/internal/dialect"
	"github.com/daddykev/ddex-suite/internal/linker"
	"github.com/daddykev/ddex-suite/model"
	"github.com/daddykev/ddex-suite/pkg/xmlstream"
	"github.com/daddykev/ddex-suite/pkg/xmltext"
)

// Options configures a parse.
type Options struct {
	Limits xmltext.Options
	// StrictVersion rejects documents without a known ERN namespace.
	StrictVersion bool
	// StrictReferences turns unresolved references into errors.
	StrictReferences bool
	Logger           *zap.Logger
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// Result is a parsed message.
type Result struct {
	Message     *model.Message
	Sidecar     *model.Sidecar
	Version     dialect.Version
	Diagnostics ddexerrors.List
}

// Foreign reports whether elements in uri are extension fragments: any
// namespace other than ERN and XML Schema instance.
func Foreign(uri string) bool {
	return uri != "" && uri != xmlstream.XSINamespace && !dialect.IsERN(uri)
}

// Tree parses r into a tree with extension subtrees wrapped as fragments.
func Tree(ctx context.Context, r io.Reader, limits xmltext.Options) (*ast.Document, error) {
	return ast.Parse(ctx, r, ast.Options{Limits: limits, Foreign: Foreign})
}

// Parse reads r and maps it. Reference diagnostics are returned with the
// result; in strict mode an error among them fails the parse.
func Parse(ctx context.Context, r io.Reader, opts Options) (*Result, error) {
	doc, err := Tree(ctx, r, opts.Limits)
	if err != nil {
		return nil, err
	}
	return Map(doc, opts)
}

// Detect picks the dialect of a parsed tree from its document element.
func Detect(doc *ast.Document, strict bool) (dialect.Version, ddexerrors.List, error) {
	if doc.Root == nil {
		return dialect.VersionUnknown, nil, ddexerrors.XML(ddexerrors.Location{}, "document has no root element", nil)
	}
	root := doc.Root
	loc := ddexerrors.Location{Path: ast.RootPath(root), Line: root.Pos.Line, Column: root.Pos.Column, Offset: root.Pos.Offset}
	return dialect.ChooseVersion(root.Name, root.Decls, loc, strict)
}

// Map converts a parsed tree.
func Map(doc *ast.Document, opts Options) (*Result, error) {
	if doc.Root == nil {
		return nil, ddexerrors.XML(ddexerrors.Location{}, "document has no root element", nil)
	}
	root := doc.Root
	rootPath := ast.RootPath(root)
	version, diags, err := Detect(doc, opts.StrictVersion)
	if err != nil {
		return nil, err
	}
	log := opts.logger()
	if len(diags) > 0 {
		log.Debug("dialect fallback", zap.String("root", root.Name.String()), zap.Stringer("version", version))
	}

	m := newMapper(version, log)
	m.diags = diags
	m.msg.Version = version
	m.topLevel(doc, rootPath)
	m.layout(root)
	m.message(m.enter(root, rootPath))
	m.bindings(root, rootPath)

	_, linkDiags := linker.Link(m.msg, opts.StrictReferences)
	m.diags = append(m.diags, linkDiags...)
	if opts.StrictReferences && linkDiags.HasErrors() {
		return nil, ddexerrors.ValidationFailed(linkDiags.Errors())
	}
	m.msg.Sidecar = m.sc
	log.Debug("parsed message",
		zap.String("id", m.msg.ID),
		zap.Stringer("version", version),
		zap.Int("resources", len(m.msg.Resources)),
		zap.Int("releases", len(m.msg.Releases)),
		zap.Int("fragments", len(m.sc.Fragments)),
		zap.Int("annotations", len(m.sc.Annotations)))
	return &Result{Message: m.msg, Sidecar: m.sc, Version: version, Diagnostics: m.diags}, nil
}
