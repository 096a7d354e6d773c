package parser

import (
	"context"
	"errors"
	"io"
	"iter"
	"slices"
	"time"

	"go.uber.org/zap"

	ddexerrors "github.com/daddykev/ddex-suite/errors"
	"github.com/daddykev/ddex-suite/internal/ast"
	"github.com/daddykev/ddex-suite/internal/dialect"
	"github.com/daddykev/ddex-suite/internal/xmlerr"
	"github.com/daddykev/ddex-suite/model"
	"github.com/daddykev/ddex-suite/pkg/xmlstream"
	"github.com/daddykev/ddex-suite/pkg/xmltext"
)

const ctxCheckInterval = 512

// entityDepth is the depth of Party, resource, Release and ReleaseDeal
// elements below the document element.
const entityDepth = 3

// Stream yields parties, resources, releases and deals as their elements
// close, holding only the current entity subtree in memory. The header,
// sidecar and reference diagnostics are not produced; Parse gives those.
// Iteration stops after the first error.
func Stream(ctx context.Context, r io.Reader, opts Options) iter.Seq2[model.Entity, error] {
	return func(yield func(model.Entity, error) bool) {
		started := time.Now()
		log := opts.logger()
		sr := xmlstream.NewReader(r, opts.Limits)
		var (
			version  dialect.Version
			list     string
			rootPath string
			b        *ast.Builder
			count    int
		)
		for n := 0; ; n++ {
			if n%ctxCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					yield(nil, xmlerr.Convert(err, ddexerrors.PhaseParse, started))
					return
				}
			}
			ev, err := sr.Next()
			if errors.Is(err, io.EOF) {
				log.Debug("streamed entities", zap.Int("count", count), zap.Duration("elapsed", time.Since(started)))
				return
			}
			if err != nil {
				yield(nil, xmlerr.Convert(err, ddexerrors.PhaseParse, started))
				return
			}
			if b != nil {
				b.Add(ev)
				if ev.Kind != xmltext.KindEndElement || b.Depth() > 0 {
					continue
				}
				el := b.Document().Root
				b = nil
				for _, e := range mapEntity(version, log, list, rootPath+"/"+list, el) {
					count++
					if !yield(e, nil) {
						return
					}
				}
				continue
			}
			if ev.Kind != xmltext.KindStartElement {
				continue
			}
			switch ev.Depth {
			case 1:
				loc := ddexerrors.Location{Line: ev.Line, Column: ev.Column, Offset: ev.Offset}
				v, diags, err := dialect.ChooseVersion(ev.Name, ev.Decls, loc, opts.StrictVersion)
				if err != nil {
					yield(nil, err)
					return
				}
				if len(diags) > 0 {
					log.Debug("dialect fallback", zap.String("root", ev.Name.String()), zap.Stringer("version", v))
				}
				version = v
				rootPath = ast.RootPath(&ast.Element{Name: ev.Name})
			case 2:
				list = ""
				if ast.IsSchemaName(ev.Name) {
					list = ev.Name.Local
				}
			case entityDepth:
				if ast.IsSchemaName(ev.Name) && entityNames(list, ev.Name.Local) {
					b = ast.NewBuilder(ast.Options{Foreign: Foreign}, sr.Lookup)
					b.Add(ev)
				}
			}
		}
	}
}

func entityNames(list, local string) bool {
	switch list {
	case "PartyList":
		return local == "Party"
	case "ResourceList":
		return slices.Contains(dialect.ResourceKinds, local)
	case "ReleaseList":
		return local == "Release"
	case "DealList":
		return local == "ReleaseDeal"
	}
	return false
}

// mapEntity maps one entity subtree with a throwaway mapper.
func mapEntity(v dialect.Version, log *zap.Logger, list, listPath string, el *ast.Element) []model.Entity {
	m := newMapper(v, log)
	c := m.enter(el, listPath+"/"+el.Name.Local)
	switch list {
	case "PartyList":
		p := m.party(c)
		return []model.Entity{&p}
	case "ResourceList":
		r := m.resource(c)
		return []model.Entity{&r}
	case "ReleaseList":
		r := m.release(c)
		return []model.Entity{&r}
	default:
		deals := m.releaseDeal(c)
		out := make([]model.Entity, len(deals))
		for i := range deals {
			out[i] = &deals[i]
		}
		return out
	}
}
