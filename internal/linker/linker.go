// Package linker resolves intra-message references. The first pass
// collects defining occurrences, the second resolves use sites, and a
// final walk rejects cycles among related releases.
package linker

import (
	"errors"
	"fmt"
	"strings"

	ddexerrors "github.com/daddykev/ddex-suite/errors"
	"github.com/daddykev/ddex-suite/internal/graphcycle"
	"github.com/daddykev/ddex-suite/model"
)

// Target is the owner of a reference value.
type Target struct {
	Kind  model.EntityKind
	Index int
}

// Table maps reference values to their defining entity.
type Table struct {
	targets map[string]Target
	order   []string
}

// Lookup resolves ref.
func (t *Table) Lookup(ref string) (Target, bool) {
	target, ok := t.targets[ref]
	return target, ok
}

// Len reports how many references are defined.
func (t *Table) Len() int {
	return len(t.order)
}

// References lists defined references in definition order.
func (t *Table) References() []string {
	return t.order
}

// Link builds the reference table of msg. Unresolved references are errors
// when strict and warnings otherwise; duplicates, kind mismatches and
// cycles are always errors.
func Link(msg *model.Message, strict bool) (*Table, ddexerrors.List) {
	l := linker{msg: msg, strict: strict, table: &Table{targets: make(map[string]Target)}}
	l.collect()
	l.resolve()
	l.cycles()
	return l.table, l.diags
}

type linker struct {
	msg    *model.Message
	strict bool
	table  *Table
	diags  ddexerrors.List
}

func (l *linker) define(kind model.EntityKind, index int, ref, path string) {
	if ref == "" {
		return
	}
	if prev, ok := l.table.targets[ref]; ok {
		l.diags = append(l.diags, ddexerrors.Newf(ddexerrors.CodeDuplicateReference,
			"reference %q defined by %s and %s", ref, prev.Kind, kind).
			WithSubject(ref).
			At(ddexerrors.Location{Path: path}))
		return
	}
	l.table.targets[ref] = Target{Kind: kind, Index: index}
	l.table.order = append(l.table.order, ref)
}

func (l *linker) collect() {
	for i, p := range l.msg.Parties {
		l.define(model.KindParty, i, p.Reference, fmt.Sprintf("/Parties[%d]", i))
	}
	for i, r := range l.msg.Resources {
		l.define(model.KindResource, i, r.Reference, fmt.Sprintf("/Resources[%d]", i))
	}
	for i, r := range l.msg.Releases {
		l.define(model.KindRelease, i, r.Reference, fmt.Sprintf("/Releases[%d]", i))
	}
	for i, d := range l.msg.Deals {
		l.define(model.KindDeal, i, d.Reference, fmt.Sprintf("/Deals[%d]", i))
	}
}

func (l *linker) use(want model.EntityKind, ref, path string) {
	if ref == "" {
		return
	}
	target, ok := l.table.targets[ref]
	if !ok {
		d := ddexerrors.Newf(ddexerrors.CodeUnresolvedReference, "%s reference %q does not resolve", want, ref).
			WithSubject(ref).
			At(ddexerrors.Location{Path: path})
		if !l.strict {
			d = d.WithSeverity(ddexerrors.SeverityWarning)
		}
		l.diags = append(l.diags, d)
		return
	}
	if target.Kind != want {
		l.diags = append(l.diags, ddexerrors.Newf(ddexerrors.CodeReferenceTypeMismatch,
			"reference %q points to a %s, want %s", ref, target.Kind, want).
			WithSubject(ref).
			At(ddexerrors.Location{Path: path}))
	}
}

func (l *linker) artists(artists []model.Artist, path string) {
	for j, a := range artists {
		l.use(model.KindParty, a.PartyReference, fmt.Sprintf("%s/DisplayArtists[%d]", path, j))
	}
}

func (l *linker) resolve() {
	for i, r := range l.msg.Resources {
		l.artists(r.DisplayArtists, fmt.Sprintf("/Resources[%d]", i))
	}
	for i, rel := range l.msg.Releases {
		path := fmt.Sprintf("/Releases[%d]", i)
		for j, ref := range rel.ResourceRefs {
			l.use(model.KindResource, ref.Reference, fmt.Sprintf("%s/ResourceRefs[%d]", path, j))
		}
		for j, rr := range rel.Related {
			l.use(model.KindRelease, rr.Reference, fmt.Sprintf("%s/Related[%d]", path, j))
		}
		l.artists(rel.DisplayArtists, path)
	}
	for i, d := range l.msg.Deals {
		for j, ref := range d.ReleaseReferences {
			l.use(model.KindRelease, ref, fmt.Sprintf("/Deals[%d]/ReleaseReferences[%d]", i, j))
		}
	}
}

// cycles walks Release→Release edges; Release→Resource and Deal→Release
// edges end at leaves and cannot close a cycle. Edges to references that
// are not releases were reported by resolve and are not followed.
func (l *linker) cycles() {
	related := make(map[string][]string, len(l.msg.Releases))
	starts := make([]string, 0, len(l.msg.Releases))
	for _, rel := range l.msg.Releases {
		if rel.Reference == "" {
			continue
		}
		starts = append(starts, rel.Reference)
		for _, rr := range rel.Related {
			related[rel.Reference] = append(related[rel.Reference], rr.Reference)
		}
	}
	err := graphcycle.Detect(graphcycle.Config[string]{
		Starts: starts,
		Exists: func(ref string) bool {
			t, ok := l.table.targets[ref]
			return ok && t.Kind == model.KindRelease
		},
		Next: func(ref string) ([]string, error) {
			return related[ref], nil
		},
	})
	var cycle graphcycle.CycleError[string]
	if errors.As(err, &cycle) {
		l.diags = append(l.diags, ddexerrors.Newf(ddexerrors.CodeReferenceCycle,
			"release references form a cycle: %s", strings.Join(cycle.Path, " -> ")).
			WithSubject(cycle.Key))
	}
}
