// Package convert moves a parsed message from one ERN dialect to another.
// The model is dialect-neutral, so most of the work is in the version
// attributes and in the sidecar, which still names the source namespace.
package convert

import (
	"maps"
	"slices"
	"strings"

	ddexerrors "github.com/daddykev/ddex-suite/errors"
	"github.com/daddykev/ddex-suite/internal/dialect"
	"github.com/daddykev/ddex-suite/model"
)

// Options configures Retarget.
type Options struct {
	// KeepUnsupported keeps fragments the target vocabulary lacks as
	// unknown elements instead of dropping them. They are reported either
	// way.
	KeepUnsupported bool
}

// Retarget returns a copy of msg addressed to version to. msg is not
// modified.
func Retarget(msg *model.Message, to dialect.Version, opts Options) (*model.Message, ddexerrors.List) {
	from := msg.Version
	if from == dialect.VersionUnknown {
		from = dialect.Latest
	}
	m := *msg
	m.Version = to
	if m.SchemaVersionID != "" {
		m.SchemaVersionID = to.SchemaVersionID()
	}
	if m.SchemaLocation != "" {
		m.SchemaLocation = to.SchemaLocation()
	}
	if msg.Sidecar == nil || from == to {
		return &m, nil
	}
	r := retargeter{from: from.Namespace(), to: to.Namespace(), schema: dialect.For(to), opts: opts}
	m.Sidecar = r.sidecar(msg.Sidecar)
	return &m, r.diags
}

type retargeter struct {
	from, to string
	schema   *dialect.Schema
	opts     Options
	diags    ddexerrors.List
}

func (r *retargeter) uri(u string) string {
	if u == r.from {
		return r.to
	}
	return u
}

func (r *retargeter) sidecar(in *model.Sidecar) *model.Sidecar {
	sc := *in
	sc.Bindings = slices.Clone(in.Bindings)
	for i := range sc.Bindings {
		sc.Bindings[i].URI = r.uri(sc.Bindings[i].URI)
	}
	sc.Attributes = slices.Clone(in.Attributes)
	for i := range sc.Attributes {
		a := &sc.Attributes[i]
		a.Namespace = r.uri(a.Namespace)
		a.ValueNamespace = r.uri(a.ValueNamespace)
	}
	if len(in.AttributeOrder) > 0 {
		sc.AttributeOrder = make(map[string][]string, len(in.AttributeOrder))
		old, repl := "{"+r.from+"}", "{"+r.to+"}"
		for path, names := range in.AttributeOrder {
			out := make([]string, len(names))
			for i, n := range names {
				out[i] = strings.Replace(n, old, repl, 1)
			}
			sc.AttributeOrder[path] = out
		}
	}
	sc.Fragments = make([]model.Fragment, 0, len(in.Fragments))
	for _, f := range in.Fragments {
		if f, ok := r.fragment(f); ok {
			sc.Fragments = append(sc.Fragments, f)
		}
	}
	return &sc
}

// fragment rewrites an ERN fragment into the target namespace. Fragments
// the source knew but the target does not are dropped or marked unknown.
func (r *retargeter) fragment(f model.Fragment) (model.Fragment, bool) {
	if f.Namespace != "" && !dialect.IsERN(f.Namespace) {
		return f, true
	}
	if !f.Unknown && !r.schema.Known(f.Local) {
		action := "dropped"
		if r.opts.KeepUnsupported {
			action = "kept as an unknown element"
		}
		r.diags = append(r.diags, ddexerrors.Warnf(ddexerrors.CodeUnknownElement,
			"element %s has no counterpart in ERN %s; %s", f.Local, r.schema.Version(), action).
			At(ddexerrors.Location{Path: f.Owner + "/" + f.Local}).
			WithSubject(f.Local))
		if !r.opts.KeepUnsupported {
			return f, false
		}
		f.Unknown = true
	}
	f.Namespace = r.uri(f.Namespace)
	f.XML = strings.ReplaceAll(f.XML, `"`+r.from+`"`, `"`+r.to+`"`)
	if len(f.Prefixes) > 0 {
		f.Prefixes = maps.Clone(f.Prefixes)
		for p, u := range f.Prefixes {
			f.Prefixes[p] = r.uri(u)
		}
	}
	return f, true
}
