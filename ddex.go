// Package ddex parses and builds ERN release notifications with
// byte-level determinism. Parsing keeps comments, processing instructions,
// extension fragments, attribute order and prefix choices in a sidecar so
// that a parse followed by a build reproduces the input's canonical form.
package ddex

import (
	"bytes"
	"context"
	"io"
	"iter"
	"slices"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/daddykev/ddex-suite/config"
	ddexerrors "github.com/daddykev/ddex-suite/errors"
	"github.com/daddykev/ddex-suite/internal/ast"
	"github.com/daddykev/ddex-suite/internal/canon"
	"github.com/daddykev/ddex-suite/internal/convert"
	"github.com/daddykev/ddex-suite/internal/determinism"
	"github.com/daddykev/ddex-suite/internal/dialect"
	"github.com/daddykev/ddex-suite/internal/digest"
	"github.com/daddykev/ddex-suite/internal/fidelity"
	"github.com/daddykev/ddex-suite/internal/generator"
	"github.com/daddykev/ddex-suite/internal/linker"
	"github.com/daddykev/ddex-suite/internal/parser"
	"github.com/daddykev/ddex-suite/internal/preflight"
	"github.com/daddykev/ddex-suite/internal/stableid"
	"github.com/daddykev/ddex-suite/internal/xiter"
	"github.com/daddykev/ddex-suite/model"
)

// Digest is a content hash tagged with its algorithm.
type Digest = digest.Digest

// Version is an ERN dialect.
type Version = dialect.Version

// The supported ERN versions.
const (
	V382 = dialect.V382
	V42  = dialect.V42
	V43  = dialect.V43
)

// ParseVersion accepts "4.3", "43" and "ern/43" style spellings.
func ParseVersion(s string) (Version, error) {
	return dialect.ParseVersion(s)
}

// Detection describes the dialect and every namespace declaration of a
// document.
type Detection = dialect.Resolution

// ParseResult is a parsed message.
type ParseResult struct {
	Message     *model.Message
	Sidecar     *model.Sidecar
	Version     dialect.Version
	Diagnostics ddexerrors.List
}

// BuildStats summarizes a build.
type BuildStats struct {
	Releases  int
	Resources int
	Deals     int
	Parties   int
	Bytes     int
	Elapsed   time.Duration
}

// Format renders the counts with the number conventions of tag.
func (s BuildStats) Format(tag language.Tag) string {
	return message.NewPrinter(tag).Sprintf("%d releases, %d resources, %d deals, %d bytes",
		s.Releases, s.Resources, s.Deals, s.Bytes)
}

// BuildResult is a serialized message.
type BuildResult struct {
	XML []byte
	// Hash covers XML without the banner.
	Hash        Digest
	Banner      string
	Diagnostics ddexerrors.List
	Stats       BuildStats
	// Summary is Stats formatted for the configured locale.
	Summary string
}

// DetectVersion reads only the document element of data.
func DetectVersion(data []byte) (dialect.Version, error) {
	v, _, err := dialect.DetectVersion(data, false)
	return v, err
}

// DetectVersionWithOptions reads all of data and reports every namespace
// declaration. A missing ERN namespace fails when strict versioning is
// configured.
func DetectVersionWithOptions(data []byte, opts Options) (*Detection, error) {
	lim, err := prepare(opts)
	if err != nil {
		return nil, err
	}
	started := time.Now()
	res, err := dialect.Resolve(bytes.NewReader(data), opts.cfg.StrictVersion, lim.options())
	opts.metrics().operation("detect", time.Since(started), err)
	if err != nil {
		return nil, err
	}
	opts.metrics().diagnostics(res.Diagnostics)
	return res, nil
}

// Parse parses a document held in memory.
func Parse(ctx context.Context, data []byte, opts Options) (*ParseResult, error) {
	return parse(ctx, "parse", bytes.NewReader(data), opts)
}

// ParseReader parses a document read incrementally from r. The result is
// the same as Parse over the same bytes.
func ParseReader(ctx context.Context, r io.Reader, opts Options) (*ParseResult, error) {
	return parse(ctx, "parse_reader", r, opts)
}

func parse(ctx context.Context, op string, r io.Reader, opts Options) (res *ParseResult, err error) {
	started := time.Now()
	defer func() { opts.metrics().operation(op, time.Since(started), err) }()
	lim, err := prepare(opts)
	if err != nil {
		return nil, err
	}
	ctx, cancel := withTimeout(ctx, opts)
	defer cancel()
	out, err := parser.Parse(ctx, r, parserOptions(opts, lim))
	if err != nil {
		return nil, err
	}
	opts.metrics().diagnostics(out.Diagnostics)
	return &ParseResult{
		Message:     out.Message,
		Sidecar:     out.Sidecar,
		Version:     out.Version,
		Diagnostics: out.Diagnostics,
	}, nil
}

// Stream yields parties, resources, releases and deals as their elements
// close. It does not resolve references or capture a sidecar. Iteration
// stops after the first error.
func Stream(ctx context.Context, r io.Reader, opts Options) iter.Seq2[model.Entity, error] {
	lim, err := prepare(opts)
	if err != nil {
		return func(yield func(model.Entity, error) bool) { yield(nil, err) }
	}
	return func(yield func(model.Entity, error) bool) {
		ctx, cancel := withTimeout(ctx, opts)
		defer cancel()
		for e, err := range parser.Stream(ctx, r, parserOptions(opts, lim)) {
			if !yield(e, err) || err != nil {
				return
			}
		}
	}
}

// Build serializes msg. msg is not modified: missing references are
// assigned on a copy.
func Build(ctx context.Context, msg *model.Message, opts Options) (res *BuildResult, err error) {
	started := time.Now()
	defer func() { opts.metrics().operation("build", time.Since(started), err) }()
	return build(ctx, msg, opts)
}

// BuildRequest assembles a message from req and serializes it.
func BuildRequest(ctx context.Context, req model.BuildRequest, opts Options) (res *BuildResult, err error) {
	started := time.Now()
	defer func() { opts.metrics().operation("build_request", time.Since(started), err) }()
	msg, err := fromRequest(req, opts)
	if err != nil {
		return nil, err
	}
	return build(ctx, msg, opts)
}

func fromRequest(req model.BuildRequest, opts Options) (*model.Message, error) {
	if err := opts.Validate(); err != nil {
		return nil, invalidConfig(err)
	}
	if opts.preset != nil {
		req = opts.preset.Fill(req)
	}
	cfg := opts.cfg
	ids := stableid.New(cfg.IDs, cfg.Hash, stableid.WithClock(opts.now))
	msg, err := generator.FromRequest(req, ids, opts.now())
	if err != nil {
		if e, ok := ddexerrors.AsError(err); ok {
			return nil, e
		}
		return nil, ddexerrors.Wrap(ddexerrors.PhaseGenerate, ddexerrors.New(ddexerrors.CodeValidationFailed, err.Error()), err)
	}
	return msg, nil
}

func build(ctx context.Context, msg *model.Message, opts Options) (*BuildResult, error) {
	started := time.Now()
	lim, err := prepare(opts)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, ddexerrors.ValidationFailed(ddexerrors.List{
			ddexerrors.New(ddexerrors.CodeRequiredFieldMissing, "message is nil"),
		})
	}
	ctx, cancel := withTimeout(ctx, opts)
	defer cancel()
	cfg := opts.cfg

	m := clone(msg)
	idOpts := []stableid.Option{stableid.WithClock(opts.now)}
	if m.Sidecar != nil {
		// deal references have no use site; a parsed deal keeps what the
		// source had
		idOpts = append(idOpts, stableid.Skip(stableid.Deal))
	}
	stableid.New(cfg.IDs, cfg.Hash, idOpts...).Assign(m)
	if m.CreatedAt.IsZero() {
		m.CreatedAt = opts.now()
	}
	if _, diags := linker.Link(m, cfg.Preflight == config.PreflightStrict); diags.HasErrors() {
		if broken := linkErrors(diags); len(broken) > 0 {
			opts.metrics().diagnostics(broken)
			return nil, ddexerrors.LinkFailed(broken)
		}
	}
	if m.Profile == "" && opts.preset != nil {
		m.Profile = opts.preset.Profile
	}
	rep, err := preflight.Check(m, cfg.Preflight, opts.rules)
	if rep != nil {
		opts.metrics().diagnostics(rep.Diagnostics)
	}
	if err != nil {
		return nil, err
	}

	doc, err := generator.Generate(ctx, m, generator.Options{Limits: lim.options(), Logger: opts.log()})
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, ddexerrors.Timeout(ddexerrors.PhaseGenerate, time.Since(started), err)
	}
	out, err := canon.Canonicalize(ctx, doc, canon.Options{Config: cfg, Schema: dialect.For(m.Version)})
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, ddexerrors.Timeout(ddexerrors.PhaseCanonical, time.Since(started), err)
	}
	res := &BuildResult{
		XML:         out.Bytes,
		Hash:        out.Digest,
		Banner:      out.Banner,
		Diagnostics: rep.Diagnostics,
		Stats: BuildStats{
			Releases:  len(m.Releases),
			Resources: len(m.Resources),
			Deals:     len(m.Deals),
			Parties:   len(m.Parties),
			Bytes:     len(out.Bytes),
			Elapsed:   time.Since(started),
		},
	}
	res.Summary = res.Stats.Format(opts.locale)
	opts.log().Debug("built message",
		zap.String("id", m.ID),
		zap.Stringer("version", m.Version),
		zap.Int("bytes", res.Stats.Bytes),
		zap.Stringer("digest", res.Hash),
		zap.Duration("elapsed", res.Stats.Elapsed))
	return res, nil
}

// linkErrors keeps the linker errors that fail a build whatever the
// preflight level: duplicates, kind mismatches and cycles.
func linkErrors(diags ddexerrors.List) ddexerrors.List {
	var out ddexerrors.List
	for _, d := range diags.Errors() {
		switch d.Code {
		case ddexerrors.CodeDuplicateReference, ddexerrors.CodeReferenceTypeMismatch, ddexerrors.CodeReferenceCycle:
			out = append(out, d)
		}
	}
	return out
}

// clone copies msg deeply enough for reference assignment.
func clone(msg *model.Message) *model.Message {
	m := *msg
	m.Parties = slices.Clone(msg.Parties)
	m.Resources = slices.Clone(msg.Resources)
	m.Releases = slices.Clone(msg.Releases)
	m.Deals = slices.Clone(msg.Deals)
	return &m
}

// Canonicalize rewrites data into canonical form without mapping it to a
// message. Unknown content is kept subject to the preservation settings.
func Canonicalize(ctx context.Context, data []byte, opts Options) (out []byte, err error) {
	started := time.Now()
	defer func() { opts.metrics().operation("canonicalize", time.Since(started), err) }()
	res, err := canonicalize(ctx, data, opts)
	if err != nil {
		return nil, err
	}
	return res.Bytes, nil
}

// CanonicalHash returns the digest of the canonical form of data. The
// banner never contributes to it.
func CanonicalHash(ctx context.Context, data []byte, opts Options) (d Digest, err error) {
	started := time.Now()
	defer func() { opts.metrics().operation("canonical_hash", time.Since(started), err) }()
	res, err := canonicalize(ctx, data, opts)
	if err != nil {
		return Digest{}, err
	}
	return res.Digest, nil
}

// MessageHash returns the digest msg builds to.
func MessageHash(ctx context.Context, msg *model.Message, opts Options) (Digest, error) {
	res, err := Build(ctx, msg, opts)
	if err != nil {
		return Digest{}, err
	}
	return res.Hash, nil
}

func canonicalize(ctx context.Context, data []byte, opts Options) (*canon.Result, error) {
	started := time.Now()
	lim, err := prepare(opts)
	if err != nil {
		return nil, err
	}
	ctx, cancel := withTimeout(ctx, opts)
	defer cancel()
	doc, err := parser.Tree(ctx, bytes.NewReader(data), lim.options())
	if err != nil {
		return nil, err
	}
	version, diags, err := parser.Detect(doc, opts.cfg.StrictVersion)
	if err != nil {
		return nil, err
	}
	opts.metrics().diagnostics(diags)
	res, err := canon.Canonicalize(ctx, doc, canon.Options{Config: opts.cfg, Schema: dialect.For(version)})
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, ddexerrors.Timeout(ddexerrors.PhaseCanonical, time.Since(started), err)
	}
	return res, nil
}

// VerifyDeterminism builds msg repeatedly while varying the clock, map
// insertion order, locale hint, memory pressure and scheduling. iterations
// of zero or less uses the configured count. The report is returned even
// when verification fails; the error is then DETERMINISM_FAILURE.
func VerifyDeterminism(ctx context.Context, msg *model.Message, opts Options, iterations int) (rep *determinism.Report, err error) {
	started := time.Now()
	defer func() { opts.metrics().operation("verify", time.Since(started), err) }()
	if err := opts.Validate(); err != nil {
		return nil, invalidConfig(err)
	}
	if msg == nil {
		return nil, ddexerrors.ValidationFailed(ddexerrors.List{
			ddexerrors.New(ddexerrors.CodeRequiredFieldMissing, "message is nil"),
		})
	}
	if iterations <= 0 {
		iterations = opts.cfg.VerifyIterations
	}
	inner := opts
	inner.recorder = nil
	run := func(ctx context.Context, env determinism.Env) ([]byte, error) {
		o := inner.WithClock(env.Clock).WithLocale(env.Locale)
		o.cfg.CustomOrder = permuted(o.cfg.CustomOrder, env)
		res, err := build(ctx, shuffled(msg, env), o)
		if err != nil {
			return nil, err
		}
		return res.XML, nil
	}
	rep, err = determinism.Verify(ctx, run, determinism.Options{
		Iterations: iterations,
		Hash:       opts.cfg.Hash,
		Logger:     opts.log(),
	})
	if err != nil {
		return nil, err
	}
	opts.metrics().iterations(rep.Iterations, rep.Deterministic)
	switch {
	case rep.Divergence != nil:
		return rep, ddexerrors.DeterminismFailure(ddexerrors.PhaseVerify, rep.Divergence.String())
	case len(rep.Failures) > 0:
		e := ddexerrors.DeterminismFailure(ddexerrors.PhaseVerify, rep.Failures[0].Message)
		e.Diagnostics = rep.Failures
		return rep, e
	}
	return rep, nil
}

// shuffled returns msg with its sidecar maps rebuilt in a run-specific
// insertion order.
func shuffled(msg *model.Message, env determinism.Env) *model.Message {
	if msg.Sidecar == nil {
		return msg
	}
	m := *msg
	sc := *msg.Sidecar
	sc.AttributeOrder = permuted(sc.AttributeOrder, env)
	m.Sidecar = &sc
	return &m
}

func permuted[V any](in map[string]V, env determinism.Env) map[string]V {
	return xiter.Permuted(in, env.Permute(len(in)))
}

// RoundTrip parses data, builds the message and parses the result again,
// then compares both documents and both messages.
func RoundTrip(ctx context.Context, data []byte, opts Options) (rep *fidelity.Report, err error) {
	started := time.Now()
	defer func() { opts.metrics().operation("roundtrip", time.Since(started), err) }()
	lim, err := prepare(opts)
	if err != nil {
		return nil, err
	}
	ctx, cancel := withTimeout(ctx, opts)
	defer cancel()
	popts := parserOptions(opts, lim)

	before, err := parser.Tree(ctx, bytes.NewReader(data), lim.options())
	if err != nil {
		return nil, err
	}
	first, err := parser.Map(before, popts)
	if err != nil {
		return nil, err
	}
	built, err := build(ctx, first.Message, opts)
	if err != nil {
		return nil, err
	}
	after, err := parser.Tree(ctx, bytes.NewReader(built.XML), lim.options())
	if err != nil {
		return nil, err
	}
	second, err := parser.Map(after, popts)
	if err != nil {
		return nil, err
	}
	rep = fidelity.Compare(fidelity.Input{
		Original:    data,
		Rebuilt:     built.XML,
		Before:      before,
		After:       after,
		BeforeModel: first.Message,
		AfterModel:  second.Message,
		Key:         dialect.For(first.Version).SortKey,
	})
	opts.log().Debug("round trip",
		zap.Bool("identical", rep.Identical),
		zap.Float64("overall", rep.Overall),
		zap.Int("structure", len(rep.Structure)),
		zap.Int("attributes", len(rep.Attributes)))
	return rep, nil
}

// ConvertResult is a document rewritten for another ERN version.
type ConvertResult struct {
	XML  []byte
	Hash Digest
	From Version
	To   Version
	// Diagnostics lists what the target version cannot carry, followed by
	// the build diagnostics.
	Diagnostics ddexerrors.List
}

// Convert parses data and builds it for version target. The version
// attribute, the ERN namespace and the schema location follow the target.
// Kept elements the target vocabulary lacks are dropped, or kept as
// unknown elements under WithKeepUnsupported; each is reported as
// UNKNOWN_ELEMENT.
func Convert(ctx context.Context, data []byte, target Version, opts Options) (res *ConvertResult, err error) {
	started := time.Now()
	defer func() { opts.metrics().operation("convert", time.Since(started), err) }()
	if !slices.Contains(dialect.Versions(), target) {
		return nil, ddexerrors.Wrap(ddexerrors.PhaseConfigure,
			ddexerrors.Newf(ddexerrors.CodeInvalidVersion, "unknown target version %s", target), nil)
	}
	lim, err := prepare(opts)
	if err != nil {
		return nil, err
	}
	ctx, cancel := withTimeout(ctx, opts)
	defer cancel()
	parsed, err := parser.Parse(ctx, bytes.NewReader(data), parserOptions(opts, lim))
	if err != nil {
		return nil, err
	}
	msg, lost := convert.Retarget(parsed.Message, target, convert.Options{KeepUnsupported: opts.keepUnsupported})
	opts.metrics().diagnostics(lost)
	built, err := build(ctx, msg, opts)
	if err != nil {
		return nil, err
	}
	opts.log().Debug("converted",
		zap.Stringer("from", parsed.Version),
		zap.Stringer("to", target),
		zap.Int("lost", len(lost)))
	return &ConvertResult{
		XML:         built.XML,
		Hash:        built.Hash,
		From:        parsed.Version,
		To:          target,
		Diagnostics: append(lost, built.Diagnostics...),
	}, nil
}

// Diff canonicalizes a and b and compares them as documents and as
// messages. Differences canonicalization removes do not show.
func Diff(ctx context.Context, a, b []byte, opts Options) (rep *fidelity.Report, err error) {
	started := time.Now()
	defer func() { opts.metrics().operation("diff", time.Since(started), err) }()
	lim, err := prepare(opts)
	if err != nil {
		return nil, err
	}
	ctx, cancel := withTimeout(ctx, opts)
	defer cancel()
	left, err := diffSide(ctx, a, opts, lim)
	if err != nil {
		return nil, err
	}
	right, err := diffSide(ctx, b, opts, lim)
	if err != nil {
		return nil, err
	}
	return fidelity.Compare(fidelity.Input{
		Original:    left.canonical,
		Rebuilt:     right.canonical,
		Before:      left.tree,
		After:       right.tree,
		BeforeModel: left.msg,
		AfterModel:  right.msg,
		Key:         dialect.For(left.version).SortKey,
		Labels:      [2]string{"a", "b"},
	}), nil
}

type side struct {
	canonical []byte
	tree      *ast.Document
	msg       *model.Message
	version   Version
}

func diffSide(ctx context.Context, data []byte, opts Options, lim parseLimits) (*side, error) {
	res, err := canonicalize(ctx, data, opts)
	if err != nil {
		return nil, err
	}
	tree, err := parser.Tree(ctx, bytes.NewReader(res.Bytes), lim.options())
	if err != nil {
		return nil, err
	}
	mapped, err := parser.Map(tree, parserOptions(opts, lim))
	if err != nil {
		return nil, err
	}
	return &side{canonical: res.Bytes, tree: tree, msg: mapped.Message, version: mapped.Version}, nil
}

func prepare(opts Options) (parseLimits, error) {
	if err := opts.Validate(); err != nil {
		return parseLimits{}, invalidConfig(err)
	}
	return opts.limits()
}

func invalidConfig(err error) *ddexerrors.Error {
	return ddexerrors.Wrap(ddexerrors.PhaseConfigure, ddexerrors.New(ddexerrors.CodeInvalidConfig, err.Error()), err)
}

func withTimeout(ctx context.Context, opts Options) (context.Context, context.CancelFunc) {
	if opts.timeout > 0 {
		return context.WithTimeout(ctx, opts.timeout)
	}
	return context.WithCancel(ctx)
}

func parserOptions(opts Options, lim parseLimits) parser.Options {
	return parser.Options{
		Limits:           lim.options(),
		StrictVersion:    opts.cfg.StrictVersion,
		StrictReferences: opts.cfg.Preflight == config.PreflightStrict,
		Logger:           opts.log(),
	}
}
