// Package determinism runs a build repeatedly under varied conditions and
// reports whether every run produced the same bytes.
package determinism

import (
	"bytes"
	"context"
	"fmt"
	"math/rand/v2"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"

	ddexerrors "github.com/daddykev/ddex-suite/errors"
	"github.com/daddykev/ddex-suite/config"
	"github.com/daddykev/ddex-suite/internal/digest"
)

const (
	// MinIterations is the smallest run count that asserts the guarantee.
	MinIterations = 10
	// Window is how many bytes around a divergence are reported on each side.
	Window         = 32
	defaultWorkers = 4
	defaultBallast = 8 << 20
)

// locales are the environment hints cycled through the runs. A build must
// not consult them.
var locales = []language.Tag{
	language.Und,
	language.AmericanEnglish,
	language.Turkish,
	language.German,
	language.Japanese,
	language.Arabic,
}

// Env is what a single run may observe. Everything in it differs between
// runs; output must not depend on any of it.
type Env struct {
	Iteration int
	// Seed drives the insertion order of maps the build constructs.
	Seed uint64
	// Clock replaces time.Now for the run.
	Clock  func() time.Time
	Locale language.Tag
}

// Permute returns a permutation of [0,n) derived from the run seed.
func (e Env) Permute(n int) []int {
	return rand.New(rand.NewPCG(e.Seed, e.Seed^0x5DEECE66D)).Perm(n)
}

// BuildFunc produces the bytes under test.
type BuildFunc func(ctx context.Context, env Env) ([]byte, error)

// Options configures Verify.
type Options struct {
	Iterations int
	// Workers bounds concurrent runs; zero means a small default pool.
	Workers int
	Hash    config.HashAlgorithm
	// Ballast is the size of the allocation held during odd runs.
	Ballast int
	// Epoch is the base wall clock; each run sees it shifted.
	Epoch  time.Time
	Logger *zap.Logger
}

// Divergence locates the first byte where a run differs from run 0.
type Divergence struct {
	Iteration int
	Offset    int
	Line      int
	Column    int
	// WindowStart is the offset of the first byte of Expected and Actual.
	WindowStart int
	Expected    []byte
	Actual      []byte
}

func (d *Divergence) String() string {
	return fmt.Sprintf("run %d diverges at offset %d (line %d, column %d): expected %q, got %q",
		d.Iteration, d.Offset, d.Line, d.Column, d.Expected, d.Actual)
}

// Report is the outcome of a verification.
type Report struct {
	Deterministic bool
	Iterations    int
	Hashes        []digest.Digest
	// Secondary digests use a different algorithm to rule out collisions.
	Secondary  []digest.Digest
	Divergence *Divergence
	// Failures holds runs that returned an error or panicked.
	Failures []ddexerrors.Diagnostic
	Elapsed  time.Duration
}

type run struct {
	out       []byte
	primary   digest.Digest
	secondary digest.Digest
	err       error
}

// Verify runs build opts.Iterations times on a bounded pool. A run that
// errors or panics is recorded as a DETERMINISM_FAILURE diagnostic, not
// returned; the error result is reserved for cancellation.
func Verify(ctx context.Context, build BuildFunc, opts Options) (*Report, error) {
	started := time.Now()
	n := max(opts.Iterations, 1)
	workers := opts.Workers
	if workers <= 0 {
		workers = min(defaultWorkers, runtime.GOMAXPROCS(0))
	}
	ballast := opts.Ballast
	if ballast <= 0 {
		ballast = defaultBallast
	}
	epoch := opts.Epoch
	if epoch.IsZero() {
		epoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	runs := make([]run, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range n {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			env := environment(i, epoch)
			var hold []byte
			if i%2 == 1 {
				hold = make([]byte, ballast)
				for j := 0; j < len(hold); j += 4096 {
					hold[j] = byte(j)
				}
			}
			out, err := safeBuild(gctx, build, env)
			runtime.KeepAlive(hold)
			runs[i] = run{out: out, err: err}
			if err == nil {
				runs[i].primary = digest.Of(opts.Hash, out)
				runs[i].secondary = digest.Of(digest.Secondary(opts.Hash), out)
				log.Debug("determinism run",
					zap.Int("iteration", i),
					zap.Stringer("digest", runs[i].primary),
					zap.String("locale", env.Locale.String()))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, ddexerrors.Timeout(ddexerrors.PhaseVerify, time.Since(started), err)
	}

	rep := &Report{Deterministic: true, Iterations: n}
	var base *run
	baseIdx := -1
	for i := range runs {
		r := &runs[i]
		if r.err != nil {
			rep.Deterministic = false
			rep.Failures = append(rep.Failures, failure(i, r.err))
			continue
		}
		rep.Hashes = append(rep.Hashes, r.primary)
		rep.Secondary = append(rep.Secondary, r.secondary)
		if base == nil {
			base, baseIdx = r, i
			continue
		}
		if rep.Divergence != nil {
			continue
		}
		switch {
		case !bytes.Equal(base.out, r.out):
			rep.Deterministic = false
			rep.Divergence = locate(i, base.out, r.out)
		case !base.primary.Equal(r.primary) || !base.secondary.Equal(r.secondary):
			// identical bytes with differing digests means the hashing itself broke
			rep.Deterministic = false
			rep.Failures = append(rep.Failures, ddexerrors.Newf(ddexerrors.CodeDeterminismFailure,
				"run %d and run %d have equal bytes but different digests", baseIdx, i))
		}
	}
	rep.Elapsed = time.Since(started)
	if rep.Divergence != nil {
		log.Warn("determinism divergence",
			zap.Int("iteration", rep.Divergence.Iteration),
			zap.Int("offset", rep.Divergence.Offset),
			zap.Int("line", rep.Divergence.Line),
			zap.Int("column", rep.Divergence.Column))
	}
	return rep, nil
}

func environment(i int, epoch time.Time) Env {
	now := epoch.Add(time.Duration(i)*(37*time.Hour+13*time.Minute) + time.Duration(i)*time.Millisecond)
	return Env{
		Iteration: i,
		Seed:      uint64(i)*0x9E3779B97F4A7C15 + 1,
		Clock:     func() time.Time { return now },
		Locale:    locales[i%len(locales)],
	}
}

// safeBuild converts a panic in build into an error.
func safeBuild(ctx context.Context, build BuildFunc, env Env) (out []byte, err error) {
	defer func() {
		if p := recover(); p != nil {
			out = nil
			err = ddexerrors.DeterminismFailure(ddexerrors.PhaseVerify, fmt.Sprintf("build panicked: %v", p))
		}
	}()
	return build(ctx, env)
}

func failure(i int, err error) ddexerrors.Diagnostic {
	code := ddexerrors.CodeOf(err)
	if code == "" {
		code = ddexerrors.CodeDeterminismFailure
	}
	return ddexerrors.Newf(code, "run %d failed: %v", i, err).WithSubject(fmt.Sprint(i))
}

// locate finds the first differing byte between want and got.
func locate(iteration int, want, got []byte) *Divergence {
	off := 0
	for off < len(want) && off < len(got) && want[off] == got[off] {
		off++
	}
	line, col := 1, 1
	for _, b := range want[:off] {
		if b == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	start := max(off-Window, 0)
	return &Divergence{
		Iteration:   iteration,
		Offset:      off,
		Line:        line,
		Column:      col,
		WindowStart: start,
		Expected:    bytes.Clone(want[start:min(off+Window, len(want))]),
		Actual:      bytes.Clone(got[start:min(off+Window, len(got))]),
	}
}
