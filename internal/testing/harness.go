// Package harness holds ERN fixture documents and a differential runner
// that checks two pipelines agree on a document: same bytes on success,
// same error code on failure.
package harness

import (
	"bytes"
	"context"
	"embed"
	"io/fs"
	"path"
	"slices"

	ddexerrors "github.com/daddykev/ddex-suite/errors"
)

//go:embed testdata/*.xml
var fixtures embed.FS

// Fixture returns the named document from testdata. It panics when the
// fixture does not exist.
func Fixture(name string) []byte {
	data, err := fixtures.ReadFile(path.Join("testdata", name))
	if err != nil {
		panic(err)
	}
	return data
}

// Fixtures lists the fixture names in sorted order.
func Fixtures() []string {
	entries, err := fs.ReadDir(fixtures, "testdata")
	if err != nil {
		panic(err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	slices.Sort(names)
	return names
}

// Engine turns one document into bytes.
type Engine interface {
	Run(ctx context.Context, data []byte) ([]byte, error)
}

// EngineFunc adapts a function to Engine.
type EngineFunc func(ctx context.Context, data []byte) ([]byte, error)

// Run calls f.
func (f EngineFunc) Run(ctx context.Context, data []byte) ([]byte, error) {
	return f(ctx, data)
}

// Case describes one differential scenario.
type Case struct {
	Name     string
	Document []byte
}

// Result captures one engine outcome.
type Result struct {
	Output []byte
	Err    error
}

// Diff stores side-by-side outcomes.
type Diff struct {
	Left  Result
	Right Result
}

// Equal reports whether both sides are equivalent.
func (d Diff) Equal() bool {
	return Equivalent(d.Left, d.Right)
}

// RunCase executes one engine against one case.
func RunCase(ctx context.Context, engine Engine, tc Case) Result {
	if engine == nil {
		return Result{Err: ddexerrors.IO(ddexerrors.PhaseRoundTrip, "no engine", nil)}
	}
	out, err := engine.Run(ctx, tc.Document)
	return Result{Output: out, Err: err}
}

// Compare runs both engines and returns a diff.
func Compare(ctx context.Context, left, right Engine, tc Case) Diff {
	return Diff{
		Left:  RunCase(ctx, left, tc),
		Right: RunCase(ctx, right, tc),
	}
}

// Equivalent checks whether two results are behaviorally equivalent:
// identical output, and errors with the same taxonomy code.
func Equivalent(left, right Result) bool {
	if !equivalentError(left.Err, right.Err) {
		return false
	}
	return bytes.Equal(left.Output, right.Output)
}

func equivalentError(left, right error) bool {
	if left == nil || right == nil {
		return left == nil && right == nil
	}
	leftCode, rightCode := ddexerrors.CodeOf(left), ddexerrors.CodeOf(right)
	if leftCode != "" || rightCode != "" {
		return leftCode == rightCode
	}
	return left.Error() == right.Error()
}
