package determinism

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ddexerrors "github.com/daddykev/ddex-suite/errors"
	"github.com/daddykev/ddex-suite/config"
)

var epochForTest = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestVerifyStableBuild(t *testing.T) {
	build := func(ctx context.Context, env Env) ([]byte, error) {
		return []byte("<a>\n  <b/>\n</a>\n"), nil
	}
	rep, err := Verify(context.Background(), build, Options{Iterations: MinIterations, Ballast: 1 << 16})
	require.NoError(t, err)
	assert.True(t, rep.Deterministic)
	assert.Equal(t, MinIterations, rep.Iterations)
	require.Len(t, rep.Hashes, MinIterations)
	require.Len(t, rep.Secondary, MinIterations)
	assert.Equal(t, config.HashSHA256, rep.Hashes[0].Algorithm)
	assert.NotEqual(t, rep.Hashes[0].Algorithm, rep.Secondary[0].Algorithm)
	assert.Nil(t, rep.Divergence)
	assert.Empty(t, rep.Failures)
}

func TestVerifyLocatesDivergence(t *testing.T) {
	build := func(ctx context.Context, env Env) ([]byte, error) {
		// the clock leaks into the output
		return fmt.Appendf(nil, "<a>\n  <t>%s</t>\n</a>\n", env.Clock().Format("2006-01-02T15:04:05")), nil
	}
	rep, err := Verify(context.Background(), build, Options{Iterations: 3, Ballast: 1 << 16})
	require.NoError(t, err)
	assert.False(t, rep.Deterministic)
	require.NotNil(t, rep.Divergence)
	d := rep.Divergence
	assert.Equal(t, 1, d.Iteration)
	assert.Equal(t, 2, d.Line)
	// run 1 is 37h13m later, so the day digit differs first
	assert.Equal(t, len("<a>\n  <t>2000-01-0"), d.Offset)
	assert.Equal(t, 15, d.Column)
	assert.Equal(t, 0, d.WindowStart)
	assert.Equal(t, "<a>\n  <t>2000-01-01T00:00:00</t>\n</a>\n", string(d.Expected))
	assert.Equal(t, "<a>\n  <t>2000-01-02T13:13:00</t>\n</a>\n", string(d.Actual))
	assert.Contains(t, d.String(), "line 2")
}

func TestVerifyRecordsPanics(t *testing.T) {
	build := func(ctx context.Context, env Env) ([]byte, error) {
		if env.Iteration == 2 {
			panic("boom")
		}
		return []byte("x"), nil
	}
	rep, err := Verify(context.Background(), build, Options{Iterations: 4, Ballast: 1 << 16})
	require.NoError(t, err)
	assert.False(t, rep.Deterministic)
	require.Len(t, rep.Failures, 1)
	assert.Equal(t, ddexerrors.CodeDeterminismFailure, rep.Failures[0].Code)
	assert.Contains(t, rep.Failures[0].Message, "boom")
	assert.Len(t, rep.Hashes, 3)
}

func TestVerifyKeepsBuildErrorCodes(t *testing.T) {
	build := func(ctx context.Context, env Env) ([]byte, error) {
		return nil, ddexerrors.ValidationFailed(nil)
	}
	rep, err := Verify(context.Background(), build, Options{Iterations: 2, Ballast: 1 << 16})
	require.NoError(t, err)
	require.Len(t, rep.Failures, 2)
	assert.Equal(t, ddexerrors.CodeValidationFailed, rep.Failures[0].Code)

	plain := func(ctx context.Context, env Env) ([]byte, error) { return nil, errors.New("disk full") }
	rep, err = Verify(context.Background(), plain, Options{Iterations: 1})
	require.NoError(t, err)
	assert.Equal(t, ddexerrors.CodeDeterminismFailure, rep.Failures[0].Code)
}

func TestVerifyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	build := func(ctx context.Context, env Env) ([]byte, error) { return []byte("x"), nil }
	_, err := Verify(ctx, build, Options{Iterations: 3})
	require.Error(t, err)
	assert.Equal(t, ddexerrors.CodeTimeout, ddexerrors.CodeOf(err))
}

func TestEnvironmentVaries(t *testing.T) {
	a, b := environment(0, epochForTest), environment(1, epochForTest)
	assert.NotEqual(t, a.Seed, b.Seed)
	assert.NotEqual(t, a.Clock(), b.Clock())
	assert.NotEqual(t, a.Locale, b.Locale)
	assert.ElementsMatch(t, []int{0, 1, 2, 3, 4}, a.Permute(5))
	assert.Equal(t, a.Permute(8), environment(0, epochForTest).Permute(8))
}

func TestLocateAtEnd(t *testing.T) {
	d := locate(1, []byte("abc"), []byte("abcd"))
	assert.Equal(t, 3, d.Offset)
	assert.Equal(t, 1, d.Line)
	assert.Equal(t, 4, d.Column)
	assert.Equal(t, []byte("abc"), d.Expected)
	assert.Equal(t, []byte("abcd"), d.Actual)
}
