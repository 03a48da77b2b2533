package analysis

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lintpad/internal/config"
	"lintpad/internal/diag"
	"lintpad/internal/trace"
)

func oneDiag(code string) []diag.Diagnostic {
	return []diag.Diagnostic{diag.New(code, diag.At(1, 0), diag.At(1, 1), "msg")}
}

func TestRunnerSuccess(t *testing.T) {
	r := NewRunner(EngineFunc(func(context.Context, string, config.EngineConfig) ([]diag.Diagnostic, error) {
		return oneDiag("W291"), nil
	}))
	res := r.Run(context.Background(), "x = 1 ", nil)
	require.True(t, res.OK())
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, "W291", res.Diagnostics[0].Code)
}

func TestRunnerUsesContextTracer(t *testing.T) {
	ring := trace.NewRingTracer(16, trace.LevelPhase)
	ctx := trace.WithTracer(context.Background(), ring)
	r := NewRunner(EngineFunc(func(context.Context, string, config.EngineConfig) ([]diag.Diagnostic, error) {
		return oneDiag("W291"), nil
	}))
	r.Run(ctx, "x = 1 ", nil)

	events := ring.Snapshot()
	require.NotEmpty(t, events)
	assert.Equal(t, "analyze", events[0].Name)
	assert.Equal(t, trace.ScopeAnalysis, events[0].Scope)
}

func TestRunnerNilDiagnosticsBecomeEmpty(t *testing.T) {
	r := NewRunner(EngineFunc(func(context.Context, string, config.EngineConfig) ([]diag.Diagnostic, error) {
		return nil, nil
	}))
	res := r.Run(context.Background(), "", nil)
	require.True(t, res.OK())
	assert.NotNil(t, res.Diagnostics)
	assert.Empty(t, res.Diagnostics)
}

func TestRunnerWrapsErrors(t *testing.T) {
	cause := errors.New("unknown option lint.frobnicate")
	r := NewRunner(EngineFunc(func(context.Context, string, config.EngineConfig) ([]diag.Diagnostic, error) {
		return oneDiag("X"), cause
	}))
	res := r.Run(context.Background(), "", nil)
	require.False(t, res.OK())
	assert.Nil(t, res.Diagnostics)
	assert.Equal(t, cause.Error(), res.Err.Message)
	assert.ErrorIs(t, res.Err, cause)
}

func TestRunnerRecoversPanics(t *testing.T) {
	var observed []Result
	r := NewRunner(EngineFunc(func(context.Context, string, config.EngineConfig) ([]diag.Diagnostic, error) {
		panic("index out of range")
	}), WithObserver(func(res Result) { observed = append(observed, res) }))

	var res Result
	require.NotPanics(t, func() { res = r.Run(context.Background(), "", nil) })
	require.NotNil(t, res.Err)
	assert.True(t, res.Err.Panicked)
	assert.Contains(t, res.Err.Message, "index out of range")
	assert.ErrorIs(t, res.Err, ErrEnginePanic)
	require.Len(t, observed, 1)
	assert.False(t, observed[0].OK())
}

func TestRunnerWithoutEngine(t *testing.T) {
	res := NewRunner(nil).Run(context.Background(), "", nil)
	require.NotNil(t, res.Err)
}

func TestKeyForSeparatesConfigAndSource(t *testing.T) {
	a := KeyFor(config.EngineConfig{"lint": {"select": "W"}}, "x")
	b := KeyFor(config.EngineConfig{"lint": {"select": "W"}}, "x")
	c := KeyFor(config.EngineConfig{"lint": {"select": "W"}}, "y")
	d := KeyFor(nil, "x")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)
	assert.Len(t, a.String(), 64)
}

func TestCachedEngineCachesOnlySuccess(t *testing.T) {
	var calls atomic.Int32
	fail := atomic.Bool{}
	inner := EngineFunc(func(_ context.Context, src string, _ config.EngineConfig) ([]diag.Diagnostic, error) {
		calls.Add(1)
		if fail.Load() {
			return nil, errors.New("boom")
		}
		return append(oneDiag("E501"),
			diag.New("W291", diag.At(1, 0), diag.At(1, 1), src).WithFix("", diag.At(1, 0), diag.At(1, 1))), nil
	})
	c, err := NewCachedEngine(inner, 8)
	require.NoError(t, err)

	ctx := context.Background()
	first, err := c.Check(ctx, "a", nil)
	require.NoError(t, err)
	first[1].Fix.Content = "mutated"

	second, err := c.Check(ctx, "a", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "", second[1].Fix.Content)

	fail.Store(true)
	_, err = c.Check(ctx, "b", nil)
	require.Error(t, err)
	_, err = c.Check(ctx, "b", nil)
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 1, c.Len())
}

func TestDiskCacheRoundTrip(t *testing.T) {
	dc, err := OpenDiskCache(t.TempDir(), "lintpad")
	require.NoError(t, err)

	key := KeyFor(nil, "print('x')")
	_, ok, err := dc.Get(key)
	require.NoError(t, err)
	assert.False(t, ok)

	want := []diag.Diagnostic{
		diag.New("Q000", diag.At(1, 6), diag.At(1, 9), "Single quotes found but double quotes preferred").
			WithFix(`"x"`, diag.At(1, 6), diag.At(1, 9)),
	}
	require.NoError(t, dc.Put(key, want))
	got, ok, err := dc.Get(key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)

	require.NoError(t, dc.DropAll())
	_, ok, err = dc.Get(key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheNamespacesDoNotShareDiskEntries(t *testing.T) {
	dc, err := OpenDiskCache(t.TempDir(), "lintpad")
	require.NoError(t, err)
	engine := func(code string) Engine {
		return EngineFunc(func(context.Context, string, config.EngineConfig) ([]diag.Diagnostic, error) {
			return oneDiag(code), nil
		})
	}

	a, err := NewCachedEngine(engine("E501"), 4, WithDiskCache(dc), WithCacheNamespace("lint.line-length=10\n"))
	require.NoError(t, err)
	got, err := a.Check(context.Background(), "src", nil)
	require.NoError(t, err)
	assert.Equal(t, "E501", got[0].Code)

	b, err := NewCachedEngine(engine("W292"), 4, WithDiskCache(dc), WithCacheNamespace("lint.line-length=88\n"))
	require.NoError(t, err)
	got, err = b.Check(context.Background(), "src", nil)
	require.NoError(t, err)
	assert.Equal(t, "W292", got[0].Code)
}

func TestCachedEngineFallsBackToDisk(t *testing.T) {
	dc, err := OpenDiskCache(t.TempDir(), "lintpad")
	require.NoError(t, err)
	var calls atomic.Int32
	inner := EngineFunc(func(context.Context, string, config.EngineConfig) ([]diag.Diagnostic, error) {
		calls.Add(1)
		return oneDiag("W292"), nil
	})

	c1, err := NewCachedEngine(inner, 4, WithDiskCache(dc))
	require.NoError(t, err)
	_, err = c1.Check(context.Background(), "src", nil)
	require.NoError(t, err)

	c2, err := NewCachedEngine(inner, 4, WithDiskCache(dc))
	require.NoError(t, err)
	got, err := c2.Check(context.Background(), "src", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	require.Len(t, got, 1)
	assert.Equal(t, "W292", got[0].Code)
}

func TestParseDiagnostics(t *testing.T) {
	out, err := ParseDiagnostics([]byte("  "))
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = ParseDiagnostics([]byte(`[{"code":"W291","message":"Trailing whitespace",
		"location":{"row":2,"column":5},"end_location":{"row":2,"column":6},
		"fix":{"content":"","location":{"row":2,"column":5},"end_location":{"row":2,"column":6}}}]`))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, diag.At(2, 5), out[0].Location)
	require.True(t, out[0].HasFix())

	_, err = ParseDiagnostics([]byte(`{"code":1}`))
	assert.Error(t, err)
	_, err = ParseDiagnostics([]byte(`[{"message":"x","location":{"row":1,"column":0}}]`))
	assert.Error(t, err)
	_, err = ParseDiagnostics([]byte(`[{"code":"A","location":{"row":0,"column":0}}]`))
	assert.Error(t, err)
}

func TestNewCommandEngineRejectsEmpty(t *testing.T) {
	_, err := NewCommandEngine("   ")
	assert.Error(t, err)
	e, err := NewCommandEngine("ruff check --output-format json -")
	require.NoError(t, err)
	assert.Equal(t, "ruff", e.Path)
	assert.Equal(t, []string{"check", "--output-format", "json", "-"}, e.Args)
}
