package session

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lintpad/internal/analysis"
	"lintpad/internal/config"
	"lintpad/internal/diag"
	"lintpad/internal/editor"
	"lintpad/internal/share"
)

// sourceEngine reports one fixable diagnostic per call, coded by call number.
func sourceEngine(calls *atomic.Int32, failOn int32) analysis.Engine {
	return analysis.EngineFunc(func(_ context.Context, src string, _ config.EngineConfig) ([]diag.Diagnostic, error) {
		n := calls.Add(1)
		if n == failOn {
			return nil, errors.New("unsupported syntax")
		}
		code := "C" + string(rune('0'+n))
		return []diag.Diagnostic{
			diag.New(code, diag.At(1, 0), diag.At(1, 1), src).WithFix("", diag.At(1, 0), diag.At(1, 1)),
		}, nil
	})
}

func newStore(t *testing.T, engine analysis.Engine, ch TokenChannel, bridge editor.Bridge) *Store {
	t.Helper()
	s, err := New(Options{Runner: analysis.NewRunner(engine), Channel: ch, Bridge: bridge})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestStartWithoutTokenUsesDefaults(t *testing.T) {
	var calls atomic.Int32
	ch := NewMemoryChannel("")
	rec := editor.NewRecorder()
	s := newStore(t, sourceEngine(&calls, 0), ch, rec)

	require.NoError(t, s.Start(context.Background()))
	st := s.State()
	assert.True(t, st.Ready)
	assert.Equal(t, share.DefaultSource, st.Source)
	assert.Equal(t, 0, st.Config.Len())
	assert.Nil(t, st.LastError)
	assert.Equal(t, 0, ch.Writes(), "start never writes the token")
	require.Len(t, rec.Markers(), 1)
	assert.Equal(t, 1, rec.LiveRegistrations())
}

func TestStartDecodesToken(t *testing.T) {
	cfg := config.Config{"lint": {"line-length": "100"}}
	token, err := share.Encode(cfg, "x = 1\n")
	require.NoError(t, err)

	var calls atomic.Int32
	s := newStore(t, sourceEngine(&calls, 0), NewMemoryChannel(token), nil)
	require.NoError(t, s.Start(context.Background()))

	st := s.State()
	assert.Equal(t, "x = 1\n", st.Source)
	assert.True(t, cfg.Equal(st.Config))
	assert.Equal(t, token, st.Token)
}

func TestStartFallsBackOnBadToken(t *testing.T) {
	var calls atomic.Int32
	s := newStore(t, sourceEngine(&calls, 0), NewMemoryChannel("%%%not-a-token"), nil)
	require.NoError(t, s.Start(context.Background()))

	st := s.State()
	assert.True(t, st.Ready)
	assert.Equal(t, share.DefaultSource, st.Source)
	assert.Equal(t, 0, st.Config.Len())
}

func TestStartOnlyOnce(t *testing.T) {
	var calls atomic.Int32
	s := newStore(t, sourceEngine(&calls, 0), nil, nil)
	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrAlreadyStarted)
	assert.Equal(t, int32(1), calls.Load())
}

func TestUpdatesBeforeStartFail(t *testing.T) {
	var calls atomic.Int32
	s := newStore(t, sourceEngine(&calls, 0), nil, nil)
	assert.ErrorIs(t, s.SetSource(context.Background(), "x"), ErrNotStarted)
	assert.ErrorIs(t, s.SetField(context.Background(), "lint", "select", "W"), ErrNotStarted)
	assert.Equal(t, int32(0), calls.Load())
}

func TestFailedAnalysisKeepsMarkers(t *testing.T) {
	var calls atomic.Int32
	rec := editor.NewRecorder()
	s := newStore(t, sourceEngine(&calls, 2), nil, rec)
	ctx := context.Background()
	require.NoError(t, s.Start(ctx))

	first := rec.Markers()
	require.Len(t, first, 1)
	assert.Equal(t, "C1", first[0].Code)
	setCalls := rec.SetCalls()

	require.NoError(t, s.SetSource(ctx, "second"))
	st := s.State()
	require.NotNil(t, st.LastError)
	assert.Equal(t, "unsupported syntax", st.LastError.Message)
	assert.Equal(t, first, rec.Markers())
	assert.Equal(t, setCalls, rec.SetCalls())
	require.Len(t, st.Diagnostics, 1)
	assert.Equal(t, "C1", st.Diagnostics[0].Code)
	assert.Equal(t, "second", st.Source)

	require.NoError(t, s.SetSource(ctx, "third"))
	st = s.State()
	assert.Nil(t, st.LastError)
	require.Len(t, rec.Markers(), 1)
	assert.Equal(t, "C3", rec.Markers()[0].Code)
	assert.Equal(t, 1, rec.LiveRegistrations())
}

func TestPublishIsIdempotent(t *testing.T) {
	var calls atomic.Int32
	ch := NewMemoryChannel("")
	s := newStore(t, sourceEngine(&calls, 0), ch, nil)
	ctx := context.Background()
	require.NoError(t, s.Start(ctx))

	require.NoError(t, s.SetField(ctx, "lint", "line-length", "100"))
	require.NoError(t, s.SetField(ctx, "lint", "line-length", "100"))
	assert.Equal(t, 1, ch.Writes())
	assert.Equal(t, int32(3), calls.Load(), "analysis runs on every change")

	cfg, src, err := share.Decode(ch.Token())
	require.NoError(t, err)
	assert.Equal(t, share.DefaultSource, src)
	assert.True(t, config.Config{"lint": {"line-length": "100"}}.Equal(cfg))

	// back to default removes the override and restores the original token
	require.NoError(t, s.SetField(ctx, "lint", "line-length", "88"))
	want, err := share.Encode(config.Config{}, share.DefaultSource)
	require.NoError(t, err)
	assert.Equal(t, want, ch.Token())
	assert.Equal(t, want, s.State().Token)
}

func TestBridgeEventsDriveCycles(t *testing.T) {
	var calls atomic.Int32
	rec := editor.NewRecorder()
	ch := NewMemoryChannel("")
	s := newStore(t, sourceEngine(&calls, 0), ch, rec)
	require.NoError(t, s.Start(context.Background()))

	rec.Type("y = 2\n")
	assert.Equal(t, "y = 2\n", s.State().Source)
	assert.Equal(t, "C2: y = 2\n", rec.Markers()[0].Message)

	rec.Configure("format", "quote-style", "single")
	v, ok := s.State().Config.Get("format", "quote-style")
	require.True(t, ok)
	assert.Equal(t, "single", v)
	assert.Equal(t, 2, ch.Writes())
}

func TestSetConfigElidesDefaults(t *testing.T) {
	var calls atomic.Int32
	s := newStore(t, sourceEngine(&calls, 0), nil, nil)
	ctx := context.Background()
	require.NoError(t, s.Start(ctx))

	require.NoError(t, s.SetConfig(ctx, config.Config{"lint": {"line-length": "88", "select": "W"}}))
	assert.True(t, config.Config{"lint": {"select": "W"}}.Equal(s.State().Config))
}

func TestObserversReceiveSnapshots(t *testing.T) {
	var calls atomic.Int32
	s := newStore(t, sourceEngine(&calls, 2), nil, nil)
	var seen []State
	stop := s.Observe(func(st State) { seen = append(seen, st) })

	ctx := context.Background()
	require.NoError(t, s.Start(ctx))
	require.NoError(t, s.SetSource(ctx, "a"))
	stop()
	require.NoError(t, s.SetSource(ctx, "b"))

	require.Len(t, seen, 2)
	assert.True(t, seen[0].Ready)
	assert.Nil(t, seen[0].LastError)
	assert.NotNil(t, seen[1].LastError)
	assert.Equal(t, uint64(1), seen[1].Revision)
}

func TestClosedStoreRejectsUpdates(t *testing.T) {
	var calls atomic.Int32
	rec := editor.NewRecorder()
	s := newStore(t, sourceEngine(&calls, 0), nil, rec)
	require.NoError(t, s.Start(context.Background()))
	s.Close()
	assert.Equal(t, 0, rec.LiveRegistrations())
	assert.ErrorIs(t, s.SetSource(context.Background(), "x"), ErrClosed)
}

func TestFileChannel(t *testing.T) {
	ctx := context.Background()
	ch := NewFileChannel(filepath.Join(t.TempDir(), "nested", "session.token"))
	tok, err := ch.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", tok)

	require.NoError(t, ch.Write(ctx, "abc"))
	require.NoError(t, ch.Write(ctx, "def"))
	tok, err = ch.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "def", tok)
}

func TestNewRequiresRunner(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestStartElidesDefaultsFromToken(t *testing.T) {
	token, err := share.Encode(config.Config{"lint": {"line-length": "88", "select": "W291"}}, "x = 1\n")
	require.NoError(t, err)

	var calls atomic.Int32
	s := newStore(t, sourceEngine(&calls, 0), NewMemoryChannel(token), nil)
	require.NoError(t, s.Start(context.Background()))

	st := s.State()
	assert.Equal(t, config.Config{"lint": {"select": "W291"}}, st.Config)
	want, err := share.Encode(config.Config{"lint": {"select": "W291"}}, "x = 1\n")
	require.NoError(t, err)
	assert.Equal(t, want, st.Token)
}

func TestReplaceElidesDefaults(t *testing.T) {
	var calls atomic.Int32
	ch := NewMemoryChannel("")
	s := newStore(t, sourceEngine(&calls, 0), ch, nil)
	ctx := context.Background()
	require.NoError(t, s.Start(ctx))

	require.NoError(t, s.Replace(ctx, config.Config{"format": {"quote-style": "auto"}}, share.DefaultSource))
	st := s.State()
	assert.Equal(t, config.Config{}, st.Config)
	assert.Equal(t, 0, ch.Writes(), "same logical state, same token")
}

// flakyChannel fails the first write.
type flakyChannel struct {
	MemoryChannel
	failed bool
}

func (c *flakyChannel) Write(ctx context.Context, token string) error {
	if !c.failed {
		c.failed = true
		return errors.New("disk full")
	}
	return c.MemoryChannel.Write(ctx, token)
}

func TestFailedTokenWriteIsRetried(t *testing.T) {
	var calls atomic.Int32
	ch := &flakyChannel{}
	s := newStore(t, sourceEngine(&calls, 0), ch, nil)
	ctx := context.Background()
	require.NoError(t, s.Start(ctx))
	initial := s.State().Token

	require.NoError(t, s.SetSource(ctx, "a\n"))
	assert.Equal(t, 0, ch.Writes())
	assert.Equal(t, initial, s.State().Token)

	require.NoError(t, s.SetSource(ctx, "a\n"))
	assert.Equal(t, 1, ch.Writes())
	_, src, err := share.Decode(ch.Token())
	require.NoError(t, err)
	assert.Equal(t, "a\n", src)
	assert.Equal(t, ch.Token(), s.State().Token)
}
