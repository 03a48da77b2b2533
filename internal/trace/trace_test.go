package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFiltersScopes(t *testing.T) {
	assert.True(t, LevelPhase.ShouldEmit(ScopeSession))
	assert.True(t, LevelPhase.ShouldEmit(ScopeAnalysis))
	assert.False(t, LevelPhase.ShouldEmit(ScopeProjection))
	assert.True(t, LevelDetail.ShouldEmit(ScopeProjection))
	assert.False(t, LevelDetail.ShouldEmit(ScopeBridge))
	assert.True(t, LevelDebug.ShouldEmit(ScopeBridge))
	assert.False(t, LevelError.ShouldEmit(ScopeSession))
}

func TestStreamTracerText(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelPhase, FormatText)

	span := Begin(tr, ScopeAnalysis, "analyze", 0)
	span.WithExtra("diags", "3").End("ok")
	Begin(tr, ScopeBridge, "didChange", 0).End("")

	out := buf.String()
	assert.Contains(t, out, "→ analysis:analyze")
	assert.Contains(t, out, "← analysis:analyze (ok) {diags=3}")
	assert.NotContains(t, out, "didChange")
}

func TestErrorPointsPassAtErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelError, FormatNDJSON)

	Point(tr, ScopeSession, "decode-token", "fallback", "error", "missing delimiter")
	Point(tr, ScopeSession, "publish-token", "")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var ev map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &ev))
	assert.Equal(t, "decode-token", ev["name"])
	assert.Equal(t, "point", ev["kind"])
}

func TestRingTracerKeepsLastEvents(t *testing.T) {
	ring := NewRingTracer(2, LevelDebug)
	for _, name := range []string{"a", "b", "c"} {
		Point(ring, ScopeBridge, name, "")
	}
	events := ring.Snapshot()
	require.Len(t, events, 2)
	assert.Equal(t, "b", events[0].Name)
	assert.Equal(t, "c", events[1].Name)

	var buf bytes.Buffer
	require.NoError(t, ring.Dump(&buf, FormatText))
	assert.Contains(t, buf.String(), "bridge:c")
}

func TestRingModeWritesOnClose(t *testing.T) {
	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelPhase, Mode: ModeRing, Output: &buf, RingSize: 2})
	require.NoError(t, err)

	for _, name := range []string{"restore", "analyze", "publish-token"} {
		Point(tr, ScopeSession, name, "")
	}
	assert.Zero(t, buf.Len())

	require.NoError(t, tr.Close())
	out := buf.String()
	assert.NotContains(t, out, "session:restore")
	assert.Contains(t, out, "session:analyze")
	assert.Contains(t, out, "session:publish-token")

	require.NoError(t, tr.Close())
	assert.Equal(t, out, buf.String())
}

func TestBothModeToStderrIsPlainStream(t *testing.T) {
	tr, err := New(Config{Level: LevelPhase, Mode: ModeBoth, OutputPath: "-"})
	require.NoError(t, err)
	_, ok := tr.(*StreamTracer)
	assert.True(t, ok)
}

func TestChromeFormatIsOneJSONDocument(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelPhase, FormatChrome)
	Begin(tr, ScopeAnalysis, "analyze", 0).WithExtra("diagnostics", "2").End("")
	Point(tr, ScopeSession, "publish-token", "saved")
	require.NoError(t, tr.Close())

	var doc struct {
		TraceEvents []struct {
			Name  string            `json:"name"`
			Phase string            `json:"ph"`
			Cat   string            `json:"cat"`
			Args  map[string]string `json:"args"`
		} `json:"traceEvents"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc.TraceEvents, 3)
	assert.Equal(t, "B", doc.TraceEvents[0].Phase)
	assert.Equal(t, "E", doc.TraceEvents[1].Phase)
	assert.Equal(t, "2", doc.TraceEvents[1].Args["diagnostics"])
	assert.Equal(t, "i", doc.TraceEvents[2].Phase)
	assert.Equal(t, "session", doc.TraceEvents[2].Cat)
	assert.Equal(t, "saved", doc.TraceEvents[2].Args["detail"])
}

func TestRingDumpInChromeFormat(t *testing.T) {
	ring := NewRingTracer(4, LevelPhase)
	Point(ring, ScopeSession, "restore", "")
	var buf bytes.Buffer
	require.NoError(t, ring.Dump(&buf, FormatChrome))
	assert.True(t, json.Valid(buf.Bytes()), buf.String())
}

type failingCloser struct{ bytes.Buffer }

func (*failingCloser) Close() error { return errors.New("disk full") }

func TestMultiTracerClosesAll(t *testing.T) {
	var good bytes.Buffer
	bad := &failingCloser{}
	multi := NewMultiTracer(LevelPhase,
		NewStreamTracer(bad, LevelPhase, FormatText),
		NewStreamTracer(&good, LevelPhase, FormatText))
	Point(multi, ScopeSession, "start", "")

	err := multi.Close()
	assert.EqualError(t, err, "disk full")
	assert.Contains(t, good.String(), "session:start")
	assert.Contains(t, bad.String(), "session:start")
}

func TestFromContext(t *testing.T) {
	assert.Equal(t, Nop, FromContext(context.Background()))
	ring := NewRingTracer(1, LevelDebug)
	assert.Same(t, ring, FromContext(WithTracer(context.Background(), ring)))
	assert.Equal(t, Nop, FromContext(WithTracer(context.Background(), nil)))
}

func TestNewOffReturnsNop(t *testing.T) {
	tr, err := New(Config{Level: LevelOff})
	require.NoError(t, err)
	assert.False(t, tr.Enabled())
	span := Begin(tr, ScopeSession, "start", 0)
	assert.Equal(t, uint64(0), span.ID())
}

func TestParseHelpers(t *testing.T) {
	lvl, err := ParseLevel("DETAIL")
	require.NoError(t, err)
	assert.Equal(t, LevelDetail, lvl)
	_, err = ParseLevel("loud")
	assert.Error(t, err)

	mode, err := ParseMode("both")
	require.NoError(t, err)
	assert.Equal(t, ModeBoth, mode)

	format, err := ParseFormat("ndjson")
	require.NoError(t, err)
	assert.Equal(t, FormatNDJSON, format)
	_, err = ParseFormat("xml")
	assert.Error(t, err)

	assert.Equal(t, FormatChrome, formatFor("run.json"))
	assert.Equal(t, FormatNDJSON, formatFor("run.jsonl"))
	assert.Equal(t, FormatText, formatFor("-"))
}
