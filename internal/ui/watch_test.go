package ui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lintpad/internal/analysis"
	"lintpad/internal/diag"
	"lintpad/internal/editor"
	"lintpad/internal/session"
)

type stubFixer struct {
	fixes   map[int][]editor.FixAction
	applied []int
	err     error
}

func (f *stubFixer) FixesAt(row int) []editor.FixAction { return f.fixes[row] }

func (f *stubFixer) ApplyFirstFix(row int) (editor.FixAction, error) {
	f.applied = append(f.applied, row)
	if f.err != nil {
		return editor.FixAction{}, f.err
	}
	return f.fixes[row][0], nil
}

func readyState(diags ...diag.Diagnostic) session.State {
	return session.State{Ready: true, Revision: 1, Diagnostics: diags}
}

func twoMarkers() session.State {
	return readyState(
		diag.New("W291", diag.At(1, 5), diag.At(1, 7), "Trailing whitespace"),
		diag.New("E501", diag.At(3, 4), diag.At(3, 90), "Line too long (90 > 4)"),
	)
}

func newModel(f Fixer) *watchModel {
	return NewWatchModel("demo.py", make(chan Event), f).(*watchModel)
}

func key(s string) tea.KeyMsg {
	switch s {
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestViewListsMarkers(t *testing.T) {
	m := newModel(nil)
	m.Update(eventMsg{State: twoMarkers()})

	view := m.View()
	assert.Contains(t, view, "2 markers demo.py")
	assert.Contains(t, view, "> ")
	assert.Contains(t, view, "W291: Trailing whitespace")
	assert.Contains(t, view, "E501: Line too long (90 > 4)")
}

func TestCleanAndErrorStates(t *testing.T) {
	m := newModel(nil)
	m.Update(eventMsg{State: readyState()})
	assert.Contains(t, m.View(), "clean")

	m.Update(eventMsg{State: twoMarkers()})
	failed := twoMarkers()
	failed.Diagnostics = nil
	failed.LastError = &analysis.AnalysisError{Message: "engine exploded"}
	m.Update(eventMsg{State: failed})

	view := m.View()
	assert.Contains(t, view, "engine exploded")
	assert.Contains(t, view, "W291", "markers from the last good run stay")
}

func TestAnalyzingShowsSpinner(t *testing.T) {
	m := newModel(nil)
	m.Update(eventMsg{State: readyState()})
	m.Update(eventMsg{Analyzing: true})
	assert.True(t, m.analyzing)
	assert.NotContains(t, m.View(), "clean")
}

func TestCursorMovesAndClamps(t *testing.T) {
	m := newModel(nil)
	m.Update(eventMsg{State: twoMarkers()})

	m.Update(key("up"))
	assert.Equal(t, 0, m.cursor)
	m.Update(key("down"))
	m.Update(key("down"))
	assert.Equal(t, 1, m.cursor)

	m.Update(eventMsg{State: readyState(diag.New("W291", diag.At(1, 5), diag.At(1, 7), "Trailing whitespace"))})
	assert.Equal(t, 0, m.cursor)
}

func TestFixDescriptionIsShown(t *testing.T) {
	action := editor.FixAction{ID: "fix-W291", Title: "Fix W291", Code: "W291", Description: "Remove trailing whitespace"}
	m := newModel(&stubFixer{fixes: map[int][]editor.FixAction{1: {action}}})
	m.Update(eventMsg{State: twoMarkers()})
	assert.Contains(t, m.View(), "Remove trailing whitespace")
}

func TestApplyFix(t *testing.T) {
	action := editor.FixAction{ID: "fix-W291", Title: "Fix W291", Code: "W291"}
	f := &stubFixer{fixes: map[int][]editor.FixAction{1: {action}}}
	m := newModel(f)
	m.Update(eventMsg{State: twoMarkers()})
	assert.Contains(t, m.View(), "Fix W291 (a)")

	_, cmd := m.Update(key("a"))
	require.NotNil(t, cmd)
	msg := cmd()
	assert.Equal(t, []int{1}, f.applied)

	m.Update(msg)
	assert.Contains(t, m.View(), "applied Fix W291")

	// no fixes are offered on row 3
	m.Update(key("down"))
	f.err = errors.New("nothing to fix")
	_, cmd = m.Update(key("a"))
	m.Update(cmd())
	assert.Contains(t, m.View(), "fix failed: nothing to fix")
}

func TestQuitAndChannelClose(t *testing.T) {
	m := newModel(nil)
	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	events := make(chan Event)
	close(events)
	m2 := NewWatchModel("x.py", events, nil).(*watchModel)
	assert.IsType(t, doneMsg{}, m2.listenForEvent()())
}
