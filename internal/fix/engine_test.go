package fix

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lintpad/internal/diag"
	"lintpad/internal/editor"
	"lintpad/internal/lint"
)

func action(code string, line, startCol, endCol int, text string) editor.FixAction {
	return editor.FixAction{
		ID:    "fix-" + code,
		Title: "Fix " + code,
		Code:  code,
		Edit: editor.TextEdit{
			Range: editor.Range{StartLine: line, StartColumn: startCol, EndLine: line, EndColumn: endCol},
			Text:  text,
		},
	}
}

func TestApplyOnceTakesFirstByPosition(t *testing.T) {
	src := "a = 1  \nb = 'x'\n"
	actions := []editor.FixAction{
		action("Q000", 2, 5, 8, `"x"`),
		action("W291", 1, 6, 8, ""),
	}
	res, err := Apply(src, actions, ApplyOptions{Mode: ApplyModeOnce})
	require.NoError(t, err)
	require.Len(t, res.Applied, 1)
	assert.Equal(t, "fix-W291", res.Applied[0].ID)
	assert.Equal(t, "a = 1\nb = 'x'\n", res.Output)
	assert.True(t, res.Changed(src))
}

func TestApplyAllRewritesEveryFix(t *testing.T) {
	src := "a = 1  \nb = 'x'\n"
	actions := []editor.FixAction{
		action("Q000", 2, 5, 8, `"x"`),
		action("W291", 1, 6, 8, ""),
	}
	res, err := Apply(src, actions, ApplyOptions{Mode: ApplyModeAll})
	require.NoError(t, err)
	assert.Len(t, res.Applied, 2)
	assert.Equal(t, "a = 1\nb = \"x\"\n", res.Output)
}

func TestApplyByID(t *testing.T) {
	src := "x\ny"
	actions := []editor.FixAction{
		action("W291", 1, 2, 2, "!"),
		action("W292", 2, 2, 2, "\n"),
	}
	res, err := Apply(src, actions, ApplyOptions{Mode: ApplyModeID, TargetID: "fix-W292"})
	require.NoError(t, err)
	assert.Equal(t, "x\ny\n", res.Output)

	res, err = Apply(src, actions, ApplyOptions{Mode: ApplyModeID, TargetID: "fix-E999"})
	assert.ErrorIs(t, err, ErrNoFixes)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "fix id not found", res.Skipped[0].Reason)
	assert.Equal(t, src, res.Output)
}

func TestApplySkipsOverlapsAndDuplicates(t *testing.T) {
	src := "s = 'abc'\n"
	q := action("Q000", 1, 5, 10, `"abc"`)
	actions := []editor.FixAction{
		q,
		q,
		action("U001", 1, 5, 10, "'abc'"),
	}
	res, err := Apply(src, actions, ApplyOptions{Mode: ApplyModeAll})
	require.NoError(t, err)
	require.Len(t, res.Applied, 1)
	assert.Equal(t, "fix-Q000", res.Applied[0].ID)
	require.Len(t, res.Skipped, 2)
	assert.Equal(t, "duplicate fix", res.Skipped[0].Reason)
	assert.Equal(t, "conflicts with previously applied edit", res.Skipped[1].Reason)
	assert.Equal(t, "s = \"abc\"\n", res.Output)
}

func TestApplyHandlesMultibyteColumns(t *testing.T) {
	src := "é = 'ü'  \n"
	res, err := Apply(src, []editor.FixAction{action("W291", 1, 8, 10, "")}, ApplyOptions{Mode: ApplyModeAll})
	require.NoError(t, err)
	assert.Equal(t, "é = 'ü'\n", res.Output)
}

func TestApplyRejectsOutOfRange(t *testing.T) {
	res, err := Apply("ab\n", []editor.FixAction{
		action("X", 1, 1, 9, ""),
		action("Y", 5, 1, 1, ""),
		action("Z", 1, 3, 2, ""),
	}, ApplyOptions{Mode: ApplyModeAll})
	assert.ErrorIs(t, err, ErrNoFixes)
	assert.Len(t, res.Skipped, 3)
}

func TestApplyNoActions(t *testing.T) {
	res, err := Apply("x", nil, ApplyOptions{})
	assert.ErrorIs(t, err, ErrNoFixes)
	assert.False(t, res.Changed("x"))
}

func TestSpansConflict(t *testing.T) {
	assert.False(t, spansConflict(2, 2, 2, 2))
	assert.False(t, spansConflict(0, 2, 2, 4))
	assert.True(t, spansConflict(0, 3, 2, 4))
	assert.True(t, spansConflict(3, 3, 2, 4))
	assert.False(t, spansConflict(2, 2, 2, 4))
}

func TestCollectAndApplyLintFixes(t *testing.T) {
	src := "if x:\n\ty = 'a'  \nz = \"b\""
	diags, err := lint.New().Check(context.Background(), src, nil)
	require.NoError(t, err)

	actions := Collect(diags)
	require.NotEmpty(t, actions)
	res, err := Apply(src, actions, ApplyOptions{Mode: ApplyModeAll})
	require.NoError(t, err)
	assert.Equal(t, "if x:\n    y = 'a'\nz = 'b'\n", res.Output)

	again, err := lint.New().Check(context.Background(), res.Output, nil)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestFromProvider(t *testing.T) {
	diags := []diag.Diagnostic{
		diag.New("W291", diag.At(2, 1), diag.At(2, 3), "ws").WithFix("", diag.At(2, 1), diag.At(2, 3)),
	}
	p := editor.FixProviderFunc(func(line int) []editor.FixAction {
		if line == 2 {
			return Collect(diags)
		}
		return nil
	})
	got := FromProvider(p, 3)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Edit.Range.StartLine)
	assert.Nil(t, FromProvider(nil, 3))
}
