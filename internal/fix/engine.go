package fix

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"lintpad/internal/editor"
)

// ErrNoFixes is returned when no fixes were applied.
var ErrNoFixes = errors.New("no applicable fixes found")

// ApplyMode determines selection strategy for fixes.
type ApplyMode uint8

const (
	ApplyModeOnce ApplyMode = iota
	ApplyModeAll
	ApplyModeID
)

func (m ApplyMode) String() string {
	switch m {
	case ApplyModeAll:
		return "all"
	case ApplyModeID:
		return "id"
	default:
		return "once"
	}
}

// ApplyOptions configures how fixes are selected.
type ApplyOptions struct {
	Mode     ApplyMode
	TargetID string
}

// AppliedFix records a successfully applied fix.
type AppliedFix struct {
	ID    string
	Title string
	Code  string
	Line  int
}

// SkippedFix captures a skipped fix with a reason.
type SkippedFix struct {
	ID     string
	Title  string
	Line   int
	Reason string
}

// ApplyResult aggregates applied fixes, skipped ones, and the rewritten text.
type ApplyResult struct {
	Applied []AppliedFix
	Skipped []SkippedFix
	Output  string
}

// Changed reports whether the output differs from the input text.
func (r *ApplyResult) Changed(input string) bool {
	return r != nil && r.Output != input
}

type candidate struct {
	action     editor.FixAction
	start, end int
	order      int
}

// Apply selects fixes from actions according to opts and applies them to
// source. Positions are 1-based lines and 1-based code point columns.
func Apply(source string, actions []editor.FixAction, opts ApplyOptions) (*ApplyResult, error) {
	result := &ApplyResult{
		Applied: make([]AppliedFix, 0),
		Skipped: make([]SkippedFix, 0),
		Output:  source,
	}

	idx := newLineIndex(source)
	candidates, buildSkips := gatherCandidates(idx, actions)
	result.Skipped = append(result.Skipped, buildSkips...)
	if len(candidates) == 0 {
		return result, ErrNoFixes
	}

	sortCandidates(candidates)

	selected, selectionSkips := selectCandidates(candidates, opts)
	result.Skipped = append(result.Skipped, selectionSkips...)
	if len(selected) == 0 {
		return result, ErrNoFixes
	}

	accepted := make([]candidate, 0, len(selected))
	for _, cand := range selected {
		if conflictsWithExisting(accepted, cand) {
			result.Skipped = append(result.Skipped, skipOf(cand.action, "conflicts with previously applied edit"))
			continue
		}
		accepted = append(accepted, cand)
		result.Applied = append(result.Applied, AppliedFix{
			ID:    cand.action.ID,
			Title: cand.action.Title,
			Code:  cand.action.Code,
			Line:  cand.action.Edit.Range.StartLine,
		})
	}
	if len(accepted) == 0 {
		return result, ErrNoFixes
	}
	result.Output = rewrite(source, accepted)
	return result, nil
}

// gatherCandidates resolves every action to byte offsets. Actions whose
// range falls outside the text, or that repeat an earlier action exactly,
// are reported as skipped.
func gatherCandidates(idx lineIndex, actions []editor.FixAction) ([]candidate, []SkippedFix) {
	cands := make([]candidate, 0, len(actions))
	skips := make([]SkippedFix, 0)
	seen := make(map[editor.FixAction]bool, len(actions))

	for i, a := range actions {
		if seen[a] {
			skips = append(skips, skipOf(a, "duplicate fix"))
			continue
		}
		seen[a] = true
		r := a.Edit.Range
		start, ok1 := idx.offset(r.StartLine, r.StartColumn)
		end, ok2 := idx.offset(r.EndLine, r.EndColumn)
		if !ok1 || !ok2 || end < start {
			skips = append(skips, skipOf(a, "edit range out of bounds"))
			continue
		}
		cands = append(cands, candidate{action: a, start: start, end: end, order: i})
	}
	return cands, skips
}

// sortCandidates orders by span start, span end, then insertion order.
func sortCandidates(candidates []candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		ci, cj := candidates[i], candidates[j]
		if ci.start != cj.start {
			return ci.start < cj.start
		}
		if ci.end != cj.end {
			return ci.end < cj.end
		}
		return ci.order < cj.order
	})
}

func selectCandidates(candidates []candidate, opts ApplyOptions) ([]candidate, []SkippedFix) {
	switch opts.Mode {
	case ApplyModeID:
		for _, cand := range candidates {
			if cand.action.ID == opts.TargetID {
				return []candidate{cand}, nil
			}
		}
		return nil, []SkippedFix{{
			ID:     opts.TargetID,
			Reason: "fix id not found",
		}}
	case ApplyModeAll:
		return candidates, nil
	case ApplyModeOnce:
		return candidates[:1], nil
	default:
		return nil, nil
	}
}

func conflictsWithExisting(existing []candidate, cand candidate) bool {
	for _, prev := range existing {
		if spansConflict(prev.start, prev.end, cand.start, cand.end) {
			return true
		}
	}
	return false
}

// spansConflict reports whether two half-open spans overlap. Two insertions
// never conflict; an insertion conflicts with a span strictly containing
// its position.
func spansConflict(aStart, aEnd, bStart, bEnd int) bool {
	if aStart == aEnd && bStart == bEnd {
		return false
	}
	if aStart == aEnd {
		return bStart < aStart && aStart < bEnd
	}
	if bStart == bEnd {
		return aStart < bStart && bStart < aEnd
	}
	return aStart < bEnd && bStart < aEnd
}

// rewrite applies sorted, non-overlapping candidates in one forward pass.
func rewrite(source string, accepted []candidate) string {
	var b strings.Builder
	b.Grow(len(source))
	prev := 0
	for _, c := range accepted {
		b.WriteString(source[prev:c.start])
		b.WriteString(c.action.Edit.Text)
		prev = c.end
	}
	b.WriteString(source[prev:])
	return b.String()
}

func skipOf(a editor.FixAction, reason string) SkippedFix {
	return SkippedFix{
		ID:     a.ID,
		Title:  a.Title,
		Line:   a.Edit.Range.StartLine,
		Reason: reason,
	}
}

// lineIndex maps editor positions to byte offsets.
type lineIndex struct {
	text   string
	starts []int
}

func newLineIndex(text string) lineIndex {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return lineIndex{text: text, starts: starts}
}

// offset converts a 1-based line and 1-based code point column. The column
// may point one past the last character of the line, before its newline.
func (idx lineIndex) offset(line, col int) (int, bool) {
	if line < 1 || line > len(idx.starts) || col < 1 {
		return 0, false
	}
	start := idx.starts[line-1]
	end := len(idx.text)
	if line < len(idx.starts) {
		end = idx.starts[line] - 1
	}
	off := start
	for n := 1; n < col; n++ {
		if off >= end {
			return 0, false
		}
		_, size := utf8.DecodeRuneInString(idx.text[off:end])
		off += size
	}
	return off, true
}

func (r SkippedFix) String() string {
	if r.ID == "" {
		return r.Reason
	}
	return fmt.Sprintf("%s (line %d): %s", r.ID, r.Line, r.Reason)
}
