package fix

import (
	"lintpad/internal/diag"
	"lintpad/internal/editor"
	"lintpad/internal/projection"
)

// Collect returns the fix actions of every row that has one, row by row in
// first-seen order, the same actions an editor would be offered line by line.
func Collect(diags []diag.Diagnostic) []editor.FixAction {
	seen := make(map[int]bool)
	out := make([]editor.FixAction, 0)
	for _, d := range diags {
		row := d.Location.Row
		if !d.HasFix() || seen[row] {
			continue
		}
		seen[row] = true
		out = append(out, projection.FixesAt(diags, row)...)
	}
	return out
}

// FromProvider gathers actions for lines 1..lines from a live provider.
func FromProvider(p editor.FixProvider, lines int) []editor.FixAction {
	if p == nil {
		return nil
	}
	out := make([]editor.FixAction, 0)
	for line := 1; line <= lines; line++ {
		out = append(out, p.FixesAt(line)...)
	}
	return out
}
