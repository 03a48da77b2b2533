package diagfmt

import (
	"strings"

	"lintpad/internal/editor"
	"lintpad/internal/fix"
)

// previewLines returns the lines touched by a before and after applying it.
func previewLines(source string, a editor.FixAction) (before, after []string, ok bool) {
	res, err := fix.Apply(source, []editor.FixAction{a}, fix.ApplyOptions{Mode: fix.ApplyModeOnce})
	if err != nil {
		return nil, nil, false
	}
	r := a.Edit.Range
	oldLines := strings.Split(source, "\n")
	newLines := strings.Split(res.Output, "\n")
	first := r.StartLine - 1
	lastOld := r.EndLine - 1
	lastNew := lastOld + strings.Count(a.Edit.Text, "\n") - (r.EndLine - r.StartLine)
	if first < 0 || lastOld >= len(oldLines) || lastNew >= len(newLines) || lastNew < first {
		return nil, nil, false
	}
	return trimCR(oldLines[first : lastOld+1]), trimCR(newLines[first : lastNew+1]), true
}

func trimCR(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = strings.TrimSuffix(l, "\r")
	}
	return out
}
