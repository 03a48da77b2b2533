package diagfmt

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"lintpad/internal/editor"
)

type palette struct {
	path, severity, caret, lineNo, fix, removed, added *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		path:     color.New(color.Bold),
		severity: color.New(color.FgRed, color.Bold),
		caret:    color.New(color.FgRed),
		lineNo:   color.New(color.FgBlue),
		fix:      color.New(color.FgCyan),
		removed:  color.New(color.FgRed),
		added:    color.New(color.FgGreen),
	}
	for _, c := range []*color.Color{p.path, p.severity, p.caret, p.lineNo, p.fix, p.removed, p.added} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// Pretty writes markers in human-readable form:
//
//	<path>:<line>:<col>: <severity>: <code>: <message>
//
// followed by the source line with a caret underline, and the fixes offered
// on that line when opts.Fixes is set.
func Pretty(w io.Writer, path, source string, markers []editor.Marker, opts PrettyOpts) {
	p := newPalette(opts.Color)
	lines := strings.Split(source, "\n")
	shown := formatPath(path, opts.PathMode, opts.BaseDir)
	gutter := len(strconv.Itoa(min(lastLine(markers)+opts.Context, len(lines))))

	fixesShown := make(map[int]bool)
	for _, m := range markers {
		fmt.Fprintf(w, "%s:%d:%d: %s: %s\n",
			p.path.Sprint(shown), m.StartLine, m.StartColumn,
			p.severity.Sprint(m.Severity.String()), m.Message)

		first := max(m.StartLine-opts.Context, 1)
		last := min(m.StartLine+opts.Context, len(lines))
		for ln := first; ln <= last; ln++ {
			text := strings.TrimSuffix(lines[ln-1], "\r")
			fmt.Fprintf(w, " %s | %s\n", p.lineNo.Sprint(pad(strconv.Itoa(ln), gutter)), expandTabs(text))
			if ln == m.StartLine {
				fmt.Fprintf(w, " %s | %s\n", strings.Repeat(" ", gutter), p.caret.Sprint(underline(text, m)))
			}
		}

		if opts.Fixes == nil || fixesShown[m.StartLine] {
			continue
		}
		fixesShown[m.StartLine] = true
		for _, a := range opts.Fixes.FixesAt(m.StartLine) {
			if a.Code != m.Code {
				continue
			}
			if a.Description != "" {
				fmt.Fprintf(w, "   %s %s [%s]: %s\n", p.fix.Sprint("fix:"), a.Title, a.ID, a.Description)
			} else {
				fmt.Fprintf(w, "   %s %s [%s]\n", p.fix.Sprint("fix:"), a.Title, a.ID)
			}
			if opts.ShowPreview {
				if before, after, ok := previewLines(source, a); ok {
					for _, l := range before {
						fmt.Fprintf(w, "     %s\n", p.removed.Sprint("- "+visible(l)))
					}
					for _, l := range after {
						fmt.Fprintf(w, "     %s\n", p.added.Sprint("+ "+visible(l)))
					}
				}
			}
		}
	}
}

// underline builds the caret line for m under text, aligned by display
// width. Zero-width and end-of-line ranges get a single caret.
func underline(text string, m editor.Marker) string {
	runes := []rune(expandTabs(text))
	startCol := m.StartColumn - 1 + tabShift(text, m.StartColumn-1)
	endCol := len(runes)
	if m.EndLine == m.StartLine {
		endCol = m.EndColumn - 1 + tabShift(text, m.EndColumn-1)
	}
	startCol = min(max(startCol, 0), len(runes))
	endCol = min(max(endCol, startCol), len(runes))

	lead := runewidth.StringWidth(string(runes[:startCol]))
	width := runewidth.StringWidth(string(runes[startCol:endCol]))
	if width <= 0 {
		return strings.Repeat(" ", lead) + "^"
	}
	return strings.Repeat(" ", lead) + "^" + strings.Repeat("~", width-1)
}

const tabWidth = 4

func expandTabs(text string) string {
	return strings.ReplaceAll(text, "\t", strings.Repeat(" ", tabWidth))
}

// tabShift counts extra runes introduced by expanding tabs before col.
func tabShift(text string, col int) int {
	shift := 0
	for i, r := range []rune(text) {
		if i >= col {
			break
		}
		if r == '\t' {
			shift += tabWidth - 1
		}
	}
	return shift
}

func visible(s string) string {
	if s == "" {
		return "⏎"
	}
	return strings.ReplaceAll(strings.ReplaceAll(s, "\t", "→"), " ", "·")
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}

func lastLine(markers []editor.Marker) int {
	n := 1
	for _, m := range markers {
		n = max(n, m.StartLine)
	}
	return n
}
