package lsp

import (
	"strings"
	"unicode/utf8"

	"fortio.org/safecast"

	"lintpad/internal/editor"
)

const maxUint32 = ^uint32(0)

// lspInt clamps n into the uint32 range LSP positions are defined over.
func lspInt(n int) int {
	if n < 0 {
		return 0
	}
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		return int(maxUint32)
	}
	return int(v)
}

// lineText returns the 0-based line of text without its terminator.
func lineText(text string, line int) string {
	for i := 0; i < line; i++ {
		nl := strings.IndexByte(text, '\n')
		if nl < 0 {
			return ""
		}
		text = text[nl+1:]
	}
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[:nl]
	}
	return strings.TrimSuffix(text, "\r")
}

// utf16Column counts the UTF-16 units of the first cp code points of line.
// Columns past the end of the line land on the end.
func utf16Column(line string, cp int) int {
	units := 0
	for i := 0; i < cp && line != ""; i++ {
		r, size := utf8.DecodeRuneInString(line)
		line = line[size:]
		if r > 0xFFFF {
			units += 2
		} else {
			units++
		}
	}
	return units
}

// toPosition converts a 1-based editor line and code point column.
func toPosition(text string, line, column int) position {
	l := max(line-1, 0)
	c := max(column-1, 0)
	return position{
		Line:      lspInt(l),
		Character: lspInt(utf16Column(lineText(text, l), c)),
	}
}

func toLSPRange(text string, r editor.Range) lspRange {
	return lspRange{
		Start: toPosition(text, r.StartLine, r.StartColumn),
		End:   toPosition(text, r.EndLine, r.EndColumn),
	}
}

func lspSeverity(s editor.Severity) int {
	switch s {
	case editor.SeverityWarning:
		return 2
	case editor.SeverityInfo:
		return 3
	case editor.SeverityHint:
		return 4
	default:
		return 1
	}
}

// wholeDocument spans every character of text.
func wholeDocument(text string) lspRange {
	lines := strings.Count(text, "\n")
	last := lineText(text, lines)
	return lspRange{
		End: position{Line: lspInt(lines), Character: lspInt(utf16Column(last, utf8.RuneCountInString(last)))},
	}
}
