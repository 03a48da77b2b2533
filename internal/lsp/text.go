package lsp

import "unicode/utf8"

// applyChanges folds content changes into text. A change without a range
// replaces the whole document.
func applyChanges(text string, changes []textDocumentContentChangeEvent) string {
	for _, change := range changes {
		if change.Range == nil {
			text = change.Text
			continue
		}
		start := byteOffset(text, change.Range.Start)
		end := max(byteOffset(text, change.Range.End), start)
		text = text[:start] + change.Text + text[end:]
	}
	return text
}

// byteOffset maps a 0-based line and UTF-16 character to a byte offset.
// Positions past a line's end clamp to the end of that line; lines past the
// end of text clamp to len(text). A character in the middle of a surrogate
// pair lands before the pair.
func byteOffset(text string, pos position) int {
	if pos.Line < 0 || pos.Character < 0 {
		return 0
	}
	i := 0
	for line := 0; line < pos.Line; line++ {
		for i < len(text) && text[i] != '\n' {
			i++
		}
		if i >= len(text) {
			return len(text)
		}
		i++
	}
	units := 0
	for i < len(text) && text[i] != '\n' {
		r, size := utf8.DecodeRuneInString(text[i:])
		need := 1
		if r > 0xFFFF {
			need = 2
		}
		if units+need > pos.Character {
			break
		}
		units += need
		i += size
	}
	return i
}
