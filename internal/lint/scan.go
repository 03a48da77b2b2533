package lint

import (
	"strings"
	"unicode/utf8"
)

// line is one source line without its terminator.
type line struct {
	row  int
	text string
	// inString is set when the line starts inside a triple-quoted string.
	inString bool
	// depth is the bracket nesting at the start of the line.
	depth int
	// continued is set when the previous line ended with a backslash.
	continued bool
}

// literal is a string literal confined to one line or opening a
// triple-quoted block. Offsets are bytes into the line text.
type literal struct {
	row        int
	start, end int
	quote      byte
	triple     bool
	body       string
}

// splitLines breaks src on '\n', dropping a trailing '\r' from each line.
// A final empty segment after the last newline is not a line.
func splitLines(src string) []string {
	if src == "" {
		return nil
	}
	parts := strings.Split(src, "\n")
	if parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	for i, p := range parts {
		parts[i] = strings.TrimSuffix(p, "\r")
	}
	return parts
}

// scan tokenizes just enough to find string literals, comments and bracket
// depth. It never fails; unterminated literals are dropped.
func scan(texts []string) ([]line, []literal) {
	lines := make([]line, 0, len(texts))
	var lits []literal
	var inTriple byte
	depth := 0
	cont := false

	for idx, text := range texts {
		row := idx + 1
		lines = append(lines, line{row: row, text: text, inString: inTriple != 0, depth: depth, continued: cont})
		cont = false

		i := 0
		if inTriple != 0 {
			end := tripleEnd(text, 0, inTriple)
			if end < 0 {
				continue
			}
			i = end
			inTriple = 0
		}
		for i < len(text) {
			c := text[i]
			switch {
			case c == '#':
				i = len(text)
			case c == '\'' || c == '"':
				delim := strings.Repeat(string(c), 3)
				if strings.HasPrefix(text[i:], delim) {
					end := tripleEnd(text, i+3, c)
					if end < 0 {
						// the opener alone still counts for quote detection
						lits = append(lits, literal{row: row, start: i, end: len(text), quote: c, triple: true, body: text[i+3:]})
						inTriple = c
						i = len(text)
						continue
					}
					lits = append(lits, literal{row: row, start: i, end: end, quote: c, triple: true, body: text[i+3 : end-3]})
					i = end
					continue
				}
				j := i + 1
				closed := false
				for j < len(text) {
					if text[j] == '\\' {
						j += 2
						continue
					}
					if text[j] == c {
						closed = true
						break
					}
					j++
				}
				if !closed {
					i = len(text)
					continue
				}
				lits = append(lits, literal{row: row, start: i, end: j + 1, quote: c, body: text[i+1 : j]})
				i = j + 1
			case c == '(' || c == '[' || c == '{':
				depth++
				i++
			case c == ')' || c == ']' || c == '}':
				if depth > 0 {
					depth--
				}
				i++
			default:
				i++
			}
		}
		if inTriple == 0 && strings.HasSuffix(text, "\\") {
			cont = true
		}
	}
	return lines, lits
}

// tripleEnd returns the offset just past the closing triple quote, or -1.
func tripleEnd(text string, from int, quote byte) int {
	delim := strings.Repeat(string(quote), 3)
	for k := from; k < len(text); {
		if text[k] == '\\' {
			k += 2
			continue
		}
		if strings.HasPrefix(text[k:], delim) {
			return k + 3
		}
		k++
	}
	return -1
}

// column converts a byte offset into a code point column.
func column(text string, off int) int {
	if off > len(text) {
		off = len(text)
	}
	return utf8.RuneCountInString(text[:off])
}

func leadingWhitespace(text string) string {
	n := len(text) - len(strings.TrimLeft(text, " \t"))
	return text[:n]
}

func isBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}
