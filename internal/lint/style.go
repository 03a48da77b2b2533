package lint

import "strings"

const defaultIndent = "    "

// detectQuote returns the quote of the first string literal, triple-quoted
// ones included, or double quotes when the source has none.
func detectQuote(lits []literal) QuoteStyle {
	if len(lits) > 0 && lits[0].quote == '\'' {
		return QuoteSingle
	}
	return QuoteDouble
}

// detectIndent returns the leading whitespace of the first line that opens
// a block, falling back to the first indented line and then four spaces.
func detectIndent(lines []line) string {
	var fallback string
	prevOpensBlock := false
	for _, ln := range lines {
		if ln.inString || isBlank(ln.text) {
			continue
		}
		indent := leadingWhitespace(ln.text)
		if indent != "" && ln.depth == 0 && !ln.continued {
			if prevOpensBlock {
				return indent
			}
			if fallback == "" {
				fallback = indent
			}
		}
		prevOpensBlock = strings.HasSuffix(stripComment(ln.text), ":")
	}
	if fallback != "" {
		return fallback
	}
	return defaultIndent
}

// indentWidth is the number of columns one indentation level spans.
func indentWidth(indent string) int {
	if strings.ContainsRune(indent, '\t') || indent == "" {
		return len(defaultIndent)
	}
	return len(indent)
}

// expandTabs replaces tabs in indent with spaces up to the next tab stop.
func expandTabs(indent string, width int) string {
	var b strings.Builder
	col := 0
	for i := 0; i < len(indent); i++ {
		if indent[i] == '\t' {
			pad := width - col%width
			b.WriteString(strings.Repeat(" ", pad))
			col += pad
			continue
		}
		b.WriteByte(indent[i])
		col++
	}
	return b.String()
}

// stripComment drops a trailing comment outside string literals and
// trailing whitespace.
func stripComment(text string) string {
	var quote byte
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '#':
			return strings.TrimRight(text[:i], " \t")
		}
	}
	return strings.TrimRight(text, " \t")
}
