package lint

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/unicode/norm"

	"lintpad/internal/diag"
)

// Rule describes one built-in check.
type Rule struct {
	Code    string
	Name    string
	Summary string
	Fixable bool
}

var rules = []Rule{
	{Code: "W291", Name: "trailing-whitespace", Summary: "Trailing whitespace", Fixable: true},
	{Code: "W292", Name: "missing-newline-at-end-of-file", Summary: "No newline at end of file", Fixable: true},
	{Code: "W191", Name: "tab-indentation", Summary: "Indentation contains tabs", Fixable: true},
	{Code: "E111", Name: "indentation-with-invalid-multiple", Summary: "Indentation is not a multiple of the indent width"},
	{Code: "E501", Name: "line-too-long", Summary: "Line too long"},
	{Code: "Q000", Name: "bad-quotes-inline-string", Summary: "String uses the non-preferred quote", Fixable: true},
	{Code: "U001", Name: "unnormalized-line", Summary: "Line is not in the configured normalization form", Fixable: true},
}

// Rules lists the built-in rules in code order of evaluation.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// context shared by the per-line checks of one run
type checkContext struct {
	opts   Options
	quote  QuoteStyle
	indent int
	report diag.Reporter
}

// emit forwards d when its rule is enabled.
func (cc *checkContext) emit(d diag.Diagnostic) {
	if cc.opts.Enabled(d.Code) {
		cc.report.Report(d)
	}
}

func checkTrailingWhitespace(cc *checkContext, ln line) {
	trimmed := strings.TrimRight(ln.text, " \t\f\v")
	if len(trimmed) == len(ln.text) {
		return
	}
	start := diag.At(ln.row, column(ln.text, len(trimmed)))
	end := diag.At(ln.row, column(ln.text, len(ln.text)))
	cc.emit(diag.New("W291", start, end, "Trailing whitespace").
		WithFix("", start, end).
		WithFixMessage("Remove trailing whitespace"))
}

func checkNewlineAtEOF(cc *checkContext, src string, lines []line) {
	if src == "" || strings.HasSuffix(src, "\n") || len(lines) == 0 {
		return
	}
	last := lines[len(lines)-1]
	// a lone trailing '\r' was dropped from the text; keep it before the newline
	at := diag.At(last.row, utf8.RuneCountInString(last.text)+strings.Count(src[len(src)-1:], "\r"))
	cc.emit(diag.New("W292", at, at, "No newline at end of file").
		WithFix("\n", at, at).
		WithFixMessage("Add trailing newline"))
}

func checkTabIndentation(cc *checkContext, ln line) {
	if ln.inString || isBlank(ln.text) {
		return
	}
	indent := leadingWhitespace(ln.text)
	if !strings.ContainsRune(indent, '\t') {
		return
	}
	start := diag.At(ln.row, 0)
	end := diag.At(ln.row, len(indent))
	cc.emit(diag.New("W191", start, end, "Indentation contains tabs").
		WithFix(expandTabs(indent, cc.indent), start, end).
		WithFixMessage("Replace tabs with spaces"))
}

func checkIndentMultiple(cc *checkContext, ln line) {
	if ln.inString || ln.depth > 0 || ln.continued || isBlank(ln.text) {
		return
	}
	indent := leadingWhitespace(ln.text)
	if indent == "" || strings.ContainsRune(indent, '\t') {
		return
	}
	if strings.HasPrefix(ln.text[len(indent):], "#") {
		return
	}
	if len(indent)%cc.indent == 0 {
		return
	}
	cc.emit(diag.New("E111", diag.At(ln.row, 0), diag.At(ln.row, len(indent)),
		fmt.Sprintf("Indentation is not a multiple of %d", cc.indent)))
}

func checkLineLength(cc *checkContext, ln line) {
	width := runewidth.StringWidth(ln.text)
	if width <= cc.opts.LineLength {
		return
	}
	// a single overlong token (a URL, a path) cannot be wrapped
	if !strings.ContainsAny(strings.TrimSpace(ln.text), " \t") {
		return
	}
	col, acc := 0, 0
	for _, r := range ln.text {
		w := runewidth.RuneWidth(r)
		if acc+w > cc.opts.LineLength {
			break
		}
		acc += w
		col++
	}
	cc.emit(diag.New("E501", diag.At(ln.row, col), diag.At(ln.row, utf8.RuneCountInString(ln.text)),
		fmt.Sprintf("Line too long (%d > %d)", width, cc.opts.LineLength)))
}

func checkQuotes(cc *checkContext, texts []string, lits []literal) {
	want := cc.quote.char()
	for _, lit := range lits {
		if lit.triple || lit.quote == want {
			continue
		}
		text := texts[lit.row-1]
		start := diag.At(lit.row, column(text, lit.start))
		end := diag.At(lit.row, column(text, lit.end))
		msg := "Double quotes found but single quotes preferred"
		if want == '"' {
			msg = "Single quotes found but double quotes preferred"
		}
		d := diag.New("Q000", start, end, msg)
		if !strings.ContainsAny(lit.body, "'\"\\") {
			q := string(want)
			d = d.WithFix(q+lit.body+q, start, end).WithFixMessage("Replace quotes")
		}
		cc.emit(d)
	}
}

func checkNormalization(cc *checkContext, ln line) {
	if cc.opts.Normalization == "" {
		return
	}
	form := norm.NFC
	if cc.opts.Normalization == "NFKC" {
		form = norm.NFKC
	}
	if form.IsNormalString(ln.text) {
		return
	}
	start := diag.At(ln.row, 0)
	end := diag.At(ln.row, utf8.RuneCountInString(ln.text))
	cc.emit(diag.New("U001", start, end, fmt.Sprintf("Line is not in %s normalization form", cc.opts.Normalization)).
		WithFix(form.String(ln.text), start, end).
		WithFixMessage("Normalize line"))
}
