// Package lint is the built-in analysis engine: a small set of line-based
// style rules with machine-applicable fixes.
package lint

import (
	"context"

	"lintpad/internal/analysis"
	"lintpad/internal/config"
	"lintpad/internal/diag"
	"lintpad/internal/schema"
)

const cancelCheckInterval = 256

type Engine struct {
	catalog *schema.Catalog
}

var _ analysis.Engine = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithCatalog resolves unset options against cat instead of the built-in
// catalog.
func WithCatalog(cat *schema.Catalog) Option {
	return func(e *Engine) {
		e.catalog = cat
	}
}

func New(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Check runs every enabled rule over source. Invalid options and context
// cancellation are returned as errors.
func (e *Engine) Check(ctx context.Context, source string, cfg config.EngineConfig) ([]diag.Diagnostic, error) {
	opts, err := ParseOptions(e.catalog, cfg)
	if err != nil {
		return nil, err
	}
	texts := splitLines(source)
	lines, lits := scan(texts)

	cc := &checkContext{opts: opts, quote: opts.Quote, indent: opts.IndentWidth}
	if cc.quote == QuoteAuto {
		cc.quote = detectQuote(lits)
	}
	if cc.indent == 0 {
		cc.indent = indentWidth(detectIndent(lines))
	}

	var found diag.Collector
	cc.report = &found

	for i, ln := range lines {
		if i%cancelCheckInterval == 0 && ctx != nil {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		checkTrailingWhitespace(cc, ln)
		checkTabIndentation(cc, ln)
		checkIndentMultiple(cc, ln)
		checkLineLength(cc, ln)
		checkNormalization(cc, ln)
	}
	checkQuotes(cc, texts, lits)
	checkNewlineAtEOF(cc, source, lines)

	bag := diag.NewBag(opts.MaxDiagnostics)
	found.Drain(diag.BagReporter{Bag: bag})
	return bag.Items(), nil
}
