// Package projection maps engine diagnostics onto editor markers and quick
// fixes, and owns the single live fix-provider registration.
package projection

import (
	"strconv"
	"sync"

	"lintpad/internal/diag"
	"lintpad/internal/editor"
	"lintpad/internal/trace"
)

// DefaultLanguageID is used when a Projector is built without one.
const DefaultLanguageID = "python"

// RangeOf converts an engine span to an editor range: rows pass through,
// columns shift from 0-based to 1-based.
func RangeOf(start, end diag.Location) editor.Range {
	return editor.Range{
		StartLine:   start.Row,
		StartColumn: start.Column + 1,
		EndLine:     end.Row,
		EndColumn:   end.Column + 1,
	}
}

// ToMarkers maps every diagnostic to an error-level marker in input order.
func ToMarkers(diags []diag.Diagnostic) []editor.Marker {
	markers := make([]editor.Marker, 0, len(diags))
	for _, d := range diags {
		markers = append(markers, editor.Marker{
			Range:    RangeOf(d.Location, d.EndLocation),
			Code:     d.Code,
			Message:  d.Code + ": " + d.Message,
			Severity: editor.SeverityError,
		})
	}
	return markers
}

// FixesAt returns one action per diagnostic that starts on row and carries a
// fix, in input order. Diagnostics fixing the same range are not merged.
func FixesAt(diags []diag.Diagnostic, row int) []editor.FixAction {
	var actions []editor.FixAction
	for _, d := range diags {
		if d.Location.Row != row || d.Fix == nil {
			continue
		}
		actions = append(actions, editor.FixAction{
			ID:    "fix-" + d.Code,
			Title: "Fix " + d.Code,
			Code:  d.Code,
			Edit: editor.TextEdit{
				Range: RangeOf(d.Fix.Location, d.Fix.EndLocation),
				Text:  d.Fix.Content,
			},
			Description: d.Fix.Message,
		})
	}
	return actions
}

// provider is the FixProvider for one analysis cycle. It owns a private copy
// of the diagnostics so a later cycle cannot change what it answers.
type provider struct {
	diags []diag.Diagnostic
}

func (p provider) FixesAt(line int) []editor.FixAction {
	return FixesAt(p.diags, line)
}

// Projector pushes a diagnostic set to a bridge. It holds at most one live
// fix-provider registration and releases it before installing the next.
type Projector struct {
	bridge     editor.Bridge
	languageID string
	tracer     trace.Tracer

	mu           sync.Mutex
	registration editor.Disposable
}

// Option configures a Projector.
type Option func(*Projector)

// WithLanguageID sets the language the fix provider registers for.
func WithLanguageID(id string) Option {
	return func(p *Projector) {
		if id != "" {
			p.languageID = id
		}
	}
}

// WithTracer attaches a tracer.
func WithTracer(t trace.Tracer) Option {
	return func(p *Projector) {
		if t != nil {
			p.tracer = t
		}
	}
}

func New(bridge editor.Bridge, opts ...Option) *Projector {
	p := &Projector{
		bridge:     bridge,
		languageID: DefaultLanguageID,
		tracer:     trace.Nop,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Apply publishes markers for diags and swaps the fix provider.
func (p *Projector) Apply(diags []diag.Diagnostic) {
	span := trace.Begin(p.tracer, trace.ScopeProjection, "project", 0)
	owned := append([]diag.Diagnostic(nil), diags...)
	markers := ToMarkers(owned)
	p.bridge.SetMarkers(markers)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.registration != nil {
		p.registration.Dispose()
		p.registration = nil
	}
	p.registration = p.bridge.RegisterFixProvider(p.languageID, provider{diags: owned})
	span.WithExtra("markers", strconv.Itoa(len(markers))).End("")
}

// Close releases the live registration, if any.
func (p *Projector) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.registration != nil {
		p.registration.Dispose()
		p.registration = nil
	}
}

// LanguageID reports the language used for registrations.
func (p *Projector) LanguageID() string {
	return p.languageID
}
