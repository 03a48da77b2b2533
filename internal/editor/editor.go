// Package editor is the boundary to the text-editing widget. The widget is
// external; lintpad only sees it through Bridge.
package editor

// Severity mirrors the editor's marker severity scale.
type Severity int

const (
	SeverityHint    Severity = 1
	SeverityInfo    Severity = 2
	SeverityWarning Severity = 4
	SeverityError   Severity = 8
)

func (s Severity) String() string {
	switch s {
	case SeverityHint:
		return "hint"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	}
	return "unknown"
}

// Range is an editor span. Lines and columns are 1-based; columns count code
// points. End is exclusive.
type Range struct {
	StartLine   int `json:"startLineNumber"`
	StartColumn int `json:"startColumn"`
	EndLine     int `json:"endLineNumber"`
	EndColumn   int `json:"endColumn"`
}

// Marker is an inline annotation.
type Marker struct {
	Range
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// TextEdit replaces Range with Text.
type TextEdit struct {
	Range Range  `json:"range"`
	Text  string `json:"text"`
}

// FixAction is a one-click quick fix offered at a line.
type FixAction struct {
	ID    string   `json:"id"`
	Title string   `json:"title"`
	Code  string   `json:"code"`
	Edit  TextEdit `json:"edit"`
	// Description says what the edit does, e.g. "Remove trailing whitespace".
	Description string `json:"description,omitempty"`
}

// FixProvider answers "which fixes are offered on this line".
type FixProvider interface {
	FixesAt(line int) []FixAction
}

// FixProviderFunc adapts a function to FixProvider.
type FixProviderFunc func(line int) []FixAction

func (f FixProviderFunc) FixesAt(line int) []FixAction { return f(line) }

// Disposable releases a registration. Dispose must be idempotent.
type Disposable interface {
	Dispose()
}

// DisposeFunc adapts a function to Disposable.
type DisposeFunc func()

func (f DisposeFunc) Dispose() {
	if f != nil {
		f()
	}
}

// Bridge is what the core needs from an editor widget.
type Bridge interface {
	SetMarkers(markers []Marker)
	OnTextChanged(fn func(text string))
	RegisterFixProvider(languageID string, p FixProvider) Disposable
}

// ConfigSource is implemented by bridges whose clients edit configuration.
type ConfigSource interface {
	OnConfigChanged(fn func(group, field, value string))
}
