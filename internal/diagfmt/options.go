package diagfmt

import (
	"lintpad/internal/editor"
)

// PathMode specifies how file paths are displayed.
type PathMode uint8

const (
	// PathModeAuto keeps short paths and shortens long absolute ones to
	// their base name.
	PathModeAuto PathMode = iota
	// PathModeAbsolute always uses absolute paths.
	PathModeAbsolute
	PathModeRelative
	PathModeBasename
)

// PrettyOpts configures pretty-printing of markers.
type PrettyOpts struct {
	Color    bool
	Context  int
	PathMode PathMode
	BaseDir  string
	// Fixes, when set, lists the quick fixes offered on each marker's line.
	Fixes       editor.FixProvider
	ShowPreview bool
}

// JSONOpts configures JSON output.
type JSONOpts struct {
	PathMode     PathMode
	BaseDir      string
	Max          int // truncation of output, not of analysis
	IncludeFixes bool
}

// SarifRunMeta provides metadata for SARIF output.
type SarifRunMeta struct {
	ToolName       string
	ToolVersion    string
	InvocationArgs []string
}

// FileReport is the outcome of checking one file.
type FileReport struct {
	Path    string
	Source  string
	Markers []editor.Marker
	// Fixes answers which fixes are offered on a line; nil means none.
	Fixes editor.FixProvider
	// Error is the analysis error message, if the run failed.
	Error string
}
