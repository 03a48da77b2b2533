package diagfmt

import (
	"encoding/json"
	"io"

	"lintpad/internal/editor"
)

// RangeJSON is an editor range in 1-based lines and columns.
type RangeJSON struct {
	StartLine   int `json:"start_line"`
	StartColumn int `json:"start_column"`
	EndLine     int `json:"end_line"`
	EndColumn   int `json:"end_column"`
}

// FixJSON describes one quick fix.
type FixJSON struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Range       RangeJSON `json:"range"`
	NewText     string    `json:"new_text"`
}

// MarkerJSON is a marker in JSON form.
type MarkerJSON struct {
	Severity string    `json:"severity"`
	Code     string    `json:"code"`
	Message  string    `json:"message"`
	Range    RangeJSON `json:"range"`
	Fixes    []FixJSON `json:"fixes,omitempty"`
}

// FileJSON groups the markers of one file.
type FileJSON struct {
	Path    string       `json:"path"`
	Error   string       `json:"error,omitempty"`
	Markers []MarkerJSON `json:"markers"`
}

// Output is the root of the JSON document.
type Output struct {
	Files []FileJSON `json:"files"`
	Count int        `json:"count"`
}

func rangeJSON(r editor.Range) RangeJSON {
	return RangeJSON{StartLine: r.StartLine, StartColumn: r.StartColumn, EndLine: r.EndLine, EndColumn: r.EndColumn}
}

// BuildOutput builds the JSON document without serializing it.
func BuildOutput(reports []FileReport, opts JSONOpts) Output {
	out := Output{Files: make([]FileJSON, 0, len(reports))}
	for _, rep := range reports {
		f := FileJSON{
			Path:    formatPath(rep.Path, opts.PathMode, opts.BaseDir),
			Error:   rep.Error,
			Markers: make([]MarkerJSON, 0, len(rep.Markers)),
		}
		for _, m := range rep.Markers {
			if opts.Max > 0 && out.Count >= opts.Max {
				break
			}
			mj := MarkerJSON{
				Severity: m.Severity.String(),
				Code:     m.Code,
				Message:  m.Message,
				Range:    rangeJSON(m.Range),
			}
			if opts.IncludeFixes && rep.Fixes != nil {
				for _, a := range rep.Fixes.FixesAt(m.StartLine) {
					if a.Code == m.Code {
						mj.Fixes = append(mj.Fixes, FixJSON{
							ID:          a.ID,
							Title:       a.Title,
							Description: a.Description,
							Range:       rangeJSON(a.Edit.Range),
							NewText:     a.Edit.Text,
						})
					}
				}
			}
			f.Markers = append(f.Markers, mj)
			out.Count++
		}
		out.Files = append(out.Files, f)
	}
	return out
}

// JSON writes reports as an indented JSON document.
func JSON(w io.Writer, reports []FileReport, opts JSONOpts) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(BuildOutput(reports, opts))
}
