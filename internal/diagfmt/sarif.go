package diagfmt

import (
	"encoding/json"
	"io"
	"path/filepath"
	"sort"

	"lintpad/internal/editor"
	"lintpad/internal/lint"
)

const sarifSchema = "https://json.schemastore.org/sarif-2.1.0.json"

type sarifLog struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool        sarifTool         `json:"tool"`
	Invocations []sarifInvocation `json:"invocations,omitempty"`
	Results     []sarifResult     `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version,omitempty"`
	Rules   []sarifRule `json:"rules,omitempty"`
}

type sarifRule struct {
	ID               string       `json:"id"`
	ShortDescription sarifMessage `json:"shortDescription"`
}

type sarifInvocation struct {
	Arguments           []string `json:"arguments,omitempty"`
	ExecutionSuccessful bool     `json:"executionSuccessful"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysical `json:"physicalLocation"`
}

type sarifPhysical struct {
	ArtifactLocation sarifArtifact `json:"artifactLocation"`
	Region           sarifRegion   `json:"region"`
}

type sarifArtifact struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine   int `json:"startLine"`
	StartColumn int `json:"startColumn"`
	EndLine     int `json:"endLine"`
	EndColumn   int `json:"endColumn"`
}

func sarifLevel(s editor.Severity) string {
	switch s {
	case editor.SeverityWarning:
		return "warning"
	case editor.SeverityInfo, editor.SeverityHint:
		return "note"
	default:
		return "error"
	}
}

// Sarif writes reports as a SARIF 2.1.0 log with a single run.
func Sarif(w io.Writer, reports []FileReport, meta SarifRunMeta) error {
	run := sarifRun{
		Tool:    sarifTool{Driver: sarifDriver{Name: meta.ToolName, Version: meta.ToolVersion}},
		Results: make([]sarifResult, 0),
	}
	if run.Tool.Driver.Name == "" {
		run.Tool.Driver.Name = "lintpad"
	}

	used := make(map[string]bool)
	success := true
	for _, rep := range reports {
		if rep.Error != "" {
			success = false
		}
		uri := filepath.ToSlash(rep.Path)
		for _, m := range rep.Markers {
			used[m.Code] = true
			run.Results = append(run.Results, sarifResult{
				RuleID:  m.Code,
				Level:   sarifLevel(m.Severity),
				Message: sarifMessage{Text: m.Message},
				Locations: []sarifLocation{{PhysicalLocation: sarifPhysical{
					ArtifactLocation: sarifArtifact{URI: uri},
					Region: sarifRegion{
						StartLine:   m.StartLine,
						StartColumn: m.StartColumn,
						EndLine:     m.EndLine,
						EndColumn:   m.EndColumn,
					},
				}}},
			})
		}
	}

	summaries := make(map[string]string)
	for _, r := range lint.Rules() {
		summaries[r.Code] = r.Summary
	}
	codes := make([]string, 0, len(used))
	for c := range used {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	for _, c := range codes {
		text := summaries[c]
		if text == "" {
			text = c
		}
		run.Tool.Driver.Rules = append(run.Tool.Driver.Rules, sarifRule{ID: c, ShortDescription: sarifMessage{Text: text}})
	}
	if len(meta.InvocationArgs) > 0 {
		run.Invocations = []sarifInvocation{{Arguments: meta.InvocationArgs, ExecutionSuccessful: success}}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(sarifLog{Schema: sarifSchema, Version: "2.1.0", Runs: []sarifRun{run}})
}
