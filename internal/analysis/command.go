package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"lintpad/internal/config"
	"lintpad/internal/diag"
)

// ConfigEnv carries the engine configuration JSON to external engines.
const ConfigEnv = "LINTPAD_CONFIG"

// DefaultCommandTimeout bounds one external engine run.
const DefaultCommandTimeout = 10 * time.Second

// CommandEngine runs an external program that reads source on stdin and
// prints a JSON array of diagnostics on stdout.
type CommandEngine struct {
	Path    string
	Args    []string
	Dir     string
	Timeout time.Duration
}

// NewCommandEngine splits a command line on whitespace.
func NewCommandEngine(cmdline string) (*CommandEngine, error) {
	fields := strings.Fields(cmdline)
	if len(fields) == 0 {
		return nil, errors.New("analysis: empty engine command")
	}
	return &CommandEngine{Path: fields[0], Args: fields[1:], Timeout: DefaultCommandTimeout}, nil
}

func (e *CommandEngine) Check(ctx context.Context, source string, cfg config.EngineConfig) ([]diag.Diagnostic, error) {
	payload, err := config.Config(cfg).MarshalCanonical()
	if err != nil {
		return nil, fmt.Errorf("encode engine config: %w", err)
	}
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.Path, e.Args...)
	cmd.Dir = e.Dir
	cmd.Env = append(os.Environ(), ConfigEnv+"="+string(payload))
	cmd.Stdin = strings.NewReader(source)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%s: timed out after %s", e.Path, timeout)
		}
		// linters exit non-zero when they report findings
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(bytes.TrimSpace(stdout.Bytes())) > 0 {
			if diags, perr := ParseDiagnostics(stdout.Bytes()); perr == nil {
				return diags, nil
			}
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, &AnalysisError{Message: fmt.Sprintf("%s: %s", e.Path, firstLine(msg)), Cause: err}
	}
	return ParseDiagnostics(stdout.Bytes())
}

// ParseDiagnostics decodes an engine's JSON output. Empty output means no
// diagnostics.
func ParseDiagnostics(data []byte) ([]diag.Diagnostic, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return []diag.Diagnostic{}, nil
	}
	var out []diag.Diagnostic
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("malformed engine output: %w", err)
	}
	for i, d := range out {
		if d.Code == "" {
			return nil, fmt.Errorf("malformed engine output: diagnostic %d has no code", i)
		}
		if d.Location.Row < 1 || d.Location.Column < 0 {
			return nil, fmt.Errorf("malformed engine output: diagnostic %d has invalid location %s", i, d.Location)
		}
	}
	if out == nil {
		out = []diag.Diagnostic{}
	}
	return out, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
