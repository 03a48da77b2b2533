// Package trace records what a lintpad session does: edits received, tokens
// published, engine runs, marker publication and editor protocol frames.
//
// Commands take --trace (output path, - for stderr), --trace-level
// (off|error|phase|detail|debug), --trace-mode (stream|ring|both) and
// --trace-format (auto|text|ndjson|chrome). The tracer travels in the
// command context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopeAnalysis, "analyze", 0)
//	defer span.End("")
//
// Scopes nest from ScopeSession to ScopeBridge and each level admits a
// prefix of them. Points carrying an "error" key pass from LevelError up.
package trace
