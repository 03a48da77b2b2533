// Package analysis drives an analysis engine and turns every engine failure,
// including panics, into a recoverable AnalysisError.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strconv"
	"time"

	"lintpad/internal/config"
	"lintpad/internal/diag"
	"lintpad/internal/trace"
)

// Engine analyzes source text under a configuration.
type Engine interface {
	Check(ctx context.Context, source string, cfg config.EngineConfig) ([]diag.Diagnostic, error)
}

// EngineFunc adapts a function to Engine.
type EngineFunc func(ctx context.Context, source string, cfg config.EngineConfig) ([]diag.Diagnostic, error)

func (f EngineFunc) Check(ctx context.Context, source string, cfg config.EngineConfig) ([]diag.Diagnostic, error) {
	return f(ctx, source, cfg)
}

// AnalysisError is the user-visible form of an engine failure.
type AnalysisError struct {
	Message string
	Cause   error
	// Panicked is set when the engine panicked rather than returning an error.
	Panicked bool
}

func (e *AnalysisError) Error() string { return e.Message }

func (e *AnalysisError) Unwrap() error { return e.Cause }

// ErrEnginePanic is the cause recorded for recovered panics.
var ErrEnginePanic = errors.New("engine panicked")

// Result is the outcome of one run: diagnostics or an error, never both.
type Result struct {
	Diagnostics []diag.Diagnostic
	Err         *AnalysisError
	Duration    time.Duration
}

// OK reports whether the run succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Observer is notified after every run.
type Observer func(r Result)

// Runner invokes an Engine synchronously.
type Runner struct {
	engine    Engine
	tracer    trace.Tracer
	observers []Observer
	// panicTrace includes stack traces in panic messages when set
	panicTrace bool
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithTracer attaches a tracer.
func WithTracer(t trace.Tracer) RunnerOption {
	return func(r *Runner) {
		if t != nil {
			r.tracer = t
		}
	}
}

// WithObserver registers fn to be called after each run.
func WithObserver(fn Observer) RunnerOption {
	return func(r *Runner) {
		if fn != nil {
			r.observers = append(r.observers, fn)
		}
	}
}

// WithPanicStacks appends the engine stack to panic messages.
func WithPanicStacks(on bool) RunnerOption {
	return func(r *Runner) {
		r.panicTrace = on
	}
}

func NewRunner(engine Engine, opts ...RunnerOption) *Runner {
	r := &Runner{engine: engine}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Run checks source under cfg. It never panics and never returns a raw
// engine error: failures come back as Result.Err. Without WithTracer the
// tracer attached to ctx is used.
func (r *Runner) Run(ctx context.Context, source string, cfg config.EngineConfig) Result {
	tracer := r.tracer
	if tracer == nil {
		tracer = trace.FromContext(ctx)
	}
	span := trace.Begin(tracer, trace.ScopeAnalysis, "analyze", 0)
	start := time.Now()
	diags, err := r.invoke(ctx, source, cfg)
	res := Result{Duration: time.Since(start)}
	if err != nil {
		res.Err = toAnalysisError(err)
		span.WithExtra("error", res.Err.Message)
		trace.Point(tracer, trace.ScopeAnalysis, "analysis-failed", res.Err.Message, "error", res.Err.Message)
	} else {
		if diags == nil {
			diags = []diag.Diagnostic{}
		}
		res.Diagnostics = diags
		span.WithExtra("diagnostics", strconv.Itoa(len(diags)))
	}
	span.End("")
	for _, fn := range r.observers {
		fn(res)
	}
	return res
}

func (r *Runner) invoke(ctx context.Context, source string, cfg config.EngineConfig) (diags []diag.Diagnostic, err error) {
	if r.engine == nil {
		return nil, errors.New("no analysis engine configured")
	}
	defer func() {
		if rec := recover(); rec != nil {
			msg := fmt.Sprintf("%v", rec)
			if r.panicTrace {
				msg += "\n" + string(debug.Stack())
			}
			diags = nil
			err = &AnalysisError{
				Message:  "internal engine error: " + msg,
				Cause:    fmt.Errorf("%w: %v", ErrEnginePanic, rec),
				Panicked: true,
			}
		}
	}()
	if ctx == nil {
		ctx = context.Background()
	}
	return r.engine.Check(ctx, source, cfg)
}

func toAnalysisError(err error) *AnalysisError {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae
	}
	return &AnalysisError{Message: err.Error(), Cause: err}
}
