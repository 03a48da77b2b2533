// Package session owns the live playground state. It reads the shared token
// once at start, then re-encodes and publishes it after every change while
// driving analysis and projecting the results onto the editor.
package session

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"lintpad/internal/analysis"
	"lintpad/internal/config"
	"lintpad/internal/diag"
	"lintpad/internal/editor"
	"lintpad/internal/projection"
	"lintpad/internal/schema"
	"lintpad/internal/share"
	"lintpad/internal/trace"
)

var (
	ErrAlreadyStarted = errors.New("session: already started")
	ErrNotStarted     = errors.New("session: not started")
	ErrClosed         = errors.New("session: closed")
)

// State is a snapshot of the session. Diagnostics and Token belong to the
// last successful run and last commit respectively.
type State struct {
	Config      config.Config
	Source      string
	Token       string
	Diagnostics []diag.Diagnostic
	LastError   *analysis.AnalysisError
	Ready       bool
	// Revision increments on every committed change.
	Revision uint64
}

func (s State) clone() State {
	s.Config = s.Config.Clone()
	if s.Diagnostics != nil {
		s.Diagnostics = append([]diag.Diagnostic(nil), s.Diagnostics...)
	}
	return s
}

type Options struct {
	Catalog *schema.Catalog
	Runner  *analysis.Runner
	// Bridge receives markers and fix providers. Nil runs headless.
	Bridge  editor.Bridge
	Channel TokenChannel
	Tracer  trace.Tracer
	// DefaultSource replaces share.DefaultSource when set.
	DefaultSource string
	LanguageID    string
}

type Store struct {
	opts      Options
	projector *projection.Projector
	tracer    trace.Tracer

	// cycle serializes events; an analysis finishes before the next starts
	cycle sync.Mutex

	mu        sync.RWMutex
	state     State
	started   bool
	closed    bool
	observers map[int]func(State)
	nextObs   int
}

// New validates opts and builds a Store. Nothing runs until Start.
func New(opts Options) (*Store, error) {
	if opts.Runner == nil {
		return nil, errors.New("session: runner is required")
	}
	if opts.Catalog == nil {
		opts.Catalog = schema.Builtin()
	}
	if opts.Channel == nil {
		opts.Channel = NewMemoryChannel("")
	}
	if opts.Tracer == nil {
		opts.Tracer = trace.Nop
	}
	if opts.DefaultSource == "" {
		opts.DefaultSource = share.DefaultSource
	}
	s := &Store{
		opts:      opts,
		tracer:    opts.Tracer,
		observers: make(map[int]func(State)),
	}
	if opts.Bridge != nil {
		popts := []projection.Option{projection.WithTracer(opts.Tracer)}
		if opts.LanguageID != "" {
			popts = append(popts, projection.WithLanguageID(opts.LanguageID))
		}
		s.projector = projection.New(opts.Bridge, popts...)
	}
	return s, nil
}

// Start reads the token channel, runs the first analysis and subscribes to
// the bridge. It may be called only once.
func (s *Store) Start(ctx context.Context) error {
	s.cycle.Lock()
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.cycle.Unlock()
		return ErrClosed
	}
	if s.started {
		s.mu.Unlock()
		s.cycle.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	s.mu.Unlock()

	span := trace.Begin(s.tracer, trace.ScopeSession, "start", 0)
	cfg, src := s.restore(ctx)
	token, err := share.Encode(cfg, src)
	if err != nil {
		trace.Point(s.tracer, trace.ScopeSession, "encode-token", "", "error", err.Error())
	}

	s.mu.Lock()
	s.state = State{Config: cfg, Source: src, Token: token}
	s.mu.Unlock()

	snap := s.analyze(ctx, true)
	span.WithExtra("ready", "true").End("")
	s.cycle.Unlock()
	s.notify(snap)

	s.bind(context.WithoutCancel(ctx))
	return nil
}

func (s *Store) restore(ctx context.Context) (config.Config, string) {
	token, err := s.opts.Channel.Read(ctx)
	if err != nil {
		trace.Point(s.tracer, trace.ScopeSession, "read-token", "", "error", err.Error())
		token = ""
	}
	if token == "" {
		return config.Config{}, s.opts.DefaultSource
	}
	cfg, src, err := share.DecodeOrDefault(token)
	if err != nil {
		trace.Point(s.tracer, trace.ScopeSession, "decode-token", "fallback", "error", err.Error())
		return config.Config{}, s.opts.DefaultSource
	}
	return config.Normalize(s.opts.Catalog, cfg), src
}

func (s *Store) bind(ctx context.Context) {
	if s.opts.Bridge == nil {
		return
	}
	s.opts.Bridge.OnTextChanged(func(text string) {
		_ = s.SetSource(ctx, text)
	})
	if cs, ok := s.opts.Bridge.(editor.ConfigSource); ok {
		cs.OnConfigChanged(func(group, field, value string) {
			_ = s.SetField(ctx, group, field, value)
		})
	}
}

// SetSource replaces the source text and runs a cycle.
func (s *Store) SetSource(ctx context.Context, text string) error {
	return s.update(ctx, "set-source", func(st *State) {
		st.Source = text
	})
}

// SetField changes one configuration entry; an empty or default value
// removes the override.
func (s *Store) SetField(ctx context.Context, group, field, value string) error {
	return s.update(ctx, "set-field", func(st *State) {
		st.Config = config.SetField(s.opts.Catalog, st.Config, group, field, value)
	})
}

// SetConfig replaces the whole configuration. Entries equal to their
// schema default are dropped.
func (s *Store) SetConfig(ctx context.Context, cfg config.Config) error {
	return s.update(ctx, "set-config", func(st *State) {
		st.Config = config.Normalize(s.opts.Catalog, cfg)
	})
}

// Replace swaps in a decoded (config, source) pair, as when a client loads
// a shared token mid-session. Default-valued entries are dropped.
func (s *Store) Replace(ctx context.Context, cfg config.Config, source string) error {
	return s.update(ctx, "replace", func(st *State) {
		st.Config = config.Normalize(s.opts.Catalog, cfg)
		st.Source = source
	})
}

func (s *Store) update(ctx context.Context, name string, mutate func(*State)) error {
	s.cycle.Lock()
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		s.cycle.Unlock()
		return ErrClosed
	case !s.started:
		s.mu.Unlock()
		s.cycle.Unlock()
		return ErrNotStarted
	}
	next := s.state.clone()
	mutate(&next)
	next.Revision++
	s.state = next
	s.mu.Unlock()

	span := trace.Begin(s.tracer, trace.ScopeSession, name, 0)
	s.publish(ctx)
	snap := s.analyze(ctx, false)
	span.WithExtra("revision", strconv.FormatUint(snap.Revision, 10)).End("")
	s.cycle.Unlock()
	s.notify(snap)
	return nil
}

// publish encodes the committed state and writes it when the token changed.
// State.Token moves only after a successful write, so a failed write is
// retried on the next cycle. Must be called with cycle held.
func (s *Store) publish(ctx context.Context) {
	s.mu.RLock()
	cfg, src, prev := s.state.Config, s.state.Source, s.state.Token
	s.mu.RUnlock()

	token, err := share.Encode(cfg, src)
	if err != nil {
		trace.Point(s.tracer, trace.ScopeSession, "encode-token", "", "error", err.Error())
		return
	}
	if token == prev {
		trace.Point(s.tracer, trace.ScopeSession, "publish-token", "unchanged")
		return
	}
	if err := s.opts.Channel.Write(ctx, token); err != nil {
		trace.Point(s.tracer, trace.ScopeSession, "publish-token", "", "error", err.Error())
		return
	}
	s.mu.Lock()
	s.state.Token = token
	s.mu.Unlock()
	trace.Point(s.tracer, trace.ScopeSession, "publish-token", "", "bytes", strconv.Itoa(len(token)))
}

// analyze runs the engine on the committed state and projects the result.
// A failed run keeps the previous diagnostics and markers. Must be called
// with cycle held.
func (s *Store) analyze(ctx context.Context, first bool) State {
	s.mu.RLock()
	cfg, src := s.state.Config, s.state.Source
	s.mu.RUnlock()

	res := s.opts.Runner.Run(ctx, src, config.ToEngine(cfg))

	s.mu.Lock()
	if res.OK() {
		s.state.Diagnostics = res.Diagnostics
		s.state.LastError = nil
	} else {
		s.state.LastError = res.Err
		if first && s.state.Diagnostics == nil {
			s.state.Diagnostics = []diag.Diagnostic{}
		}
	}
	if first {
		s.state.Ready = true
	}
	snap := s.state.clone()
	s.mu.Unlock()

	if res.OK() && s.projector != nil {
		s.projector.Apply(res.Diagnostics)
	}
	return snap
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Observe registers fn to receive a State copy after every cycle. fn must
// not call back into the Store synchronously. The returned func
// unregisters it.
func (s *Store) Observe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

func (s *Store) notify(st State) {
	s.mu.RLock()
	fns := make([]func(State), 0, len(s.observers))
	for id := 0; id < s.nextObs; id++ {
		if fn, ok := s.observers[id]; ok {
			fns = append(fns, fn)
		}
	}
	s.mu.RUnlock()
	for _, fn := range fns {
		fn(st.clone())
	}
}

// Close releases the fix-provider registration. Later updates fail with
// ErrClosed.
func (s *Store) Close() {
	s.cycle.Lock()
	defer s.cycle.Unlock()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	if s.projector != nil {
		s.projector.Close()
	}
}
