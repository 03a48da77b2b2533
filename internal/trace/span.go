package trace

import (
	"sync/atomic"
	"time"
)

var seq, spanIDs atomic.Uint64

// NextSeq returns the next event sequence number.
func NextSeq() uint64 { return seq.Add(1) }

// NextSpanID returns a fresh span ID.
func NextSpanID() uint64 { return spanIDs.Add(1) }

// Span is an operation in flight. A span begun below the tracer's level
// records nothing.
type Span struct {
	t     Tracer
	ev    Event
	start time.Time
	extra map[string]string
}

func emit(t Tracer, ev Event) {
	ev.Time = time.Now()
	ev.Seq = NextSeq()
	t.Emit(&ev)
}

// Begin opens a span under parent (0 for a root) and emits its begin event.
func Begin(t Tracer, scope Scope, name string, parent uint64) *Span {
	if t == nil || !t.Enabled() || !t.Level().ShouldEmit(scope) {
		return &Span{}
	}
	s := &Span{
		t:     t,
		ev:    Event{Scope: scope, SpanID: NextSpanID(), ParentID: parent, Name: name},
		start: time.Now(),
	}
	begin := s.ev
	begin.Kind = KindSpanBegin
	emit(t, begin)
	return s
}

// WithExtra attaches key=value to the end event.
func (s *Span) WithExtra(key, value string) *Span {
	if s == nil || s.t == nil {
		return s
	}
	if s.extra == nil {
		s.extra = make(map[string]string)
	}
	s.extra[key] = value
	return s
}

// End emits the end event and returns the time since Begin.
func (s *Span) End(detail string) time.Duration {
	if s == nil || s.t == nil {
		return 0
	}
	end := s.ev
	end.Kind = KindSpanEnd
	end.Detail = detail
	end.Extra = s.extra
	emit(s.t, end)
	return time.Since(s.start)
}

func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.ev.SpanID
}

// Point emits an instant event; kv is read as key, value pairs. A point
// with an "error" key is recorded even at LevelError.
func Point(t Tracer, scope Scope, name, detail string, kv ...string) {
	if t == nil || !t.Enabled() {
		return
	}
	emit(t, Event{Kind: KindPoint, Scope: scope, Name: name, Detail: detail, Extra: pairs(kv)})
}

func pairs(kv []string) map[string]string {
	if len(kv) < 2 {
		return nil
	}
	m := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i]] = kv[i+1]
	}
	return m
}
