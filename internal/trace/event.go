package trace

import "time"

// Kind separates span boundaries from instant events.
type Kind uint8

const (
	KindSpanBegin Kind = iota + 1
	KindSpanEnd
	KindPoint
)

var kindNames = [...]string{KindSpanBegin: "begin", KindSpanEnd: "end", KindPoint: "point"}

func (k Kind) String() string { return nameAt(kindNames[:], int(k)) }

// Scope orders events from coarse to fine. A level admits every scope up to
// its widest one.
type Scope uint8

const (
	ScopeSession    Scope = iota + 1 // start, edits, token publication
	ScopeAnalysis                    // engine runs and cache lookups
	ScopeProjection                  // markers and fix providers
	ScopeBridge                      // editor protocol frames
)

var scopeNames = [...]string{
	ScopeSession:    "session",
	ScopeAnalysis:   "analysis",
	ScopeProjection: "projection",
	ScopeBridge:     "bridge",
}

func (s Scope) String() string { return nameAt(scopeNames[:], int(s)) }

func nameAt(names []string, i int) string {
	if i < 0 || i >= len(names) || names[i] == "" {
		return "unknown"
	}
	return names[i]
}

// Event is one trace record.
type Event struct {
	Time     time.Time
	Seq      uint64 // process-wide, monotonic
	Kind     Kind
	Scope    Scope
	SpanID   uint64
	ParentID uint64 // 0 for a root span or a point
	Name     string // "analyze", "publish-token", an LSP method
	Detail   string
	Extra    map[string]string
}

// failed reports whether ev is a failure point. Those pass at LevelError.
func (ev *Event) failed() bool {
	return ev.Kind == KindPoint && ev.Extra["error"] != ""
}
