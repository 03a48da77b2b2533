package trace

import (
	"fmt"
	"strings"
)

// Level controls how much is recorded.
type Level uint8

const (
	LevelOff    Level = iota
	LevelError        // failure points only
	LevelPhase        // session and analysis
	LevelDetail       // plus projection
	LevelDebug        // plus every bridge frame
)

var levelNames = [...]string{"off", "error", "phase", "detail", "debug"}

// widest scope admitted per level; zero admits none
var levelScopes = [...]Scope{LevelPhase: ScopeAnalysis, LevelDetail: ScopeProjection, LevelDebug: ScopeBridge}

func (l Level) String() string { return nameAt(levelNames[:], int(l)) }

// ParseLevel reads a --trace-level value. The empty string is off.
func ParseLevel(s string) (Level, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return LevelOff, nil
	}
	for i, n := range levelNames {
		if n == name {
			return Level(i), nil
		}
	}
	return LevelOff, fmt.Errorf("invalid trace level %q (expected %s)", s, strings.Join(levelNames[:], "|"))
}

// ShouldEmit reports whether spans and points of scope are recorded at l.
func (l Level) ShouldEmit(scope Scope) bool {
	return int(l) < len(levelScopes) && scope <= levelScopes[l]
}

func (l Level) admits(ev *Event) bool {
	return l.ShouldEmit(ev.Scope) || (l >= LevelError && ev.failed())
}
