package trace

import (
	"io"
	"sync"
)

// RingTracer holds the most recent events in a fixed-size buffer. Nothing
// is written until Dump is called.
type RingTracer struct {
	mu    sync.RWMutex
	buf   []Event
	next  int
	count int
	level Level
}

// NewRingTracer returns a ring that keeps the last capacity events.
func NewRingTracer(capacity int, level Level) *RingTracer {
	if capacity <= 0 {
		capacity = defaultRingSize
	}
	return &RingTracer{buf: make([]Event, capacity), level: level}
}

func (t *RingTracer) Emit(ev *Event) {
	if ev == nil || !t.level.admits(ev) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf[t.next] = *ev
	t.next = (t.next + 1) % len(t.buf)
	if t.count < len(t.buf) {
		t.count++
	}
}

// Snapshot returns the buffered events oldest first.
func (t *RingTracer) Snapshot() []Event {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Event, 0, t.count)
	start := (t.next - t.count + len(t.buf)) % len(t.buf)
	for i := 0; i < t.count; i++ {
		out = append(out, t.buf[(start+i)%len(t.buf)])
	}
	return out
}

// Dump writes the buffered events to w, which is left open.
func (t *RingTracer) Dump(w io.Writer, format Format) error {
	out := NewStreamTracer(keepOpen{w}, LevelDebug, format)
	events := t.Snapshot()
	for i := range events {
		out.Emit(&events[i])
	}
	return out.Close()
}

func (t *RingTracer) Flush() error  { return nil }
func (t *RingTracer) Close() error  { return nil }
func (t *RingTracer) Level() Level  { return t.level }
func (t *RingTracer) Enabled() bool { return t.level > LevelOff }

// dumpOnClose is the ring used by ModeRing: the buffer goes to the
// configured output once, when the tracer is closed.
type dumpOnClose struct {
	*RingTracer
	cfg    Config
	format Format
	once   sync.Once
}

func (t *dumpOnClose) Close() error {
	var err error
	t.once.Do(func() {
		var w io.Writer
		if w, err = openOutput(t.cfg); err != nil {
			return
		}
		err = t.Dump(w, t.format)
		if c, ok := w.(io.Closer); ok {
			if cerr := c.Close(); err == nil {
				err = cerr
			}
		}
	})
	return err
}
