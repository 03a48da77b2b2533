package trace

import (
	"io"
	"sync"
)

// StreamTracer writes each event as it arrives. A failed write never
// reaches the caller of Emit; Close reports the first one.
type StreamTracer struct {
	mu      sync.Mutex
	w       io.Writer
	level   Level
	format  Format
	written int
	closed  bool
	err     error
}

// NewStreamTracer writes to w. FormatAuto is taken as text.
func NewStreamTracer(w io.Writer, level Level, format Format) *StreamTracer {
	if format == FormatAuto {
		format = FormatText
	}
	t := &StreamTracer{w: w, level: level, format: format}
	if format == FormatChrome {
		t.put([]byte("{\"traceEvents\":[\n"))
	}
	return t
}

func (t *StreamTracer) Emit(ev *Event) {
	if ev == nil || !t.level.admits(ev) {
		return
	}
	data := FormatEvent(ev, t.format)
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	if t.format == FormatChrome && t.written > 0 {
		t.put([]byte(",\n"))
	}
	t.written++
	t.put(data)
}

func (t *StreamTracer) put(data []byte) {
	if _, err := t.w.Write(data); err != nil && t.err == nil {
		t.err = err
	}
}

// Flush flushes the writer when it buffers.
func (t *StreamTracer) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return flushWriter(t.w)
}

// Close ends a Chrome array, flushes, and closes the writer if it is an
// io.Closer. Later events are dropped.
func (t *StreamTracer) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return t.err
	}
	t.closed = true
	if t.format == FormatChrome {
		t.put([]byte("\n]}\n"))
	}
	if err := flushWriter(t.w); err != nil && t.err == nil {
		t.err = err
	}
	if c, ok := t.w.(io.Closer); ok {
		if err := c.Close(); err != nil && t.err == nil {
			t.err = err
		}
	}
	return t.err
}

func (t *StreamTracer) Level() Level  { return t.level }
func (t *StreamTracer) Enabled() bool { return t.level > LevelOff }

func flushWriter(w io.Writer) error {
	if f, ok := w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}
