package lsp

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"lintpad/internal/trace"
)

// maxFrameSize bounds one message body. A whole document travels in
// didOpen and full-sync didChange, so the limit is generous.
const maxFrameSize = 32 << 20

// FrameError reports a malformed or rejected message frame. After a Skipped
// error the body has been consumed and the stream is still in sync.
type FrameError struct {
	Header  string
	Reason  string
	Skipped bool
}

func (e *FrameError) Error() string {
	if e.Header == "" {
		return "lsp: frame: " + e.Reason
	}
	return fmt.Sprintf("lsp: frame: %s: %s", e.Header, e.Reason)
}

// conn frames JSON-RPC payloads over a byte stream with Content-Length
// headers. Reads happen on one goroutine; writes may come from any.
type conn struct {
	r      *bufio.Reader
	mu     sync.Mutex
	w      *bufio.Writer
	tracer trace.Tracer
}

func newConn(r io.Reader, w io.Writer, tracer trace.Tracer) *conn {
	if tracer == nil {
		tracer = trace.Nop
	}
	return &conn{r: bufio.NewReader(r), w: bufio.NewWriter(w), tracer: tracer}
}

func (c *conn) read() ([]byte, error) {
	payload, err := readFrame(c.r)
	if err != nil {
		var fe *FrameError
		if errors.As(err, &fe) {
			trace.Point(c.tracer, trace.ScopeBridge, "frame-rejected", fe.Reason, "header", fe.Header)
		}
		return nil, err
	}
	trace.Point(c.tracer, trace.ScopeBridge, "recv", "", "bytes", strconv.Itoa(len(payload)))
	return payload, nil
}

func (c *conn) write(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := writeFrame(c.w, payload); err != nil {
		return err
	}
	trace.Point(c.tracer, trace.ScopeBridge, "send", "", "bytes", strconv.Itoa(len(payload)))
	return c.w.Flush()
}

// readFrame reads one message. Unknown headers are ignored.
func readFrame(r *bufio.Reader) ([]byte, error) {
	length := -1
	for started := false; ; started = true {
		line, err := r.ReadString('\n')
		if err != nil {
			// EOF is clean only between frames
			if errors.Is(err, io.EOF) && (started || line != "") {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 0 {
			return nil, &FrameError{Header: "Content-Length", Reason: fmt.Sprintf("invalid value %q", strings.TrimSpace(value))}
		}
		length = n
	}
	if length < 0 {
		return nil, &FrameError{Header: "Content-Length", Reason: "missing"}
	}
	if length > maxFrameSize {
		if _, err := io.CopyN(io.Discard, r, int64(length)); err != nil {
			return nil, err
		}
		return nil, &FrameError{Reason: fmt.Sprintf("body of %d bytes exceeds %d", length, maxFrameSize), Skipped: true}
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func writeFrame(w io.Writer, payload []byte) error {
	if _, err := fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(payload)); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}
