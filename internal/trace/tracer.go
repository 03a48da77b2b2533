package trace

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Tracer records events. Emit must be safe for concurrent use.
type Tracer interface {
	Emit(ev *Event)
	Flush() error
	Close() error
	Level() Level
	Enabled() bool
}

type nopTracer struct{}

func (nopTracer) Emit(*Event)   {}
func (nopTracer) Flush() error  { return nil }
func (nopTracer) Close() error  { return nil }
func (nopTracer) Level() Level  { return LevelOff }
func (nopTracer) Enabled() bool { return false }

// Nop records nothing. It is what FromContext returns for a bare context.
var Nop Tracer = nopTracer{}

// StorageMode decides where events go before the output.
type StorageMode uint8

const (
	ModeStream StorageMode = iota + 1 // written as they happen
	ModeRing                          // last RingSize events, written on Close
	ModeBoth                          // streamed, and the tail echoed to stderr on Close
)

var modeNames = [...]string{ModeStream: "stream", ModeRing: "ring", ModeBoth: "both"}

func (m StorageMode) String() string { return nameAt(modeNames[:], int(m)) }

// ParseMode reads a --trace-mode value. The empty string is stream.
func ParseMode(s string) (StorageMode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return ModeStream, nil
	}
	for i, n := range modeNames {
		if n != "" && n == name {
			return StorageMode(i), nil
		}
	}
	return ModeStream, fmt.Errorf("invalid trace mode %q (expected stream|ring|both)", s)
}

const defaultRingSize = 4096

// Config describes the tracer New builds.
type Config struct {
	Level      Level
	Mode       StorageMode
	Format     Format    // FormatAuto picks from OutputPath
	Output     io.Writer // takes precedence over OutputPath
	OutputPath string    // "-" or "" is stderr
	RingSize   int       // 0 is 4096
}

// New builds the tracer cfg describes. LevelOff yields Nop.
func New(cfg Config) (Tracer, error) {
	if cfg.Level == LevelOff {
		return Nop, nil
	}
	if cfg.RingSize <= 0 {
		cfg.RingSize = defaultRingSize
	}
	format := cfg.Format
	if format == FormatAuto {
		format = formatFor(cfg.OutputPath)
	}

	switch cfg.Mode {
	case ModeRing:
		return &dumpOnClose{RingTracer: NewRingTracer(cfg.RingSize, cfg.Level), cfg: cfg, format: format}, nil
	case ModeStream, ModeBoth:
		w, err := openOutput(cfg)
		if err != nil {
			return nil, err
		}
		stream := NewStreamTracer(w, cfg.Level, format)
		if cfg.Mode == ModeStream || cfg.toStderr() {
			return stream, nil
		}
		tail := &dumpOnClose{RingTracer: NewRingTracer(cfg.RingSize, cfg.Level), format: FormatText}
		return NewMultiTracer(cfg.Level, stream, tail), nil
	}
	return nil, fmt.Errorf("unknown trace mode %v", cfg.Mode)
}

func (cfg Config) toStderr() bool {
	return cfg.Output == nil && (cfg.OutputPath == "" || cfg.OutputPath == "-")
}

// keepOpen hides Close so that closing a tracer leaves the writer open.
type keepOpen struct{ io.Writer }

func openOutput(cfg Config) (io.Writer, error) {
	switch {
	case cfg.Output != nil:
		return cfg.Output, nil
	case cfg.toStderr():
		return keepOpen{os.Stderr}, nil
	}
	f, err := os.Create(cfg.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("trace: open output: %w", err)
	}
	return f, nil
}
