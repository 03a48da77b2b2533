// Package watch turns a file on disk into an editor widget: saves are text
// changes, markers go to a render callback, and quick fixes rewrite the
// file.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"lintpad/internal/editor"
	"lintpad/internal/fix"
	"lintpad/internal/session"
)

// DefaultDebounce coalesces the burst of events an editor save produces.
const DefaultDebounce = 100 * time.Millisecond

// Frame is what a renderer receives after every analysis.
type Frame struct {
	Path    string
	Source  string
	Markers []editor.Marker
}

type Options struct {
	Debounce time.Duration
	// OnMarkers is called with every marker set. It must not block.
	OnMarkers func(Frame)
	// OnError reports watcher failures that do not stop Run.
	OnError func(error)
}

// FileBridge implements editor.Bridge over one file.
type FileBridge struct {
	path string
	opts Options

	mu          sync.Mutex
	text        string
	markers     []editor.Marker
	handlers    []func(string)
	provider    editor.FixProvider
	providerSeq int
}

var _ editor.Bridge = (*FileBridge)(nil)

// NewFileBridge reads path once. The file must exist.
func NewFileBridge(path string, opts Options) (*FileBridge, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	return &FileBridge{path: abs, opts: opts, text: string(data)}, nil
}

// Path returns the absolute path of the watched file.
func (b *FileBridge) Path() string { return b.path }

// Text returns the last content seen on disk or written by a fix.
func (b *FileBridge) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text
}

// Markers returns the last marker set.
func (b *FileBridge) Markers() []editor.Marker {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]editor.Marker(nil), b.markers...)
}

func (b *FileBridge) SetMarkers(markers []editor.Marker) {
	b.mu.Lock()
	b.markers = append([]editor.Marker(nil), markers...)
	frame := Frame{Path: b.path, Source: b.text, Markers: b.markers}
	b.mu.Unlock()
	if b.opts.OnMarkers != nil {
		b.opts.OnMarkers(frame)
	}
}

func (b *FileBridge) OnTextChanged(fn func(text string)) {
	b.mu.Lock()
	b.handlers = append(b.handlers, fn)
	b.mu.Unlock()
}

func (b *FileBridge) RegisterFixProvider(_ string, p editor.FixProvider) editor.Disposable {
	b.mu.Lock()
	b.providerSeq++
	seq := b.providerSeq
	b.provider = p
	b.mu.Unlock()
	return editor.DisposeFunc(func() {
		b.mu.Lock()
		if b.providerSeq == seq {
			b.provider = nil
		}
		b.mu.Unlock()
	})
}

// FixesAt asks the live provider for the fixes offered on row.
func (b *FileBridge) FixesAt(row int) []editor.FixAction {
	b.mu.Lock()
	p := b.provider
	b.mu.Unlock()
	if p == nil {
		return nil
	}
	return p.FixesAt(row)
}

// Reload reads the file and fires a text change when it differs from the
// last known content.
func (b *FileBridge) Reload() (bool, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		return false, err
	}
	return b.changed(string(data)), nil
}

func (b *FileBridge) changed(text string) bool {
	b.mu.Lock()
	if text == b.text {
		b.mu.Unlock()
		return false
	}
	b.text = text
	handlers := slices.Clone(b.handlers)
	b.mu.Unlock()
	for _, fn := range handlers {
		fn(text)
	}
	return true
}

// ApplyFirstFix applies the first fix offered on row, writes the file and
// reports the edit as a text change.
func (b *FileBridge) ApplyFirstFix(row int) (editor.FixAction, error) {
	actions := b.FixesAt(row)
	if len(actions) == 0 {
		return editor.FixAction{}, fix.ErrNoFixes
	}
	res, err := fix.Apply(b.Text(), actions[:1], fix.ApplyOptions{Mode: fix.ApplyModeOnce})
	if err != nil {
		return editor.FixAction{}, err
	}
	if err := writeAtomic(b.path, res.Output); err != nil {
		return editor.FixAction{}, err
	}
	b.changed(res.Output)
	return actions[0], nil
}

// Sync reconciles the file with a started store. An empty file receives the
// session's source, which is how a shared token is restored to disk; any
// other content replaces the session's source.
func (b *FileBridge) Sync(ctx context.Context, store *session.Store) error {
	st := store.State()
	text := b.Text()
	if text == st.Source {
		return nil
	}
	if text == "" {
		if err := writeAtomic(b.path, st.Source); err != nil {
			return err
		}
		b.mu.Lock()
		b.text = st.Source
		b.mu.Unlock()
		return nil
	}
	return store.SetSource(ctx, text)
}

// Run watches the file's directory until ctx is done. Editors that save by
// rename would drop a watch on the file itself.
func (b *FileBridge) Run(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(b.path)); err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	timer := time.NewTimer(b.opts.Debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != b.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(b.opts.Debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			b.reportError(err)
		case <-timer.C:
			if _, err := b.Reload(); err != nil && !errors.Is(err, os.ErrNotExist) {
				b.reportError(err)
			}
		}
	}
}

func (b *FileBridge) reportError(err error) {
	if b.opts.OnError != nil {
		b.opts.OnError(err)
	}
}

func writeAtomic(path, text string) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()
	if _, err = tmp.WriteString(text); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if info, statErr := os.Stat(path); statErr == nil {
		_ = os.Chmod(tmpName, info.Mode().Perm())
	}
	return os.Rename(tmpName, path)
}
