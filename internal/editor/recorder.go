package editor

import (
	"slices"
	"sync"
)

// Recorder is an in-memory Bridge. It keeps the last marker set and the
// live fix provider and lets callers play the widget's side (typing, editing
// configuration).
type Recorder struct {
	mu            sync.Mutex
	markers       []Marker
	setCalls      int
	provider      FixProvider
	providerSeq   int
	languageID    string
	registrations int
	live          int
	textHandlers  []func(string)
	configHandler []func(group, field, value string)
}

var (
	_ Bridge       = (*Recorder)(nil)
	_ ConfigSource = (*Recorder)(nil)
)

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) SetMarkers(markers []Marker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markers = append([]Marker(nil), markers...)
	r.setCalls++
}

func (r *Recorder) OnTextChanged(fn func(text string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.textHandlers = append(r.textHandlers, fn)
}

func (r *Recorder) OnConfigChanged(fn func(group, field, value string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configHandler = append(r.configHandler, fn)
}

func (r *Recorder) RegisterFixProvider(languageID string, p FixProvider) Disposable {
	r.mu.Lock()
	r.providerSeq++
	seq := r.providerSeq
	r.provider = p
	r.languageID = languageID
	r.registrations++
	r.live++
	r.mu.Unlock()

	var once sync.Once
	return DisposeFunc(func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.live--
			if r.providerSeq == seq {
				r.provider = nil
			}
		})
	})
}

// Type simulates a user edit.
func (r *Recorder) Type(text string) {
	r.mu.Lock()
	handlers := slices.Clone(r.textHandlers)
	r.mu.Unlock()
	for _, fn := range handlers {
		fn(text)
	}
}

// Configure simulates a configuration edit.
func (r *Recorder) Configure(group, field, value string) {
	r.mu.Lock()
	handlers := slices.Clone(r.configHandler)
	r.mu.Unlock()
	for _, fn := range handlers {
		fn(group, field, value)
	}
}

// Markers returns the last marker set.
func (r *Recorder) Markers() []Marker {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Marker(nil), r.markers...)
}

// SetCalls counts SetMarkers invocations.
func (r *Recorder) SetCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.setCalls
}

// FixesAt queries the live provider.
func (r *Recorder) FixesAt(line int) []FixAction {
	r.mu.Lock()
	p := r.provider
	r.mu.Unlock()
	if p == nil {
		return nil
	}
	return p.FixesAt(line)
}

// LiveRegistrations counts registrations not yet disposed.
func (r *Recorder) LiveRegistrations() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.live
}

// Registrations counts RegisterFixProvider calls.
func (r *Recorder) Registrations() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registrations
}

// LanguageID returns the language of the last registration.
func (r *Recorder) LanguageID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.languageID
}
