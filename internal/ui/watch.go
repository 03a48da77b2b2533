package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"lintpad/internal/editor"
	"lintpad/internal/projection"
	"lintpad/internal/session"
)

// Event feeds the model. Analyzing marks the start of a cycle; otherwise
// State is the session after the cycle.
type Event struct {
	Analyzing bool
	State     session.State
}

// Fixer offers and applies quick fixes on a row.
type Fixer interface {
	FixesAt(row int) []editor.FixAction
	ApplyFirstFix(row int) (editor.FixAction, error)
}

type watchModel struct {
	path    string
	events  <-chan Event
	fixer   Fixer
	spinner spinner.Model

	analyzing bool
	ready     bool
	revision  uint64
	markers   []editor.Marker
	errText   string
	cursor    int
	status    string
	width     int
	done      bool
}

type eventMsg Event
type doneMsg struct{}
type appliedMsg struct {
	action editor.FixAction
	err    error
}

// NewWatchModel returns a Bubble Tea model that renders a live session.
func NewWatchModel(path string, events <-chan Event, fixer Fixer) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	return &watchModel{
		path:      path,
		events:    events,
		fixer:     fixer,
		spinner:   sp,
		analyzing: true,
		width:     80,
	}
}

func (m *watchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		m.applyEvent(Event(msg))
		return m, m.listenForEvent()
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case appliedMsg:
		if msg.err != nil {
			m.status = "fix failed: " + msg.err.Error()
		} else {
			m.status = "applied " + msg.action.Title
		}
		return m, nil
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
		}
		return m, nil
	}
	return m, nil
}

func (m *watchModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.done = true
		return tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.markers)-1 {
			m.cursor++
		}
	case "a":
		row, ok := m.selectedRow()
		if !ok || m.fixer == nil {
			return nil
		}
		fixer := m.fixer
		m.status = "applying fix..."
		return func() tea.Msg {
			action, err := fixer.ApplyFirstFix(row)
			return appliedMsg{action: action, err: err}
		}
	}
	return nil
}

func (m *watchModel) applyEvent(ev Event) {
	if ev.Analyzing {
		m.analyzing = true
		return
	}
	st := ev.State
	m.analyzing = false
	m.ready = st.Ready
	m.revision = st.Revision
	if st.LastError != nil {
		// markers from the last good run stay up
		m.errText = st.LastError.Message
		return
	}
	m.errText = ""
	m.markers = projection.ToMarkers(st.Diagnostics)
	if m.cursor >= len(m.markers) {
		m.cursor = max(len(m.markers)-1, 0)
	}
}

func (m *watchModel) selectedRow() (int, bool) {
	if m.cursor < 0 || m.cursor >= len(m.markers) {
		return 0, false
	}
	return m.markers[m.cursor].StartLine, true
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	cursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func (m *watchModel) View() string {
	var b strings.Builder

	header := m.path
	switch {
	case m.analyzing:
		header = fmt.Sprintf("%s %s", m.spinner.View(), header)
	case m.errText != "":
		header = fmt.Sprintf("%s %s", errorStyle.Render("error"), header)
	case len(m.markers) == 0:
		header = fmt.Sprintf("%s %s", okStyle.Render("clean"), header)
	default:
		header = fmt.Sprintf("%d %s %s", len(m.markers), plural(len(m.markers), "marker"), header)
	}
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n")
	if m.errText != "" {
		b.WriteString(errorStyle.Render(truncate(m.errText, m.width-2)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	for i, mk := range m.markers {
		pos := fmt.Sprintf("%4d:%-3d", mk.StartLine, mk.StartColumn)
		line := truncate(fmt.Sprintf("%s %s", pos, mk.Message), m.width-4)
		if i == m.cursor {
			b.WriteString(cursorStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}

	if row, ok := m.selectedRow(); ok && m.fixer != nil {
		fixes := m.fixer.FixesAt(row)
		if len(fixes) > 0 {
			b.WriteString("\n")
			for i, fx := range fixes {
				label := fx.Title
				if fx.Description != "" {
					label += " " + dimStyle.Render(fx.Description)
				}
				if i == 0 {
					label += " (a)"
				}
				b.WriteString("  " + dimStyle.Render("fix: ") + label + "\n")
			}
		}
	}

	if m.status != "" {
		b.WriteString("\n" + dimStyle.Render(m.status) + "\n")
	}
	b.WriteString("\n" + dimStyle.Render("up/down select  a apply fix  q quit") + "\n")
	return b.String()
}

func (m *watchModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width-3, "...")
}
