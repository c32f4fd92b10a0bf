// Package browse is a terminal browser over a feed. Moving the selection
// onto the last loaded row is the infinite-scroll trigger.
package browse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/goldlanka/goldmarket/internal/feed"
	"github.com/goldlanka/goldmarket/internal/model"
)

// Options configures a browser.
type Options[T feed.Record] struct {
	Title string
	// Filterable enables the district prompt.
	Filterable bool
	// Filter is the initial district.
	Filter string
	Render func(T) string
	// Timeout bounds each page fetch.
	Timeout time.Duration
}

// Messages

type changedMsg struct{}

type fetchedMsg struct{ err error }

// Model is the bubbletea model for one feed.
type Model[T feed.Record] struct {
	feed        *feed.Feed[T]
	opts        Options[T]
	keys        KeyMap
	changes     chan struct{}
	unsubscribe func()

	snap     feed.Snapshot[T]
	selected int
	offset   int
	width    int
	height   int

	spinner spinner.Model
	input   textinput.Model
	editing bool
	notice  string
	err     error
}

// New creates a browser over f and subscribes to its changes.
func New[T feed.Record](f *feed.Feed[T], opts Options[T]) *Model[T] {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Render == nil {
		opts.Render = func(r T) string { return r.RecordID() }
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = badgeStyle

	ti := textinput.New()
	ti.Placeholder = "district, e.g. Kandy"
	ti.CharLimit = 32
	ti.Width = 24
	ti.Prompt = "District: "

	m := &Model[T]{
		feed:    f,
		opts:    opts,
		keys:    DefaultKeyMap(),
		changes: make(chan struct{}, 1),
		spinner: sp,
		input:   ti,
		height:  20,
	}
	m.unsubscribe = f.Subscribe(func(feed.Snapshot[T]) {
		// Coalesce: the model reads the latest snapshot itself.
		select {
		case m.changes <- struct{}{}:
		default:
		}
	})
	return m
}

// Close detaches from the feed.
func (m *Model[T]) Close() {
	m.unsubscribe()
}

func (m *Model[T]) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForChange(), m.reset(m.opts.Filter))
}

func (m *Model[T]) waitForChange() tea.Cmd {
	return func() tea.Msg {
		<-m.changes
		return changedMsg{}
	}
}

func (m *Model[T]) reset(filter string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.opts.Timeout)
		defer cancel()
		return fetchedMsg{err: m.feed.Reset(ctx, filter)}
	}
}

func (m *Model[T]) advance() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.opts.Timeout)
		defer cancel()
		_, err := m.feed.Advance(ctx)
		return fetchedMsg{err: err}
	}
}

func (m *Model[T]) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = max(msg.Height-4, 1)
		m.clamp()
		return m, m.maybeAdvance()

	case changedMsg:
		m.snap = m.feed.Snapshot()
		m.clamp()
		return m, tea.Batch(m.waitForChange(), m.maybeAdvance())

	case fetchedMsg:
		m.err = msg.err
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.editing {
			return m.updateInput(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m *Model[T]) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		m.move(-1)
	case key.Matches(msg, m.keys.Down):
		m.move(1)
	case key.Matches(msg, m.keys.Top):
		m.move(-m.selected)
	case key.Matches(msg, m.keys.Bottom):
		m.move(len(m.snap.Records))
	case key.Matches(msg, m.keys.Refresh):
		return m, m.applyFilter(m.feed.Filter())
	case key.Matches(msg, m.keys.Filter) && m.opts.Filterable:
		m.editing = true
		m.input.SetValue("")
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.ClearFilter) && m.opts.Filterable:
		if m.feed.Filter() != "" {
			return m, m.applyFilter("")
		}
		return m, nil
	default:
		return m, nil
	}
	return m, m.maybeAdvance()
}

func (m *Model[T]) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.editing = false
		m.input.Blur()
		if strings.TrimSpace(m.input.Value()) == "" {
			return m, m.applyFilter("")
		}
		district, err := model.NormalizeDistrict(m.input.Value())
		if err != nil {
			m.notice = err.Error()
			return m, nil
		}
		return m, m.applyFilter(district)
	case tea.KeyEsc:
		m.editing = false
		m.input.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model[T]) applyFilter(district string) tea.Cmd {
	m.notice = ""
	m.selected = 0
	m.offset = 0
	return m.reset(district)
}

func (m *Model[T]) move(delta int) {
	m.selected += delta
	m.clamp()
}

func (m *Model[T]) clamp() {
	n := len(m.snap.Records)
	m.selected = max(min(m.selected, n-1), 0)
	if m.selected < m.offset {
		m.offset = m.selected
	}
	if m.selected >= m.offset+m.height {
		m.offset = m.selected - m.height + 1
	}
	m.offset = max(min(m.offset, n-m.height), 0)
}

// lastVisible reports whether the last loaded row is on screen.
func (m *Model[T]) lastVisible() bool {
	n := len(m.snap.Records)
	return n == 0 || n-1 < m.offset+m.height
}

// maybeAdvance requests the next page once the last loaded row is visible.
// The feed drops the trigger if a fetch is already in flight.
func (m *Model[T]) maybeAdvance() tea.Cmd {
	if len(m.snap.Records) == 0 || !m.snap.HasMore || m.snap.Loading || !m.lastVisible() {
		return nil
	}
	return m.advance()
}

func (m *Model[T]) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.opts.Title))
	b.WriteString("  ")
	b.WriteString(m.header())
	if m.snap.Loading {
		b.WriteString("  " + m.spinner.View())
	}
	b.WriteString("\n")

	if m.editing {
		b.WriteString(m.input.View() + "\n")
	} else if m.notice != "" {
		b.WriteString(errorStyle.Render(m.notice) + "\n")
	}

	records := m.snap.Records
	if len(records) == 0 && !m.snap.Loading {
		b.WriteString(dimStyle.Render("Nothing here yet.") + "\n")
	}
	end := min(m.offset+m.height, len(records))
	for i := m.offset; i < end; i++ {
		line := m.opts.Render(records[i])
		if i == m.selected {
			b.WriteString(selectedStyle.Render("> "+line) + "\n")
		} else {
			b.WriteString("  " + line + "\n")
		}
	}

	footer := fmt.Sprintf("%d loaded", len(records))
	if !m.snap.HasMore && len(records) > 0 {
		footer += " · end of list"
	}
	if m.err != nil {
		b.WriteString(errorStyle.Render("error: "+m.err.Error()) + "\n")
	}
	b.WriteString(dimStyle.Render(footer + " · " + m.help()))
	return b.String()
}

func (m *Model[T]) header() string {
	if !m.opts.Filterable {
		return ""
	}
	total := m.snap.Tally.Total()
	if m.snap.Filter == "" {
		return dimStyle.Render(fmt.Sprintf("All districts (%d)", total))
	}
	return badgeStyle.Render(fmt.Sprintf("%s (%d)", model.DisplayDistrict(m.snap.Filter), m.snap.Tally[m.snap.Filter])) +
		dimStyle.Render(fmt.Sprintf(" of %d", total))
}

func (m *Model[T]) help() string {
	bindings := []key.Binding{m.keys.Down, m.keys.Up, m.keys.Refresh, m.keys.Quit}
	if m.opts.Filterable {
		bindings = append(bindings, m.keys.Filter, m.keys.ClearFilter)
	}
	parts := make([]string, 0, len(bindings))
	for _, k := range bindings {
		h := k.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " · ")
}
