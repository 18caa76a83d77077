// Package tui is the terminal front end: a home screen, a data screen that
// keeps the refresh cycle active while shown, and the launch log.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/i474232898/datacycle/internal/chart"
	"github.com/i474232898/datacycle/internal/cycle"
	"github.com/i474232898/datacycle/internal/location"
)

type screen int

const (
	screenHome screen = iota
	screenData
	screenLaunches
)

const timeLayout = "2006-01-02 15:04:05"

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).MarginTop(1)
	frameStyle = lipgloss.NewStyle().Padding(1, 2)
)

type snapshotMsg cycle.Snapshot

type sampleMsg location.Sample

type launchesMsg struct {
	records []cycle.LaunchRecord
	err     error
}

type refreshDoneMsg struct{ err error }

// Model is the bubbletea model for the whole program.
type Model struct {
	cycle    *cycle.Cycle
	loc      *location.Manager
	renderer chart.Renderer

	screen   screen
	snap     cycle.Snapshot
	sample   *location.Sample
	launches []cycle.LaunchRecord
	notice   string

	snaps      <-chan cycle.Snapshot
	samples    <-chan location.Sample
	unsubCycle func()
	unsubLoc   func()
}

// New subscribes to the cycle and the location manager. Call Close once the
// program exits.
func New(c *cycle.Cycle, loc *location.Manager, renderer chart.Renderer) *Model {
	m := &Model{cycle: c, loc: loc, renderer: renderer, snap: c.Snapshot()}
	m.snaps, m.unsubCycle = c.Subscribe()
	m.samples, m.unsubLoc = loc.Subscribe()
	if s, ok := loc.Current(); ok {
		m.sample = &s
	}
	return m
}

// Close releases the subscriptions and leaves the cycle inactive.
func (m *Model) Close() {
	m.cycle.Deactivate()
	m.unsubCycle()
	m.unsubLoc()
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(waitSnapshot(m.snaps), waitSample(m.samples))
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotMsg:
		m.snap = cycle.Snapshot(msg)
		return m, waitSnapshot(m.snaps)
	case sampleMsg:
		s := location.Sample(msg)
		m.sample = &s
		return m, waitSample(m.samples)
	case launchesMsg:
		if msg.err != nil {
			m.notice = "Could not read launches: " + msg.err.Error()
			return m, nil
		}
		m.launches = msg.records
		return m, nil
	case refreshDoneMsg:
		// Failures surface through the snapshot.
		m.notice = ""
		if errors.Is(msg.err, cycle.ErrRefreshInProgress) {
			m.notice = "Refresh already running"
		}
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.leave()
		return m, tea.Quit
	case "esc":
		m.leave()
		m.screen = screenHome
		return m, nil
	}

	switch m.screen {
	case screenHome:
		switch msg.String() {
		case "d", "enter":
			return m, m.enterData()
		case "l":
			m.screen = screenLaunches
			return m, loadLaunches(m.cycle)
		}
	case screenData:
		if msg.String() == "r" {
			return m, refresh(m.cycle)
		}
	case screenLaunches:
		if msg.String() == "r" {
			return m, loadLaunches(m.cycle)
		}
	}
	return m, nil
}

func (m *Model) enterData() tea.Cmd {
	m.screen = screenData
	m.notice = ""
	if err := m.cycle.Activate(); err != nil {
		m.notice = "Periodic refresh unavailable: " + err.Error()
	}
	// Nothing cached and nothing in flight: fetch right away.
	if !m.snap.HasData() && m.snap.State != cycle.StateLoading && m.snap.State != cycle.StateRefreshing {
		return refresh(m.cycle)
	}
	return nil
}

func (m *Model) leave() {
	if m.screen == screenData {
		m.cycle.Deactivate()
	}
}

func (m *Model) View() string {
	var b strings.Builder
	switch m.screen {
	case screenHome:
		m.viewHome(&b)
	case screenData:
		m.viewData(&b)
	case screenLaunches:
		m.viewLaunches(&b)
	}
	return frameStyle.Render(b.String())
}

func (m *Model) viewHome(b *strings.Builder) {
	b.WriteString(titleStyle.Render("Welcome to my App") + "\n")
	b.WriteString("The ultimate app to fetch and visualize data.\n\n")
	if m.snap.FirstLaunchedAt != nil {
		b.WriteString(labelStyle.Render("First launched: ") + m.snap.FirstLaunchedAt.Local().Format(timeLayout) + "\n")
	}
	b.WriteString(helpStyle.Render("d: data • l: launches • q: quit"))
}

func (m *Model) viewData(b *strings.Builder) {
	b.WriteString(titleStyle.Render("Data") + "\n\n")

	summary := "Loading..."
	switch {
	case m.snap.HasData():
		summary = m.snap.Payload.Summary()
	case m.snap.State == cycle.StateFailed:
		summary = chart.NoData
	}
	b.WriteString(summary + "\n")
	b.WriteString(labelStyle.Render("State: ") + string(m.snap.State) + "\n")

	if m.sample != nil {
		b.WriteString(labelStyle.Render("Location: ") + m.sample.Coordinate.String() + "\n")
		if m.sample.ResolvedAddress != nil {
			b.WriteString(labelStyle.Render("Address: ") + *m.sample.ResolvedAddress + "\n")
		}
	}
	if m.snap.FetchedAt != nil {
		b.WriteString(labelStyle.Render("Last updated: ") + m.snap.FetchedAt.Local().Format(timeLayout) + "\n")
	}
	if m.snap.HasData() && m.snap.Payload.Kind == cycle.KindChart {
		u, ok := m.renderer.Render(m.snap.Payload.Series)
		if !ok {
			u = chart.NoData
		}
		b.WriteString(labelStyle.Render("Chart: ") + u + "\n")
	}
	if m.snap.LastError != "" {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Last refresh failed (%s): %s", m.snap.ErrorKind, m.snap.LastError)) + "\n")
	}
	if m.notice != "" {
		b.WriteString(errorStyle.Render(m.notice) + "\n")
	}
	b.WriteString(helpStyle.Render("r: refresh • esc: back • q: quit"))
}

func (m *Model) viewLaunches(b *strings.Builder) {
	b.WriteString(titleStyle.Render("Launches") + "\n\n")
	if len(m.launches) == 0 {
		b.WriteString("No launches recorded\n")
	}
	for _, l := range m.launches {
		line := l.FirstSeenAt.Local().Format(timeLayout)
		if l.LastRefreshedAt != nil {
			line += labelStyle.Render("  last refresh ") + l.LastRefreshedAt.Local().Format(timeLayout)
		}
		b.WriteString(line + "\n")
	}
	if m.notice != "" {
		b.WriteString(errorStyle.Render(m.notice) + "\n")
	}
	b.WriteString(helpStyle.Render("r: reload • esc: back • q: quit"))
}

func waitSnapshot(ch <-chan cycle.Snapshot) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return nil
		}
		return snapshotMsg(s)
	}
}

func waitSample(ch <-chan location.Sample) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return nil
		}
		return sampleMsg(s)
	}
}

func refresh(c *cycle.Cycle) tea.Cmd {
	return func() tea.Msg {
		_, err := c.Refresh(context.Background())
		return refreshDoneMsg{err: err}
	}
}

func loadLaunches(c *cycle.Cycle) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		records, err := c.Launches(ctx)
		return launchesMsg{records: records, err: err}
	}
}
