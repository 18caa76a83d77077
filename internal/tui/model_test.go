package tui

import (
	"bytes"
	"context"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/datacycle/internal/chart"
	"github.com/i474232898/datacycle/internal/cycle"
	"github.com/i474232898/datacycle/internal/location"
	"github.com/i474232898/datacycle/internal/store"
	"github.com/i474232898/datacycle/internal/weather"
)

type stubSource struct{ calls atomic.Int32 }

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) Fetch(context.Context) (cycle.Payload, error) {
	s.calls.Add(1)
	return cycle.Payload{Kind: cycle.KindChart, Series: []float64{4, 2}}, nil
}

type countingTimer struct{ started, stopped atomic.Int32 }

func (t *countingTimer) Start(func()) error { t.started.Add(1); return nil }
func (t *countingTimer) Stop()              { t.stopped.Add(1) }

func newTestModel(t *testing.T) (*Model, *stubSource, *countingTimer) {
	t.Helper()
	src := &stubSource{}
	timer := &countingTimer{}
	c := cycle.New(store.NewMemoryStore(), src,
		cycle.WithTimerFactory(func(time.Duration) cycle.Timer { return timer }))
	loc := location.New(nil)
	m := New(c, loc, chart.Renderer{})
	t.Cleanup(func() {
		m.Close()
		c.Close()
		loc.Close()
	})
	return m, src, timer
}

func key(s string) tea.KeyMsg {
	switch s {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestHomeScreen(t *testing.T) {
	m, _, _ := newTestModel(t)

	view := m.View()
	assert.Contains(t, view, "Welcome to my App")
	assert.Contains(t, view, "The ultimate app to fetch and visualize data.")
}

func TestDataScreenActivatesAndFetches(t *testing.T) {
	m, src, timer := newTestModel(t)

	_, cmd := m.Update(key("d"))
	require.NotNil(t, cmd, "entering an empty data screen should fetch")
	assert.Equal(t, screenData, m.screen)
	assert.Equal(t, int32(1), timer.started.Load())
	assert.Contains(t, m.View(), "Loading...")

	msg := cmd()
	m.Update(msg)
	assert.Equal(t, int32(1), src.calls.Load())

	m.Update(snapshotMsg(m.cycle.Snapshot()))
	view := m.View()
	assert.Contains(t, view, "Fetched Data")
	assert.Contains(t, view, chart.DefaultBaseURL)
	assert.Contains(t, view, "Last updated")

	m.Update(key("esc"))
	assert.Equal(t, screenHome, m.screen)
	assert.Equal(t, int32(1), timer.stopped.Load())
	assert.False(t, m.cycle.Snapshot().Active)
}

func TestRefreshKey(t *testing.T) {
	m, src, _ := newTestModel(t)
	m.Update(key("d"))

	_, cmd := m.Update(key("r"))
	require.NotNil(t, cmd)
	m.Update(cmd())
	assert.Equal(t, int32(1), src.calls.Load())

	// The home screen ignores refresh.
	m.Update(key("esc"))
	_, cmd = m.Update(key("r"))
	assert.Nil(t, cmd)
}

func TestLocationShownOnDataScreen(t *testing.T) {
	m, _, _ := newTestModel(t)
	m.Update(key("d"))

	addr := "Ghent, Belgium"
	m.Update(sampleMsg(location.Sample{Coordinate: weather.Coordinate{Lat: 51.05, Lon: 3.72}, ResolvedAddress: &addr}))
	assert.Contains(t, m.View(), "Address: Ghent, Belgium")
}

func TestLaunchesScreen(t *testing.T) {
	m, _, _ := newTestModel(t)
	_, err := m.cycle.Refresh(context.Background())
	require.NoError(t, err)

	_, cmd := m.Update(key("l"))
	require.NotNil(t, cmd)
	m.Update(cmd())

	assert.Equal(t, screenLaunches, m.screen)
	require.Len(t, m.launches, 1)
	assert.Contains(t, m.View(), "last refresh")
}

func TestQuitDeactivates(t *testing.T) {
	m, _, timer := newTestModel(t)
	m.Update(key("d"))

	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Equal(t, int32(1), timer.stopped.Load())
}

func TestProgramRendersFetchedData(t *testing.T) {
	m, _, _ := newTestModel(t)

	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(120, 30))
	teatest.WaitFor(t, tm.Output(), func(bts []byte) bool {
		return bytes.Contains(bts, []byte("Welcome to my App"))
	}, teatest.WithDuration(time.Second))

	tm.Send(key("d"))
	teatest.WaitFor(t, tm.Output(), func(bts []byte) bool {
		return bytes.Contains(bts, []byte("Fetched Data"))
	}, teatest.WithDuration(2*time.Second))

	tm.Send(key("q"))
	tm.WaitFinished(t, teatest.WithFinalTimeout(time.Second))
}
