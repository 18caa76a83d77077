package main

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/datacycle/internal/chart"
	"github.com/i474232898/datacycle/internal/config"
	"github.com/i474232898/datacycle/internal/cycle"
	"github.com/i474232898/datacycle/internal/httpclient"
	"github.com/i474232898/datacycle/internal/store"
	"github.com/i474232898/datacycle/internal/weather/providers"
)

func TestRootHasSubcommands(t *testing.T) {
	root := buildRoot()
	for _, name := range []string{"serve", "tui", "launches"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestPrintLaunches(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()

	var buf bytes.Buffer
	printLaunches(&buf, nil)
	assert.Equal(t, "No launches recorded\n", buf.String())

	buf.Reset()
	first := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	refreshed := first.Add(time.Hour)
	printLaunches(&buf, []cycle.LaunchRecord{{ID: "abc", FirstSeenAt: first, LastRefreshedAt: &refreshed}})
	out := buf.String()
	assert.Contains(t, out, first.Local().Format(time.DateTime))
	assert.Contains(t, out, "last refresh")
	assert.True(t, strings.HasSuffix(out, "abc\n"))
}

func TestLaunchesCommandReadsStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "launches.db")
	st, err := store.OpenSQLite(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, st.InsertLaunch(context.Background(), cycle.LaunchRecord{ID: "first", FirstSeenAt: time.Now().UTC()}))
	require.NoError(t, st.Close())

	t.Setenv("STORE_PATH", path)
	t.Setenv("PORT", "8080")
	root := buildRoot()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"launches"})
	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "first")
}

func TestNewSourceSelection(t *testing.T) {
	cfg := &config.AppConfig{PayloadKind: "chart", ChartPoints: 3, ChartBaseURL: "http://charts.local/chart"}
	src, renderer := newSource(cfg, nil, httpclient.DefaultBackoff, nil)
	_, isChart := src.(*chart.Source)
	assert.True(t, isChart)
	assert.Equal(t, "http://charts.local/chart", renderer.BaseURL)

	cfg = &config.AppConfig{PayloadKind: "weather", WeatherProvider: "openmeteo"}
	src, _ = newSource(cfg, nil, httpclient.DefaultBackoff, nil)
	_, isWeather := src.(*providers.Source)
	assert.True(t, isWeather)
	assert.Equal(t, "openmeteo", src.Name())
}

func TestHealthEndpoint(t *testing.T) {
	app := newFiberApp()
	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `"status":"ok"`)
}
