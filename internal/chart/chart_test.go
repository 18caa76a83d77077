package chart

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/i474232898/datacycle/internal/cycle"
)

func TestRenderIsDeterministic(t *testing.T) {
	a, ok := Render([]float64{1, 2, 3})
	require.True(t, ok)
	b, ok := Render([]float64{1, 2, 3})
	require.True(t, ok)
	require.Equal(t, a, b)
	require.True(t, strings.HasPrefix(a, DefaultBaseURL+"?c="))
}

func TestRenderEncodesSpec(t *testing.T) {
	u, ok := Render([]float64{1.5, 2, 30})
	require.True(t, ok)

	parsed, err := url.Parse(u)
	require.NoError(t, err)
	raw := parsed.Query().Get("c")
	require.JSONEq(t, `{
		"type": "bar",
		"data": {
			"labels": ["1", "2", "3"],
			"datasets": [{"label": "Random Data", "data": ["1.5", "2", "30"]}]
		}
	}`, raw)

	// Compact: no insignificant whitespace made it into the URL.
	var compact bytes.Buffer
	require.NoError(t, json.Compact(&compact, []byte(raw)))
	require.Equal(t, compact.String(), raw)
}

func TestRenderNoData(t *testing.T) {
	for name, series := range map[string][]float64{
		"nil":   nil,
		"empty": {},
		"nan":   {1, math.NaN()},
		"inf":   {math.Inf(1)},
	} {
		t.Run(name, func(t *testing.T) {
			u, ok := Render(series)
			require.False(t, ok)
			require.Empty(t, u)
			require.Equal(t, NoData, RenderOrNoData(series))
		})
	}
}

func TestRendererCustomBase(t *testing.T) {
	r := Renderer{BaseURL: "http://charts.local/render?w=500"}
	u, ok := r.Render([]float64{4})
	require.True(t, ok)
	require.True(t, strings.HasPrefix(u, "http://charts.local/render?w=500&c="))
	require.Contains(t, u, url.QueryEscape(`"label":"Random Data"`))
}

func TestSourceFetch(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("c")
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte{0x89, 'P', 'N', 'G'})
	}))
	defer srv.Close()

	src := NewSource(srv.Client(),
		WithBaseURL(srv.URL+"/chart"),
		WithPoints(4),
		WithRand(func() float64 { return 0.5 }),
	)
	p, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, cycle.KindChart, p.Kind)
	require.Equal(t, []float64{5.5, 5.5, 5.5, 5.5}, p.Series)
	require.Contains(t, gotQuery, `"labels":["1","2","3","4"]`)
}

func TestSourceFetchFailures(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := NewSource(srv.Client(), WithBaseURL(srv.URL)).Fetch(context.Background())
		require.ErrorIs(t, err, cycle.ErrNetwork)
	})

	t.Run("not an image", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"error":"bad chart"}`))
		}))
		defer srv.Close()

		_, err := NewSource(srv.Client(), WithBaseURL(srv.URL)).Fetch(context.Background())
		require.ErrorIs(t, err, cycle.ErrDecode)
	})
}
