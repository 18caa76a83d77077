// Package chart builds chart-image URLs for a numeric series and provides the
// placeholder chart data source.
package chart

import (
	"encoding/json"
	"math"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultBaseURL is the QuickChart rendering endpoint.
	DefaultBaseURL = "https://quickchart.io/chart"
	DefaultLabel   = "Random Data"

	// NoData is shown in place of a chart when no URL can be produced.
	NoData = "No data available"
)

type spec struct {
	Type string   `json:"type"`
	Data specData `json:"data"`
}

type specData struct {
	Labels   []string  `json:"labels"`
	Datasets []dataset `json:"datasets"`
}

type dataset struct {
	Label string   `json:"label"`
	Data  []string `json:"data"`
}

// Renderer turns a series into a chart URL.
type Renderer struct {
	BaseURL string
	Label   string
}

var defaultRenderer = Renderer{BaseURL: DefaultBaseURL, Label: DefaultLabel}

// Render uses the default QuickChart renderer.
func Render(series []float64) (string, bool) {
	return defaultRenderer.Render(series)
}

// Render builds a bar chart with labels 1..N and returns its URL. It returns
// false for an empty series or values that cannot be charted.
func (r Renderer) Render(series []float64) (string, bool) {
	if len(series) == 0 {
		return "", false
	}

	labels := make([]string, len(series))
	values := make([]string, len(series))
	for i, v := range series {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return "", false
		}
		labels[i] = strconv.Itoa(i + 1)
		values[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}

	label := r.Label
	if label == "" {
		label = DefaultLabel
	}
	raw, err := json.Marshal(spec{
		Type: "bar",
		Data: specData{
			Labels:   labels,
			Datasets: []dataset{{Label: label, Data: values}},
		},
	})
	if err != nil {
		return "", false
	}

	base := r.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "c=" + url.QueryEscape(string(raw)), true
}

// RenderOrNoData returns the URL, or NoData when none can be built.
func RenderOrNoData(series []float64) string {
	if u, ok := Render(series); ok {
		return u
	}
	return NoData
}
