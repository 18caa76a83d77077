package chart

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"

	"github.com/sony/gobreaker"

	"github.com/i474232898/datacycle/internal/cycle"
	"github.com/i474232898/datacycle/internal/httpclient"
)

// DefaultPoints is the length of each placeholder series.
const DefaultPoints = 10

// Source produces placeholder series and confirms the chart service can
// render them.
type Source struct {
	name     string
	renderer Renderer
	points   int
	min, max float64
	rand     func() float64
	httpCfg  httpclient.Config
	circuit  *gobreaker.CircuitBreaker
}

var _ cycle.Source = (*Source)(nil)

// SourceOption configures a Source.
type SourceOption func(*Source)

// WithBaseURL points the source at a different rendering service.
func WithBaseURL(u string) SourceOption {
	return func(s *Source) { s.renderer.BaseURL = u }
}

// WithPoints sets how many values each fetch generates.
func WithPoints(n int) SourceOption {
	return func(s *Source) {
		if n > 0 {
			s.points = n
		}
	}
}

// WithRange sets the inclusive bounds of generated values.
func WithRange(min, max float64) SourceOption {
	return func(s *Source) {
		if max >= min {
			s.min, s.max = min, max
		}
	}
}

// WithRand replaces the uniform [0,1) generator.
func WithRand(f func() float64) SourceOption {
	return func(s *Source) { s.rand = f }
}

// WithBackoff enables retries for the render check.
func WithBackoff(b httpclient.BackoffConfig) SourceOption {
	return func(s *Source) { s.httpCfg.Backoff = b }
}

// NewSource builds a chart Source using client for outbound calls.
func NewSource(client *http.Client, opts ...SourceOption) *Source {
	s := &Source{
		name:     "quickchart",
		renderer: Renderer{BaseURL: DefaultBaseURL, Label: DefaultLabel},
		points:   DefaultPoints,
		min:      1,
		max:      10,
		rand:     rand.Float64,
		httpCfg: httpclient.Config{
			Client:  client,
			Backoff: httpclient.DefaultBackoff,
		},
		circuit: httpclient.NewBreaker("quickchart"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Source) Name() string {
	return s.name
}

// Renderer exposes the renderer so presentation uses the same base URL.
func (s *Source) Renderer() Renderer {
	return s.renderer
}

func (s *Source) Fetch(ctx context.Context) (cycle.Payload, error) {
	series := make([]float64, s.points)
	for i := range series {
		series[i] = s.min + s.rand()*(s.max-s.min)
	}

	u, ok := s.renderer.Render(series)
	if !ok {
		return cycle.Payload{}, fmt.Errorf("%w: could not build chart spec", cycle.ErrDecode)
	}

	resp, err := httpclient.Do(ctx, s.httpCfg, s.circuit, func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, u, nil)
	})
	if err != nil {
		return cycle.Payload{}, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		return cycle.Payload{}, fmt.Errorf("%w: chart service returned %q", cycle.ErrDecode, ct)
	}

	return cycle.Payload{Kind: cycle.KindChart, Series: series}, nil
}
