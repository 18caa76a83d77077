package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/i474232898/datacycle/internal/chart"
	"github.com/i474232898/datacycle/internal/config"
	"github.com/i474232898/datacycle/internal/cycle"
	"github.com/i474232898/datacycle/internal/httpclient"
	"github.com/i474232898/datacycle/internal/location"
	"github.com/i474232898/datacycle/internal/metrics"
	"github.com/i474232898/datacycle/internal/store"
	"github.com/i474232898/datacycle/internal/weather"
	"github.com/i474232898/datacycle/internal/weather/providers"
)

// app holds the wired components shared by the serve and tui commands.
type app struct {
	cfg      *config.AppConfig
	store    *store.SQLiteStore
	loc      *location.Manager
	cycle    *cycle.Cycle
	renderer chart.Renderer
}

func newApp(ctx context.Context, cfg *config.AppConfig) (*app, error) {
	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	st, err := store.OpenSQLite(ctx, cfg.StorePath)
	if err != nil {
		return nil, err
	}

	var geo location.Geocoder
	if cfg.GeocoderAPIKey != "" {
		geo = location.NewGoogleGeocoder(cfg.GeocoderAPIKey)
	}
	loc := location.New(geo)
	if cfg.Location != nil {
		if err := loc.Update(cfg.Location.Lat, cfg.Location.Lon); err != nil {
			loc.Close()
			_ = st.Close()
			return nil, err
		}
	}

	// Shared HTTP client for outbound calls.
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	backoff := httpclient.DefaultBackoff
	backoff.MaxRetries = cfg.FetchMaxRetries

	src, renderer := newSource(cfg, httpClient, backoff, loc)
	log.Printf("INFO: payload source %s, store %s", src.Name(), cfg.StorePath)

	c := cycle.New(st, src,
		cycle.WithInterval(cfg.RefreshInterval),
		cycle.WithFetchTimeout(cfg.FetchTimeout),
	)
	return &app{cfg: cfg, store: st, loc: loc, cycle: c, renderer: renderer}, nil
}

func newSource(cfg *config.AppConfig, client *http.Client, backoff httpclient.BackoffConfig, loc *location.Manager) (cycle.Source, chart.Renderer) {
	renderer := chart.Renderer{BaseURL: cfg.ChartBaseURL}
	if cfg.PayloadKind == string(cycle.KindChart) {
		opts := []chart.SourceOption{chart.WithPoints(cfg.ChartPoints), chart.WithBackoff(backoff)}
		if cfg.ChartBaseURL != "" {
			opts = append(opts, chart.WithBaseURL(cfg.ChartBaseURL))
		}
		src := chart.NewSource(client, opts...)
		return src, src.Renderer()
	}

	var p weather.Provider
	switch cfg.WeatherProvider {
	case "openmeteo":
		p = providers.NewOpenMeteoProvider(client, cfg.OpenMeteoURL, backoff)
	case "weatherapi":
		p = providers.NewWeatherAPIProvider(client, cfg.WeatherAPIKey, cfg.WeatherAPIURL, backoff)
	default:
		p = providers.NewOpenWeatherProvider(client, cfg.OpenWeatherAPIKey, cfg.OpenWeatherURL, backoff)
	}
	return providers.NewSource(p, loc), renderer
}

// Close stops the cycle and releases the store.
func (a *app) Close() {
	a.cycle.Close()
	a.loc.Close()
	if err := a.store.Close(); err != nil {
		log.Printf("WARN: close store: %v", err)
	}
}
