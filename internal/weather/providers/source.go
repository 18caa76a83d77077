package providers

import (
	"context"

	"github.com/i474232898/datacycle/internal/cycle"
	"github.com/i474232898/datacycle/internal/weather"
)

// Locator reports the current device position, if one is known.
type Locator interface {
	Coordinate() (weather.Coordinate, bool)
}

// Source adapts a weather.Provider to the cycle, fetching for wherever the
// Locator currently says we are.
type Source struct {
	provider weather.Provider
	locator  Locator
}

var _ cycle.Source = (*Source)(nil)

// NewSource creates a location-aware weather Source.
func NewSource(provider weather.Provider, locator Locator) *Source {
	return &Source{provider: provider, locator: locator}
}

func (s *Source) Name() string {
	return s.provider.Name()
}

// Fetch returns cycle.ErrLocationUnavailable until the locator has a fix.
func (s *Source) Fetch(ctx context.Context) (cycle.Payload, error) {
	at, ok := s.locator.Coordinate()
	if !ok {
		return cycle.Payload{}, cycle.ErrLocationUnavailable
	}
	r, err := s.provider.Fetch(ctx, at)
	if err != nil {
		return cycle.Payload{}, err
	}
	return cycle.Payload{Kind: cycle.KindWeather, Weather: &r}, nil
}
