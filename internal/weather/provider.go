package weather

import (
	"context"
)

// Provider abstracts a current-conditions weather API (e.g. OpenWeatherMap, Open-Meteo).
type Provider interface {
	Name() string
	Fetch(ctx context.Context, at Coordinate) (Reading, error)
}
