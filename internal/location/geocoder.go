package location

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/datacycle/internal/weather"
)

// Geocoder resolves a coordinate to a human-readable address.
type Geocoder interface {
	Reverse(ctx context.Context, at weather.Coordinate) (string, error)
}

// ErrNoAddress is returned when the lookup succeeds but yields nothing usable.
var ErrNoAddress = errors.New("no address found")

// ErrLookupBusy is returned while an earlier lookup still holds the client.
var ErrLookupBusy = errors.New("previous geocoder lookup still running")

// geocoderKeyMu guards the package-level key used by kelvins/geocoder.
var geocoderKeyMu sync.Mutex

// GoogleGeocoder resolves addresses through the Google Geocoding API.
type GoogleGeocoder struct {
	apiKey string
}

// NewGoogleGeocoder returns a Geocoder using apiKey.
func NewGoogleGeocoder(apiKey string) *GoogleGeocoder {
	return &GoogleGeocoder{apiKey: apiKey}
}

// Reverse looks up the address of at. The underlying client has no context
// or timeout, so cancellation only abandons the wait; the call keeps the
// client until it returns. Lookups made meanwhile fail fast with
// ErrLookupBusy rather than queueing behind a hung request.
func (g *GoogleGeocoder) Reverse(ctx context.Context, at weather.Coordinate) (string, error) {
	if g.apiKey == "" {
		return "", errors.New("geocoder api key is not configured")
	}
	if !geocoderKeyMu.TryLock() {
		return "", ErrLookupBusy
	}

	type result struct {
		addrs []geocoder.Address
		err   error
	}
	done := make(chan result, 1)
	go func() {
		geocoder.ApiKey = g.apiKey
		addrs, err := geocoder.GeocodingReverse(geocoder.Location{
			Latitude:  at.Lat,
			Longitude: at.Lon,
		})
		geocoderKeyMu.Unlock()
		done <- result{addrs: addrs, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		if r.err != nil {
			return "", r.err
		}
		if len(r.addrs) == 0 {
			return "", ErrNoAddress
		}
		if addr := FormatAddress(r.addrs[0]); addr != "" {
			return addr, nil
		}
		return "", ErrNoAddress
	}
}

// FormatAddress prefers the provider's formatted address and otherwise joins
// the non-empty street, city, state and country parts.
func FormatAddress(a geocoder.Address) string {
	if s := strings.TrimSpace(a.FormattedAddress); s != "" {
		return s
	}
	parts := make([]string, 0, 4)
	for _, p := range []string{a.Street, a.City, a.State, a.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
