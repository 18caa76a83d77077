package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sony/gobreaker"

	"github.com/i474232898/datacycle/internal/cycle"
	"github.com/i474232898/datacycle/internal/httpclient"
	"github.com/i474232898/datacycle/internal/weather"
)

// DefaultOpenMeteoBaseURL is the keyless Open-Meteo forecast endpoint.
const DefaultOpenMeteoBaseURL = "https://api.open-meteo.com/v1/forecast"

// OpenMeteoProvider implements the weather.Provider interface for Open-Meteo.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	httpCfg httpclient.Config
	circuit *gobreaker.CircuitBreaker
}

func NewOpenMeteoProvider(client *http.Client, baseURL string, backoff httpclient.BackoffConfig) *OpenMeteoProvider {
	if baseURL == "" {
		baseURL = DefaultOpenMeteoBaseURL
	}
	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: baseURL,
		httpCfg: httpclient.Config{
			Client:  client,
			Backoff: backoff,
		},
		circuit: httpclient.NewBreaker("openmeteo"),
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) Fetch(ctx context.Context, at weather.Coordinate) (weather.Reading, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", strconv.FormatFloat(at.Lat, 'f', -1, 64))
		values.Set("longitude", strconv.FormatFloat(at.Lon, 'f', -1, 64))
		values.Set("current", "temperature_2m,relative_humidity_2m,weather_code")

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := httpclient.Do(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.Reading{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		Current *struct {
			Temperature *float64 `json:"temperature_2m"`
			Humidity    *int     `json:"relative_humidity_2m"`
			WeatherCode *int     `json:"weather_code"`
		} `json:"current"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Reading{}, fmt.Errorf("%w: openmeteo response: %v", cycle.ErrDecode, err)
	}

	reading := weather.Reading{Condition: weather.ConditionUnknown}
	if payload.Current == nil {
		return reading, nil
	}
	reading.Temperature = payload.Current.Temperature
	reading.Humidity = payload.Current.Humidity
	if payload.Current.WeatherCode != nil {
		cond, desc := mapOpenMeteoCode(*payload.Current.WeatherCode)
		reading.Condition = cond
		reading.Description = &desc
	}
	return reading, nil
}

// mapOpenMeteoCode maps WMO weather codes (simplified).
func mapOpenMeteoCode(code int) (weather.Condition, string) {
	switch {
	case code == 0:
		return weather.ConditionClear, "clear sky"
	case code >= 1 && code <= 3:
		return weather.ConditionCloudy, "partly cloudy"
	case code == 45 || code == 48:
		return weather.ConditionMist, "fog"
	case (code >= 51 && code <= 67) || (code >= 80 && code <= 82):
		return weather.ConditionRain, "rain"
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return weather.ConditionSnow, "snow"
	case code >= 95:
		return weather.ConditionStorm, "thunderstorm"
	default:
		return weather.ConditionUnknown, "unknown"
	}
}
