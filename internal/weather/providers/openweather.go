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

// DefaultOpenWeatherBaseURL is the OpenWeatherMap API root.
const DefaultOpenWeatherBaseURL = "https://api.openweathermap.org"

// OpenWeatherProvider implements the weather.Provider interface for OpenWeatherMap.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg httpclient.Config
	circuit *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(client *http.Client, apiKey, baseURL string, backoff httpclient.BackoffConfig) *OpenWeatherProvider {
	if baseURL == "" {
		baseURL = DefaultOpenWeatherBaseURL
	}
	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: baseURL,
		httpCfg: httpclient.Config{
			Client:  client,
			Backoff: backoff,
		},
		circuit: httpclient.NewBreaker("openweather"),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

// openWeatherPayload is the subset of the current-weather response we read.
// Every field may be missing or null.
type openWeatherPayload struct {
	Main *struct {
		Temp     *float64 `json:"temp"`
		Humidity *int     `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Main        *string `json:"main"`
		Description *string `json:"description"`
	} `json:"weather"`
}

func (p *OpenWeatherProvider) Fetch(ctx context.Context, at weather.Coordinate) (weather.Reading, error) {
	if p.apiKey == "" {
		return weather.Reading{}, fmt.Errorf("%w: openweather api key is not configured", cycle.ErrConfig)
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("lat", strconv.FormatFloat(at.Lat, 'f', -1, 64))
		values.Set("lon", strconv.FormatFloat(at.Lon, 'f', -1, 64))
		values.Set("units", "metric")
		values.Set("appid", p.apiKey)

		u := fmt.Sprintf("%s/data/2.5/weather?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := httpclient.Do(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.Reading{}, err
	}
	defer resp.Body.Close()

	var payload openWeatherPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Reading{}, fmt.Errorf("%w: openweather response: %v", cycle.ErrDecode, err)
	}

	reading := weather.Reading{Condition: weather.ConditionUnknown}
	if payload.Main != nil {
		reading.Temperature = payload.Main.Temp
		reading.Humidity = payload.Main.Humidity
	}
	// Only the first weather entry is meaningful.
	if len(payload.Weather) > 0 {
		first := payload.Weather[0]
		reading.Description = first.Description
		reading.Condition = mapOpenWeatherCondition(first.Main, first.Description)
	}
	return reading, nil
}

func mapOpenWeatherCondition(main, description *string) weather.Condition {
	if main != nil {
		switch *main {
		case "Clear":
			return weather.ConditionClear
		case "Clouds":
			return weather.ConditionCloudy
		case "Rain", "Drizzle":
			return weather.ConditionRain
		case "Snow":
			return weather.ConditionSnow
		case "Thunderstorm":
			return weather.ConditionStorm
		case "Mist", "Fog", "Haze":
			return weather.ConditionMist
		}
	}
	if description != nil {
		return weather.ConditionFromDescription(*description)
	}
	return weather.ConditionUnknown
}
