package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sony/gobreaker"

	"github.com/i474232898/datacycle/internal/cycle"
	"github.com/i474232898/datacycle/internal/httpclient"
	"github.com/i474232898/datacycle/internal/weather"
)

// DefaultWeatherAPIBaseURL is the WeatherAPI.com v1 root.
const DefaultWeatherAPIBaseURL = "https://api.weatherapi.com/v1"

// WeatherAPIProvider implements the weather.Provider interface for WeatherAPI.com.
type WeatherAPIProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg httpclient.Config
	circuit *gobreaker.CircuitBreaker
}

func NewWeatherAPIProvider(client *http.Client, apiKey, baseURL string, backoff httpclient.BackoffConfig) *WeatherAPIProvider {
	if baseURL == "" {
		baseURL = DefaultWeatherAPIBaseURL
	}
	return &WeatherAPIProvider{
		name:    "weatherapi",
		apiKey:  apiKey,
		baseURL: baseURL,
		httpCfg: httpclient.Config{
			Client:  client,
			Backoff: backoff,
		},
		circuit: httpclient.NewBreaker("weatherapi"),
	}
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

type weatherAPIPayload struct {
	Current *struct {
		TempC     *float64 `json:"temp_c"`
		Humidity  *int     `json:"humidity"`
		Condition *struct {
			Text *string `json:"text"`
		} `json:"condition"`
	} `json:"current"`
}

func (p *WeatherAPIProvider) Fetch(ctx context.Context, at weather.Coordinate) (weather.Reading, error) {
	if p.apiKey == "" {
		return weather.Reading{}, fmt.Errorf("%w: weatherapi api key is not configured", cycle.ErrConfig)
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("key", p.apiKey)
		// "q" accepts "lat,lon".
		values.Set("q", fmt.Sprintf("%f,%f", at.Lat, at.Lon))

		u := fmt.Sprintf("%s/current.json?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := httpclient.Do(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.Reading{}, err
	}
	defer resp.Body.Close()

	var payload weatherAPIPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Reading{}, fmt.Errorf("%w: weatherapi response: %v", cycle.ErrDecode, err)
	}

	reading := weather.Reading{Condition: weather.ConditionUnknown}
	if payload.Current == nil {
		return reading, nil
	}
	reading.Temperature = payload.Current.TempC
	reading.Humidity = payload.Current.Humidity
	if c := payload.Current.Condition; c != nil && c.Text != nil {
		reading.Description = c.Text
		reading.Condition = weather.ConditionFromDescription(*c.Text)
	}
	return reading, nil
}
