package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/i474232898/datacycle/internal/cycle"
	"github.com/i474232898/datacycle/internal/httpclient"
	"github.com/i474232898/datacycle/internal/weather"
)

var ghent = weather.Coordinate{Lat: 51.05, Lon: 3.72}

func jsonServer(t *testing.T, body string, check func(r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenWeatherFetchFullPayload(t *testing.T) {
	srv := jsonServer(t, `{
		"main": {"temp": 12.5, "humidity": 81},
		"weather": [{"main": "Rain", "description": "light rain"}, {"main": "Mist", "description": "mist"}]
	}`, func(r *http.Request) {
		require.Equal(t, "/data/2.5/weather", r.URL.Path)
		q := r.URL.Query()
		require.Equal(t, "51.05", q.Get("lat"))
		require.Equal(t, "3.72", q.Get("lon"))
		require.Equal(t, "metric", q.Get("units"))
		require.Equal(t, "secret", q.Get("appid"))
	})

	p := NewOpenWeatherProvider(srv.Client(), "secret", srv.URL, httpclient.DefaultBackoff)
	r, err := p.Fetch(context.Background(), ghent)
	require.NoError(t, err)
	require.NotNil(t, r.Temperature)
	require.InDelta(t, 12.5, *r.Temperature, 1e-9)
	require.NotNil(t, r.Humidity)
	require.Equal(t, 81, *r.Humidity)
	require.NotNil(t, r.Description)
	require.Equal(t, "light rain", *r.Description)
	require.Equal(t, weather.ConditionRain, r.Condition)
}

func TestOpenWeatherFetchOptionalFields(t *testing.T) {
	cases := map[string]string{
		"empty object":   `{}`,
		"null main":      `{"main": null, "weather": []}`,
		"null values":    `{"main": {"temp": null, "humidity": null}, "weather": [{"description": null}]}`,
		"no weather key": `{"main": {}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			srv := jsonServer(t, body, nil)
			p := NewOpenWeatherProvider(srv.Client(), "k", srv.URL, httpclient.DefaultBackoff)
			r, err := p.Fetch(context.Background(), ghent)
			require.NoError(t, err)
			require.Nil(t, r.Temperature)
			require.Nil(t, r.Humidity)
			require.Nil(t, r.Description)
			require.Equal(t, weather.ConditionUnknown, r.Condition)
		})
	}
}

func TestOpenWeatherFetchErrors(t *testing.T) {
	t.Run("missing key", func(t *testing.T) {
		p := NewOpenWeatherProvider(http.DefaultClient, "", "", httpclient.DefaultBackoff)
		_, err := p.Fetch(context.Background(), ghent)
		require.ErrorIs(t, err, cycle.ErrConfig)
		require.Equal(t, cycle.KindConfig, cycle.Classify(err))
	})

	t.Run("malformed json", func(t *testing.T) {
		srv := jsonServer(t, `{"main": {"temp": "warm"}`, nil)
		p := NewOpenWeatherProvider(srv.Client(), "k", srv.URL, httpclient.DefaultBackoff)
		_, err := p.Fetch(context.Background(), ghent)
		require.ErrorIs(t, err, cycle.ErrDecode)
	})

	t.Run("unauthorized", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()
		p := NewOpenWeatherProvider(srv.Client(), "bad", srv.URL, httpclient.DefaultBackoff)
		_, err := p.Fetch(context.Background(), ghent)
		require.ErrorIs(t, err, cycle.ErrNetwork)
	})
}

func TestOpenMeteoFetch(t *testing.T) {
	srv := jsonServer(t, `{"current": {"temperature_2m": -2.0, "relative_humidity_2m": 90, "weather_code": 73}}`,
		func(r *http.Request) {
			require.Equal(t, "51.05", r.URL.Query().Get("latitude"))
			require.Contains(t, r.URL.Query().Get("current"), "weather_code")
		})

	p := NewOpenMeteoProvider(srv.Client(), srv.URL, httpclient.DefaultBackoff)
	r, err := p.Fetch(context.Background(), ghent)
	require.NoError(t, err)
	require.InDelta(t, -2.0, *r.Temperature, 1e-9)
	require.Equal(t, 90, *r.Humidity)
	require.Equal(t, weather.ConditionSnow, r.Condition)
	require.Equal(t, "snow", *r.Description)
}

func TestOpenMeteoMissingCurrent(t *testing.T) {
	srv := jsonServer(t, `{"latitude": 51}`, nil)
	p := NewOpenMeteoProvider(srv.Client(), srv.URL, httpclient.DefaultBackoff)
	r, err := p.Fetch(context.Background(), ghent)
	require.NoError(t, err)
	require.Nil(t, r.Temperature)
	require.Equal(t, weather.ConditionUnknown, r.Condition)
}

type fixedLocator struct {
	at weather.Coordinate
	ok bool
}

func (l fixedLocator) Coordinate() (weather.Coordinate, bool) { return l.at, l.ok }

func TestSourceRequiresLocation(t *testing.T) {
	srv := jsonServer(t, `{"main": {"temp": 20}}`, nil)
	prov := NewOpenWeatherProvider(srv.Client(), "k", srv.URL, httpclient.DefaultBackoff)

	_, err := NewSource(prov, fixedLocator{}).Fetch(context.Background())
	require.ErrorIs(t, err, cycle.ErrLocationUnavailable)

	p, err := NewSource(prov, fixedLocator{at: ghent, ok: true}).Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, cycle.KindWeather, p.Kind)
	require.NotNil(t, p.Weather)
	require.InDelta(t, 20.0, *p.Weather.Temperature, 1e-9)
	require.Equal(t, "openweathermap", NewSource(prov, fixedLocator{}).Name())
}

func TestWeatherAPIFetch(t *testing.T) {
	srv := jsonServer(t, `{"current": {"temp_c": 18.2, "humidity": 40, "condition": {"text": "Partly cloudy"}}}`,
		func(r *http.Request) {
			require.Equal(t, "/current.json", r.URL.Path)
			require.Equal(t, "secret", r.URL.Query().Get("key"))
			require.Equal(t, "51.050000,3.720000", r.URL.Query().Get("q"))
		})

	p := NewWeatherAPIProvider(srv.Client(), "secret", srv.URL, httpclient.DefaultBackoff)
	r, err := p.Fetch(context.Background(), ghent)
	require.NoError(t, err)
	require.InDelta(t, 18.2, *r.Temperature, 1e-9)
	require.Equal(t, 40, *r.Humidity)
	require.Equal(t, "Partly cloudy", *r.Description)
	require.Equal(t, weather.ConditionCloudy, r.Condition)
	require.Equal(t, "18.2°C, 40% humidity, Partly cloudy", r.Summary())
}

func TestWeatherAPIRequiresKey(t *testing.T) {
	p := NewWeatherAPIProvider(http.DefaultClient, "", "", httpclient.DefaultBackoff)
	_, err := p.Fetch(context.Background(), ghent)
	require.ErrorIs(t, err, cycle.ErrConfig)
}
