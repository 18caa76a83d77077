package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/i474232898/datacycle/internal/weather"
)

var validate = validator.New()

type AppConfig struct {
	// PayloadKind selects the data source: "chart" or "weather".
	PayloadKind string `validate:"oneof=chart weather"`

	// WeatherProvider selects the weather API when PayloadKind is weather.
	WeatherProvider   string `validate:"oneof=openweather openmeteo weatherapi"`
	OpenWeatherAPIKey string
	OpenWeatherURL    string
	OpenMeteoURL      string
	WeatherAPIKey     string
	WeatherAPIURL     string

	// GeocoderAPIKey enables reverse geocoding of the current location.
	GeocoderAPIKey string

	// Location is an optional fixed position used until another fix arrives.
	Location *weather.Coordinate

	ChartBaseURL string `validate:"omitempty,url"`
	ChartPoints  int    `validate:"gte=1,lte=100"`

	// RefreshInterval controls how often an active cycle refetches.
	RefreshInterval time.Duration `validate:"gt=0"`
	FetchTimeout    time.Duration `validate:"gt=0"`
	HTTPTimeout     time.Duration `validate:"gt=0"`
	FetchMaxRetries int           `validate:"gte=0,lte=10"`

	// StorePath is the SQLite database file; ":memory:" disables persistence.
	StorePath string `validate:"required"`

	// LogFile, when set, receives a rotated copy of the log.
	LogFile string

	Port string `validate:"required,numeric"`
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.PayloadKind = getenvDefault("PAYLOAD_KIND", "chart")
	cfg.WeatherProvider = getenvDefault("WEATHER_PROVIDER", "openweather")
	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.OpenWeatherURL = os.Getenv("OPENWEATHER_BASE_URL")
	cfg.OpenMeteoURL = os.Getenv("OPENMETEO_BASE_URL")
	cfg.WeatherAPIKey = os.Getenv("WEATHERAPI_API_KEY")
	cfg.WeatherAPIURL = os.Getenv("WEATHERAPI_BASE_URL")
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")
	cfg.ChartBaseURL = os.Getenv("CHART_BASE_URL")
	cfg.ChartPoints = getenvInt("CHART_POINTS", 10)
	cfg.FetchMaxRetries = getenvInt("FETCH_MAX_RETRIES", 0)
	cfg.StorePath = getenvDefault("STORE_PATH", "datacycle.db")
	cfg.LogFile = os.Getenv("LOG_FILE")
	cfg.Port = getenvDefault("PORT", "8080")

	var err error
	// Refresh interval: default one hour.
	if cfg.RefreshInterval, err = getenvDuration("REFRESH_INTERVAL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.FetchTimeout, err = getenvDuration("FETCH_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	loc, err := loadLocation()
	if err != nil {
		return nil, err
	}
	cfg.Location = loc

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.PayloadKind == "weather" && cfg.WeatherProvider == "openweather" && cfg.OpenWeatherAPIKey == "" {
		log.Println("WARN: OPENWEATHER_API_KEY is empty; weather fetches will fail")
	}
	if cfg.PayloadKind == "weather" && cfg.WeatherProvider == "weatherapi" && cfg.WeatherAPIKey == "" {
		log.Println("WARN: WEATHERAPI_API_KEY is empty; weather fetches will fail")
	}

	return cfg, nil
}

func loadLocation() (*weather.Coordinate, error) {
	latStr := os.Getenv("LOCATION_LAT")
	lonStr := os.Getenv("LOCATION_LON")
	if latStr == "" && lonStr == "" {
		return nil, nil
	}
	if latStr == "" || lonStr == "" {
		return nil, fmt.Errorf("LOCATION_LAT and LOCATION_LON must be set together")
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid LOCATION_LAT: %w", err)
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid LOCATION_LON: %w", err)
	}
	c := &weather.Coordinate{Lat: lat, Lon: lon}
	if err := validate.Struct(c); err != nil {
		return nil, fmt.Errorf("invalid location: %w", err)
	}
	return c, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
