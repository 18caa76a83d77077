package cycle

import (
	"context"
	"time"

	"github.com/i474232898/datacycle/internal/weather"
)

// Kind selects which payload shape a source produces.
type Kind string

const (
	KindChart   Kind = "chart"
	KindWeather Kind = "weather"
)

// State is the lifecycle position of a Cycle.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateLoading       State = "loading"
	StateReady         State = "ready"
	StateRefreshing    State = "refreshing"
	StateFailed        State = "failed"
)

// Payload is the value produced by one successful fetch. Exactly one of
// Series or Weather is set, according to Kind.
type Payload struct {
	Kind    Kind             `json:"kind"`
	Series  []float64        `json:"series,omitempty"`
	Weather *weather.Reading `json:"weather,omitempty"`
}

// Summary is the one-line headline shown above the payload.
func (p Payload) Summary() string {
	switch p.Kind {
	case KindChart:
		return "Fetched Data"
	case KindWeather:
		if p.Weather == nil {
			return "No weather data"
		}
		return p.Weather.Summary()
	default:
		return "Unknown data"
	}
}

// CachedResult is the last known fetched value. Payload and FetchedAt are
// always persisted in the same write.
type CachedResult struct {
	Payload   Payload   `json:"payload"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// LaunchRecord tracks when this install first ran the cycle and when it last
// refreshed successfully.
type LaunchRecord struct {
	ID              string     `json:"id"`
	FirstSeenAt     time.Time  `json:"firstSeenAt"`
	LastRefreshedAt *time.Time `json:"lastRefreshedAt,omitempty"`
}

// Snapshot is the observer-facing view of a Cycle at one instant.
type Snapshot struct {
	State           State      `json:"state"`
	Payload         *Payload   `json:"payload,omitempty"`
	FetchedAt       *time.Time `json:"fetchedAt,omitempty"`
	FirstLaunchedAt *time.Time `json:"firstLaunchedAt,omitempty"`
	LastError       string     `json:"lastError,omitempty"`
	ErrorKind       ErrorKind  `json:"errorKind,omitempty"`
	Active          bool       `json:"active"`
}

// HasData reports whether a payload is available for display.
func (s Snapshot) HasData() bool {
	return s.Payload != nil
}

// Source abstracts a remote data source (chart service, weather API).
type Source interface {
	Name() string
	Fetch(ctx context.Context) (Payload, error)
}

// KV is a durable string-keyed byte store scoped to one install.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// SetBatch writes all entries or none.
	SetBatch(ctx context.Context, entries map[string][]byte) error
}

// LaunchLog is the append-only launch history.
type LaunchLog interface {
	// FirstLaunch returns the record with the smallest FirstSeenAt, or ErrNotFound.
	FirstLaunch(ctx context.Context) (LaunchRecord, error)
	InsertLaunch(ctx context.Context, rec LaunchRecord) error
	TouchLaunch(ctx context.Context, id string, refreshedAt time.Time) error
	ListLaunches(ctx context.Context) ([]LaunchRecord, error)
}

// Store is the contract every local persistence backend must satisfy.
type Store interface {
	KV
	LaunchLog
}

// Timer fires task periodically until stopped.
type Timer interface {
	Start(task func()) error
	Stop()
}

// Keys used in the KV store.
const (
	KeyLastPayload = "last-payload"
	KeyLastUpdated = "last-updated"
	KeyFirstLaunch = "first-launch-timestamp"
	KeyChartSeries = "chart-series"
)
