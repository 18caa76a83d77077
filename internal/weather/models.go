package weather

import (
	"fmt"
	"strings"

	"github.com/i474232898/datacycle/internal/common"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
	ConditionMist    Condition = "mist"
)

// Coordinate is a geographic fix in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon float64 `json:"lon" validate:"gte=-180,lte=180"`
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%f, %f", c.Lat, c.Lon)
}

// Reading is a single current-conditions observation. Every field is optional
// because the upstream services omit them freely.
type Reading struct {
	Temperature *float64  `json:"temperatureC,omitempty"`
	Humidity    *int      `json:"humidityPercent,omitempty"`
	Description *string   `json:"description,omitempty"`
	Condition   Condition `json:"condition"`
}

// Summary renders the reading as a single display line, skipping absent fields.
func (r Reading) Summary() string {
	var parts []string
	if r.Temperature != nil {
		parts = append(parts, fmt.Sprintf("%.1f°C", *r.Temperature))
	}
	if r.Humidity != nil {
		parts = append(parts, fmt.Sprintf("%d%% humidity", *r.Humidity))
	}
	if r.Description != nil && *r.Description != "" {
		parts = append(parts, *r.Description)
	}
	if len(parts) == 0 {
		return "No weather data"
	}
	return strings.Join(parts, ", ")
}

// ConditionFromDescription maps free-text descriptions ("light rain",
// "overcast clouds") onto a Condition.
func ConditionFromDescription(text string) Condition {
	t := strings.ToLower(text)
	switch {
	case t == "":
		return ConditionUnknown
	case common.HasAny(t, "thunder", "storm"):
		return ConditionStorm
	case common.HasAny(t, "rain", "shower", "drizzle"):
		return ConditionRain
	case common.HasAny(t, "snow", "sleet", "blizzard"):
		return ConditionSnow
	case common.HasAny(t, "mist", "fog", "haze"):
		return ConditionMist
	case common.HasAny(t, "cloud", "overcast"):
		return ConditionCloudy
	case common.HasAny(t, "sunny", "clear"):
		return ConditionClear
	default:
		return ConditionUnknown
	}
}
