package weather

import (
	"context"
	"errors"
	"time"
)

// ErrNetwork marks transport failures and non-2xx responses from the
// provider. Callers match it with errors.Is.
var ErrNetwork = errors.New("weather provider request failed")

type Provider interface {
	Current(ctx context.Context, city string) (*Observation, error)
	Forecast(ctx context.Context, city string) ([]ForecastSample, error)
}

// Observation is one current-conditions reading for a city.
type Observation struct {
	City        string    `json:"city"`
	ObservedAt  time.Time `json:"observed_at"`
	Temperature float64   `json:"temperature_f"`
	FeelsLike   float64   `json:"feels_like_f"`
	Humidity    float64   `json:"humidity_pct"`
	Description string    `json:"description"`

	// Raw holds the decoded provider payload as returned, kept so the
	// archive write preserves every field the provider sent.
	Raw map[string]any `json:"-"`
}

// ForecastSample is one 3-hour entry from the 5-day forecast feed.
type ForecastSample struct {
	City        string  `json:"city"`
	Timestamp   int64   `json:"timestamp"`
	Temperature float64 `json:"temperature_f"`
	FeelsLike   float64 `json:"feels_like_f"`
	Humidity    float64 `json:"humidity_pct"`
	Description string  `json:"description"`
}

func (s ForecastSample) Time() time.Time {
	return time.Unix(s.Timestamp, 0)
}
