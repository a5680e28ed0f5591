// Package tablestore persists forecast samples keyed by city and
// timestamp, with last-write-wins upsert semantics.
package tablestore

import (
	"fmt"
	"strconv"

	"weather-dashboard/internal/weather"
)

// Record is one stored forecast sample. Numeric weather fields are kept
// as exact decimal strings so rewriting the same source value always
// produces an identical record, regardless of the backing store's
// numeric type.
type Record struct {
	CityDate    string
	City        string
	Timestamp   int64
	Temperature string
	FeelsLike   string
	Humidity    string
	Description string
}

// Key builds the composite primary key, e.g. "Seattle#1736031600".
func Key(city string, epoch int64) string {
	return fmt.Sprintf("%s#%d", city, epoch)
}

// Decimal formats v as the shortest decimal string that parses back to
// exactly v.
func Decimal(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// BuildRecords converts a forecast feed into table records. An empty
// feed returns ErrEmptyForecast so callers skip the write entirely.
func BuildRecords(city string, samples []weather.ForecastSample) ([]Record, error) {
	if len(samples) == 0 {
		return nil, ErrEmptyForecast
	}

	records := make([]Record, 0, len(samples))
	for _, sample := range samples {
		records = append(records, Record{
			CityDate:    Key(city, sample.Timestamp),
			City:        city,
			Timestamp:   sample.Timestamp,
			Temperature: Decimal(sample.Temperature),
			FeelsLike:   Decimal(sample.FeelsLike),
			Humidity:    Decimal(sample.Humidity),
			Description: sample.Description,
		})
	}
	return records, nil
}
