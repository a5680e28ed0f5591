package objectstore

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"weather-dashboard/internal/weather"
)

// TimestampLayout is the second-granularity key timestamp. Two runs in
// the same second would collide, which matches the original scheme.
const TimestampLayout = "20060102-150405"

const DefaultPrefix = "weather-data"

// Archiver serializes a reading and writes it under a timestamped
// per-city key.
type Archiver struct {
	store  Store
	prefix string
}

func NewArchiver(store Store, prefix string) *Archiver {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Archiver{store: store, prefix: prefix}
}

// SaveObservation writes the raw reading to {prefix}/{city}/{ts}.json
// with the run timestamp injected into the payload. An absent reading
// returns ErrEmptyReading without touching the store.
func (a *Archiver) SaveObservation(ctx context.Context, city string, obs *weather.Observation, now time.Time) (string, error) {
	if obs == nil {
		return "", ErrEmptyReading
	}

	payload := make(map[string]any, len(obs.Raw)+1)
	for k, v := range obs.Raw {
		payload[k] = v
	}
	if len(payload) == 0 {
		// Raw payload not kept; archive the typed fields instead.
		data, err := json.Marshal(obs)
		if err != nil {
			return "", fmt.Errorf("%w: encode reading: %v", ErrWrite, err)
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return "", fmt.Errorf("%w: encode reading: %v", ErrWrite, err)
		}
	}

	ts := now.Format(TimestampLayout)
	payload["timestamp"] = ts

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: encode reading: %v", ErrWrite, err)
	}

	key := path.Join(a.prefix, city, ts+".json")
	if err := a.store.Put(ctx, key, body, "application/json"); err != nil {
		return "", err
	}
	return key, nil
}
