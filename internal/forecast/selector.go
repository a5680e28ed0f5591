// Package forecast reduces the provider's 3-hour forecast feed into
// per-day summaries.
package forecast

import (
	"time"

	"weather-dashboard/internal/weather"
)

// DefaultDays is how many future days a 5-day feed can cover.
const DefaultDays = 5

// SelectDaily picks at most limit samples out of a feed ordered by
// ascending timestamp, one per future calendar day. The chosen sample
// for a day is the first one encountered in the feed, not a daily
// aggregate. Samples dated today or earlier are skipped. Dates are
// evaluated in now's location.
func SelectDaily(samples []weather.ForecastSample, now time.Time, limit int) []weather.ForecastSample {
	if limit <= 0 {
		limit = DefaultDays
	}

	loc := now.Location()
	today := dateOf(now)

	var daily []weather.ForecastSample
	var lastDate time.Time
	for _, sample := range samples {
		date := dateOf(sample.Time().In(loc))
		if !date.After(today) {
			continue
		}
		if len(daily) > 0 && !date.After(lastDate) {
			continue
		}
		daily = append(daily, sample)
		lastDate = date
		if len(daily) == limit {
			break
		}
	}
	return daily
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
