// Package dashboard runs the per-city collection pass: fetch current
// conditions and forecast, archive, persist, print.
package dashboard

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"weather-dashboard/internal/forecast"
	"weather-dashboard/internal/mqtt"
	"weather-dashboard/internal/objectstore"
	"weather-dashboard/internal/tablestore"
	"weather-dashboard/internal/weather"
)

type Dashboard struct {
	provider  weather.Provider
	archiver  *objectstore.Archiver
	tables    tablestore.Store
	publisher *mqtt.Publisher
	cities    []string
	interval  time.Duration
	out       io.Writer
	now       func() time.Time

	mu           sync.RWMutex
	latest       map[string]*weather.Observation
	daily        map[string][]weather.ForecastSample
	isCollecting bool
}

type Config struct {
	Provider  weather.Provider
	Archiver  *objectstore.Archiver
	Tables    tablestore.Store
	Publisher *mqtt.Publisher
	Cities    []string
	Interval  time.Duration

	// Out receives the printed summaries; defaults to stdout.
	Out io.Writer

	// Now is the clock used for archive keys and daily selection;
	// defaults to time.Now.
	Now func() time.Time
}

func New(cfg Config) *Dashboard {
	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Dashboard{
		provider:  cfg.Provider,
		archiver:  cfg.Archiver,
		tables:    cfg.Tables,
		publisher: cfg.Publisher,
		cities:    cfg.Cities,
		interval:  cfg.Interval,
		out:       out,
		now:       now,
		latest:    make(map[string]*weather.Observation),
		daily:     make(map[string][]weather.ForecastSample),
	}
}

// RunOnce processes every configured city sequentially. A failure in one
// city never aborts the rest; the returned error reports how many cities
// had failures so the process can exit non-zero.
func (d *Dashboard) RunOnce(ctx context.Context) error {
	failed := 0
	for _, city := range d.cities {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := d.collectCity(ctx, city); err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d cities had failures", failed, len(d.cities))
	}
	return nil
}

// Start runs collection passes on the configured interval until the
// context is cancelled.
func (d *Dashboard) Start(ctx context.Context) error {
	d.mu.Lock()
	d.isCollecting = true
	d.mu.Unlock()

	log.Printf("Starting collection with interval %s", d.interval)

	if err := d.RunOnce(ctx); err != nil {
		log.Printf("Collection pass: %v", err)
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Collection stopped")
			d.mu.Lock()
			d.isCollecting = false
			d.mu.Unlock()
			return nil
		case <-ticker.C:
			if err := d.RunOnce(ctx); err != nil {
				log.Printf("Collection pass: %v", err)
			}
		}
	}
}

func (d *Dashboard) collectCity(ctx context.Context, city string) error {
	var firstErr error
	fail := func(err error) {
		if firstErr == nil {
			firstErr = err
		}
	}

	now := d.now()

	fmt.Fprintf(d.out, "\nFetching current weather for %s...\n", city)
	obs, err := d.provider.Current(ctx, city)
	if err != nil {
		log.Printf("Error fetching weather data for %s: %v", city, err)
		fail(err)
	} else if obs == nil {
		// Absent payload without an error still counts as a fetch
		// failure for this city.
		log.Printf("No weather data returned for %s", city)
		fail(fmt.Errorf("no weather data for %s", city))
	} else {
		d.printObservation(obs)
		d.setLatest(city, obs)

		if d.publisher != nil {
			if err := d.publisher.PublishObservation(obs); err != nil {
				log.Printf("Error publishing observation for %s: %v", city, err)
			}
		}

		if d.archiver != nil {
			key, err := d.archiver.SaveObservation(ctx, city, obs, now)
			if err != nil {
				log.Printf("Error archiving weather data for %s: %v", city, err)
				fail(err)
			} else {
				fmt.Fprintf(d.out, "Current weather data for %s saved to %s\n", city, key)
			}
		}
	}

	fmt.Fprintf(d.out, "\nFetching 5-day forecast for %s...\n", city)
	samples, err := d.provider.Forecast(ctx, city)
	if err != nil {
		log.Printf("Error fetching forecast data for %s: %v", city, err)
		fmt.Fprintf(d.out, "Failed to fetch forecast data for %s\n", city)
		fail(err)
		return firstErr
	}

	if d.tables != nil {
		records, err := tablestore.BuildRecords(city, samples)
		if err != nil {
			log.Printf("Error building forecast records for %s: %v", city, err)
			fail(err)
		} else if err := d.tables.PutRecords(ctx, records); err != nil {
			log.Printf("Error saving forecast for %s: %v", city, err)
			fail(err)
		} else {
			fmt.Fprintf(d.out, "Forecast data for %s saved to the table store\n", city)
		}
	}

	daily := forecast.SelectDaily(samples, now, forecast.DefaultDays)
	d.setDaily(city, daily)
	for _, sample := range daily {
		fmt.Fprintf(d.out, "%s: %.1f°F, %s\n",
			sample.Time().In(now.Location()).Format("2006-01-02 15:04"),
			sample.Temperature, sample.Description)
	}

	return firstErr
}

func (d *Dashboard) printObservation(obs *weather.Observation) {
	fmt.Fprintf(d.out, "Current Temperature: %.1f°F\n", obs.Temperature)
	fmt.Fprintf(d.out, "Feels like: %.1f°F\n", obs.FeelsLike)
	fmt.Fprintf(d.out, "Humidity: %.0f%%\n", obs.Humidity)
	fmt.Fprintf(d.out, "Conditions: %s\n", obs.Description)
}

func (d *Dashboard) setLatest(city string, obs *weather.Observation) {
	d.mu.Lock()
	d.latest[city] = obs
	d.mu.Unlock()
}

func (d *Dashboard) setDaily(city string, daily []weather.ForecastSample) {
	d.mu.Lock()
	d.daily[city] = daily
	d.mu.Unlock()
}

// Latest returns the most recent observation seen for a city, if any.
func (d *Dashboard) Latest(city string) *weather.Observation {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.latest[city]
}

// Daily returns the last computed daily-forecast selection for a city.
func (d *Dashboard) Daily(city string) []weather.ForecastSample {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.daily[city]
}

func (d *Dashboard) Cities() []string {
	return d.cities
}

func (d *Dashboard) IsCollecting() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.isCollecting
}

func (d *Dashboard) Stop() {
	if d.publisher != nil {
		d.publisher.Close()
	}
}
