package dashboard

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"weather-dashboard/internal/objectstore"
	"weather-dashboard/internal/tablestore"
	"weather-dashboard/internal/weather"
)

type fakeProvider struct {
	observations map[string]*weather.Observation
	forecasts    map[string][]weather.ForecastSample
	currentErr   map[string]error
	forecastErr  map[string]error
}

func (f *fakeProvider) Current(ctx context.Context, city string) (*weather.Observation, error) {
	if err := f.currentErr[city]; err != nil {
		return nil, err
	}
	return f.observations[city], nil
}

func (f *fakeProvider) Forecast(ctx context.Context, city string) ([]weather.ForecastSample, error) {
	if err := f.forecastErr[city]; err != nil {
		return nil, err
	}
	return f.forecasts[city], nil
}

type blobPut struct {
	key  string
	body []byte
}

type fakeBlobStore struct {
	puts []blobPut
}

func (f *fakeBlobStore) Put(ctx context.Context, key string, body []byte, contentType string) error {
	f.puts = append(f.puts, blobPut{key: key, body: body})
	return nil
}

type fakeTableStore struct {
	ensureCalls int
	records     map[string]tablestore.Record
	putErr      error
}

func newFakeTableStore() *fakeTableStore {
	return &fakeTableStore{records: make(map[string]tablestore.Record)}
}

func (f *fakeTableStore) EnsureTable(ctx context.Context) error {
	f.ensureCalls++
	return nil
}

func (f *fakeTableStore) PutRecords(ctx context.Context, records []tablestore.Record) error {
	if f.putErr != nil {
		return f.putErr
	}
	for _, r := range records {
		f.records[r.CityDate] = r
	}
	return nil
}

func (f *fakeTableStore) GetRecord(ctx context.Context, cityDate string) (*tablestore.Record, error) {
	r, ok := f.records[cityDate]
	if !ok {
		return nil, tablestore.ErrNotFound
	}
	return &r, nil
}

var testNow = time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)

func seattleObservation() *weather.Observation {
	return &weather.Observation{
		City:        "Seattle",
		ObservedAt:  testNow,
		Temperature: 55.2,
		FeelsLike:   52.1,
		Humidity:    80,
		Description: "light rain",
		Raw: map[string]any{
			"main":    map[string]any{"temp": 55.2, "feels_like": 52.1, "humidity": 80},
			"weather": []any{map[string]any{"description": "light rain"}},
		},
	}
}

func seattleForecast() []weather.ForecastSample {
	day1 := time.Date(2025, 1, 16, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, 1, 17, 0, 0, 0, 0, time.UTC)
	return []weather.ForecastSample{
		{City: "Seattle", Timestamp: day1.Unix(), Temperature: 48.3, FeelsLike: 45.0, Humidity: 85, Description: "overcast clouds"},
		{City: "Seattle", Timestamp: day1.Add(3 * time.Hour).Unix(), Temperature: 50.1, FeelsLike: 47.2, Humidity: 82, Description: "scattered clouds"},
		{City: "Seattle", Timestamp: day2.Unix(), Temperature: 46.0, FeelsLike: 43.5, Humidity: 90, Description: "moderate rain"},
	}
}

func TestRunOnceEndToEnd(t *testing.T) {
	provider := &fakeProvider{
		observations: map[string]*weather.Observation{"Seattle": seattleObservation()},
		forecasts:    map[string][]weather.ForecastSample{"Seattle": seattleForecast()},
	}
	blobs := &fakeBlobStore{}
	tables := newFakeTableStore()
	var out bytes.Buffer

	dash := New(Config{
		Provider: provider,
		Archiver: objectstore.NewArchiver(blobs, "weather-data"),
		Tables:   tables,
		Cities:   []string{"Seattle"},
		Out:      &out,
		Now:      func() time.Time { return testNow },
	})

	if err := dash.RunOnce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	printed := out.String()
	if !strings.Contains(printed, "55.2°F") {
		t.Errorf("expected summary to contain 55.2°F, got:\n%s", printed)
	}
	if !strings.Contains(printed, "light rain") {
		t.Errorf("expected summary to contain light rain, got:\n%s", printed)
	}

	// Exactly one archive write under the timestamped per-city key.
	if len(blobs.puts) != 1 {
		t.Fatalf("expected 1 object store put, got %d", len(blobs.puts))
	}
	put := blobs.puts[0]
	if put.key != "weather-data/Seattle/20250115-090000.json" {
		t.Errorf("unexpected archive key %q", put.key)
	}
	if !strings.Contains(string(put.body), `"timestamp":"20250115-090000"`) {
		t.Errorf("expected injected timestamp in body, got %s", put.body)
	}

	// One table record per forecast sample, keyed city#epoch.
	if len(tables.records) != 3 {
		t.Fatalf("expected 3 table records, got %d", len(tables.records))
	}
	key := tablestore.Key("Seattle", seattleForecast()[0].Timestamp)
	record, err := tables.GetRecord(context.Background(), key)
	if err != nil {
		t.Fatalf("expected record %s: %v", key, err)
	}
	if record.Temperature != "48.3" {
		t.Errorf("expected exact decimal 48.3, got %q", record.Temperature)
	}

	// Daily selection: one line per distinct future date.
	daily := dash.Daily("Seattle")
	if len(daily) != 2 {
		t.Fatalf("expected 2 daily entries, got %d", len(daily))
	}
	if daily[0].Description != "overcast clouds" || daily[1].Description != "moderate rain" {
		t.Errorf("expected first sample of each day, got %+v", daily)
	}

	if obs := dash.Latest("Seattle"); obs == nil || obs.Temperature != 55.2 {
		t.Errorf("expected latest observation to be retained, got %+v", obs)
	}
}

func TestRunOnceCityFailureDoesNotAbortLoop(t *testing.T) {
	provider := &fakeProvider{
		observations: map[string]*weather.Observation{"Seattle": seattleObservation()},
		forecasts:    map[string][]weather.ForecastSample{"Seattle": seattleForecast()},
		currentErr:   map[string]error{"Gotham": weather.ErrNetwork},
		forecastErr:  map[string]error{"Gotham": weather.ErrNetwork},
	}
	blobs := &fakeBlobStore{}
	tables := newFakeTableStore()
	var out bytes.Buffer

	dash := New(Config{
		Provider: provider,
		Archiver: objectstore.NewArchiver(blobs, "weather-data"),
		Tables:   tables,
		Cities:   []string{"Gotham", "Seattle"},
		Out:      &out,
		Now:      func() time.Time { return testNow },
	})

	err := dash.RunOnce(context.Background())
	if err == nil {
		t.Fatal("expected an error reporting the failed city")
	}
	if !strings.Contains(err.Error(), "1 of 2") {
		t.Errorf("expected failure accounting in error, got %v", err)
	}

	// Seattle was still processed after Gotham failed.
	if len(blobs.puts) != 1 {
		t.Errorf("expected Seattle's archive write, got %d puts", len(blobs.puts))
	}
	if len(tables.records) != 3 {
		t.Errorf("expected Seattle's table records, got %d", len(tables.records))
	}
}

func TestRunOnceAbsentObservationDoesNotAbortLoop(t *testing.T) {
	// A provider may yield no data and no error; the city is counted
	// as failed but the pass keeps going.
	provider := &fakeProvider{
		observations: map[string]*weather.Observation{
			"Gotham":  nil,
			"Seattle": seattleObservation(),
		},
		forecasts: map[string][]weather.ForecastSample{
			"Gotham":  seattleForecast(),
			"Seattle": seattleForecast(),
		},
	}
	blobs := &fakeBlobStore{}
	tables := newFakeTableStore()
	var out bytes.Buffer

	dash := New(Config{
		Provider: provider,
		Archiver: objectstore.NewArchiver(blobs, "weather-data"),
		Tables:   tables,
		Cities:   []string{"Gotham", "Seattle"},
		Out:      &out,
		Now:      func() time.Time { return testNow },
	})

	err := dash.RunOnce(context.Background())
	if err == nil {
		t.Fatal("expected an error for the city with no data")
	}
	if !strings.Contains(err.Error(), "1 of 2") {
		t.Errorf("expected failure accounting in error, got %v", err)
	}

	// Only Seattle's reading was archived; nothing for Gotham.
	if len(blobs.puts) != 1 {
		t.Fatalf("expected 1 archive write, got %d", len(blobs.puts))
	}
	if blobs.puts[0].key != "weather-data/Seattle/20250115-090000.json" {
		t.Errorf("unexpected archive key %q", blobs.puts[0].key)
	}
	if dash.Latest("Gotham") != nil {
		t.Error("expected no latest observation for the city with no data")
	}
}

func TestRunOnceEmptyForecastWritesNothing(t *testing.T) {
	provider := &fakeProvider{
		observations: map[string]*weather.Observation{"Seattle": seattleObservation()},
		forecasts:    map[string][]weather.ForecastSample{"Seattle": nil},
	}
	tables := newFakeTableStore()
	var out bytes.Buffer

	dash := New(Config{
		Provider: provider,
		Tables:   tables,
		Cities:   []string{"Seattle"},
		Out:      &out,
		Now:      func() time.Time { return testNow },
	})

	if err := dash.RunOnce(context.Background()); err == nil {
		t.Fatal("expected an error for the empty forecast payload")
	}
	if len(tables.records) != 0 {
		t.Fatalf("expected zero table writes, got %d", len(tables.records))
	}
}

func TestRunOnceStorageFailureIsSurfacedNotFatal(t *testing.T) {
	provider := &fakeProvider{
		observations: map[string]*weather.Observation{"Seattle": seattleObservation(), "Boston": seattleObservation()},
		forecasts:    map[string][]weather.ForecastSample{"Seattle": seattleForecast(), "Boston": seattleForecast()},
	}
	tables := newFakeTableStore()
	tables.putErr = tablestore.ErrWrite
	var out bytes.Buffer

	dash := New(Config{
		Provider: provider,
		Tables:   tables,
		Cities:   []string{"Seattle", "Boston"},
		Out:      &out,
		Now:      func() time.Time { return testNow },
	})

	err := dash.RunOnce(context.Background())
	if err == nil {
		t.Fatal("expected an error when table writes fail")
	}
	// Both cities attempted despite the failing store.
	if !strings.Contains(err.Error(), "2 of 2") {
		t.Errorf("expected both cities accounted as failed, got %v", err)
	}
}
