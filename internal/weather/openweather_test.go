package weather

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

const currentBody = `{
	"main": {"temp": 55.2, "feels_like": 52.1, "humidity": 80},
	"weather": [{"main": "Rain", "description": "light rain"}],
	"dt": 1736031600
}`

const forecastBody = `{
	"list": [
		{"dt": 1736110800, "main": {"temp": 48.3, "feels_like": 45.0, "humidity": 85}, "weather": [{"description": "overcast clouds"}]},
		{"dt": 1736121600, "main": {"temp": 50.1, "feels_like": 47.2, "humidity": 82}, "weather": [{"description": "scattered clouds"}]}
	]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) (*OpenWeatherClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewOpenWeatherClient("test-key", "imperial")
	client.baseURL = srv.URL
	return client, srv
}

func TestCurrentParsesResponse(t *testing.T) {
	var gotPath string
	var gotQuery map[string]string

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = map[string]string{
			"q":     r.URL.Query().Get("q"),
			"appid": r.URL.Query().Get("appid"),
			"units": r.URL.Query().Get("units"),
		}
		w.Write([]byte(currentBody))
	})

	obs, err := client.Current(context.Background(), "Seattle")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/weather" {
		t.Errorf("expected path /weather, got %s", gotPath)
	}
	want := map[string]string{"q": "Seattle", "appid": "test-key", "units": "imperial"}
	for k, v := range want {
		if gotQuery[k] != v {
			t.Errorf("query %s: expected %q, got %q", k, v, gotQuery[k])
		}
	}

	if obs.City != "Seattle" {
		t.Errorf("expected city Seattle, got %s", obs.City)
	}
	if obs.Temperature != 55.2 || obs.FeelsLike != 52.1 || obs.Humidity != 80 {
		t.Errorf("unexpected reading: %+v", obs)
	}
	if obs.Description != "light rain" {
		t.Errorf("expected description %q, got %q", "light rain", obs.Description)
	}
	if obs.ObservedAt.Unix() != 1736031600 {
		t.Errorf("expected observed_at 1736031600, got %d", obs.ObservedAt.Unix())
	}
	if _, ok := obs.Raw["main"]; !ok {
		t.Error("expected raw payload to be retained")
	}
}

func TestForecastParsesFeed(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/forecast" {
			t.Errorf("expected path /forecast, got %s", r.URL.Path)
		}
		w.Write([]byte(forecastBody))
	})

	samples, err := client.Forecast(context.Background(), "Seattle")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(samples))
	}
	first := samples[0]
	if first.City != "Seattle" || first.Timestamp != 1736110800 {
		t.Errorf("unexpected first sample: %+v", first)
	}
	if first.Temperature != 48.3 || first.Description != "overcast clouds" {
		t.Errorf("unexpected first sample values: %+v", first)
	}
}

func TestCurrentNonOKStatusIsNetworkError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "city not found", http.StatusNotFound)
	})

	_, err := client.Current(context.Background(), "Nowhere")
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
}

func TestCurrentTransportFailureIsNetworkError(t *testing.T) {
	client, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	_, err := client.Current(context.Background(), "Seattle")
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
}

func TestCurrentRequiresAPIKey(t *testing.T) {
	client := NewOpenWeatherClient("", "imperial")
	if _, err := client.Current(context.Background(), "Seattle"); err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestCurrentWithoutConditionsList(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"main": {"temp": 10}, "weather": [], "dt": 1736031600}`))
	})

	obs, err := client.Current(context.Background(), "Seattle")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if obs.Description != "" {
		t.Errorf("expected empty description, got %q", obs.Description)
	}
}
