package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
)

const defaultBaseURL = "https://api.openweathermap.org/data/2.5"

type OpenWeatherClient struct {
	apiKey  string
	units   string
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

var _ Provider = (*OpenWeatherClient)(nil)

func NewOpenWeatherClient(apiKey, units string) *OpenWeatherClient {
	if units == "" {
		units = "imperial"
	}
	return &OpenWeatherClient{
		apiKey:  apiKey,
		units:   units,
		baseURL: defaultBaseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "openweather",
			Timeout: 30 * time.Second,
		}),
	}
}

type conditionsPayload struct {
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  float64 `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Dt int64 `json:"dt"`
}

type forecastPayload struct {
	List []conditionsPayload `json:"list"`
}

// Current fetches the current conditions for a city and keeps the raw
// decoded payload alongside the typed fields.
func (c *OpenWeatherClient) Current(ctx context.Context, city string) (*Observation, error) {
	body, err := c.get(ctx, "/weather", city)
	if err != nil {
		return nil, err
	}

	var payload conditionsPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("openweather decode: %w", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("openweather decode: %w", err)
	}

	observedAt := time.Now()
	if payload.Dt != 0 {
		observedAt = time.Unix(payload.Dt, 0)
	}

	return &Observation{
		City:        city,
		ObservedAt:  observedAt,
		Temperature: payload.Main.Temp,
		FeelsLike:   payload.Main.FeelsLike,
		Humidity:    payload.Main.Humidity,
		Description: description(payload),
		Raw:         raw,
	}, nil
}

// Forecast fetches the 5-day/3-hour forecast feed for a city. Samples
// come back in the provider's order, ascending by timestamp.
func (c *OpenWeatherClient) Forecast(ctx context.Context, city string) ([]ForecastSample, error) {
	body, err := c.get(ctx, "/forecast", city)
	if err != nil {
		return nil, err
	}

	var payload forecastPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("openweather decode: %w", err)
	}

	samples := make([]ForecastSample, 0, len(payload.List))
	for _, entry := range payload.List {
		samples = append(samples, ForecastSample{
			City:        city,
			Timestamp:   entry.Dt,
			Temperature: entry.Main.Temp,
			FeelsLike:   entry.Main.FeelsLike,
			Humidity:    entry.Main.Humidity,
			Description: description(entry),
		})
	}
	return samples, nil
}

func (c *OpenWeatherClient) get(ctx context.Context, path, city string) ([]byte, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("openweather api key is empty")
	}
	if city == "" {
		return nil, fmt.Errorf("openweather city is empty")
	}

	query := url.Values{}
	query.Set("q", city)
	query.Set("appid", c.apiKey)
	query.Set("units", c.units)

	endpoint := c.baseURL + path + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("openweather request: %w", err)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("%w: bad status %s", ErrNetwork, resp.Status)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
		}
		return body, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: circuit open: %v", ErrNetwork, err)
		}
		return nil, err
	}

	return result.([]byte), nil
}

func description(p conditionsPayload) string {
	if len(p.Weather) > 0 {
		return p.Weather[0].Description
	}
	return ""
}
