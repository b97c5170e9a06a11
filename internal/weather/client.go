// Package weather looks up the ambient relative humidity stored alongside
// telemetry readings.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"hydrowangi-backend/config"
)

// forecastResponse is the part of the Open-Meteo forecast we read.
type forecastResponse struct {
	Current struct {
		RelativeHumidity float64 `json:"relative_humidity_2m"`
		Temperature      float64 `json:"temperature_2m"`
	} `json:"current"`
}

// Client queries the Open-Meteo current conditions endpoint through a
// circuit breaker.
type Client struct {
	cfg     config.WeatherConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

// Option adjusts the breaker settings of a Client.
type Option func(*gobreaker.Settings)

// WithStateListener calls fn whenever the breaker changes state.
func WithStateListener(fn func(to gobreaker.State)) Option {
	return func(s *gobreaker.Settings) {
		s.OnStateChange = func(_ string, _, to gobreaker.State) { fn(to) }
	}
}

// NewClient creates a new weather client.
func NewClient(cfg config.WeatherConfig, opts ...Option) *Client {
	failures := uint32(cfg.BreakerFailures)
	if failures == 0 {
		failures = 3
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	settings := gobreaker.Settings{
		Name:    "open-meteo",
		Timeout: 5 * time.Minute,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= failures
		},
	}
	for _, opt := range opts {
		opt(&settings)
	}
	return &Client{
		cfg:     cfg,
		client:  &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// CurrentHumidity returns the current relative humidity in percent.
func (c *Client) CurrentHumidity(ctx context.Context) (float64, error) {
	res, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx)
	})
	if err != nil {
		return 0, err
	}
	return res.(float64), nil
}

func (c *Client) fetch(ctx context.Context) (float64, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(c.cfg.Latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(c.cfg.Longitude, 'f', -1, 64))
	q.Set("current", "relative_humidity_2m,temperature_2m")
	q.Set("timezone", c.cfg.Timezone)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return 0, fmt.Errorf("received non-200 status code %d: %s", resp.StatusCode, string(b))
	}

	var out forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("failed to decode forecast: %w", err)
	}
	return out.Current.RelativeHumidity, nil
}
