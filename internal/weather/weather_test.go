package weather

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hydrowangi-backend/config"
)

func TestClient_CurrentHumidity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "relative_humidity_2m,temperature_2m", r.URL.Query().Get("current"))
		assert.Equal(t, "-6.67778", r.URL.Query().Get("latitude"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"current":{"relative_humidity_2m":82,"temperature_2m":27.1}}`))
	}))
	defer server.Close()

	c := NewClient(config.WeatherConfig{
		BaseURL:   server.URL,
		Latitude:  -6.67778,
		Longitude: 106.85389,
		Timezone:  "Asia/Jakarta",
	})
	h, err := c.CurrentHumidity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 82.0, h)
}

func TestClient_BreakerOpensAfterFailures(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	var states []gobreaker.State
	c := NewClient(config.WeatherConfig{BaseURL: server.URL, BreakerFailures: 2},
		WithStateListener(func(to gobreaker.State) { states = append(states, to) }))
	for i := 0; i < 4; i++ {
		_, err := c.CurrentHumidity(context.Background())
		assert.Error(t, err)
	}
	assert.Equal(t, 2, hits, "open breaker should stop calling upstream")
	assert.Equal(t, []gobreaker.State{gobreaker.StateOpen}, states)
}

// stubSource returns scripted humidity values.
type stubSource struct {
	values []float64
	errs   []error
	calls  int
}

func (s *stubSource) CurrentHumidity(ctx context.Context) (float64, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return 0, s.errs[i]
	}
	return s.values[i], nil
}

func TestHumidityCache(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	src := &stubSource{
		values: []float64{70, 0, 75},
		errs:   []error{nil, errors.New("timeout"), nil},
	}
	cache := NewHumidityCache(src, time.Hour)
	cache.now = func() time.Time { return now }

	v, ok := cache.Humidity(context.Background())
	assert.True(t, ok)
	assert.Equal(t, 70.0, v)

	now = now.Add(30 * time.Minute)
	v, _ = cache.Humidity(context.Background())
	assert.Equal(t, 70.0, v)
	assert.Equal(t, 1, src.calls, "fresh value must not refetch")

	now = now.Add(31 * time.Minute)
	v, ok = cache.Humidity(context.Background())
	assert.True(t, ok)
	assert.Equal(t, 70.0, v, "failed refresh falls back to the last value")
	assert.Equal(t, 2, src.calls)

	v, _ = cache.Humidity(context.Background())
	assert.Equal(t, 75.0, v)
	assert.Equal(t, 3, src.calls)
}

func TestHumidityCache_NoSource(t *testing.T) {
	v, ok := NewHumidityCache(nil, time.Hour).Humidity(context.Background())
	assert.False(t, ok)
	assert.Zero(t, v)
}
