package weather

import (
	"context"
	"log"
	"sync"
	"time"
)

// HumiditySource fetches a fresh humidity value.
type HumiditySource interface {
	CurrentHumidity(ctx context.Context) (float64, error)
}

// HumidityCache refetches humidity at most once per refresh interval and
// falls back to the last good value when a lookup fails.
type HumidityCache struct {
	source  HumiditySource
	refresh time.Duration
	now     func() time.Time

	mu        sync.Mutex
	value     float64
	has       bool
	fetchedAt time.Time
}

// NewHumidityCache wraps source. A nil source yields a cache that never
// has a value.
func NewHumidityCache(source HumiditySource, refresh time.Duration) *HumidityCache {
	if refresh <= 0 {
		refresh = time.Hour
	}
	return &HumidityCache{source: source, refresh: refresh, now: time.Now}
}

// Humidity returns the cached humidity, refreshing it first if it is
// stale. ok is false only if no lookup has ever succeeded. It never fails.
func (h *HumidityCache) Humidity(ctx context.Context) (value float64, ok bool) {
	if h == nil || h.source == nil {
		return 0, false
	}

	h.mu.Lock()
	fresh := h.has && h.now().Sub(h.fetchedAt) <= h.refresh
	value, ok = h.value, h.has
	h.mu.Unlock()
	if fresh {
		return value, ok
	}

	v, err := h.source.CurrentHumidity(ctx)
	if err != nil {
		log.Printf("Warning: humidity lookup failed, using last value: %v", err)
		return value, ok
	}

	h.mu.Lock()
	h.value, h.has, h.fetchedAt = v, true, h.now()
	h.mu.Unlock()
	return v, true
}
