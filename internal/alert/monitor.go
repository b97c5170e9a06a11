// Package alert owns the edge-triggered PPM danger state machine.
package alert

import (
	"context"
	"log"
	"sync"
	"time"

	"hydrowangi-backend/internal/threshold"
)

// State is the alert state of the nutrient concentration.
type State string

const (
	StateNormal         State = "normal"
	StateDangerPending  State = "danger_pending"
	StateDangerNotified State = "danger_notified"
)

// Alert describes a danger episode handed to a Notifier.
type Alert struct {
	DeviceID  string
	PPM       float64
	Band      threshold.Band
	PlantName string
	At        time.Time
}

// Notifier delivers an alert to people.
type Notifier interface {
	Notify(ctx context.Context, a Alert) error
}

// Config is the alert policy.
type Config struct {
	// Cooldown is the minimum time between two notifications.
	Cooldown time.Duration
	// DebounceCount is the number of consecutive danger readings required
	// before the first notification of an episode. Values below 1 mean 1.
	DebounceCount int
}

// Decision is what Observe did with one reading.
type Decision struct {
	State      State `json:"state"`
	Notified   bool  `json:"notified"`
	Suppressed bool  `json:"suppressed,omitempty"`
}

// Monitor tracks danger episodes and fires the notifier at most once per
// episode and at most once per cooldown window. It is safe for concurrent use.
type Monitor struct {
	cfg      Config
	notifier Notifier
	now      func() time.Time

	mu             sync.Mutex
	state          State
	consecutive    int
	lastNotifiedAt time.Time
	episode        uint64
}

// NewMonitor creates a Monitor in the normal state.
func NewMonitor(cfg Config, notifier Notifier) *Monitor {
	if cfg.DebounceCount < 1 {
		cfg.DebounceCount = 1
	}
	return &Monitor{
		cfg:      cfg,
		notifier: notifier,
		now:      time.Now,
		state:    StateNormal,
	}
}

// SetClock replaces the time source.
func (m *Monitor) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// State returns the current alert state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Observe feeds one danger determination into the state machine. The
// returned error is the notifier's; the state stays normal after a failed
// notification so the next danger reading retries.
func (m *Monitor) Observe(ctx context.Context, danger bool, a Alert) (Decision, error) {
	m.mu.Lock()
	if !danger {
		m.state = StateNormal
		m.consecutive = 0
		m.mu.Unlock()
		return Decision{State: StateNormal}, nil
	}

	m.consecutive++
	if m.state == StateDangerNotified {
		m.mu.Unlock()
		return Decision{State: StateDangerNotified}, nil
	}
	if m.consecutive < m.cfg.DebounceCount {
		m.state = StateDangerPending
		m.mu.Unlock()
		return Decision{State: StateDangerPending}, nil
	}

	now := m.now()
	m.state = StateDangerNotified
	if !m.lastNotifiedAt.IsZero() && now.Sub(m.lastNotifiedAt) < m.cfg.Cooldown {
		m.mu.Unlock()
		log.Printf("PPM %.0f outside %s, alert suppressed by cooldown", a.PPM, a.Band)
		return Decision{State: StateDangerNotified, Suppressed: true}, nil
	}
	prev := m.lastNotifiedAt
	m.lastNotifiedAt = now
	m.episode++
	episode := m.episode
	m.mu.Unlock()

	if m.notifier == nil {
		return Decision{State: StateDangerNotified, Notified: true}, nil
	}
	if a.At.IsZero() {
		a.At = now
	}
	if err := m.notifier.Notify(ctx, a); err != nil {
		m.mu.Lock()
		if m.episode == episode {
			if m.state == StateDangerNotified {
				m.state = StateNormal
			}
			m.lastNotifiedAt = prev
		}
		state := m.state
		m.mu.Unlock()
		return Decision{State: state}, err
	}
	return Decision{State: StateDangerNotified, Notified: true}, nil
}
