// Package ingest turns device readings into the live snapshot, stored
// telemetry and PPM alerts.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"hydrowangi-backend/internal/alert"
	"hydrowangi-backend/internal/metrics"
	"hydrowangi-backend/internal/model"
	"hydrowangi-backend/internal/store"
	"hydrowangi-backend/internal/threshold"
	"hydrowangi-backend/internal/weather"
)

var ErrInvalidInput = errors.New("invalid telemetry input")

// Action describes what happened to a reading's storage.
type Action string

const (
	ActionSaved       Action = "saved"
	ActionSkipped     Action = "skipped"
	ActionStoreFailed Action = "store_failed"
)

// Store is the persistence the service needs.
type Store interface {
	LatestTelemetry(ctx context.Context) (*model.Telemetry, error)
	AppendTelemetry(ctx context.Context, t *model.Telemetry) error
	ActivePlanted(ctx context.Context) (*model.Planted, error)
	GetControl(ctx context.Context, deviceID string) (*model.Control, error)
}

// Input is a device reading as it arrives on the wire. All three fields
// are required.
type Input struct {
	PH   *float64 `json:"ph"`
	PPM  *float64 `json:"ppm"`
	Temp *float64 `json:"temp"`
}

// Snapshot is the most recent reading, stored or not.
type Snapshot struct {
	PH   float64   `json:"ph"`
	PPM  float64   `json:"ppm"`
	Temp float64   `json:"temp"`
	TS   time.Time `json:"ts"`
}

// Outcome reports what Ingest did with one reading.
type Outcome struct {
	Stored    bool             `json:"stored"`
	Action    Action           `json:"action"`
	ID        string           `json:"id,omitempty"`
	Live      Snapshot         `json:"live"`
	Danger    threshold.Danger `json:"danger"`
	Alert     alert.Decision   `json:"alert"`
	PlantName string           `json:"plantName,omitempty"`
	// Err is the storage failure behind ActionStoreFailed.
	Err error `json:"-"`
}

// Options wires a Service.
type Options struct {
	DeviceID  string
	Evaluator threshold.Evaluator
	Monitor   *alert.Monitor
	Humidity  *weather.HumidityCache
	Metrics   *metrics.Metrics
}

// Service is the process-wide ingestion context. The live snapshot lives
// for the process lifetime and is never persisted.
type Service struct {
	store     Store
	deviceID  string
	evaluator threshold.Evaluator
	monitor   *alert.Monitor
	humidity  *weather.HumidityCache
	metrics   *metrics.Metrics
	now       func() time.Time

	mu      sync.RWMutex
	live    Snapshot
	hasLive bool
}

// NewService creates a Service. A nil Monitor gets one with no notifier.
func NewService(s Store, opts Options) *Service {
	mon := opts.Monitor
	if mon == nil {
		mon = alert.NewMonitor(alert.Config{}, nil)
	}
	return &Service{
		store:     s,
		deviceID:  opts.DeviceID,
		evaluator: opts.Evaluator,
		monitor:   mon,
		humidity:  opts.Humidity,
		metrics:   opts.Metrics,
		now:       time.Now,
	}
}

// Live returns the latest snapshot. ok is false before the first reading.
func (s *Service) Live() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.live, s.hasLive
}

// AlertState returns the alert state machine's current state.
func (s *Service) AlertState() alert.State {
	return s.monitor.State()
}

// Ingest processes one reading. Only ErrInvalidInput is returned as an
// error; storage and notification failures are logged and reported
// through the Outcome.
func (s *Service) Ingest(ctx context.Context, in Input) (Outcome, error) {
	if in.PH == nil || in.PPM == nil || in.Temp == nil {
		return Outcome{}, fmt.Errorf("%w: ph, ppm and temp are required", ErrInvalidInput)
	}
	reading := threshold.Reading{PH: *in.PH, PPM: *in.PPM, Temp: *in.Temp}
	now := s.now()

	live := Snapshot{PH: reading.PH, PPM: reading.PPM, Temp: reading.Temp, TS: now}
	s.mu.Lock()
	s.live, s.hasLive = live, true
	s.mu.Unlock()

	out := Outcome{Live: live}
	out.Stored, out.ID, out.Err = s.persist(ctx, reading, now)
	switch {
	case out.Err != nil:
		out.Action = ActionStoreFailed
	case out.Stored:
		out.Action = ActionSaved
	default:
		out.Action = ActionSkipped
	}
	s.metrics.TelemetryReading(string(out.Action), reading.PPM)

	var target *float64
	cycle, err := s.store.ActivePlanted(ctx)
	switch {
	case err == nil:
		tds := cycle.Plant.TDS
		target = &tds
		out.PlantName = cycle.Plant.Name
	case !errors.Is(err, store.ErrNotFound):
		log.Printf("Warning: active cycle lookup failed, using default band: %v", err)
	}
	out.Danger = s.evaluator.EvaluateDanger(reading.PPM, target)

	decision, err := s.monitor.Observe(ctx, out.Danger.IsDanger, alert.Alert{
		DeviceID:  s.deviceID,
		PPM:       reading.PPM,
		Band:      out.Danger.Band,
		PlantName: out.PlantName,
		At:        now,
	})
	out.Alert = decision
	switch {
	case err != nil:
		log.Printf("Error sending PPM alert: %v", err)
		s.metrics.Alert("failed")
	case decision.Notified:
		s.metrics.Alert("notified")
	case decision.Suppressed:
		s.metrics.Alert("suppressed")
	}

	return out, nil
}

// persist stores reading when it differs notably from the last stored one.
func (s *Service) persist(ctx context.Context, r threshold.Reading, now time.Time) (bool, string, error) {
	var last *threshold.Reading
	prev, err := s.store.LatestTelemetry(ctx)
	switch {
	case err == nil:
		last = &threshold.Reading{PH: prev.PH, PPM: prev.PPM, Temp: prev.Temp}
	case !errors.Is(err, store.ErrNotFound):
		log.Printf("Error fetching latest telemetry: %v", err)
		return false, "", err
	}

	if !s.evaluator.ShouldPersist(r, last) {
		return false, "", nil
	}

	rec := &model.Telemetry{
		ID:       uuid.NewString(),
		DeviceID: s.deviceID,
		PH:       r.PH,
		PPM:      r.PPM,
		Temp:     r.Temp,
		TS:       now,
	}
	if h, ok := s.humidity.Humidity(ctx); ok {
		rec.Humidity = &h
	}
	ctrl, err := s.store.GetControl(ctx, s.deviceID)
	switch {
	case err == nil:
		rec.NutritionOn = &ctrl.NutritionOn
		rec.PesticideOn = &ctrl.PesticideOn
	case !errors.Is(err, store.ErrNotFound):
		log.Printf("Warning: control state lookup failed, storing reading without actuator flags: %v", err)
	}

	if err := s.store.AppendTelemetry(ctx, rec); err != nil {
		log.Printf("Error storing telemetry: %v", err)
		return false, "", err
	}
	return true, rec.ID, nil
}
