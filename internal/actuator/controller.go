// Package actuator drives the nutrient pump and pesticide sprayer through a
// timed ON -> OFF sequence and reports their state for polling devices.
package actuator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"hydrowangi-backend/internal/model"
	"hydrowangi-backend/internal/store"
)

// Name identifies an actuator by the key devices and clients use.
type Name string

const (
	Nutrient  Name = "nutrisi"
	Pesticide Name = "pestisida"
)

var (
	ErrUnknownActuator = errors.New("unknown actuator")
	ErrConflict        = errors.New("actuator activation already in progress")
	ErrPersistence     = errors.New("control state persistence failed")
	ErrInvalidDuration = errors.New("duration must be positive")
	ErrDurationTooLong = errors.New("duration exceeds the maximum")
)

// MaxDuration bounds a single ON period.
const MaxDuration = time.Hour

var fields = map[Name]store.ControlField{
	Nutrient:  store.FieldNutrition,
	Pesticide: store.FieldPesticide,
}

// ParseName validates a client-supplied actuator name.
func ParseName(s string) (Name, error) {
	n := Name(s)
	if _, ok := fields[n]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownActuator, s)
	}
	return n, nil
}

// ControlStore is the persistence the controller needs.
type ControlStore interface {
	GetControl(ctx context.Context, deviceID string) (*model.Control, error)
	SetActuator(ctx context.Context, deviceID string, field store.ControlField, on bool, at time.Time) error
}

// Options configures a Controller.
type Options struct {
	DeviceID  string
	Durations map[Name]time.Duration
	// RejectOverlapping makes a second activation of a busy actuator fail
	// with ErrConflict instead of racing on the Control record.
	RejectOverlapping bool
}

// Result is returned once an activation has completed.
type Result struct {
	Actuator   Name          `json:"actuator"`
	Completed  bool          `json:"completed"`
	Duration   time.Duration `json:"-"`
	StartedAt  time.Time     `json:"startedAt"`
	FinishedAt time.Time     `json:"finishedAt"`
}

// Status is the polled state of one actuator.
type Status struct {
	On        bool      `json:"on"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Controller runs activations. Each activation blocks only its own caller.
type Controller struct {
	store    ControlStore
	deviceID string
	reject   bool
	now      func() time.Time

	mu        sync.Mutex
	durations map[Name]time.Duration
	inFlight  map[Name]int
	active    int
	// idle is closed whenever no activation is running.
	idle chan struct{}
}

// NewController creates a Controller. Actuators without a configured
// duration default to five seconds.
func NewController(s ControlStore, opts Options) *Controller {
	durations := map[Name]time.Duration{
		Nutrient:  5 * time.Second,
		Pesticide: 5 * time.Second,
	}
	for n, d := range opts.Durations {
		if d > 0 {
			durations[n] = d
		}
	}
	idle := make(chan struct{})
	close(idle)
	return &Controller{
		store:     s,
		deviceID:  opts.DeviceID,
		reject:    opts.RejectOverlapping,
		now:       time.Now,
		durations: durations,
		inFlight:  make(map[Name]int),
		idle:      idle,
	}
}

// DeviceID returns the device whose Control record this controller drives.
func (c *Controller) DeviceID() string {
	return c.deviceID
}

// Duration returns the configured ON duration of an actuator.
func (c *Controller) Duration(name Name) (time.Duration, error) {
	if _, ok := fields[name]; !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownActuator, name)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.durations[name], nil
}

// SetDuration changes the ON duration used by later activations.
func (c *Controller) SetDuration(name Name, d time.Duration) error {
	if _, ok := fields[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownActuator, name)
	}
	if d <= 0 {
		return ErrInvalidDuration
	}
	if d > MaxDuration {
		return fmt.Errorf("%w: %s > %s", ErrDurationTooLong, d, MaxDuration)
	}
	c.mu.Lock()
	c.durations[name] = d
	c.mu.Unlock()
	log.Printf("actuator %s duration set to %s", name, d)
	return nil
}

// Activate runs name for its configured duration.
func (c *Controller) Activate(ctx context.Context, name Name) (Result, error) {
	d, err := c.Duration(name)
	if err != nil {
		return Result{}, err
	}
	return c.ActivateFor(ctx, name, d)
}

// ActivateFor switches name ON, waits d, switches it OFF and only then
// returns. Once started the sequence is not cancellable: the OFF write runs
// even if ctx is cancelled during the wait.
func (c *Controller) ActivateFor(ctx context.Context, name Name, d time.Duration) (Result, error) {
	field, ok := fields[name]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownActuator, name)
	}

	c.mu.Lock()
	if c.inFlight[name] > 0 {
		if c.reject {
			c.mu.Unlock()
			return Result{}, fmt.Errorf("%w: %s", ErrConflict, name)
		}
		log.Printf("Warning: overlapping activation of %s; control state is last-writer-wins", name)
	}
	c.inFlight[name]++
	if c.active == 0 {
		c.idle = make(chan struct{})
	}
	c.active++
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.inFlight[name]--
		c.active--
		if c.active == 0 {
			close(c.idle)
		}
		c.mu.Unlock()
	}()

	started := c.now()
	if err := c.store.SetActuator(ctx, c.deviceID, field, true, started); err != nil {
		return Result{}, fmt.Errorf("%w: switching %s on: %w", ErrPersistence, name, err)
	}
	log.Printf("actuator %s ON for %s", name, d)

	timer := time.NewTimer(d)
	<-timer.C

	finished := c.now()
	if err := c.store.SetActuator(context.WithoutCancel(ctx), c.deviceID, field, false, finished); err != nil {
		return Result{}, fmt.Errorf("%w: switching %s off: %w", ErrPersistence, name, err)
	}
	log.Printf("actuator %s OFF", name)

	return Result{
		Actuator:   name,
		Completed:  true,
		Duration:   d,
		StartedAt:  started,
		FinishedAt: finished,
	}, nil
}

// Wait blocks until every running activation has written its OFF state, or
// until ctx is done.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	idle := c.idle
	c.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SwitchOff records every actuator as OFF. It clears flags left ON by a
// process that exited mid-activation.
func (c *Controller) SwitchOff(ctx context.Context) error {
	at := c.now()
	for _, name := range []Name{Nutrient, Pesticide} {
		if err := c.store.SetActuator(ctx, c.deviceID, fields[name], false, at); err != nil {
			return fmt.Errorf("%w: switching %s off: %w", ErrPersistence, name, err)
		}
	}
	return nil
}

// Status reads the persisted state of name. A device without a Control
// record reports everything off.
func (c *Controller) Status(ctx context.Context, name Name) (Status, error) {
	field, ok := fields[name]
	if !ok {
		return Status{}, fmt.Errorf("%w: %q", ErrUnknownActuator, name)
	}
	ctrl, err := c.store.GetControl(ctx, c.deviceID)
	if errors.Is(err, store.ErrNotFound) {
		return Status{}, nil
	}
	if err != nil {
		return Status{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	on := ctrl.NutritionOn
	if field == store.FieldPesticide {
		on = ctrl.PesticideOn
	}
	return Status{On: on, UpdatedAt: ctrl.UpdatedAt}, nil
}
