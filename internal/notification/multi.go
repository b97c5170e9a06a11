package notification

import (
	"context"
	"errors"

	"hydrowangi-backend/internal/alert"
)

// Multi delivers an alert through every wrapped notifier.
type Multi []alert.Notifier

// Notify calls every notifier and joins their errors.
func (m Multi) Notify(ctx context.Context, a alert.Alert) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards alerts.
type Nop struct{}

func (Nop) Notify(context.Context, alert.Alert) error { return nil }
