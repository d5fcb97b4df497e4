package alerting

import (
	"context"
	"errors"
	"time"

	"topflow/internal/flow"
)

// Notification wraps one cycle's alert.
type Notification struct {
	Tick    time.Time
	Result  flow.Result
	Message string
}

// Notifier delivers an alert once, best effort.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// Multi fans one notification out to several notifiers. Every notifier is
// attempted; the returned error joins the individual failures.
type Multi []Notifier

// Notify forwards note to every notifier in order.
func (m Multi) Notify(ctx context.Context, note Notification) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, note); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ Notifier = Multi(nil)
