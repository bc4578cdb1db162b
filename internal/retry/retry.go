// Package retry repeats a remote operation until it succeeds.
//
// There is no attempt limit and no backoff growth: an operation is retried
// every Delay for as long as the context lives. Cancelling the context is
// the only way to abandon a stuck loop.
package retry

import (
	"context"
	"reflect"
	"time"

	"github.com/rs/zerolog"

	"lockin/internal/logging"
	"lockin/internal/metrics"
)

// DefaultDelay is the wait between attempts.
const DefaultDelay = 2 * time.Second

// WaitFunc blocks for d or until ctx is done.
type WaitFunc func(ctx context.Context, d time.Duration) error

// Driver holds the retry settings shared by all callers.
type Driver struct {
	Delay time.Duration
	Wait  WaitFunc
	log   zerolog.Logger
}

// New creates a driver with the given delay. A zero delay uses DefaultDelay.
func New(delay time.Duration) *Driver {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Driver{
		Delay: delay,
		Wait:  Sleep,
		log:   logging.WithComponent("retry"),
	}
}

// Sleep waits for d, returning early with ctx.Err() if ctx is cancelled.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do calls op until it returns a nil error and a non-nil result.
// name labels log lines and metrics.
func Do[T any](ctx context.Context, d *Driver, name string, op func(context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		v, err := op(ctx)
		if err == nil && !isNil(v) {
			metrics.RetryAttemptsTotal.WithLabelValues(name, "success").Inc()
			return v, nil
		}
		metrics.RetryAttemptsTotal.WithLabelValues(name, "failure").Inc()

		d.log.Debug().
			Err(err).
			Str("operation", name).
			Int("attempt", attempt).
			Dur("delay", d.Delay).
			Msg("remote call failed, retrying")

		if err := d.Wait(ctx, d.Delay); err != nil {
			return zero, err
		}
	}
}

// Exec is Do for operations that only report an error.
func Exec(ctx context.Context, d *Driver, name string, op func(context.Context) error) error {
	_, err := Do(ctx, d, name, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
