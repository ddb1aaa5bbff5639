package service

import (
	"context"
	"errors"
	"time"

	"github.com/Shivanand-hulikatti/ticket-allocation/internal/repository"
)

// Retry calls fn up to attempts times while it fails with
// repository.ErrTransient, doubling backoff between attempts. Any other
// error, or a done ctx, ends the loop. fn must be a whole transaction: every
// attempt starts from step one.
func Retry[T any](ctx context.Context, attempts int, backoff time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var (
		zero T
		err  error
	)
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 1; ; attempt++ {
		var v T
		v, err = fn(ctx)
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, repository.ErrTransient) || attempt == attempts {
			return zero, err
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, err
		case <-timer.C:
		}
		backoff *= 2
	}
}
