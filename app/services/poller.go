package services

import (
	"context"
	"time"

	"github.com/amirphl/Susanoo/utils"
)

// Poller runs a bounded check loop: at most MaxPolls checks, Interval apart
type Poller struct {
	Interval time.Duration
	MaxPolls int
}

// NewPoller returns a poller; non-positive values fall back to the Graph API defaults
func NewPoller(interval time.Duration, maxPolls int) Poller {
	if interval <= 0 {
		interval = utils.PollInterval
	}
	if maxPolls <= 0 {
		maxPolls = utils.MaxPolls
	}
	return Poller{Interval: interval, MaxPolls: maxPolls}
}

// Budget is the longest a Poll call waits between its first and last check
func (p Poller) Budget() time.Duration {
	return time.Duration(p.MaxPolls-1) * p.Interval
}

// Poll calls check until it reports done, fails, or the poll budget runs out.
// Exhaustion returns timeoutErr.
func (p Poller) Poll(ctx context.Context, check func(ctx context.Context, attempt int) (bool, error), timeoutErr error) error {
	for attempt := 1; attempt <= p.MaxPolls; attempt++ {
		done, err := check(ctx, attempt)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if attempt == p.MaxPolls {
			break
		}

		timer := time.NewTimer(p.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return timeoutErr
}

type awaitOutcome[T any] struct {
	value T
	err   error
}

// Await runs fn in the background and polls for its completion. When the
// budget runs out the background call is cancelled and timeoutErr returned.
func Await[T any](ctx context.Context, p Poller, fn func(ctx context.Context) (T, error), timeoutErr error) (T, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan awaitOutcome[T], 1)
	go func() {
		v, err := fn(runCtx)
		results <- awaitOutcome[T]{value: v, err: err}
	}()

	var out awaitOutcome[T]
	err := p.Poll(ctx, func(context.Context, int) (bool, error) {
		select {
		case out = <-results:
			return true, nil
		default:
			return false, nil
		}
	}, timeoutErr)
	if err != nil {
		var zero T
		return zero, err
	}
	return out.value, out.err
}
