package drive

import (
	"context"
	"errors"
	"time"
)

var ErrStepTimeout = errors.New("no loop took the step")

// Scheduler invokes tick repeatedly until ctx is done. Ticks never overlap.
type Scheduler interface {
	Forever(ctx context.Context, tick func()) error
}

// Ticker runs a tick every Interval.
type Ticker struct {
	Interval time.Duration
}

func (t Ticker) Forever(ctx context.Context, tick func()) error {
	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			tick()
		}
	}
}

// Stepper runs one tick for each call to Step. Used to drive a loop
// deterministically.
type Stepper struct {
	// Timeout bounds how long Step waits for a running loop.
	Timeout time.Duration

	steps chan chan struct{}
}

func NewStepper() *Stepper {
	return &Stepper{
		Timeout: 2 * time.Second,
		steps:   make(chan chan struct{}),
	}
}

func (s *Stepper) Forever(ctx context.Context, tick func()) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case done := <-s.steps:
			tick()
			close(done)
		}
	}
}

// Step blocks until a tick has run to completion. It gives up with
// ErrStepTimeout when no loop is running.
func (s *Stepper) Step() error {
	timeout := time.NewTimer(s.Timeout)
	defer timeout.Stop()

	done := make(chan struct{})
	select {
	case s.steps <- done:
	case <-timeout.C:
		return ErrStepTimeout
	}

	select {
	case <-done:
		return nil
	case <-timeout.C:
		return ErrStepTimeout
	}
}
