package drive

import (
	"context"
	"errors"
	"log"
	"sync"
)

var (
	ErrDriveActive = errors.New("arcade drive owns the motors")
)

// Supervisor starts and stops arcade loops on demand. At most one loop runs at
// a time and while it does the motors belong to it.
type Supervisor struct {
	Motors    Motors
	Scheduler Scheduler
	DeadZone  DeadZone

	// Sticks and TopSpeed are used by Engage.
	Sticks   StickSource
	TopSpeed int

	lock   sync.Mutex
	arcade *Arcade
	cancel context.CancelFunc
	done   chan struct{}
}

// Start replaces any running loop with one reading sticks at topSpeed.
func (s *Supervisor) Start(sticks StickSource, topSpeed int) *Arcade {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.stop()

	a := NewArcade(s.Motors, sticks, s.DeadZone, topSpeed)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := a.Run(ctx, s.Scheduler); err != nil {
			log.Printf("arcade drive: %v", err)
		}
	}()

	s.arcade, s.cancel, s.done = a, cancel, done
	return a
}

// Engage starts a loop on the configured sticks.
func (s *Supervisor) Engage() *Arcade {
	return s.Start(s.Sticks, s.TopSpeed)
}

// ArcadeModeDrive starts a loop with the sticks held at x and y.
func (s *Supervisor) ArcadeModeDrive(x, y, topSpeed int) *Arcade {
	return s.Start(FixedSticks{X: x, Y: y}, topSpeed)
}

// Stop ends the running loop, if any, and waits for it to stop the motors.
func (s *Supervisor) Stop() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.stop()
}

func (s *Supervisor) stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel, s.done = nil, nil
}

// Active reports whether a loop currently owns the motors.
func (s *Supervisor) Active() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.cancel != nil
}

// Arcade returns the most recent loop, running or not. It is nil until the
// first Start.
func (s *Supervisor) Arcade() *Arcade {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.arcade
}
