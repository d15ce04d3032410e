package drive

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"

	"github.com/CodedInternet/motordriver/onboard/hardware"
)

const (
	LeftMotor  = hardware.MotorA
	RightMotor = hardware.MotorB

	DefaultTopSpeed = MaxPower
)

var (
	ErrAlreadyRunning = errors.New("arcade drive has already been started")
)

// Motors is the part of the actuator layer the loop drives.
type Motors interface {
	MotorRun(m hardware.Motor, dir hardware.Direction, speed int) error
	MotorStop(m hardware.Motor) error
}

type State int32

const (
	Idle State = iota
	Running
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Command is the outcome of one tick.
type Command struct {
	XStick, YStick           int
	XDeflection, YDeflection int
	Left, Right              int // mixed power before the top speed clamp
}

// Mix is the arcade drive mix: y drives forward and back, x biases the turn.
func Mix(xDeflection, yDeflection int) (left, right int) {
	return yDeflection - xDeflection, yDeflection + xDeflection
}

// Arcade is a differential drive control loop fed by two stick axes. Apart from
// the last command it keeps no state between ticks.
type Arcade struct {
	motors   Motors
	sticks   StickSource
	deadZone DeadZone
	topSpeed int

	state int32
	lock  sync.Mutex
	last  Command
}

func NewArcade(motors Motors, sticks StickSource, deadZone DeadZone, topSpeed int) *Arcade {
	if topSpeed < 0 {
		topSpeed = 0
	} else if topSpeed > MaxPower {
		topSpeed = MaxPower
	}

	return &Arcade{
		motors:   motors,
		sticks:   sticks,
		deadZone: deadZone,
		topSpeed: topSpeed,
	}
}

func (a *Arcade) TopSpeed() int {
	return a.topSpeed
}

func (a *Arcade) State() State {
	return State(atomic.LoadInt32(&a.state))
}

// Last returns the command computed by the most recent tick.
func (a *Arcade) Last() Command {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.last
}

// Tick samples the sticks once and writes both motors. If the sticks cannot be
// read both motors are stopped.
func (a *Arcade) Tick() error {
	x, y, err := a.sticks.Sample()
	if err != nil {
		a.stopMotors()
		return err
	}

	cmd := Command{
		XStick:      x,
		YStick:      y,
		XDeflection: a.deadZone.Deflection(x),
		YDeflection: a.deadZone.Deflection(y),
	}
	cmd.Left, cmd.Right = Mix(cmd.XDeflection, cmd.YDeflection)

	a.lock.Lock()
	a.last = cmd
	a.lock.Unlock()

	err = a.apply(LeftMotor, cmd.Left)
	if rErr := a.apply(RightMotor, cmd.Right); err == nil {
		err = rErr
	}
	return err
}

func (a *Arcade) apply(m hardware.Motor, power int) error {
	switch {
	case power > 0:
		return a.motors.MotorRun(m, hardware.Forward, a.limit(power))
	case power < 0:
		return a.motors.MotorRun(m, hardware.Backward, a.limit(-power))
	default:
		return a.motors.MotorStop(m)
	}
}

func (a *Arcade) limit(power int) int {
	if power > a.topSpeed {
		return a.topSpeed
	}
	return power
}

func (a *Arcade) stopMotors() {
	for _, m := range []hardware.Motor{LeftMotor, RightMotor} {
		if err := a.motors.MotorStop(m); err != nil {
			log.Printf("arcade drive: unable to stop motor %s: %v", m, err)
		}
	}
}

// Run moves the loop from Idle to Running and ticks on every scheduler
// invocation until ctx is cancelled. Tick errors are logged and the loop keeps
// going. Both motors are stopped on the way out.
func (a *Arcade) Run(ctx context.Context, scheduler Scheduler) error {
	if !atomic.CompareAndSwapInt32(&a.state, int32(Idle), int32(Running)) {
		return ErrAlreadyRunning
	}
	log.Printf("arcade drive running, top speed %d", a.topSpeed)

	err := scheduler.Forever(ctx, func() {
		if err := a.Tick(); err != nil {
			log.Printf("arcade drive tick: %v", err)
		}
	})

	atomic.StoreInt32(&a.state, int32(Stopped))
	a.stopMotors()
	log.Println("arcade drive stopped")

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// ArcadeModeDrive runs the loop with sticks held at x and y. It blocks until
// ctx is cancelled.
func ArcadeModeDrive(ctx context.Context, motors Motors, scheduler Scheduler, x, y, topSpeed int) error {
	return NewArcade(motors, FixedSticks{X: x, Y: y}, DefaultDeadZone, topSpeed).Run(ctx, scheduler)
}
