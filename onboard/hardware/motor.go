package hardware

import (
	"strings"

	deviceErrors "github.com/CodedInternet/motordriver/onboard/errors"
)

const (
	MaxSpeed = 1023

	// PWM period applied before every duty write, 1kHz.
	MotorPWMPeriod = 1000
)

type Motor uint8

const (
	MotorA Motor = iota
	MotorB

	numMotors
)

func (m Motor) String() string {
	switch m {
	case MotorA:
		return "A"
	case MotorB:
		return "B"
	default:
		return "INVALID"
	}
}

func (m Motor) valid() bool {
	return m < numMotors
}

func ParseMotor(s string) (Motor, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "A":
		return MotorA, nil
	case "B":
		return MotorB, nil
	}
	return 0, deviceErrors.ParseError{Kind: "motor", Value: s}
}

type Direction uint8

const (
	Forward Direction = iota
	Backward

	numDirections
)

func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	default:
		return "INVALID"
	}
}

func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "forward", "fwd", "f":
		return Forward, nil
	case "backward", "back", "b":
		return Backward, nil
	}
	return 0, deviceErrors.ParseError{Kind: "direction", Value: s}
}

// MotorPins is the pin triplet one bridge channel is wired to.
type MotorPins struct {
	PWM Pin
	IN1 Pin
	IN2 Pin
}

// MotorState is the last command written to a channel.
type MotorState struct {
	Direction Direction
	Speed     int
	Running   bool
}

// ClampSpeed limits a speed to the duty range of the bridge.
func ClampSpeed(speed int) int {
	if speed < 0 {
		return 0
	}
	if speed > MaxSpeed {
		return MaxSpeed
	}
	return speed
}

// MotorRun drives a channel in the given direction. Speed is clamped to 0-1023.
func (d *Driver) MotorRun(m Motor, dir Direction, speed int) error {
	if !m.valid() {
		return deviceErrors.InvalidMotorError{Motor: int(m)}
	}
	if dir >= numDirections {
		return deviceErrors.InvalidDirectionError{Direction: int(dir)}
	}
	speed = ClampSpeed(speed)
	pins := d.bindings.Motors[m]

	lock := &d.motorLocks[m]
	lock.Lock()
	defer lock.Unlock()

	if err := d.hal.SetAnalogPeriod(pins.PWM, MotorPWMPeriod); err != nil {
		return err
	}
	if err := d.hal.WriteAnalogDuty(pins.PWM, speed); err != nil {
		return err
	}

	// the low pin always goes first so both inputs are never high together
	low, high := pins.IN1, pins.IN2
	if dir == Backward {
		low, high = pins.IN2, pins.IN1
	}
	if err := d.hal.SetDigitalPin(low, Low); err != nil {
		return err
	}
	if err := d.hal.SetDigitalPin(high, High); err != nil {
		return err
	}

	d.motors[m] = MotorState{Direction: dir, Speed: speed, Running: speed > 0}
	return nil
}

// MotorStop writes a zero duty. The direction pins keep their last level, this
// is a coast rather than a brake.
func (d *Driver) MotorStop(m Motor) error {
	if !m.valid() {
		return deviceErrors.InvalidMotorError{Motor: int(m)}
	}
	pins := d.bindings.Motors[m]

	lock := &d.motorLocks[m]
	lock.Lock()
	defer lock.Unlock()

	if err := d.hal.WriteAnalogDuty(pins.PWM, 0); err != nil {
		return err
	}

	state := d.motors[m]
	state.Speed = 0
	state.Running = false
	d.motors[m] = state
	return nil
}

// MotorState returns the last command written to m.
func (d *Driver) MotorState(m Motor) (state MotorState, err error) {
	if !m.valid() {
		return state, deviceErrors.InvalidMotorError{Motor: int(m)}
	}

	lock := &d.motorLocks[m]
	lock.Lock()
	defer lock.Unlock()

	return d.motors[m], nil
}
