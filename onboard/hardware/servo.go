package hardware

import (
	"strings"

	deviceErrors "github.com/CodedInternet/motordriver/onboard/errors"
)

const (
	MaxAngle = 180

	ServoPulseZero = 500  // 0º
	ServoPulseFull = 2500 // 180º
	ServoReleased  = 0    // no pulse, no holding torque
)

type Servo uint8

const (
	ServoS0 Servo = iota
	ServoS1
	ServoS2

	numServos
)

func (s Servo) String() string {
	switch s {
	case ServoS0:
		return "S0"
	case ServoS1:
		return "S1"
	case ServoS2:
		return "S2"
	default:
		return "INVALID"
	}
}

func (s Servo) valid() bool {
	return s < numServos
}

func ParseServo(s string) (Servo, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "S0", "0":
		return ServoS0, nil
	case "S1", "1":
		return ServoS1, nil
	case "S2", "2":
		return ServoS2, nil
	}
	return 0, deviceErrors.ParseError{Kind: "servo", Value: s}
}

// AnglePulse converts an angle into a pulse width in µs, clamping to 0-180º.
func AnglePulse(angle int) int {
	if angle < 0 {
		angle = 0
	} else if angle > MaxAngle {
		angle = MaxAngle
	}
	return angle*10 + 500
}

func (d *Driver) ServoTurnZero(s Servo) error {
	return d.servoPulse(s, ServoPulseZero)
}

func (d *Driver) ServoTurnFull(s Servo) error {
	return d.servoPulse(s, ServoPulseFull)
}

// ServoStop releases the servo.
func (d *Driver) ServoStop(s Servo) error {
	return d.servoPulse(s, ServoReleased)
}

func (d *Driver) ServoTurnAngle(s Servo, angle int) error {
	return d.servoPulse(s, AnglePulse(angle))
}

// ServoPulse returns the last pulse width written to s, 0 when released.
func (d *Driver) ServoPulse(s Servo) (int, error) {
	if !s.valid() {
		return 0, deviceErrors.InvalidServoError{Servo: int(s)}
	}

	d.servoLock.Lock()
	defer d.servoLock.Unlock()

	return d.servos[s], nil
}

func (d *Driver) servoPulse(s Servo, micros int) error {
	if !s.valid() {
		return deviceErrors.InvalidServoError{Servo: int(s)}
	}

	d.servoLock.Lock()
	defer d.servoLock.Unlock()

	if err := d.hal.WriteServoPulse(d.bindings.Servos[s], micros); err != nil {
		return err
	}
	d.servos[s] = micros
	return nil
}
