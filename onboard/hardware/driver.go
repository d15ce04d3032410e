package hardware

import "sync"

// Bindings is the fixed pin assignment of the board, indexed by channel.
type Bindings struct {
	Motors [numMotors]MotorPins
	Servos [numServos]Pin
}

// DefaultBindings is the reference wiring of the bridge.
func DefaultBindings() Bindings {
	return Bindings{
		Motors: [numMotors]MotorPins{
			MotorA: {PWM: 16, IN1: 14, IN2: 15},
			MotorB: {PWM: 8, IN1: 13, IN2: 12},
		},
		Servos: [numServos]Pin{
			ServoS0: 0,
			ServoS1: 1,
			ServoS2: 2,
		},
	}
}

// Driver commands the motor and servo channels of one bridge. It is safe for
// concurrent use; each motor's pin triplet is written under its own lock.
type Driver struct {
	hal      HAL
	bindings Bindings

	motorLocks [numMotors]sync.Mutex
	motors     [numMotors]MotorState

	servoLock sync.Mutex
	servos    [numServos]int
}

func NewDriver(hal HAL, bindings Bindings) *Driver {
	return &Driver{
		hal:      hal,
		bindings: bindings,
	}
}

func (d *Driver) Bindings() Bindings {
	return d.bindings
}

// StopAll stops both motors and releases every servo. The first error is
// returned but every channel is attempted.
func (d *Driver) StopAll() (err error) {
	for m := Motor(0); m < numMotors; m++ {
		if e := d.MotorStop(m); e != nil && err == nil {
			err = e
		}
	}
	for s := Servo(0); s < numServos; s++ {
		if e := d.ServoStop(s); e != nil && err == nil {
			err = e
		}
	}
	return
}

// Motors lists every valid motor channel.
func Motors() []Motor {
	return []Motor{MotorA, MotorB}
}

// Servos lists every valid servo channel.
func Servos() []Servo {
	return []Servo{ServoS0, ServoS1, ServoS2}
}
