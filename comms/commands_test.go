package comms

import (
	"testing"
	"time"

	"github.com/CodedInternet/motordriver/onboard/drive"
	deviceErrors "github.com/CodedInternet/motordriver/onboard/errors"
	"github.com/CodedInternet/motordriver/onboard/hardware"
	. "github.com/smartystreets/goconvey/convey"
)

func createTestConductor() (*Conductor, *hardware.SimulatedHAL) {
	hal := hardware.NewSimulatedHAL()
	return &Conductor{
		Device: hardware.NewDriver(hal, hardware.DefaultBindings()),
		Sticks: drive.NewLiveSticks(),
	}, hal
}

func TestProcessCommand(t *testing.T) {
	pins := hardware.DefaultBindings()

	Convey("motor commands reach the bridge", t, func() {
		c, hal := createTestConductor()

		So(c.ProcessCommand(Cmd{Cmd: "motor_run", Name: "b", Direction: "backward", Value: 700}), ShouldBeNil)
		So(hal.Duty(pins.Motors[hardware.MotorB].PWM), ShouldEqual, 700)
		So(hal.Digital(pins.Motors[hardware.MotorB].IN1), ShouldEqual, hardware.High)
		So(hal.Digital(pins.Motors[hardware.MotorB].IN2), ShouldEqual, hardware.Low)

		So(c.ProcessCommand(Cmd{Cmd: "motor_stop", Name: "B"}), ShouldBeNil)
		So(hal.Duty(pins.Motors[hardware.MotorB].PWM), ShouldEqual, 0)
	})

	Convey("servo commands reach the bridge", t, func() {
		c, hal := createTestConductor()
		pin := pins.Servos[hardware.ServoS1]

		So(c.ProcessCommand(Cmd{Cmd: "servo_full", Name: "S1"}), ShouldBeNil)
		So(hal.Pulse(pin), ShouldEqual, hardware.ServoPulseFull)

		So(c.ProcessCommand(Cmd{Cmd: "servo_angle", Name: "1", Value: 45}), ShouldBeNil)
		So(hal.Pulse(pin), ShouldEqual, 950)

		So(c.ProcessCommand(Cmd{Cmd: "servo_zero", Name: "S1"}), ShouldBeNil)
		So(hal.Pulse(pin), ShouldEqual, hardware.ServoPulseZero)

		So(c.ProcessCommand(Cmd{Cmd: "servo_stop", Name: "S1"}), ShouldBeNil)
		So(hal.Pulse(pin), ShouldEqual, hardware.ServoReleased)
	})

	Convey("sticks are moved and centred", t, func() {
		c, _ := createTestConductor()

		So(c.ProcessCommand(Cmd{Cmd: "sticks", X: 100, Y: 900}), ShouldBeNil)
		x, y, _ := c.Sticks.Sample()
		So(x, ShouldEqual, 100)
		So(y, ShouldEqual, 900)

		c.Centre()
		x, y, _ = c.Sticks.Sample()
		So(x, ShouldEqual, drive.StickCentre)
		So(y, ShouldEqual, drive.StickCentre)

		c.Sticks = nil
		So(c.ProcessCommand(Cmd{Cmd: "sticks", X: 100, Y: 900}), ShouldEqual, ErrNoLiveSticks)
	})

	Convey("bad commands are rejected without touching the board", t, func() {
		c, hal := createTestConductor()

		So(c.ProcessCommand(Cmd{Cmd: "self_destruct"}), ShouldEqual, ErrUnknownCommand)
		So(c.ProcessCommand(Cmd{Cmd: "motor_run", Name: "C", Direction: "forward"}), ShouldHaveSameTypeAs, deviceErrors.ParseError{})
		So(c.ProcessCommand(Cmd{Cmd: "motor_run", Name: "A", Direction: "sideways"}), ShouldHaveSameTypeAs, deviceErrors.ParseError{})
		So(c.ProcessCommand(Cmd{Cmd: "servo_full", Name: "S9"}), ShouldHaveSameTypeAs, deviceErrors.ParseError{})
		So(hal.Calls(), ShouldBeEmpty)
	})
}

func TestConductorDrive(t *testing.T) {
	Convey("with a drive supervisor", t, func() {
		c, hal := createTestConductor()
		stepper := drive.NewStepper()
		c.Drive = &drive.Supervisor{
			Motors:    c.Device,
			Scheduler: stepper,
			DeadZone:  drive.DefaultDeadZone,
			Sticks:    c.Sticks,
			TopSpeed:  drive.DefaultTopSpeed,
		}
		Reset(c.Drive.Stop)
		pwmA := hardware.DefaultBindings().Motors[hardware.MotorA].PWM

		Convey("direct motor commands last while no loop runs", func() {
			So(c.ProcessCommand(Cmd{Cmd: "motor_run", Name: "A", Direction: "forward", Value: 500}), ShouldBeNil)
			stepper.Timeout = 50 * time.Millisecond
			So(stepper.Step(), ShouldEqual, drive.ErrStepTimeout)
			So(hal.Duty(pwmA), ShouldEqual, 500)
		})

		Convey("arcade takes the motors", func() {
			top := 700
			So(c.ProcessCommand(Cmd{Cmd: "arcade", X: 512, Y: 1023, TopSpeed: &top}), ShouldBeNil)
			So(c.Drive.Active(), ShouldBeTrue)
			So(stepper.Step(), ShouldBeNil)
			So(hal.Duty(pwmA), ShouldEqual, 700)

			So(c.ProcessCommand(Cmd{Cmd: "motor_run", Name: "A", Direction: "forward", Value: 500}), ShouldEqual, drive.ErrDriveActive)
			So(c.ProcessCommand(Cmd{Cmd: "motor_stop", Name: "A"}), ShouldEqual, drive.ErrDriveActive)
			So(hal.Duty(pwmA), ShouldEqual, 700)

			Convey("and gives them back on drive_stop", func() {
				So(c.ProcessCommand(Cmd{Cmd: "drive_stop"}), ShouldBeNil)
				So(hal.Duty(pwmA), ShouldEqual, 0)
				So(c.ProcessCommand(Cmd{Cmd: "motor_run", Name: "A", Direction: "forward", Value: 500}), ShouldBeNil)
				So(hal.Duty(pwmA), ShouldEqual, 500)
			})

			Convey("and StopAll releases everything", func() {
				So(c.StopAll(), ShouldBeNil)
				So(c.Drive.Active(), ShouldBeFalse)
				So(hal.Duty(pwmA), ShouldEqual, 0)
			})
		})

		Convey("drive follows the live sticks", func() {
			So(c.ProcessCommand(Cmd{Cmd: "drive"}), ShouldBeNil)
			So(c.ProcessCommand(Cmd{Cmd: "sticks", X: 512, Y: 0}), ShouldBeNil)
			So(stepper.Step(), ShouldBeNil)
			So(hal.Duty(pwmA), ShouldEqual, 1023)
			So(hal.Digital(hardware.DefaultBindings().Motors[hardware.MotorA].IN1), ShouldEqual, hardware.High)
		})
	})

	Convey("without a supervisor drive commands are refused", t, func() {
		c, _ := createTestConductor()
		So(c.ProcessCommand(Cmd{Cmd: "arcade", X: 512, Y: 1023}), ShouldEqual, ErrNoDrive)
		So(c.ProcessCommand(Cmd{Cmd: "drive"}), ShouldEqual, ErrNoDrive)
		So(c.ProcessCommand(Cmd{Cmd: "drive_stop"}), ShouldEqual, ErrNoDrive)
	})
}
