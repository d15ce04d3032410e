package comms

import (
	"errors"
	"fmt"
	"log"

	"github.com/CodedInternet/motordriver/onboard/drive"
	"github.com/CodedInternet/motordriver/onboard/hardware"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrNoLiveSticks   = errors.New("drive is not using live sticks")
	ErrNoDrive        = errors.New("no arcade drive configured")
)

// Cmd is a single operator command as received over any of the control
// surfaces.
type Cmd struct {
	Cmd       string `json:"cmd"`
	Name      string `json:"name,omitempty"`
	Direction string `json:"direction,omitempty"`
	Value     int    `json:"value,omitempty"`
	X         int    `json:"x,omitempty"`
	Y         int    `json:"y,omitempty"`
	TopSpeed  *int   `json:"top_speed,omitempty"` // arcade only, full power when nil
}

func (c Cmd) String() string {
	return fmt.Sprintf("%s %s %s %d (%d, %d)", c.Cmd, c.Name, c.Direction, c.Value, c.X, c.Y)
}

// Actuators is everything a command can reach on the board.
type Actuators interface {
	MotorRun(m hardware.Motor, dir hardware.Direction, speed int) error
	MotorStop(m hardware.Motor) error
	ServoTurnZero(s hardware.Servo) error
	ServoTurnFull(s hardware.Servo) error
	ServoStop(s hardware.Servo) error
	ServoTurnAngle(s hardware.Servo, angle int) error
	StopAll() error
}

type Conductor struct {
	Device Actuators
	Sticks *drive.LiveSticks // nil unless the drive loop reads live sticks
	Drive  *drive.Supervisor // optional, direct motor commands are refused while it runs
}

func (c *Conductor) driveActive() bool {
	return c.Drive != nil && c.Drive.Active()
}

type CommandProcessor interface {
	ProcessCommand(cmd Cmd) error
}

func (c *Conductor) ProcessCommand(cmd Cmd) error {
	switch cmd.Cmd {
	case "motor_run":
		if c.driveActive() {
			return drive.ErrDriveActive
		}
		m, err := hardware.ParseMotor(cmd.Name)
		if err != nil {
			return err
		}
		dir, err := hardware.ParseDirection(cmd.Direction)
		if err != nil {
			return err
		}
		return c.Device.MotorRun(m, dir, cmd.Value)

	case "motor_stop":
		if c.driveActive() {
			return drive.ErrDriveActive
		}
		m, err := hardware.ParseMotor(cmd.Name)
		if err != nil {
			return err
		}
		return c.Device.MotorStop(m)

	case "servo_zero", "servo_full", "servo_stop", "servo_angle":
		s, err := hardware.ParseServo(cmd.Name)
		if err != nil {
			return err
		}
		switch cmd.Cmd {
		case "servo_zero":
			return c.Device.ServoTurnZero(s)
		case "servo_full":
			return c.Device.ServoTurnFull(s)
		case "servo_stop":
			return c.Device.ServoStop(s)
		default:
			return c.Device.ServoTurnAngle(s, cmd.Value)
		}

	case "sticks":
		if c.Sticks == nil {
			return ErrNoLiveSticks
		}
		c.Sticks.Set(cmd.X, cmd.Y)
		return nil

	case "arcade":
		if c.Drive == nil {
			return ErrNoDrive
		}
		topSpeed := drive.DefaultTopSpeed
		if cmd.TopSpeed != nil {
			topSpeed = *cmd.TopSpeed
		}
		c.Drive.ArcadeModeDrive(cmd.X, cmd.Y, topSpeed)
		return nil

	case "drive":
		if c.Drive == nil {
			return ErrNoDrive
		}
		c.Drive.Engage()
		return nil

	case "drive_stop":
		if c.Drive == nil {
			return ErrNoDrive
		}
		c.Drive.Stop()
		return nil

	default:
		log.Printf("Unable to process command %v", cmd)
		return ErrUnknownCommand
	}
}

// StopAll hands the motors back from the drive loop and stops every channel.
func (c *Conductor) StopAll() error {
	c.Centre()
	if c.Drive != nil {
		c.Drive.Stop()
	}
	return c.Device.StopAll()
}

// Centre puts the live sticks back at rest, if there are any.
func (c *Conductor) Centre() {
	if c.Sticks != nil {
		c.Sticks.Centre()
	}
}
