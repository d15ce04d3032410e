package onboard

import (
	"fmt"
	"time"

	"github.com/CodedInternet/motordriver/onboard/drive"
	deviceErrors "github.com/CodedInternet/motordriver/onboard/errors"
	"github.com/CodedInternet/motordriver/onboard/hardware"
	"gopkg.in/yaml.v2"
)

const CONFIG_VERSION = 1

const (
	SticksFixed  = "fixed"
	SticksLive   = "live"
	SticksAnalog = "analog"
)

type MotorPinConfig struct {
	PWM uint8 `yaml:"pwm"`
	IN1 uint8 `yaml:"in1"`
	IN2 uint8 `yaml:"in2"`
}

type DeadZoneConfig struct {
	Low  int `yaml:"low"`
	High int `yaml:"high"`
}

type DriveConfig struct {
	Enabled  bool           `yaml:"enabled"` // start the loop at boot
	Interval time.Duration  `yaml:"interval"`
	TopSpeed int            `yaml:"top_speed"`
	Sticks   string         `yaml:"sticks"` // fixed, live or analog
	X        int            `yaml:"x"`      // fixed positions
	Y        int            `yaml:"y"`
	XPin     uint8          `yaml:"x_pin"` // analog inputs
	YPin     uint8          `yaml:"y_pin"`
	Failsafe time.Duration  `yaml:"failsafe"` // live sticks centre after this long without input
	DeadZone DeadZoneConfig `yaml:"deadzone"`
}

// BoardConfig is the wiring and drive tuning of one board. It is read once at
// startup.
type BoardConfig struct {
	Version int `yaml:"version"`
	Motors  struct {
		A MotorPinConfig `yaml:"a"`
		B MotorPinConfig `yaml:"b"`
	} `yaml:"motors"`
	Servos []uint8     `yaml:"servos,flow"`
	Drive  DriveConfig `yaml:"drive"`
}

func DefaultBoardConfig() (c BoardConfig) {
	b := hardware.DefaultBindings()

	c.Version = CONFIG_VERSION
	c.Motors.A = motorPinConfig(b.Motors[hardware.MotorA])
	c.Motors.B = motorPinConfig(b.Motors[hardware.MotorB])
	for _, pin := range b.Servos {
		c.Servos = append(c.Servos, uint8(pin))
	}
	c.Drive = DriveConfig{
		Interval: 20 * time.Millisecond,
		TopSpeed: drive.DefaultTopSpeed,
		Sticks:   SticksLive,
		X:        drive.StickCentre,
		Y:        drive.StickCentre,
		XPin:     1,
		YPin:     2,
		Failsafe: drive.DefaultFailsafe,
		DeadZone: DeadZoneConfig{
			Low:  drive.DefaultDeadZone.Low,
			High: drive.DefaultDeadZone.High,
		},
	}
	return
}

func motorPinConfig(p hardware.MotorPins) MotorPinConfig {
	return MotorPinConfig{PWM: uint8(p.PWM), IN1: uint8(p.IN1), IN2: uint8(p.IN2)}
}

// ParseBoardConfig decodes YAML on top of the defaults and validates the result.
func ParseBoardConfig(data []byte) (c BoardConfig, err error) {
	c = DefaultBoardConfig()
	if err = yaml.Unmarshal(data, &c); err != nil {
		return
	}
	err = c.Validate()
	return
}

func (c BoardConfig) Validate() error {
	if c.Version != CONFIG_VERSION {
		return deviceErrors.ConfigError{Field: "version", Reason: fmt.Sprintf("unable to work with version %d", c.Version)}
	}
	if len(c.Servos) != len(hardware.Servos()) {
		return deviceErrors.ConfigError{Field: "servos", Reason: fmt.Sprintf("expected %d pins, got %d", len(hardware.Servos()), len(c.Servos))}
	}

	seen := make(map[uint8]string)
	claim := func(pin uint8, name string) error {
		if other, ok := seen[pin]; ok {
			return deviceErrors.ConfigError{Field: name, Reason: fmt.Sprintf("pin %d already used by %s", pin, other)}
		}
		seen[pin] = name
		return nil
	}
	pins := []struct {
		pin  uint8
		name string
	}{
		{c.Motors.A.PWM, "motors.a.pwm"},
		{c.Motors.A.IN1, "motors.a.in1"},
		{c.Motors.A.IN2, "motors.a.in2"},
		{c.Motors.B.PWM, "motors.b.pwm"},
		{c.Motors.B.IN1, "motors.b.in1"},
		{c.Motors.B.IN2, "motors.b.in2"},
	}
	for i, pin := range c.Servos {
		pins = append(pins, struct {
			pin  uint8
			name string
		}{pin, fmt.Sprintf("servos[%d]", i)})
	}
	for _, p := range pins {
		if err := claim(p.pin, p.name); err != nil {
			return err
		}
	}

	dz := c.Drive.DeadZone
	if dz.Low <= drive.StickMin || dz.High >= drive.StickMax || dz.Low > dz.High {
		return deviceErrors.ConfigError{Field: "drive.deadzone", Reason: fmt.Sprintf("band [%d, %d] must sit inside (0, 1023)", dz.Low, dz.High)}
	}
	if c.Drive.Interval <= 0 {
		return deviceErrors.ConfigError{Field: "drive.interval", Reason: "must be positive"}
	}
	if c.Drive.Failsafe < 0 {
		return deviceErrors.ConfigError{Field: "drive.failsafe", Reason: "must not be negative"}
	}

	switch c.Drive.Sticks {
	case SticksFixed, SticksLive:
	case SticksAnalog:
		if c.Drive.XPin == c.Drive.YPin {
			return deviceErrors.ConfigError{Field: "drive.y_pin", Reason: "x and y must use different pins"}
		}
	default:
		return deviceErrors.ConfigError{Field: "drive.sticks", Reason: fmt.Sprintf("unknown source %q", c.Drive.Sticks)}
	}

	return nil
}

func (c BoardConfig) Bindings() (b hardware.Bindings) {
	b.Motors[hardware.MotorA] = hardware.MotorPins{PWM: hardware.Pin(c.Motors.A.PWM), IN1: hardware.Pin(c.Motors.A.IN1), IN2: hardware.Pin(c.Motors.A.IN2)}
	b.Motors[hardware.MotorB] = hardware.MotorPins{PWM: hardware.Pin(c.Motors.B.PWM), IN1: hardware.Pin(c.Motors.B.IN1), IN2: hardware.Pin(c.Motors.B.IN2)}
	for i, pin := range c.Servos {
		if i < len(b.Servos) {
			b.Servos[i] = hardware.Pin(pin)
		}
	}
	return
}

func (c BoardConfig) DeadZone() drive.DeadZone {
	return drive.DeadZone{Low: c.Drive.DeadZone.Low, High: c.Drive.DeadZone.High}
}

// Sticks builds the configured stick source. Live sticks are returned as well
// so operators can steer; it is nil for the other sources.
func (c BoardConfig) Sticks(hal hardware.HAL) (drive.StickSource, *drive.LiveSticks, error) {
	switch c.Drive.Sticks {
	case SticksFixed:
		return drive.FixedSticks{X: c.Drive.X, Y: c.Drive.Y}, nil, nil
	case SticksLive:
		live := drive.NewLiveSticks()
		live.Failsafe = c.Drive.Failsafe
		return live, live, nil
	case SticksAnalog:
		reader, ok := hal.(hardware.AnalogReader)
		if !ok {
			return nil, nil, deviceErrors.ConfigError{Field: "drive.sticks", Reason: "board cannot read analog inputs"}
		}
		return drive.AnalogSticks{
			Reader: reader,
			XPin:   hardware.Pin(c.Drive.XPin),
			YPin:   hardware.Pin(c.Drive.YPin),
		}, nil, nil
	}
	return nil, nil, deviceErrors.ConfigError{Field: "drive.sticks", Reason: fmt.Sprintf("unknown source %q", c.Drive.Sticks)}
}
