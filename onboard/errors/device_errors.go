package errors

import "fmt"

type InvalidMotorError struct {
	Motor int
}

func (err InvalidMotorError) Error() string {
	return fmt.Sprintf("invalid motor channel %d", err.Motor)
}

type InvalidServoError struct {
	Servo int
}

func (err InvalidServoError) Error() string {
	return fmt.Sprintf("invalid servo channel %d", err.Servo)
}

type InvalidDirectionError struct {
	Direction int
}

func (err InvalidDirectionError) Error() string {
	return fmt.Sprintf("invalid direction %d", err.Direction)
}

// ParseError is returned when a channel or direction name is not recognised.
type ParseError struct {
	Kind  string
	Value string
}

func (err ParseError) Error() string {
	if len(err.Kind) == 0 {
		err.Kind = "UNKNOWN"
	}

	return fmt.Sprintf("unable to parse %s %q", err.Kind, err.Value)
}

type ConfigError struct {
	Field  string
	Reason string
}

func (err ConfigError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", err.Field, err.Reason)
}
