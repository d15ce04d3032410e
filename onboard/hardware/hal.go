package hardware

// Pin identifies a physical pin on the board driving the bridge.
type Pin uint8

const (
	Low  = 0
	High = 1
)

// HAL is the platform layer the actuators write through. Implementations are
// expected to be fast; every call is a single pin write.
type HAL interface {
	SetDigitalPin(pin Pin, level int) error
	SetAnalogPeriod(pin Pin, micros int) error
	WriteAnalogDuty(pin Pin, value int) error
	WriteServoPulse(pin Pin, micros int) error
}

// AnalogReader is implemented by a HAL that can also sample analog inputs.
// Readings are in the range 0-1023.
type AnalogReader interface {
	ReadAnalog(pin Pin) (int, error)
}
