package drive

import "github.com/CodedInternet/motordriver/onboard/hardware"

const (
	StickMin    = 0
	StickMax    = 1023
	StickCentre = 512

	MaxPower = hardware.MaxSpeed
)

// DeadZone is the band of stick readings, inclusive at both ends, treated as
// centred. The default is offset from 512 to match the reference joystick.
type DeadZone struct {
	Low  int
	High int
}

var DefaultDeadZone = DeadZone{Low: 476, High: 548}

func clampStick(v int) int {
	if v < StickMin {
		return StickMin
	}
	if v > StickMax {
		return StickMax
	}
	return v
}

// Deflection maps a raw stick reading onto -1023..1023. Readings above the band
// are rescaled from (High, 1023] onto (0, 1023] and readings below it from
// [0, Low) onto [-1023, 0). Division truncates towards zero.
func (dz DeadZone) Deflection(stick int) int {
	stick = clampStick(stick)

	switch {
	case stick > dz.High:
		return (stick - dz.High) * MaxPower / (StickMax - dz.High)
	case stick < dz.Low:
		return (stick - dz.Low) * MaxPower / (dz.Low - StickMin)
	default:
		return 0
	}
}

// Deflection applies the default dead zone.
func Deflection(stick int) int {
	return DefaultDeadZone.Deflection(stick)
}
