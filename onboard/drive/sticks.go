package drive

import (
	"sync/atomic"
	"time"

	"github.com/CodedInternet/motordriver/onboard/hardware"
)

// StickSource supplies the raw x and y stick readings for a tick.
type StickSource interface {
	Sample() (x, y int, err error)
}

// FixedSticks always returns the positions captured when the loop started.
type FixedSticks struct {
	X, Y int
}

func (f FixedSticks) Sample() (int, int, error) {
	return f.X, f.Y, nil
}

// DefaultFailsafe is how long live sticks hold a position without a fresh
// update.
const DefaultFailsafe = 500 * time.Millisecond

// LiveSticks holds the latest positions pushed by an operator. Once Failsafe
// passes without a Set the sticks read as centred, so a lost operator brings
// the drive to a stop. The zero value is not centred, use NewLiveSticks.
type LiveSticks struct {
	// Failsafe of zero holds the last position forever. Set it before use.
	Failsafe time.Duration

	x, y    int32
	updated int64 // unix nanos of the last Set

	now func() time.Time
}

func NewLiveSticks() *LiveSticks {
	l := &LiveSticks{
		Failsafe: DefaultFailsafe,
		now:      time.Now,
	}
	l.Centre()
	return l
}

func (l *LiveSticks) Set(x, y int) {
	atomic.StoreInt32(&l.x, int32(clampStick(x)))
	atomic.StoreInt32(&l.y, int32(clampStick(y)))
	atomic.StoreInt64(&l.updated, l.now().UnixNano())
}

// Centre returns both sticks to rest, bringing the drive to a stop.
func (l *LiveSticks) Centre() {
	l.Set(StickCentre, StickCentre)
}

// Stale reports whether the failsafe has tripped.
func (l *LiveSticks) Stale() bool {
	if l.Failsafe <= 0 {
		return false
	}
	updated := time.Unix(0, atomic.LoadInt64(&l.updated))
	return l.now().Sub(updated) > l.Failsafe
}

func (l *LiveSticks) Sample() (int, int, error) {
	if l.Stale() {
		return StickCentre, StickCentre, nil
	}
	return int(atomic.LoadInt32(&l.x)), int(atomic.LoadInt32(&l.y)), nil
}

// AnalogSticks samples two potentiometers through the HAL every tick.
type AnalogSticks struct {
	Reader hardware.AnalogReader
	XPin   hardware.Pin
	YPin   hardware.Pin
}

func (a AnalogSticks) Sample() (x, y int, err error) {
	if x, err = a.Reader.ReadAnalog(a.XPin); err != nil {
		return
	}
	y, err = a.Reader.ReadAnalog(a.YPin)
	return
}
