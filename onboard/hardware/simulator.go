package hardware

import (
	"fmt"
	"math/rand"
	"sync"
)

type CallKind string

const (
	CallDigital CallKind = "digital"
	CallPeriod  CallKind = "period"
	CallDuty    CallKind = "duty"
	CallServo   CallKind = "servo"
)

// Call is a single write recorded by the SimulatedHAL.
type Call struct {
	Kind  CallKind
	Pin   Pin
	Value int
}

func (c Call) String() string {
	return fmt.Sprintf("%s(%d, %d)", c.Kind, c.Pin, c.Value)
}

// SimulatedHAL is an in-memory board. It keeps the level of every pin and a log
// of every write. Analog inputs return whatever was set with SetAnalog, plus up
// to +/-Jitter counts of noise.
type SimulatedHAL struct {
	Jitter int

	// MaxCalls bounds the write log, older writes are dropped first. Zero keeps
	// everything.
	MaxCalls int

	lock    sync.Mutex
	calls   []Call
	digital map[Pin]int
	period  map[Pin]int
	duty    map[Pin]int
	servo   map[Pin]int
	analog  map[Pin]int
	fail    error
}

// DefaultMaxCalls keeps a long running simulated board from growing without
// limit.
const DefaultMaxCalls = 4096

func NewSimulatedHAL() *SimulatedHAL {
	return &SimulatedHAL{
		MaxCalls: DefaultMaxCalls,
		digital:  make(map[Pin]int),
		period:   make(map[Pin]int),
		duty:     make(map[Pin]int),
		servo:    make(map[Pin]int),
		analog:   make(map[Pin]int),
	}
}

func (s *SimulatedHAL) record(kind CallKind, pin Pin, value int, state map[Pin]int) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.fail != nil {
		return s.fail
	}
	s.calls = append(s.calls, Call{kind, pin, value})
	// trim in batches so the copy is amortised
	if s.MaxCalls > 0 && len(s.calls) >= 2*s.MaxCalls {
		s.calls = append(s.calls[:0], s.calls[len(s.calls)-s.MaxCalls:]...)
	}
	state[pin] = value
	return nil
}

func (s *SimulatedHAL) SetDigitalPin(pin Pin, level int) error {
	return s.record(CallDigital, pin, level, s.digital)
}

func (s *SimulatedHAL) SetAnalogPeriod(pin Pin, micros int) error {
	return s.record(CallPeriod, pin, micros, s.period)
}

func (s *SimulatedHAL) WriteAnalogDuty(pin Pin, value int) error {
	return s.record(CallDuty, pin, value, s.duty)
}

func (s *SimulatedHAL) WriteServoPulse(pin Pin, micros int) error {
	return s.record(CallServo, pin, micros, s.servo)
}

func (s *SimulatedHAL) ReadAnalog(pin Pin) (int, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.fail != nil {
		return 0, s.fail
	}
	val, ok := s.analog[pin]
	if !ok {
		val = 512
	}
	if s.Jitter > 0 {
		val += rand.Intn(s.Jitter*2+1) - s.Jitter
	}
	if val < 0 {
		val = 0
	} else if val > 1023 {
		val = 1023
	}
	return val, nil
}

// SetAnalog sets the value returned by ReadAnalog for pin.
func (s *SimulatedHAL) SetAnalog(pin Pin, value int) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.analog[pin] = value
}

// Fail makes every following call return err. Passing nil clears it.
func (s *SimulatedHAL) Fail(err error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.fail = err
}

// Calls returns a copy of the write log, at most MaxCalls of the newest writes.
func (s *SimulatedHAL) Calls() []Call {
	s.lock.Lock()
	defer s.lock.Unlock()

	log := s.calls
	if s.MaxCalls > 0 && len(log) > s.MaxCalls {
		log = log[len(log)-s.MaxCalls:]
	}
	calls := make([]Call, len(log))
	copy(calls, log)
	return calls
}

func (s *SimulatedHAL) Reset() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.calls = nil
}

func (s *SimulatedHAL) Digital(pin Pin) int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.digital[pin]
}

func (s *SimulatedHAL) Period(pin Pin) int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.period[pin]
}

func (s *SimulatedHAL) Duty(pin Pin) int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.duty[pin]
}

func (s *SimulatedHAL) Pulse(pin Pin) int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.servo[pin]
}
