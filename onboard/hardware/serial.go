package hardware

import (
	"bufio"
	"errors"
	"fmt"
	"github.com/Masterminds/semver"
	"github.com/tarm/serial"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	BRIDGE_VERSION = "~1.0"

	SERIAL_READ_TIMEOUT = 500 * time.Millisecond
)

var (
	ErrIncompatibleFirmware = errors.New("bridge firmware is not compatible")
	ErrBadResponse          = errors.New("unexpected response from bridge")
)

// SerialHAL drives a bridge microcontroller over a line based serial protocol:
//
//	D <pin> <level>   set digital pin
//	P <pin> <us>      set analog period
//	A <pin> <duty>    write analog duty
//	S <pin> <us>      write servo pulse
//	R <pin>           read analog pin, answered by "V <value>"
//
// Writes are not acknowledged. The bridge announces "version <semver>" when the
// link opens.
type SerialHAL struct {
	Version string

	lock   sync.Mutex
	in     *bufio.Reader
	out    *bufio.Writer
	closer io.Closer
}

// OpenSerialHAL opens the serial port and performs the version handshake.
func OpenSerialHAL(name string, baud int) (*SerialHAL, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name:        name,
		Baud:        baud,
		ReadTimeout: SERIAL_READ_TIMEOUT,
	})
	if err != nil {
		return nil, err
	}

	s, err := NewSerialHAL(port)
	if err != nil {
		port.Close()
		return nil, err
	}
	s.closer = port
	return s, nil
}

// NewSerialHAL wraps an already open link and waits for the version banner.
func NewSerialHAL(rw io.ReadWriter) (s *SerialHAL, err error) {
	s = &SerialHAL{
		in:  bufio.NewReader(rw),
		out: bufio.NewWriter(rw),
	}

	ln, err := s.readLine()
	if err != nil {
		return nil, err
	}
	fields := strings.Fields(ln)
	if len(fields) != 2 || fields[0] != "version" {
		return nil, fmt.Errorf("expected version banner but got %q", ln)
	}
	s.Version = fields[1]

	if err = checkVersion(s.Version); err != nil {
		return nil, err
	}
	return s, nil
}

func checkVersion(versionString string) error {
	// development builds of the bridge are trusted
	if versionString == "DEV" {
		return nil
	}

	semVer, err := semver.NewVersion(versionString)
	if err != nil {
		return fmt.Errorf("%w: %q is not a version", ErrIncompatibleFirmware, versionString)
	}

	constraint, err := semver.NewConstraint(BRIDGE_VERSION)
	if err != nil {
		return err
	}

	if !constraint.Check(semVer) {
		return fmt.Errorf("%w: received version %s - require %s", ErrIncompatibleFirmware, versionString, BRIDGE_VERSION)
	}
	return nil
}

func (s *SerialHAL) readLine() (string, error) {
	ln, err := s.in.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(ln), nil
}

func (s *SerialHAL) send(op byte, pin Pin, value int) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, err := fmt.Fprintf(s.out, "%c %d %d\n", op, pin, value); err != nil {
		return err
	}
	return s.out.Flush()
}

func (s *SerialHAL) SetDigitalPin(pin Pin, level int) error {
	return s.send('D', pin, level)
}

func (s *SerialHAL) SetAnalogPeriod(pin Pin, micros int) error {
	return s.send('P', pin, micros)
}

func (s *SerialHAL) WriteAnalogDuty(pin Pin, value int) error {
	return s.send('A', pin, value)
}

func (s *SerialHAL) WriteServoPulse(pin Pin, micros int) error {
	return s.send('S', pin, micros)
}

func (s *SerialHAL) ReadAnalog(pin Pin) (int, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, err := fmt.Fprintf(s.out, "R %d\n", pin); err != nil {
		return 0, err
	}
	if err := s.out.Flush(); err != nil {
		return 0, err
	}

	ln, err := s.readLine()
	if err != nil {
		return 0, err
	}
	if !strings.HasPrefix(ln, "V ") {
		return 0, fmt.Errorf("%w: %q", ErrBadResponse, ln)
	}
	return strconv.Atoi(strings.TrimSpace(ln[2:]))
}

func (s *SerialHAL) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
