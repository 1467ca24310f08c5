package emg

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.bug.st/serial"

	"github.com/banshee-data/emg.report/internal/monitoring"
	"github.com/banshee-data/emg.report/internal/timeutil"
)

// SerialPorter defines the minimal interface needed from a serial device.
// This abstraction enables unit testing without real acquisition hardware.
type SerialPorter interface {
	io.Reader
	io.Closer
}

// SerialSource reads raw readings from a serial-attached acquisition board.
// The board emits one reading per line as "<ch0>,<ch1>" in ADC counts.
// Malformed lines are logged and skipped rather than failing the stream.
type SerialSource struct {
	port    SerialPorter
	scanner *bufio.Scanner
	clock   timeutil.Clock
	start   time.Time
}

// NewSerialSource opens the named port at 115200 8-N-1 and wraps it in a
// SerialSource.
func NewSerialSource(portName string, clock timeutil.Clock) (*SerialSource, error) {
	mode := &serial.Mode{
		BaudRate: 115200,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}

	return newSerialSource(port, clock), nil
}

// newSerialSource wraps an already-open port. Tests inject fakes here.
func newSerialSource(port SerialPorter, clock timeutil.Clock) *SerialSource {
	return &SerialSource{
		port:    port,
		scanner: bufio.NewScanner(port),
		clock:   clock,
		start:   clock.Now(),
	}
}

// Read scans lines until one parses as a reading pair. Timestamps are
// microseconds since the source was opened, taken at parse time.
func (s *SerialSource) Read() (RawSample, error) {
	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" {
			continue
		}

		segments := strings.Split(line, ",")
		if len(segments) != 2 {
			monitoring.Logf("serial: skipping malformed line %q", line)
			continue
		}

		ch0, err := strconv.Atoi(strings.TrimSpace(segments[0]))
		if err != nil {
			monitoring.Logf("serial: bad ch0 in line %q: %v", line, err)
			continue
		}
		ch1, err := strconv.Atoi(strings.TrimSpace(segments[1]))
		if err != nil {
			monitoring.Logf("serial: bad ch1 in line %q: %v", line, err)
			continue
		}

		return RawSample{
			Timestamp: uint64(s.clock.Since(s.start).Microseconds()),
			Ch0Raw:    ch0,
			Ch1Raw:    ch1,
		}, nil
	}

	if err := s.scanner.Err(); err != nil {
		return RawSample{}, fmt.Errorf("serial read: %w", err)
	}
	return RawSample{}, io.EOF
}

// Close closes the serial port.
func (s *SerialSource) Close() error {
	return s.port.Close()
}
