package emg

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/emg.report/internal/timeutil"
)

// fakePort feeds canned bytes through the SerialPorter seam.
type fakePort struct {
	io.Reader
	closed bool
}

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

func TestSerialSource_ParsesLines(t *testing.T) {
	port := &fakePort{Reader: strings.NewReader("100,200\n300,400\n")}
	s := newSerialSource(port, timeutil.NewMockClock(time.Now()))

	first, err := s.Read()
	if err != nil {
		t.Fatalf("Expected first read to succeed, got %v", err)
	}
	if first.Ch0Raw != 100 || first.Ch1Raw != 200 {
		t.Errorf("Expected readings 100,200, got %d,%d", first.Ch0Raw, first.Ch1Raw)
	}

	second, err := s.Read()
	if err != nil {
		t.Fatalf("Expected second read to succeed, got %v", err)
	}
	if second.Ch0Raw != 300 || second.Ch1Raw != 400 {
		t.Errorf("Expected readings 300,400, got %d,%d", second.Ch0Raw, second.Ch1Raw)
	}

	if _, err := s.Read(); !errors.Is(err, io.EOF) {
		t.Errorf("Expected EOF after last line, got %v", err)
	}
}

func TestSerialSource_SkipsMalformedLines(t *testing.T) {
	input := "garbage\n1,2,3\nabc,5\n7,xyz\n\n  \n100,200\n"
	port := &fakePort{Reader: strings.NewReader(input)}
	s := newSerialSource(port, timeutil.NewMockClock(time.Now()))

	sample, err := s.Read()
	if err != nil {
		t.Fatalf("Expected read to skip to the first valid line, got %v", err)
	}
	if sample.Ch0Raw != 100 || sample.Ch1Raw != 200 {
		t.Errorf("Expected readings 100,200, got %d,%d", sample.Ch0Raw, sample.Ch1Raw)
	}
}

func TestSerialSource_TrimsWhitespace(t *testing.T) {
	port := &fakePort{Reader: strings.NewReader("  512 , 768 \r\n")}
	s := newSerialSource(port, timeutil.NewMockClock(time.Now()))

	sample, err := s.Read()
	if err != nil {
		t.Fatalf("Expected padded line to parse, got %v", err)
	}
	if sample.Ch0Raw != 512 || sample.Ch1Raw != 768 {
		t.Errorf("Expected readings 512,768, got %d,%d", sample.Ch0Raw, sample.Ch1Raw)
	}
}

func TestSerialSource_TimestampsTrackClock(t *testing.T) {
	clock := timeutil.NewMockClock(time.Now())
	port := &fakePort{Reader: strings.NewReader("1,2\n3,4\n")}
	s := newSerialSource(port, clock)

	first, _ := s.Read()
	if first.Timestamp != 0 {
		t.Errorf("Expected first timestamp 0, got %d", first.Timestamp)
	}

	clock.Advance(5 * time.Millisecond)
	second, _ := s.Read()
	if second.Timestamp != 5000 {
		t.Errorf("Expected second timestamp 5000us, got %d", second.Timestamp)
	}
}

func TestSerialSource_Close(t *testing.T) {
	port := &fakePort{Reader: strings.NewReader("")}
	s := newSerialSource(port, timeutil.NewMockClock(time.Now()))

	if err := s.Close(); err != nil {
		t.Errorf("Expected nil close error, got %v", err)
	}
	if !port.closed {
		t.Error("Expected underlying port to be closed")
	}
}
