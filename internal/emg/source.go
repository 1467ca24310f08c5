package emg

import (
	"math"
	"math/rand"
	"time"

	"github.com/banshee-data/emg.report/internal/timeutil"
)

// Source produces raw two-channel readings on demand, one per scheduler
// tick.
type Source interface {
	// Read returns the next raw reading pair.
	Read() (RawSample, error)

	// Close releases the underlying device.
	Close() error
}

// SimSource synthesizes two channels of EMG-like activity: a resting DC
// offset with sensor noise, plus periodic contraction bursts riding on it.
// Used in dev mode so the pipeline runs without hardware attached.
type SimSource struct {
	clock timeutil.Clock
	start time.Time
	rng   *rand.Rand
}

// NewSimSource creates a simulated source. Pass a fixed seed for
// reproducible traces.
func NewSimSource(clock timeutil.Clock, seed int64) *SimSource {
	return &SimSource{
		clock: clock,
		start: clock.Now(),
		rng:   rand.New(rand.NewSource(seed)),
	}
}

// Read synthesizes the next reading pair. Channel 1 runs a quarter cycle
// behind channel 0 so the two traces are visibly distinct.
func (s *SimSource) Read() (RawSample, error) {
	elapsed := s.clock.Since(s.start)
	t := elapsed.Seconds()

	return RawSample{
		Timestamp: uint64(elapsed.Microseconds()),
		Ch0Raw:    s.synth(t, 0),
		Ch1Raw:    s.synth(t, math.Pi/2),
	}, nil
}

// synth models a contraction burst: a slow envelope gates an 80 Hz carrier
// riding on the front end's mid-scale DC offset and noise floor.
func (s *SimSource) synth(t, phase float64) int {
	const (
		restingOffset = 2048
		noiseCounts   = 8
		burstAmpl     = 400
		envelopeHz    = 0.25
		carrierHz     = 80
	)

	envelope := math.Sin(2*math.Pi*envelopeHz*t + phase)
	if envelope < 0 {
		envelope = 0
	}
	burst := burstAmpl * envelope * math.Abs(math.Sin(2*math.Pi*carrierHz*t))
	noise := (s.rng.Float64()*2 - 1) * noiseCounts

	return restingOffset + int(burst+noise)
}

// Close releases nothing for the simulated source.
func (s *SimSource) Close() error { return nil }
