package emg

import "math"

// ChannelConditioner runs one channel's conditioning pipeline: baseline
// removal, noise filtering, windowed averaging, and exponential smoothing.
// All state is allocated at construction and mutated in place on every call;
// it is owned by a single scheduler goroutine and is not safe for concurrent
// use.
//
// The baseline is the mean of the first calibration window of raw readings
// and is fixed once computed. Until the averaging ring has filled once, the
// smoothed output is reported as 0 so frames keep a fixed shape.
type ChannelConditioner struct {
	filter SampleFilter

	// calibration state
	calTarget  int
	calCount   int
	calSum     float64
	baseline   float64
	calibrated bool

	// smoothing state
	ring     []float64
	ringPos  int
	ringFull bool
	alpha    float64
	ema      float64
}

// NewChannelConditioner creates a conditioner that calibrates over
// calibrationSamples raw readings, averages over a window of window slots,
// and smooths with the given EMA alpha. A nil filter disables the noise
// filtering stage.
func NewChannelConditioner(calibrationSamples, window int, alpha float64, filter SampleFilter) *ChannelConditioner {
	if filter == nil {
		filter = PassthroughFilter{}
	}
	return &ChannelConditioner{
		filter:    filter,
		calTarget: calibrationSamples,
		ring:      make([]float64, window),
		alpha:     alpha,
	}
}

// Calibrating reports whether baseline accumulation is still in progress.
func (c *ChannelConditioner) Calibrating() bool {
	return !c.calibrated
}

// Baseline returns the fixed per-channel baseline, or 0 until calibration
// completes.
func (c *ChannelConditioner) Baseline() float64 {
	return c.baseline
}

// AddCalibrationSample feeds one raw reading into the baseline accumulator.
// On the final reading the baseline is fixed; calls after calibration
// completes are ignored so later readings are never re-averaged in.
func (c *ChannelConditioner) AddCalibrationSample(raw int) {
	if c.calibrated {
		return
	}
	c.calSum += float64(raw)
	c.calCount++
	if c.calCount >= c.calTarget {
		c.baseline = c.calSum / float64(c.calTarget)
		c.calibrated = true
	}
}

// Condition runs one raw reading through the full pipeline and returns the
// channel's conditioned values. Before calibration completes the baseline
// stage is bypassed and the raw reading passes through unchanged.
func (c *ChannelConditioner) Condition(raw int) ChannelSample {
	norm := float64(raw)
	if c.calibrated {
		norm = float64(raw) - c.baseline
		if norm < 0 {
			norm = 0
		}
	}

	filtered := c.filter.Apply(norm)
	if filtered < 0 {
		filtered = 0
	}

	c.ring[c.ringPos] = filtered
	c.ringPos = (c.ringPos + 1) % len(c.ring)
	if c.ringPos == 0 {
		c.ringFull = true
	}

	smoothed := 0
	if c.ringFull {
		var sum float64
		for _, v := range c.ring {
			sum += v
		}
		avg := sum / float64(len(c.ring))
		c.ema = c.alpha*avg + (1-c.alpha)*c.ema
		smoothed = int(math.Floor(c.ema))
	}

	return ChannelSample{Raw: int(norm), EMA: smoothed}
}
