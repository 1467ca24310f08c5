package emg

import "math"

// SampleFilter is the pluggable noise-rejection stage of a channel pipeline.
// Implementations hold per-channel state and are not safe for concurrent use;
// the scheduler is the only caller.
type SampleFilter interface {
	// Apply runs one sample through the filter and returns the result.
	Apply(x float64) float64

	// Reset clears filter state.
	Reset()
}

// PassthroughFilter applies no filtering.
type PassthroughFilter struct{}

// Apply returns x unchanged.
func (PassthroughFilter) Apply(x float64) float64 { return x }

// Reset does nothing.
func (PassthroughFilter) Reset() {}

// NotchFilter is a biquad IIR notch that rejects a single frequency,
// typically 50 or 60 Hz mains hum. Direct Form 1 with RBJ audio cookbook
// coefficients.
type NotchFilter struct {
	b0, b1, b2 float64
	a1, a2     float64

	x1, x2 float64
	y1, y2 float64
}

// NewNotchFilter creates a notch filter for the given sample rate, center
// frequency, and quality factor. Higher q narrows the rejection band.
func NewNotchFilter(sampleRateHz, centerHz, q float64) *NotchFilter {
	w0 := 2 * math.Pi * centerHz / sampleRateHz
	alpha := math.Sin(w0) / (2 * q)
	cosw0 := math.Cos(w0)

	a0 := 1 + alpha
	return &NotchFilter{
		b0: 1 / a0,
		b1: -2 * cosw0 / a0,
		b2: 1 / a0,
		a1: -2 * cosw0 / a0,
		a2: (1 - alpha) / a0,
	}
}

// Apply runs one sample through the biquad.
func (f *NotchFilter) Apply(x float64) float64 {
	y := f.b0*x + f.b1*f.x1 + f.b2*f.x2 - f.a1*f.y1 - f.a2*f.y2
	f.x2, f.x1 = f.x1, x
	f.y2, f.y1 = f.y1, y
	return y
}

// Reset clears the delay line.
func (f *NotchFilter) Reset() {
	f.x1, f.x2 = 0, 0
	f.y1, f.y2 = 0, 0
}
