package emg

// FrameBuffer accumulates conditioned samples up to a fixed capacity. When
// full, further appends are refused; the caller decides whether the refused
// sample is dropped. Seal drains the buffer into an immutable Frame.
type FrameBuffer struct {
	samples  []ConditionedSample
	capacity int
}

// NewFrameBuffer creates a buffer holding at most capacity samples. The
// backing array is allocated once; Seal copies out and reuses it.
func NewFrameBuffer(capacity int) *FrameBuffer {
	return &FrameBuffer{
		samples:  make([]ConditionedSample, 0, capacity),
		capacity: capacity,
	}
}

// Append adds a sample if there is room. It reports false, leaving the
// buffer unchanged, when the buffer is already full.
func (b *FrameBuffer) Append(s ConditionedSample) bool {
	if len(b.samples) >= b.capacity {
		return false
	}
	b.samples = append(b.samples, s)
	return true
}

// Full reports whether the buffer has reached capacity.
func (b *FrameBuffer) Full() bool {
	return len(b.samples) >= b.capacity
}

// Len returns the number of accumulated samples.
func (b *FrameBuffer) Len() int {
	return len(b.samples)
}

// Seal copies the accumulated samples into a new Frame carrying the given
// identity and resets the buffer to empty. The returned frame owns its
// sample slice and never changes afterwards.
func (b *FrameBuffer) Seal(deviceID string, sequence uint64, samplingRate int, frameTimestamp uint64) *Frame {
	samples := make([]ConditionedSample, len(b.samples))
	copy(samples, b.samples)
	b.samples = b.samples[:0]

	return &Frame{
		DeviceID:       deviceID,
		FrameSequence:  sequence,
		SamplingRate:   samplingRate,
		SamplesInFrame: len(samples),
		FrameTimestamp: frameTimestamp,
		Samples:        samples,
	}
}

// Reset discards any accumulated samples.
func (b *FrameBuffer) Reset() {
	b.samples = b.samples[:0]
}
