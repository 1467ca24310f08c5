// Package emg implements the producer-side acquisition pipeline: raw
// two-channel sampling, per-channel conditioning (baseline removal, noise
// filtering, smoothing), fixed-size frame accumulation, and the tick-driven
// scheduler that coordinates calibration, streaming, and frame emission.
package emg

// RawSample is one unconditioned two-channel reading from a Source.
type RawSample struct {
	Timestamp uint64 // producer-local monotonic microseconds
	Ch0Raw    int
	Ch1Raw    int
}

// ChannelSample carries one channel's conditioned values for a single tick.
// Raw is the baseline-removed reading clamped at zero; EMA is the smoothed
// activation, reported as 0 until the channel's averaging window has filled.
type ChannelSample struct {
	Raw int `json:"raw"`
	EMA int `json:"ema"`
}

// ConditionedSample is the two-channel output of one streaming tick.
type ConditionedSample struct {
	Timestamp uint64        `json:"t"` // producer-local microseconds
	Ch0       ChannelSample `json:"ch0"`
	Ch1       ChannelSample `json:"ch1"`
}

// Frame is a sealed, ordered batch of conditioned samples. The producer owns
// a frame until it is handed to the transmission client; after sealing it is
// never mutated. FrameSequence starts at 0 and increases by one per sealed
// frame, whether or not the send succeeds, so the collector can infer loss
// from gaps.
type Frame struct {
	DeviceID       string              `json:"deviceId"`
	FrameSequence  uint64              `json:"frameSequence"`
	SamplingRate   int                 `json:"samplingRate"` // Hz
	SamplesInFrame int                 `json:"samplesInFrame"`
	FrameTimestamp uint64              `json:"frameTimestamp"` // producer-local milliseconds
	Samples        []ConditionedSample `json:"samples"`
}

// Ack is the collector's reply to one posted frame. Accepted frames echo
// their sequence number and sample count; rejections carry a short message
// plus the specific validation error.
type Ack struct {
	Success         bool   `json:"success"`
	FrameSequence   uint64 `json:"frameSequence"`
	SamplesReceived int    `json:"samplesReceived"`
	Message         string `json:"message,omitempty"`
	Error           string `json:"error,omitempty"`
}
