// Package collector receives frames pushed by producer devices, tracks
// per-device statistics, keeps a bounded history, and fans frames out to
// live subscribers.
package collector

import "sync"

// DeviceStats aggregates ingest counters for one device.
type DeviceStats struct {
	FramesReceived    int64  `json:"framesReceived"`
	SamplesReceived   int64  `json:"samplesReceived"`
	LastFrameSequence uint64 `json:"lastFrameSequence"`
	DroppedFrames     int64  `json:"droppedFrames"`
}

// GlobalStats sums ingest counters across every device.
type GlobalStats struct {
	FramesReceived  int64 `json:"framesReceived"`
	SamplesReceived int64 `json:"samplesReceived"`
	DroppedFrames   int64 `json:"droppedFrames"`
	DeviceCount     int   `json:"deviceCount"`
}

// AggregateStats is a point-in-time copy of global and per-device counters.
// It is served on the status endpoint and attached to every fan-out frame
// event.
type AggregateStats struct {
	Global  GlobalStats            `json:"global"`
	Devices map[string]DeviceStats `json:"devices"`
}

// Tracker maintains ingest statistics and detects sequence gaps. Devices
// appear on their first frame; producers never register ahead of time.
type Tracker struct {
	mu      sync.Mutex
	devices map[string]*deviceEntry

	framesReceived  int64
	samplesReceived int64
	droppedFrames   int64
}

type deviceEntry struct {
	stats DeviceStats
	seen  bool
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{devices: make(map[string]*deviceEntry)}
}

// Observe records one ingested frame and returns the number of frames lost
// before it, or 0. The first frame from a device anchors its sequence with
// no gap arithmetic. Afterwards a forward jump past last+1 counts the
// skipped sequence numbers as dropped frames; a backward jump counts
// nothing. The anchor always moves to the newest frame, so a producer
// restart resynchronizes on its next frame.
func (t *Tracker) Observe(deviceID string, sequence uint64, samples int) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.devices[deviceID]
	if !ok {
		entry = &deviceEntry{}
		t.devices[deviceID] = entry
	}

	var gap int64
	if entry.seen {
		expected := entry.stats.LastFrameSequence + 1
		if sequence > expected {
			gap = int64(sequence - expected)
			entry.stats.DroppedFrames += gap
			t.droppedFrames += gap
		}
	}
	entry.seen = true
	entry.stats.LastFrameSequence = sequence
	entry.stats.FramesReceived++
	entry.stats.SamplesReceived += int64(samples)
	t.framesReceived++
	t.samplesReceived += int64(samples)

	return gap
}

// Snapshot returns a copy of all counters.
func (t *Tracker) Snapshot() AggregateStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	devices := make(map[string]DeviceStats, len(t.devices))
	for id, e := range t.devices {
		devices[id] = e.stats
	}
	return AggregateStats{
		Global: GlobalStats{
			FramesReceived:  t.framesReceived,
			SamplesReceived: t.samplesReceived,
			DroppedFrames:   t.droppedFrames,
			DeviceCount:     len(t.devices),
		},
		Devices: devices,
	}
}

// Reset zeroes every counter while keeping device entries and their
// sequence anchors, so gap detection continues across the reset.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.framesReceived = 0
	t.samplesReceived = 0
	t.droppedFrames = 0
	for _, e := range t.devices {
		e.stats = DeviceStats{LastFrameSequence: e.stats.LastFrameSequence}
	}
}
