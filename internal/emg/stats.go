package emg

import (
	"fmt"
	"sync"
	"time"

	"github.com/banshee-data/emg.report/internal/monitoring"
)

// SchedulerStats tracks acquisition statistics with thread-safe operations.
// The scheduler goroutine writes; the status HTTP handler and the periodic
// logger read.
type SchedulerStats struct {
	mu             sync.Mutex
	state          string
	linkUp         bool
	nextSequence   uint64
	ticks          int64
	samples        int64
	droppedSamples int64
	framesSent     int64
	framesFailed   int64

	// previous totals for windowed rate logging
	lastLog     time.Time
	prevTicks   int64
	prevSamples int64
	prevDropped int64
	prevSent    int64
	prevFailed  int64
}

// NewSchedulerStats creates a new SchedulerStats instance.
func NewSchedulerStats() *SchedulerStats {
	return &SchedulerStats{
		state:   "calibrating",
		lastLog: time.Now(),
	}
}

// AddTick increments the tick count.
func (ss *SchedulerStats) AddTick() {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.ticks++
}

// AddSample increments the accepted sample count.
func (ss *SchedulerStats) AddSample() {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.samples++
}

// AddDroppedSample increments the count of samples discarded on a full buffer.
func (ss *SchedulerStats) AddDroppedSample() {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.droppedSamples++
}

// AddFrameSent records a delivered frame and the next sequence number.
func (ss *SchedulerStats) AddFrameSent(nextSequence uint64) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.framesSent++
	ss.nextSequence = nextSequence
}

// AddFrameFailed records a frame that was sealed but not delivered.
func (ss *SchedulerStats) AddFrameFailed(nextSequence uint64) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.framesFailed++
	ss.nextSequence = nextSequence
}

// SetState records the scheduler phase.
func (ss *SchedulerStats) SetState(state string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.state = state
}

// SetLink records link usability.
func (ss *SchedulerStats) SetLink(up bool) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.linkUp = up
}

// StatsSnapshot is a point-in-time copy of the scheduler counters.
type StatsSnapshot struct {
	State          string `json:"state"`
	LinkUp         bool   `json:"linkUp"`
	NextSequence   uint64 `json:"nextSequence"`
	Ticks          int64  `json:"ticks"`
	Samples        int64  `json:"samples"`
	DroppedSamples int64  `json:"droppedSamples"`
	FramesSent     int64  `json:"framesSent"`
	FramesFailed   int64  `json:"framesFailed"`
}

// Snapshot returns a copy of the cumulative counters.
func (ss *SchedulerStats) Snapshot() StatsSnapshot {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return StatsSnapshot{
		State:          ss.state,
		LinkUp:         ss.linkUp,
		NextSequence:   ss.nextSequence,
		Ticks:          ss.ticks,
		Samples:        ss.samples,
		DroppedSamples: ss.droppedSamples,
		FramesSent:     ss.framesSent,
		FramesFailed:   ss.framesFailed,
	}
}

// LogStats logs the rates since the previous call and advances the window.
func (ss *SchedulerStats) LogStats() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	now := time.Now()
	duration := now.Sub(ss.lastLog)
	if duration <= 0 {
		return
	}

	ticks := ss.ticks - ss.prevTicks
	samples := ss.samples - ss.prevSamples
	dropped := ss.droppedSamples - ss.prevDropped
	sent := ss.framesSent - ss.prevSent
	failed := ss.framesFailed - ss.prevFailed

	ss.prevTicks = ss.ticks
	ss.prevSamples = ss.samples
	ss.prevDropped = ss.droppedSamples
	ss.prevSent = ss.framesSent
	ss.prevFailed = ss.framesFailed
	ss.lastLog = now

	if ticks == 0 {
		return
	}

	logMsg := fmt.Sprintf("EMG stats (/sec): %.1f ticks, %.1f samples, %.2f frames",
		float64(ticks)/duration.Seconds(),
		float64(samples)/duration.Seconds(),
		float64(sent)/duration.Seconds())
	if dropped > 0 {
		logMsg += fmt.Sprintf(", %d dropped on full buffer", dropped)
	}
	if failed > 0 {
		logMsg += fmt.Sprintf(", %d frames lost", failed)
	}
	monitoring.Logf("%s", logMsg)
}
