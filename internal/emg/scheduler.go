package emg

import (
	"context"
	"fmt"
	"time"

	"github.com/banshee-data/emg.report/internal/monitoring"
	"github.com/banshee-data/emg.report/internal/timeutil"
)

// State identifies the scheduler phase.
type State int

const (
	// StateCalibrating accumulates the baseline window.
	StateCalibrating State = iota
	// StateStreaming conditions readings and accumulates frames.
	StateStreaming
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateCalibrating:
		return "calibrating"
	case StateStreaming:
		return "streaming"
	default:
		return "unknown"
	}
}

// FrameSender delivers one sealed frame over the network in a single bounded
// exchange with no retries. sent reports whether the collector accepted the
// frame; linkUp reports whether the link remains usable afterwards (a
// rejected frame still leaves the link up).
type FrameSender interface {
	SendFrame(ctx context.Context, frame *Frame) (sent bool, linkUp bool)

	// Healthy probes the collector and reports link usability.
	Healthy(ctx context.Context) bool
}

// SchedulerConfig holds the fixed parameters of one acquisition run.
type SchedulerConfig struct {
	DeviceID           string
	SampleRate         int // Hz
	SamplesPerFrame    int
	CalibrationSamples int
	SmoothingWindow    int
	EMAAlpha           float64

	// TickPeriod overrides the period derived from SampleRate when nonzero.
	TickPeriod time.Duration

	// LogInterval is the period of statistics log lines; 0 disables them.
	LogInterval time.Duration

	// NewFilter constructs one per-channel noise filter. nil disables the
	// filtering stage.
	NewFilter func() SampleFilter
}

func (c SchedulerConfig) tickPeriod() time.Duration {
	if c.TickPeriod > 0 {
		return c.TickPeriod
	}
	return time.Second / time.Duration(c.SampleRate)
}

// Scheduler drives the acquisition pipeline: a fixed-period tick loop that
// calibrates baselines, conditions readings, accumulates frames, and hands
// full frames to the sender. All pipeline state belongs to the single
// goroutine running the loop; only Stats is safe to read from outside.
//
// Frame emission is a conditional action, not a state: on every pass, a full
// buffer is sealed and handed off if the link is usable. When the link is
// down, accumulation halts on the full buffer and readings are discarded
// until a health probe brings the link back. The sequence number advances on
// every seal, so a frame lost in flight shows up as a gap on the collector.
type Scheduler struct {
	cfg    SchedulerConfig
	source Source
	sender FrameSender
	clock  timeutil.Clock

	state    State
	ch0      *ChannelConditioner
	ch1      *ChannelConditioner
	buffer   *FrameBuffer
	calCount int
	sequence uint64
	linkUp   bool

	stats *SchedulerStats
}

// NewScheduler wires the pipeline together. The sender may be nil only in
// tests that never fill a frame.
func NewScheduler(cfg SchedulerConfig, source Source, sender FrameSender, clock timeutil.Clock) *Scheduler {
	var f0, f1 SampleFilter
	if cfg.NewFilter != nil {
		f0 = cfg.NewFilter()
		f1 = cfg.NewFilter()
	}

	stats := NewSchedulerStats()
	stats.SetLink(true)

	return &Scheduler{
		cfg:    cfg,
		source: source,
		sender: sender,
		clock:  clock,
		state:  StateCalibrating,
		ch0:    NewChannelConditioner(cfg.CalibrationSamples, cfg.SmoothingWindow, cfg.EMAAlpha, f0),
		ch1:    NewChannelConditioner(cfg.CalibrationSamples, cfg.SmoothingWindow, cfg.EMAAlpha, f1),
		buffer: NewFrameBuffer(cfg.SamplesPerFrame),
		linkUp: true,
		stats:  stats,
	}
}

// Stats returns the shared counters. Safe for concurrent use.
func (s *Scheduler) Stats() *SchedulerStats {
	return s.stats
}

// State returns the current phase. Only safe from the scheduler goroutine.
func (s *Scheduler) State() State {
	return s.state
}

// Tick executes one scheduler pass: one raw reading, one state action, and
// the conditional frame emission. It returns an error only when the source
// fails; pipeline drops and send failures are policy, not errors.
func (s *Scheduler) Tick(ctx context.Context) error {
	s.stats.AddTick()

	raw, err := s.source.Read()
	if err != nil {
		return fmt.Errorf("source read: %w", err)
	}

	switch s.state {
	case StateCalibrating:
		s.ch0.AddCalibrationSample(raw.Ch0Raw)
		s.ch1.AddCalibrationSample(raw.Ch1Raw)
		s.calCount++
		if s.calCount >= s.cfg.CalibrationSamples {
			s.state = StateStreaming
			s.stats.SetState(s.state.String())
			monitoring.Logf("scheduler: calibration complete after %d samples (baseline ch0=%.1f ch1=%.1f)",
				s.calCount, s.ch0.Baseline(), s.ch1.Baseline())
		}

	case StateStreaming:
		sample := ConditionedSample{
			Timestamp: raw.Timestamp,
			Ch0:       s.ch0.Condition(raw.Ch0Raw),
			Ch1:       s.ch1.Condition(raw.Ch1Raw),
		}
		if s.buffer.Append(sample) {
			s.stats.AddSample()
		} else {
			// Link down and buffer full: accumulation halts, reading is lost.
			s.stats.AddDroppedSample()
		}
	}

	s.maybeSend(ctx)
	return nil
}

// maybeSend seals and hands off the buffer when it is full and the link is
// usable. While the link is down it probes health at most once per pass; the
// probe's own timeout paces reconnection attempts.
func (s *Scheduler) maybeSend(ctx context.Context) {
	if !s.buffer.Full() {
		return
	}

	if !s.linkUp {
		if !s.sender.Healthy(ctx) {
			return
		}
		s.linkUp = true
		s.stats.SetLink(true)
		monitoring.Logf("scheduler: link restored, flushing frame %d", s.sequence)
	}

	frame := s.buffer.Seal(s.cfg.DeviceID, s.sequence, s.cfg.SampleRate, uint64(s.clock.Now().UnixMilli()))
	s.sequence++
	monitoring.Debugf("scheduler: sealed frame %d (%d samples)", frame.FrameSequence, len(frame.Samples))

	sent, linkUp := s.sender.SendFrame(ctx, frame)
	if linkUp != s.linkUp {
		s.linkUp = linkUp
		s.stats.SetLink(linkUp)
		if !linkUp {
			monitoring.Logf("scheduler: link down, frame %d lost", frame.FrameSequence)
		}
	}

	if sent {
		s.stats.AddFrameSent(s.sequence)
	} else {
		// Permanent loss. The consumed sequence number becomes the
		// collector's gap signal; nothing is retried or requeued.
		s.stats.AddFrameFailed(s.sequence)
	}
}

// Run drives ticks at the configured period until ctx is cancelled or the
// source fails. It is the single execution context for all pipeline state.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := s.clock.NewTicker(s.cfg.tickPeriod())
	defer ticker.Stop()

	var logCh <-chan time.Time
	if s.cfg.LogInterval > 0 {
		logTicker := s.clock.NewTicker(s.cfg.LogInterval)
		defer logTicker.Stop()
		logCh = logTicker.C()
	}

	monitoring.Logf("scheduler: starting device %s at %d Hz (%d samples/frame, %d calibration samples)",
		s.cfg.DeviceID, s.cfg.SampleRate, s.cfg.SamplesPerFrame, s.cfg.CalibrationSamples)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C():
			if err := s.Tick(ctx); err != nil {
				return err
			}
		case <-logCh:
			s.stats.LogStats()
		}
	}
}
