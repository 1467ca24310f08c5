package collector

import (
	"fmt"
	"time"

	"github.com/banshee-data/emg.report/internal/emg"
	"github.com/banshee-data/emg.report/internal/monitoring"
	"github.com/banshee-data/emg.report/internal/timeutil"
	"github.com/banshee-data/emg.report/internal/version"
)

// Service ties ingest, tracking, history, and fan-out together. The HTTP
// and WebSocket layers stay thin on top of it.
type Service struct {
	tracker *Tracker
	history *History
	hub     *Hub
	clock   timeutil.Clock
	started time.Time
}

// HistoryStatus reports frame store occupancy.
type HistoryStatus struct {
	Size     int `json:"size"`
	Capacity int `json:"capacity"`
}

// StatusSnapshot is the collector's aggregate state.
type StatusSnapshot struct {
	Status        string         `json:"status"`
	UptimeSeconds float64        `json:"uptimeSeconds"`
	Subscribers   int            `json:"subscribers"`
	Stats         AggregateStats `json:"stats"`
	History       HistoryStatus  `json:"history"`
	Version       string         `json:"version"`
}

// NewService creates a collector service with the given history capacity and
// per-subscriber event buffer. Zero values select the defaults.
func NewService(historyCapacity, subscriberBuffer int, clock timeutil.Clock) *Service {
	return &Service{
		tracker: NewTracker(),
		history: NewHistory(historyCapacity),
		hub:     NewHub(subscriberBuffer),
		clock:   clock,
		started: clock.Now(),
	}
}

// History exposes the frame store to the API layer.
func (s *Service) History() *History {
	return s.history
}

// Hub exposes the fan-out hub to the API layer.
func (s *Service) Hub() *Hub {
	return s.hub
}

// Ingest validates and records one frame, fans it out, and returns the ack.
// A rejected frame leaves every counter untouched.
func (s *Service) Ingest(frame *emg.Frame) (*emg.Ack, error) {
	if err := validateFrame(frame); err != nil {
		return nil, err
	}

	gap := s.tracker.Observe(frame.DeviceID, frame.FrameSequence, len(frame.Samples))
	if gap > 0 {
		monitoring.Logf("collector: device %s lost %d frame(s) before sequence %d",
			frame.DeviceID, gap, frame.FrameSequence)
	}

	stored := s.history.Add(frame, s.clock.Now())
	stats := s.tracker.Snapshot()
	s.hub.Broadcast(Event{Type: EventFrame, Frame: stored, Stats: &stats})
	monitoring.Debugf("collector: stored frame %d from %s (%d samples)",
		frame.FrameSequence, frame.DeviceID, len(frame.Samples))

	return &emg.Ack{
		Success:         true,
		FrameSequence:   frame.FrameSequence,
		SamplesReceived: len(frame.Samples),
	}, nil
}

func validateFrame(frame *emg.Frame) error {
	if frame == nil {
		return fmt.Errorf("missing frame body")
	}
	if frame.DeviceID == "" {
		return fmt.Errorf("missing deviceId")
	}
	if frame.SamplingRate <= 0 {
		return fmt.Errorf("samplingRate must be positive, got %d", frame.SamplingRate)
	}
	if len(frame.Samples) == 0 {
		return fmt.Errorf("frame carries no samples")
	}
	if frame.SamplesInFrame != len(frame.Samples) {
		return fmt.Errorf("samplesInFrame %d does not match %d samples in payload",
			frame.SamplesInFrame, len(frame.Samples))
	}
	return nil
}

// Reset zeroes statistics and optionally clears stored history, then
// notifies subscribers. Device sequence anchors survive so gap detection
// spans the reset.
func (s *Service) Reset(clearHistory bool) {
	s.tracker.Reset()
	if clearHistory {
		s.history.Clear()
	}
	cleared := clearHistory
	stats := s.tracker.Snapshot()
	s.hub.Broadcast(Event{Type: EventReset, Stats: &stats, ClearedHistory: &cleared})
	monitoring.Logf("collector: statistics reset (history cleared: %v)", clearHistory)
}

// Stats returns a copy of the ingest counters.
func (s *Service) Stats() AggregateStats {
	return s.tracker.Snapshot()
}

// Status returns the collector's aggregate state.
func (s *Service) Status() StatusSnapshot {
	return StatusSnapshot{
		Status:        "ok",
		UptimeSeconds: s.clock.Since(s.started).Seconds(),
		Subscribers:   s.hub.SubscriberCount(),
		Stats:         s.tracker.Snapshot(),
		History: HistoryStatus{
			Size:     s.history.Len(),
			Capacity: s.history.Capacity(),
		},
		Version: version.Version,
	}
}
