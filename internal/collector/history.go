package collector

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/emg.report/internal/emg"
)

// DefaultHistoryCapacity bounds the ring when no capacity is configured.
const DefaultHistoryCapacity = 1000

// StoredFrame wraps an ingested frame with collector-side metadata. Stored
// frames are immutable once added. ServerTimestamp is ReceivedAt as unix
// milliseconds, for clients that compare against producer-local
// frameTimestamp values.
type StoredFrame struct {
	ID              string     `json:"id"`
	ReceivedAt      time.Time  `json:"receivedAt"`
	ServerTimestamp uint64     `json:"serverTimestamp"`
	Frame           *emg.Frame `json:"frame"`
}

// History is a fixed-capacity ring of the most recent frames across all
// devices, overwriting the oldest when full.
type History struct {
	mu       sync.Mutex
	frames   []*StoredFrame
	capacity int
	head     int // next write position
	size     int
}

// NewHistory creates a history ring with the given capacity.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = DefaultHistoryCapacity
	}
	return &History{
		frames:   make([]*StoredFrame, capacity),
		capacity: capacity,
	}
}

// Add stores a frame, evicting the oldest when at capacity, and returns the
// stored wrapper.
func (h *History) Add(frame *emg.Frame, receivedAt time.Time) *StoredFrame {
	sf := &StoredFrame{
		ID:              uuid.NewString(),
		ReceivedAt:      receivedAt,
		ServerTimestamp: uint64(receivedAt.UnixMilli()),
		Frame:           frame,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.frames[h.head] = sf
	h.head = (h.head + 1) % h.capacity
	if h.size < h.capacity {
		h.size++
	}
	return sf
}

// at returns the i-th stored frame counting from the oldest. Callers hold
// the lock.
func (h *History) at(i int) *StoredFrame {
	return h.frames[(h.head-h.size+i+h.capacity)%h.capacity]
}

func matchDevice(sf *StoredFrame, deviceID string) bool {
	return deviceID == "" || sf.Frame.DeviceID == deviceID
}

// Recent returns up to limit matching frames in arrival order, oldest
// first. limit <= 0 returns all matching frames. An empty deviceID matches
// every device.
func (h *History) Recent(limit int, deviceID string) []*StoredFrame {
	h.mu.Lock()
	defer h.mu.Unlock()

	var result []*StoredFrame
	for i := 0; i < h.size; i++ {
		if sf := h.at(i); matchDevice(sf, deviceID) {
			result = append(result, sf)
		}
	}
	if limit > 0 && len(result) > limit {
		result = result[len(result)-limit:]
	}
	return result
}

// Latest returns the newest matching frame, or nil.
func (h *History) Latest(deviceID string) *StoredFrame {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i := h.size - 1; i >= 0; i-- {
		if sf := h.at(i); matchDevice(sf, deviceID) {
			return sf
		}
	}
	return nil
}

// BySequence returns the first stored frame carrying the given sequence
// number, or nil. Storage order runs oldest to newest, so when a producer
// restart reuses a sequence number the earlier frame wins.
func (h *History) BySequence(sequence uint64, deviceID string) *StoredFrame {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i := 0; i < h.size; i++ {
		sf := h.at(i)
		if matchDevice(sf, deviceID) && sf.Frame.FrameSequence == sequence {
			return sf
		}
	}
	return nil
}

// ByTimeRange returns matching frames received in [from, to], oldest
// first.
func (h *History) ByTimeRange(from, to time.Time, deviceID string) []*StoredFrame {
	h.mu.Lock()
	defer h.mu.Unlock()

	var result []*StoredFrame
	for i := 0; i < h.size; i++ {
		sf := h.at(i)
		if !matchDevice(sf, deviceID) {
			continue
		}
		if sf.ReceivedAt.Before(from) || sf.ReceivedAt.After(to) {
			continue
		}
		result = append(result, sf)
	}
	return result
}

// Len returns the number of stored frames.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.size
}

// Capacity returns the maximum number of frames the ring holds.
func (h *History) Capacity() int {
	return h.capacity
}

// Clear removes all stored frames.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i := range h.frames {
		h.frames[i] = nil
	}
	h.head = 0
	h.size = 0
}
