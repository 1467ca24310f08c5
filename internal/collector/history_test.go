package collector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/emg.report/internal/emg"
)

func historyFrame(device string, sequence uint64) *emg.Frame {
	return &emg.Frame{
		DeviceID:       device,
		FrameSequence:  sequence,
		SamplingRate:   500,
		SamplesInFrame: 1,
		Samples: []emg.ConditionedSample{
			{Timestamp: sequence * 2000, Ch0: emg.ChannelSample{Raw: int(sequence)}, Ch1: emg.ChannelSample{}},
		},
	}
}

func TestHistory_AddAndRecent(t *testing.T) {
	h := NewHistory(5)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := uint64(0); i < 3; i++ {
		h.Add(historyFrame("emg-01", i), base.Add(time.Duration(i)*time.Second))
	}

	frames := h.Recent(0, "")
	require.Len(t, frames, 3)
	for i, sf := range frames {
		assert.Equal(t, uint64(i), sf.Frame.FrameSequence, "frames come back oldest first")
		assert.NotEmpty(t, sf.ID)
		assert.Equal(t, uint64(sf.ReceivedAt.UnixMilli()), sf.ServerTimestamp)
	}
	assert.Equal(t, 3, h.Len())
}

func TestHistory_EvictsOldestAtCapacity(t *testing.T) {
	h := NewHistory(2)
	now := time.Now()

	h.Add(historyFrame("emg-01", 0), now) // A
	h.Add(historyFrame("emg-01", 1), now) // B
	h.Add(historyFrame("emg-01", 2), now) // C evicts A

	frames := h.Recent(0, "")
	require.Len(t, frames, 2)
	assert.Equal(t, uint64(1), frames[0].Frame.FrameSequence)
	assert.Equal(t, uint64(2), frames[1].Frame.FrameSequence)

	latest := h.Latest("")
	require.NotNil(t, latest)
	assert.Equal(t, uint64(2), latest.Frame.FrameSequence)
}

func TestHistory_WrapAround(t *testing.T) {
	h := NewHistory(3)
	now := time.Now()

	for i := uint64(0); i < 5; i++ {
		h.Add(historyFrame("emg-01", i), now)
	}

	assert.Equal(t, 3, h.Len())
	frames := h.Recent(0, "")
	require.Len(t, frames, 3)
	assert.Equal(t, uint64(2), frames[0].Frame.FrameSequence)
	assert.Equal(t, uint64(4), frames[2].Frame.FrameSequence)
}

func TestHistory_RecentLimit(t *testing.T) {
	h := NewHistory(10)
	now := time.Now()
	for i := uint64(0); i < 5; i++ {
		h.Add(historyFrame("emg-01", i), now)
	}

	frames := h.Recent(2, "")
	require.Len(t, frames, 2)
	assert.Equal(t, uint64(3), frames[0].Frame.FrameSequence, "limit keeps the newest frames")
	assert.Equal(t, uint64(4), frames[1].Frame.FrameSequence)
}

func TestHistory_DeviceFilter(t *testing.T) {
	h := NewHistory(10)
	now := time.Now()
	h.Add(historyFrame("emg-01", 0), now)
	h.Add(historyFrame("emg-02", 0), now)
	h.Add(historyFrame("emg-01", 1), now)

	frames := h.Recent(0, "emg-01")
	require.Len(t, frames, 2)
	for _, sf := range frames {
		assert.Equal(t, "emg-01", sf.Frame.DeviceID)
	}

	latest := h.Latest("emg-02")
	require.NotNil(t, latest)
	assert.Equal(t, "emg-02", latest.Frame.DeviceID)

	assert.Nil(t, h.Latest("emg-99"))
}

func TestHistory_BySequence(t *testing.T) {
	h := NewHistory(10)
	now := time.Now()
	h.Add(historyFrame("emg-01", 7), now)
	h.Add(historyFrame("emg-02", 7), now)

	sf := h.BySequence(7, "emg-02")
	require.NotNil(t, sf)
	assert.Equal(t, "emg-02", sf.Frame.DeviceID)

	assert.Nil(t, h.BySequence(8, ""))
}

func TestHistory_BySequenceDuplicateKeepsOldest(t *testing.T) {
	h := NewHistory(10)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// A producer restart reuses sequence 3; lookups return the earlier frame.
	h.Add(historyFrame("emg-01", 3), base)
	h.Add(historyFrame("emg-01", 3), base.Add(time.Minute))

	sf := h.BySequence(3, "emg-01")
	require.NotNil(t, sf)
	assert.Equal(t, base, sf.ReceivedAt)
}

func TestHistory_ByTimeRange(t *testing.T) {
	h := NewHistory(10)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := uint64(0); i < 3; i++ {
		h.Add(historyFrame("emg-01", i), base.Add(time.Duration(i)*time.Second))
	}

	frames := h.ByTimeRange(base.Add(500*time.Millisecond), base.Add(1500*time.Millisecond), "")
	require.Len(t, frames, 1)
	assert.Equal(t, uint64(1), frames[0].Frame.FrameSequence)

	all := h.ByTimeRange(base, base.Add(time.Hour), "")
	assert.Len(t, all, 3)
}

func TestHistory_Clear(t *testing.T) {
	h := NewHistory(5)
	h.Add(historyFrame("emg-01", 0), time.Now())
	require.Equal(t, 1, h.Len())

	h.Clear()
	assert.Equal(t, 0, h.Len())
	assert.Nil(t, h.Latest(""))
	assert.Empty(t, h.Recent(0, ""))
	assert.Equal(t, 5, h.Capacity())
}

func TestHistory_DefaultCapacity(t *testing.T) {
	h := NewHistory(0)
	assert.Equal(t, DefaultHistoryCapacity, h.Capacity())
}
