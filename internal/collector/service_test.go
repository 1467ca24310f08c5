package collector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/emg.report/internal/emg"
	"github.com/banshee-data/emg.report/internal/timeutil"
	"github.com/banshee-data/emg.report/internal/version"
)

func serviceFrame(device string, sequence uint64, samples int) *emg.Frame {
	f := &emg.Frame{
		DeviceID:       device,
		FrameSequence:  sequence,
		SamplingRate:   500,
		SamplesInFrame: samples,
		FrameTimestamp: 1700000000000,
	}
	for i := 0; i < samples; i++ {
		f.Samples = append(f.Samples, emg.ConditionedSample{
			Timestamp: uint64(i) * 2000,
			Ch0:       emg.ChannelSample{Raw: i, EMA: i / 2},
			Ch1:       emg.ChannelSample{Raw: i + 1, EMA: i / 2},
		})
	}
	return f
}

func TestService_IngestAcceptsValidFrame(t *testing.T) {
	svc := NewService(10, 4, timeutil.NewMockClock(time.Now()))

	ack, err := svc.Ingest(serviceFrame("emg-01", 0, 3))
	require.NoError(t, err)
	assert.True(t, ack.Success)
	assert.Equal(t, uint64(0), ack.FrameSequence)
	assert.Equal(t, 3, ack.SamplesReceived)

	status := svc.Status()
	assert.Equal(t, int64(1), status.Stats.Global.FramesReceived)
	assert.Equal(t, int64(3), status.Stats.Global.SamplesReceived)
	assert.Equal(t, 1, status.History.Size)
}

func TestService_IngestRejectsInvalidFrames(t *testing.T) {
	tests := []struct {
		name  string
		frame *emg.Frame
	}{
		{"nil frame", nil},
		{"missing device", serviceFrame("", 0, 2)},
		{"zero sampling rate", func() *emg.Frame {
			f := serviceFrame("emg-01", 0, 2)
			f.SamplingRate = 0
			return f
		}()},
		{"no samples", func() *emg.Frame {
			f := serviceFrame("emg-01", 0, 2)
			f.Samples = nil
			return f
		}()},
		{"count mismatch", func() *emg.Frame {
			f := serviceFrame("emg-01", 0, 2)
			f.SamplesInFrame = 5
			return f
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(10, 4, timeutil.NewMockClock(time.Now()))

			ack, err := svc.Ingest(tt.frame)
			require.Error(t, err)
			assert.Nil(t, ack)

			// Rejected frames leave no trace.
			status := svc.Status()
			assert.Equal(t, int64(0), status.Stats.Global.FramesReceived)
			assert.Equal(t, 0, status.History.Size)
		})
	}
}

func TestService_IngestBroadcastsFrame(t *testing.T) {
	svc := NewService(10, 4, timeutil.NewMockClock(time.Now()))
	_, ch := svc.Hub().Subscribe()

	_, err := svc.Ingest(serviceFrame("emg-01", 2, 1))
	require.NoError(t, err)

	select {
	case e := <-ch:
		assert.Equal(t, EventFrame, e.Type)
		require.NotNil(t, e.Frame)
		assert.Equal(t, "emg-01", e.Frame.Frame.DeviceID)
		assert.Equal(t, uint64(2), e.Frame.Frame.FrameSequence)
		require.NotNil(t, e.Stats, "frame events carry the aggregate stats")
		assert.Equal(t, int64(1), e.Stats.Global.FramesReceived)
	default:
		t.Fatal("Expected ingest to broadcast the stored frame")
	}
}

func TestService_ResetKeepsHistoryByDefault(t *testing.T) {
	svc := NewService(10, 4, timeutil.NewMockClock(time.Now()))
	svc.Ingest(serviceFrame("emg-01", 0, 2))
	svc.Ingest(serviceFrame("emg-01", 1, 2))

	svc.Reset(false)

	status := svc.Status()
	assert.Equal(t, int64(0), status.Stats.Global.FramesReceived)
	assert.Equal(t, 2, status.History.Size, "history survives a stats-only reset")
}

func TestService_ResetClearsHistoryWhenAsked(t *testing.T) {
	svc := NewService(10, 4, timeutil.NewMockClock(time.Now()))
	_, ch := svc.Hub().Subscribe()
	svc.Ingest(serviceFrame("emg-01", 0, 2))
	<-ch // drain the frame event

	svc.Reset(true)

	status := svc.Status()
	assert.Equal(t, 0, status.History.Size)

	select {
	case e := <-ch:
		assert.Equal(t, EventReset, e.Type)
		require.NotNil(t, e.ClearedHistory)
		assert.True(t, *e.ClearedHistory)
	default:
		t.Fatal("Expected reset notification")
	}
}

func TestService_StatusUptime(t *testing.T) {
	clock := timeutil.NewMockClock(time.Now())
	svc := NewService(0, 0, clock)

	clock.Advance(90 * time.Second)

	status := svc.Status()
	assert.Equal(t, "ok", status.Status)
	assert.InDelta(t, 90.0, status.UptimeSeconds, 0.001)
	assert.Equal(t, DefaultHistoryCapacity, status.History.Capacity)
	assert.Equal(t, 0, status.Subscribers)
	assert.Equal(t, version.Version, status.Version)
}
