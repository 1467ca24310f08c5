package emg

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// frameFixture is one wire frame as the collector receives it.
const frameFixture = `{"deviceId":"emg-a1b2","frameSequence":7,"samplingRate":500,"samplesInFrame":2,"frameTimestamp":1724580000123,"samples":[{"t":1724580000123456,"ch0":{"raw":12,"ema":9},"ch1":{"raw":4,"ema":3}},{"t":1724580000125456,"ch0":{"raw":11,"ema":9},"ch1":{"raw":5,"ema":3}}]}`

func TestFrameWireFormat(t *testing.T) {
	var frame Frame
	if err := json.Unmarshal([]byte(frameFixture), &frame); err != nil {
		t.Fatalf("Failed to decode frame: %v", err)
	}

	expected := Frame{
		DeviceID:       "emg-a1b2",
		FrameSequence:  7,
		SamplingRate:   500,
		SamplesInFrame: 2,
		FrameTimestamp: 1724580000123,
		Samples: []ConditionedSample{
			{Timestamp: 1724580000123456, Ch0: ChannelSample{Raw: 12, EMA: 9}, Ch1: ChannelSample{Raw: 4, EMA: 3}},
			{Timestamp: 1724580000125456, Ch0: ChannelSample{Raw: 11, EMA: 9}, Ch1: ChannelSample{Raw: 5, EMA: 3}},
		},
	}

	if diff := cmp.Diff(expected, frame); diff != "" {
		t.Errorf("Frame mismatch (-want +got):\n%s", diff)
	}

	// Encode it back and compare the JSON trees, so a renamed struct tag
	// cannot slip through unnoticed.
	data, err := json.Marshal(frame)
	if err != nil {
		t.Fatalf("Failed to encode frame: %v", err)
	}

	var got, want map[string]interface{}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Failed to parse encoded frame: %v", err)
	}
	if err := json.Unmarshal([]byte(frameFixture), &want); err != nil {
		t.Fatalf("Failed to parse fixture: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Wire keys mismatch (-want +got):\n%s", diff)
	}
}

func TestAckWireFormat(t *testing.T) {
	data, err := json.Marshal(&Ack{
		Success:       false,
		FrameSequence: 7,
		Message:       "frame rejected",
		Error:         "samplingRate must be positive, got 0",
	})
	if err != nil {
		t.Fatalf("Failed to encode ack: %v", err)
	}

	var got map[string]interface{}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Failed to parse encoded ack: %v", err)
	}

	want := map[string]interface{}{
		"success":         false,
		"frameSequence":   float64(7),
		"samplesReceived": float64(0),
		"message":         "frame rejected",
		"error":           "samplingRate must be positive, got 0",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Rejection ack mismatch (-want +got):\n%s", diff)
	}
}
