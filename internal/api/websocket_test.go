package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/banshee-data/emg.report/internal/collector"
)

// TestHandleWebSocket tests the live event stream over a real connection
func TestHandleWebSocket(t *testing.T) {
	server, svc := setupTestServer(t)

	ts := httptest.NewServer(server.ServeMux())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to dial websocket: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	// The first message is a stats snapshot, sent after the subscription
	// is registered. Frames ingested after it arrives are guaranteed to
	// reach this client.
	var first collector.Event
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("Failed to read initial event: %v", err)
	}
	if first.Type != collector.EventStats {
		t.Fatalf("Expected initial stats event, got %s", first.Type)
	}
	if first.Stats == nil {
		t.Fatal("Expected stats payload in initial event")
	}

	mustIngest(t, svc, testFrame("emg-01", 0, 1, 2, 3))

	var second collector.Event
	if err := conn.ReadJSON(&second); err != nil {
		t.Fatalf("Failed to read frame event: %v", err)
	}
	if second.Type != collector.EventFrame {
		t.Fatalf("Expected frame event, got %s", second.Type)
	}
	if second.Frame == nil {
		t.Fatal("Expected frame payload in frame event")
	}
	if second.Frame.Frame.FrameSequence != 0 {
		t.Errorf("Expected frame sequence 0, got %d", second.Frame.Frame.FrameSequence)
	}
	if second.Frame.Frame.DeviceID != "emg-01" {
		t.Errorf("Expected device emg-01, got %s", second.Frame.Frame.DeviceID)
	}
	if second.Stats == nil || second.Stats.Global.FramesReceived != 1 {
		t.Error("Expected aggregate stats alongside the frame")
	}
}

// TestHandleWebSocket_Unsubscribes tests that closing the connection
// releases the hub subscription
func TestHandleWebSocket_Unsubscribes(t *testing.T) {
	server, svc := setupTestServer(t)

	ts := httptest.NewServer(server.ServeMux())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to dial websocket: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var first collector.Event
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("Failed to read initial event: %v", err)
	}
	if got := svc.Hub().SubscriberCount(); got != 1 {
		t.Fatalf("Expected 1 subscriber, got %d", got)
	}

	conn.Close()

	// The read pump notices the closed connection and unsubscribes.
	deadline := time.Now().Add(2 * time.Second)
	for svc.Hub().SubscriberCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("Expected 0 subscribers after close, got %d", svc.Hub().SubscriberCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// TestHandleWebSocket_RejectsPlainHTTP tests that a non-upgrade request fails
func TestHandleWebSocket_RejectsPlainHTTP(t *testing.T) {
	server, _ := setupTestServer(t)

	ts := httptest.NewServer(server.ServeMux())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/ws")
	if err != nil {
		t.Fatalf("Failed to GET /ws: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", resp.StatusCode)
	}
}
