package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/banshee-data/emg.report/internal/collector"
	"github.com/banshee-data/emg.report/internal/monitoring"
)

const (
	// wsWriteTimeout bounds a single write to a client.
	wsWriteTimeout = 10 * time.Second
	// wsPongTimeout is how long a client may stay silent before the read
	// loop gives up on it.
	wsPongTimeout = 60 * time.Second
	// wsPingPeriod must be shorter than wsPongTimeout so the client has a
	// ping to answer before the deadline expires.
	wsPingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Dashboards are served from other origins during development.
		return true
	},
}

// handleWebSocket streams collector events to a browser client. Each
// connection gets its own hub subscription; a slow client drops events rather
// than stalling frame ingest.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		monitoring.Logf("websocket upgrade from %s failed: %v", r.RemoteAddr, err)
		return
	}

	id, events := s.svc.Hub().Subscribe()
	monitoring.Logf("websocket client %s connected from %s", id, r.RemoteAddr)

	go s.writeEvents(conn, id, events)
	go s.readUntilClosed(conn, id)
}

// writeEvents pushes hub events to one client until the connection or the
// subscription goes away. The first message is a stats snapshot so the
// client can render without waiting for the next frame.
func (s *Server) writeEvents(conn *websocket.Conn, id string, events chan collector.Event) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		s.svc.Hub().Unsubscribe(id)
		conn.Close()
	}()

	stats := s.svc.Stats()
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(collector.Event{Type: collector.EventStats, Stats: &stats}); err != nil {
		return
	}

	for {
		select {
		case ev, ok := <-events:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				monitoring.Logf("websocket client %s write failed: %v", id, err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readUntilClosed drains client messages so pongs are processed, and tears
// the subscription down when the client goes away.
func (s *Server) readUntilClosed(conn *websocket.Conn, id string) {
	defer func() {
		if counters, ok := s.svc.Hub().Counters(id); ok {
			monitoring.Logf("websocket client %s disconnected (sent %d, dropped %d)",
				id, counters.Sent, counters.Dropped)
		} else {
			monitoring.Logf("websocket client %s disconnected", id)
		}
		s.svc.Hub().Unsubscribe(id)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
