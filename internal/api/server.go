package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/emg.report/internal/collector"
	"github.com/banshee-data/emg.report/internal/emg"
	"github.com/banshee-data/emg.report/internal/httputil"
	"github.com/banshee-data/emg.report/internal/monitoring"
	"github.com/banshee-data/emg.report/internal/units"
	"github.com/banshee-data/emg.report/internal/version"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// convertChannelRollup applies unit conversion to every amplitude field of a
// ChannelRollup. Stored values are raw ADC counts.
func convertChannelRollup(r collector.ChannelRollup, targetUnits string) collector.ChannelRollup {
	r.Mean = units.ConvertAmplitude(r.Mean, targetUnits)
	r.P50 = units.ConvertAmplitude(r.P50, targetUnits)
	r.P85 = units.ConvertAmplitude(r.P85, targetUnits)
	r.P98 = units.ConvertAmplitude(r.P98, targetUnits)
	r.Max = units.ConvertAmplitude(r.Max, targetUnits)
	return r
}

type Server struct {
	svc   *collector.Service
	units string
}

func NewServer(svc *collector.Service, units string) *Server {
	return &Server{
		svc:   svc,
		units: units,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400 && statusCode < 500:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 500:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/frames", s.handleFrames)
	mux.HandleFunc("/api/frames/recent", s.listRecentFrames)
	mux.HandleFunc("/api/frames/latest", s.showLatestFrame)
	mux.HandleFunc("/api/frames/sequence", s.showFrameBySequence)
	mux.HandleFunc("/api/frames/range", s.listFramesByRange)
	mux.HandleFunc("/api/activation", s.showActivationStats)
	mux.HandleFunc("/api/status", s.showStatus)
	mux.HandleFunc("/api/reset", s.resetStats)
	mux.HandleFunc("/api/config", s.showConfig)
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

func (s *Server) handleFrames(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.ingestFrame(w, r)
	case http.MethodDelete:
		s.clearFrames(w, r)
	default:
		httputil.MethodNotAllowed(w)
	}
}

// ingestFrame accepts one conditioned frame from a producer device. The ack
// echoes the frame sequence so producers can correlate responses; a rejected
// frame still consumes its sequence number on the producer side.
func (s *Server) ingestFrame(w http.ResponseWriter, r *http.Request) {
	var frame emg.Frame
	if err := json.NewDecoder(r.Body).Decode(&frame); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("decode frame: %v", err))
		return
	}

	ack, err := s.svc.Ingest(&frame)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, &emg.Ack{
			Success:       false,
			FrameSequence: frame.FrameSequence,
			Message:       "frame rejected",
			Error:         err.Error(),
		})
		return
	}

	httputil.WriteJSONOK(w, ack)
}

func (s *Server) clearFrames(w http.ResponseWriter, r *http.Request) {
	cleared := s.svc.History().Len()
	s.svc.History().Clear()

	httputil.WriteJSONOK(w, map[string]interface{}{
		"status":  "ok",
		"cleared": cleared,
	})
}

func (s *Server) listRecentFrames(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	limit := 50 // default value
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			httputil.BadRequest(w, "Invalid 'limit' parameter")
			return
		}
		limit = parsed
	}
	device := r.URL.Query().Get("device")

	frames := s.svc.History().Recent(limit, device)
	if frames == nil {
		frames = []*collector.StoredFrame{}
	}

	httputil.WriteJSONOK(w, frames)
}

func (s *Server) showLatestFrame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	frame := s.svc.History().Latest(r.URL.Query().Get("device"))
	if frame == nil {
		httputil.NotFound(w, "no frames received yet")
		return
	}

	httputil.WriteJSONOK(w, frame)
}

func (s *Server) showFrameBySequence(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	seqParam := r.URL.Query().Get("seq")
	if seqParam == "" {
		httputil.BadRequest(w, "missing 'seq' parameter")
		return
	}
	seq, err := strconv.ParseUint(seqParam, 10, 64)
	if err != nil {
		httputil.BadRequest(w, "Invalid 'seq' parameter")
		return
	}

	frame := s.svc.History().BySequence(seq, r.URL.Query().Get("device"))
	if frame == nil {
		httputil.NotFound(w, fmt.Sprintf("no frame with sequence %d", seq))
		return
	}

	httputil.WriteJSONOK(w, frame)
}

// parseTimeParam reads a query timestamp given as unix milliseconds or
// RFC3339.
func parseTimeParam(v string) (time.Time, error) {
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.UnixMilli(ms), nil
	}
	return time.Parse(time.RFC3339, v)
}

// listFramesByRange returns stored frames received inside [from, to].
func (s *Server) listFramesByRange(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	fromParam := r.URL.Query().Get("from")
	toParam := r.URL.Query().Get("to")
	if fromParam == "" || toParam == "" {
		httputil.BadRequest(w, "missing 'from' or 'to' parameter")
		return
	}
	from, err := parseTimeParam(fromParam)
	if err != nil {
		httputil.BadRequest(w, "Invalid 'from' parameter, want unix milliseconds or RFC3339")
		return
	}
	to, err := parseTimeParam(toParam)
	if err != nil {
		httputil.BadRequest(w, "Invalid 'to' parameter, want unix milliseconds or RFC3339")
		return
	}

	frames := s.svc.History().ByTimeRange(from, to, r.URL.Query().Get("device"))
	if frames == nil {
		frames = []*collector.StoredFrame{}
	}

	httputil.WriteJSONOK(w, frames)
}

// showActivationStats aggregates smoothed activation over the most recent
// frames and reports per-channel percentiles.
func (s *Server) showActivationStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	window := 100 // default value
	if wp := r.URL.Query().Get("window"); wp != "" {
		parsed, err := strconv.Atoi(wp)
		if err != nil || parsed < 1 {
			httputil.BadRequest(w, "Invalid 'window' parameter")
			return
		}
		window = parsed
	}

	targetUnits := s.units
	if u := r.URL.Query().Get("units"); u != "" {
		if !units.IsValid(u) {
			httputil.BadRequest(w,
				fmt.Sprintf("Invalid 'units' parameter, must be one of: %s", units.GetValidUnitsString()))
			return
		}
		targetUnits = u
	}

	frames := s.svc.History().Recent(window, r.URL.Query().Get("device"))
	rollup := collector.ComputeRollup(frames)

	// Apply unit conversion to all amplitude values
	rollup.Ch0 = convertChannelRollup(rollup.Ch0, targetUnits)
	rollup.Ch1 = convertChannelRollup(rollup.Ch1, targetUnits)

	response := struct {
		collector.ActivationRollup
		Units string `json:"units"`
	}{rollup, targetUnits}

	httputil.WriteJSONOK(w, response)
}

func (s *Server) showStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	httputil.WriteJSONOK(w, s.svc.Status())
}

func (s *Server) resetStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	clearHistory := r.URL.Query().Get("history") == "true"
	s.svc.Reset(clearHistory)

	httputil.WriteJSONOK(w, map[string]interface{}{
		"status":         "ok",
		"historyCleared": clearHistory,
	})
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	httputil.WriteJSONOK(w, map[string]interface{}{
		"units":   s.units,
		"version": version.Version,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status": "ok", "service": "emg-collector", "timestamp": "%s"}`, time.Now().UTC().Format(time.RFC3339))
}
