package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"tailscale.com/tsweb"

	"github.com/banshee-data/emg.report/internal/collector"
	"github.com/banshee-data/emg.report/internal/fsutil"
	"github.com/banshee-data/emg.report/internal/httputil"
)

const echartsAssetsPrefix = "https://go-echarts.github.io/go-echarts-assets/assets/"

// AttachAdminRoutes registers debug endpoints under /debug/ on the given mux.
// The export filesystem and directory are only used by the export endpoint.
func (s *Server) AttachAdminRoutes(mux *http.ServeMux, exportFS fsutil.FileSystem, exportDir string) {
	debug := tsweb.Debugger(mux)

	// API endpoint to issue Server-Side Events (SSE) for frames as they arrive.
	debug.HandleSilentFunc("emg/tail", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			httputil.MethodNotAllowed(w)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no") // Disable buffering for nginx

		id, c := s.svc.Hub().Subscribe()
		defer s.svc.Hub().Unsubscribe(id)

		// Send initial ping to establish connection
		w.Write([]byte(": ping\n\n"))
		w.(http.Flusher).Flush()

		for {
			select {
			case ev, ok := <-c:
				if !ok {
					// Channel closed, exit gracefully
					return
				}
				payload, err := json.Marshal(ev)
				if err != nil {
					continue
				}
				if _, err := w.Write([]byte(fmt.Sprintf("data: %s\n\n", payload))); err != nil {
					return
				}
				w.(http.Flusher).Flush()
			case <-r.Context().Done():
				return
			}
		}
	})

	debug.HandleFunc("emg/chart", "line chart of recent smoothed activation per channel", func(w http.ResponseWriter, r *http.Request) {
		s.handleActivationChart(w, r)
	})

	// API endpoint to dump the frame history ring to a JSON file on disk.
	debug.HandleSilentFunc("emg/export", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			httputil.MethodNotAllowed(w)
			return
		}

		limit := s.svc.History().Len()
		if l := r.FormValue("limit"); l != "" {
			if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
				limit = parsed
			}
		}
		device := r.FormValue("device")
		name := r.FormValue("name")

		frames := s.svc.History().Recent(limit, device)
		path, err := collector.ExportHistoryJSON(exportFS, exportDir, name, frames)
		if err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("export failed: %v", err))
			return
		}

		httputil.WriteJSONOK(w, map[string]interface{}{
			"status": "ok",
			"path":   path,
			"frames": len(frames),
		})
	})
}

// handleActivationChart renders the smoothed activation of the most recent
// frames as a per-channel line chart.
// Query params:
//
//	window (optional, default 50) - number of recent frames to plot
//	device (optional) - restrict to one producer
func (s *Server) handleActivationChart(w http.ResponseWriter, r *http.Request) {
	window := 50
	if wp := r.URL.Query().Get("window"); wp != "" {
		if parsed, err := strconv.Atoi(wp); err == nil && parsed > 0 && parsed <= 10000 {
			window = parsed
		}
	}
	device := r.URL.Query().Get("device")

	frames := s.svc.History().Recent(window, device)
	if len(frames) == 0 {
		httputil.NotFound(w, "no frames in window")
		return
	}

	var (
		x        []string
		ch0, ch1 []opts.LineData
		samples  int
	)
	for _, sf := range frames {
		for _, smp := range sf.Frame.Samples {
			x = append(x, strconv.Itoa(samples))
			ch0 = append(ch0, opts.LineData{Value: smp.Ch0.EMA})
			ch1 = append(ch1, opts.LineData{Value: smp.Ch1.EMA})
			samples++
		}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "EMG Activation", Theme: "dark", Width: "100%", Height: "720px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Smoothed Muscle Activation (ADC counts)", Subtitle: fmt.Sprintf("frames=%d samples=%d %s", len(frames), samples, time.Now().Format(time.RFC3339))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "sample"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "EMA (counts)"}),
	)
	line.SetXAxis(x).
		AddSeries("ch0", ch0).
		AddSeries("ch1", ch1).
		SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true), ShowSymbol: opts.Bool(false)}))

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("render error: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
