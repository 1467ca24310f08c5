package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/emg.report/internal/config"
	"github.com/banshee-data/emg.report/internal/emg"
	"github.com/banshee-data/emg.report/internal/httputil"
	"github.com/banshee-data/emg.report/internal/monitoring"
	"github.com/banshee-data/emg.report/internal/timeutil"
	"github.com/banshee-data/emg.report/internal/transmit"
	"github.com/banshee-data/emg.report/internal/version"
)

var (
	devMode     = flag.Bool("dev", false, "Use the simulated signal source instead of a serial device")
	port        = flag.String("port", "/dev/ttyACM0", "Serial port of the acquisition front end (ignored in dev mode)")
	deviceID    = flag.String("device-id", "", "Device identifier stamped on every frame (default: hostname)")
	collector   = flag.String("collector", "http://localhost:8080", "Base URL of the collector")
	configPath  = flag.String("config", "", "Path to a tuning config JSON file (default: built-in defaults)")
	listen      = flag.String("listen", ":8082", "Status HTTP listen address")
	logInterval = flag.Int("log-interval", 10, "Statistics logging interval in seconds")
	verbose     = flag.Bool("verbose", false, "Log per-frame debug detail")
)

// newFilterFactory builds the per-channel notch filter constructor. A zero
// notch frequency disables the filtering stage entirely.
func newFilterFactory(cfg *config.TuningConfig) func() emg.SampleFilter {
	freq := cfg.GetNotchFreqHz()
	if freq <= 0 {
		return nil
	}
	rate := float64(cfg.GetSampleRateHz())
	q := cfg.GetNotchQ()
	return func() emg.SampleFilter {
		return emg.NewNotchFilter(rate, freq, q)
	}
}

// Main
func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}
	if !*devMode && *port == "" {
		log.Fatal("Serial port is required")
	}
	monitoring.SetDebug(*verbose)

	log.Printf("emg-sensor %s", version.String())

	var cfg *config.TuningConfig
	if *configPath != "" {
		var err error
		cfg, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		log.Printf("Loaded tuning config from %s", *configPath)
	} else {
		cfg = config.EmptyTuningConfig()
	}

	id := *deviceID
	if id == "" {
		hostname, err := os.Hostname()
		if err != nil {
			log.Fatalf("Failed to determine hostname for device id: %v", err)
		}
		id = hostname
	}

	clock := timeutil.RealClock{}

	var source emg.Source
	if *devMode {
		source = emg.NewSimSource(clock, time.Now().UnixNano())
		log.Print("Using simulated signal source")
	} else {
		var err error
		source, err = emg.NewSerialSource(*port, clock)
		if err != nil {
			log.Fatalf("Failed to open serial source: %v", err)
		}
		log.Printf("Opened serial source on %s", *port)
	}
	defer source.Close()

	client := transmit.NewClient(nil, *collector, cfg.GetSendTimeout())

	scheduler := emg.NewScheduler(emg.SchedulerConfig{
		DeviceID:           id,
		SampleRate:         cfg.GetSampleRateHz(),
		SamplesPerFrame:    cfg.GetSamplesPerFrame(),
		CalibrationSamples: cfg.GetCalibrationSamples(),
		SmoothingWindow:    cfg.GetSmoothingWindow(),
		EMAAlpha:           cfg.GetEMAAlpha(),
		LogInterval:        time.Duration(*logInterval) * time.Second,
		NewFilter:          newFilterFactory(cfg),
	}, source, client, clock)

	// Create a wait group for the scheduler and status server routines
	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// run the acquisition loop; a source failure unwinds the whole process
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := scheduler.Run(ctx); err != nil {
			log.Printf("scheduler error: %v", err)
		}
		log.Print("scheduler routine terminated")
		stop()
	}()

	// Status HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()

		sourceStatus := fmt.Sprintf("serial (%s)", *port)
		if *devMode {
			sourceStatus = "simulated"
		}

		// Health check endpoint
		mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"status": "ok", "service": "emg-sensor", "timestamp": "%s"}`, time.Now().UTC().Format(time.RFC3339))
		})

		// Scheduler state and counters snapshot
		mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
			httputil.WriteJSONOK(w, map[string]interface{}{
				"deviceId":  id,
				"source":    sourceStatus,
				"collector": *collector,
				"scheduler": scheduler.Stats().Snapshot(),
				"version":   version.Version,
			})
		})

		// Basic info endpoint
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/" {
				http.NotFound(w, r)
				return
			}
			w.Header().Set("Content-Type", "text/html")

			fmt.Fprintf(w, `
<!DOCTYPE html>
<html>
<head><title>EMG Sensor</title></head>
<body>
	<h1>EMG Sensor</h1>
	<p>Device: %s</p>
	<p>Signal source: %s</p>
	<p>Sampling at %d Hz, %d samples per frame</p>
	<p>Posting frames to %s</p>
	<ul>
		<li><a href="/api/health">Health check</a></li>
		<li><a href="/api/status">Scheduler status</a></li>
	</ul>
</body>
</html>`, id, sourceStatus, cfg.GetSampleRateHz(), cfg.GetSamplesPerFrame(), *collector)
		})

		server := &http.Server{
			Addr:    *listen,
			Handler: mux,
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			log.Printf("Starting status server on %s", *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		// Create a shutdown context with a shorter timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			// Force close the server if graceful shutdown fails
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}

		log.Printf("HTTP server routine stopped")
	}()

	// Wait for all goroutines to finish
	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
