package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/emg.report/internal/api"
	"github.com/banshee-data/emg.report/internal/collector"
	"github.com/banshee-data/emg.report/internal/config"
	"github.com/banshee-data/emg.report/internal/fsutil"
	"github.com/banshee-data/emg.report/internal/monitoring"
	"github.com/banshee-data/emg.report/internal/timeutil"
	"github.com/banshee-data/emg.report/internal/units"
	"github.com/banshee-data/emg.report/internal/version"
)

var (
	listen       = flag.String("listen", ":8080", "HTTP listen address")
	configPath   = flag.String("config", "", "Path to a tuning config JSON file (default: built-in defaults)")
	displayUnits = flag.String("units", units.Counts, "Default amplitude units for statistics endpoints")
	exportDir    = flag.String("export-dir", "exports", "Directory for frame exports triggered from the debug routes")
	verbose      = flag.Bool("verbose", false, "Log per-frame debug detail")
)

// Main
func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("HTTP listen address is required")
	}
	if !units.IsValid(*displayUnits) {
		log.Fatalf("Invalid units %q (valid: %s)", *displayUnits, units.GetValidUnitsString())
	}
	monitoring.SetDebug(*verbose)

	log.Printf("emg-collector %s", version.String())

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

	svc := collector.NewService(cfg.GetHistoryCapacity(), cfg.GetSubscriberBuffer(), timeutil.RealClock{})

	server := api.NewServer(svc, *displayUnits)
	mux := server.ServeMux()

	// mount the admin debugging routes (SSE tail, activation chart, export)
	server.AttachAdminRoutes(mux, fsutil.OSFileSystem{}, *exportDir)

	// Create a wait group for the HTTP server routine
	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		httpServer := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			log.Printf("Starting collector on %s (history %d frames, subscriber buffer %d)",
				*listen, cfg.GetHistoryCapacity(), cfg.GetSubscriberBuffer())
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		// Create a shutdown context with a shorter timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			// Force close the server if graceful shutdown fails
			if err := httpServer.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}

		log.Printf("HTTP server routine stopped")
	}()

	// Wait for all goroutines to finish
	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
