// Command trajectory-report serves the trajectory analysis API: CSV
// detections in, cleaned tracks, physics records, classifications and
// charts out.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/impulse-data/trajectory.report/internal/api"
	"github.com/impulse-data/trajectory.report/internal/config"
	"github.com/impulse-data/trajectory.report/internal/db"
	"github.com/impulse-data/trajectory.report/internal/units"
	"github.com/impulse-data/trajectory.report/internal/version"
)

var (
	configPath  = flag.String("config", "", "Path to server.yaml (optional)")
	tuningPath  = flag.String("tuning", "", "Path to tuning.json (optional, overrides config)")
	listen      = flag.String("listen", "", "Listen address (overrides config)")
	dbPath      = flag.String("db", "", "SQLite database path (overrides config)")
	unitsFlag   = flag.String("units", units.MPS, "Display units for speeds (mps, mph, kmph, kph)")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		log.Printf("trajectory-report %s (%s, built %s)", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	if !units.IsValid(*unitsFlag) {
		log.Fatalf("Invalid units %q; valid values are %s", *unitsFlag, units.GetValidUnitsString())
	}

	serverCfg := config.DefaultServerConfig()
	if *configPath != "" {
		var err error
		serverCfg, err = config.LoadServerConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load server config: %v", err)
		}
	}
	if *listen != "" {
		serverCfg.Server.ListenAddr = *listen
	}
	if *dbPath != "" {
		serverCfg.Storage.DBPath = *dbPath
	}

	tuning := config.EmptyTuningConfig()
	tuningFile := serverCfg.TuningPath
	if *tuningPath != "" {
		tuningFile = *tuningPath
	}
	if tuningFile != "" {
		var err error
		tuning, err = config.LoadTuningConfig(tuningFile)
		if err != nil {
			log.Fatalf("Failed to load tuning config: %v", err)
		}
		log.Printf("Loaded tuning from %s", tuningFile)
	}

	database, err := db.Open(serverCfg.Storage.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	version, dirty, err := database.MigrateVersion()
	if err != nil {
		log.Fatalf("Failed to read schema version: %v", err)
	}
	log.Printf("Database %s at schema version %d (dirty: %v)", serverCfg.Storage.DBPath, version, dirty)

	if serverCfg.Storage.ReportsDir != "" {
		if err := os.MkdirAll(serverCfg.Storage.ReportsDir, 0755); err != nil {
			log.Fatalf("Failed to create reports directory: %v", err)
		}
	}

	apiServer := api.NewServer(database, tuning, *unitsFlag, serverCfg.Storage.ReportsDir)
	httpServer := &http.Server{
		Addr:         serverCfg.Server.ListenAddr,
		Handler:      api.LoggingMiddleware(apiServer.ServeMux()),
		ReadTimeout:  time.Duration(serverCfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(serverCfg.Server.WriteTimeoutSec) * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("Listening on %s", serverCfg.Server.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("HTTP server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}

	// Let in-flight analyses finish writing before the DB closes.
	apiServer.Wait()
	wg.Wait()
	log.Println("Shutdown complete")
	os.Exit(0)
}
