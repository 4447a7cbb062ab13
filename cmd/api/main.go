package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"hydrogen-bypass/internal/api"
	"hydrogen-bypass/internal/config"
	"hydrogen-bypass/internal/data"
	"hydrogen-bypass/internal/export"
	"hydrogen-bypass/internal/simulate"

	"github.com/gin-gonic/gin"
)

func main() {
	// Get configuration from environment
	port := os.Getenv("API_PORT")
	if port == "" {
		port = "8080"
	}
	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "timeseries_data"
	}
	if info, err := os.Stat(dataDir); err == nil && info.IsDir() {
		log.Printf("Data directory found: %s", dataDir)
	} else {
		log.Printf("Data directory not found at: %s (error: %v)", dataDir, err)
	}

	ttl := time.Hour
	if raw := os.Getenv("RUN_CACHE_TTL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			log.Fatalf("Invalid RUN_CACHE_TTL %q: %v", raw, err)
		}
		ttl = d
	}
	runs := data.NewCache[*simulate.Result](ttl, time.Minute)
	defer runs.Stop()

	// Optional export sinks, configured the same way as the CLI.
	exportCfg := config.Default()
	exportCfg.Export.Influx.Enabled = os.Getenv("INFLUX_URL") != ""
	exportCfg.Export.Kafka.Enabled = os.Getenv("KAFKA_BROKERS") != ""
	exportCfg.ApplyEnv()
	sinks, err := export.FromConfig(context.Background(), exportCfg.Export)
	if err != nil {
		log.Fatalf("Failed to open export sinks: %v", err)
	}
	defer export.CloseAll(sinks)
	log.Printf("Export sinks enabled: %d", len(sinks))

	// Set up Gin router
	if os.Getenv("API_ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.Options{
		DataDir:   dataDir,
		PresetDir: os.Getenv("PRESET_DIR"),
		Runs:      runs,
		Sinks:     sinks,
	})

	// Start server
	addr := fmt.Sprintf(":%s", port)
	log.Printf("Starting API server on %s (run cache ttl %s)", addr, ttl)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
