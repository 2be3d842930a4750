package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env before anything reads the environment.
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: Could not load .env file: %v (continuing without it)", err)
	}

	var (
		configPath = flag.String("config", "config.yaml", "Path to configuration file")
		port       = flag.Int("port", 0, "Port to run the server on (overrides config)")
	)
	flag.Parse()

	config, err := loadConfig(*configPath)
	if err != nil {
		log.Printf("Warning: Could not load config: %v", err)
		config = defaultConfig()
	}
	applyEnvOverrides(config)
	if *port != 0 {
		config.Server.Port = *port
	}

	server := NewAPIServer(config)

	statsCron := server.StartStatsSnapshots()
	defer statsCron.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil && err != http.ErrServerClosed {
		log.Fatalf("❌ [SERVER] %v", err)
	}
}
