package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/jaki95/dj-metadata-sync/config"
	"github.com/jaki95/dj-metadata-sync/internal/server"
	"github.com/jaki95/dj-metadata-sync/internal/tagstore"
)

func main() {
	configPath := flag.String("config", "", "Path to the YAML configuration file")
	port := flag.String("port", "", "Server port (overrides the configuration)")
	flag.Parse()

	// Load configuration
	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			slog.Error("Failed to load configuration", "error", err)
			os.Exit(1)
		}
	}
	if *port != "" {
		cfg.Server.Port = *port
	}

	// Setup logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.Level(cfg.LogLevel)}))
	slog.SetDefault(logger)

	backend, err := tagstore.NewBackend(context.Background(), cfg.TagStore)
	if err != nil {
		slog.Error("Failed to open tag store", "error", err)
		os.Exit(1)
	}
	defer tagstore.Close(backend)

	srv := server.New(cfg, backend)

	slog.Info("Starting metadata sync API server", "port", cfg.Server.Port, "tagStore", cfg.TagStore.Type)
	if err := srv.Start(cfg.Server.Port); err != nil {
		slog.Error("Server failed", "error", err)
		tagstore.Close(backend)
		os.Exit(1)
	}
}
