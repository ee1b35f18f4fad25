// Package main implements the entry point for the bestiary API server,
// a creature catalog backed by PostgreSQL with a bulk-import engine that
// pulls records from an external compendium API.
package main

import (
	"context"
	"log"
	"log/slog"

	"github.com/joho/godotenv"

	"github.com/athorsen/bestiary-api/internal/config"
	"github.com/athorsen/bestiary-api/internal/platform/logger"
)

func main() {
	// A missing .env file is fine; real deployments set the environment
	// directly.
	if err := godotenv.Load(); err == nil {
		log.Println("loaded environment from .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		log.Fatalf("failed to set up logger: %v", err)
	}

	appLogger.Info("server configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.String("source_base_url", cfg.Source.BaseURL),
		slog.Int("import_max_limit", cfg.Import.MaxLimit))

	app, err := newApplication(cfg, appLogger)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}
	defer app.cleanup()

	// A restart may have stranded running tasks; settle them before the
	// API starts accepting new imports.
	if err := app.orchestrator.RecoverOrphans(context.Background()); err != nil {
		log.Fatalf("failed to recover orphaned tasks: %v", err)
	}

	if err := app.startHTTPServer(context.Background(), app.setupRouter()); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
