package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/athorsen/bestiary-api/internal/config"
	"github.com/athorsen/bestiary-api/internal/importer"
	"github.com/athorsen/bestiary-api/internal/platform/postgres"
	"github.com/athorsen/bestiary-api/internal/source"
	"github.com/athorsen/bestiary-api/internal/store"
)

// application bundles the shared dependencies of the server: config, the
// database handle, the stores and the import engine.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	creatureStore store.CreatureStore
	taskStore     store.TaskStore
	orchestrator  *importer.Orchestrator
}

// newApplication wires the full dependency graph: database, migrations,
// stores, the source client and the import pipeline.
func newApplication(cfg *config.Config, logger *slog.Logger) (*application, error) {
	db, err := openDatabase(cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := runMigrations(db, logger); err != nil {
		closeQuietly(db, logger)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Handler-path mutations go through the atomic wrapper so a partial
	// Create/Update rolls back instead of leaving a half-written record.
	creatureStore := store.NewAtomicCreatureStore(db, postgres.NewPostgresCreatureStore(db, logger))
	taskStore := postgres.NewPostgresTaskStore(db, logger)

	sourceClient := source.NewClient(cfg.Source, logger)
	transformer := importer.NewTransformer(sourceClient, logger)
	repository := importer.NewCreatureRepository(db, creatureStore)
	upserter := importer.NewUpsertEngine(repository, logger)
	loader := importer.NewBatchLoader(sourceClient, transformer, upserter, logger)

	orchestrator := importer.NewOrchestrator(taskStore, loader, sourceClient, importer.OrchestratorConfig{
		MaxLimit:         cfg.Import.MaxLimit,
		DefaultBatchSize: cfg.Import.DefaultBatchSize,
		InterBatchPause:  time.Duration(cfg.Import.InterBatchPauseMillis) * time.Millisecond,
	}, logger)

	return &application{
		config:        cfg,
		logger:        logger,
		db:            db,
		creatureStore: creatureStore,
		taskStore:     taskStore,
		orchestrator:  orchestrator,
	}, nil
}

// cleanup releases application resources in reverse dependency order: the
// import workers first, then the database they write to.
func (app *application) cleanup() {
	if app.orchestrator != nil {
		app.orchestrator.Stop()
	}
	if app.db != nil {
		closeQuietly(app.db, app.logger)
	}
}

func closeQuietly(db *sql.DB, logger *slog.Logger) {
	if err := db.Close(); err != nil {
		logger.Error("failed to close database", slog.String("error", err.Error()))
	}
}
