package importer

import (
	"context"
	"log/slog"

	"github.com/athorsen/bestiary-api/internal/domain"
	"github.com/athorsen/bestiary-api/internal/store"
)

// Outcome is the per-record result of an upsert attempt.
type Outcome string

// Possible upsert outcomes.
const (
	OutcomeLoaded  Outcome = "loaded"
	OutcomeUpdated Outcome = "updated"
	OutcomeSkipped Outcome = "skipped"
	OutcomeError   Outcome = "error"
)

// CreatureRepository is the persistence collaborator of the upsert engine.
// Create and Update are transactional: a failure rolls back every write of
// that one record.
type CreatureRepository interface {
	// GetByName looks up a creature by exact name match.
	// Returns store.ErrCreatureNotFound when absent.
	GetByName(ctx context.Context, name string) (*domain.Creature, error)

	// Create inserts a new creature with its stat rows and associations.
	Create(ctx context.Context, creature *domain.Creature) error

	// Update overwrites an existing creature and re-links its associations.
	Update(ctx context.Context, creature *domain.Creature) error
}

// UpsertEngine reconciles one normalized record against existing storage.
type UpsertEngine struct {
	repo   CreatureRepository
	logger *slog.Logger
}

// NewUpsertEngine creates an UpsertEngine.
func NewUpsertEngine(repo CreatureRepository, logger *slog.Logger) *UpsertEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &UpsertEngine{
		repo:   repo,
		logger: logger.With(slog.String("component", "upsert_engine")),
	}
}

// Upsert decides create vs. update vs. skip for one record. Persistence
// failures are absorbed into OutcomeError; they never abort the remaining
// records of a batch. A duplicate-insert race between concurrent tasks
// surfaces through the storage uniqueness constraint as OutcomeError.
func (e *UpsertEngine) Upsert(ctx context.Context, creature *domain.Creature, forceUpdate bool) Outcome {
	existing, err := e.repo.GetByName(ctx, creature.Name)
	if err != nil && !store.IsNotFoundError(err) {
		e.logger.Error("failed to look up existing record",
			slog.String("name", creature.Name),
			slog.String("error", err.Error()))
		return OutcomeError
	}

	if existing != nil {
		if !forceUpdate {
			return OutcomeSkipped
		}

		creature.ID = existing.ID
		if err := e.repo.Update(ctx, creature); err != nil {
			e.logger.Error("failed to update record",
				slog.String("name", creature.Name),
				slog.String("error", err.Error()))
			return OutcomeError
		}
		return OutcomeUpdated
	}

	if err := e.repo.Create(ctx, creature); err != nil {
		e.logger.Error("failed to insert record",
			slog.String("name", creature.Name),
			slog.String("error", err.Error()))
		return OutcomeError
	}
	return OutcomeLoaded
}
