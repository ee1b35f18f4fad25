package importer

import (
	"context"
	"database/sql"

	"github.com/athorsen/bestiary-api/internal/domain"
	"github.com/athorsen/bestiary-api/internal/store"
)

// creatureRepositoryAdapter adapts a CreatureStore to the CreatureRepository
// interface, wrapping every mutation in its own transaction so one record's
// failure rolls that record back without touching the rest of the batch.
type creatureRepositoryAdapter struct {
	db        *sql.DB
	creatures store.CreatureStore
}

// NewCreatureRepository creates a transactional CreatureRepository over the
// given database handle and creature store.
func NewCreatureRepository(db *sql.DB, creatures store.CreatureStore) CreatureRepository {
	return &creatureRepositoryAdapter{
		db:        db,
		creatures: creatures,
	}
}

func (a *creatureRepositoryAdapter) GetByName(ctx context.Context, name string) (*domain.Creature, error) {
	return a.creatures.GetByName(ctx, name)
}

func (a *creatureRepositoryAdapter) Create(ctx context.Context, creature *domain.Creature) error {
	return store.RunInTransaction(ctx, a.db, func(ctx context.Context, tx *sql.Tx) error {
		return a.creatures.WithTx(tx).Create(ctx, creature)
	})
}

func (a *creatureRepositoryAdapter) Update(ctx context.Context, creature *domain.Creature) error {
	return store.RunInTransaction(ctx, a.db, func(ctx context.Context, tx *sql.Tx) error {
		return a.creatures.WithTx(tx).Update(ctx, creature)
	})
}
