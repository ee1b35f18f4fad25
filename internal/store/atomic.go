package store

import (
	"context"
	"database/sql"

	"github.com/athorsen/bestiary-api/internal/domain"
)

// atomicCreatureStore wraps the multi-statement mutations of an inner
// CreatureStore in their own transactions. Update in particular clears
// association rows before re-linking them, so a mid-sequence failure on a
// bare connection would leave the record stripped; inside a transaction the
// whole mutation rolls back instead.
type atomicCreatureStore struct {
	db    *sql.DB
	inner CreatureStore
}

// NewAtomicCreatureStore returns a CreatureStore whose Create and Update run
// inside RunInTransaction. Reads and the single-statement Delete delegate to
// the inner store unchanged.
func NewAtomicCreatureStore(db *sql.DB, inner CreatureStore) CreatureStore {
	if db == nil {
		panic("db cannot be nil")
	}
	return &atomicCreatureStore{db: db, inner: inner}
}

func (s *atomicCreatureStore) Create(ctx context.Context, creature *domain.Creature) error {
	return RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.inner.WithTx(tx).Create(ctx, creature)
	})
}

func (s *atomicCreatureStore) Update(ctx context.Context, creature *domain.Creature) error {
	return RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.inner.WithTx(tx).Update(ctx, creature)
	})
}

// Delete is a single DELETE with cascading association cleanup, already
// atomic on its own.
func (s *atomicCreatureStore) Delete(ctx context.Context, id int64) error {
	return s.inner.Delete(ctx, id)
}

func (s *atomicCreatureStore) GetByID(ctx context.Context, id int64) (*domain.Creature, error) {
	return s.inner.GetByID(ctx, id)
}

func (s *atomicCreatureStore) GetByName(ctx context.Context, name string) (*domain.Creature, error) {
	return s.inner.GetByName(ctx, name)
}

func (s *atomicCreatureStore) GetByNameFold(ctx context.Context, name string) (*domain.Creature, error) {
	return s.inner.GetByNameFold(ctx, name)
}

func (s *atomicCreatureStore) List(ctx context.Context, filter CreatureFilter) ([]*domain.Creature, int, error) {
	return s.inner.List(ctx, filter)
}

func (s *atomicCreatureStore) Summary(ctx context.Context) (*CreatureSummary, error) {
	return s.inner.Summary(ctx)
}

// WithTx binds the inner store to an existing transaction; no nested
// transaction is opened.
func (s *atomicCreatureStore) WithTx(tx *sql.Tx) CreatureStore {
	return s.inner.WithTx(tx)
}
