package importer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/athorsen/bestiary-api/internal/domain"
	"github.com/athorsen/bestiary-api/internal/store"
)

// fakeRepo is an in-memory CreatureRepository.
type fakeRepo struct {
	byName    map[string]*domain.Creature
	nextID    int64
	getErr    error
	createErr error
	updateErr error

	creates int
	updates int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byName: make(map[string]*domain.Creature)}
}

func (r *fakeRepo) GetByName(_ context.Context, name string) (*domain.Creature, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	creature, ok := r.byName[name]
	if !ok {
		return nil, store.ErrCreatureNotFound
	}
	copied := *creature
	return &copied, nil
}

func (r *fakeRepo) Create(_ context.Context, creature *domain.Creature) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.creates++
	r.nextID++
	creature.ID = r.nextID
	stored := *creature
	r.byName[creature.Name] = &stored
	return nil
}

func (r *fakeRepo) Update(_ context.Context, creature *domain.Creature) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.updates++
	stored := *creature
	r.byName[creature.Name] = &stored
	return nil
}

func TestUpsertEngine_NewRecordIsLoaded(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	engine := NewUpsertEngine(repo, nil)

	outcome := engine.Upsert(context.Background(), &domain.Creature{Name: "pidgey"}, false)

	assert.Equal(t, OutcomeLoaded, outcome)
	assert.Equal(t, 1, repo.creates)
	assert.Contains(t, repo.byName, "pidgey")
}

func TestUpsertEngine_ExistingRecordIsSkippedWithoutForce(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	engine := NewUpsertEngine(repo, nil)

	first := engine.Upsert(context.Background(), &domain.Creature{Name: "pidgey", HP: 40}, false)
	second := engine.Upsert(context.Background(), &domain.Creature{Name: "pidgey", HP: 99}, false)

	assert.Equal(t, OutcomeLoaded, first)
	assert.Equal(t, OutcomeSkipped, second)
	assert.Equal(t, 0, repo.updates)
	// The skip left the stored record untouched.
	assert.Equal(t, 40, repo.byName["pidgey"].HP)
}

func TestUpsertEngine_ForceUpdateOverwritesAndKeepsID(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	engine := NewUpsertEngine(repo, nil)

	require.Equal(t, OutcomeLoaded, engine.Upsert(context.Background(), &domain.Creature{Name: "pidgey", HP: 40}, false))
	originalID := repo.byName["pidgey"].ID

	outcome := engine.Upsert(context.Background(), &domain.Creature{Name: "pidgey", HP: 99}, true)

	assert.Equal(t, OutcomeUpdated, outcome)
	assert.Equal(t, 1, repo.updates)
	assert.Equal(t, originalID, repo.byName["pidgey"].ID)
	assert.Equal(t, 99, repo.byName["pidgey"].HP)
}

func TestUpsertEngine_FailuresBecomeErrorOutcomes(t *testing.T) {
	t.Parallel()

	storageDown := errors.New("connection refused")

	tests := []struct {
		name  string
		setup func(r *fakeRepo)
		force bool
	}{
		{
			name:  "lookup failure",
			setup: func(r *fakeRepo) { r.getErr = storageDown },
		},
		{
			name:  "insert failure",
			setup: func(r *fakeRepo) { r.createErr = storageDown },
		},
		{
			name: "update failure",
			setup: func(r *fakeRepo) {
				r.byName["pidgey"] = &domain.Creature{ID: 7, Name: "pidgey"}
				r.updateErr = storageDown
			},
			force: true,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			repo := newFakeRepo()
			tc.setup(repo)
			engine := NewUpsertEngine(repo, nil)

			outcome := engine.Upsert(context.Background(), &domain.Creature{Name: "pidgey"}, tc.force)
			assert.Equal(t, OutcomeError, outcome)
		})
	}
}
