package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/athorsen/bestiary-api/internal/store"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{
			name:     "no rows maps to not found",
			err:      sql.ErrNoRows,
			sentinel: store.ErrNotFound,
		},
		{
			name:     "unique violation maps to duplicate",
			err:      &pgconn.PgError{Code: uniqueViolationCode},
			sentinel: store.ErrDuplicate,
		},
		{
			name:     "foreign key violation maps to invalid entity",
			err:      &pgconn.PgError{Code: foreignKeyViolationCode, ConstraintName: "creature_tags_creature_id_fkey"},
			sentinel: store.ErrInvalidEntity,
		},
		{
			name:     "check violation maps to invalid entity",
			err:      &pgconn.PgError{Code: checkViolationCode, ConstraintName: "creatures_hp_check"},
			sentinel: store.ErrInvalidEntity,
		},
		{
			name:     "not null violation maps to invalid entity",
			err:      &pgconn.PgError{Code: notNullViolationCode, ColumnName: "name"},
			sentinel: store.ErrInvalidEntity,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.ErrorIs(t, MapError(tc.err), tc.sentinel)
		})
	}

	t.Run("nil stays nil", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, MapError(nil))
	})

	t.Run("unknown errors pass through", func(t *testing.T) {
		t.Parallel()
		cause := errors.New("connection reset")
		assert.Equal(t, cause, MapError(cause))
	})

	t.Run("wrapped pg errors still map", func(t *testing.T) {
		t.Parallel()
		wrapped := fmt.Errorf("insert creature: %w", &pgconn.PgError{Code: uniqueViolationCode})
		assert.ErrorIs(t, MapError(wrapped), store.ErrDuplicate)
	})
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: uniqueViolationCode}))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: foreignKeyViolationCode}))
	assert.False(t, IsUniqueViolation(errors.New("other")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestIsValidSortColumn(t *testing.T) {
	t.Parallel()

	for _, column := range []string{"name", "hp", "total_stats", "base_happiness"} {
		assert.True(t, IsValidSortColumn(column), column)
	}
	assert.False(t, IsValidSortColumn("id; DROP TABLE creatures"))
	assert.False(t, IsValidSortColumn(""))
}
