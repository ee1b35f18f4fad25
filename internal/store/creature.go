package store

import (
	"context"
	"database/sql"

	"github.com/athorsen/bestiary-api/internal/domain"
)

// CreatureFilter narrows a creature listing. Zero values mean "no filter".
type CreatureFilter struct {
	// Name, Tag and Trait are case-insensitive substring matches.
	Name  string
	Tag   string
	Trait string

	// Minimum stat thresholds; nil means unfiltered.
	MinHP             *int
	MinAttack         *int
	MinDefense        *int
	MinSpecialAttack  *int
	MinSpecialDefense *int
	MinSpeed          *int
	MinTotalStats     *int

	// SortBy must be one of the whitelisted sortable columns; empty sorts
	// by id ascending. SortDesc reverses the order.
	SortBy   string
	SortDesc bool

	Offset int
	Limit  int
}

// CreatureSummary aggregates catalog-wide stat figures.
type CreatureSummary struct {
	TotalCreatures    int     `json:"total_creatures"`
	AvgHP             float64 `json:"avg_hp"`
	AvgAttack         float64 `json:"avg_attack"`
	AvgDefense        float64 `json:"avg_defense"`
	AvgSpecialAttack  float64 `json:"avg_special_attack"`
	AvgSpecialDefense float64 `json:"avg_special_defense"`
	AvgSpeed          float64 `json:"avg_speed"`
	AvgTotal          float64 `json:"avg_total"`
	MaxTotalStats     int     `json:"max_total_stats"`
	MinTotalStats     int     `json:"min_total_stats"`
}

// CreatureStore defines the interface for creature data persistence.
type CreatureStore interface {
	// Create saves a new creature, its owned stat rows, and its Tag/Trait
	// associations, auto-creating missing Tag/Trait rows by name.
	// Returns ErrCreatureNameExists if the name is already taken.
	Create(ctx context.Context, creature *domain.Creature) error

	// GetByID retrieves a creature with its tags, traits and stat rows.
	// Returns ErrCreatureNotFound if the creature does not exist.
	GetByID(ctx context.Context, id int64) (*domain.Creature, error)

	// GetByName retrieves a creature by exact name match. Used by the
	// upsert engine, which relies on exact-identity reconciliation.
	// Returns ErrCreatureNotFound if the creature does not exist.
	GetByName(ctx context.Context, name string) (*domain.Creature, error)

	// GetByNameFold retrieves a creature by case-insensitive name match.
	// Returns ErrCreatureNotFound if the creature does not exist.
	GetByNameFold(ctx context.Context, name string) (*domain.Creature, error)

	// List returns one page of creatures matching the filter plus the
	// total count of matches before pagination.
	List(ctx context.Context, filter CreatureFilter) ([]*domain.Creature, int, error)

	// Update overwrites all scalar fields of an existing creature, clears
	// and re-links its Tag/Trait associations, and replaces its owned stat
	// rows. Returns ErrCreatureNotFound if the creature does not exist.
	Update(ctx context.Context, creature *domain.Creature) error

	// Delete removes a creature and its owned stat rows (cascade). Shared
	// Tag/Trait rows survive. Returns ErrCreatureNotFound if absent.
	Delete(ctx context.Context, id int64) error

	// Summary computes catalog-wide stat aggregates.
	Summary(ctx context.Context) (*CreatureSummary, error)

	// WithTx returns a new CreatureStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller.
	WithTx(tx *sql.Tx) CreatureStore
}
