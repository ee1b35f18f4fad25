package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/athorsen/bestiary-api/internal/domain"
	"github.com/athorsen/bestiary-api/internal/platform/logger"
	"github.com/athorsen/bestiary-api/internal/store"
)

// creatureSortColumns whitelists the columns a listing may sort by.
var creatureSortColumns = map[string]string{
	"name":            "name",
	"hp":              "hp",
	"attack":          "attack",
	"defense":         "defense",
	"special_attack":  "special_attack",
	"special_defense": "special_defense",
	"speed":           "speed",
	"total_stats":     "total_stats",
	"height":          "height",
	"weight":          "weight",
	"base_experience": "base_experience",
	"capture_rate":    "capture_rate",
	"base_happiness":  "base_happiness",
}

// IsValidSortColumn reports whether a listing may sort by the given column.
func IsValidSortColumn(name string) bool {
	_, ok := creatureSortColumns[name]
	return ok
}

const creatureColumns = `id, name, height, weight, base_experience, is_default,
	hp, attack, defense, special_attack, special_defense, speed, total_stats,
	capture_rate, base_happiness, growth_rate, species, evolutions, locations`

// PostgresCreatureStore implements the store.CreatureStore interface
// using a PostgreSQL database as the storage backend.
type PostgresCreatureStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCreatureStore creates a new PostgreSQL implementation of the
// CreatureStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
func NewPostgresCreatureStore(db store.DBTX, logger *slog.Logger) *PostgresCreatureStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresCreatureStore{
		db:     db,
		logger: logger.With(slog.String("component", "creature_store")),
	}
}

// Ensure PostgresCreatureStore implements store.CreatureStore
var _ store.CreatureStore = (*PostgresCreatureStore)(nil)

// WithTx returns a new store instance bound to the provided transaction.
func (s *PostgresCreatureStore) WithTx(tx *sql.Tx) store.CreatureStore {
	return &PostgresCreatureStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.CreatureStore.Create.
// It inserts the creature row, its owned stat rows and its Tag/Trait
// associations, auto-creating missing Tag/Trait rows by name. Callers that
// need atomicity run it inside store.RunInTransaction via WithTx.
func (s *PostgresCreatureStore) Create(ctx context.Context, creature *domain.Creature) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := creature.Validate(); err != nil {
		log.Warn("creature validation failed during create",
			slog.String("error", err.Error()),
			slog.String("name", creature.Name))
		return err
	}

	evolutions, locations, err := marshalCreatureJSON(creature)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO creatures (name, height, weight, base_experience, is_default,
			hp, attack, defense, special_attack, special_defense, speed, total_stats,
			capture_rate, base_happiness, growth_rate, species, evolutions, locations)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id
	`
	err = s.db.QueryRowContext(ctx, query,
		creature.Name, creature.Height, creature.Weight, creature.BaseExperience, creature.IsDefault,
		creature.HP, creature.Attack, creature.Defense, creature.SpecialAttack,
		creature.SpecialDefense, creature.Speed, creature.TotalStats,
		creature.CaptureRate, creature.BaseHappiness, creature.GrowthRate, creature.Species,
		evolutions, locations,
	).Scan(&creature.ID)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: %q", store.ErrCreatureNameExists, creature.Name)
		}
		log.Error("failed to insert creature",
			slog.String("name", creature.Name),
			slog.String("error", err.Error()))
		return MapError(err)
	}

	if err := s.insertStatRows(ctx, creature); err != nil {
		return err
	}
	return s.linkAssociations(ctx, creature)
}

// GetByID implements store.CreatureStore.GetByID
func (s *PostgresCreatureStore) GetByID(ctx context.Context, id int64) (*domain.Creature, error) {
	return s.getOne(ctx, "id = $1", id)
}

// GetByName implements store.CreatureStore.GetByName (exact match, used by
// the upsert engine).
func (s *PostgresCreatureStore) GetByName(ctx context.Context, name string) (*domain.Creature, error) {
	return s.getOne(ctx, "name = $1", name)
}

// GetByNameFold implements store.CreatureStore.GetByNameFold.
func (s *PostgresCreatureStore) GetByNameFold(ctx context.Context, name string) (*domain.Creature, error) {
	return s.getOne(ctx, "LOWER(name) = LOWER($1)", strings.TrimSpace(name))
}

func (s *PostgresCreatureStore) getOne(ctx context.Context, where string, arg any) (*domain.Creature, error) {
	query := fmt.Sprintf("SELECT %s FROM creatures WHERE %s", creatureColumns, where)

	creature, err := scanCreature(s.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrCreatureNotFound
		}
		return nil, MapError(err)
	}

	if err := s.loadAssociations(ctx, creature); err != nil {
		return nil, err
	}
	return creature, nil
}

// List implements store.CreatureStore.List
func (s *PostgresCreatureStore) List(ctx context.Context, filter store.CreatureFilter) ([]*domain.Creature, int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	where, args := buildCreatureFilter(filter)

	countQuery := "SELECT COUNT(*) FROM creatures" + where
	var total int
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		log.Error("failed to count creatures", slog.String("error", err.Error()))
		return nil, 0, MapError(err)
	}

	order := "id ASC"
	if filter.SortBy != "" {
		column, ok := creatureSortColumns[filter.SortBy]
		if !ok {
			return nil, 0, fmt.Errorf("%w: unsortable column %q", store.ErrInvalidEntity, filter.SortBy)
		}
		direction := "ASC"
		if filter.SortDesc {
			direction = "DESC"
		}
		order = fmt.Sprintf("%s %s", column, direction)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit, filter.Offset)
	query := fmt.Sprintf("SELECT %s FROM creatures%s ORDER BY %s LIMIT $%d OFFSET $%d",
		creatureColumns, where, order, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query creatures", slog.String("error", err.Error()))
		return nil, 0, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var creatures []*domain.Creature
	for rows.Next() {
		creature, err := scanCreature(rows)
		if err != nil {
			return nil, 0, MapError(err)
		}
		creatures = append(creatures, creature)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, MapError(err)
	}

	for _, creature := range creatures {
		if err := s.loadAssociations(ctx, creature); err != nil {
			return nil, 0, err
		}
	}

	return creatures, total, nil
}

// Update implements store.CreatureStore.Update.
// It overwrites all scalar fields, clears and re-links Tag/Trait
// associations, and replaces the owned stat rows.
func (s *PostgresCreatureStore) Update(ctx context.Context, creature *domain.Creature) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := creature.Validate(); err != nil {
		return err
	}

	evolutions, locations, err := marshalCreatureJSON(creature)
	if err != nil {
		return err
	}

	query := `
		UPDATE creatures
		SET name = $1, height = $2, weight = $3, base_experience = $4, is_default = $5,
			hp = $6, attack = $7, defense = $8, special_attack = $9, special_defense = $10,
			speed = $11, total_stats = $12, capture_rate = $13, base_happiness = $14,
			growth_rate = $15, species = $16, evolutions = $17, locations = $18
		WHERE id = $19
	`
	result, err := s.db.ExecContext(ctx, query,
		creature.Name, creature.Height, creature.Weight, creature.BaseExperience, creature.IsDefault,
		creature.HP, creature.Attack, creature.Defense, creature.SpecialAttack,
		creature.SpecialDefense, creature.Speed, creature.TotalStats,
		creature.CaptureRate, creature.BaseHappiness, creature.GrowthRate, creature.Species,
		evolutions, locations,
		creature.ID,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: %q", store.ErrCreatureNameExists, creature.Name)
		}
		log.Error("failed to update creature",
			slog.Int64("creature_id", creature.ID),
			slog.String("error", err.Error()))
		return MapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return MapError(err)
	}
	if affected == 0 {
		return store.ErrCreatureNotFound
	}

	// Clear and rebuild associations and owned stat rows.
	for _, table := range []string{"creature_tags", "creature_traits", "stats"} {
		if _, err := s.db.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE creature_id = $1", table), creature.ID); err != nil {
			return MapError(err)
		}
	}

	if err := s.insertStatRows(ctx, creature); err != nil {
		return err
	}
	return s.linkAssociations(ctx, creature)
}

// Delete implements store.CreatureStore.Delete. Owned stat rows and
// association rows go with the creature (ON DELETE CASCADE); shared Tag and
// Trait rows survive.
func (s *PostgresCreatureStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM creatures WHERE id = $1", id)
	if err != nil {
		return MapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return MapError(err)
	}
	if affected == 0 {
		return store.ErrCreatureNotFound
	}
	return nil
}

// Summary implements store.CreatureStore.Summary
func (s *PostgresCreatureStore) Summary(ctx context.Context) (*store.CreatureSummary, error) {
	query := `
		SELECT COUNT(id),
			COALESCE(AVG(hp), 0), COALESCE(AVG(attack), 0), COALESCE(AVG(defense), 0),
			COALESCE(AVG(special_attack), 0), COALESCE(AVG(special_defense), 0),
			COALESCE(AVG(speed), 0), COALESCE(AVG(total_stats), 0),
			COALESCE(MAX(total_stats), 0), COALESCE(MIN(total_stats), 0)
		FROM creatures
	`
	var summary store.CreatureSummary
	err := s.db.QueryRowContext(ctx, query).Scan(
		&summary.TotalCreatures,
		&summary.AvgHP, &summary.AvgAttack, &summary.AvgDefense,
		&summary.AvgSpecialAttack, &summary.AvgSpecialDefense,
		&summary.AvgSpeed, &summary.AvgTotal,
		&summary.MaxTotalStats, &summary.MinTotalStats,
	)
	if err != nil {
		return nil, MapError(err)
	}
	return &summary, nil
}

// insertStatRows inserts the creature's owned stat rows.
func (s *PostgresCreatureStore) insertStatRows(ctx context.Context, creature *domain.Creature) error {
	for _, stat := range creature.Stats {
		_, err := s.db.ExecContext(ctx,
			"INSERT INTO stats (creature_id, name, base_stat, effort) VALUES ($1, $2, $3, $4)",
			creature.ID, stat.Name, stat.BaseStat, stat.Effort)
		if err != nil {
			return MapError(err)
		}
	}
	return nil
}

// linkAssociations creates missing Tag/Trait rows by name and links them to
// the creature. Linking is idempotent: re-adding an existing association is
// a no-op via ON CONFLICT DO NOTHING.
func (s *PostgresCreatureStore) linkAssociations(ctx context.Context, creature *domain.Creature) error {
	for i, tag := range creature.Tags {
		var tagID int64
		err := s.db.QueryRowContext(ctx, `
			INSERT INTO tags (name) VALUES ($1)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id
		`, tag.Name).Scan(&tagID)
		if err != nil {
			return MapError(err)
		}
		creature.Tags[i].ID = tagID

		_, err = s.db.ExecContext(ctx, `
			INSERT INTO creature_tags (creature_id, tag_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, creature.ID, tagID)
		if err != nil {
			return MapError(err)
		}
	}

	for i, trait := range creature.Traits {
		var traitID int64
		err := s.db.QueryRowContext(ctx, `
			INSERT INTO traits (name, is_hidden) VALUES ($1, $2)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id
		`, trait.Name, trait.IsHidden).Scan(&traitID)
		if err != nil {
			return MapError(err)
		}
		creature.Traits[i].ID = traitID

		_, err = s.db.ExecContext(ctx, `
			INSERT INTO creature_traits (creature_id, trait_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, creature.ID, traitID)
		if err != nil {
			return MapError(err)
		}
	}

	return nil
}

// loadAssociations populates the creature's tags, traits and stat rows.
func (s *PostgresCreatureStore) loadAssociations(ctx context.Context, creature *domain.Creature) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.name FROM tags t
		JOIN creature_tags ct ON ct.tag_id = t.id
		WHERE ct.creature_id = $1
		ORDER BY t.name
	`, creature.ID)
	if err != nil {
		return MapError(err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var tag domain.Tag
		if err := rows.Scan(&tag.ID, &tag.Name); err != nil {
			return MapError(err)
		}
		creature.Tags = append(creature.Tags, tag)
	}
	if err := rows.Err(); err != nil {
		return MapError(err)
	}

	traitRows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.name, t.is_hidden FROM traits t
		JOIN creature_traits ct ON ct.trait_id = t.id
		WHERE ct.creature_id = $1
		ORDER BY t.name
	`, creature.ID)
	if err != nil {
		return MapError(err)
	}
	defer func() { _ = traitRows.Close() }()
	for traitRows.Next() {
		var trait domain.Trait
		if err := traitRows.Scan(&trait.ID, &trait.Name, &trait.IsHidden); err != nil {
			return MapError(err)
		}
		creature.Traits = append(creature.Traits, trait)
	}
	if err := traitRows.Err(); err != nil {
		return MapError(err)
	}

	statRows, err := s.db.QueryContext(ctx, `
		SELECT name, base_stat, effort FROM stats
		WHERE creature_id = $1
		ORDER BY id
	`, creature.ID)
	if err != nil {
		return MapError(err)
	}
	defer func() { _ = statRows.Close() }()
	for statRows.Next() {
		var stat domain.StatEntry
		if err := statRows.Scan(&stat.Name, &stat.BaseStat, &stat.Effort); err != nil {
			return MapError(err)
		}
		creature.Stats = append(creature.Stats, stat)
	}
	return MapError(statRows.Err())
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCreature(row rowScanner) (*domain.Creature, error) {
	var (
		creature   domain.Creature
		evolutions []byte
		locations  []byte
	)
	err := row.Scan(
		&creature.ID, &creature.Name, &creature.Height, &creature.Weight,
		&creature.BaseExperience, &creature.IsDefault,
		&creature.HP, &creature.Attack, &creature.Defense, &creature.SpecialAttack,
		&creature.SpecialDefense, &creature.Speed, &creature.TotalStats,
		&creature.CaptureRate, &creature.BaseHappiness, &creature.GrowthRate, &creature.Species,
		&evolutions, &locations,
	)
	if err != nil {
		return nil, err
	}

	// Evolution links are stored serialized and parsed on read.
	if len(evolutions) > 0 {
		if err := json.Unmarshal(evolutions, &creature.Evolutions); err != nil {
			return nil, fmt.Errorf("failed to decode evolutions for creature %d: %w", creature.ID, err)
		}
	}
	if len(locations) > 0 {
		if err := json.Unmarshal(locations, &creature.Locations); err != nil {
			return nil, fmt.Errorf("failed to decode locations for creature %d: %w", creature.ID, err)
		}
	}

	return &creature, nil
}

func marshalCreatureJSON(creature *domain.Creature) ([]byte, []byte, error) {
	evolutions, err := json.Marshal(creature.Evolutions)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode evolutions: %w", err)
	}
	locations, err := json.Marshal(creature.Locations)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode locations: %w", err)
	}
	return evolutions, locations, nil
}

// buildCreatureFilter assembles the WHERE clause and args for a listing.
func buildCreatureFilter(filter store.CreatureFilter) (string, []any) {
	var clauses []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if name := strings.TrimSpace(filter.Name); name != "" {
		clauses = append(clauses, fmt.Sprintf("name ILIKE %s", arg("%"+name+"%")))
	}
	if tag := strings.TrimSpace(filter.Tag); tag != "" {
		clauses = append(clauses, fmt.Sprintf(`EXISTS (
			SELECT 1 FROM creature_tags ct JOIN tags t ON t.id = ct.tag_id
			WHERE ct.creature_id = creatures.id AND t.name ILIKE %s)`, arg("%"+tag+"%")))
	}
	if trait := strings.TrimSpace(filter.Trait); trait != "" {
		clauses = append(clauses, fmt.Sprintf(`EXISTS (
			SELECT 1 FROM creature_traits ct JOIN traits t ON t.id = ct.trait_id
			WHERE ct.creature_id = creatures.id AND t.name ILIKE %s)`, arg("%"+trait+"%")))
	}

	minFilters := []struct {
		column string
		value  *int
	}{
		{"hp", filter.MinHP},
		{"attack", filter.MinAttack},
		{"defense", filter.MinDefense},
		{"special_attack", filter.MinSpecialAttack},
		{"special_defense", filter.MinSpecialDefense},
		{"speed", filter.MinSpeed},
		{"total_stats", filter.MinTotalStats},
	}
	for _, f := range minFilters {
		if f.value != nil {
			clauses = append(clauses, fmt.Sprintf("%s >= %s", f.column, arg(*f.value)))
		}
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
