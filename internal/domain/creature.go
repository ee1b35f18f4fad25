package domain

import (
	"errors"
	"fmt"
)

// Stat bounds mirror the upstream compendium's documented ranges.
const (
	MaxStatValue  = 255
	MaxTotalStats = 2000
)

// Common validation errors for Creature
var (
	ErrEmptyCreatureName = errors.New("creature name cannot be empty")
	ErrStatOutOfRange    = errors.New("stat value out of range")
	ErrTotalStatsDrift   = errors.New("total_stats does not equal sum of stat values")
)

// Tag is a shared category label (an elemental type) attached to creatures
// through a many-to-many association. Tags survive creature deletion.
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Trait is a shared special-ability label with a hidden flag, attached to
// creatures through a many-to-many association.
type Trait struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	IsHidden bool   `json:"is_hidden"`
}

// StatEntry is one owned per-creature stat row. Rows are deleted with their
// creature.
type StatEntry struct {
	Name     string `json:"name"`
	BaseStat int    `json:"base_stat"`
	Effort   int    `json:"effort"`
}

// EvolutionLink describes one possible transformation into another creature.
// Links are stored serialized on the creature row and parsed lazily for reads.
type EvolutionLink struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	MinLevel *int   `json:"min_level"`
	Trigger  string `json:"trigger"`
}

// Creature is the normalized catalog record being imported and stored.
// Identity is the unique natural name (case-insensitive at the storage
// layer); the numeric ID is assigned by storage.
type Creature struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	Height         float64 `json:"height"`
	Weight         float64 `json:"weight"`
	BaseExperience int     `json:"base_experience"`
	IsDefault      bool    `json:"is_default"`

	HP             int `json:"hp"`
	Attack         int `json:"attack"`
	Defense        int `json:"defense"`
	SpecialAttack  int `json:"special_attack"`
	SpecialDefense int `json:"special_defense"`
	Speed          int `json:"speed"`

	// TotalStats is derived from the six stat values above. It is never set
	// independently; use RecomputeTotal after changing any constituent.
	TotalStats int `json:"total_stats"`

	CaptureRate   *int   `json:"capture_rate"`
	BaseHappiness *int   `json:"base_happiness"`
	GrowthRate    string `json:"growth_rate"`
	Species       string `json:"species"`

	Evolutions []EvolutionLink `json:"evolutions"`
	Locations  []string        `json:"locations"`

	Tags   []Tag       `json:"tags"`
	Traits []Trait     `json:"traits"`
	Stats  []StatEntry `json:"stats"`
}

// RecomputeTotal derives TotalStats from the six stat values.
func (c *Creature) RecomputeTotal() {
	c.TotalStats = c.HP + c.Attack + c.Defense + c.SpecialAttack + c.SpecialDefense + c.Speed
}

// Validate checks if the Creature has valid data.
// Returns an error if any field fails validation.
func (c *Creature) Validate() error {
	if c.Name == "" {
		return ErrEmptyCreatureName
	}

	stats := map[string]int{
		"hp":              c.HP,
		"attack":          c.Attack,
		"defense":         c.Defense,
		"special_attack":  c.SpecialAttack,
		"special_defense": c.SpecialDefense,
		"speed":           c.Speed,
	}
	for name, value := range stats {
		if value < 0 || value > MaxStatValue {
			return fmt.Errorf("%w: %s=%d", ErrStatOutOfRange, name, value)
		}
	}

	if c.TotalStats != c.HP+c.Attack+c.Defense+c.SpecialAttack+c.SpecialDefense+c.Speed {
		return ErrTotalStatsDrift
	}

	return nil
}
