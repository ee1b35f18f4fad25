package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/athorsen/bestiary-api/internal/domain"
	"github.com/athorsen/bestiary-api/internal/source"
)

// ErrEmptyDetail is returned when a transform is attempted on a missing
// detail document (a failed fetch).
var ErrEmptyDetail = errors.New("empty detail document")

// Transformer converts raw detail documents into normalized creatures,
// fetching the species, evolution-chain and encounter sub-documents
// transitively through the Source.
type Transformer struct {
	source Source
	logger *slog.Logger
}

// NewTransformer creates a Transformer.
func NewTransformer(src Source, logger *slog.Logger) *Transformer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transformer{
		source: src,
		logger: logger.With(slog.String("component", "transformer")),
	}
}

// Transform normalizes one raw detail document. A nil document or a document
// failing domain validation yields an error; the caller counts it and moves
// on, transform failures never abort a batch.
func (t *Transformer) Transform(ctx context.Context, detail *source.Detail) (*domain.Creature, error) {
	if detail == nil {
		return nil, ErrEmptyDetail
	}

	// Sub-document fetches fail soft: a missing species or chain produces a
	// creature with the corresponding fields empty, not an error.
	var species *source.Species
	if detail.Species.URL != "" {
		species = t.source.FetchSpecies(ctx, detail.Species.URL)
	}

	var chain *source.EvolutionChain
	if species != nil && species.EvolutionChain.URL != "" {
		chain = t.source.FetchEvolutionChain(ctx, species.EvolutionChain.URL)
	}

	var encounters []source.Encounter
	if detail.ID != 0 {
		encounters = t.source.FetchEncounters(ctx, detail.ID)
	}

	creature := &domain.Creature{
		Name: detail.Name,
		// Source units are decimetres and hectograms.
		Height:         float64(detail.Height) / 10,
		Weight:         float64(detail.Weight) / 10,
		BaseExperience: detail.BaseExperience,
		IsDefault:      detail.IsDefault,
		Evolutions:     ExtractEvolutions(chain),
	}

	if species != nil {
		creature.Species = species.Name
		creature.CaptureRate = species.CaptureRate
		creature.BaseHappiness = species.BaseHappiness
		creature.GrowthRate = species.GrowthRate.Name
	}

	applyStats(creature, detail.Stats)

	for _, ability := range detail.Abilities {
		creature.Traits = append(creature.Traits, domain.Trait{
			Name:     ability.Ability.Name,
			IsHidden: ability.IsHidden,
		})
	}
	for _, typ := range detail.Types {
		creature.Tags = append(creature.Tags, domain.Tag{Name: typ.Type.Name})
	}
	for _, encounter := range encounters {
		creature.Locations = append(creature.Locations, encounter.LocationArea.Name)
	}

	if err := creature.Validate(); err != nil {
		t.logger.Warn("transformed record failed validation",
			slog.String("name", detail.Name),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("record %q failed validation: %w", detail.Name, err)
	}

	return creature, nil
}

// applyStats maps the document's stat blocks onto the creature's named stat
// fields, keeps the raw rows as owned stat entries, and derives the total.
func applyStats(creature *domain.Creature, stats []source.DetailStat) {
	for _, stat := range stats {
		switch stat.Stat.Name {
		case "hp":
			creature.HP = stat.BaseStat
		case "attack":
			creature.Attack = stat.BaseStat
		case "defense":
			creature.Defense = stat.BaseStat
		case "special-attack":
			creature.SpecialAttack = stat.BaseStat
		case "special-defense":
			creature.SpecialDefense = stat.BaseStat
		case "speed":
			creature.Speed = stat.BaseStat
		}
		creature.Stats = append(creature.Stats, domain.StatEntry{
			Name:     stat.Stat.Name,
			BaseStat: stat.BaseStat,
			Effort:   stat.Effort,
		})
	}
	creature.RecomputeTotal()
}

// ExtractEvolutions flattens an evolution-chain tree into a depth-first
// pre-order list of links. Only the first evolution_detail of each node is
// taken when multiple exist; that simplification matches the upstream data
// contract. A nil or empty chain yields no links.
func ExtractEvolutions(chain *source.EvolutionChain) []domain.EvolutionLink {
	if chain == nil {
		return nil
	}

	var links []domain.EvolutionLink
	var traverse func(node source.ChainLink)
	traverse = func(node source.ChainLink) {
		if node.Species.Name == "" && node.Species.URL == "" && len(node.EvolvesTo) == 0 {
			return
		}

		link := domain.EvolutionLink{
			Name: node.Species.Name,
			URL:  node.Species.URL,
		}
		if len(node.EvolutionDetails) > 0 {
			link.MinLevel = node.EvolutionDetails[0].MinLevel
			link.Trigger = node.EvolutionDetails[0].Trigger.Name
		}
		links = append(links, link)

		for _, next := range node.EvolvesTo {
			traverse(next)
		}
	}
	traverse(chain.Chain)

	return links
}
