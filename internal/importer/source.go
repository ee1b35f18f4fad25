// Package importer implements the bulk-import task engine: the record
// transformer, the upsert engine, the batch loader and the task
// orchestrator.
package importer

import (
	"context"

	"github.com/athorsen/bestiary-api/internal/source"
)

// Source is the collaborator interface over the external compendium API.
// Listing calls fail loudly; per-item sub-document fetches fail soft by
// returning nil, which callers count as errors.
type Source interface {
	// Count returns the total number of records the source exposes.
	Count(ctx context.Context) (int, error)

	// ListPage fetches one page of {name, url} listing entries.
	ListPage(ctx context.Context, limit, offset int) ([]source.PageItem, error)

	// FetchDetails fetches detail documents with bounded concurrency.
	// The result is aligned with urls; failed fetches leave nil entries.
	FetchDetails(ctx context.Context, urls []string) []*source.Detail

	// FetchSpecies fetches a species sub-document, nil on failure.
	FetchSpecies(ctx context.Context, url string) *source.Species

	// FetchEvolutionChain fetches an evolution-chain sub-document, nil on
	// failure.
	FetchEvolutionChain(ctx context.Context, url string) *source.EvolutionChain

	// FetchEncounters fetches location encounters, nil on failure.
	FetchEncounters(ctx context.Context, id int) []source.Encounter
}

// Ensure the HTTP client satisfies the collaborator interface.
var _ Source = (*source.Client)(nil)
