package importer

import (
	"context"
	"log/slog"
)

// defaultSubBatchSize is how many detail URLs are fetched concurrently at a
// time within one page.
const defaultSubBatchSize = 50

// BatchResult aggregates the per-item outcomes of one batch. The accounting
// identity loaded+updated+skipped+errors == requested always holds.
type BatchResult struct {
	Requested  int  `json:"requested"`
	Loaded     int  `json:"loaded"`
	Updated    int  `json:"updated"`
	Skipped    int  `json:"skipped"`
	Errors     int  `json:"errors"`
	NextOffset *int `json:"next_offset,omitempty"`
}

// BatchLoader drives the transformer and upsert engine across one bounded
// page of the source. It is the retryable unit of work; it absorbs all
// per-item failures into counts and never returns an error itself.
type BatchLoader struct {
	source       Source
	transformer  *Transformer
	upserter     *UpsertEngine
	logger       *slog.Logger
	subBatchSize int
}

// NewBatchLoader creates a BatchLoader.
func NewBatchLoader(src Source, transformer *Transformer, upserter *UpsertEngine, logger *slog.Logger) *BatchLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchLoader{
		source:       src,
		transformer:  transformer,
		upserter:     upserter,
		logger:       logger.With(slog.String("component", "batch_loader")),
		subBatchSize: defaultSubBatchSize,
	}
}

// LoadBatch lists one page of size limit at offset, fetches details in
// sub-batches, then transforms and upserts each fetched document
// sequentially in fetch-result order. A total listing failure counts every
// requested item as an error; the task carries on with the next batch.
// NextOffset is set only when the page came back full, fewer items imply
// the source is exhausted.
func (l *BatchLoader) LoadBatch(ctx context.Context, limit, offset int, forceUpdate bool) BatchResult {
	log := l.logger.With(slog.Int("limit", limit), slog.Int("offset", offset))

	items, err := l.source.ListPage(ctx, limit, offset)
	if err != nil {
		log.Error("listing call failed, counting whole batch as errors",
			slog.String("error", err.Error()))
		return BatchResult{Requested: limit, Errors: limit}
	}
	if len(items) == 0 {
		return BatchResult{}
	}

	result := BatchResult{Requested: len(items)}

	urls := make([]string, len(items))
	for i, item := range items {
		urls[i] = item.URL
	}

	for start := 0; start < len(urls); start += l.subBatchSize {
		end := start + l.subBatchSize
		if end > len(urls) {
			end = len(urls)
		}

		details := l.source.FetchDetails(ctx, urls[start:end])

		// Sequential persistence in fetch-result order: no cross-item
		// concurrency, so one task can never race itself into duplicates.
		for _, detail := range details {
			if detail == nil {
				result.Errors++
				continue
			}

			creature, err := l.transformer.Transform(ctx, detail)
			if err != nil {
				log.Warn("transform failed",
					slog.String("error", err.Error()))
				result.Errors++
				continue
			}

			switch l.upserter.Upsert(ctx, creature, forceUpdate) {
			case OutcomeLoaded:
				result.Loaded++
			case OutcomeUpdated:
				result.Updated++
			case OutcomeSkipped:
				result.Skipped++
			default:
				result.Errors++
			}
		}
	}

	if len(items) == limit {
		next := offset + limit
		result.NextOffset = &next
	}

	log.Info("batch finished",
		slog.Int("requested", result.Requested),
		slog.Int("loaded", result.Loaded),
		slog.Int("updated", result.Updated),
		slog.Int("skipped", result.Skipped),
		slog.Int("errors", result.Errors))

	return result
}
