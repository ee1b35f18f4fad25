package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/athorsen/bestiary-api/internal/config"
	"golang.org/x/sync/semaphore"
)

// Client fetches paginated listings and per-item sub-documents from the
// compendium API. Per-item fetch failures yield nil documents rather than
// errors: the caller counts them, a failed item never aborts its page.
type Client struct {
	baseURL string
	http    *http.Client
	sem     *semaphore.Weighted
	logger  *slog.Logger
}

// NewClient creates a compendium API client from configuration.
func NewClient(cfg config.SourceConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	concurrency := cfg.FetchConcurrency
	if concurrency <= 0 {
		concurrency = 10
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout: time.Duration(cfg.FetchTimeoutSeconds) * time.Second,
		},
		sem:    semaphore.NewWeighted(int64(concurrency)),
		logger: logger.With(slog.String("component", "source_client")),
	}
}

// Count returns the total number of records the source currently exposes.
func (c *Client) Count(ctx context.Context) (int, error) {
	var list listResponse
	url := fmt.Sprintf("%s/pokemon?limit=1", c.baseURL)
	if err := c.getJSON(ctx, url, &list); err != nil {
		return 0, fmt.Errorf("failed to fetch source count: %w", err)
	}
	return list.Count, nil
}

// ListPage fetches one page of the listing endpoint.
func (c *Client) ListPage(ctx context.Context, limit, offset int) ([]PageItem, error) {
	var list listResponse
	url := fmt.Sprintf("%s/pokemon?limit=%d&offset=%d", c.baseURL, limit, offset)
	if err := c.getJSON(ctx, url, &list); err != nil {
		return nil, fmt.Errorf("failed to fetch listing page: %w", err)
	}
	return list.Results, nil
}

// FetchDetails fetches the detail documents for the given URLs concurrently,
// bounded by the configured in-flight limit. The returned slice is aligned
// with urls; a failed fetch leaves a nil entry.
func (c *Client) FetchDetails(ctx context.Context, urls []string) []*Detail {
	results := make([]*Detail, len(urls))

	var wg sync.WaitGroup
	for i, url := range urls {
		if err := c.sem.Acquire(ctx, 1); err != nil {
			// Context cancelled; remaining entries stay nil.
			break
		}

		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()
			defer c.sem.Release(1)

			var detail Detail
			if err := c.getJSON(ctx, url, &detail); err != nil {
				c.logger.Warn("detail fetch failed",
					slog.String("url", url),
					slog.String("error", err.Error()))
				return
			}
			results[i] = &detail
		}(i, url)
	}
	wg.Wait()

	return results
}

// FetchSpecies fetches a species sub-document, returning nil on failure.
func (c *Client) FetchSpecies(ctx context.Context, url string) *Species {
	var species Species
	if err := c.getJSON(ctx, url, &species); err != nil {
		c.logger.Warn("species fetch failed",
			slog.String("url", url),
			slog.String("error", err.Error()))
		return nil
	}
	return &species
}

// FetchEvolutionChain fetches an evolution-chain sub-document, returning nil
// on failure.
func (c *Client) FetchEvolutionChain(ctx context.Context, url string) *EvolutionChain {
	var chain EvolutionChain
	if err := c.getJSON(ctx, url, &chain); err != nil {
		c.logger.Warn("evolution chain fetch failed",
			slog.String("url", url),
			slog.String("error", err.Error()))
		return nil
	}
	return &chain
}

// FetchEncounters fetches the location encounters of a record, returning nil
// on failure.
func (c *Client) FetchEncounters(ctx context.Context, id int) []Encounter {
	var encounters []Encounter
	url := fmt.Sprintf("%s/pokemon/%d/encounters", c.baseURL, id)
	if err := c.getJSON(ctx, url, &encounters); err != nil {
		c.logger.Warn("encounters fetch failed",
			slog.String("url", url),
			slog.String("error", err.Error()))
		return nil
	}
	return encounters
}

// getJSON issues one GET request and decodes the JSON body into v.
// Non-200 responses are errors; retry policy belongs to the caller.
func (c *Client) getJSON(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", url, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", url, err)
	}
	return nil
}
