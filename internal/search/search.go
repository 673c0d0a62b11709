package search

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/akraskov/veridict/internal/cache"
	"github.com/akraskov/veridict/internal/model"
	"github.com/akraskov/veridict/internal/worker"
)

// Provider defines the interface for web search backends.
type Provider interface {
	// Name returns the provider name
	Name() string

	// Endpoint returns the base URL used for rate limiting
	Endpoint() string

	// Search issues one query and returns raw candidates
	Search(ctx context.Context, query string, maxResults int) ([]model.Candidate, error)
}

// searchPageIndicators mark URLs that are themselves search-result pages,
// never useful as evidence.
var searchPageIndicators = []string{
	"/search?", "/search/", "?q=", "?query=",
	"site-search", "search-results", "/find?",
}

// IsSearchPage reports whether a URL looks like a search-result page.
func IsSearchPage(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, indicator := range searchPageIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

// Client runs a set of planned queries against one provider. Queries
// execute sequentially with a small inter-query delay to respect
// third-party rate limits; a failing query never aborts the run.
type Client struct {
	provider Provider
	limiter  *worker.Limiter
	store    cache.Cache
	delay    time.Duration
	perQuery int
	cacheTTL time.Duration
}

// NewClient creates a search client around the given provider.
// store may be nil to disable result caching.
func NewClient(provider Provider, cfg model.SearchConfig, rl model.RateLimitConfig, store cache.Cache) *Client {
	perQuery := cfg.ResultsPerQuery
	if perQuery <= 0 {
		perQuery = 5
	}

	return &Client{
		provider: provider,
		limiter:  worker.NewLimiter(rl.RequestsPerSecond, rl.BurstSize),
		store:    store,
		delay:    cfg.InterQueryDelay,
		perQuery: perQuery,
		cacheTTL: 15 * time.Minute,
	}
}

// SearchAll runs every query in order and returns the union of candidates.
// Search-page URLs are filtered at the source; individual query failures
// are logged and swallowed.
func (c *Client) SearchAll(ctx context.Context, queries []string) []model.Candidate {
	var all []model.Candidate

	for _, query := range queries {
		query = strings.TrimSpace(query)
		if query == "" {
			continue
		}

		if err := c.limiter.WaitWithDelay(ctx, c.provider.Endpoint(), c.delay); err != nil {
			log.Warn().Err(err).Str("query", query).Msg("rate limit wait aborted")
			return all
		}

		candidates, err := c.searchOne(ctx, query)
		if err != nil {
			log.Warn().Err(err).Str("query", query).Str("provider", c.provider.Name()).Msg("search failed")
			continue
		}

		all = append(all, candidates...)
	}

	return all
}

func (c *Client) searchOne(ctx context.Context, query string) ([]model.Candidate, error) {
	key := cache.Key("search:" + c.provider.Name() + ":" + query)

	if c.store != nil {
		if data, found := c.store.Get(key); found {
			var cached []model.Candidate
			if err := json.Unmarshal(data, &cached); err == nil {
				return cached, nil
			}
		}
	}

	results, err := c.provider.Search(ctx, query, c.perQuery)
	if err != nil {
		return nil, err
	}

	candidates := make([]model.Candidate, 0, len(results))
	for _, r := range results {
		if r.URL == "" || IsSearchPage(r.URL) {
			continue
		}
		candidates = append(candidates, r)
	}

	if c.store != nil {
		if data, err := json.Marshal(candidates); err == nil {
			_ = c.store.Set(key, data, c.cacheTTL)
		}
	}

	return candidates, nil
}
