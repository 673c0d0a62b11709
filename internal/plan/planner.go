// Package plan turns a claim into the set of search queries to run.
// An LLM proposes query variants and site filters when one is
// configured; without one (or when the LLM misbehaves) the raw claim
// is the sole query. Planning failures are never fatal.
package plan

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/akraskov/veridict/internal/llm"
	"github.com/akraskov/veridict/internal/model"
)

const (
	maxQueries     = 20
	maxSiteFilters = 20
)

const plannerSystemPrompt = `You are a retrieval planner for a fact verification system.
Given a factual claim, respond with ONLY a JSON object, no prose, with two keys:
  "query_variants": 3 to 12 concise web search queries that would surface evidence for or against the claim
  "site_filters": 0 to 20 strings of the form "site:domain" naming authoritative sources worth restricting to
Prefer short keyword queries over full sentences. Never invent facts.`

// Planner asks an LLM for a retrieval plan.
type Planner struct {
	provider llm.Provider
	model    string
}

// NewPlanner creates a planner. provider may be nil, in which case
// Plan always returns nil and searches run on the raw claim.
func NewPlanner(provider llm.Provider, model string) *Planner {
	return &Planner{
		provider: provider,
		model:    model,
	}
}

// Plan asks the LLM for query variants and site filters. Returns nil
// on any failure; a nil plan means "search the raw claim".
func (p *Planner) Plan(ctx context.Context, claim string) *model.RetrievalPlan {
	if p.provider == nil {
		return nil
	}

	resp, err := p.provider.Complete(ctx, llm.CompletionRequest{
		System:      plannerSystemPrompt,
		Prompt:      "Claim: " + claim,
		Model:       p.model,
		MaxTokens:   400,
		Temperature: 0,
	})
	if err != nil {
		log.Warn().Err(err).Msg("query planning failed, falling back to raw claim")
		return nil
	}

	plan := parsePlan(resp.Text)
	if plan == nil {
		log.Warn().Str("provider", p.provider.Name()).Msg("unusable retrieval plan, falling back to raw claim")
	}
	return plan
}

// parsePlan extracts the JSON object from the completion text and
// validates it. Models often wrap JSON in code fences or prose; only
// the outermost braces are considered.
func parsePlan(text string) *model.RetrievalPlan {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil
	}

	var plan model.RetrievalPlan
	if err := json.Unmarshal([]byte(text[start:end+1]), &plan); err != nil {
		return nil
	}

	var variants []string
	for _, q := range plan.QueryVariants {
		if q = strings.TrimSpace(q); q != "" {
			variants = append(variants, q)
		}
	}
	if len(variants) == 0 {
		return nil
	}
	plan.QueryVariants = variants

	var filters []string
	for _, f := range plan.SiteFilters {
		f = strings.TrimSpace(f)
		if !strings.HasPrefix(f, "site:") || len(f) <= len("site:") {
			continue
		}
		filters = append(filters, f)
		if len(filters) >= maxSiteFilters {
			break
		}
	}
	plan.SiteFilters = filters

	return &plan
}

// ExpandQueries produces the final ordered query list: the plan's
// variants plus the raw claim, then each crossed with each site
// filter, deduplicated and capped. A nil plan yields just the claim.
func ExpandQueries(plan *model.RetrievalPlan, claim string) []string {
	if plan == nil {
		return []string{claim}
	}

	seen := make(map[string]bool)
	var queries []string
	add := func(q string) {
		q = strings.TrimSpace(q)
		if q == "" || seen[q] || len(queries) >= maxQueries {
			return
		}
		seen[q] = true
		queries = append(queries, q)
	}

	base := append([]string{}, plan.QueryVariants...)
	base = append(base, claim)

	for _, q := range base {
		add(q)
	}
	for _, q := range base {
		for _, filter := range plan.SiteFilters {
			add(q + " " + filter)
		}
	}

	return queries
}
