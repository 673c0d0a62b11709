package model

// Candidate is an unverified search result considered as potential evidence
// before any content is fetched. URL is the natural key for deduplication
// within a single verification run (first-seen wins).
type Candidate struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Source  string `json:"source"` // which search backend produced it
}

// ScoredCandidate is a Candidate that survived relevance pruning.
type ScoredCandidate struct {
	Candidate
	RelevanceScore float64 `json:"relevance_score"`
}

// RetrievalPlan is the optional, ephemeral LLM-produced search plan.
// A nil plan means "no plan": the raw claim becomes the sole query.
type RetrievalPlan struct {
	SiteFilters   []string `json:"site_filters"`   // "site:domain" strings, 0-20
	QueryVariants []string `json:"query_variants"` // 3-12 concise queries
}
