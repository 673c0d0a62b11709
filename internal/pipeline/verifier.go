// Package pipeline orchestrates one claim through search, content
// extraction, entailment scoring, and verdict aggregation. The
// pipeline degrades instead of failing: a claim that cannot be
// verified yields an Unclear result with zero confidence, never an
// error.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/akraskov/veridict/internal/browser"
	"github.com/akraskov/veridict/internal/cache"
	"github.com/akraskov/veridict/internal/content"
	"github.com/akraskov/veridict/internal/embed"
	"github.com/akraskov/veridict/internal/evidence"
	"github.com/akraskov/veridict/internal/extract"
	"github.com/akraskov/veridict/internal/llm"
	"github.com/akraskov/veridict/internal/model"
	"github.com/akraskov/veridict/internal/nli"
	"github.com/akraskov/veridict/internal/plan"
	"github.com/akraskov/veridict/internal/score"
	"github.com/akraskov/veridict/internal/search"
	"github.com/akraskov/veridict/internal/util"
)

// defaultMaxSources bounds how many candidates get fetched and
// scored per claim.
const defaultMaxSources = 3

// Consumer-side interfaces so tests can swap each stage.
type queryPlanner interface {
	Plan(ctx context.Context, claim string) *model.RetrievalPlan
}

type searcher interface {
	SearchAll(ctx context.Context, queries []string) []model.Candidate
}

type passageExtractor interface {
	ExtractFromPage(ctx context.Context, page content.Page, claimVec []float32, url string) (*content.Extraction, error)
	ExtractHTTP(ctx context.Context, claimVec []float32, url string) (*content.Extraction, error)
}

type pageSource interface {
	Acquire(ctx context.Context) (content.Page, func(), error)
}

type screenshotter interface {
	Capture(ctx context.Context, page evidence.Highlighter, claim, pageURL, passage string) string
}

// Verifier runs the full verification pipeline for single claims.
// Safe for sequential reuse; not safe for concurrent use because the
// browser page is exclusive.
type Verifier struct {
	planner    queryPlanner
	search     searcher
	encoder    embed.Encoder
	extractor  passageExtractor
	entail     nli.Scorer
	capturer   screenshotter
	pages      pageSource
	session    *browser.Session
	maxSources int
}

// browserSource adapts a Session to the pageSource interface.
type browserSource struct {
	session *browser.Session
}

func (b browserSource) Acquire(ctx context.Context) (content.Page, func(), error) {
	page, release, err := b.session.Acquire(ctx)
	if err != nil {
		return nil, nil, err
	}
	return page, release, nil
}

// NewVerifier wires the pipeline from configuration. maxSources <= 0
// uses the default.
func NewVerifier(cfg *model.Config, maxSources int) (*Verifier, error) {
	if maxSources <= 0 {
		maxSources = defaultMaxSources
	}

	var store cache.Cache
	if cfg.Cache.Enabled {
		store = cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
	}

	provider, err := newSearchProvider(cfg)
	if err != nil {
		return nil, err
	}

	llmProvider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		return nil, fmt.Errorf("configure LLM planner: %w", err)
	}

	openaiEncoder, err := embed.NewOpenAIEncoder(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("configure embeddings: %w", err)
	}
	var encoder embed.Encoder = openaiEncoder
	if store != nil {
		encoder = embed.NewCachedEncoder(encoder, store, cfg.Cache.DiskTTL)
	}

	robots := util.NewRobotsChecker(cfg.HTTP.UserAgent, cfg.HTTP.Timeout)
	extractor := content.NewExtractor(encoder, content.NewFetcher(cfg.HTTP), robots)

	v := &Verifier{
		planner:    plan.NewPlanner(llmProvider, cfg.LLM.Model),
		search:     search.NewClient(provider, cfg.Search, cfg.RateLimiting, store),
		encoder:    encoder,
		extractor:  extractor,
		entail:     scorerOrNil(cfg.NLI),
		capturer:   evidence.NewCapturer(cfg.Evidence),
		maxSources: maxSources,
	}

	if cfg.Browser.Enabled {
		v.session = browser.NewSession(cfg.Browser)
		v.pages = browserSource{session: v.session}
	}

	return v, nil
}

// scorerOrNil keeps the Scorer interface nil when entailment is
// disabled; a typed nil *CrossEncoder would not compare equal to nil.
func scorerOrNil(cfg model.NLIConfig) nli.Scorer {
	if enc := nli.NewCrossEncoder(cfg); enc != nil {
		return enc
	}
	return nil
}

func newSearchProvider(cfg *model.Config) (search.Provider, error) {
	switch strings.ToLower(cfg.Search.Provider) {
	case "", "duckduckgo":
		return search.NewDuckDuckGo(cfg.HTTP), nil
	case "searx":
		if cfg.Search.BaseURL == "" {
			return nil, fmt.Errorf("searx provider requires a base URL")
		}
		return search.NewSearxNG(cfg.Search.BaseURL, cfg.Search.APIKey, cfg.HTTP), nil
	default:
		return nil, fmt.Errorf("unknown search provider: %s (supported: duckduckgo, searx)", cfg.Search.Provider)
	}
}

// VerifyClaim runs the whole pipeline for one claim. The only error
// condition is an empty claim; every other failure degrades to an
// Unclear result with no sources.
func (v *Verifier) VerifyClaim(ctx context.Context, claim string) (*model.ClaimVerification, error) {
	claim = strings.Join(strings.Fields(claim), " ")
	if claim == "" {
		return nil, fmt.Errorf("empty claim")
	}

	entities := extract.Entities(claim)
	if len(entities) == 0 {
		entities = []string{claim}
	}

	retrievalPlan := v.planner.Plan(ctx, claim)
	queries := plan.ExpandQueries(retrievalPlan, claim)

	log.Debug().Str("claim", claim).Int("queries", len(queries)).Strs("entities", entities).Msg("searching")

	candidates := v.search.SearchAll(ctx, queries)
	ranked := score.Rank(candidates, entities)
	if len(ranked) == 0 {
		log.Info().Str("claim", claim).Msg("no relevant candidates found")
		return model.Unverifiable(claim), nil
	}

	claimVecs, err := v.encoder.Encode(ctx, []string{claim})
	if err != nil {
		log.Warn().Err(err).Msg("claim embedding failed")
		return model.Unverifiable(claim), nil
	}
	claimVec := claimVecs[0]

	var page content.Page
	if v.pages != nil {
		acquired, release, err := v.pages.Acquire(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("browser unavailable, using HTTP fallback")
		} else {
			page = acquired
			defer release()
		}
	}

	sources := v.collectSources(ctx, page, claim, claimVec, ranked)
	if len(sources) == 0 {
		return model.Unverifiable(claim), nil
	}

	verdict, confidence := score.Aggregate(sources)

	log.Info().Str("claim", claim).Str("verdict", string(verdict)).
		Float64("confidence", confidence).Int("sources", len(sources)).Msg("claim verified")

	return &model.ClaimVerification{
		Text:       claim,
		Verdict:    verdict,
		Confidence: confidence,
		Sources:    sources,
	}, nil
}

func (v *Verifier) collectSources(ctx context.Context, page content.Page, claim string, claimVec []float32, ranked []model.ScoredCandidate) []model.VerificationSource {
	// Only the top-ranked candidates are attempted. A failure inside
	// the window shrinks the source count; it never promotes a
	// lower-ranked candidate into the window.
	if len(ranked) > v.maxSources {
		ranked = ranked[:v.maxSources]
	}

	var sources []model.VerificationSource

	for _, candidate := range ranked {
		if ctx.Err() != nil {
			break
		}

		extraction, usedBrowser := v.extractOne(ctx, page, claimVec, candidate.URL)
		if extraction == nil {
			continue
		}

		title := extraction.Title
		if title == "" {
			title = candidate.Title
		}

		source := model.VerificationSource{
			URL:         extraction.FinalURL,
			Domain:      evidence.RegisteredDomain(extraction.FinalURL),
			Title:       title,
			Snippet:     extraction.Snippet,
			FragmentURL: extraction.FragmentURL,
			Similarity:  extraction.Similarity,
		}

		if usedBrowser {
			if highlighter, ok := page.(evidence.Highlighter); ok {
				source.ScreenshotB64 = v.capturer.Capture(ctx, highlighter, claim, extraction.FinalURL, extraction.Snippet)
			}
		}

		if v.entail != nil {
			source.EntailmentScore = v.entail.Entail(ctx, claim, extraction.Snippet)
		}

		sources = append(sources, source)
	}

	return sources
}

// extractOne tries the browser first and falls back to plain HTTP on
// navigation failures. A page that renders but has no usable content
// is dropped outright.
func (v *Verifier) extractOne(ctx context.Context, page content.Page, claimVec []float32, url string) (*content.Extraction, bool) {
	if page != nil {
		extraction, err := v.extractor.ExtractFromPage(ctx, page, claimVec, url)
		if err == nil {
			return extraction, true
		}
		if errors.Is(err, content.ErrNoContent) {
			log.Debug().Str("url", url).Msg("no usable content, dropping candidate")
			return nil, false
		}
		log.Debug().Err(err).Str("url", url).Msg("browser extraction failed, trying HTTP")
	}

	extraction, err := v.extractor.ExtractHTTP(ctx, claimVec, url)
	if err != nil {
		log.Debug().Err(err).Str("url", url).Msg("candidate fetch failed")
		return nil, false
	}
	return extraction, false
}

// Close releases the browser session if one was started.
func (v *Verifier) Close() {
	if v.session != nil {
		v.session.Close()
	}
}
