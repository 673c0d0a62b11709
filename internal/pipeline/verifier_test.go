package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/akraskov/veridict/internal/content"
	"github.com/akraskov/veridict/internal/evidence"
	"github.com/akraskov/veridict/internal/model"
)

const testClaim = "The Eiffel Tower is 330 metres tall."
const testPassage = "The Eiffel Tower stands 330 metres tall above the city of Paris."

type fakePlanner struct {
	plan *model.RetrievalPlan
}

func (f *fakePlanner) Plan(context.Context, string) *model.RetrievalPlan { return f.plan }

type fakeSearcher struct {
	candidates []model.Candidate
	queries    []string
}

func (f *fakeSearcher) SearchAll(_ context.Context, queries []string) []model.Candidate {
	f.queries = queries
	return f.candidates
}

type fakeEncoder struct {
	err error
}

func (f *fakeEncoder) Encode(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

type fakeExtractor struct {
	byURL    map[string]*content.Extraction
	pageErr  error
	httpErr  error
	pageHits int
	httpHits int
}

func (f *fakeExtractor) ExtractFromPage(_ context.Context, _ content.Page, _ []float32, url string) (*content.Extraction, error) {
	f.pageHits++
	if f.pageErr != nil {
		return nil, f.pageErr
	}
	if ex, ok := f.byURL[url]; ok {
		return ex, nil
	}
	return nil, content.ErrNoContent
}

func (f *fakeExtractor) ExtractHTTP(_ context.Context, _ []float32, url string) (*content.Extraction, error) {
	f.httpHits++
	if f.httpErr != nil {
		return nil, f.httpErr
	}
	if ex, ok := f.byURL[url]; ok {
		return ex, nil
	}
	return nil, errors.New("fetch failed")
}

type fakeEntailer struct {
	score float64
}

func (f *fakeEntailer) Entail(context.Context, string, string) *float64 {
	s := f.score
	return &s
}

type fakeCapturer struct {
	captured int
}

func (f *fakeCapturer) Capture(context.Context, evidence.Highlighter, string, string, string) string {
	f.captured++
	return "ZmFrZSBwbmc="
}

// fakeBrowserPage satisfies both content.Page and evidence.Highlighter.
type fakeBrowserPage struct{}

func (fakeBrowserPage) Navigate(context.Context, string) error       { return nil }
func (fakeBrowserPage) Title(context.Context) (string, error)        { return "", nil }
func (fakeBrowserPage) Location(context.Context) (string, error)     { return "", nil }
func (fakeBrowserPage) BodyText(context.Context) (string, error)     { return "", nil }
func (fakeBrowserPage) LocateAndHighlight(context.Context, string) error {
	return nil
}
func (fakeBrowserPage) Screenshot(context.Context) ([]byte, error) { return []byte("png"), nil }
func (fakeBrowserPage) Paragraphs(context.Context, []string, int, int) ([]string, error) {
	return nil, nil
}

type fakePageSource struct{}

func (fakePageSource) Acquire(context.Context) (content.Page, func(), error) {
	return fakeBrowserPage{}, func() {}, nil
}

func extractionFor(url string, similarity float64) *content.Extraction {
	return &content.Extraction{
		Snippet:     testPassage,
		Similarity:  similarity,
		FragmentURL: url + "#:~:text=The%20Eiffel%20Tower",
		FinalURL:    url,
		Title:       "Eiffel Tower - Wikipedia",
	}
}

func relevantCandidate(url string) model.Candidate {
	return model.Candidate{
		URL:   url,
		Title: "The Eiffel Tower is 330 metres tall facts",
	}
}

func newTestVerifier(searcher *fakeSearcher, extractor *fakeExtractor, entail *fakeEntailer) *Verifier {
	v := &Verifier{
		planner:    &fakePlanner{},
		search:     searcher,
		encoder:    &fakeEncoder{},
		extractor:  extractor,
		capturer:   &fakeCapturer{},
		maxSources: 3,
	}
	if entail != nil {
		v.entail = entail
	}
	return v
}

func TestVerifyClaim_Supported(t *testing.T) {
	url := "https://en.wikipedia.org/wiki/Eiffel_Tower"
	searcher := &fakeSearcher{candidates: []model.Candidate{relevantCandidate(url)}}
	extractor := &fakeExtractor{byURL: map[string]*content.Extraction{url: extractionFor(url, 0.8)}}

	v := newTestVerifier(searcher, extractor, &fakeEntailer{score: 0.9})

	got, err := v.VerifyClaim(context.Background(), testClaim)
	if err != nil {
		t.Fatalf("VerifyClaim: %v", err)
	}

	if got.Verdict != model.VerdictSupported {
		t.Errorf("verdict = %v, want Supported", got.Verdict)
	}

	wantConfidence := 0.7*0.9 + 0.3*0.8
	if math.Abs(got.Confidence-wantConfidence) > 1e-9 {
		t.Errorf("confidence = %v, want %v", got.Confidence, wantConfidence)
	}

	if len(got.Sources) != 1 {
		t.Fatalf("got %d sources, want 1", len(got.Sources))
	}
	src := got.Sources[0]
	if src.Domain != "wikipedia.org" {
		t.Errorf("domain = %q", src.Domain)
	}
	if src.Snippet != testPassage {
		t.Errorf("snippet = %q", src.Snippet)
	}
	if src.EntailmentScore == nil || *src.EntailmentScore != 0.9 {
		t.Errorf("entailment = %v", src.EntailmentScore)
	}
	if src.FragmentURL == "" {
		t.Error("fragment URL missing")
	}
}

func TestVerifyClaim_EmptyClaim(t *testing.T) {
	v := newTestVerifier(&fakeSearcher{}, &fakeExtractor{}, nil)

	if _, err := v.VerifyClaim(context.Background(), "   \t  "); err == nil {
		t.Fatal("expected error for empty claim")
	}
}

func TestVerifyClaim_NormalizesWhitespace(t *testing.T) {
	url := "https://en.wikipedia.org/wiki/Eiffel_Tower"
	searcher := &fakeSearcher{candidates: []model.Candidate{relevantCandidate(url)}}
	extractor := &fakeExtractor{byURL: map[string]*content.Extraction{url: extractionFor(url, 0.8)}}

	v := newTestVerifier(searcher, extractor, nil)

	got, err := v.VerifyClaim(context.Background(), "  The   Eiffel Tower is\t330 metres tall.  ")
	if err != nil {
		t.Fatalf("VerifyClaim: %v", err)
	}
	if got.Text != testClaim {
		t.Errorf("text = %q, want normalized claim", got.Text)
	}
}

func TestVerifyClaim_NoCandidates(t *testing.T) {
	v := newTestVerifier(&fakeSearcher{}, &fakeExtractor{}, nil)

	got, err := v.VerifyClaim(context.Background(), testClaim)
	if err != nil {
		t.Fatalf("VerifyClaim: %v", err)
	}

	if got.Verdict != model.VerdictUnclear || got.Confidence != 0.0 {
		t.Errorf("got %v/%v, want Unclear/0.0", got.Verdict, got.Confidence)
	}
	if got.Sources == nil || len(got.Sources) != 0 {
		t.Errorf("sources = %v, want empty non-nil slice", got.Sources)
	}
}

func TestVerifyClaim_IrrelevantCandidatesDropped(t *testing.T) {
	searcher := &fakeSearcher{candidates: []model.Candidate{
		{URL: "https://example.com/unrelated", Title: "Cooking with cast iron"},
	}}
	v := newTestVerifier(searcher, &fakeExtractor{}, nil)

	got, err := v.VerifyClaim(context.Background(), testClaim)
	if err != nil {
		t.Fatalf("VerifyClaim: %v", err)
	}
	if got.Verdict != model.VerdictUnclear || len(got.Sources) != 0 {
		t.Errorf("got %v with %d sources, want Unclear with none", got.Verdict, len(got.Sources))
	}
}

func TestVerifyClaim_AllFetchesFail(t *testing.T) {
	url := "https://en.wikipedia.org/wiki/Eiffel_Tower"
	searcher := &fakeSearcher{candidates: []model.Candidate{relevantCandidate(url)}}
	extractor := &fakeExtractor{httpErr: errors.New("connection refused")}

	v := newTestVerifier(searcher, extractor, nil)

	got, err := v.VerifyClaim(context.Background(), testClaim)
	if err != nil {
		t.Fatalf("VerifyClaim: %v", err)
	}
	if got.Verdict != model.VerdictUnclear || got.Confidence != 0.0 {
		t.Errorf("got %v/%v, want Unclear/0.0", got.Verdict, got.Confidence)
	}
}

func TestVerifyClaim_EmbeddingFailure(t *testing.T) {
	url := "https://en.wikipedia.org/wiki/Eiffel_Tower"
	searcher := &fakeSearcher{candidates: []model.Candidate{relevantCandidate(url)}}

	v := newTestVerifier(searcher, &fakeExtractor{}, nil)
	v.encoder = &fakeEncoder{err: errors.New("api key invalid")}

	got, err := v.VerifyClaim(context.Background(), testClaim)
	if err != nil {
		t.Fatalf("VerifyClaim: %v", err)
	}
	if got.Verdict != model.VerdictUnclear {
		t.Errorf("verdict = %v, want Unclear on embedding failure", got.Verdict)
	}
}

func TestVerifyClaim_MaxSourcesRespected(t *testing.T) {
	var candidates []model.Candidate
	byURL := make(map[string]*content.Extraction)
	for i := 0; i < 5; i++ {
		url := fmt.Sprintf("https://example%d.com/tower", i)
		candidates = append(candidates, relevantCandidate(url))
		byURL[url] = extractionFor(url, 0.5)
	}

	searcher := &fakeSearcher{candidates: candidates}
	extractor := &fakeExtractor{byURL: byURL}

	v := newTestVerifier(searcher, extractor, nil)
	v.maxSources = 2

	got, err := v.VerifyClaim(context.Background(), testClaim)
	if err != nil {
		t.Fatalf("VerifyClaim: %v", err)
	}
	if len(got.Sources) != 2 {
		t.Errorf("got %d sources, want 2", len(got.Sources))
	}
}

func TestVerifyClaim_FailedTopCandidateNotReplaced(t *testing.T) {
	failing := "https://a.example/tower"
	working := "https://b.example/tower"
	searcher := &fakeSearcher{candidates: []model.Candidate{
		relevantCandidate(failing),
		relevantCandidate(working),
	}}
	extractor := &fakeExtractor{byURL: map[string]*content.Extraction{
		working: extractionFor(working, 0.8),
	}}

	v := newTestVerifier(searcher, extractor, nil)
	v.maxSources = 1

	got, err := v.VerifyClaim(context.Background(), testClaim)
	if err != nil {
		t.Fatalf("VerifyClaim: %v", err)
	}

	if len(got.Sources) != 0 {
		t.Errorf("got %d sources (%+v), want none when the top candidate fails", len(got.Sources), got.Sources)
	}
	if got.Verdict != model.VerdictUnclear {
		t.Errorf("verdict = %v, want Unclear", got.Verdict)
	}
	if extractor.httpHits != 1 {
		t.Errorf("extraction attempted %d times, want only the top candidate", extractor.httpHits)
	}
}

func TestVerifyClaim_NoEntailerMeansNoSupported(t *testing.T) {
	url := "https://en.wikipedia.org/wiki/Eiffel_Tower"
	searcher := &fakeSearcher{candidates: []model.Candidate{relevantCandidate(url)}}
	extractor := &fakeExtractor{byURL: map[string]*content.Extraction{url: extractionFor(url, 0.95)}}

	v := newTestVerifier(searcher, extractor, nil)

	got, err := v.VerifyClaim(context.Background(), testClaim)
	if err != nil {
		t.Fatalf("VerifyClaim: %v", err)
	}
	if got.Verdict != model.VerdictUnclear {
		t.Errorf("verdict = %v, want Unclear without entailment scoring", got.Verdict)
	}
	if got.Sources[0].EntailmentScore != nil {
		t.Errorf("entailment = %v, want nil", got.Sources[0].EntailmentScore)
	}
}

func TestVerifyClaim_BrowserPathCapturesScreenshot(t *testing.T) {
	url := "https://en.wikipedia.org/wiki/Eiffel_Tower"
	searcher := &fakeSearcher{candidates: []model.Candidate{relevantCandidate(url)}}
	extractor := &fakeExtractor{byURL: map[string]*content.Extraction{url: extractionFor(url, 0.8)}}
	capturer := &fakeCapturer{}

	v := newTestVerifier(searcher, extractor, &fakeEntailer{score: 0.9})
	v.capturer = capturer
	v.pages = fakePageSource{}

	got, err := v.VerifyClaim(context.Background(), testClaim)
	if err != nil {
		t.Fatalf("VerifyClaim: %v", err)
	}

	if extractor.pageHits == 0 {
		t.Error("browser extraction never attempted")
	}
	if capturer.captured != 1 {
		t.Errorf("capturer called %d times, want 1", capturer.captured)
	}
	if got.Sources[0].ScreenshotB64 == "" {
		t.Error("screenshot missing from source")
	}
}

func TestVerifyClaim_BrowserFailureFallsBackToHTTP(t *testing.T) {
	url := "https://en.wikipedia.org/wiki/Eiffel_Tower"
	searcher := &fakeSearcher{candidates: []model.Candidate{relevantCandidate(url)}}
	extractor := &fakeExtractor{
		byURL:   map[string]*content.Extraction{url: extractionFor(url, 0.8)},
		pageErr: errors.New("navigation timeout"),
	}

	v := newTestVerifier(searcher, extractor, nil)
	v.pages = fakePageSource{}

	got, err := v.VerifyClaim(context.Background(), testClaim)
	if err != nil {
		t.Fatalf("VerifyClaim: %v", err)
	}

	if extractor.httpHits == 0 {
		t.Error("HTTP fallback never attempted")
	}
	if len(got.Sources) != 1 {
		t.Fatalf("got %d sources, want 1", len(got.Sources))
	}
	if got.Sources[0].ScreenshotB64 != "" {
		t.Error("HTTP-fetched source must not carry a screenshot")
	}
}
