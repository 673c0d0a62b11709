// Package content turns a candidate URL into the single passage most
// semantically similar to the claim. The headless browser is the
// primary path; a plain HTTP fetch with robots.txt checking is the
// fallback.
package content

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/akraskov/veridict/internal/embed"
	"github.com/akraskov/veridict/internal/evidence"
	"github.com/akraskov/veridict/internal/util"
)

// ErrNoContent means the page yielded nothing worth scoring. Callers
// drop the candidate instead of recording an empty source.
var ErrNoContent = errors.New("no usable content on page")

// contentSelectors are tried in order against the rendered page.
// Article-body selectors cover common CMS layouts; the MediaWiki
// selector covers Wikipedia.
var contentSelectors = []string{
	"p",
	"article p",
	"div.content p",
	"div.article-body p",
	"div.story-body p",
	"div.entry-content p",
	".mw-parser-output p",
}

const (
	minFragmentChars = 30
	elemsPerSelector = 50
	maxBodySentences = 20
)

var sentenceBoundary = regexp.MustCompile(`[.!?]+`)

// Page is the rendered-page surface the extractor needs.
// Implemented by browser.Page.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Title(ctx context.Context) (string, error)
	Location(ctx context.Context) (string, error)
	Paragraphs(ctx context.Context, selectors []string, minChars, perSelector int) ([]string, error)
	BodyText(ctx context.Context) (string, error)
}

// Extraction is the best passage found on one page, scored against
// the claim.
type Extraction struct {
	Snippet     string
	Similarity  float64
	FragmentURL string
	FinalURL    string
	Title       string
}

// Extractor selects claim-relevant passages from pages.
type Extractor struct {
	encoder embed.Encoder
	fetcher *Fetcher
	robots  *util.RobotsChecker
}

// NewExtractor creates an extractor. robots may be nil to skip
// robots.txt checks on the HTTP fallback path.
func NewExtractor(encoder embed.Encoder, fetcher *Fetcher, robots *util.RobotsChecker) *Extractor {
	return &Extractor{
		encoder: encoder,
		fetcher: fetcher,
		robots:  robots,
	}
}

// ExtractFromPage navigates the browser page to the URL and returns
// the passage closest to the claim vector.
func (e *Extractor) ExtractFromPage(ctx context.Context, page Page, claimVec []float32, rawURL string) (*Extraction, error) {
	if err := page.Navigate(ctx, rawURL); err != nil {
		return nil, err
	}

	finalURL, err := page.Location(ctx)
	if err != nil || finalURL == "" {
		finalURL = rawURL
	}

	title, _ := page.Title(ctx)

	fragments, err := page.Paragraphs(ctx, contentSelectors, minFragmentChars, elemsPerSelector)
	if err != nil {
		return nil, err
	}

	if len(fragments) == 0 {
		body, err := page.BodyText(ctx)
		if err != nil {
			return nil, err
		}
		fragments = splitSentences(body)
	}

	return e.build(ctx, claimVec, fragments, finalURL, title)
}

// ExtractHTTP fetches the URL without a browser and returns the
// passage closest to the claim vector. Disallowed URLs per robots.txt
// are refused.
func (e *Extractor) ExtractHTTP(ctx context.Context, claimVec []float32, rawURL string) (*Extraction, error) {
	if e.robots != nil && !e.robots.IsAllowed(ctx, rawURL) {
		return nil, fmt.Errorf("disallowed by robots.txt: %s", rawURL)
	}

	pageHTML, err := e.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	title, paragraphs, bodyText := parseHTML(pageHTML)

	fragments := paragraphs
	if len(fragments) == 0 {
		fragments = splitSentences(bodyText)
	}

	return e.build(ctx, claimVec, fragments, rawURL, title)
}

func (e *Extractor) build(ctx context.Context, claimVec []float32, fragments []string, finalURL, title string) (*Extraction, error) {
	if len(fragments) == 0 {
		return nil, ErrNoContent
	}

	best, similarity, err := e.bestPassage(ctx, claimVec, fragments)
	if err != nil {
		return nil, err
	}

	return &Extraction{
		Snippet:     best,
		Similarity:  similarity,
		FragmentURL: evidence.TextFragmentURL(finalURL, best),
		FinalURL:    finalURL,
		Title:       title,
	}, nil
}

// bestPassage embeds every fragment and returns the one with the
// highest cosine similarity to the claim vector.
func (e *Extractor) bestPassage(ctx context.Context, claimVec []float32, fragments []string) (string, float64, error) {
	vectors, err := e.encoder.Encode(ctx, fragments)
	if err != nil {
		return "", 0, fmt.Errorf("embed fragments: %w", err)
	}

	bestIdx := 0
	bestScore := -1.0
	for i, vec := range vectors {
		if score := embed.Cosine(claimVec, vec); score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	return fragments[bestIdx], bestScore, nil
}

// splitSentences breaks body text on sentence punctuation, keeping
// the first sentences long enough to carry a fact.
func splitSentences(text string) []string {
	var sentences []string
	for _, part := range sentenceBoundary.Split(text, -1) {
		part = strings.Join(strings.Fields(part), " ")
		if len(part) < minFragmentChars {
			continue
		}
		sentences = append(sentences, part)
		if len(sentences) >= maxBodySentences {
			break
		}
	}
	return sentences
}

// parseHTML pulls the title, paragraph texts, and full body text out
// of raw HTML.
func parseHTML(pageHTML string) (title string, paragraphs []string, bodyText string) {
	doc, err := html.Parse(strings.NewReader(pageHTML))
	if err != nil {
		return "", nil, ""
	}

	var body strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			case "title":
				if title == "" {
					title = strings.TrimSpace(nodeText(n))
				}
			case "p":
				if len(paragraphs) < elemsPerSelector {
					text := strings.Join(strings.Fields(nodeText(n)), " ")
					if len(text) >= minFragmentChars {
						paragraphs = append(paragraphs, text)
					}
				}
			}
		}
		if n.Type == html.TextNode {
			body.WriteString(n.Data)
			body.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return title, paragraphs, body.String()
}

func nodeText(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return buf.String()
}
