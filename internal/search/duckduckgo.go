package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/akraskov/veridict/internal/model"
	"github.com/akraskov/veridict/internal/util"
)

const duckduckgoEndpoint = "https://html.duckduckgo.com/html/"

// DuckDuckGo searches the DuckDuckGo HTML endpoint. No API key required.
type DuckDuckGo struct {
	httpClient *http.Client
	userAgent  string
}

// NewDuckDuckGo creates a new DuckDuckGo provider
func NewDuckDuckGo(cfg model.HTTPConfig) *DuckDuckGo {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	return &DuckDuckGo{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
			},
		},
		userAgent: cfg.UserAgent,
	}
}

// Name returns the provider name
func (d *DuckDuckGo) Name() string {
	return "duckduckgo"
}

// Endpoint returns the base URL used for rate limiting
func (d *DuckDuckGo) Endpoint() string {
	return duckduckgoEndpoint
}

// Search issues one query and parses the result page
func (d *DuckDuckGo) Search(ctx context.Context, query string, maxResults int) ([]model.Candidate, error) {
	reqURL := duckduckgoEndpoint + "?q=" + url.QueryEscape(query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2_000_000))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	candidates, err := parseResultPage(string(body))
	if err != nil {
		return nil, err
	}

	if len(candidates) > maxResults {
		candidates = candidates[:maxResults]
	}
	return candidates, nil
}

// parseResultPage walks the DuckDuckGo HTML result list. Result links carry
// the "result__a" class; snippets carry "result__snippet".
func parseResultPage(page string) ([]model.Candidate, error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse result page: %w", err)
	}

	var candidates []model.Candidate
	var walk func(*html.Node)

	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			class := attrValue(n, "class")
			switch {
			case strings.Contains(class, "result__a"):
				href := resolveRedirect(attrValue(n, "href"))
				if href != "" {
					candidates = append(candidates, model.Candidate{
						URL:    href,
						Title:  nodeText(n),
						Source: "web",
					})
				}
			case strings.Contains(class, "result__snippet"):
				if len(candidates) > 0 && candidates[len(candidates)-1].Summary == "" {
					candidates[len(candidates)-1].Summary = nodeText(n)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(doc)
	return candidates, nil
}

// resolveRedirect unwraps DuckDuckGo's /l/?uddg=<url> redirect links.
func resolveRedirect(href string) string {
	if href == "" {
		return ""
	}

	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}

	if strings.Contains(parsed.Host, "duckduckgo.com") && parsed.Path == "/l/" {
		if target := parsed.Query().Get("uddg"); target != "" {
			return target
		}
		return ""
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ""
	}
	return href
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
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
	return strings.Join(strings.Fields(buf.String()), " ")
}
