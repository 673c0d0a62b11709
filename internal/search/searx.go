package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/akraskov/veridict/internal/model"
	"github.com/akraskov/veridict/internal/util"
)

// SearxNG searches a SearxNG instance via its JSON API.
type SearxNG struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	userAgent  string
}

type searxResponse struct {
	Results []struct {
		URL     string `json:"url"`
		Title   string `json:"title"`
		Content string `json:"content"`
	} `json:"results"`
}

// NewSearxNG creates a new SearxNG provider for the given instance
func NewSearxNG(baseURL, apiKey string, cfg model.HTTPConfig) *SearxNG {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	return &SearxNG{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
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
func (s *SearxNG) Name() string {
	return "searx"
}

// Endpoint returns the base URL used for rate limiting
func (s *SearxNG) Endpoint() string {
	return s.baseURL
}

// Search issues one query against the instance's JSON API
func (s *SearxNG) Search(ctx context.Context, query string, maxResults int) ([]model.Candidate, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")

	reqURL := fmt.Sprintf("%s/search?%s", s.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
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

	var parsed searxResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	candidates := make([]model.Candidate, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		if r.URL == "" {
			continue
		}
		candidates = append(candidates, model.Candidate{
			URL:     r.URL,
			Title:   r.Title,
			Summary: r.Content,
			Source:  "web",
		})
		if len(candidates) >= maxResults {
			break
		}
	}

	return candidates, nil
}
