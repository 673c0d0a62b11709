package search

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/akraskov/veridict/internal/cache"
	"github.com/akraskov/veridict/internal/model"
)

func TestIsSearchPage(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://example.com/search?q=tower", true},
		{"https://example.com/search/results", true},
		{"https://example.com/page?q=tower", true},
		{"https://example.com/page?query=tower", true},
		{"https://example.com/site-search/tower", true},
		{"https://example.com/SEARCH?Q=tower", true},
		{"https://example.com/find?term=tower", true},
		{"https://en.wikipedia.org/wiki/Eiffel_Tower", false},
		{"https://example.com/articles/research", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsSearchPage(tt.url); got != tt.want {
			t.Errorf("IsSearchPage(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

// fakeProvider returns canned results per query and records calls.
type fakeProvider struct {
	results map[string][]model.Candidate
	errs    map[string]error
	calls   []string
}

func (f *fakeProvider) Name() string     { return "fake" }
func (f *fakeProvider) Endpoint() string { return "https://fake.example.com/" }

func (f *fakeProvider) Search(_ context.Context, query string, _ int) ([]model.Candidate, error) {
	f.calls = append(f.calls, query)
	if err, ok := f.errs[query]; ok {
		return nil, err
	}
	return f.results[query], nil
}

func testSearchConfig() (model.SearchConfig, model.RateLimitConfig) {
	return model.SearchConfig{ResultsPerQuery: 5},
		model.RateLimitConfig{RequestsPerSecond: 1000, BurstSize: 10}
}

func TestClient_SearchAll_SwallowsFailures(t *testing.T) {
	provider := &fakeProvider{
		results: map[string][]model.Candidate{
			"good": {{URL: "https://example.com/a", Title: "A"}},
		},
		errs: map[string]error{
			"bad": errors.New("backend down"),
		},
	}

	searchCfg, rlCfg := testSearchConfig()
	client := NewClient(provider, searchCfg, rlCfg, nil)

	got := client.SearchAll(context.Background(), []string{"bad", "good"})

	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1", len(got))
	}
	if got[0].URL != "https://example.com/a" {
		t.Errorf("got URL %q", got[0].URL)
	}
	if len(provider.calls) != 2 {
		t.Errorf("provider called %d times, want 2", len(provider.calls))
	}
}

func TestClient_SearchAll_FiltersSearchPages(t *testing.T) {
	provider := &fakeProvider{
		results: map[string][]model.Candidate{
			"q": {
				{URL: "https://example.com/search?q=tower", Title: "search"},
				{URL: "https://example.com/article", Title: "article"},
				{URL: "", Title: "empty"},
			},
		},
	}

	searchCfg, rlCfg := testSearchConfig()
	client := NewClient(provider, searchCfg, rlCfg, nil)

	got := client.SearchAll(context.Background(), []string{"q"})

	if len(got) != 1 || got[0].URL != "https://example.com/article" {
		t.Fatalf("got %+v, want only the article candidate", got)
	}
}

func TestClient_SearchAll_UsesCache(t *testing.T) {
	provider := &fakeProvider{
		results: map[string][]model.Candidate{
			"q": {{URL: "https://example.com/a", Title: "A"}},
		},
	}

	searchCfg, rlCfg := testSearchConfig()
	store := cache.NewMemoryCache(time.Minute, time.Minute)
	client := NewClient(provider, searchCfg, rlCfg, store)

	ctx := context.Background()
	first := client.SearchAll(ctx, []string{"q"})
	second := client.SearchAll(ctx, []string{"q"})

	if len(provider.calls) != 1 {
		t.Errorf("provider called %d times, want 1 (second run should hit cache)", len(provider.calls))
	}
	if len(first) != 1 || len(second) != 1 || first[0].URL != second[0].URL {
		t.Errorf("cached results differ: %+v vs %+v", first, second)
	}
}

func TestClient_SearchAll_SkipsBlankQueries(t *testing.T) {
	provider := &fakeProvider{}

	searchCfg, rlCfg := testSearchConfig()
	client := NewClient(provider, searchCfg, rlCfg, nil)

	client.SearchAll(context.Background(), []string{"", "  ", "\t"})

	if len(provider.calls) != 0 {
		t.Errorf("provider called %d times for blank queries, want 0", len(provider.calls))
	}
}

func TestSearxNG_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("path = %q, want /search", r.URL.Path)
		}
		if got := r.URL.Query().Get("format"); got != "json" {
			t.Errorf("format = %q, want json", got)
		}
		if got := r.URL.Query().Get("q"); got != "eiffel tower height" {
			t.Errorf("q = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[
			{"url":"https://en.wikipedia.org/wiki/Eiffel_Tower","title":"Eiffel Tower","content":"The tower is 330 metres tall."},
			{"url":"","title":"broken","content":""},
			{"url":"https://example.com/b","title":"B","content":"b"},
			{"url":"https://example.com/c","title":"C","content":"c"}
		]}`))
	}))
	defer server.Close()

	provider := NewSearxNG(server.URL, "", model.HTTPConfig{Timeout: 5 * time.Second, UserAgent: "test"})

	got, err := provider.Search(context.Background(), "eiffel tower height", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2 (maxResults)", len(got))
	}
	if got[0].URL != "https://en.wikipedia.org/wiki/Eiffel_Tower" {
		t.Errorf("first URL = %q", got[0].URL)
	}
	if got[0].Summary != "The tower is 330 metres tall." {
		t.Errorf("first summary = %q", got[0].Summary)
	}
}

func TestSearxNG_Search_BadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	provider := NewSearxNG(server.URL, "", model.HTTPConfig{Timeout: 5 * time.Second})

	if _, err := provider.Search(context.Background(), "q", 5); err == nil {
		t.Fatal("expected error on 429 status")
	}
}

func TestParseResultPage(t *testing.T) {
	page := `<html><body>
		<div class="result">
			<a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fen.wikipedia.org%2Fwiki%2FEiffel_Tower&amp;rut=abc">Eiffel Tower - Wikipedia</a>
			<a class="result__snippet" href="#">The <b>Eiffel Tower</b> is a wrought-iron lattice tower.</a>
		</div>
		<div class="result">
			<a class="result__a" href="https://example.com/direct">Direct Result</a>
		</div>
		<div class="result">
			<a class="result__a" href="javascript:void(0)">Bogus</a>
		</div>
	</body></html>`

	got, err := parseResultPage(page)
	if err != nil {
		t.Fatalf("parseResultPage: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2", len(got))
	}
	if got[0].URL != "https://en.wikipedia.org/wiki/Eiffel_Tower" {
		t.Errorf("redirect not unwrapped: %q", got[0].URL)
	}
	if got[0].Title != "Eiffel Tower - Wikipedia" {
		t.Errorf("title = %q", got[0].Title)
	}
	if got[0].Summary != "The Eiffel Tower is a wrought-iron lattice tower." {
		t.Errorf("summary = %q", got[0].Summary)
	}
	if got[1].URL != "https://example.com/direct" {
		t.Errorf("second URL = %q", got[1].URL)
	}
}

func TestResolveRedirect(t *testing.T) {
	tests := []struct {
		href string
		want string
	}{
		{"//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fpage", "https://example.com/page"},
		{"https://duckduckgo.com/l/?other=1", ""},
		{"https://example.com/page", "https://example.com/page"},
		{"ftp://example.com/file", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := resolveRedirect(tt.href); got != tt.want {
			t.Errorf("resolveRedirect(%q) = %q, want %q", tt.href, got, tt.want)
		}
	}
}
