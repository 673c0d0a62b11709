package model

import "time"

// Config is the full pipeline configuration.
// Populated from flags, VERIDICT_* env vars, and ~/.veridict/config.yaml.
type Config struct {
	HTTP         HTTPConfig        `yaml:"http" mapstructure:"http"`
	Search       SearchConfig      `yaml:"search" mapstructure:"search"`
	Browser      BrowserConfig     `yaml:"browser" mapstructure:"browser"`
	Embedding    EmbeddingConfig   `yaml:"embedding" mapstructure:"embedding"`
	NLI          NLIConfig         `yaml:"nli" mapstructure:"nli"`
	LLM          LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Evidence     EvidenceConfig    `yaml:"evidence" mapstructure:"evidence"`
	RateLimiting RateLimitConfig   `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Concurrency  ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Cache        CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Output       OutputConfig      `yaml:"output" mapstructure:"output"`
}

// HTTPConfig configures the fallback fetcher and other plain HTTP clients.
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	InsecureTLS  bool          `yaml:"insecure_tls" mapstructure:"insecure_tls"`
	HTTPProxy    string        `yaml:"http_proxy" mapstructure:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy" mapstructure:"https_proxy"`
	NoProxy      string        `yaml:"no_proxy" mapstructure:"no_proxy"`
}

// SearchConfig selects and tunes the web search backend.
type SearchConfig struct {
	Provider        string        `yaml:"provider" mapstructure:"provider"` // duckduckgo, searx
	BaseURL         string        `yaml:"base_url" mapstructure:"base_url"` // searx instance URL
	APIKey          string        `yaml:"api_key" mapstructure:"api_key"`
	ResultsPerQuery int           `yaml:"results_per_query" mapstructure:"results_per_query"`
	MaxQueries      int           `yaml:"max_queries" mapstructure:"max_queries"`
	InterQueryDelay time.Duration `yaml:"inter_query_delay" mapstructure:"inter_query_delay"`
}

// BrowserConfig controls the shared headless page.
type BrowserConfig struct {
	Enabled           bool          `yaml:"enabled" mapstructure:"enabled"`
	Headless          bool          `yaml:"headless" mapstructure:"headless"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout" mapstructure:"navigation_timeout"`
	UserAgent         string        `yaml:"user_agent" mapstructure:"user_agent"`
}

// EmbeddingConfig configures the sentence embedding backend.
type EmbeddingConfig struct {
	Model   string `yaml:"model" mapstructure:"model"`
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// NLIConfig configures the optional cross-encoder entailment backend.
// An empty BaseURL disables entailment scoring entirely.
type NLIConfig struct {
	BaseURL string        `yaml:"base_url" mapstructure:"base_url"`
	Model   string        `yaml:"model" mapstructure:"model"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// LLMConfig configures the optional retrieval planner backend.
type LLMConfig struct {
	Provider   string `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama, ""
	Model      string `yaml:"model" mapstructure:"model"`
	APIKey     string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL    string `yaml:"base_url" mapstructure:"base_url"`
	Timeout    int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens  int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	HTTPProxy  string `yaml:"http_proxy" mapstructure:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy" mapstructure:"https_proxy"`
	NoProxy    string `yaml:"no_proxy" mapstructure:"no_proxy"`
}

// EvidenceConfig controls screenshot capture and storage.
type EvidenceConfig struct {
	ScreenshotDir     string `yaml:"screenshot_dir" mapstructure:"screenshot_dir"`
	EnableScreenshots bool   `yaml:"enable_screenshots" mapstructure:"enable_screenshots"`
}

// RateLimitConfig bounds request rates per search/fetch domain.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// ConcurrencyConfig controls batch processing parallelism.
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// CacheConfig controls the layered search/embedding cache.
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// OutputConfig controls CLI output behavior.
type OutputConfig struct {
	Verbose bool `yaml:"verbose" mapstructure:"verbose"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:      15 * time.Second,
			UserAgent:    "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
			MaxBodyBytes: 2_000_000,
		},
		Search: SearchConfig{
			Provider:        "duckduckgo",
			ResultsPerQuery: 5,
			MaxQueries:      20,
			InterQueryDelay: 200 * time.Millisecond,
		},
		Browser: BrowserConfig{
			Enabled:           true,
			Headless:          true,
			NavigationTimeout: 30 * time.Second,
			UserAgent:         "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
		},
		Embedding: EmbeddingConfig{
			Model: "text-embedding-3-small",
		},
		NLI: NLIConfig{
			Model:   "cross-encoder/nli-deberta-v3-base",
			Timeout: 30 * time.Second,
		},
		LLM: LLMConfig{
			Timeout:   30,
			MaxTokens: 400,
		},
		Evidence: EvidenceConfig{
			ScreenshotDir:     "screenshots",
			EnableScreenshots: true,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 2,
			BurstSize:         1,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 2,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".veridict-cache",
			MemoryTTL: 15 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
	}
}
