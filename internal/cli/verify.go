package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/akraskov/veridict/internal/model"
	"github.com/akraskov/veridict/internal/pipeline"
)

var (
	outJSON        string
	timeout        time.Duration
	userAgent      string
	maxBytes       int64
	noCache        bool
	noBrowser      bool
	noScreenshots  bool
	insecureTLS    bool
	maxSources     int
	searchProvider string
	searxURL       string
	nliURL         string
	httpProxy      string
	httpsProxy     string
	llmEnabled     bool
	llmProvider    string
	llmModel       string
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify <claim>",
	Short: "Verify a single factual claim against the web",
	Long: `Verify checks one claim end to end:
- Extract key entities and plan search queries (LLM-assisted if enabled)
- Search the web and rank candidate sources by relevance
- Fetch pages with a headless browser (HTTP fallback)
- Select the passage closest to the claim via embeddings
- Score entailment with a cross-encoder when one is configured
- Aggregate everything into a verdict with cited, evidenced sources

Example:
  veridict verify "The Eiffel Tower is 330 metres tall."
  veridict verify "The Eiffel Tower is 330 metres tall." --json result.json
  veridict verify "..." --llm --llm-provider openai --max-sources 5
  veridict verify "..." --no-browser --search-provider searx --searx-url http://localhost:8888`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	// Output flags
	verifyCmd.Flags().StringVar(&outJSON, "json", "", "write JSON result to path instead of stdout")

	// Pipeline flags
	verifyCmd.Flags().IntVar(&maxSources, "max-sources", 3, "maximum sources to fetch and score per claim")
	verifyCmd.Flags().DurationVar(&timeout, "timeout", 3*time.Minute, "overall verification timeout")
	verifyCmd.Flags().BoolVar(&noBrowser, "no-browser", false, "disable the headless browser (HTTP fetching only, no screenshots)")
	verifyCmd.Flags().BoolVar(&noScreenshots, "no-screenshots", false, "disable screenshot capture")
	verifyCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the search and embedding cache")

	// HTTP flags
	verifyCmd.Flags().StringVar(&userAgent, "ua", "", "HTTP User-Agent override")
	verifyCmd.Flags().Int64Var(&maxBytes, "max-bytes", 2_000_000, "max response bytes to read on HTTP fallback")
	verifyCmd.Flags().BoolVar(&insecureTLS, "insecure", false, "skip TLS certificate verification (use for self-signed certs)")
	verifyCmd.Flags().StringVar(&httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	verifyCmd.Flags().StringVar(&httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")

	// Backend flags
	verifyCmd.Flags().StringVar(&searchProvider, "search-provider", "duckduckgo", "search backend (duckduckgo, searx)")
	verifyCmd.Flags().StringVar(&searxURL, "searx-url", "", "SearxNG instance URL (required for searx)")
	verifyCmd.Flags().StringVar(&nliURL, "nli-url", "", "cross-encoder inference server URL (empty disables entailment)")

	// LLM flags
	verifyCmd.Flags().BoolVar(&llmEnabled, "llm", false, "enable LLM query planning")
	verifyCmd.Flags().StringVar(&llmProvider, "llm-provider", "openai", "LLM provider (openai, anthropic, ollama)")
	verifyCmd.Flags().StringVar(&llmModel, "llm-model", "gpt-4o-mini", "LLM model name")
}

// buildConfig assembles the pipeline configuration from flags and
// environment. Shared by verify and batch.
func buildConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()

	if userAgent != "" {
		cfg.HTTP.UserAgent = userAgent
		cfg.Browser.UserAgent = userAgent
	}
	cfg.HTTP.MaxBodyBytes = maxBytes
	cfg.HTTP.InsecureTLS = insecureTLS
	cfg.HTTP.HTTPProxy = httpProxy
	cfg.HTTP.HTTPSProxy = httpsProxy

	cfg.Browser.Enabled = !noBrowser
	cfg.Evidence.EnableScreenshots = !noScreenshots && !noBrowser
	cfg.Cache.Enabled = !noCache
	cfg.Output.Verbose = verbose

	cfg.Search.Provider = searchProvider
	cfg.Search.BaseURL = searxURL

	if nliURL == "" {
		nliURL = viper.GetString("nli_url")
	}
	cfg.NLI.BaseURL = nliURL

	// Embeddings run through the OpenAI API and always need a key.
	cfg.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
	if cfg.Embedding.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set (required for passage embeddings)")
	}

	// Configure LLM planning if enabled
	if llmEnabled {
		cfg.LLM.Provider = llmProvider
		cfg.LLM.Model = llmModel

		// Get API key from environment
		switch llmProvider {
		case "openai":
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic", "claude":
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
			if cfg.LLM.APIKey == "" {
				return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
			}
		case "ollama":
			// Ollama doesn't need an API key
			baseURL := os.Getenv("OLLAMA_BASE_URL")
			if baseURL != "" {
				cfg.LLM.BaseURL = baseURL
			}
		}
	}

	return cfg, nil
}

func runVerify(cmd *cobra.Command, args []string) error {
	claim := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	verifier, err := pipeline.NewVerifier(cfg, maxSources)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}
	defer verifier.Close()

	result, err := verifier.VerifyClaim(ctx, claim)
	if err != nil {
		return fmt.Errorf("verify failed: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Verdict: %s (confidence %.2f, %d sources)\n",
			result.Verdict, result.Confidence, len(result.Sources))
	}

	return writeResult(result, outJSON)
}

// writeResult renders the verification as indented JSON to stdout or
// the given path.
func writeResult(result *model.ClaimVerification, path string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	if path == "" || path == "-" {
		fmt.Println(string(data))
		return nil
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	fmt.Fprintf(os.Stderr, "✓ Result written to %s\n", path)
	return nil
}
