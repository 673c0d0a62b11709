package cli

import (
	"context"
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/akraskov/veridict/internal/pipeline"
	"github.com/akraskov/veridict/internal/worker"
)

var (
	workers      int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Verify multiple claims from a file in parallel",
	Long: `Batch verifies multiple claims concurrently:
- Read claims from input file (one per line, # comments skipped)
- Verify claims in parallel with a configurable worker count
- Each worker owns its own browser session
- Write one JSON result per claim

Example:
  veridict batch claims.txt
  veridict batch claims.txt --workers 4 --output-dir ./results
  veridict batch claims.txt --no-browser --timeout 30m`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	// Concurrency flags
	batchCmd.Flags().IntVar(&workers, "workers", 2, "number of concurrent workers (one browser each)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./veridict-results", "output directory for results")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for batch processing")

	// Shared pipeline flags
	batchCmd.Flags().IntVar(&maxSources, "max-sources", 3, "maximum sources to fetch and score per claim")
	batchCmd.Flags().BoolVar(&noBrowser, "no-browser", false, "disable the headless browser (HTTP fetching only, no screenshots)")
	batchCmd.Flags().BoolVar(&noScreenshots, "no-screenshots", false, "disable screenshot capture")
	batchCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the search and embedding cache")
	batchCmd.Flags().StringVar(&userAgent, "ua", "", "HTTP User-Agent override")
	batchCmd.Flags().StringVar(&httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	batchCmd.Flags().StringVar(&httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
	batchCmd.Flags().StringVar(&searchProvider, "search-provider", "duckduckgo", "search backend (duckduckgo, searx)")
	batchCmd.Flags().StringVar(&searxURL, "searx-url", "", "SearxNG instance URL (required for searx)")
	batchCmd.Flags().StringVar(&nliURL, "nli-url", "", "cross-encoder inference server URL (empty disables entailment)")

	// LLM flags
	batchCmd.Flags().BoolVar(&llmEnabled, "llm", false, "enable LLM query planning")
	batchCmd.Flags().StringVar(&llmProvider, "llm-provider", "openai", "LLM provider (openai, anthropic, ollama)")
	batchCmd.Flags().StringVar(&llmModel, "llm-model", "gpt-4o-mini", "LLM model name")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	if workers <= 0 {
		workers = 1
	}

	cfg, err := buildConfig()
	if err != nil {
		return err
	}
	cfg.Concurrency.Workers = workers

	fmt.Fprintf(os.Stderr, "Input file:  %s\n", file)
	fmt.Fprintf(os.Stderr, "Workers:     %d\n", workers)
	fmt.Fprintf(os.Stderr, "Output dir:  %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "Timeout:     %v\n\n", batchTimeout)

	// Create output directory
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	// One verifier per worker: browser pages are exclusive, so each
	// worker carries its own session.
	verifiers := make([]worker.ClaimVerifier, 0, workers)
	for i := 0; i < workers; i++ {
		v, err := pipeline.NewVerifier(cfg, maxSources)
		if err != nil {
			return fmt.Errorf("build pipeline: %w", err)
		}
		defer v.Close()
		verifiers = append(verifiers, v)
	}

	processor := worker.NewBatchProcessor(verifiers)

	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	successCount := 0
	failureCount := 0

	for _, result := range results {
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %q: %v\n", result.Claim, result.Error)
			continue
		}

		path := filepath.Join(outputDir, resultFilename(result.Claim))
		if err := writeResult(result.Verification, path); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %q: %v\n", result.Claim, err)
			continue
		}

		successCount++
		fmt.Fprintf(os.Stderr, "✓ %q: %s (%.2f)\n",
			result.Claim, result.Verification.Verdict, result.Verification.Confidence)
	}

	fmt.Fprintf(os.Stderr, "\nTotal:     %d claims\n", len(results))
	fmt.Fprintf(os.Stderr, "Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "Output:    %s\n", outputDir)

	return nil
}

// resultFilename builds a readable, collision-resistant file name from
// the claim text.
func resultFilename(claim string) string {
	slug := strings.ToLower(claim)
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == ' ', r == '-', r == '_':
			return '-'
		default:
			return -1
		}
	}, slug)
	slug = strings.Trim(slug, "-")
	if len(slug) > 60 {
		slug = slug[:60]
	}
	if slug == "" {
		slug = "claim"
	}

	hash := fmt.Sprintf("%x", md5.Sum([]byte(claim)))[:8]
	return slug + "-" + hash + ".json"
}
