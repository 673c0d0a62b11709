package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/akraskov/veridict/internal/model"
)

// ClaimVerifier verifies a single claim end to end.
type ClaimVerifier interface {
	VerifyClaim(ctx context.Context, claim string) (*model.ClaimVerification, error)
}

// VerifyJob verifies one claim. Verifiers are leased from a shared
// channel because each one owns an exclusive browser page.
type VerifyJob struct {
	Claim     string
	Verifiers chan ClaimVerifier
}

// Execute leases a verifier, runs the claim, and returns it
func (j *VerifyJob) Execute(ctx context.Context) Result {
	select {
	case <-ctx.Done():
		return &VerifyResult{Claim: j.Claim, Error: ctx.Err()}
	case verifier := <-j.Verifiers:
		defer func() { j.Verifiers <- verifier }()

		verification, err := verifier.VerifyClaim(ctx, j.Claim)
		return &VerifyResult{
			Claim:        j.Claim,
			Verification: verification,
			Error:        err,
		}
	}
}

// VerifyResult is the outcome of one batch claim.
type VerifyResult struct {
	Claim        string
	Verification *model.ClaimVerification
	Error        error
}

// GetError returns the error from the verification job
func (r *VerifyResult) GetError() error {
	return r.Error
}

// BatchProcessor verifies many claims concurrently. One verifier per
// worker keeps browser pages exclusive without serializing the batch.
type BatchProcessor struct {
	verifiers chan ClaimVerifier
	workers   int
}

// NewBatchProcessor creates a processor around a fixed set of verifiers
func NewBatchProcessor(verifiers []ClaimVerifier) *BatchProcessor {
	pool := make(chan ClaimVerifier, len(verifiers))
	for _, v := range verifiers {
		pool <- v
	}

	return &BatchProcessor{
		verifiers: pool,
		workers:   len(verifiers),
	}
}

// ProcessClaims verifies all claims concurrently
func (b *BatchProcessor) ProcessClaims(ctx context.Context, claims []string) []*VerifyResult {
	if len(claims) == 0 {
		return []*VerifyResult{}
	}

	pool := NewPool(b.workers)
	pool.Start()

	// Results are drained while submitting: the job and result queues
	// are bounded, so a batch larger than their capacity would
	// deadlock Submit otherwise.
	collector := NewResultCollector()
	drained := pool.Collect(collector)

	for _, claim := range claims {
		pool.Submit(&VerifyJob{
			Claim:     claim,
			Verifiers: b.verifiers,
		})
	}

	pool.Finish()
	<-drained

	results := collector.Results()

	verifyResults := make([]*VerifyResult, len(results))
	for i, result := range results {
		verifyResults[i] = result.(*VerifyResult)
	}

	return verifyResults
}

// ProcessFile reads claims from a file and verifies them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*VerifyResult, error) {
	claims, err := ReadClaimsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read claims: %w", err)
	}

	return b.ProcessClaims(ctx, claims), nil
}

// ReadClaimsFromFile reads claims from a file, one per line. Blank
// lines, comments, and duplicates are skipped.
func ReadClaimsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var claims []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			claims = append(claims, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return claims, nil
}
