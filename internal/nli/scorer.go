// Package nli scores claim/passage entailment through an external
// cross-encoder inference server. Scoring is best-effort: when the
// server is unreachable or the passage is too short to judge, the
// scorer returns nil and the pipeline falls back to similarity alone.
package nli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/akraskov/veridict/internal/model"
)

// minPassageChars is the shortest passage worth scoring. Anything
// shorter is usually boilerplate and produces noise.
const minPassageChars = 20

// Scorer produces an entailment probability for a claim/passage pair.
// A nil result means no score is available, not a score of zero.
type Scorer interface {
	Entail(ctx context.Context, claim, passage string) *float64
}

// CrossEncoder calls an HTTP inference server hosting an NLI
// cross-encoder. The server takes sentence pairs and returns raw
// three-class logits (contradiction, neutral, entailment).
type CrossEncoder struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

type predictRequest struct {
	Model string      `json:"model"`
	Pairs [][2]string `json:"pairs"`
}

type predictResponse struct {
	Logits [][]float64 `json:"logits"`
}

// NewCrossEncoder creates a scorer backed by the server at cfg.BaseURL.
// Returns nil if no base URL is configured; callers treat a nil scorer
// as entailment disabled.
func NewCrossEncoder(cfg model.NLIConfig) *CrossEncoder {
	if cfg.BaseURL == "" {
		return nil
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	nliModel := cfg.Model
	if nliModel == "" {
		nliModel = "cross-encoder/nli-deberta-v3-base"
	}

	return &CrossEncoder{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		model:      nliModel,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Entail returns the entailment probability for the claim given the
// passage, or nil when the passage is too short or the server fails.
func (c *CrossEncoder) Entail(ctx context.Context, claim, passage string) *float64 {
	if len(strings.TrimSpace(passage)) <= minPassageChars {
		return nil
	}

	logits, err := c.predict(ctx, claim, passage)
	if err != nil {
		log.Debug().Err(err).Msg("entailment scoring unavailable")
		return nil
	}

	probs := softmax(logits)
	// Last class is entailment in the standard NLI label order.
	score := probs[len(probs)-1]
	return &score
}

func (c *CrossEncoder) predict(ctx context.Context, claim, passage string) ([]float64, error) {
	reqBody, err := json.Marshal(predictRequest{
		Model: c.model,
		Pairs: [][2]string{{claim, passage}},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/predict", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("predict request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1_000_000))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var parsed predictResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if len(parsed.Logits) == 0 || len(parsed.Logits[0]) != 3 {
		return nil, fmt.Errorf("malformed logits in response")
	}
	return parsed.Logits[0], nil
}

// softmax converts raw logits to probabilities. The max is subtracted
// first for numerical stability.
func softmax(logits []float64) []float64 {
	maxLogit := logits[0]
	for _, l := range logits[1:] {
		if l > maxLogit {
			maxLogit = l
		}
	}

	probs := make([]float64, len(logits))
	var sum float64
	for i, l := range logits {
		probs[i] = math.Exp(l - maxLogit)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}
