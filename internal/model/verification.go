package model

import "time"

// Verdict is the categorical outcome of verifying a claim.
type Verdict string

const (
	// VerdictSupported means at least one source strongly entails the claim
	// and the evidence is textually close to it.
	VerdictSupported Verdict = "Supported"

	// VerdictContradicted is a weak-evidence signal: no source supports the
	// claim and none is textually close to it. It does not assert that a
	// source states the opposite of the claim.
	VerdictContradicted Verdict = "Contradicted"

	// VerdictUnclear covers everything in between, including total failure.
	VerdictUnclear Verdict = "Unclear"
)

// VerificationSource is one cited, evidenced web source for a claim.
// Immutable once created by the pipeline.
type VerificationSource struct {
	URL             string     `json:"url"`
	Domain          string     `json:"domain"`
	Title           string     `json:"title"`
	PublishedAt     *time.Time `json:"published_at,omitempty"`
	Snippet         string     `json:"snippet"`
	ScreenshotB64   string     `json:"screenshot_b64,omitempty"`
	FragmentURL     string     `json:"url_with_text_fragment"`
	Similarity      float64    `json:"similarity"`
	EntailmentScore *float64   `json:"entailment_score,omitempty"` // nil = model unavailable, not zero
}

// ClaimVerification is the terminal artifact returned to the caller.
type ClaimVerification struct {
	Text       string               `json:"text"`
	Verdict    Verdict              `json:"verdict"`
	Confidence float64              `json:"confidence"`
	Sources    []VerificationSource `json:"sources"`
}

// Unverifiable is the deterministic terminal result when no source survives
// the pipeline. Never an error: callers always get a structured result.
func Unverifiable(claim string) *ClaimVerification {
	return &ClaimVerification{
		Text:       claim,
		Verdict:    VerdictUnclear,
		Confidence: 0.0,
		Sources:    []VerificationSource{},
	}
}
