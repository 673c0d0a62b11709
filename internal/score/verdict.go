package score

import "github.com/akraskov/veridict/internal/model"

// Aggregation thresholds. Entailment dominates the confidence blend
// because the cross-encoder reads the claim against the passage
// directly, while similarity only measures topical overlap.
const (
	supportEntailment = 0.65
	supportSimilarity = 0.3
	weakSimilarity    = 0.2
	weakEntailment    = 0.4
	entailmentWeight  = 0.7
	similarityWeight  = 0.3
	confidenceCeiling = 0.98
)

// Aggregate folds per-source similarity and entailment scores into a
// single verdict and confidence. Sources without an entailment score
// contribute only to the similarity average.
//
// Confidence is clamped to [0, 0.98]; the pipeline never reports
// certainty.
func Aggregate(sources []model.VerificationSource) (model.Verdict, float64) {
	if len(sources) == 0 {
		return model.VerdictUnclear, 0.0
	}

	var simSum float64
	maxEntailment := 0.0
	for _, s := range sources {
		simSum += s.Similarity
		if s.EntailmentScore != nil && *s.EntailmentScore > maxEntailment {
			maxEntailment = *s.EntailmentScore
		}
	}
	avgSimilarity := simSum / float64(len(sources))

	confidence := entailmentWeight*maxEntailment + similarityWeight*avgSimilarity
	if confidence < 0 {
		confidence = 0
	}
	if confidence > confidenceCeiling {
		confidence = confidenceCeiling
	}

	switch {
	case maxEntailment >= supportEntailment && avgSimilarity >= supportSimilarity:
		return model.VerdictSupported, confidence
	case avgSimilarity < weakSimilarity && maxEntailment < weakEntailment:
		return model.VerdictContradicted, confidence
	default:
		return model.VerdictUnclear, confidence
	}
}
