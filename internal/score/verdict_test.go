package score

import (
	"math"
	"testing"

	"github.com/akraskov/veridict/internal/model"
)

func floatPtr(f float64) *float64 { return &f }

func TestAggregate_NoSources(t *testing.T) {
	verdict, confidence := Aggregate(nil)

	if verdict != model.VerdictUnclear {
		t.Errorf("verdict = %v, want Unclear", verdict)
	}
	if confidence != 0.0 {
		t.Errorf("confidence = %v, want 0.0", confidence)
	}
}

func TestAggregate_Supported(t *testing.T) {
	sources := []model.VerificationSource{
		{Similarity: 0.8, EntailmentScore: floatPtr(0.9)},
		{Similarity: 0.6, EntailmentScore: floatPtr(0.5)},
	}

	verdict, confidence := Aggregate(sources)

	if verdict != model.VerdictSupported {
		t.Errorf("verdict = %v, want Supported", verdict)
	}

	want := 0.7*0.9 + 0.3*0.7
	if math.Abs(confidence-want) > 1e-9 {
		t.Errorf("confidence = %v, want %v", confidence, want)
	}
}

func TestAggregate_Contradicted(t *testing.T) {
	sources := []model.VerificationSource{
		{Similarity: 0.1, EntailmentScore: floatPtr(0.2)},
		{Similarity: 0.15, EntailmentScore: floatPtr(0.1)},
	}

	verdict, _ := Aggregate(sources)

	if verdict != model.VerdictContradicted {
		t.Errorf("verdict = %v, want Contradicted", verdict)
	}
}

func TestAggregate_Unclear(t *testing.T) {
	tests := []struct {
		name    string
		sources []model.VerificationSource
	}{
		{
			name: "high entailment but low similarity",
			sources: []model.VerificationSource{
				{Similarity: 0.25, EntailmentScore: floatPtr(0.9)},
			},
		},
		{
			name: "high similarity but low entailment",
			sources: []model.VerificationSource{
				{Similarity: 0.8, EntailmentScore: floatPtr(0.3)},
			},
		},
		{
			name: "middling everything",
			sources: []model.VerificationSource{
				{Similarity: 0.4, EntailmentScore: floatPtr(0.5)},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if verdict, _ := Aggregate(tt.sources); verdict != model.VerdictUnclear {
				t.Errorf("verdict = %v, want Unclear", verdict)
			}
		})
	}
}

func TestAggregate_NilEntailmentTreatedAsZero(t *testing.T) {
	// No entailment scores at all: max entailment stays 0.0, so high
	// similarity alone can never produce Supported.
	sources := []model.VerificationSource{
		{Similarity: 0.9},
		{Similarity: 0.8},
	}

	verdict, confidence := Aggregate(sources)

	if verdict != model.VerdictUnclear {
		t.Errorf("verdict = %v, want Unclear without entailment", verdict)
	}

	want := 0.3 * 0.85
	if math.Abs(confidence-want) > 1e-9 {
		t.Errorf("confidence = %v, want %v", confidence, want)
	}
}

func TestAggregate_ConfidenceCeiling(t *testing.T) {
	sources := []model.VerificationSource{
		{Similarity: 1.0, EntailmentScore: floatPtr(1.0)},
	}

	_, confidence := Aggregate(sources)

	if confidence != 0.98 {
		t.Errorf("confidence = %v, want ceiling 0.98", confidence)
	}
}

func TestAggregate_ConfidenceNeverNegative(t *testing.T) {
	sources := []model.VerificationSource{
		{Similarity: -0.5},
	}

	_, confidence := Aggregate(sources)

	if confidence < 0 {
		t.Errorf("confidence = %v, want >= 0", confidence)
	}
}

func TestAggregate_EntailmentBoundary(t *testing.T) {
	// At a fixed similarity of 0.35, raising the best entailment score
	// across 0.65 flips Unclear to Supported, never to Contradicted,
	// and confidence never decreases along the way.
	entailments := []float64{0.3, 0.5, 0.64, 0.65, 0.66, 0.9}

	prevConfidence := -1.0
	for _, e := range entailments {
		sources := []model.VerificationSource{
			{Similarity: 0.35, EntailmentScore: floatPtr(e)},
		}
		verdict, confidence := Aggregate(sources)

		want := model.VerdictUnclear
		if e >= 0.65 {
			want = model.VerdictSupported
		}
		if verdict != want {
			t.Errorf("entailment %v: verdict = %v, want %v", e, verdict, want)
		}
		if confidence < prevConfidence {
			t.Errorf("entailment %v: confidence %v fell below %v", e, confidence, prevConfidence)
		}
		prevConfidence = confidence
	}
}

func TestAggregate_MoreEvidenceRaisesConfidence(t *testing.T) {
	weak := []model.VerificationSource{
		{Similarity: 0.4, EntailmentScore: floatPtr(0.5)},
	}
	strong := []model.VerificationSource{
		{Similarity: 0.8, EntailmentScore: floatPtr(0.9)},
	}

	_, weakConf := Aggregate(weak)
	_, strongConf := Aggregate(strong)

	if strongConf <= weakConf {
		t.Errorf("stronger evidence should raise confidence: %v <= %v", strongConf, weakConf)
	}
}
