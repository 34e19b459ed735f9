package service

import (
	"math"
	"testing"

	"github.com/arbiterhq/arbiter/internal/domain/decision"
)

func f(v float64) *float64 { return &v }

func TestScorerWeightsSumToOne(t *testing.T) {
	for typ, w := range weightsByType {
		sum := w.optionClarity + w.historicalSuccess + w.riskAlignment + w.effortCertainty + w.contextCompleteness
		if math.Abs(sum-1) > 1e-9 {
			t.Errorf("%s weights sum to %v, want 1", typ, sum)
		}
	}
}

func TestScorerNeutralDefaults(t *testing.T) {
	s := NewScorer()

	// All factors omitted: every weight applies to 0.5, so the score is
	// 0.5 regardless of the weight vector.
	for _, typ := range decision.Types() {
		got := s.Score(typ, decision.ConfidenceFactors{})
		if math.Abs(got.Value-0.5) > 1e-9 {
			t.Errorf("%s: expected neutral score 0.5, got %v", typ, got.Value)
		}
		if len(got.Strengths) != 0 || len(got.Weaknesses) != 0 {
			t.Errorf("%s: neutral factors should produce no labels, got %+v / %+v", typ, got.Strengths, got.Weaknesses)
		}
	}
}

func TestScorerWeightedCombination(t *testing.T) {
	s := NewScorer()

	factors := decision.ConfidenceFactors{
		OptionClarity:       f(0.9),
		HistoricalSuccess:   f(0.8),
		RiskAlignment:       f(0.3),
		EffortCertainty:     f(0.6),
		ContextCompleteness: f(0.7),
	}

	got := s.Score(decision.TypeExecution, factors)
	want := 0.9*0.15 + 0.8*0.20 + 0.3*0.40 + 0.6*0.10 + 0.7*0.15
	if math.Abs(got.Value-want) > 1e-9 {
		t.Errorf("execution score = %v, want %v", got.Value, want)
	}
}

func TestScorerStrengthsAndWeaknesses(t *testing.T) {
	s := NewScorer()

	got := s.Score(decision.TypePlan, decision.ConfidenceFactors{
		OptionClarity:     f(0.75), // at the bar: strength
		HistoricalSuccess: f(0.35), // at the bar: weakness
		RiskAlignment:     f(0.5),
	})

	if len(got.Strengths) != 1 || got.Strengths[0] != "option_clarity" {
		t.Errorf("strengths = %v, want [option_clarity]", got.Strengths)
	}
	if len(got.Weaknesses) != 1 || got.Weaknesses[0] != "historical_success" {
		t.Errorf("weaknesses = %v, want [historical_success]", got.Weaknesses)
	}
}

func TestScorerUnknownTypeFallsBackToUniform(t *testing.T) {
	s := NewScorer()

	got := s.Score(decision.Type("novel"), decision.ConfidenceFactors{
		OptionClarity: f(1.0),
	})
	// 1.0*0.2 + four neutral factors at 0.5*0.2 each.
	want := 0.2 + 4*0.1
	if math.Abs(got.Value-want) > 1e-9 {
		t.Errorf("uniform score = %v, want %v", got.Value, want)
	}
}
