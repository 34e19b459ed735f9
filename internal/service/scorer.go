package service

import (
	"github.com/arbiterhq/arbiter/internal/domain/decision"
)

// factorWeights is a per-type weighting over the five confidence factors.
// Each vector sums to 1 so the combined score stays in [0,1].
type factorWeights struct {
	optionClarity       float64
	historicalSuccess   float64
	riskAlignment       float64
	effortCertainty     float64
	contextCompleteness float64
}

// weightsByType encodes how costly a wrong auto-decision is per type:
// execution leans on riskAlignment (executing is hard to undo), plan leans
// on contextCompleteness (missing context is the dominant failure mode for
// plans), strategy and parameter sit in between.
var weightsByType = map[decision.Type]factorWeights{
	decision.TypePlan:      {optionClarity: 0.20, historicalSuccess: 0.15, riskAlignment: 0.15, effortCertainty: 0.10, contextCompleteness: 0.40},
	decision.TypeStrategy:  {optionClarity: 0.25, historicalSuccess: 0.20, riskAlignment: 0.20, effortCertainty: 0.10, contextCompleteness: 0.25},
	decision.TypeParameter: {optionClarity: 0.25, historicalSuccess: 0.25, riskAlignment: 0.15, effortCertainty: 0.15, contextCompleteness: 0.20},
	decision.TypeExecution: {optionClarity: 0.15, historicalSuccess: 0.20, riskAlignment: 0.40, effortCertainty: 0.10, contextCompleteness: 0.15},
}

// uniformWeights is the fallback for unrecognized types.
var uniformWeights = factorWeights{0.2, 0.2, 0.2, 0.2, 0.2}

const (
	strengthBar = 0.75
	weaknessBar = 0.35
)

// Scorer combines decision factors into a single confidence score plus
// qualitative strengths and weaknesses. It is a pure function of its
// inputs: no shared state, deterministic, safe for offline simulations.
type Scorer struct{}

// NewScorer creates a Scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score resolves the factors (clamping, neutral defaults), applies the
// type's weight vector, and surfaces strong (>= 0.75) and weak (<= 0.35)
// factors as advisory labels. The labels never feed the numeric score.
func (s *Scorer) Score(t decision.Type, factors decision.ConfidenceFactors) decision.Score {
	resolved := factors.Resolved()

	w, ok := weightsByType[t]
	if !ok {
		w = uniformWeights
	}

	weighted := []struct {
		name   string
		value  float64
		weight float64
	}{
		{"option_clarity", resolved.OptionClarity, w.optionClarity},
		{"historical_success", resolved.HistoricalSuccess, w.historicalSuccess},
		{"risk_alignment", resolved.RiskAlignment, w.riskAlignment},
		{"effort_certainty", resolved.EffortCertainty, w.effortCertainty},
		{"context_completeness", resolved.ContextCompleteness, w.contextCompleteness},
	}

	var score float64
	var strengths, weaknesses []string
	for _, f := range weighted {
		score += f.value * f.weight
		if f.value >= strengthBar {
			strengths = append(strengths, f.name)
		} else if f.value <= weaknessBar {
			weaknesses = append(weaknesses, f.name)
		}
	}

	return decision.Score{
		Value:      decision.ClampUnit(score),
		Factors:    resolved,
		Strengths:  strengths,
		Weaknesses: weaknesses,
	}
}
