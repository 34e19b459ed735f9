package decision

// ConfidenceFactors are the five independent [0,1] inputs to confidence
// scoring. Nil fields mean the caller could not estimate the factor and
// default to 0.5 — a neutral prior, not "unknown".
type ConfidenceFactors struct {
	OptionClarity       *float64 `json:"option_clarity,omitempty"`
	HistoricalSuccess   *float64 `json:"historical_success,omitempty"`
	RiskAlignment       *float64 `json:"risk_alignment,omitempty"`
	EffortCertainty     *float64 `json:"effort_certainty,omitempty"`
	ContextCompleteness *float64 `json:"context_completeness,omitempty"`
}

// FactorValues are fully-resolved factor inputs after clamping and defaulting.
type FactorValues struct {
	OptionClarity       float64 `json:"option_clarity"`
	HistoricalSuccess   float64 `json:"historical_success"`
	RiskAlignment       float64 `json:"risk_alignment"`
	EffortCertainty     float64 `json:"effort_certainty"`
	ContextCompleteness float64 `json:"context_completeness"`
}

const neutralFactor = 0.5

// Resolved applies the neutral default to omitted factors and clamps
// everything into [0,1].
func (f ConfidenceFactors) Resolved() FactorValues {
	return FactorValues{
		OptionClarity:       resolveFactor(f.OptionClarity),
		HistoricalSuccess:   resolveFactor(f.HistoricalSuccess),
		RiskAlignment:       resolveFactor(f.RiskAlignment),
		EffortCertainty:     resolveFactor(f.EffortCertainty),
		ContextCompleteness: resolveFactor(f.ContextCompleteness),
	}
}

func resolveFactor(v *float64) float64 {
	if v == nil {
		return neutralFactor
	}
	return ClampUnit(*v)
}

// ClampUnit clamps v into [0,1]. Out-of-range inputs are expected from
// upstream heuristics and clamped defensively rather than rejected.
func ClampUnit(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// Score is the scorer output for one recommendation: the combined value,
// the clamped factors that produced it, and advisory strength/weakness
// labels shown to the operator alongside the number.
type Score struct {
	Value      float64      `json:"score"`
	Factors    FactorValues `json:"factors"`
	Strengths  []string     `json:"strengths"`
	Weaknesses []string     `json:"weaknesses"`
}
