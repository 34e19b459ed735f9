package decision

import "time"

// Record is one immutable calibration fact: the confidence in force when a
// checkpoint completed, what was recommended, and what the operator chose.
type Record struct {
	Type          Type      `json:"type"`
	Confidence    float64   `json:"confidence"`
	RecommendedID string    `json:"recommended_id"`
	ChosenID      string    `json:"chosen_id"`
	Accepted      bool      `json:"accepted"`
	ConvID        string    `json:"conv_id,omitempty"`
	TraceID       string    `json:"trace_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// BinStat is one confidence bin of the calibration table.
type BinStat struct {
	Range         string  `json:"range"` // e.g. "0.60-0.80"
	Low           float64 `json:"low"`
	High          float64 `json:"high"`
	Samples       int     `json:"samples"`
	AvgConfidence float64 `json:"avg_confidence"`
	AvgActual     float64 `json:"avg_actual"`
}

// CalibrationReport is the analyzer output. When Sufficient is false only
// Message is meaningful — statistics are never computed on too little data.
type CalibrationReport struct {
	Sufficient               bool      `json:"sufficient"`
	Message                  string    `json:"message,omitempty"`
	SampleSize               int       `json:"sample_size,omitempty"`
	AcceptanceRate           float64   `json:"acceptance_rate,omitempty"`
	Calibration              []BinStat `json:"calibration,omitempty"`
	ExpectedCalibrationError float64   `json:"expected_calibration_error,omitempty"`
	Recommendation           string    `json:"recommendation,omitempty"`
}

// Adjustment is a proposed change to a per-type review threshold.
type Adjustment struct {
	Sufficient         bool    `json:"sufficient"`
	Type               Type    `json:"type"`
	CurrentThreshold   float64 `json:"current_threshold,omitempty"`
	SuggestedThreshold float64 `json:"suggested_threshold,omitempty"`
	Change             float64 `json:"change,omitempty"`
	Reasoning          string  `json:"reasoning,omitempty"`
}
