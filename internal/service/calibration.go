package service

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	"github.com/arbiterhq/arbiter/internal/config"
	"github.com/arbiterhq/arbiter/internal/domain/decision"
)

// calibrationBins are the fixed confidence ranges of the calibration table.
var calibrationBins = []struct {
	low, high float64
}{
	{0.0, 0.2},
	{0.2, 0.4},
	{0.4, 0.6},
	{0.6, 0.8},
	{0.8, 1.0},
}

// thresholdStep is the per-suggestion threshold move; suggestions are
// clamped into [minThreshold, maxThreshold] so repeated application
// converges instead of oscillating.
const (
	thresholdStep = 0.05
	minThreshold  = 0.10
	maxThreshold  = 0.95
)

// Acceptance-rate bands driving threshold suggestions.
const (
	acceptanceHighBand = 0.9
	acceptanceLowBand  = 0.6
)

// eceCaveatBar is the ECE above which suggestions carry a poor-calibration caveat.
const eceCaveatBar = 0.15

// CalibrationService keeps a bounded ring of decision outcomes and derives
// threshold-tuning statistics from it. Recent behavior matters more than
// ancient behavior, so insertion beyond capacity evicts the oldest record.
type CalibrationService struct {
	mu   sync.Mutex
	buf  []decision.Record
	next int
	full bool

	minSamples int
	gate       *Gate
}

// NewCalibrationService creates a CalibrationService with the configured
// history capacity and minimum sample gate.
func NewCalibrationService(cfg config.Calibration, gate *Gate) *CalibrationService {
	size := cfg.HistorySize
	if size < 1 {
		size = 1
	}
	minSamples := cfg.MinSamples
	if minSamples < 1 {
		minSamples = 1
	}
	return &CalibrationService{
		buf:        make([]decision.Record, size),
		minSamples: minSamples,
		gate:       gate,
	}
}

// Record appends one outcome. Accepted is derived from the ids; a zero
// Timestamp is stamped with the current time.
func (s *CalibrationService) Record(rec decision.Record) {
	rec.Accepted = rec.ChosenID == rec.RecommendedID
	rec.Confidence = decision.ClampUnit(rec.Confidence)
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	s.mu.Lock()
	s.buf[s.next] = rec
	s.next++
	if s.next == len(s.buf) {
		s.next = 0
		s.full = true
	}
	s.mu.Unlock()
}

// Size returns the number of records currently held.
func (s *CalibrationService) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.full {
		return len(s.buf)
	}
	return s.next
}

// Clear empties the history. Administrative and test use only.
func (s *CalibrationService) Clear() {
	s.mu.Lock()
	s.next = 0
	s.full = false
	s.mu.Unlock()
}

// snapshot returns the held records in insertion order, optionally filtered
// by decision type (empty type means all).
func (s *CalibrationService) snapshot(t decision.Type) []decision.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ordered []decision.Record
	if s.full {
		ordered = make([]decision.Record, 0, len(s.buf))
		ordered = append(ordered, s.buf[s.next:]...)
		ordered = append(ordered, s.buf[:s.next]...)
	} else {
		ordered = append(ordered, s.buf[:s.next]...)
	}

	if t == "" {
		return ordered
	}
	filtered := ordered[:0]
	for _, rec := range ordered {
		if rec.Type == t {
			filtered = append(filtered, rec)
		}
	}
	return filtered
}

// Stats computes the calibration report over the (optionally type-filtered)
// history: overall acceptance rate, the per-bin calibration table, and the
// Expected Calibration Error. Below the minimum sample count it reports
// insufficient data instead of a computed-but-meaningless number.
func (s *CalibrationService) Stats(t decision.Type) decision.CalibrationReport {
	recs := s.snapshot(t)
	if len(recs) < s.minSamples {
		return decision.CalibrationReport{
			Sufficient: false,
			Message:    fmt.Sprintf("need at least %d samples, have %d", s.minSamples, len(recs)),
			SampleSize: len(recs),
		}
	}

	acceptanceRate, _ := stats.Mean(acceptedValues(recs))

	bins, ece := calibrationTable(recs)

	return decision.CalibrationReport{
		Sufficient:               true,
		SampleSize:               len(recs),
		AcceptanceRate:           acceptanceRate,
		Calibration:              bins,
		ExpectedCalibrationError: ece,
		Recommendation:           calibrationVerdict(ece, recs, acceptanceRate),
	}
}

// calibrationTable partitions records into the fixed confidence bins and
// computes the population-weighted Expected Calibration Error: the weighted
// mean, over non-empty bins, of |avg confidence - avg acceptance|.
func calibrationTable(recs []decision.Record) ([]decision.BinStat, float64) {
	out := make([]decision.BinStat, 0, len(calibrationBins))
	var gaps, weights []float64

	for i, b := range calibrationBins {
		var confs, actuals []float64
		for _, rec := range recs {
			if !inBin(rec.Confidence, b.low, b.high, i == len(calibrationBins)-1) {
				continue
			}
			confs = append(confs, rec.Confidence)
			if rec.Accepted {
				actuals = append(actuals, 1)
			} else {
				actuals = append(actuals, 0)
			}
		}

		bin := decision.BinStat{
			Range:   fmt.Sprintf("%.2f-%.2f", b.low, b.high),
			Low:     b.low,
			High:    b.high,
			Samples: len(confs),
		}
		if len(confs) > 0 {
			bin.AvgConfidence, _ = stats.Mean(confs)
			bin.AvgActual, _ = stats.Mean(actuals)
			gaps = append(gaps, math.Abs(bin.AvgConfidence-bin.AvgActual))
			weights = append(weights, float64(len(confs)))
		}
		out = append(out, bin)
	}

	var ece float64
	if len(gaps) > 0 {
		ece = stat.Mean(gaps, weights)
	}
	return out, ece
}

// inBin reports whether v falls into [low, high), with the final bin
// closed on the right so 1.0 is not orphaned.
func inBin(v, low, high float64, last bool) bool {
	if last {
		return v >= low && v <= high
	}
	return v >= low && v < high
}

// calibrationVerdict renders the qualitative recommendation text shown
// alongside the numbers.
func calibrationVerdict(ece float64, recs []decision.Record, acceptanceRate float64) string {
	avgConf, _ := stats.Mean(confidenceValues(recs))

	var quality string
	switch {
	case ece <= 0.1:
		quality = fmt.Sprintf("confidence is well calibrated (ECE %.2f); the score is a trustworthy acceptance probability", ece)
	case ece <= 0.2:
		quality = fmt.Sprintf("confidence is moderately calibrated (ECE %.2f); treat the score as a rough guide", ece)
	default:
		quality = fmt.Sprintf("confidence is poorly calibrated (ECE %.2f); the score diverges badly from observed acceptance", ece)
	}

	switch {
	case avgConf-acceptanceRate > 0.1:
		return quality + " — scores overstate how often operators actually agree"
	case acceptanceRate-avgConf > 0.1:
		return quality + " — scores understate how often operators actually agree"
	}
	return quality
}

// SuggestAdjustment proposes a per-type threshold change from the type's
// outcome history: raise when acceptance is materially high (> 90%), lower
// when materially low (< 60%), hold in the balanced band between. Poor
// calibration is flagged as a caveat without overriding the suggestion.
func (s *CalibrationService) SuggestAdjustment(t decision.Type) decision.Adjustment {
	recs := s.snapshot(t)
	if len(recs) < s.minSamples {
		return decision.Adjustment{
			Sufficient: false,
			Type:       t,
			Reasoning:  fmt.Sprintf("need at least %d samples for type %q, have %d", s.minSamples, t, len(recs)),
		}
	}

	acceptanceRate, _ := stats.Mean(acceptedValues(recs))
	current := s.gate.Threshold(t)

	var suggested float64
	var reasoning string
	switch {
	case acceptanceRate > acceptanceHighBand:
		suggested = clampThreshold(current + thresholdStep)
		reasoning = fmt.Sprintf("acceptance rate %.0f%% exceeds %.0f%%: recommendations are almost always accepted, raise the threshold",
			acceptanceRate*100, acceptanceHighBand*100)
	case acceptanceRate < acceptanceLowBand:
		suggested = clampThreshold(current - thresholdStep)
		reasoning = fmt.Sprintf("acceptance rate %.0f%% is below %.0f%%: recommendations are too often rejected, lower the threshold and ask more often",
			acceptanceRate*100, acceptanceLowBand*100)
	default:
		suggested = current
		reasoning = fmt.Sprintf("acceptance rate %.0f%% is balanced; no threshold change recommended", acceptanceRate*100)
	}

	_, ece := calibrationTable(recs)
	if ece > eceCaveatBar {
		reasoning += fmt.Sprintf("; caveat: calibration is poor (ECE %.2f), the confidence score itself is unreliable", ece)
	}

	return decision.Adjustment{
		Sufficient:         true,
		Type:               t,
		CurrentThreshold:   current,
		SuggestedThreshold: suggested,
		Change:             suggested - current,
		Reasoning:          reasoning,
	}
}

func clampThreshold(v float64) float64 {
	switch {
	case v < minThreshold:
		return minThreshold
	case v > maxThreshold:
		return maxThreshold
	}
	return v
}

func acceptedValues(recs []decision.Record) []float64 {
	out := make([]float64, len(recs))
	for i, rec := range recs {
		if rec.Accepted {
			out[i] = 1
		}
	}
	return out
}

func confidenceValues(recs []decision.Record) []float64 {
	out := make([]float64, len(recs))
	for i, rec := range recs {
		out[i] = rec.Confidence
	}
	return out
}
