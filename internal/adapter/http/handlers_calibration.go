package http

import (
	"net/http"
	"strconv"

	"github.com/arbiterhq/arbiter/internal/domain/decision"
)

// CalibrationStats reports acceptance rate, the per-bin calibration table,
// and the Expected Calibration Error, optionally filtered by decision type.
func (h *Handlers) CalibrationStats(w http.ResponseWriter, r *http.Request) {
	t := decision.Type(r.URL.Query().Get("type"))
	if t != "" && !t.Valid() {
		writeError(w, http.StatusBadRequest, "unknown decision type "+strconv.Quote(string(t)))
		return
	}
	writeJSON(w, http.StatusOK, h.Calibration.Stats(t))
}

// CalibrationSuggestion proposes a threshold adjustment for one decision type.
func (h *Handlers) CalibrationSuggestion(w http.ResponseWriter, r *http.Request) {
	t := decision.Type(r.URL.Query().Get("type"))
	if !t.Valid() {
		writeError(w, http.StatusBadRequest, "a valid decision type is required")
		return
	}
	writeJSON(w, http.StatusOK, h.Calibration.SuggestAdjustment(t))
}

type scoreRequest struct {
	Type    decision.Type              `json:"type"`
	Factors decision.ConfidenceFactors `json:"factors"`
}

// ScoreConfidence exposes the pure scorer so callers can preview a
// confidence score (and its strengths and weaknesses) without creating a
// checkpoint. Useful for offline threshold-tuning simulations.
func (h *Handlers) ScoreConfidence(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[scoreRequest](w, r, h.bodyLimit())
	if !ok {
		return
	}
	if !req.Type.Valid() {
		writeError(w, http.StatusBadRequest, "unknown decision type "+strconv.Quote(string(req.Type)))
		return
	}

	score := h.Scorer.Score(req.Type, req.Factors)
	writeJSON(w, http.StatusOK, map[string]any{
		"score":     score,
		"threshold": h.Gate.Threshold(req.Type),
		"triggers":  h.Gate.ShouldTrigger(score.Value, req.Type),
	})
}
