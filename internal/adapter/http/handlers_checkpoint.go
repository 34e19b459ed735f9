package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/arbiterhq/arbiter/internal/adapter/otel"
	"github.com/arbiterhq/arbiter/internal/domain/decision"
	"github.com/arbiterhq/arbiter/internal/logger"
)

// createCheckpointRequest is the agent-side payload. The caller either
// supplies a precomputed confidence or the raw factors; when factors are
// present the scorer computes the confidence server-side.
type createCheckpointRequest struct {
	decision.CreateRequest
	Factors *decision.ConfidenceFactors `json:"factors,omitempty"`
}

// decisionResponse is what the suspended agent receives once the decision
// is made (immediately, on the auto-pilot path).
type decisionResponse struct {
	Checkpoint    decision.Checkpoint `json:"checkpoint"`
	Chosen        decision.Option     `json:"chosen"`
	AutoCompleted bool                `json:"auto_completed"`
	Score         *decision.Score     `json:"score,omitempty"`
}

// CreateCheckpoint registers a decision point and suspends the request
// until the decision is made. Closing the request abandons the wait only;
// the checkpoint stays waiting and resolvable.
func (h *Handlers) CreateCheckpoint(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[createCheckpointRequest](w, r, h.bodyLimit())
	if !ok {
		return
	}

	var score *decision.Score
	if req.Factors != nil {
		s := h.Scorer.Score(req.Type, *req.Factors)
		req.Confidence = s.Value
		score = &s
	}
	if req.TraceID == "" {
		req.TraceID = logger.RequestID(r.Context())
	}

	ctx, span := otel.StartCheckpointSpan(r.Context(), string(req.Type), req.ConvID)
	defer span.End()

	handle, err := h.Checkpoints.Create(ctx, &req.CreateRequest)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	chosen, err := handle.Wait(ctx)
	if err != nil {
		// Client went away; the checkpoint remains pending for an operator.
		return
	}

	cp := handle.Checkpoint
	if !handle.AutoCompleted() {
		// Refresh the snapshot to pick up the terminal status and reasoning.
		if final, getErr := h.Checkpoints.Get(cp.ID); getErr == nil {
			cp = final
		}
	}

	writeJSON(w, http.StatusOK, decisionResponse{
		Checkpoint:    cp,
		Chosen:        chosen,
		AutoCompleted: handle.AutoCompleted(),
		Score:         score,
	})
}

// ListCheckpoints returns the waiting checkpoints, filterable by
// conversation id and decision type.
func (h *Handlers) ListCheckpoints(w http.ResponseWriter, r *http.Request) {
	filter := decision.Filter{
		ConvID: r.URL.Query().Get("conv_id"),
		Type:   decision.Type(r.URL.Query().Get("type")),
	}
	if filter.Type != "" && !filter.Type.Valid() {
		writeError(w, http.StatusBadRequest, "unknown decision type "+strconv.Quote(string(filter.Type)))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"checkpoints": h.Checkpoints.ListWaiting(filter),
	})
}

// GetCheckpoint returns the full detail of one checkpoint.
func (h *Handlers) GetCheckpoint(w http.ResponseWriter, r *http.Request) {
	cp, err := h.Checkpoints.Get(urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cp)
}

type resolveRequest struct {
	ChosenID  string `json:"chosen_id"`
	Reasoning string `json:"reasoning,omitempty"`
}

// ResolveCheckpoint completes a waiting checkpoint with the operator's choice.
func (h *Handlers) ResolveCheckpoint(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	req, ok := readJSON[resolveRequest](w, r, h.bodyLimit())
	if !ok {
		return
	}
	if req.ChosenID == "" {
		writeError(w, http.StatusBadRequest, "chosen_id is required")
		return
	}

	ctx, span := otel.StartResolutionSpan(r.Context(), id, "resolve")
	defer span.End()

	cp, err := h.Checkpoints.Resolve(ctx, id, req.ChosenID, req.Reasoning)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cp)
}

// CancelCheckpoint completes a waiting checkpoint with the system's own
// recommendation.
func (h *Handlers) CancelCheckpoint(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")

	ctx, span := otel.StartResolutionSpan(r.Context(), id, "cancel")
	defer span.End()

	cp, err := h.Checkpoints.Cancel(ctx, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cp)
}

// CheckpointStats reports registry counters and the recommendation
// acceptance rate.
func (h *Handlers) CheckpointStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Checkpoints.Stats())
}

type sweepRequest struct {
	MaxAgeMs int64 `json:"max_age_ms"`
}

// SweepCheckpoints evicts terminal checkpoints older than the given age.
func (h *Handlers) SweepCheckpoints(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[sweepRequest](w, r, h.bodyLimit())
	if !ok {
		return
	}
	if req.MaxAgeMs < 0 {
		writeError(w, http.StatusBadRequest, "max_age_ms must not be negative")
		return
	}

	evicted := h.Checkpoints.Sweep(time.Duration(req.MaxAgeMs) * time.Millisecond)
	writeJSON(w, http.StatusOK, map[string]int{"evicted": evicted})
}
