package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arbiterhq/arbiter/internal/adapter/otel"
	"github.com/arbiterhq/arbiter/internal/adapter/ws"
	"github.com/arbiterhq/arbiter/internal/domain"
	"github.com/arbiterhq/arbiter/internal/domain/decision"
	"github.com/arbiterhq/arbiter/internal/port/broadcast"
)

// CheckpointService owns the set of decision checkpoints and the one-shot
// completion protocol between the agent path (Create, then Wait) and the
// operator path (Resolve or Cancel). All state transitions happen under a
// single lock, so exactly one completion call ever succeeds per checkpoint.
type CheckpointService struct {
	gate        *Gate
	calibration *CalibrationService
	hub         broadcast.Broadcaster // optional
	metrics     *otel.Metrics         // optional

	mu      sync.Mutex
	entries map[string]*checkpointEntry

	created          int
	autoCompleted    int
	resolvedCount    int
	cancelledCount   int
	acceptedResolved int
	byType           map[decision.Type]int
}

// checkpointEntry pairs a checkpoint with the channel its creator waits on.
// done is buffered with capacity 1; the single successful completion sends
// the chosen option and the suspended creator receives it.
type checkpointEntry struct {
	cp   decision.Checkpoint
	done chan decision.Option
}

// NewCheckpointService creates a CheckpointService. hub and metrics may be
// nil; events and instruments are then skipped.
func NewCheckpointService(gate *Gate, calibration *CalibrationService, hub broadcast.Broadcaster, metrics *otel.Metrics) *CheckpointService {
	return &CheckpointService{
		gate:        gate,
		calibration: calibration,
		hub:         hub,
		metrics:     metrics,
		entries:     make(map[string]*checkpointEntry),
		byType:      make(map[decision.Type]int),
	}
}

// Handle is what a decision point suspends on after Create. For the
// auto-pilot path Wait returns immediately with the recommendation; for the
// review path it blocks until an operator resolves or cancels the checkpoint.
type Handle struct {
	// Checkpoint is a snapshot at creation time. On the auto-pilot path its
	// status is already resolved.
	Checkpoint decision.Checkpoint

	auto   bool
	chosen decision.Option
	done   <-chan decision.Option
}

// AutoCompleted reports whether the gate skipped human review.
func (h *Handle) AutoCompleted() bool {
	return h.auto
}

// Wait blocks until the checkpoint is completed or ctx is cancelled.
// Cancelling ctx abandons the wait only: the checkpoint stays waiting and
// remains resolvable by an operator. Wait must be called at most once.
func (h *Handle) Wait(ctx context.Context) (decision.Option, error) {
	if h.auto {
		return h.chosen, nil
	}
	select {
	case opt := <-h.done:
		return opt, nil
	case <-ctx.Done():
		return decision.Option{}, ctx.Err()
	}
}

// Create validates the request and either auto-completes it (confidence at
// or above the gate threshold, or checkpoints disabled) or registers a
// waiting checkpoint. Validation failures happen before any state is
// mutated: a malformed checkpoint never exists, even transiently.
func (s *CheckpointService) Create(ctx context.Context, req *decision.CreateRequest) (*Handle, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if max := s.gate.MaxOptions(); max > 0 && len(req.Options) > max {
		return nil, fmt.Errorf("too many options: %d exceeds the cap of %d: %w", len(req.Options), max, domain.ErrValidation)
	}

	confidence := decision.ClampUnit(req.Confidence)
	now := time.Now()

	cp := decision.Checkpoint{
		ID:               uuid.New().String(),
		Type:             req.Type,
		Title:            req.Title,
		Description:      req.Description,
		Options:          req.Options,
		RecommendationID: req.RecommendationID,
		Confidence:       confidence,
		ConvID:           req.ConvID,
		TraceID:          req.TraceID,
		CreatedAt:        now,
	}

	if !s.gate.ShouldTrigger(confidence, req.Type) {
		// Auto-pilot path: complete with the recommendation immediately.
		// Nothing is registered, so the waiting set never sees it.
		chosen, _ := cp.Option(req.RecommendationID)
		cp.Status = decision.StatusResolved
		cp.ChosenID = req.RecommendationID
		completed := now
		cp.CompletedAt = &completed

		s.mu.Lock()
		s.autoCompleted++
		s.mu.Unlock()

		if s.metrics != nil {
			s.metrics.AutoCompleted.Add(ctx, 1)
		}
		slog.Debug("checkpoint auto-completed",
			"type", req.Type,
			"confidence", confidence,
			"recommendation", req.RecommendationID,
		)
		return &Handle{Checkpoint: cp, auto: true, chosen: chosen}, nil
	}

	cp.Status = decision.StatusWaiting
	entry := &checkpointEntry{
		cp:   cp,
		done: make(chan decision.Option, 1),
	}

	s.mu.Lock()
	s.entries[cp.ID] = entry
	s.created++
	s.byType[cp.Type]++
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.Created.Add(ctx, 1)
	}
	s.broadcastEvent(ctx, ws.EventCheckpointCreated, ws.CheckpointCreatedEvent{Checkpoint: cp})
	slog.Info("checkpoint waiting for review",
		"checkpoint_id", cp.ID,
		"type", cp.Type,
		"confidence", confidence,
		"options", len(cp.Options),
		"conv_id", cp.ConvID,
	)

	return &Handle{Checkpoint: cp, done: entry.done}, nil
}

// Resolve completes a waiting checkpoint with the operator's choice and
// releases the suspended creator. It fails without any state change when
// the id is unknown, the checkpoint is already terminal, or the chosen id
// is not among the options.
func (s *CheckpointService) Resolve(ctx context.Context, id, chosenID, reasoning string) (decision.Checkpoint, error) {
	s.mu.Lock()
	entry, ok := s.entries[id]
	if !ok {
		s.mu.Unlock()
		return decision.Checkpoint{}, fmt.Errorf("checkpoint %s: %w", id, domain.ErrNotFound)
	}
	if entry.cp.Terminal() {
		s.mu.Unlock()
		return decision.Checkpoint{}, fmt.Errorf("checkpoint %s: %w", id, domain.ErrTerminal)
	}
	chosen, ok := entry.cp.Option(chosenID)
	if !ok {
		s.mu.Unlock()
		return decision.Checkpoint{}, fmt.Errorf("checkpoint %s, option %q: %w", id, chosenID, domain.ErrInvalidOption)
	}

	s.complete(entry, decision.StatusResolved, chosen, reasoning)
	s.resolvedCount++
	if chosenID == entry.cp.RecommendationID {
		s.acceptedResolved++
	}
	cp := entry.cp
	s.mu.Unlock()

	s.finishCheckpoint(ctx, cp, ws.EventCheckpointResolved)
	return cp, nil
}

// Cancel completes a waiting checkpoint with the system's own
// recommendation as the fallback choice. The outcome is still recorded for
// calibration: the human not actively choosing is a fact worth keeping,
// not one to suppress.
func (s *CheckpointService) Cancel(ctx context.Context, id string) (decision.Checkpoint, error) {
	s.mu.Lock()
	entry, ok := s.entries[id]
	if !ok {
		s.mu.Unlock()
		return decision.Checkpoint{}, fmt.Errorf("checkpoint %s: %w", id, domain.ErrNotFound)
	}
	if entry.cp.Terminal() {
		s.mu.Unlock()
		return decision.Checkpoint{}, fmt.Errorf("checkpoint %s: %w", id, domain.ErrTerminal)
	}

	chosen, _ := entry.cp.Option(entry.cp.RecommendationID)
	s.complete(entry, decision.StatusCancelled, chosen, "")
	s.cancelledCount++
	cp := entry.cp
	s.mu.Unlock()

	s.finishCheckpoint(ctx, cp, ws.EventCheckpointCancelled)
	return cp, nil
}

// complete applies the terminal transition and releases the creator.
// Callers must hold s.mu; the Terminal check has already passed, so the
// buffered send can never block.
func (s *CheckpointService) complete(entry *checkpointEntry, status decision.Status, chosen decision.Option, reasoning string) {
	now := time.Now()
	entry.cp.Status = status
	entry.cp.ChosenID = chosen.ID
	entry.cp.Reasoning = reasoning
	entry.cp.CompletedAt = &now
	entry.done <- chosen
}

// finishCheckpoint emits the calibration record, event, and metrics for a
// completed checkpoint. Called outside the lock.
func (s *CheckpointService) finishCheckpoint(ctx context.Context, cp decision.Checkpoint, eventType string) {
	if s.calibration != nil {
		s.calibration.Record(decision.Record{
			Type:          cp.Type,
			Confidence:    cp.Confidence,
			RecommendedID: cp.RecommendationID,
			ChosenID:      cp.ChosenID,
			ConvID:        cp.ConvID,
			TraceID:       cp.TraceID,
			Timestamp:     *cp.CompletedAt,
		})
	}

	s.broadcastEvent(ctx, eventType, ws.CheckpointCompletedEvent{
		ID:       cp.ID,
		Type:     string(cp.Type),
		Status:   string(cp.Status),
		ChosenID: cp.ChosenID,
		Accepted: cp.ChosenID == cp.RecommendationID,
		ConvID:   cp.ConvID,
	})

	if s.metrics != nil {
		switch cp.Status {
		case decision.StatusResolved:
			s.metrics.Resolved.Add(ctx, 1)
		case decision.StatusCancelled:
			s.metrics.Cancelled.Add(ctx, 1)
		}
		s.metrics.WaitDuration.Record(ctx, cp.CompletedAt.Sub(cp.CreatedAt).Seconds())
	}

	slog.Info("checkpoint completed",
		"checkpoint_id", cp.ID,
		"status", cp.Status,
		"chosen", cp.ChosenID,
		"accepted", cp.ChosenID == cp.RecommendationID,
	)
}

func (s *CheckpointService) broadcastEvent(ctx context.Context, eventType string, payload any) {
	if s.hub != nil {
		s.hub.BroadcastEvent(ctx, eventType, payload)
	}
}

// Get returns a snapshot of the checkpoint with the given id.
func (s *CheckpointService) Get(id string) (decision.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok {
		return decision.Checkpoint{}, fmt.Errorf("checkpoint %s: %w", id, domain.ErrNotFound)
	}
	return entry.cp, nil
}

// ListWaiting returns a snapshot of the waiting checkpoints matching the
// filter, oldest first.
func (s *CheckpointService) ListWaiting(filter decision.Filter) []decision.Checkpoint {
	s.mu.Lock()
	out := make([]decision.Checkpoint, 0)
	for _, entry := range s.entries {
		if entry.cp.Status != decision.StatusWaiting {
			continue
		}
		if !filter.Matches(&entry.cp) {
			continue
		}
		out = append(out, entry.cp)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Stats summarizes registry activity. ByType counts checkpoints that were
// registered for review; auto-completions are tracked separately.
func (s *CheckpointService) Stats() decision.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	byType := make(map[decision.Type]int, len(s.byType))
	for t, n := range s.byType {
		byType[t] = n
	}

	waiting := 0
	for _, entry := range s.entries {
		if entry.cp.Status == decision.StatusWaiting {
			waiting++
		}
	}

	var acceptance float64
	if s.resolvedCount > 0 {
		acceptance = float64(s.acceptedResolved) / float64(s.resolvedCount)
	}

	return decision.Stats{
		Created:                      s.created,
		AutoCompleted:                s.autoCompleted,
		Resolved:                     s.resolvedCount,
		Cancelled:                    s.cancelledCount,
		Waiting:                      waiting,
		ByType:                       byType,
		RecommendationAcceptanceRate: acceptance,
	}
}

// Sweep removes terminal checkpoints completed more than maxAge ago and
// returns how many were evicted. Waiting checkpoints are never touched:
// every created checkpoint stays visible until an operator completes it.
func (s *CheckpointService) Sweep(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, entry := range s.entries {
		if entry.cp.Status == decision.StatusWaiting {
			continue
		}
		if entry.cp.CompletedAt != nil && entry.cp.CompletedAt.Before(cutoff) {
			delete(s.entries, id)
			evicted++
		}
	}
	if evicted > 0 {
		slog.Info("swept terminal checkpoints", "evicted", evicted, "max_age", maxAge)
	}
	return evicted
}
