package service

import (
	"github.com/arbiterhq/arbiter/internal/config"
	"github.com/arbiterhq/arbiter/internal/domain/decision"
)

// Gate decides whether a decision needs human review before the
// recommendation is applied. It is pure: configuration in, verdict out.
type Gate struct {
	cfg config.Checkpoint
}

// NewGate creates a Gate from checkpoint configuration.
func NewGate(cfg config.Checkpoint) *Gate {
	return &Gate{cfg: cfg}
}

// ShouldTrigger reports whether a decision of the given type at the given
// confidence requires human review. When checkpoints are globally disabled
// it always reports false: every decision point keeps working by applying
// its own recommendation.
func (g *Gate) ShouldTrigger(confidence float64, t decision.Type) bool {
	if !g.cfg.Enabled {
		return false
	}
	return confidence < g.Threshold(t)
}

// Threshold returns the review threshold in force for the given type:
// the per-type override when present, the global default otherwise.
func (g *Gate) Threshold(t decision.Type) float64 {
	if v, ok := g.cfg.TypeThresholds[string(t)]; ok {
		return v
	}
	return g.cfg.DefaultThreshold
}

// Enabled reports whether the checkpoint mechanism is globally enabled.
func (g *Gate) Enabled() bool {
	return g.cfg.Enabled
}

// MaxOptions returns the per-checkpoint option cap.
func (g *Gate) MaxOptions() int {
	return g.cfg.MaxOptions
}
