// Package decision defines the entities for human-in-the-loop decision
// checkpoints: the points where an autonomous agent pauses so an operator
// can approve, override, or let a recommendation proceed.
package decision

import (
	"fmt"
	"time"

	"github.com/arbiterhq/arbiter/internal/domain"
)

// Type categorizes the decision being gated. Each type carries its own
// risk profile, factor weighting, and review threshold.
type Type string

const (
	TypePlan      Type = "plan"
	TypeStrategy  Type = "strategy"
	TypeParameter Type = "parameter"
	TypeExecution Type = "execution"
)

// Types returns all known decision types in a stable order.
func Types() []Type {
	return []Type{TypePlan, TypeStrategy, TypeParameter, TypeExecution}
}

// Valid reports whether t is a known decision type.
func (t Type) Valid() bool {
	switch t {
	case TypePlan, TypeStrategy, TypeParameter, TypeExecution:
		return true
	}
	return false
}

// Status represents the current state of a checkpoint.
// Transitions are monotonic: waiting -> resolved or waiting -> cancelled, never back.
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusResolved  Status = "resolved"
	StatusCancelled Status = "cancelled"
)

// RiskLevel grades the downside of picking an option.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Option is one candidate among which a decision is made.
type Option struct {
	ID              string    `json:"id"`
	Label           string    `json:"label"`
	Description     string    `json:"description,omitempty"`
	Pros            []string  `json:"pros,omitempty"`
	Cons            []string  `json:"cons,omitempty"`
	RiskLevel       RiskLevel `json:"risk_level,omitempty"`
	EstimatedEffort string    `json:"estimated_effort,omitempty"`
	// Confidence is a per-option display hint; it never feeds the gate.
	Confidence *float64 `json:"confidence,omitempty"`
}

// Checkpoint is one pending or completed human-in-the-loop decision.
type Checkpoint struct {
	ID               string     `json:"id"`
	Type             Type       `json:"type"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	Options          []Option   `json:"options"`
	RecommendationID string     `json:"recommendation_id"`
	Confidence       float64    `json:"confidence"`
	Status           Status     `json:"status"`
	ChosenID         string     `json:"chosen_id,omitempty"`
	Reasoning        string     `json:"reasoning,omitempty"`
	ConvID           string     `json:"conv_id,omitempty"`
	TraceID          string     `json:"trace_id,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// Option returns the option with the given id.
func (c *Checkpoint) Option(id string) (Option, bool) {
	for _, o := range c.Options {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

// Terminal reports whether the checkpoint has reached a final status.
func (c *Checkpoint) Terminal() bool {
	return c.Status == StatusResolved || c.Status == StatusCancelled
}

// CreateRequest holds the fields an agent decision point supplies to open a checkpoint.
type CreateRequest struct {
	Type             Type     `json:"type"`
	Title            string   `json:"title"`
	Description      string   `json:"description,omitempty"`
	Options          []Option `json:"options"`
	RecommendationID string   `json:"recommendation_id"`
	Confidence       float64  `json:"confidence"`
	ConvID           string   `json:"conv_id,omitempty"`
	TraceID          string   `json:"trace_id,omitempty"`
}

// Validate checks the structural invariants of a create request.
// A malformed checkpoint must never exist, even transiently.
func (r *CreateRequest) Validate() error {
	if !r.Type.Valid() {
		return fmt.Errorf("unknown decision type %q: %w", r.Type, domain.ErrValidation)
	}
	if r.Title == "" {
		return fmt.Errorf("title is required: %w", domain.ErrValidation)
	}
	if len(r.Options) < 2 {
		return fmt.Errorf("at least 2 options are required, got %d: %w", len(r.Options), domain.ErrValidation)
	}
	seen := make(map[string]struct{}, len(r.Options))
	for i, o := range r.Options {
		if o.ID == "" {
			return fmt.Errorf("option[%d] is missing an id: %w", i, domain.ErrValidation)
		}
		if _, dup := seen[o.ID]; dup {
			return fmt.Errorf("duplicate option id %q: %w", o.ID, domain.ErrValidation)
		}
		seen[o.ID] = struct{}{}
	}
	if _, ok := seen[r.RecommendationID]; !ok {
		return fmt.Errorf("recommendation %q is not among the options: %w", r.RecommendationID, domain.ErrValidation)
	}
	return nil
}

// Filter narrows a waiting-checkpoint listing.
type Filter struct {
	ConvID string
	Type   Type
}

// Matches reports whether the checkpoint passes the filter.
func (f Filter) Matches(c *Checkpoint) bool {
	if f.ConvID != "" && c.ConvID != f.ConvID {
		return false
	}
	if f.Type != "" && c.Type != f.Type {
		return false
	}
	return true
}

// Stats summarizes registry activity for the operator UI.
type Stats struct {
	Created       int           `json:"created"`
	AutoCompleted int           `json:"auto_completed"`
	Resolved      int           `json:"resolved"`
	Cancelled     int           `json:"cancelled"`
	Waiting       int           `json:"waiting"`
	ByType        map[Type]int  `json:"by_type"`
	// RecommendationAcceptanceRate is the fraction of resolved checkpoints
	// where the operator chose the recommended option. Zero when nothing
	// has been resolved yet.
	RecommendationAcceptanceRate float64 `json:"recommendation_acceptance_rate"`
}
